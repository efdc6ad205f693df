package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aleister1102/marketwatch/internal/common"
	"github.com/aleister1102/marketwatch/internal/config"
	"github.com/rs/zerolog"
)

const maxResponseBodyBytes = 1024

// DiscordNotifier posts listing messages to a Discord-style webhook.
type DiscordNotifier struct {
	username   string
	avatarURL  string
	logger     zerolog.Logger
	httpClient *http.Client
	now        func() time.Time
}

// NewDiscordNotifier creates a new DiscordNotifier. The webhook URL is
// provided per send call.
func NewDiscordNotifier(cfg config.DiscordConfig, logger zerolog.Logger, httpClient *http.Client) *DiscordNotifier {
	componentLogger := logger.With().Str("component", "DiscordNotifier").Logger()

	if httpClient == nil {
		componentLogger.Warn().Msg("HTTP client is nil, using default HTTP client with 20s timeout.")
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}

	return &DiscordNotifier{
		username:   cfg.Username,
		avatarURL:  cfg.AvatarURL,
		logger:     componentLogger,
		httpClient: httpClient,
		now:        time.Now,
	}
}

// Send posts one message. Non-2xx answers are returned as *common.DeliveryError
// carrying the status code.
func (dn *DiscordNotifier) Send(ctx context.Context, webhookURL string, msg Message) error {
	if _, err := url.ParseRequestURI(webhookURL); err != nil {
		return common.NewDeliveryError(ChannelDiscord, "invalid webhook url", err)
	}

	payload := BuildListingPayload(msg, dn.username, dn.avatarURL, dn.now())
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return common.NewDeliveryError(ChannelDiscord, "failed to marshal payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(payloadJSON))
	if err != nil {
		return common.NewDeliveryError(ChannelDiscord, "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := dn.httpClient.Do(req)
	if err != nil {
		return common.NewDeliveryError(ChannelDiscord, "request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
		return common.NewDeliveryStatusError(ChannelDiscord, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	dn.logger.Debug().
		Int("status_code", resp.StatusCode).
		Int("listings", len(msg.Listings)).
		Str("message", fmt.Sprintf("%d/%d", msg.Index, msg.Count)).
		Msg("Discord notification sent")
	return nil
}
