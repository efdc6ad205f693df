package notifier

import (
	"context"
	"net/http"
	"sync"

	"github.com/aleister1102/marketwatch/internal/common"
	"github.com/aleister1102/marketwatch/internal/config"
	"github.com/aleister1102/marketwatch/internal/httpclient"
	"github.com/aleister1102/marketwatch/internal/models"
	"github.com/rs/zerolog"
)

// Dispatcher delivers new listings to notification targets. It never returns
// errors: failures are logged and counted in the returned report.
type Dispatcher struct {
	cfg     config.NotificationConfig
	discord Sender
	email   Sender
	retry   *RetryHandler
	logger  zerolog.Logger
}

// NewDispatcher creates a dispatcher with explicit channel senders.
func NewDispatcher(cfg config.NotificationConfig, discord, email Sender, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		cfg:     cfg,
		discord: discord,
		email:   email,
		retry:   NewRetryHandler(cfg.MaxRetries, cfg.RetryDelay(), logger),
		logger:  logger.With().Str("component", "NotificationDispatcher").Logger(),
	}
}

// NewDefaultDispatcher wires the webhook and email channels from configuration.
func NewDefaultDispatcher(cfg config.NotificationConfig, logger zerolog.Logger) *Dispatcher {
	httpClient, err := httpclient.NewHTTPClientBuilder(logger).WithTimeout(cfg.Timeout()).Build()
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to build notification HTTP client, using default client")
		httpClient = &http.Client{Timeout: cfg.Timeout()}
	}
	return NewDispatcher(
		cfg,
		NewDiscordNotifier(cfg.Discord, logger, httpClient),
		NewEmailNotifier(logger),
		logger,
	)
}

// DefaultTargets are used for watchers without configured notifications.
func DefaultTargets() []models.NotificationTarget {
	return []models.NotificationTarget{
		models.DiscordTarget(""),
		models.EmailTarget(""),
	}
}

// Dispatch sends listings to one target.
func (d *Dispatcher) Dispatch(ctx context.Context, target models.NotificationTarget, listings []models.Listing) (report models.DeliveryReport) {
	report.Target = target
	if len(listings) == 0 {
		return report
	}

	logger := d.logger.With().Str("target", target.String()).Logger()
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("Recovered from panic during dispatch")
			report.LastErr = common.NewDeliveryError(string(target.Kind), "panic during dispatch", nil)
		}
	}()

	switch target.Kind {
	case models.NotificationKindDiscord:
		webhookURL := target.WebhookURL
		if webhookURL == "" {
			webhookURL = d.cfg.Discord.WebhookURL
		}
		if !d.cfg.Discord.Enabled || webhookURL == "" {
			logger.Debug().Msg("Discord notifications disabled or missing webhook URL")
			return report
		}
		return d.deliver(ctx, logger, report, d.discord, webhookURL, listings)

	case models.NotificationKindEmail:
		if !d.cfg.Email.Enabled {
			logger.Debug().Msg("Email notifications disabled")
			return report
		}
		address := target.Email
		if address == "" {
			address = d.cfg.Email.Address
		}
		return d.deliver(ctx, logger, report, d.email, address, listings)

	default:
		logger.Error().Str("kind", string(target.Kind)).Msg("Unknown notification kind")
		report.LastErr = common.NewValidationError("kind", target.Kind, "unknown notification kind")
		return report
	}
}

// DispatchAll fans listings out to every target concurrently and waits for all
// deliveries. Reports are returned in target order.
func (d *Dispatcher) DispatchAll(ctx context.Context, targets []models.NotificationTarget, listings []models.Listing) []models.DeliveryReport {
	if len(targets) == 0 {
		targets = DefaultTargets()
	}

	reports := make([]models.DeliveryReport, len(targets))
	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target models.NotificationTarget) {
			defer wg.Done()
			reports[i] = d.Dispatch(ctx, target, listings)
		}(i, target)
	}
	wg.Wait()
	return reports
}

func (d *Dispatcher) deliver(ctx context.Context, logger zerolog.Logger, report models.DeliveryReport, sender Sender, destination string, listings []models.Listing) models.DeliveryReport {
	messages := SplitMessages(listings, d.cfg.EnableBatching, d.cfg.BatchSize)
	batched := len(messages) > 0 && messages[0].Batch
	delay := d.cfg.MessageDelay()
	if batched {
		delay = d.cfg.BatchDelay()
	}

	logger.Info().
		Int("listings", len(listings)).
		Int("messages", len(messages)).
		Bool("batched", batched).
		Msg("Sending notifications")

	for i, msg := range messages {
		err := d.retry.Do(ctx, func(ctx context.Context) error {
			return sender.Send(ctx, destination, msg)
		})
		if err != nil {
			report.MessagesFailed++
			report.LastErr = err
			logger.Error().
				Err(err).
				Int("message", msg.Index).
				Int("messages", msg.Count).
				Int("listings", len(msg.Listings)).
				Msg("Notification delivery failed after retries")
		} else {
			report.MessagesSent++
		}

		if i < len(messages)-1 {
			if err := sleepContext(ctx, delay); err != nil {
				report.MessagesFailed += len(messages) - i - 1
				report.LastErr = err
				logger.Warn().Err(err).Msg("Dispatch interrupted")
				return report
			}
		}
	}

	logger.Debug().
		Int("sent", report.MessagesSent).
		Int("failed", report.MessagesFailed).
		Msg("Dispatch finished")
	return report
}
