package notifier

import (
	"context"

	"github.com/rs/zerolog"
)

// EmailNotifier is the placeholder email channel. It only records what would
// have been sent; the dispatcher consults the feature flag before calling it.
type EmailNotifier struct {
	logger zerolog.Logger
}

func NewEmailNotifier(logger zerolog.Logger) *EmailNotifier {
	return &EmailNotifier{logger: logger.With().Str("component", "EmailNotifier").Logger()}
}

func (en *EmailNotifier) Send(_ context.Context, address string, msg Message) error {
	if address == "" {
		address = "default"
	}
	en.logger.Info().
		Str("email", address).
		Int("count", len(msg.Listings)).
		Msg("Email notification would be sent")
	return nil
}
