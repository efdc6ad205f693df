package config

import "time"

// NotificationConfig defines configuration for notifications
type NotificationConfig struct {
	EnableBatching bool `json:"enable_batching" yaml:"enable_batching"`
	BatchSize      int  `json:"batch_size,omitempty" yaml:"batch_size,omitempty" validate:"min=1"`
	BatchDelayMs   int  `json:"batch_delay_ms" yaml:"batch_delay_ms" validate:"min=0"`
	MessageDelayMs int  `json:"message_delay_ms" yaml:"message_delay_ms" validate:"min=0"`
	MaxRetries     int  `json:"max_retries,omitempty" yaml:"max_retries,omitempty" validate:"min=1"`
	RetryDelayMs   int  `json:"retry_delay_ms" yaml:"retry_delay_ms" validate:"min=0"`
	TimeoutSecs    int  `json:"timeout_secs,omitempty" yaml:"timeout_secs,omitempty" validate:"min=1"`

	Discord DiscordConfig `json:"discord" yaml:"discord"`
	Email   EmailConfig   `json:"email" yaml:"email"`
}

// DiscordConfig configures the webhook channel
type DiscordConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	// WebhookURL is used for watchers without notification targets and for
	// DISCORD targets that leave webhook_url empty.
	WebhookURL string `json:"webhook_url,omitempty" yaml:"webhook_url,omitempty" validate:"omitempty,url"`
	Username   string `json:"username,omitempty" yaml:"username,omitempty"`
	AvatarURL  string `json:"avatar_url,omitempty" yaml:"avatar_url,omitempty" validate:"omitempty,url"`
}

// EmailConfig configures the (feature flagged) email channel
type EmailConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Address string `json:"address,omitempty" yaml:"address,omitempty" validate:"omitempty,email"`
}

// NewDefaultNotificationConfig creates default notification configuration
func NewDefaultNotificationConfig() NotificationConfig {
	return NotificationConfig{
		EnableBatching: DefaultNotificationEnableBatching,
		BatchSize:      DefaultNotificationBatchSize,
		BatchDelayMs:   DefaultNotificationBatchDelayMs,
		MessageDelayMs: DefaultNotificationMessageDelayMs,
		MaxRetries:     DefaultNotificationMaxRetries,
		RetryDelayMs:   DefaultNotificationRetryDelayMs,
		TimeoutSecs:    DefaultNotificationTimeoutSecs,
		Discord: DiscordConfig{
			Enabled:  DefaultDiscordEnabled,
			Username: DefaultDiscordUsername,
		},
		Email: EmailConfig{
			Enabled: DefaultEmailEnabled,
		},
	}
}

// BatchDelay returns the pause between two batch messages.
func (c NotificationConfig) BatchDelay() time.Duration {
	return time.Duration(c.BatchDelayMs) * time.Millisecond
}

// MessageDelay returns the pause between two single-listing messages.
func (c NotificationConfig) MessageDelay() time.Duration {
	return time.Duration(c.MessageDelayMs) * time.Millisecond
}

// RetryDelay returns the base retry delay.
func (c NotificationConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

// Timeout returns the HTTP timeout for channel requests.
func (c NotificationConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}
