package notifier

import (
	"fmt"
	"time"

	"github.com/aleister1102/marketwatch/internal/models"
)

// DiscordMessagePayloadBuilder helps in constructing models.DiscordMessagePayload objects.
type DiscordMessagePayloadBuilder struct {
	payload models.DiscordMessagePayload
}

// NewDiscordMessagePayloadBuilder creates a new instance of DiscordMessagePayloadBuilder.
func NewDiscordMessagePayloadBuilder() *DiscordMessagePayloadBuilder {
	return &DiscordMessagePayloadBuilder{
		payload: models.DiscordMessagePayload{Embeds: []models.DiscordEmbed{}},
	}
}

// WithContent sets the Content for the DiscordMessagePayload.
func (b *DiscordMessagePayloadBuilder) WithContent(content string) *DiscordMessagePayloadBuilder {
	b.payload.Content = content
	return b
}

// WithUsername sets the Username for the DiscordMessagePayload.
func (b *DiscordMessagePayloadBuilder) WithUsername(username string) *DiscordMessagePayloadBuilder {
	b.payload.Username = username
	return b
}

// WithAvatarURL sets the AvatarURL for the DiscordMessagePayload.
func (b *DiscordMessagePayloadBuilder) WithAvatarURL(avatarURL string) *DiscordMessagePayloadBuilder {
	b.payload.AvatarURL = avatarURL
	return b
}

// AddEmbed adds an embed unless the message already holds MaxEmbedsPerMessage.
func (b *DiscordMessagePayloadBuilder) AddEmbed(embed models.DiscordEmbed) *DiscordMessagePayloadBuilder {
	if len(b.payload.Embeds) < MaxEmbedsPerMessage {
		b.payload.Embeds = append(b.payload.Embeds, embed)
	}
	return b
}

// Build returns the constructed models.DiscordMessagePayload object.
func (b *DiscordMessagePayloadBuilder) Build() models.DiscordMessagePayload {
	return b.payload
}

// BuildListingPayload renders msg for a webhook. username falls back to
// DefaultDiscordUsername and avatarURL to the first listing image.
func BuildListingPayload(msg Message, username, avatarURL string, now time.Time) models.DiscordMessagePayload {
	if username == "" {
		username = DefaultDiscordUsername
	}
	if avatarURL == "" && len(msg.Listings) > 0 {
		avatarURL = msg.Listings[0].ImageURL
	}

	builder := NewDiscordMessagePayloadBuilder().
		WithUsername(username).
		WithAvatarURL(avatarURL)

	if msg.Batch {
		builder.WithContent(batchHeader(msg))
	}

	for _, l := range msg.Listings {
		builder.AddEmbed(BuildListingEmbed(l, now))
	}
	return builder.Build()
}

func batchHeader(msg Message) string {
	header := fmt.Sprintf("Found %d new listings!", msg.Total)
	if msg.Count > 1 {
		header += fmt.Sprintf(" (batch %d/%d)", msg.Index, msg.Count)
	}
	return header
}
