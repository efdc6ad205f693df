package notifier

import (
	"time"
	"unicode/utf8"

	"github.com/aleister1102/marketwatch/internal/models"
)

// DiscordEmbedBuilder helps in constructing models.DiscordEmbed objects.
type DiscordEmbedBuilder struct {
	embed models.DiscordEmbed
}

// NewDiscordEmbedBuilder creates a new instance of DiscordEmbedBuilder.
func NewDiscordEmbedBuilder() *DiscordEmbedBuilder {
	return &DiscordEmbedBuilder{}
}

// WithTitle sets the Title for the DiscordEmbed.
func (b *DiscordEmbedBuilder) WithTitle(title string) *DiscordEmbedBuilder {
	b.embed.Title = title
	return b
}

// WithDescription sets the Description, truncated to MaxDescriptionLength runes.
func (b *DiscordEmbedBuilder) WithDescription(description string) *DiscordEmbedBuilder {
	b.embed.Description = truncateRunes(description, MaxDescriptionLength)
	return b
}

// WithURL sets the URL for the DiscordEmbed.
func (b *DiscordEmbedBuilder) WithURL(url string) *DiscordEmbedBuilder {
	b.embed.URL = url
	return b
}

// WithTimestamp sets the Timestamp for the DiscordEmbed.
func (b *DiscordEmbedBuilder) WithTimestamp(timestamp time.Time) *DiscordEmbedBuilder {
	b.embed.Timestamp = timestamp.Format(time.RFC3339)
	return b
}

// WithColor sets the Color for the DiscordEmbed.
func (b *DiscordEmbedBuilder) WithColor(color int) *DiscordEmbedBuilder {
	b.embed.Color = color
	return b
}

// WithThumbnail sets the Thumbnail; an empty url leaves it unset.
func (b *DiscordEmbedBuilder) WithThumbnail(url string) *DiscordEmbedBuilder {
	if url == "" {
		b.embed.Thumbnail = nil
		return b
	}
	b.embed.Thumbnail = &models.DiscordEmbedThumbnail{URL: url}
	return b
}

// AddField adds a DiscordEmbedField to the DiscordEmbed.
func (b *DiscordEmbedBuilder) AddField(name string, value string, inline bool) *DiscordEmbedBuilder {
	b.embed.Fields = append(b.embed.Fields, models.DiscordEmbedField{
		Name:   name,
		Value:  value,
		Inline: inline,
	})
	return b
}

// Build returns the constructed models.DiscordEmbed object.
func (b *DiscordEmbedBuilder) Build() models.DiscordEmbed {
	return b.embed
}

// BuildListingEmbed renders one listing summary card.
func BuildListingEmbed(l models.Listing, now time.Time) models.DiscordEmbed {
	return NewDiscordEmbedBuilder().
		WithTitle(l.Title).
		WithURL(l.URL).
		WithDescription(l.Description).
		WithColor(ListingEmbedColor).
		AddField(PriceFieldName, l.Price.String(), true).
		WithThumbnail(l.ImageURL).
		WithTimestamp(now).
		Build()
}

// truncateRunes cuts s to max runes and appends "..." when it was longer.
func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}
