package notifier

// Discord formatting constants
const (
	DefaultDiscordUsername = "Blocket Bot"
	ListingEmbedColor      = 0x5BC0DE
	MaxEmbedsPerMessage    = 10
	MaxDescriptionLength   = 200
	PriceFieldName         = "Price"
)

// Channel names used in logs and delivery errors
const (
	ChannelDiscord = "discord"
	ChannelEmail   = "email"
)
