package notifier

import (
	"context"

	"github.com/aleister1102/marketwatch/internal/models"
)

// Message is one outbound notification carrying one or more listings.
type Message struct {
	Listings []models.Listing
	// Batch marks messages produced by the batching policy; they carry a header.
	Batch bool
	// Total is the number of new listings in the whole dispatch.
	Total int
	// Index (1-based) and Count locate the message among the chunks of a dispatch.
	Index int
	Count int
}

// Sender delivers one message to a channel destination (a webhook URL, an
// email address). A returned error marks the attempt as failed and retryable.
type Sender interface {
	Send(ctx context.Context, destination string, msg Message) error
}

// SplitMessages applies the batching policy: with batching enabled and more
// than one listing, listings are grouped in chunks of batchSize; otherwise
// every listing is its own message.
func SplitMessages(listings []models.Listing, enableBatching bool, batchSize int) []Message {
	if len(listings) == 0 {
		return nil
	}

	if !enableBatching || len(listings) == 1 || batchSize < 1 {
		messages := make([]Message, 0, len(listings))
		for i := range listings {
			messages = append(messages, Message{
				Listings: listings[i : i+1],
				Total:    len(listings),
				Index:    i + 1,
				Count:    len(listings),
			})
		}
		return messages
	}

	count := (len(listings) + batchSize - 1) / batchSize
	messages := make([]Message, 0, count)
	for start := 0; start < len(listings); start += batchSize {
		end := start + batchSize
		if end > len(listings) {
			end = len(listings)
		}
		messages = append(messages, Message{
			Listings: listings[start:end],
			Batch:    true,
			Total:    len(listings),
			Index:    len(messages) + 1,
			Count:    count,
		})
	}
	return messages
}
