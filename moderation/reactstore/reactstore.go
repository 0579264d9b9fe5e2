package reactstore

import (
	"context"
)

// ReactionStore tracks which emoji each user has applied to each message,
// observed incrementally from reaction-add events.
//
// Entries are cleared after a punishment fires for the key, and both
// implementations evict idle entries on their own (LRU capacity + TTL in
// memory, key TTLs in redis), so tracking state cannot grow without bound.
type ReactionStore interface {
	// Add records emoji for the (messageID, userID) key and returns the full
	// tracked set for that key, including the new emoji.
	Add(ctx context.Context, messageID, userID, emoji string) ([]string, error)
	Clear(ctx context.Context, messageID, userID string) error
}

func trackingKey(messageID, userID string) string {
	return messageID + "/" + userID
}
