package offensestore

import (
	"context"
	"time"
)

// OffenseStore is the per-user punishment ledger: a cumulative offense count
// and the timestamp of the last punishment actually applied.
//
// The count only ever increases, and the timestamp is updated exactly when a
// punishment fires, never when a cooldown suppresses one. State is per-user,
// not per-message.
type OffenseStore interface {
	// Increment bumps the user's offense count, records now as the
	// last-punished timestamp, and returns the new count.
	Increment(ctx context.Context, userID string, now time.Time) (int, error)
	Count(ctx context.Context, userID string) (int, error)
	// LastPunished returns the zero time when the user has never been
	// punished.
	LastPunished(ctx context.Context, userID string) (time.Time, error)
}
