package seenstore

import (
	"context"
)

// SeenStore is a durable set of badge ids which have already been announced.
//
// The set is insert-only: there is no delete operation, and marking an
// already-present id is a no-op. Load returns an empty set when no prior
// state exists.
type SeenStore interface {
	Load(ctx context.Context) (map[string]bool, error)
	MarkSeen(ctx context.Context, ids []string) error
}
