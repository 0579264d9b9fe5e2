package reactstore

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type MemReactionStore struct {
	lk   sync.Mutex
	data *expirable.LRU[string, map[string]bool]
}

func NewMemReactionStore(capacity int, ttl time.Duration) *MemReactionStore {
	return &MemReactionStore{
		data: expirable.NewLRU[string, map[string]bool](capacity, nil, ttl),
	}
}

func (s *MemReactionStore) Add(ctx context.Context, messageID, userID, emoji string) ([]string, error) {
	s.lk.Lock()
	defer s.lk.Unlock()

	key := trackingKey(messageID, userID)
	set, ok := s.data.Get(key)
	if !ok {
		set = make(map[string]bool)
	}
	set[emoji] = true
	// re-adding refreshes the TTL on the entry
	s.data.Add(key, set)

	out := make([]string, 0, len(set))
	for e := range set {
		out = append(out, e)
	}
	return out, nil
}

func (s *MemReactionStore) Clear(ctx context.Context, messageID, userID string) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	s.data.Remove(trackingKey(messageID, userID))
	return nil
}
