package offensestore

import (
	"context"
	"sync"
	"time"
)

type MemOffenseStore struct {
	lk           sync.Mutex
	counts       map[string]int
	lastPunished map[string]time.Time
}

func NewMemOffenseStore() *MemOffenseStore {
	return &MemOffenseStore{
		counts:       make(map[string]int),
		lastPunished: make(map[string]time.Time),
	}
}

func (s *MemOffenseStore) Increment(ctx context.Context, userID string, now time.Time) (int, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	s.counts[userID]++
	s.lastPunished[userID] = now
	return s.counts[userID], nil
}

func (s *MemOffenseStore) Count(ctx context.Context, userID string) (int, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	return s.counts[userID], nil
}

func (s *MemOffenseStore) LastPunished(ctx context.Context, userID string) (time.Time, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	return s.lastPunished[userID], nil
}
