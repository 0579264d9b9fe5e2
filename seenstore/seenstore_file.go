package seenstore

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

type snapshotBody struct {
	BadgeIDs []string `json:"badge_ids"`
}

// FileSeenStore persists the seen set as a JSON snapshot file. Writes go
// through a temp file followed by rename, so a crash mid-write never leaves
// a half-committed snapshot behind.
type FileSeenStore struct {
	Path string

	lk  sync.Mutex
	ids map[string]bool
	// ids not yet on disk; stays set across a failed write so the next
	// MarkSeen call rewrites the snapshot even with no fresh ids
	dirty bool
}

func NewFileSeenStore(path string) *FileSeenStore {
	return &FileSeenStore{Path: path}
}

func (s *FileSeenStore) Load(ctx context.Context) (map[string]bool, error) {
	s.lk.Lock()
	defer s.lk.Unlock()

	raw, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		s.ids = make(map[string]bool)
		return map[string]bool{}, nil
	} else if err != nil {
		return nil, err
	}

	var body snapshotBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, err
	}

	s.ids = make(map[string]bool, len(body.BadgeIDs))
	out := make(map[string]bool, len(body.BadgeIDs))
	for _, id := range body.BadgeIDs {
		s.ids[id] = true
		out[id] = true
	}
	return out, nil
}

func (s *FileSeenStore) MarkSeen(ctx context.Context, ids []string) error {
	s.lk.Lock()
	defer s.lk.Unlock()

	if s.ids == nil {
		s.ids = make(map[string]bool)
	}
	for _, id := range ids {
		if !s.ids[id] {
			s.ids[id] = true
			s.dirty = true
		}
	}
	if !s.dirty {
		return nil
	}
	if err := s.writeSnapshot(); err != nil {
		return err
	}
	s.dirty = false
	return nil
}

func (s *FileSeenStore) writeSnapshot() error {
	body := snapshotBody{BadgeIDs: make([]string, 0, len(s.ids))}
	for id := range s.ids {
		body.BadgeIDs = append(body.BadgeIDs, id)
	}
	sort.Strings(body.BadgeIDs)

	raw, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		return err
	}

	if dir := filepath.Dir(s.Path); dir != "." {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return err
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.Path), ".seen-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
