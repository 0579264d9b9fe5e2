package seenstore

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SeenBadge struct {
	BadgeID   string `gorm:"primarykey"`
	CreatedAt time.Time
}

// GormSeenStore keeps the seen set in a single-column relational table,
// shared between sqlite and postgres via gorm.
type GormSeenStore struct {
	DB *gorm.DB
}

func NewGormSeenStore(db *gorm.DB) (*GormSeenStore, error) {
	if err := db.AutoMigrate(&SeenBadge{}); err != nil {
		return nil, err
	}
	return &GormSeenStore{DB: db}, nil
}

func (s *GormSeenStore) Load(ctx context.Context) (map[string]bool, error) {
	var rows []SeenBadge
	if err := s.DB.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(rows))
	for _, row := range rows {
		out[row.BadgeID] = true
	}
	return out, nil
}

func (s *GormSeenStore) MarkSeen(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	rows := make([]SeenBadge, len(ids))
	for i, id := range ids {
		rows[i] = SeenBadge{BadgeID: id}
	}
	// insert-only semantics: conflicting ids are already seen
	return s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(rows, 500).Error
}
