package draft

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Record is one persisted draft row.
type Record struct {
	Key       string         `gorm:"column:draft_key;primaryKey;size:160"`
	Payload   datatypes.JSON `gorm:"not null"`
	SavedAt   time.Time      `gorm:"not null;index"`
	UpdatedAt time.Time      `gorm:"not null"`
}

func (Record) TableName() string { return "onboarding_drafts" }

type sqlBackend struct {
	db        *gorm.DB
	retention time.Duration
	now       func() time.Time
}

// NewSQLStore keeps drafts in the onboarding_drafts table.
func NewSQLStore(db *gorm.DB, opts Options) *Store {
	s := newStore(&sqlBackend{db: db}, opts)
	b := s.backend.(*sqlBackend)
	b.retention = s.retention
	b.now = s.clock.Now
	return s
}

func (b *sqlBackend) Name() string { return "sql" }

func (b *sqlBackend) Put(ctx context.Context, key string, payload []byte, savedAt time.Time, _ time.Duration) error {
	record := Record{
		Key:       key,
		Payload:   datatypes.JSON(payload),
		SavedAt:   savedAt,
		UpdatedAt: savedAt,
	}
	return b.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "draft_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "saved_at", "updated_at"}),
	}).Create(&record).Error
}

func (b *sqlBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var record Record
	err := b.db.WithContext(ctx).Where("draft_key = ?", key).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(record.Payload), true, nil
}

func (b *sqlBackend) Delete(ctx context.Context, key string) error {
	return b.db.WithContext(ctx).Where("draft_key = ?", key).Delete(&Record{}).Error
}

// PurgeExpired removes rows older than the retention window.
func (b *sqlBackend) PurgeExpired(ctx context.Context) (int64, error) {
	cutoff := b.now().Add(-b.retention)
	res := b.db.WithContext(ctx).Where("saved_at <= ?", cutoff).Delete(&Record{})
	return res.RowsAffected, res.Error
}
