package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ContractStatus string

const (
	StatusPendingPayment ContractStatus = "pending_payment"
	StatusPaid           ContractStatus = "paid"
	StatusAbandoned      ContractStatus = "abandoned"
)

// PendingContract is the local record of a handed-off draft, kept so the
// flow can recover when the user returns without paying.
type PendingContract struct {
	ID                snowflake.ID    `gorm:"primaryKey" json:"id"`
	Reference         string          `gorm:"size:96;not null;uniqueIndex" json:"reference"`
	SessionID         string          `gorm:"size:64;not null;index" json:"-"`
	PlanTier          string          `gorm:"size:32;not null" json:"plan_tier"`
	IncludeKit        bool            `gorm:"not null" json:"include_kit"`
	IncludeSubstitute bool            `gorm:"not null" json:"include_substitute"`
	TotalDueToday     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_due_today"`
	TotalDueLater     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_due_later"`
	CheckoutURL       string          `gorm:"size:2048;not null" json:"-"`
	Snapshot          []byte          `gorm:"not null" json:"-"`
	Status            ContractStatus  `gorm:"size:24;not null;index" json:"status"`
	CreatedAt         time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"not null" json:"updated_at"`
	ClosedAt          *time.Time      `json:"closed_at,omitempty"`
}

func (PendingContract) TableName() string { return "pending_contracts" }

type Repository interface {
	Insert(ctx context.Context, contract *PendingContract) error
	LatestPending(ctx context.Context, sessionID string) (*PendingContract, error)
	Close(ctx context.Context, id snowflake.ID, status ContractStatus, at time.Time) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, contract *PendingContract) error {
	return r.db.WithContext(ctx).Create(contract).Error
}

// LatestPending returns nil when the session has no open contract.
func (r *repository) LatestPending(ctx context.Context, sessionID string) (*PendingContract, error) {
	var contract PendingContract
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND status = ?", sessionID, StatusPendingPayment).
		Order("created_at DESC").
		Order("id DESC").
		Take(&contract).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

// Close moves a pending contract to a terminal status and discards its snapshot.
func (r *repository) Close(ctx context.Context, id snowflake.ID, status ContractStatus, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&PendingContract{}).
		Where("id = ? AND status = ?", id, StatusPendingPayment).
		Updates(map[string]any{
			"status":     status,
			"snapshot":   []byte{},
			"closed_at":  at,
			"updated_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNoPendingContract
	}
	return nil
}
