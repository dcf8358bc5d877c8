package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	TRANSACTION_TYPE_DEBIT  = "DEBIT"
	TRANSACTION_TYPE_CREDIT = "CREDIT"
	TRANSACTION_TYPE_FEE    = "FEE"

	TRANSACTION_STATUS_PENDING = "PENDING"
	TRANSACTION_STATUS_SUCCESS = "SUCCESS"
	TRANSACTION_STATUS_FAILED  = "FAILED"
)

// Transaction is one append-only ledger line derived from a Collection
// event. Rows are never deleted; after creation only the reconciliation
// cascade may move a PENDING row to SUCCESS or FAILED.
type Transaction struct {
	ID           string          `gorm:"type:char(36);primaryKey" json:"id"`
	OwnerRef     string          `gorm:"type:varchar(64);not null;index" json:"owner_ref"`
	GoalID       *string         `gorm:"type:char(36);index" json:"goal_id,omitempty"`
	CollectionID *string         `gorm:"type:char(36);index" json:"collection_id,omitempty"`
	Type         string          `gorm:"type:varchar(20);not null" json:"type"`
	Amount       decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"`
	Currency     string          `gorm:"type:varchar(3);not null" json:"currency"`
	Status       string          `gorm:"type:varchar(20);default:'PENDING';index" json:"status"`
	RequestRef   string          `gorm:"type:varchar(64);not null;index" json:"request_ref"`
	ProviderRef  string          `gorm:"type:varchar(64);default:''" json:"provider_ref"`
	OccurredAt   time.Time       `gorm:"not null" json:"occurred_at"`
	Metadata     JSONMap         `gorm:"type:json" json:"metadata"`
	CreatedAt    time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.OccurredAt.IsZero() {
		t.OccurredAt = time.Now()
	}
	return nil
}
