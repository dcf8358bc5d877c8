package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	ACCOUNT_TYPE_ASSET     = "ASSET"
	ACCOUNT_TYPE_LIABILITY = "LIABILITY"
	ACCOUNT_TYPE_INCOME    = "INCOME"
	ACCOUNT_TYPE_EXPENSE   = "EXPENSE"
)

// LedgerAccount is one account in the general ledger chart.
type LedgerAccount struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Code      string    `gorm:"type:varchar(50);not null;uniqueIndex" json:"code"`
	Name      string    `gorm:"type:varchar(120);not null" json:"name"`
	Type      string    `gorm:"type:varchar(20);not null" json:"type"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// JournalEntry groups the ledger lines of one economic event. Reference
// is unique so the same collection can never be posted twice.
type JournalEntry struct {
	ID        string       `gorm:"type:char(36);primaryKey" json:"id"`
	Reference string       `gorm:"type:varchar(64);not null;uniqueIndex" json:"reference"`
	Memo      string       `gorm:"type:text" json:"memo"`
	Lines     []LedgerLine `gorm:"foreignKey:JournalEntryID" json:"lines,omitempty"`
	CreatedAt time.Time    `gorm:"autoCreateTime;index" json:"created_at"`
}

func (j *JournalEntry) BeforeCreate(tx *gorm.DB) error {
	if j.ID == "" {
		j.ID = uuid.New().String()
	}
	return nil
}

// LedgerLine is a single debit or credit within a journal entry.
type LedgerLine struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	JournalEntryID string          `gorm:"type:char(36);not null;index" json:"journal_entry_id"`
	AccountID      uint            `gorm:"not null;index" json:"account_id"`
	Debit          decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"debit"`
	Credit         decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"credit"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// BeforeSave enforces the double-entry line shape: exactly one side set.
func (l *LedgerLine) BeforeSave(tx *gorm.DB) error {
	debitPositive := l.Debit.GreaterThan(decimal.Zero)
	creditPositive := l.Credit.GreaterThan(decimal.Zero)
	if debitPositive == creditPositive {
		return ErrLedgerLineShape
	}
	return nil
}
