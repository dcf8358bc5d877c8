package repository

import (
	"time"

	"github.com/korefinance/kore/app/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GoalRepository defines the interface for goal-related database operations
type GoalRepository interface {
	Create(goal *models.Goal) error
	GetByID(id string) (*models.Goal, error)
	GetForOwner(id, ownerRef string) (*models.Goal, error)
	Update(goal *models.Goal) error
	UpdateStatus(id, status string) error
	ListByOwner(ownerRef string, offset, limit int) ([]models.Goal, error)
	CountByOwner(ownerRef string) (int64, error)
}

// CollectionRepository defines the interface for collection-related database operations
type CollectionRepository interface {
	Create(collection *models.Collection) error
	GetByID(id string) (*models.Collection, error)
	GetByRequestRef(requestRef string) (*models.Collection, error)
	// GetByRequestRefForUpdate takes a row lock so the caller reads
	// current state inside its transaction.
	GetByRequestRefForUpdate(requestRef string) (*models.Collection, error)
	GetByIdempotencyKey(ownerRef, key string) (*models.Collection, error)
	Update(collection *models.Collection) error
	UpdateFields(id string, fields map[string]any) error
	// UpdateStatusGuarded applies fields only while the row still holds
	// expectedStatus. The rows-affected count tells the caller whether
	// it won the race.
	UpdateStatusGuarded(id, expectedStatus string, fields map[string]any) (int64, error)
	ListByOwner(ownerRef, status string, offset, limit int) ([]models.Collection, error)
	CountByOwner(ownerRef, status string) (int64, error)
	ListByGoal(goalID string) ([]models.Collection, error)
}

// TransactionFilter narrows owner-scoped transaction listings. Empty
// fields match everything.
type TransactionFilter struct {
	GoalID string
	Type   string
	Status string
}

// TransactionRepository defines the interface for transaction-related database operations.
// Transactions are append-only; there is no delete and no free-form update.
type TransactionRepository interface {
	Create(transaction *models.Transaction) error
	GetByID(id string) (*models.Transaction, error)
	ListByOwner(ownerRef string, filter TransactionFilter, offset, limit int) ([]models.Transaction, error)
	CountByOwner(ownerRef string, filter TransactionFilter) (int64, error)
	ListByCollection(collectionID string) ([]models.Transaction, error)
	// CascadePendingByCollection moves every PENDING transaction of the
	// collection to toStatus and stamps the provider reference.
	CascadePendingByCollection(collectionID, toStatus, providerRef string) (int64, error)
	SumForGoal(goalID, txType, status string) (decimal.Decimal, error)
	CountForGoal(goalID, status string) (int64, error)
}

// WebhookEventRepository defines the interface for webhook event persistence
type WebhookEventRepository interface {
	// CreateIfNotExists inserts the event, or returns the already
	// stored row when (provider, event_id) was seen before. created
	// reports which path was taken.
	CreateIfNotExists(event *models.WebhookEvent) (created bool, stored *models.WebhookEvent, err error)
	GetByID(id string) (*models.WebhookEvent, error)
	// MarkProcessed and MarkFailed only transition rows still in
	// RECEIVED; the bool reports whether this caller won.
	MarkProcessed(id string) (bool, error)
	MarkFailed(id, errMsg string) (bool, error)
	// ResetToReceived reopens a FAILED event for another attempt.
	ResetToReceived(id string) (bool, error)
	List(provider, status string, offset, limit int) ([]models.WebhookEvent, error)
	Count(provider, status string) (int64, error)
	ListArchivable(cutoff time.Time, limit int) ([]models.WebhookEvent, error)
	MarkArchived(ids []string, archivedAt time.Time) error
}

// AccountBalance is one row of the ledger trial balance.
type AccountBalance struct {
	AccountID   uint            `json:"account_id"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	TotalDebit  decimal.Decimal `json:"total_debit"`
	TotalCredit decimal.Decimal `json:"total_credit"`
}

// LedgerRepository defines the interface for double-entry ledger persistence
type LedgerRepository interface {
	EnsureAccount(code, name, accountType string) (*models.LedgerAccount, error)
	GetAccountByCode(code string) (*models.LedgerAccount, error)
	CreateEntry(entry *models.JournalEntry) error
	GetEntryByReference(reference string) (*models.JournalEntry, error)
	ListEntries(offset, limit int) ([]models.JournalEntry, error)
	TrialBalance() ([]AccountBalance, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	Goal         GoalRepository
	Collection   CollectionRepository
	Transaction  TransactionRepository
	WebhookEvent WebhookEventRepository
	Ledger       LedgerRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Goal:         NewGoalRepository(db),
		Collection:   NewCollectionRepository(db),
		Transaction:  NewTransactionRepository(db),
		WebhookEvent: NewWebhookEventRepository(db),
		Ledger:       NewLedgerRepository(db),
	}
}
