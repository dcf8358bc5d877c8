package repository

import (
	"errors"

	"github.com/korefinance/kore/app/models"
	"gorm.io/gorm"
)

// ledgerRepository implements the LedgerRepository interface
type ledgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository creates a new ledger repository instance
func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

// EnsureAccount returns the account with the given code, creating it on
// first use.
func (r *ledgerRepository) EnsureAccount(code, name, accountType string) (*models.LedgerAccount, error) {
	var account models.LedgerAccount
	err := r.db.Where("code = ?", code).First(&account).Error
	if err == nil {
		return &account, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	account = models.LedgerAccount{Code: code, Name: name, Type: accountType}
	if err := r.db.Create(&account).Error; err != nil {
		// Lost a create race; the row exists now.
		if fetchErr := r.db.Where("code = ?", code).First(&account).Error; fetchErr == nil {
			return &account, nil
		}
		return nil, err
	}
	return &account, nil
}

// GetAccountByCode retrieves a ledger account by its chart code
func (r *ledgerRepository) GetAccountByCode(code string) (*models.LedgerAccount, error) {
	var account models.LedgerAccount
	err := r.db.Where("code = ?", code).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// CreateEntry persists a journal entry together with its lines
func (r *ledgerRepository) CreateEntry(entry *models.JournalEntry) error {
	return r.db.Create(entry).Error
}

// GetEntryByReference retrieves a journal entry by its unique reference,
// lines included
func (r *ledgerRepository) GetEntryByReference(reference string) (*models.JournalEntry, error) {
	var entry models.JournalEntry
	err := r.db.Preload("Lines").Where("reference = ?", reference).First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListEntries retrieves journal entries newest first, lines included
func (r *ledgerRepository) ListEntries(offset, limit int) ([]models.JournalEntry, error) {
	var entries []models.JournalEntry
	err := r.db.Preload("Lines").
		Order("created_at DESC").Offset(offset).Limit(limit).Find(&entries).Error
	return entries, err
}

// TrialBalance sums debits and credits per account across all journal
// lines. A balanced ledger has equal grand totals.
func (r *ledgerRepository) TrialBalance() ([]AccountBalance, error) {
	var balances []AccountBalance
	err := r.db.Model(&models.LedgerLine{}).
		Select("ledger_accounts.id AS account_id, ledger_accounts.code, ledger_accounts.name, ledger_accounts.type, " +
			"COALESCE(SUM(ledger_lines.debit), 0) AS total_debit, COALESCE(SUM(ledger_lines.credit), 0) AS total_credit").
		Joins("JOIN ledger_accounts ON ledger_accounts.id = ledger_lines.account_id").
		Group("ledger_accounts.id, ledger_accounts.code, ledger_accounts.name, ledger_accounts.type").
		Order("ledger_accounts.code ASC").
		Scan(&balances).Error
	return balances, err
}
