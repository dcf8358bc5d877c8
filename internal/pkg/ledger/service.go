// Package ledger posts double-entry journal entries for settled
// collections. Every entry balances, and posting is keyed by the
// collection request_ref so repeated webhook deliveries write at most
// one entry.
package ledger

import (
	"errors"
	"fmt"

	"github.com/korefinance/kore/app/models"
	"github.com/korefinance/kore/app/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Chart of accounts used by collection postings.
const (
	AccountClearing       = "1000" // funds held at the provider, not yet allocated
	AccountPartnerPayable = "2000" // savings owed to goal owners
	AccountRevenue        = "4000" // fee income
)

var ErrUnbalancedEntry = errors.New("journal entry debits and credits differ")

// EnsureChartOfAccounts creates the Kore accounts on first use. Safe to
// call on every startup.
func EnsureChartOfAccounts(repo repository.LedgerRepository) error {
	accounts := []struct {
		code, name, accountType string
	}{
		{AccountClearing, "Provider Clearing", models.ACCOUNT_TYPE_ASSET},
		{AccountPartnerPayable, "Partner Payable", models.ACCOUNT_TYPE_LIABILITY},
		{AccountRevenue, "Kore Revenue", models.ACCOUNT_TYPE_INCOME},
	}
	for _, a := range accounts {
		if _, err := repo.EnsureAccount(a.code, a.name, a.accountType); err != nil {
			return fmt.Errorf("ensure account %s: %w", a.code, err)
		}
	}
	return nil
}

// PostCollectionSuccess writes the journal entry for one settled
// collection: debit clearing with the gross amount, credit payable with
// the allocation, credit revenue with the fee. A zero fee drops the
// revenue line. posted reports whether this call created the entry;
// callers run this inside the same database transaction as the status
// update so a rollback takes the posting with it.
func PostCollectionSuccess(repo repository.LedgerRepository, col *models.Collection) (entry *models.JournalEntry, posted bool, err error) {
	existing, err := repo.GetEntryByReference(col.RequestRef)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("lookup journal entry %s: %w", col.RequestRef, err)
	}

	if !col.AmountTotal.Equal(col.AmountAllocation.Add(col.Fee)) {
		return nil, false, ErrUnbalancedEntry
	}

	clearing, err := repo.EnsureAccount(AccountClearing, "Provider Clearing", models.ACCOUNT_TYPE_ASSET)
	if err != nil {
		return nil, false, err
	}
	payable, err := repo.EnsureAccount(AccountPartnerPayable, "Partner Payable", models.ACCOUNT_TYPE_LIABILITY)
	if err != nil {
		return nil, false, err
	}

	lines := []models.LedgerLine{
		{AccountID: clearing.ID, Debit: col.AmountTotal},
		{AccountID: payable.ID, Credit: col.AmountAllocation},
	}
	if col.Fee.GreaterThan(decimal.Zero) {
		revenue, err := repo.EnsureAccount(AccountRevenue, "Kore Revenue", models.ACCOUNT_TYPE_INCOME)
		if err != nil {
			return nil, false, err
		}
		lines = append(lines, models.LedgerLine{AccountID: revenue.ID, Credit: col.Fee})
	}

	entry = &models.JournalEntry{
		Reference: col.RequestRef,
		Memo:      fmt.Sprintf("collection %s settled", col.ID),
		Lines:     lines,
	}
	if err := repo.CreateEntry(entry); err != nil {
		// Lost a posting race on the unique reference; the winner's
		// entry is the one that counts.
		if existing, fetchErr := repo.GetEntryByReference(col.RequestRef); fetchErr == nil {
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("create journal entry: %w", err)
	}
	return entry, true, nil
}
