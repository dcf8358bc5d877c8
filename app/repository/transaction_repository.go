package repository

import (
	"github.com/korefinance/kore/app/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// transactionRepository implements the TransactionRepository interface
type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new transaction repository instance
func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

// Create appends a new transaction row
func (r *transactionRepository) Create(transaction *models.Transaction) error {
	return r.db.Create(transaction).Error
}

// GetByID retrieves a transaction by its ID
func (r *transactionRepository) GetByID(id string) (*models.Transaction, error) {
	var transaction models.Transaction
	err := r.db.Where("id = ?", id).First(&transaction).Error
	if err != nil {
		return nil, err
	}
	return &transaction, nil
}

func (r *transactionRepository) filtered(ownerRef string, filter TransactionFilter) *gorm.DB {
	q := r.db.Model(&models.Transaction{}).Where("owner_ref = ?", ownerRef)
	if filter.GoalID != "" {
		q = q.Where("goal_id = ?", filter.GoalID)
	}
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	return q
}

// ListByOwner retrieves a paginated, filtered list of an owner's transactions
func (r *transactionRepository) ListByOwner(ownerRef string, filter TransactionFilter, offset, limit int) ([]models.Transaction, error) {
	var transactions []models.Transaction
	err := r.filtered(ownerRef, filter).
		Order("occurred_at DESC").Offset(offset).Limit(limit).Find(&transactions).Error
	return transactions, err
}

// CountByOwner returns the number of matching transactions an owner has
func (r *transactionRepository) CountByOwner(ownerRef string, filter TransactionFilter) (int64, error) {
	var count int64
	err := r.filtered(ownerRef, filter).Count(&count).Error
	return count, err
}

// ListByCollection returns every transaction derived from a collection
func (r *transactionRepository) ListByCollection(collectionID string) ([]models.Transaction, error) {
	var transactions []models.Transaction
	err := r.db.Where("collection_id = ?", collectionID).Order("created_at ASC").Find(&transactions).Error
	return transactions, err
}

// CascadePendingByCollection moves every PENDING transaction of the
// collection to toStatus. Rows already settled are left untouched so a
// replayed webhook cannot flip them.
func (r *transactionRepository) CascadePendingByCollection(collectionID, toStatus, providerRef string) (int64, error) {
	fields := map[string]any{"status": toStatus}
	if providerRef != "" {
		fields["provider_ref"] = providerRef
	}
	res := r.db.Model(&models.Transaction{}).
		Where("collection_id = ? AND status = ?", collectionID, models.TRANSACTION_STATUS_PENDING).
		Updates(fields)
	return res.RowsAffected, res.Error
}

// SumForGoal sums transaction amounts for a goal, filtered by type and
// status when non-empty.
func (r *transactionRepository) SumForGoal(goalID, txType, status string) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal
	}
	q := r.db.Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("goal_id = ?", goalID)
	if txType != "" {
		q = q.Where("type = ?", txType)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Scan(&row).Error
	return row.Total, err
}

// CountForGoal counts a goal's transactions, filtered by status when
// non-empty.
func (r *transactionRepository) CountForGoal(goalID, status string) (int64, error) {
	var count int64
	q := r.db.Model(&models.Transaction{}).Where("goal_id = ?", goalID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Count(&count).Error
	return count, err
}
