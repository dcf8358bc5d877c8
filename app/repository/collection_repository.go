package repository

import (
	"github.com/korefinance/kore/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// collectionRepository implements the CollectionRepository interface
type collectionRepository struct {
	db *gorm.DB
}

// NewCollectionRepository creates a new collection repository instance
func NewCollectionRepository(db *gorm.DB) CollectionRepository {
	return &collectionRepository{db: db}
}

// Create creates a new collection in the database
func (r *collectionRepository) Create(collection *models.Collection) error {
	return r.db.Create(collection).Error
}

// GetByID retrieves a collection by its ID
func (r *collectionRepository) GetByID(id string) (*models.Collection, error) {
	var collection models.Collection
	err := r.db.Where("id = ?", id).First(&collection).Error
	if err != nil {
		return nil, err
	}
	return &collection, nil
}

// GetByRequestRef retrieves a collection by its unique request reference
func (r *collectionRepository) GetByRequestRef(requestRef string) (*models.Collection, error) {
	var collection models.Collection
	err := r.db.Where("request_ref = ?", requestRef).First(&collection).Error
	if err != nil {
		return nil, err
	}
	return &collection, nil
}

// GetByRequestRefForUpdate reloads a collection with a row lock. Used
// inside reconciliation transactions to re-read current state after a
// guarded update lost its race.
func (r *collectionRepository) GetByRequestRefForUpdate(requestRef string) (*models.Collection, error) {
	var collection models.Collection
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("request_ref = ?", requestRef).First(&collection).Error
	if err != nil {
		return nil, err
	}
	return &collection, nil
}

// GetByIdempotencyKey retrieves an owner's collection created under the
// given client idempotency key, if any.
func (r *collectionRepository) GetByIdempotencyKey(ownerRef, key string) (*models.Collection, error) {
	var collection models.Collection
	err := r.db.Where("owner_ref = ? AND metadata->>'$.idempotency_key' = ?", ownerRef, key).
		Order("created_at DESC").First(&collection).Error
	if err != nil {
		return nil, err
	}
	return &collection, nil
}

// Update saves the full collection row
func (r *collectionRepository) Update(collection *models.Collection) error {
	return r.db.Save(collection).Error
}

// UpdateFields applies a partial column update without status guarding
func (r *collectionRepository) UpdateFields(id string, fields map[string]any) error {
	return r.db.Model(&models.Collection{}).Where("id = ?", id).Updates(fields).Error
}

// UpdateStatusGuarded applies fields only while the row still holds
// expectedStatus. Zero rows affected means another writer moved the
// collection first.
func (r *collectionRepository) UpdateStatusGuarded(id, expectedStatus string, fields map[string]any) (int64, error) {
	res := r.db.Model(&models.Collection{}).
		Where("id = ? AND status = ?", id, expectedStatus).
		Updates(fields)
	return res.RowsAffected, res.Error
}

// ListByOwner retrieves an owner's collections, optionally filtered by status
func (r *collectionRepository) ListByOwner(ownerRef, status string, offset, limit int) ([]models.Collection, error) {
	var collections []models.Collection
	q := r.db.Where("owner_ref = ?", ownerRef)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&collections).Error
	return collections, err
}

// CountByOwner counts an owner's collections, optionally filtered by status
func (r *collectionRepository) CountByOwner(ownerRef, status string) (int64, error) {
	var count int64
	q := r.db.Model(&models.Collection{}).Where("owner_ref = ?", ownerRef)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Count(&count).Error
	return count, err
}

// ListByGoal returns every collection attached to a goal
func (r *collectionRepository) ListByGoal(goalID string) ([]models.Collection, error) {
	var collections []models.Collection
	err := r.db.Where("goal_id = ?", goalID).Order("created_at DESC").Find(&collections).Error
	return collections, err
}
