package repository

import (
	"github.com/korefinance/kore/app/models"
	"gorm.io/gorm"
)

// goalRepository implements the GoalRepository interface
type goalRepository struct {
	db *gorm.DB
}

// NewGoalRepository creates a new goal repository instance
func NewGoalRepository(db *gorm.DB) GoalRepository {
	return &goalRepository{db: db}
}

// Create creates a new goal in the database
func (r *goalRepository) Create(goal *models.Goal) error {
	return r.db.Create(goal).Error
}

// GetByID retrieves a goal by its ID
func (r *goalRepository) GetByID(id string) (*models.Goal, error) {
	var goal models.Goal
	err := r.db.Where("id = ?", id).First(&goal).Error
	if err != nil {
		return nil, err
	}
	return &goal, nil
}

// GetForOwner retrieves a goal by ID scoped to its owner
func (r *goalRepository) GetForOwner(id, ownerRef string) (*models.Goal, error) {
	var goal models.Goal
	err := r.db.Where("id = ? AND owner_ref = ?", id, ownerRef).First(&goal).Error
	if err != nil {
		return nil, err
	}
	return &goal, nil
}

// Update updates an existing goal in the database
func (r *goalRepository) Update(goal *models.Goal) error {
	return r.db.Save(goal).Error
}

// UpdateStatus sets only the status column
func (r *goalRepository) UpdateStatus(id, status string) error {
	return r.db.Model(&models.Goal{}).Where("id = ?", id).Update("status", status).Error
}

// ListByOwner retrieves a paginated list of an owner's goals
func (r *goalRepository) ListByOwner(ownerRef string, offset, limit int) ([]models.Goal, error) {
	var goals []models.Goal
	err := r.db.Where("owner_ref = ?", ownerRef).
		Order("created_at DESC").Offset(offset).Limit(limit).Find(&goals).Error
	return goals, err
}

// CountByOwner returns the number of goals an owner has
func (r *goalRepository) CountByOwner(ownerRef string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Goal{}).Where("owner_ref = ?", ownerRef).Count(&count).Error
	return count, err
}
