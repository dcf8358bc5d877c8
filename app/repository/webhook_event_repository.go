package repository

import (
	"time"

	"github.com/korefinance/kore/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// webhookEventRepository implements the WebhookEventRepository interface
type webhookEventRepository struct {
	db *gorm.DB
}

// NewWebhookEventRepository creates a new webhook event repository instance
func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepository{db: db}
}

// CreateIfNotExists inserts the event. When another delivery with the
// same (provider, event_id) already landed, the insert is a silent
// no-op and the stored winner is fetched and returned instead. Events
// without an event_id always insert; they cannot collide.
func (r *webhookEventRepository) CreateIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	res := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(event)
	if res.Error != nil {
		return false, nil, res.Error
	}
	if res.RowsAffected > 0 {
		return true, event, nil
	}

	var stored models.WebhookEvent
	err := r.db.Where("provider = ? AND event_id = ?", event.Provider, event.EventID).
		First(&stored).Error
	if err != nil {
		return false, nil, err
	}
	return false, &stored, nil
}

// GetByID retrieves a webhook event by its ID
func (r *webhookEventRepository) GetByID(id string) (*models.WebhookEvent, error) {
	var event models.WebhookEvent
	err := r.db.Where("id = ?", id).First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// MarkProcessed transitions a RECEIVED event to PROCESSED. Returns
// false when the event already left RECEIVED, so concurrent workers
// settle on exactly one winner.
func (r *webhookEventRepository) MarkProcessed(id string) (bool, error) {
	now := time.Now()
	res := r.db.Model(&models.WebhookEvent{}).
		Where("id = ? AND status = ?", id, models.WEBHOOK_STATUS_RECEIVED).
		Updates(map[string]any{
			"status":       models.WEBHOOK_STATUS_PROCESSED,
			"processed_at": &now,
			"error":        "",
		})
	return res.RowsAffected > 0, res.Error
}

// MarkFailed transitions a RECEIVED event to FAILED with the error
// message. Same single-winner semantics as MarkProcessed.
func (r *webhookEventRepository) MarkFailed(id, errMsg string) (bool, error) {
	now := time.Now()
	res := r.db.Model(&models.WebhookEvent{}).
		Where("id = ? AND status = ?", id, models.WEBHOOK_STATUS_RECEIVED).
		Updates(map[string]any{
			"status":       models.WEBHOOK_STATUS_FAILED,
			"processed_at": &now,
			"error":        errMsg,
		})
	return res.RowsAffected > 0, res.Error
}

// ResetToReceived moves a FAILED event back to RECEIVED so it can be
// processed again. The guard on the current status keeps two operators
// from resetting the same event twice.
func (r *webhookEventRepository) ResetToReceived(id string) (bool, error) {
	res := r.db.Model(&models.WebhookEvent{}).
		Where("id = ? AND status = ?", id, models.WEBHOOK_STATUS_FAILED).
		Updates(map[string]any{
			"status":       models.WEBHOOK_STATUS_RECEIVED,
			"processed_at": nil,
			"error":        "",
		})
	return res.RowsAffected > 0, res.Error
}

// List retrieves webhook events newest first, optionally filtered by
// provider and status
func (r *webhookEventRepository) List(provider, status string, offset, limit int) ([]models.WebhookEvent, error) {
	var events []models.WebhookEvent
	q := r.db.Model(&models.WebhookEvent{})
	if provider != "" {
		q = q.Where("provider = ?", provider)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Order("received_at DESC").Offset(offset).Limit(limit).Find(&events).Error
	return events, err
}

// Count counts webhook events, optionally filtered by provider and status
func (r *webhookEventRepository) Count(provider, status string) (int64, error) {
	var count int64
	q := r.db.Model(&models.WebhookEvent{})
	if provider != "" {
		q = q.Where("provider = ?", provider)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Count(&count).Error
	return count, err
}

// ListArchivable returns processed or failed events received before
// cutoff that have not been archived yet
func (r *webhookEventRepository) ListArchivable(cutoff time.Time, limit int) ([]models.WebhookEvent, error) {
	var events []models.WebhookEvent
	err := r.db.Where("status IN ? AND received_at < ? AND archived_at IS NULL",
		[]string{models.WEBHOOK_STATUS_PROCESSED, models.WEBHOOK_STATUS_FAILED}, cutoff).
		Order("received_at ASC").Limit(limit).Find(&events).Error
	return events, err
}

// MarkArchived stamps archived_at on the given events
func (r *webhookEventRepository) MarkArchived(ids []string, archivedAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.Model(&models.WebhookEvent{}).
		Where("id IN ?", ids).
		Update("archived_at", &archivedAt).Error
}
