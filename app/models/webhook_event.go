package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	WEBHOOK_STATUS_RECEIVED  = "RECEIVED"
	WEBHOOK_STATUS_PROCESSED = "PROCESSED"
	WEBHOOK_STATUS_FAILED    = "FAILED"
)

// WebhookEvent is the durable record of one inbound provider delivery.
// EventID is nullable; when present the (provider, event_id) pair is
// unique and carries the duplicate-delivery defense.
type WebhookEvent struct {
	ID          string     `gorm:"type:char(36);primaryKey" json:"id"`
	Provider    string     `gorm:"type:varchar(50);not null;index:ux_webhook_events_provider_event,unique,priority:1;index" json:"provider"`
	EventID     *string    `gorm:"type:varchar(64);index:ux_webhook_events_provider_event,unique,priority:2" json:"event_id,omitempty"`
	RequestRef  string     `gorm:"type:varchar(64);default:'';index" json:"request_ref"`
	Payload     JSONMap    `gorm:"type:json" json:"payload"`
	Signature   string     `gorm:"type:varchar(255);default:''" json:"signature"`
	Status      string     `gorm:"type:varchar(20);default:'RECEIVED';index" json:"status"`
	Error       string     `gorm:"type:text" json:"error"`
	ReceivedAt  time.Time  `gorm:"autoCreateTime;index" json:"received_at"`
	ProcessedAt *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ArchivedAt  *time.Time `gorm:"type:timestamp;default:null;index" json:"archived_at,omitempty"`
}

func (e *WebhookEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Status == "" {
		e.Status = WEBHOOK_STATUS_RECEIVED
	}
	return nil
}

// IsTerminal reports whether the event left RECEIVED.
func (e *WebhookEvent) IsTerminal() bool {
	return e.Status == WEBHOOK_STATUS_PROCESSED || e.Status == WEBHOOK_STATUS_FAILED
}

// EventIDValue returns the deduplication id or "" when absent.
func (e *WebhookEvent) EventIDValue() string {
	if e.EventID == nil {
		return ""
	}
	return *e.EventID
}
