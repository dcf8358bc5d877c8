package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	COLLECTION_STATUS_PENDING    = "PENDING"
	COLLECTION_STATUS_INITIATED  = "INITIATED"
	COLLECTION_STATUS_PROCESSING = "PROCESSING"
	COLLECTION_STATUS_SUCCESS    = "SUCCESS"
	COLLECTION_STATUS_FAILED     = "FAILED"
	COLLECTION_STATUS_CANCELLED  = "CANCELLED"
)

// Metadata keys written by the collection and webhook services.
const (
	MetaIdempotencyKey   = "idempotency_key"
	MetaNeedsValidation  = "needs_validation"
	MetaValidationFields = "validation_fields"
	MetaNormalizedStatus = "normalized_status"
	MetaWebhookPayload   = "webhook_payload"
	MetaSplit            = "split"
	MetaNarrative        = "narrative"
)

// Collection is one attempt to collect funds toward a goal. Its status
// moves forward only, through the reconciliation state machine.
type Collection struct {
	ID               string          `gorm:"type:char(36);primaryKey" json:"id"`
	OwnerRef         string          `gorm:"type:varchar(64);not null;index" json:"owner_ref" validate:"required,max=64"`
	GoalID           *string         `gorm:"type:char(36);index" json:"goal_id,omitempty"`
	AmountAllocation decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount_allocation"`
	Fee              decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"fee"`
	AmountTotal      decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount_total"`
	Currency         string          `gorm:"type:varchar(3);default:'NGN'" json:"currency" validate:"required,len=3"`
	Provider         string          `gorm:"type:varchar(50);default:'paywithaccount';index:idx_collections_status_provider,priority:2" json:"provider"`
	RequestRef       string          `gorm:"type:varchar(64);not null;uniqueIndex" json:"request_ref" validate:"required,max=64"`
	ProviderRef      string          `gorm:"type:varchar(64);default:''" json:"provider_ref"`
	Status           string          `gorm:"type:varchar(20);default:'PENDING';index:idx_collections_status_provider,priority:1" json:"status" validate:"oneof=PENDING INITIATED PROCESSING SUCCESS FAILED CANCELLED"`
	Narrative        string          `gorm:"type:varchar(255);default:''" json:"narrative" validate:"max=255"`
	RawRequest       JSONMap         `gorm:"type:json" json:"raw_request"`
	RawResponse      JSONMap         `gorm:"type:json" json:"raw_response"`
	Metadata         JSONMap         `gorm:"type:json" json:"metadata"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *Collection) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// BeforeSave enforces the split invariant on every write.
func (c *Collection) BeforeSave(tx *gorm.DB) error {
	if !c.AmountTotal.Equal(c.AmountAllocation.Add(c.Fee)) {
		return ErrCollectionTotalMismatch
	}
	return nil
}

func (c *Collection) Validate() error {
	if c.AmountAllocation.LessThanOrEqual(decimal.Zero) {
		return ErrAmountNotPositive
	}
	v := validator.New()

	return v.Struct(c)
}

// IsTerminal reports whether the collection reached a sink status.
func (c *Collection) IsTerminal() bool {
	return c.Status == COLLECTION_STATUS_SUCCESS || c.Status == COLLECTION_STATUS_FAILED
}

// NeedsValidation reports whether the provider asked for an OTP or
// challenge before the collection can settle.
func (c *Collection) NeedsValidation() bool {
	return c.Metadata.GetBool(MetaNeedsValidation)
}
