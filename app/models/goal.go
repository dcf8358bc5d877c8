package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	GOAL_STATUS_ACTIVE    = "ACTIVE"
	GOAL_STATUS_PAUSED    = "PAUSED"
	GOAL_STATUS_COMPLETED = "COMPLETED"
	GOAL_STATUS_CANCELLED = "CANCELLED"
)

// Goal tracks one savings target owned by a single user.
type Goal struct {
	ID           string          `gorm:"type:char(36);primaryKey" json:"id"`
	OwnerRef     string          `gorm:"type:varchar(64);not null;index" json:"owner_ref" validate:"required,max=64"`
	Name         string          `gorm:"type:varchar(120);not null" json:"name" validate:"required,min=1,max=120"`
	TargetAmount decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"target_amount"`
	Currency     string          `gorm:"type:varchar(3);default:'NGN'" json:"currency" validate:"required,len=3"`
	Status       string          `gorm:"type:varchar(20);default:'ACTIVE';index" json:"status" validate:"oneof=ACTIVE PAUSED COMPLETED CANCELLED"`
	Metadata     JSONMap         `gorm:"type:json" json:"metadata"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (g *Goal) BeforeCreate(tx *gorm.DB) error {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	if g.Status == "" {
		g.Status = GOAL_STATUS_ACTIVE
	}
	return nil
}

func (g *Goal) Validate() error {
	if g.TargetAmount.LessThanOrEqual(decimal.Zero) {
		return ErrGoalTargetNotPositive
	}
	v := validator.New()

	return v.Struct(g)
}

// CanPause reports whether the goal may move to PAUSED.
func (g *Goal) CanPause() bool {
	return g.Status == GOAL_STATUS_ACTIVE
}

// CanResume reports whether the goal may move back to ACTIVE.
func (g *Goal) CanResume() bool {
	return g.Status == GOAL_STATUS_PAUSED
}
