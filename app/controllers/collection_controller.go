package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/korefinance/kore/app/models"
	"github.com/korefinance/kore/app/repository"
	"github.com/korefinance/kore/internal/pkg/collections"
	"github.com/korefinance/kore/internal/pkg/middleware"
)

type collectionCreateRequest struct {
	GoalID    string          `json:"goal_id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Narrative string          `json:"narrative"`
}

// HandleCreateCollection initiates a provider debit toward a goal. A
// repeated X-Idempotency-Key returns the collection created the first
// time without touching the provider again.
func HandleCreateCollection(c *fiber.Ctx) error {
	var req collectionCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON body")
	}

	col, err := collections.GetService().Create(c.Context(), collections.CreateInput{
		OwnerRef:       middleware.OwnerRef(c),
		GoalID:         req.GoalID,
		Amount:         req.Amount,
		Currency:       req.Currency,
		Narrative:      req.Narrative,
		IdempotencyKey: c.Get("X-Idempotency-Key"),
	})
	if err != nil {
		switch {
		case errors.Is(err, models.ErrAmountNotPositive):
			return badRequest(c, "amount must be greater than 0")
		case errors.Is(err, collections.ErrGoalNotOwned):
			return notFound(c, "Goal not found")
		case errors.Is(err, collections.ErrGoalNotActive):
			return errorJSON(c, fiber.StatusConflict, "goal_not_active", "Goal is not accepting collections")
		default:
			return errorJSON(c, fiber.StatusBadGateway, "provider_error", "Failed to initiate collection")
		}
	}

	return c.Status(fiber.StatusCreated).JSON(col)
}

// HandleListCollections returns the calling owner's collections, with
// an optional ?status= filter.
func HandleListCollections(c *fiber.Ctx) error {
	ownerRef := middleware.OwnerRef(c)
	status := c.Query("status")
	page, pageSize, offset := parsePagination(c)

	repo := repository.GetGlobalFactory().GetCollectionRepository()
	cols, err := repo.ListByOwner(ownerRef, status, offset, pageSize)
	if err != nil {
		return internalError(c, "Failed to list collections")
	}
	total, err := repo.CountByOwner(ownerRef, status)
	if err != nil {
		return internalError(c, "Failed to count collections")
	}

	return c.JSON(listEnvelope(cols, total, page, pageSize))
}

// loadOwnedCollection fetches the collection and enforces ownership.
// Existence is not leaked across owners.
func loadOwnedCollection(c *fiber.Ctx) (*models.Collection, error) {
	col, err := repository.GetGlobalFactory().GetCollectionRepository().GetByID(c.Params("id"))
	if err != nil {
		if isNotFound(err) {
			return nil, notFound(c, "Collection not found")
		}
		return nil, internalError(c, "Failed to load collection")
	}
	if col.OwnerRef != middleware.OwnerRef(c) {
		return nil, notFound(c, "Collection not found")
	}
	return col, nil
}

// HandleGetCollection returns one collection of the calling owner.
func HandleGetCollection(c *fiber.Ctx) error {
	col, err := loadOwnedCollection(c)
	if col == nil {
		return err
	}
	return c.JSON(col)
}

// HandleCollectionStatus returns the minimal status view polled by
// clients waiting on settlement.
func HandleCollectionStatus(c *fiber.Ctx) error {
	col, err := loadOwnedCollection(c)
	if col == nil {
		return err
	}
	return c.JSON(fiber.Map{
		"id":               col.ID,
		"request_ref":      col.RequestRef,
		"status":           col.Status,
		"needs_validation": col.NeedsValidation(),
		"updated_at":       col.UpdatedAt,
	})
}

type collectionValidateRequest struct {
	OTP   string         `json:"otp"`
	Extra map[string]any `json:"extra"`
}

// HandleValidateCollection submits an OTP or challenge answer for a
// collection the provider flagged as needing validation.
func HandleValidateCollection(c *fiber.Ctx) error {
	col, err := loadOwnedCollection(c)
	if col == nil {
		return err
	}

	var req collectionValidateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON body")
	}

	updated, err := collections.GetService().ValidateCollection(c.Context(), col, req.OTP, req.Extra)
	if err != nil {
		if errors.Is(err, collections.ErrNotAwaitingValidation) {
			return errorJSON(c, fiber.StatusConflict, "not_awaiting_validation", "Collection does not require validation")
		}
		return errorJSON(c, fiber.StatusBadGateway, "provider_error", "Validation call failed")
	}

	return c.JSON(updated)
}

// HandleQueryCollectionStatus polls the provider and reconciles the
// answer through the same forward-only path webhooks take.
func HandleQueryCollectionStatus(c *fiber.Ctx) error {
	col, err := loadOwnedCollection(c)
	if col == nil {
		return err
	}

	updated, err := collections.GetService().QueryStatus(c.Context(), col)
	if err != nil {
		if errors.Is(err, collections.ErrNoReference) {
			return errorJSON(c, fiber.StatusConflict, "no_reference", "Collection has no provider reference to query")
		}
		return errorJSON(c, fiber.StatusBadGateway, "provider_error", "Status query failed")
	}

	return c.JSON(updated)
}
