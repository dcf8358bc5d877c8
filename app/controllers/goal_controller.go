package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/korefinance/kore/app/models"
	"github.com/korefinance/kore/app/repository"
	"github.com/korefinance/kore/internal/pkg/collections"
	"github.com/korefinance/kore/internal/pkg/middleware"
)

type goalCreateRequest struct {
	Name         string          `json:"name"`
	TargetAmount decimal.Decimal `json:"target_amount"`
	Currency     string          `json:"currency"`
	Metadata     models.JSONMap  `json:"metadata"`
}

// HandleCreateGoal creates a savings goal for the calling owner.
func HandleCreateGoal(c *fiber.Ctx) error {
	var req goalCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON body")
	}

	goal := &models.Goal{
		OwnerRef:     middleware.OwnerRef(c),
		Name:         req.Name,
		TargetAmount: req.TargetAmount,
		Currency:     req.Currency,
		Metadata:     req.Metadata,
	}
	if goal.Currency == "" {
		goal.Currency = "NGN"
	}
	goal.Status = models.GOAL_STATUS_ACTIVE

	if err := goal.Validate(); err != nil {
		return badRequest(c, validationMessage(err))
	}

	if err := repository.GetGlobalFactory().GetGoalRepository().Create(goal); err != nil {
		return internalError(c, "Failed to create goal")
	}

	return c.Status(fiber.StatusCreated).JSON(goal)
}

// HandleListGoals returns the calling owner's goals, newest first.
func HandleListGoals(c *fiber.Ctx) error {
	ownerRef := middleware.OwnerRef(c)
	page, pageSize, offset := parsePagination(c)

	repo := repository.GetGlobalFactory().GetGoalRepository()
	goals, err := repo.ListByOwner(ownerRef, offset, pageSize)
	if err != nil {
		return internalError(c, "Failed to list goals")
	}
	total, err := repo.CountByOwner(ownerRef)
	if err != nil {
		return internalError(c, "Failed to count goals")
	}

	return c.JSON(listEnvelope(goals, total, page, pageSize))
}

// loadOwnedGoal fetches the goal and enforces ownership; callers get a
// nil goal after the response has been written.
func loadOwnedGoal(c *fiber.Ctx) (*models.Goal, error) {
	goal, err := repository.GetGlobalFactory().GetGoalRepository().GetForOwner(c.Params("id"), middleware.OwnerRef(c))
	if err != nil {
		if isNotFound(err) {
			return nil, notFound(c, "Goal not found")
		}
		return nil, internalError(c, "Failed to load goal")
	}
	return goal, nil
}

// HandleGetGoal returns one goal of the calling owner.
func HandleGetGoal(c *fiber.Ctx) error {
	goal, err := loadOwnedGoal(c)
	if goal == nil {
		return err
	}
	return c.JSON(goal)
}

type goalUpdateRequest struct {
	Name         *string          `json:"name"`
	TargetAmount *decimal.Decimal `json:"target_amount"`
	Metadata     models.JSONMap   `json:"metadata"`
}

// HandleUpdateGoal patches name, target amount or metadata. Status
// changes go through the pause/resume endpoints only.
func HandleUpdateGoal(c *fiber.Ctx) error {
	goal, err := loadOwnedGoal(c)
	if goal == nil {
		return err
	}

	var req goalUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON body")
	}

	if req.Name != nil {
		goal.Name = *req.Name
	}
	if req.TargetAmount != nil {
		goal.TargetAmount = *req.TargetAmount
	}
	if req.Metadata != nil {
		goal.Metadata = req.Metadata
	}

	if err := goal.Validate(); err != nil {
		return badRequest(c, validationMessage(err))
	}

	if err := repository.GetGlobalFactory().GetGoalRepository().Update(goal); err != nil {
		return internalError(c, "Failed to update goal")
	}

	return c.JSON(goal)
}

// HandlePauseGoal moves an ACTIVE goal to PAUSED. Paused goals refuse
// new collections but keep reconciling in-flight ones.
func HandlePauseGoal(c *fiber.Ctx) error {
	return transitionGoal(c, models.GOAL_STATUS_PAUSED)
}

// HandleResumeGoal moves a PAUSED goal back to ACTIVE.
func HandleResumeGoal(c *fiber.Ctx) error {
	return transitionGoal(c, models.GOAL_STATUS_ACTIVE)
}

func transitionGoal(c *fiber.Ctx, target string) error {
	goal, err := loadOwnedGoal(c)
	if goal == nil {
		return err
	}

	allowed := false
	switch target {
	case models.GOAL_STATUS_PAUSED:
		allowed = goal.CanPause()
	case models.GOAL_STATUS_ACTIVE:
		allowed = goal.CanResume()
	}
	if !allowed {
		return errorJSON(c, fiber.StatusConflict, "invalid_transition", "Goal status "+goal.Status+" cannot move to "+target)
	}

	if err := repository.GetGlobalFactory().GetGoalRepository().UpdateStatus(goal.ID, target); err != nil {
		return internalError(c, "Failed to update goal status")
	}
	goal.Status = target

	return c.JSON(goal)
}

// HandleGoalSummary returns the goal with its settled-transaction
// aggregates and progress percentage.
func HandleGoalSummary(c *fiber.Ctx) error {
	summary, err := collections.GetService().GoalSummary(c.Params("id"), middleware.OwnerRef(c))
	if err != nil {
		if isNotFound(err) {
			return notFound(c, "Goal not found")
		}
		return internalError(c, "Failed to build goal summary")
	}
	return c.JSON(summary)
}
