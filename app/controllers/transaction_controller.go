package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/korefinance/kore/app/repository"
	"github.com/korefinance/kore/internal/pkg/middleware"
)

// HandleListTransactions returns the calling owner's ledger lines,
// newest first, filtered by ?type=, ?status= and ?goal_id=.
func HandleListTransactions(c *fiber.Ctx) error {
	ownerRef := middleware.OwnerRef(c)
	filter := repository.TransactionFilter{
		GoalID: c.Query("goal_id"),
		Type:   c.Query("type"),
		Status: c.Query("status"),
	}
	page, pageSize, offset := parsePagination(c)

	repo := repository.GetGlobalFactory().GetTransactionRepository()
	txs, err := repo.ListByOwner(ownerRef, filter, offset, pageSize)
	if err != nil {
		return internalError(c, "Failed to list transactions")
	}
	total, err := repo.CountByOwner(ownerRef, filter)
	if err != nil {
		return internalError(c, "Failed to count transactions")
	}

	return c.JSON(listEnvelope(txs, total, page, pageSize))
}
