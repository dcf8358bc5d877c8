package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/korefinance/kore/app/models"
	"github.com/korefinance/kore/app/repository"
	"github.com/korefinance/kore/internal/pkg/collections"
	"github.com/korefinance/kore/internal/pkg/jobqueue"
	"github.com/korefinance/kore/internal/pkg/webhook"
)

// HandleAdminListWebhookEvents lists stored deliveries for operators,
// filtered by ?provider= and ?status=.
func HandleAdminListWebhookEvents(c *fiber.Ctx) error {
	provider := c.Query("provider")
	status := strings.ToUpper(c.Query("status"))
	page, pageSize, offset := parsePagination(c)

	repo := repository.GetGlobalFactory().GetWebhookEventRepository()
	events, err := repo.List(provider, status, offset, pageSize)
	if err != nil {
		return internalError(c, "Failed to list webhook events")
	}
	total, err := repo.Count(provider, status)
	if err != nil {
		return internalError(c, "Failed to count webhook events")
	}

	return c.JSON(listEnvelope(events, total, page, pageSize))
}

// HandleAdminGetWebhookEvent returns one delivery including its raw
// payload and error text.
func HandleAdminGetWebhookEvent(c *fiber.Ctx) error {
	event, err := repository.GetGlobalFactory().GetWebhookEventRepository().GetByID(c.Params("id"))
	if err != nil {
		if isNotFound(err) {
			return notFound(c, "Webhook event not found")
		}
		return internalError(c, "Failed to load webhook event")
	}
	return c.JSON(event)
}

// HandleAdminRequeueWebhookEvent reopens a FAILED delivery for another
// processing attempt.
func HandleAdminRequeueWebhookEvent(c *fiber.Ctx) error {
	event, err := webhook.GetService().RequeueEvent(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, webhook.ErrNotRequeueable) {
			return errorJSON(c, fiber.StatusConflict, "not_requeueable", "Only failed webhook events can be requeued")
		}
		if isNotFound(err) {
			return notFound(c, "Webhook event not found")
		}
		return internalError(c, "Failed to requeue webhook event")
	}
	return c.JSON(event)
}

type overrideRequest struct {
	Status string `json:"status"`
}

// HandleAdminOverrideCollection forces a collection status through the
// override path. Rank checks are bypassed; cascades, ledger posting and
// events still run.
func HandleAdminOverrideCollection(c *fiber.Ctx) error {
	var req overrideRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON body")
	}
	target := strings.ToUpper(req.Status)
	switch target {
	case models.COLLECTION_STATUS_PENDING, models.COLLECTION_STATUS_INITIATED,
		models.COLLECTION_STATUS_PROCESSING, models.COLLECTION_STATUS_SUCCESS,
		models.COLLECTION_STATUS_FAILED:
	default:
		return badRequest(c, "status must be one of PENDING, INITIATED, PROCESSING, SUCCESS, FAILED")
	}

	col, err := collections.GetService().Override(c.Context(), c.Params("id"), target)
	if err != nil {
		if errors.Is(err, collections.ErrCollectionNotFound) || isNotFound(err) {
			return notFound(c, "Collection not found")
		}
		return internalError(c, "Failed to override collection status")
	}
	return c.JSON(col)
}

// HandleAdminQueueStats reports job counts by status plus the live
// queue and processing list depths.
func HandleAdminQueueStats(c *fiber.Ctx) error {
	mgr := jobqueue.GetManager()
	q := mgr.GetQueue()

	stats, err := q.GetJobStats(c.Context())
	if err != nil {
		return internalError(c, "Failed to read job stats")
	}
	queued, err := q.GetQueueSize(c.Context())
	if err != nil {
		return internalError(c, "Failed to read queue size")
	}
	processing, err := q.GetProcessingSize(c.Context())
	if err != nil {
		return internalError(c, "Failed to read processing size")
	}

	return c.JSON(fiber.Map{
		"running":        mgr.IsRunning(),
		"queue_depth":    queued,
		"processing":     processing,
		"jobs_by_status": stats,
	})
}
