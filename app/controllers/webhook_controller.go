package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/korefinance/kore/internal/pkg/webhook"
)

// signatureHeaders are the header names providers have been observed to
// deliver signatures under, checked in order.
var signatureHeaders = []string{
	"X-PWA-Signature",
	"X-Webhook-Signature",
	"X-Signature",
	"Signature",
}

func extractSignature(c *fiber.Ctx) string {
	for _, h := range signatureHeaders {
		if sig := c.Get(h); sig != "" {
			return sig
		}
	}
	return ""
}

// HandleProviderWebhook ingests one provider delivery. Once the event
// is durably stored the endpoint acknowledges with 200 regardless of
// the processing outcome, so the provider never retries on our internal
// failures. Only a bad signature refuses the delivery outright.
func HandleProviderWebhook(c *fiber.Ctx) error {
	svc := webhook.GetService()

	// Provider is left empty; the service defaults it to the one
	// configured collection provider.
	event, err := svc.ReceiveEvent(c.Context(), webhook.ReceiveInput{
		Body:      c.Body(),
		Signature: extractSignature(c),
	})
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			return errorJSON(c, fiber.StatusUnauthorized, "invalid_signature", "Webhook signature verification failed")
		}
		return internalError(c, "Failed to store webhook event")
	}

	return c.JSON(fiber.Map{
		"status":   "received",
		"event_id": event.ID,
	})
}
