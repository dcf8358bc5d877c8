// Package webhook ingests provider deliveries: verify the signature,
// deduplicate by event id, persist the raw event, then drive it
// through the collection reconciliation so each stored event leaves
// RECEIVED exactly once.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/korefinance/kore/app/models"
	"github.com/korefinance/kore/app/repository"
	"github.com/korefinance/kore/internal/pkg/collections"
	"github.com/korefinance/kore/internal/pkg/env"
	"github.com/korefinance/kore/internal/pkg/idempotency"
	"github.com/korefinance/kore/internal/pkg/metrics"
	"github.com/korefinance/kore/internal/pkg/payload"
	"github.com/korefinance/kore/internal/pkg/provider"
)

// ErrInvalidSignature rejects a delivery before anything is stored.
// The boundary maps it to 401; every failure after storage still
// acknowledges the receipt and lands on the event row instead.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// ErrNotRequeueable reports a requeue on an event that is not FAILED.
var ErrNotRequeueable = errors.New("only failed webhook events can be requeued")

// CollectionUpdater is the slice of the collections service the
// processor drives.
type CollectionUpdater interface {
	UpdateFromWebhook(ctx context.Context, requestRef, providerRef, newStatus string, payload map[string]any, allowOverride bool) (*models.Collection, error)
}

// Service carries one delivery from raw bytes to a terminal
// WebhookEvent.
type Service struct {
	repos       *repository.Repositories
	checker     *idempotency.Checker
	locker      *idempotency.Locker
	collections CollectionUpdater

	// Dispatch hands a stored event id to the job queue and reports
	// whether it was enqueued. Nil, or returning false, falls back to
	// inline processing before the receipt returns.
	Dispatch func(eventID string) bool
}

// NewService wires the webhook service. Dispatch is left nil; the
// caller sets it once a job queue is running.
func NewService(repos *repository.Repositories, checker *idempotency.Checker, locker *idempotency.Locker, updater CollectionUpdater) *Service {
	return &Service{repos: repos, checker: checker, locker: locker, collections: updater}
}

// ReceiveInput is one raw delivery. RequestRef and EventID override the
// payload extraction when the caller already knows them out-of-band.
type ReceiveInput struct {
	Provider   string
	Body       []byte
	Signature  string
	RequestRef string
	EventID    string
}

// ReceiveEvent verifies, deduplicates and persists a delivery, then
// dispatches processing. A duplicate delivery returns the stored row
// untouched. Processing failures never fail the receipt; they are
// recorded on the event for later inspection.
func (s *Service) ReceiveEvent(ctx context.Context, in ReceiveInput) (*models.WebhookEvent, error) {
	if in.Provider == "" {
		in.Provider = collections.ProviderName
	}

	if !VerifySignature(in.Body, in.Signature, env.GetEnv("PWA_WEBHOOK_SECRET", "")) {
		metrics.RecordWebhookReceived(in.Provider, "rejected")
		return nil, ErrInvalidSignature
	}

	// An unparseable body is still stored; processing will fail the
	// event terminally with the missing request_ref.
	var body map[string]any
	if len(in.Body) > 0 {
		if err := json.Unmarshal(in.Body, &body); err != nil {
			log.Printf("webhook: unparseable %s payload, storing empty body: %v", in.Provider, err)
		}
	}
	if body == nil {
		body = map[string]any{}
	}

	requestRef := in.RequestRef
	if requestRef == "" {
		requestRef = payload.ExtractRequestRef(body)
	}
	eventID := in.EventID
	if eventID == "" {
		eventID = payload.ExtractEventID(body)
	}

	event := &models.WebhookEvent{
		Provider:   in.Provider,
		RequestRef: requestRef,
		Payload:    models.JSONMap(body),
		Signature:  in.Signature,
	}
	if eventID != "" {
		event.EventID = &eventID
	}

	created, stored, err := s.repos.WebhookEvent.CreateIfNotExists(event)
	if err != nil {
		metrics.RecordWebhookReceived(in.Provider, "error")
		return nil, fmt.Errorf("store webhook event: %w", err)
	}
	if !created {
		log.Printf("webhook: duplicate delivery for event_id %s, returning event %s", eventID, stored.ID)
		metrics.RecordWebhookReceived(in.Provider, "duplicate")
		return stored, nil
	}
	metrics.RecordWebhookReceived(in.Provider, "accepted")

	if s.Dispatch != nil && s.Dispatch(stored.ID) {
		log.Printf("webhook: event %s enqueued for processing", stored.ID)
		return stored, nil
	}

	processed, err := s.ProcessEvent(ctx, stored.ID)
	if err != nil {
		log.Printf("webhook: inline processing of event %s failed: %v", stored.ID, err)
		return stored, nil
	}
	return processed, nil
}

// ProcessEvent drives a stored event through the collection update and
// moves it out of RECEIVED exactly once. Business failures are terminal
// and recorded on the event; only infrastructure errors (event not
// loadable, mark not persistable) return an error, so the job layer
// retries exactly the attempts that might still succeed.
func (s *Service) ProcessEvent(ctx context.Context, eventID string) (*models.WebhookEvent, error) {
	start := time.Now()

	event, err := s.repos.WebhookEvent.GetByID(eventID)
	if err != nil {
		return nil, fmt.Errorf("load webhook event %s: %w", eventID, err)
	}
	if event.IsTerminal() {
		log.Printf("webhook: event %s already %s, skipping", event.ID, event.Status)
		metrics.RecordWebhookProcessed(event.Provider, "skipped", time.Since(start).Seconds())
		return event, nil
	}
	if result, hit := s.checker.GetCached(ctx, event.EventIDValue()); hit {
		log.Printf("webhook: event_id %s already handled (%s), skipping event %s", event.EventIDValue(), result, event.ID)
		metrics.RecordWebhookProcessed(event.Provider, "skipped", time.Since(start).Seconds())
		return event, nil
	}

	body := map[string]any(event.Payload)
	requestRef := event.RequestRef
	if requestRef == "" {
		requestRef = payload.ExtractRequestRef(body)
	}
	if requestRef == "" {
		return s.markFailed(ctx, event, "could not extract request_ref from webhook payload", start)
	}

	newStatus := payload.ExtractStatus(body)
	if newStatus == "" {
		log.Printf("webhook: no status in event %s, defaulting to pending", event.ID)
		newStatus = "pending"
	}
	providerRef := payload.ExtractProviderRef(body)

	// Lock failure is non-fatal: the guarded collection update still
	// protects against a lost race, just without serialization.
	lease, ok := s.locker.Acquire(ctx, "webhook:"+requestRef, idempotency.DefaultLockTTL, idempotency.DefaultLockWait)
	if ok {
		defer lease.Release(ctx)
	} else {
		log.Printf("webhook: no lock for %s, processing unlocked", requestRef)
	}

	if _, err := s.collections.UpdateFromWebhook(ctx, requestRef, providerRef, newStatus, body, false); err != nil {
		return s.markFailed(ctx, event, failureMessage(err), start)
	}

	won, err := s.repos.WebhookEvent.MarkProcessed(event.ID)
	if err != nil {
		return nil, fmt.Errorf("mark webhook event %s processed: %w", event.ID, err)
	}
	if !won {
		log.Printf("webhook: event %s left RECEIVED concurrently, not marking", event.ID)
		metrics.RecordWebhookProcessed(event.Provider, "skipped", time.Since(start).Seconds())
		return s.repos.WebhookEvent.GetByID(event.ID)
	}

	now := time.Now()
	event.Status = models.WEBHOOK_STATUS_PROCESSED
	event.ProcessedAt = &now
	event.Error = ""
	s.checker.Cache(ctx, event.EventIDValue(), models.WEBHOOK_STATUS_PROCESSED, 0)
	metrics.RecordWebhookProcessed(event.Provider, "processed", time.Since(start).Seconds())
	log.Printf("webhook: event %s processed for %s", event.ID, requestRef)
	return event, nil
}

// RequeueEvent reopens a FAILED event for another attempt: the row goes
// back to RECEIVED, the cached result is dropped, and the event is
// dispatched again (or processed inline when no queue is running). The
// exactly-once guard protects concurrent workers within one attempt; an
// operator reset deliberately starts a new one.
func (s *Service) RequeueEvent(ctx context.Context, eventID string) (*models.WebhookEvent, error) {
	event, err := s.repos.WebhookEvent.GetByID(eventID)
	if err != nil {
		return nil, fmt.Errorf("load webhook event %s: %w", eventID, err)
	}
	if event.Status != models.WEBHOOK_STATUS_FAILED {
		return nil, fmt.Errorf("requeue event %s in status %s: %w", event.ID, event.Status, ErrNotRequeueable)
	}

	won, err := s.repos.WebhookEvent.ResetToReceived(event.ID)
	if err != nil {
		return nil, fmt.Errorf("reset webhook event %s: %w", event.ID, err)
	}
	if !won {
		return nil, fmt.Errorf("requeue event %s: status changed concurrently: %w", event.ID, ErrNotRequeueable)
	}
	s.checker.Invalidate(ctx, event.EventIDValue())
	log.Printf("webhook: event %s reopened for reprocessing", event.ID)

	if s.Dispatch != nil && s.Dispatch(event.ID) {
		return s.repos.WebhookEvent.GetByID(event.ID)
	}
	return s.ProcessEvent(ctx, event.ID)
}

// markFailed records a terminal business failure on the event. The
// guarded mark means a concurrent winner keeps its outcome.
func (s *Service) markFailed(ctx context.Context, event *models.WebhookEvent, msg string, start time.Time) (*models.WebhookEvent, error) {
	won, err := s.repos.WebhookEvent.MarkFailed(event.ID, msg)
	if err != nil {
		return nil, fmt.Errorf("mark webhook event %s failed: %w", event.ID, err)
	}
	if won {
		now := time.Now()
		event.Status = models.WEBHOOK_STATUS_FAILED
		event.Error = msg
		event.ProcessedAt = &now
		s.checker.Cache(ctx, event.EventIDValue(), models.WEBHOOK_STATUS_FAILED, 0)
	}
	metrics.RecordWebhookProcessed(event.Provider, "failed", time.Since(start).Seconds())
	log.Printf("webhook: event %s failed: %s", event.ID, msg)
	return event, nil
}

// failureMessage prefixes the stored error with the error class so
// operators can tell business rejections from provider faults.
func failureMessage(err error) string {
	var colErr *collections.Error
	if errors.As(err, &colErr) {
		return "collection error: " + err.Error()
	}
	var provErr *provider.Error
	if errors.As(err, &provErr) {
		return "provider error: " + err.Error()
	}
	return "unexpected error: " + err.Error()
}
