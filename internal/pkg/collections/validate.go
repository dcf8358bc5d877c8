package collections

import (
	"context"
	"fmt"
	"time"

	"github.com/korefinance/kore/app/models"
	"github.com/korefinance/kore/internal/pkg/metrics"
	"github.com/korefinance/kore/internal/pkg/payload"
	"github.com/korefinance/kore/internal/pkg/status"
)

// proposedStatus narrows a normalized provider status to the status
// proposed to the state machine.
func proposedStatus(normalized string) string {
	switch normalized {
	case status.Success:
		return models.COLLECTION_STATUS_SUCCESS
	case status.Failed:
		return models.COLLECTION_STATUS_FAILED
	default:
		return models.COLLECTION_STATUS_PENDING
	}
}

// ValidateCollection submits an OTP or challenge answer for a
// collection that is waiting on validation, then reconciles the
// provider's verdict through the state machine.
func (s *Service) ValidateCollection(ctx context.Context, col *models.Collection, otp string, extra map[string]any) (*models.Collection, error) {
	if col == nil {
		return nil, &Error{Op: "validate", Err: ErrCollectionNotFound}
	}
	if col.Status != models.COLLECTION_STATUS_PENDING {
		return nil, &Error{
			Op:         "validate",
			RequestRef: col.RequestRef,
			Err:        fmt.Errorf("%w: status is %s, must be PENDING", ErrNotAwaitingValidation, col.Status),
		}
	}
	if !col.NeedsValidation() {
		return nil, &Error{Op: "validate", RequestRef: col.RequestRef, Err: ErrNotAwaitingValidation}
	}

	body := map[string]any{
		"request_ref": col.RequestRef,
		"meta": map[string]any{
			"collection_id": col.ID,
			"owner_ref":     col.OwnerRef,
		},
	}
	if otp != "" {
		body["otp"] = otp
	}
	for k, v := range extra {
		body[k] = v
	}

	result, err := s.provider.Validate(ctx, body, col.RequestRef, col.RequestRef)
	if err != nil {
		metrics.RecordProviderCall("validate", "error")
		return nil, &Error{Op: "validate", RequestRef: col.RequestRef, Err: err}
	}
	metrics.RecordProviderCall("validate", "ok")

	rawStatus := payload.ExtractStatus(result.Data)
	normalized, needsValidation := s.normalizer.Normalize(rawStatus)

	in := applyInput{
		op:         "validate",
		requestRef: col.RequestRef,
		proposed:   proposedStatus(normalized),
		metadata: map[string]any{
			models.MetaNormalizedStatus: normalized,
			models.MetaNeedsValidation:  needsValidation,
			"validation_attempt_at":     time.Now().UTC().Format(time.RFC3339),
		},
		rawResponse: models.JSONMap(result.Data),
	}
	if needsValidation {
		if vf := captureValidationFields(result.Data); len(vf) > 0 {
			in.metadataOnce = map[string]any{models.MetaValidationFields: vf}
		}
	}

	res, err := s.applyStatus(ctx, in)
	if err != nil {
		return nil, err
	}
	return res.collection, nil
}

// QueryStatus polls the provider for a collection's current state and
// reconciles the answer through the state machine, the same monotonic
// path webhooks take. A stale or out-of-order provider answer cannot
// move the collection backwards.
func (s *Service) QueryStatus(ctx context.Context, col *models.Collection) (*models.Collection, error) {
	if col == nil {
		return nil, &Error{Op: "query", Err: ErrCollectionNotFound}
	}
	reference := col.ProviderRef
	if reference == "" {
		reference = col.RequestRef
	}
	if reference == "" {
		return nil, &Error{Op: "query", Err: ErrNoReference}
	}

	body := map[string]any{
		"reference": reference,
		"meta": map[string]any{
			"collection_id": col.ID,
			"owner_ref":     col.OwnerRef,
		},
	}

	result, err := s.provider.Query(ctx, body, "", "")
	if err != nil {
		metrics.RecordProviderCall("query", "error")
		return nil, &Error{Op: "query", RequestRef: col.RequestRef, Err: err}
	}
	metrics.RecordProviderCall("query", "ok")

	rawStatus := payload.ExtractStatus(result.Data)
	normalized, needsValidation := s.normalizer.Normalize(rawStatus)

	res, err := s.applyStatus(ctx, applyInput{
		op:         "query",
		requestRef: col.RequestRef,
		proposed:   proposedStatus(normalized),
		metadata: map[string]any{
			models.MetaNormalizedStatus: normalized,
			models.MetaNeedsValidation:  needsValidation,
			"queried_at":                time.Now().UTC().Format(time.RFC3339),
		},
		rawResponse: models.JSONMap(result.Data),
	})
	if err != nil {
		return nil, err
	}
	return res.collection, nil
}
