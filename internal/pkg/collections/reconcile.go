package collections

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/korefinance/kore/app/models"
	"github.com/korefinance/kore/app/repository"
	"github.com/korefinance/kore/internal/pkg/events"
	"github.com/korefinance/kore/internal/pkg/ledger"
	"github.com/korefinance/kore/internal/pkg/metrics"
	"github.com/korefinance/kore/internal/pkg/status"
)

// webhookStatusAliases translates the loose status words providers put
// in webhooks into collection statuses. Anything else passes through
// uppercased and the state machine ranks it.
var webhookStatusAliases = map[string]string{
	"success":    models.COLLECTION_STATUS_SUCCESS,
	"completed":  models.COLLECTION_STATUS_SUCCESS,
	"failed":     models.COLLECTION_STATUS_FAILED,
	"pending":    models.COLLECTION_STATUS_INITIATED,
	"processing": models.COLLECTION_STATUS_INITIATED,
	"initiated":  models.COLLECTION_STATUS_INITIATED,
}

// MapWebhookStatus resolves a webhook status word to a collection
// status.
func MapWebhookStatus(raw string) string {
	word := strings.TrimSpace(raw)
	if mapped, ok := webhookStatusAliases[strings.ToLower(word)]; ok {
		return mapped
	}
	return strings.ToUpper(word)
}

// cascadeStatus maps an admitted collection status to the status its
// PENDING transactions move to.
var cascadeStatus = map[string]string{
	models.COLLECTION_STATUS_SUCCESS:   models.TRANSACTION_STATUS_SUCCESS,
	models.COLLECTION_STATUS_FAILED:    models.TRANSACTION_STATUS_FAILED,
	models.COLLECTION_STATUS_CANCELLED: models.TRANSACTION_STATUS_FAILED,
	models.COLLECTION_STATUS_INITIATED: models.TRANSACTION_STATUS_PENDING,
}

// CascadeTransactionStatus returns the transaction status that follows
// a collection into collectionStatus.
func CascadeTransactionStatus(collectionStatus string) string {
	if mapped, ok := cascadeStatus[collectionStatus]; ok {
		return mapped
	}
	return models.TRANSACTION_STATUS_PENDING
}

// applyInput carries one proposed reconciliation write.
type applyInput struct {
	op            string
	requestRef    string
	proposed      string
	providerRef   string
	allowOverride bool
	metadata      map[string]any // merged over collection metadata
	metadataOnce  map[string]any // written only when the key is absent
	rawResponse   models.JSONMap // replaces raw_response when non-nil
}

// applyResult reports what one reconciliation pass did.
type applyResult struct {
	collection *models.Collection
	updated    bool
	oldStatus  string
	posted     bool
	skipReason string
}

// UpdateFromWebhook applies one webhook-reported status to the
// collection behind request_ref: alias-map the status, decide through
// the monotonic state machine, cascade PENDING transactions, and post
// the journal entry on settlement. The whole write runs in one database
// transaction; the status write is guarded against concurrent movers.
func (s *Service) UpdateFromWebhook(ctx context.Context, requestRef, providerRef, newStatus string, payload map[string]any, allowOverride bool) (*models.Collection, error) {
	in := applyInput{
		op:            "update",
		requestRef:    requestRef,
		proposed:      MapWebhookStatus(newStatus),
		providerRef:   providerRef,
		allowOverride: allowOverride,
	}
	if payload != nil {
		in.metadataOnce = map[string]any{models.MetaWebhookPayload: payload}
	}

	res, err := s.applyStatus(ctx, in)
	if err != nil {
		return nil, err
	}
	return res.collection, nil
}

// Override force-applies a status to a collection, bypassing terminal
// stickiness. Reserved for the operator surface; the write still runs
// the full reconciliation path (cascade, journal, event).
func (s *Service) Override(ctx context.Context, collectionID, newStatus string) (*models.Collection, error) {
	col, err := s.repos.Collection.GetByID(collectionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &Error{Op: "override", Err: ErrCollectionNotFound}
		}
		return nil, fmt.Errorf("load collection %s: %w", collectionID, err)
	}

	res, err := s.applyStatus(ctx, applyInput{
		op:            "override",
		requestRef:    col.RequestRef,
		proposed:      MapWebhookStatus(newStatus),
		allowOverride: true,
		metadata: map[string]any{
			"override_at": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return nil, err
	}
	return res.collection, nil
}

// applyStatus is the single write path every reconciliation source
// (webhook, validate, query, admin override) funnels through.
func (s *Service) applyStatus(ctx context.Context, in applyInput) (*applyResult, error) {
	res := &applyResult{}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		repos := repository.NewRepositories(tx)

		col, err := repos.Collection.GetByRequestRef(in.requestRef)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &Error{Op: in.op, RequestRef: in.requestRef, Err: ErrCollectionNotFound}
			}
			return fmt.Errorf("load collection %s: %w", in.requestRef, err)
		}

		fields := map[string]any{}
		if in.providerRef != "" {
			col.ProviderRef = in.providerRef
			fields["provider_ref"] = in.providerRef
		}
		if col.Metadata == nil {
			col.Metadata = models.JSONMap{}
		}
		for k, v := range in.metadataOnce {
			if _, seen := col.Metadata[k]; !seen {
				col.Metadata[k] = v
			}
		}
		for k, v := range in.metadata {
			col.Metadata[k] = v
		}
		fields["metadata"] = col.Metadata
		if in.rawResponse != nil {
			col.RawResponse = in.rawResponse
			fields["raw_response"] = in.rawResponse
		}

		res.oldStatus = col.Status
		if !status.ShouldUpdate(col.Status, in.proposed, in.allowOverride) {
			res.skipReason = skipReason(col.Status)
			res.collection = col
			if err := repos.Collection.UpdateFields(col.ID, fields); err != nil {
				return fmt.Errorf("update collection %s: %w", col.ID, err)
			}
			return nil
		}

		fields["status"] = in.proposed
		rows, err := repos.Collection.UpdateStatusGuarded(col.ID, col.Status, fields)
		if err != nil {
			return fmt.Errorf("update collection %s: %w", col.ID, err)
		}
		if rows == 0 {
			// Another writer moved the row between our read and the
			// guarded write. Reload under lock and decide once more.
			fresh, err := repos.Collection.GetByRequestRefForUpdate(in.requestRef)
			if err != nil {
				return fmt.Errorf("reload collection %s: %w", in.requestRef, err)
			}
			res.oldStatus = fresh.Status
			if !status.ShouldUpdate(fresh.Status, in.proposed, in.allowOverride) {
				res.skipReason = skipReason(fresh.Status)
				res.collection = fresh
				return nil
			}
			if _, err := repos.Collection.UpdateStatusGuarded(col.ID, fresh.Status, fields); err != nil {
				return fmt.Errorf("update collection %s: %w", col.ID, err)
			}
			fresh.ProviderRef = col.ProviderRef
			fresh.Metadata = col.Metadata
			fresh.RawResponse = col.RawResponse
			col = fresh
		}
		col.Status = in.proposed
		col.UpdatedAt = time.Now()
		res.updated = true

		if _, err := repos.Transaction.CascadePendingByCollection(col.ID, CascadeTransactionStatus(in.proposed), in.providerRef); err != nil {
			return fmt.Errorf("cascade transactions for collection %s: %w", col.ID, err)
		}

		if in.proposed == models.COLLECTION_STATUS_SUCCESS {
			_, posted, err := ledger.PostCollectionSuccess(repos.Ledger, col)
			if err != nil {
				return fmt.Errorf("post journal for %s: %w", col.RequestRef, err)
			}
			res.posted = posted
		}

		res.collection = col
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterApply(ctx, res)
	return res, nil
}

func skipReason(current string) string {
	if status.IsTerminal(current) {
		return "terminal"
	}
	return "rank"
}

// afterApply runs the post-commit side effects: metrics and the status
// event. Both are best-effort and never fail the caller.
func (s *Service) afterApply(ctx context.Context, res *applyResult) {
	col := res.collection
	if !res.updated {
		metrics.RecordSkippedUpdate(res.skipReason)
		log.Printf("collections: skipped status update for %s (%s, current %s)", col.ID, res.skipReason, col.Status)
		return
	}

	metrics.RecordStatusTransition(res.oldStatus, col.Status)
	if res.posted {
		metrics.RecordLedgerEntryPosted()
	}
	log.Printf("collections: %s moved %s -> %s (provider_ref=%s)", col.ID, res.oldStatus, col.Status, col.ProviderRef)

	if s.publisher == nil {
		return
	}
	_ = s.publisher.PublishStatusChanged(ctx, events.CollectionStatusChanged{
		CollectionID:     col.ID,
		RequestRef:       col.RequestRef,
		Provider:         col.Provider,
		OldStatus:        res.oldStatus,
		NewStatus:        col.Status,
		AmountAllocation: col.AmountAllocation.StringFixed(2),
		Fee:              col.Fee.StringFixed(2),
		AmountTotal:      col.AmountTotal.StringFixed(2),
		Currency:         col.Currency,
		OccurredAt:       time.Now(),
	})
}
