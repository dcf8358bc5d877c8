// Package collections owns the collection lifecycle: initiating a
// provider debit, reconciling webhook and query results through the
// monotonic state machine, OTP validation, and the goal aggregates
// built from settled transactions.
package collections

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/korefinance/kore/app/models"
	"github.com/korefinance/kore/app/repository"
	"github.com/korefinance/kore/internal/pkg/env"
	"github.com/korefinance/kore/internal/pkg/events"
	"github.com/korefinance/kore/internal/pkg/ledger"
	"github.com/korefinance/kore/internal/pkg/metrics"
	"github.com/korefinance/kore/internal/pkg/payload"
	"github.com/korefinance/kore/internal/pkg/provider"
	"github.com/korefinance/kore/internal/pkg/status"
)

// ProviderName identifies the payment provider collections run on.
const ProviderName = "paywithaccount"

// validationFieldKeys are the provider response keys carrying OTP or
// challenge context a later validate call needs.
var validationFieldKeys = []string{"validation_ref", "session_id", "otp_reference", "challenge_ref", "auth_token"}

// Service coordinates provider calls and collection persistence.
type Service struct {
	db         *gorm.DB
	repos      *repository.Repositories
	provider   *provider.Client
	normalizer *status.Normalizer
	publisher  *events.Publisher
}

// NewService wires the collection service. publisher may be nil when
// eventing is disabled.
func NewService(db *gorm.DB, client *provider.Client, normalizer *status.Normalizer, publisher *events.Publisher) *Service {
	return &Service{
		db:         db,
		repos:      repository.NewRepositories(db),
		provider:   client,
		normalizer: normalizer,
		publisher:  publisher,
	}
}

// CreateInput is one collection request.
type CreateInput struct {
	OwnerRef       string          `json:"-"`
	GoalID         string          `json:"goal_id"`
	Amount         decimal.Decimal `json:"amount" validate:"required"`
	Currency       string          `json:"currency"`
	Narrative      string          `json:"narrative"`
	IdempotencyKey string          `json:"-"`
}

// Create initiates a collection: fee split, provider transact call,
// then collection plus transaction rows in one database transaction.
// A repeated idempotency key returns the existing collection untouched.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Collection, error) {
	if in.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, &Error{Op: "create", Err: models.ErrAmountNotPositive}
	}
	if in.Currency == "" {
		in.Currency = "NGN"
	}

	var goal *models.Goal
	if in.GoalID != "" {
		g, err := s.repos.Goal.GetForOwner(in.GoalID, in.OwnerRef)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, &Error{Op: "create", Err: ErrGoalNotOwned}
			}
			return nil, fmt.Errorf("load goal %s: %w", in.GoalID, err)
		}
		if g.Status != models.GOAL_STATUS_ACTIVE {
			return nil, &Error{Op: "create", Err: ErrGoalNotActive}
		}
		goal = g
	}

	if in.IdempotencyKey != "" {
		existing, err := s.repos.Collection.GetByIdempotencyKey(in.OwnerRef, in.IdempotencyKey)
		if err == nil {
			log.Printf("collections: idempotent create, returning existing collection %s", existing.ID)
			return existing, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("idempotency lookup: %w", err)
		}
	}

	fee := ComputeFee(in.Amount)
	total := in.Amount.Add(fee)
	log.Printf("collections: creating collection owner=%s goal=%s allocation=%s fee=%s total=%s",
		in.OwnerRef, in.GoalID, in.Amount, fee, total)

	transactPayload := buildTransactPayload(in.OwnerRef, goal, in.Amount, fee, total, in.Currency, in.Narrative)

	result, err := s.provider.Transact(ctx, transactPayload, "")
	if err != nil {
		metrics.RecordProviderCall("transact", "error")
		var pErr *provider.Error
		ref := ""
		if errors.As(err, &pErr) {
			ref = pErr.RequestRef
		}
		return nil, &Error{Op: "create", RequestRef: ref, Err: err}
	}
	metrics.RecordProviderCall("transact", "ok")

	providerRef := payload.ExtractProviderRef(result.Data)
	rawStatus := payload.ExtractStatus(result.Data)
	normalized, needsValidation := s.normalizer.Normalize(rawStatus)

	colStatus := models.COLLECTION_STATUS_PENDING
	switch {
	case needsValidation:
		colStatus = models.COLLECTION_STATUS_PENDING
	case normalized == status.Success:
		colStatus = models.COLLECTION_STATUS_SUCCESS
	case normalized == status.Failed:
		colStatus = models.COLLECTION_STATUS_FAILED
	}

	meta := models.JSONMap{
		models.MetaSplit:            splitMap(in.Amount, fee, total),
		models.MetaNarrative:        in.Narrative,
		models.MetaNormalizedStatus: normalized,
		models.MetaNeedsValidation:  needsValidation,
	}
	if in.IdempotencyKey != "" {
		meta[models.MetaIdempotencyKey] = in.IdempotencyKey
	}
	if needsValidation {
		if vf := captureValidationFields(result.Data); len(vf) > 0 {
			meta[models.MetaValidationFields] = vf
		}
		log.Printf("collections: collection requires validation (status=%q)", rawStatus)
	}

	col := &models.Collection{
		OwnerRef:         in.OwnerRef,
		AmountAllocation: in.Amount,
		Fee:              fee,
		AmountTotal:      total,
		Currency:         in.Currency,
		Provider:         ProviderName,
		RequestRef:       result.RequestRef,
		ProviderRef:      providerRef,
		Status:           colStatus,
		Narrative:        in.Narrative,
		RawRequest:       models.JSONMap(transactPayload),
		RawResponse:      models.JSONMap(result.Data),
		Metadata:         meta,
	}
	if goal != nil {
		col.GoalID = &goal.ID
	}

	txStatus := models.TRANSACTION_STATUS_PENDING
	if colStatus == models.COLLECTION_STATUS_SUCCESS || colStatus == models.COLLECTION_STATUS_FAILED {
		txStatus = colStatus
	}

	posted := false
	err = s.db.Transaction(func(tx *gorm.DB) error {
		repos := repository.NewRepositories(tx)

		if err := repos.Collection.Create(col); err != nil {
			return fmt.Errorf("create collection: %w", err)
		}

		debit := &models.Transaction{
			OwnerRef:     in.OwnerRef,
			GoalID:       col.GoalID,
			CollectionID: &col.ID,
			Type:         models.TRANSACTION_TYPE_DEBIT,
			Amount:       in.Amount,
			Currency:     in.Currency,
			Status:       txStatus,
			RequestRef:   col.RequestRef,
			ProviderRef:  providerRef,
			OccurredAt:   time.Now(),
			Metadata:     models.JSONMap{models.MetaNarrative: in.Narrative},
		}
		if err := repos.Transaction.Create(debit); err != nil {
			return fmt.Errorf("create debit transaction: %w", err)
		}

		if fee.GreaterThan(decimal.Zero) {
			feeTx := &models.Transaction{
				OwnerRef:     in.OwnerRef,
				GoalID:       col.GoalID,
				CollectionID: &col.ID,
				Type:         models.TRANSACTION_TYPE_FEE,
				Amount:       fee,
				Currency:     in.Currency,
				Status:       txStatus,
				RequestRef:   col.RequestRef,
				ProviderRef:  providerRef,
				OccurredAt:   time.Now(),
				Metadata:     models.JSONMap{models.MetaNarrative: "Kore processing fee"},
			}
			if err := repos.Transaction.Create(feeTx); err != nil {
				return fmt.Errorf("create fee transaction: %w", err)
			}
		}

		// A collection born settled (mock mode, instant debits) is
		// journaled here; later webhook replays find the entry by
		// reference and post nothing.
		if colStatus == models.COLLECTION_STATUS_SUCCESS {
			_, p, err := ledger.PostCollectionSuccess(repos.Ledger, col)
			if err != nil {
				return fmt.Errorf("post journal for %s: %w", col.RequestRef, err)
			}
			posted = p
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordCollectionCreated(ProviderName)
	if posted {
		metrics.RecordLedgerEntryPosted()
	}
	log.Printf("collections: created %s (request_ref=%s status=%s needs_validation=%t)",
		col.ID, col.RequestRef, colStatus, needsValidation)
	return col, nil
}

// buildTransactPayload shapes the provider transact body: request_type
// at the top level, a debit transaction block, and the fee split under
// meta so downstream reconciliation can audit it. The client injects
// mock_mode.
func buildTransactPayload(ownerRef string, goal *models.Goal, allocation, fee, total decimal.Decimal, currency, narrative string) map[string]any {
	narration := narrative
	if narration == "" {
		name := "General"
		if goal != nil {
			name = goal.Name
		}
		narration = "Kore Collection - " + name
	}

	meta := map[string]any{
		"owner_ref": ownerRef,
		"narrative": narrative,
		"split":     splitMap(allocation, fee, total),
	}
	if goal != nil {
		meta["goal_id"] = goal.ID
		meta["goal_name"] = goal.Name
	}

	return map[string]any{
		"request_type": env.GetEnv("PWA_REQUEST_TYPE", "invoice"),
		"transaction": map[string]any{
			"type":      "debit",
			"amount":    total.StringFixed(2),
			"currency":  currency,
			"narration": narration,
		},
		"meta": meta,
	}
}

func splitMap(allocation, fee, total decimal.Decimal) map[string]any {
	return map[string]any{
		"amount_allocation": allocation.StringFixed(2),
		"kore_fee":          fee.StringFixed(2),
		"amount_total":      total.StringFixed(2),
	}
}

// captureValidationFields pulls the known validation keys out of a
// provider response, best effort.
func captureValidationFields(data map[string]any) map[string]any {
	fields := map[string]any{}
	for _, k := range validationFieldKeys {
		if v, ok := data[k]; ok {
			fields[k] = v
		}
	}
	return fields
}
