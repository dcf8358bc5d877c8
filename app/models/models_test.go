package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectionSplitInvariant(t *testing.T) {
	c := &Collection{
		OwnerRef:         "user-1",
		AmountAllocation: decimal.NewFromFloat(100.00),
		Fee:              decimal.NewFromFloat(1.50),
		AmountTotal:      decimal.NewFromFloat(101.50),
		Currency:         "NGN",
		RequestRef:       "req-1",
		Status:           COLLECTION_STATUS_PENDING,
	}
	require.NoError(t, c.BeforeSave(nil))

	c.AmountTotal = decimal.NewFromFloat(100.00)
	assert.ErrorIs(t, c.BeforeSave(nil), ErrCollectionTotalMismatch)
}

func TestCollectionTerminal(t *testing.T) {
	c := &Collection{Status: COLLECTION_STATUS_SUCCESS}
	assert.True(t, c.IsTerminal())

	c.Status = COLLECTION_STATUS_FAILED
	assert.True(t, c.IsTerminal())

	c.Status = COLLECTION_STATUS_PENDING
	assert.False(t, c.IsTerminal())
}

func TestCollectionNeedsValidation(t *testing.T) {
	c := &Collection{Metadata: JSONMap{MetaNeedsValidation: true}}
	assert.True(t, c.NeedsValidation())

	c.Metadata = JSONMap{MetaNeedsValidation: false}
	assert.False(t, c.NeedsValidation())

	c.Metadata = nil
	assert.False(t, c.NeedsValidation())
}

func TestGoalStatusGuards(t *testing.T) {
	g := &Goal{Status: GOAL_STATUS_ACTIVE}
	assert.True(t, g.CanPause())
	assert.False(t, g.CanResume())

	g.Status = GOAL_STATUS_PAUSED
	assert.False(t, g.CanPause())
	assert.True(t, g.CanResume())

	g.Status = GOAL_STATUS_COMPLETED
	assert.False(t, g.CanPause())
	assert.False(t, g.CanResume())
}

func TestGoalValidateRejectsNonPositiveTarget(t *testing.T) {
	g := &Goal{
		OwnerRef:     "user-1",
		Name:         "Rainy day",
		TargetAmount: decimal.Zero,
		Currency:     "NGN",
		Status:       GOAL_STATUS_ACTIVE,
	}
	assert.ErrorIs(t, g.Validate(), ErrGoalTargetNotPositive)

	g.TargetAmount = decimal.NewFromInt(5000)
	assert.NoError(t, g.Validate())
}

func TestLedgerLineShape(t *testing.T) {
	line := &LedgerLine{Debit: decimal.NewFromInt(100), Credit: decimal.Zero}
	require.NoError(t, line.BeforeSave(nil))

	line = &LedgerLine{Debit: decimal.Zero, Credit: decimal.NewFromInt(100)}
	require.NoError(t, line.BeforeSave(nil))

	line = &LedgerLine{Debit: decimal.NewFromInt(1), Credit: decimal.NewFromInt(1)}
	assert.ErrorIs(t, line.BeforeSave(nil), ErrLedgerLineShape)

	line = &LedgerLine{}
	assert.ErrorIs(t, line.BeforeSave(nil), ErrLedgerLineShape)
}

func TestWebhookEventHelpers(t *testing.T) {
	e := &WebhookEvent{Status: WEBHOOK_STATUS_RECEIVED}
	assert.False(t, e.IsTerminal())
	assert.Equal(t, "", e.EventIDValue())

	id := "evt_1"
	e.EventID = &id
	e.Status = WEBHOOK_STATUS_PROCESSED
	assert.True(t, e.IsTerminal())
	assert.Equal(t, "evt_1", e.EventIDValue())
}

func TestJSONMapScanValue(t *testing.T) {
	m := JSONMap{"a": "b", "n": float64(2)}
	v, err := m.Value()
	require.NoError(t, err)

	var out JSONMap
	require.NoError(t, out.Scan(v))
	assert.Equal(t, "b", out.GetString("a"))

	var empty JSONMap
	require.NoError(t, empty.Scan(nil))
	assert.NotNil(t, empty)
	assert.Equal(t, "", empty.GetString("missing"))
}
