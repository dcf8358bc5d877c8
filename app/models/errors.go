package models

import "errors"

var (
	ErrGoalTargetNotPositive   = errors.New("target_amount must be greater than 0")
	ErrAmountNotPositive       = errors.New("amount_allocation must be greater than 0")
	ErrCollectionTotalMismatch = errors.New("amount_total must equal amount_allocation + fee")
	ErrLedgerLineShape         = errors.New("exactly one of debit or credit must be greater than 0")
)
