package collections

import (
	"errors"
	"fmt"

	"github.com/korefinance/kore/app/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GoalSummary is a goal plus the aggregates of its settled
// transactions. Contributed sums the successful DEBIT allocations,
// disbursed the successful CREDIT payouts, fees the successful FEE
// rows; progress is contributed over target, capped at 100.
type GoalSummary struct {
	models.Goal
	TotalContributed decimal.Decimal `json:"total_contributed"`
	TotalDisbursed   decimal.Decimal `json:"total_disbursed"`
	TotalFees        decimal.Decimal `json:"total_fees"`
	ProgressPercent  int             `json:"progress_percent"`
}

// GoalSummary aggregates the settled transactions of one goal for its
// owner.
func (s *Service) GoalSummary(goalID, ownerRef string) (*GoalSummary, error) {
	goal, err := s.repos.Goal.GetForOwner(goalID, ownerRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load goal %s: %w", goalID, err)
	}

	contributed, err := s.repos.Transaction.SumForGoal(goalID, models.TRANSACTION_TYPE_DEBIT, models.TRANSACTION_STATUS_SUCCESS)
	if err != nil {
		return nil, fmt.Errorf("sum contributions for goal %s: %w", goalID, err)
	}
	disbursed, err := s.repos.Transaction.SumForGoal(goalID, models.TRANSACTION_TYPE_CREDIT, models.TRANSACTION_STATUS_SUCCESS)
	if err != nil {
		return nil, fmt.Errorf("sum disbursements for goal %s: %w", goalID, err)
	}
	fees, err := s.repos.Transaction.SumForGoal(goalID, models.TRANSACTION_TYPE_FEE, models.TRANSACTION_STATUS_SUCCESS)
	if err != nil {
		return nil, fmt.Errorf("sum fees for goal %s: %w", goalID, err)
	}

	return &GoalSummary{
		Goal:             *goal,
		TotalContributed: contributed,
		TotalDisbursed:   disbursed,
		TotalFees:        fees,
		ProgressPercent:  ProgressPercent(contributed, goal.TargetAmount),
	}, nil
}

// ProgressPercent returns contributed/target as a whole percent in
// [0,100]. A non-positive target reads as 0 progress.
func ProgressPercent(contributed, target decimal.Decimal) int {
	if !target.IsPositive() {
		return 0
	}
	pct := contributed.Mul(oneHundred).Div(target).IntPart()
	if pct > 100 {
		return 100
	}
	if pct < 0 {
		return 0
	}
	return int(pct)
}
