package collections

import (
	"github.com/korefinance/kore/internal/pkg/env"
	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// ComputeFee returns the Kore fee for an allocation. KORE_FEE_PERCENT
// takes precedence over KORE_FEE_FLAT; with neither configured the fee
// is zero. Percent fees are rounded to 2 decimal places.
func ComputeFee(allocation decimal.Decimal) decimal.Decimal {
	if raw := env.GetEnv("KORE_FEE_PERCENT", ""); raw != "" {
		if percent, err := decimal.NewFromString(raw); err == nil && percent.IsPositive() {
			return allocation.Mul(percent).Div(oneHundred).Round(2)
		}
	}
	if raw := env.GetEnv("KORE_FEE_FLAT", ""); raw != "" {
		if flat, err := decimal.NewFromString(raw); err == nil && flat.IsPositive() {
			return flat.Round(2)
		}
	}
	return decimal.Zero
}
