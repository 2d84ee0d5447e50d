package domain

import "github.com/shopspring/decimal"

// AmountScale is the number of fractional digits a SUP amount may carry.
const AmountScale = 2

// ValidAmount reports whether a is strictly positive and fits AmountScale.
func ValidAmount(a decimal.Decimal) bool {
	return a.IsPositive() && a.Equal(a.Truncate(AmountScale))
}

// FormatAmount renders a in the fixed two-decimal form used for storage,
// reconciliation and API responses.
func FormatAmount(a decimal.Decimal) string {
	return a.StringFixed(AmountScale)
}
