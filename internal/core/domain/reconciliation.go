package domain

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Reconciliation compares an account's cached balance with its log.
type Reconciliation struct {
	AccountID        uuid.UUID `json:"account_id"`
	CachedBalance    string    `json:"cached_balance"`
	LogSum           string    `json:"log_sum"`
	LastBalanceAfter string    `json:"last_balance_after"`
	Entries          int       `json:"entries"`
	Consistent       bool      `json:"consistent"`
}

// Reconcile sums log (in append order) and compares it with acc.Balance
// using the fixed two-decimal form. The last BalanceAfter must match too.
func Reconcile(acc *Account, log []Transaction) Reconciliation {
	sum := decimal.Zero
	last := decimal.Zero
	for _, t := range log {
		sum = sum.Add(t.Amount)
		last = t.BalanceAfter
	}
	cached := FormatAmount(acc.Balance)
	r := Reconciliation{
		AccountID:        acc.ID,
		CachedBalance:    cached,
		LogSum:           FormatAmount(sum),
		LastBalanceAfter: FormatAmount(last),
		Entries:          len(log),
	}
	r.Consistent = r.LogSum == cached && r.LastBalanceAfter == cached
	return r
}

// Mismatch describes the drift, or "" when consistent.
func (r Reconciliation) Mismatch() string {
	if r.Consistent {
		return ""
	}
	return fmt.Sprintf("account %s cached=%s log_sum=%s last_balance_after=%s",
		r.AccountID, r.CachedBalance, r.LogSum, r.LastBalanceAfter)
}
