package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType is the closed set of ledger movements.
type TransactionType string

const (
	TransactionTypeEarn     TransactionType = "EARN"
	TransactionTypeVote     TransactionType = "VOTE"
	TransactionTypeWithdraw TransactionType = "WITHDRAW"
	TransactionTypeDonate   TransactionType = "DONATE"
	TransactionTypePurchase TransactionType = "PURCHASE"
	TransactionTypeFee      TransactionType = "FEE"
	TransactionTypeTransfer TransactionType = "TRANSFER"
	TransactionTypePrize    TransactionType = "PRIZE"
)

// AllTransactionTypes lists every supported type.
var AllTransactionTypes = []TransactionType{
	TransactionTypeEarn,
	TransactionTypeVote,
	TransactionTypeWithdraw,
	TransactionTypeDonate,
	TransactionTypePurchase,
	TransactionTypeFee,
	TransactionTypeTransfer,
	TransactionTypePrize,
}

func (t TransactionType) Valid() bool {
	for _, known := range AllTransactionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IsCredit reports whether the type adds to the issuing account.
func (t TransactionType) IsCredit() bool {
	return t == TransactionTypeEarn || t == TransactionTypePrize
}

// Reversible reports whether a compensating entry may be issued for the type.
func (t TransactionType) Reversible() bool {
	switch t {
	case TransactionTypeWithdraw, TransactionTypeDonate, TransactionTypePurchase, TransactionTypeFee:
		return true
	}
	return false
}

// Transaction is an immutable ledger entry. Amount is signed: credits are
// positive, debits negative.
type Transaction struct {
	ID             uuid.UUID       `json:"id"`
	Seq            int64           `json:"-"` // Append order within the ledger
	AccountID      uuid.UUID       `json:"account_id"`
	Type           TransactionType `json:"type"`
	Amount         decimal.Decimal `json:"amount"`
	BalanceAfter   decimal.Decimal `json:"balance_after"`
	Reference      *string         `json:"reference,omitempty"`
	CounterpartyID *uuid.UUID      `json:"counterparty_id,omitempty"`
	ReversesID     *uuid.UUID      `json:"reverses_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

func (t *Transaction) IsDebit() bool {
	return t.Amount.IsNegative()
}

// IsCompensating reports whether t reverses an earlier transaction.
func (t *Transaction) IsCompensating() bool {
	return t.ReversesID != nil
}
