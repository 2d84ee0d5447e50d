package domain

import (
	"time"

	"github.com/google/uuid"
)

// IdempotencyLog stores the result of a processed intent so retries replay it.
type IdempotencyLog struct {
	Key           string    `json:"key"` // Format: "account_id:type:client_key"
	TransactionID uuid.UUID `json:"transaction_id"`
	RequestHash   string    `json:"request_hash"` // Fingerprint of the original request body
	ResponseJSON  []byte    `json:"response_json"`
	CreatedAt     time.Time `json:"created_at"`
}

// BuildIdempotencyKey scopes a client key to one account and transaction type.
func BuildIdempotencyKey(accountID uuid.UUID, txType TransactionType, clientKey string) string {
	return accountID.String() + ":" + string(txType) + ":" + clientKey
}
