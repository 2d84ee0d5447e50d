package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// HasCode reports whether err is an AppError carrying code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// Codes referenced outside this package.
const (
	CodeInsufficientFunds     = "LEDGER_001"
	CodeInvalidAmount         = "LEDGER_002"
	CodeUnsupportedType       = "LEDGER_003"
	CodeAccountInactive       = "LEDGER_004"
	CodeNotReversible         = "LEDGER_005"
	CodeIdempotencyKeyReused  = "LEDGER_006"
	CodeReconciliation        = "LEDGER_007"
	CodeTierLimitExceeded     = "TIER_001"
	CodeInvalidTierTransition = "TIER_002"
	CodeInvalidVoteWeight     = "VOTE_001"
	CodeRoundNotActive        = "VOTE_002"
	CodeCandidateNotQualified = "VOTE_003"
	CodeInvalidVetting        = "VOTE_004"
	CodeInvalidRound          = "VOTE_005"
	CodeDuplicateEndorsement  = "VOTE_006"
	CodeNotFound              = "SYS_404"
)

// ---- Security & Authentication (SEC) ----

func ErrInvalidAccessKey() *AppError {
	return New("SEC_001", "Invalid access key", http.StatusUnauthorized)
}

func ErrInvalidSignature() *AppError {
	return New("SEC_002", "Invalid signature", http.StatusUnauthorized)
}

func ErrTimestampExpired() *AppError {
	return New("SEC_003", "Request timestamp expired", http.StatusForbidden)
}

func ErrNonceUsed() *AppError {
	return New("SEC_004", "Nonce has already been used", http.StatusForbidden)
}

func ErrScopeDenied() *AppError {
	return New("SEC_005", "Client is not allowed to call this endpoint", http.StatusForbidden)
}

// ---- Ledger (LEDGER) ----

func ErrInsufficientFunds() *AppError {
	return New(CodeInsufficientFunds, "Insufficient SUP balance", http.StatusPaymentRequired)
}

func ErrInvalidAmount() *AppError {
	return New(CodeInvalidAmount, "Amount must be positive with at most 2 decimal places", http.StatusBadRequest)
}

// ErrUnsupportedTransactionType is a contract violation by the caller, not a user error.
func ErrUnsupportedTransactionType(txType string) *AppError {
	return New(CodeUnsupportedType, fmt.Sprintf("Unsupported transaction type %q", txType), http.StatusInternalServerError)
}

func ErrAccountInactive() *AppError {
	return New(CodeAccountInactive, "Account is deactivated", http.StatusForbidden)
}

func ErrNotReversible(reason string) *AppError {
	return New(CodeNotReversible, "Transaction cannot be reversed: "+reason, http.StatusConflict)
}

func ErrIdempotencyKeyReused() *AppError {
	return New(CodeIdempotencyKeyReused, "Idempotency key was already used with a different request", http.StatusConflict)
}

func ErrReconciliationMismatch(detail string) *AppError {
	return New(CodeReconciliation, "Ledger does not reconcile: "+detail, http.StatusInternalServerError)
}

func ErrNotFound(entity string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- Verification tiers (TIER) ----

func ErrTierLimitExceeded(reason string) *AppError {
	return New(CodeTierLimitExceeded, reason, http.StatusUnprocessableEntity)
}

func ErrInvalidTierTransition(reason string) *AppError {
	return New(CodeInvalidTierTransition, reason, http.StatusConflict)
}

// ---- Voting & candidates (VOTE) ----

func ErrInvalidVoteWeight(reason string) *AppError {
	return New(CodeInvalidVoteWeight, reason, http.StatusBadRequest)
}

func ErrRoundNotActive() *AppError {
	return New(CodeRoundNotActive, "Voting round is not active", http.StatusConflict)
}

func ErrCandidateNotQualified() *AppError {
	return New(CodeCandidateNotQualified, "Candidate is not qualified to receive votes", http.StatusConflict)
}

func ErrInvalidVettingTransition(from, to string) *AppError {
	return New(CodeInvalidVetting, fmt.Sprintf("Cannot move vetting status from %s to %s", from, to), http.StatusConflict)
}

func ErrInvalidRound(reason string) *AppError {
	return New(CodeInvalidRound, reason, http.StatusBadRequest)
}

func ErrDuplicateEndorsement() *AppError {
	return New(CodeDuplicateEndorsement, "Endorsement for this category already exists", http.StatusConflict)
}

// ---- KYC ----

func ErrKYCAlreadyDecided() *AppError {
	return New("KYC_001", "KYC submission has already been decided", http.StatusConflict)
}

// ---- Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrUsernameExists() *AppError {
	return New("AUTH_002", "Username already exists", http.StatusConflict)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_003", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrForbidden() *AppError {
	return New("AUTH_004", "Insufficient role for this operation", http.StatusForbidden)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

func ErrLockTimeout(err error) *AppError {
	return Wrap("SYS_002", "Lock acquisition timeout", http.StatusServiceUnavailable, err)
}

func ErrEncryptionFailure(err error) *AppError {
	return Wrap("SYS_003", "Encryption service failure", http.StatusInternalServerError, err)
}

func ErrRequestCancelled(err error) *AppError {
	return Wrap("SYS_004", "Request cancelled before commit", 499, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a request validation error.
func Validation(message string) *AppError {
	return New("REQ_001", message, http.StatusBadRequest)
}
