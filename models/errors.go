package models

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the core wraps exactly one of these.
var (
	ErrValidation          = errors.New("validation error")
	ErrStateConflict       = errors.New("state conflict")
	ErrInsufficientBalance = fmt.Errorf("%w: insufficient balance", ErrValidation)
	ErrPersistence         = errors.New("persistence error")
)

var (
	ErrRecordNotFound = fmt.Errorf("%w: record not found", ErrValidation)
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = fmt.Errorf("%w: forbidden", ErrValidation)
	ErrInvalidUUID    = fmt.Errorf("%w: invalid UUID", ErrValidation)

	ErrInvalidUserID   = fmt.Errorf("%w: invalid user ID", ErrValidation)
	ErrInvalidUsername = fmt.Errorf("%w: invalid username", ErrValidation)
	ErrUsernameTaken   = fmt.Errorf("%w: username already taken", ErrValidation)

	ErrInvalidMarketTitle     = fmt.Errorf("%w: invalid market title", ErrValidation)
	ErrInvalidMarketType      = fmt.Errorf("%w: invalid market type", ErrValidation)
	ErrInvalidMarketOptions   = fmt.Errorf("%w: market options must be at least two unique non-blank labels", ErrValidation)
	ErrInvalidBinaryOptions   = fmt.Errorf("%w: binary markets have exactly two options", ErrValidation)
	ErrInvalidLiquidity       = fmt.Errorf("%w: liquidity must be positive", ErrValidation)
	ErrInvalidEndDate         = fmt.Errorf("%w: invalid end date", ErrValidation)
	ErrInvalidOption          = fmt.Errorf("%w: option is not offered by this market", ErrValidation)
	ErrInvalidBetAmount       = fmt.Errorf("%w: bet amount must be a positive integer", ErrValidation)
	ErrBetTooLarge            = fmt.Errorf("%w: bet amount exceeds maximum", ErrValidation)
	ErrActiveBetExists        = fmt.Errorf("%w: user already holds an active bet on this market", ErrValidation)
	ErrInvalidAdjustment      = fmt.Errorf("%w: adjustment amount must be non-zero", ErrValidation)
	ErrInvalidLedgerReason    = fmt.Errorf("%w: invalid ledger reason", ErrValidation)
	ErrInvalidGrantAmount     = fmt.Errorf("%w: grant amount cannot be negative", ErrValidation)
	ErrInconsistentLedgerLine = fmt.Errorf("%w: balance_after does not equal balance_before plus delta", ErrValidation)

	ErrMarketNotOpen           = fmt.Errorf("%w: market is not open for betting", ErrStateConflict)
	ErrMarketExpired           = fmt.Errorf("%w: market end date has passed", ErrStateConflict)
	ErrMarketNotResolvable     = fmt.Errorf("%w: market cannot be resolved from its current status", ErrStateConflict)
	ErrMarketNotResolved       = fmt.Errorf("%w: market is not resolved", ErrStateConflict)
	ErrMarketNotCancellable    = fmt.Errorf("%w: market cannot be voided from its current status", ErrStateConflict)
	ErrBetNotActive            = fmt.Errorf("%w: bet is not active", ErrStateConflict)
	ErrCancelWindowElapsed     = fmt.Errorf("%w: bet cancellation window has elapsed", ErrStateConflict)
	ErrPriceUnavailable        = fmt.Errorf("%w: option price is too extreme to accept a stake", ErrStateConflict)
	ErrRateLimitExceeded       = fmt.Errorf("%w: betting rate limit exceeded", ErrStateConflict)
	ErrConcurrentBalanceUpdate = fmt.Errorf("%w: balance was modified concurrently", ErrStateConflict)

	ErrInvalidBetAmountLimits       = errors.New("invalid bet amount limits")
	ErrInvalidRateLimit             = errors.New("invalid rate limit")
	ErrInvalidBetCancellationWindow = errors.New("bet cancellation window must be positive")
	ErrInvalidSettlementWorkers     = errors.New("settlement workers must be positive")
	ErrInvalidSettleBetTimeout      = errors.New("settle bet timeout must be positive")
	ErrInvalidDefaultLiquidity      = errors.New("default liquidity must be positive")
	ErrInvalidMarketDuration        = errors.New("invalid market duration")
	ErrInvalidSweepInterval         = errors.New("expiry sweep interval must be positive")
	ErrInvalidPriceCacheTTL         = errors.New("price cache ttl cannot be negative")

	ErrDatabaseCredentialNotConfigured = errors.New("database credentials not configured")
	ErrUnsupportedDatabaseDriver       = errors.New("unsupported database driver")
)

// PersistenceError reports a storage failure inside an atomic unit.
type PersistenceError struct {
	Op  string
	Err error
}

func NewPersistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrPersistence, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// ErrorKind names the kind an error belongs to.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrStateConflict):
		return "state_conflict"
	case errors.Is(err, ErrPersistence):
		return "persistence"
	default:
		return "internal"
	}
}
