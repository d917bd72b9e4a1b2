package ledger

import "errors"

// Failure taxonomy shared by the accounting components. All are synchronous,
// local, and non-retryable; callers decide whether and when to retry.
var (
	// ErrUnauthorized: the caller lacks the role the operation requires.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidArgument: null identity, zero amount, or wrong asset.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInsufficientBalance: a withdrawal or extraction exceeds entitlement.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrNoBalance: nothing to act on.
	ErrNoBalance = errors.New("no balance")
)
