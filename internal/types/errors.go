package types

import "errors"

// Sentinel errors returned by the market core. The HTTP layer maps these to
// status codes; callers use errors.Is to branch on them.
var (
	// ErrInvalidOrder indicates malformed order input (non-positive amount
	// or price, unknown side, expiry in the past).
	ErrInvalidOrder = errors.New("invalid order")

	// ErrInvalidAmount indicates a non-positive transfer or energy amount.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrNotFound indicates an unknown order, trade or account.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a duplicate account registration.
	ErrAlreadyExists = errors.New("already exists")

	// ErrForbidden indicates the requester does not own the target resource.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidState indicates the operation is not valid for the entity's
	// current status, e.g. cancelling a completed order.
	ErrInvalidState = errors.New("invalid state")

	// ErrInsufficientFunds indicates a transfer would drive a balance negative.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrConflict indicates optimistic re-validation failed during settlement.
	// The losing operation observes this, never a half-applied entity.
	ErrConflict = errors.New("conflict")

	// ErrInternal indicates a persistence or transaction failure.
	ErrInternal = errors.New("internal error")
)

// Retryable reports whether the caller may reasonably retry the operation.
// The core itself never retries; retry policy belongs to the caller.
func Retryable(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrInternal)
}
