package circulation

import "errors"

// Failure kinds returned by the circulation core. Business rejections
// (ErrNoCopiesAvailable, ErrInvalidState, ErrNotFound) are ordinary typed
// results: they are never swallowed and never retried, since a retry on a
// non-idempotent write could double-apply a checkout or return.
var (
	ErrValidation         = errors.New("invalid request")
	ErrNoCopiesAvailable  = errors.New("no copies available")
	ErrNotFound           = errors.New("not found")
	ErrInvalidState       = errors.New("loan already returned")
	ErrTransactionFailure = errors.New("transaction failed")
)

// KindOf maps an error to its stable machine-checkable kind. Anything
// unrecognized reports as a transaction failure, the only non-business kind.
func KindOf(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNoCopiesAvailable):
		return "no_copies_available"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	default:
		return "transaction_failure"
	}
}
