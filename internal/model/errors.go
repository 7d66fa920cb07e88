package model

import "errors"

// Error classes for relay failures. Call sites wrap these with
// fmt.Errorf("...: %w", err) so callers can branch with errors.Is.
var (
	// ErrAuth means a source or destination credential was rejected.
	ErrAuth = errors.New("invalid or expired credential")

	// ErrChannelNotFound means the source channel does not exist or the
	// bot is not a member of it.
	ErrChannelNotFound = errors.New("channel not found or not accessible")

	// ErrForbidden means the destination refused delivery to the
	// configured recipient.
	ErrForbidden = errors.New("recipient refused or not reachable")

	// ErrTransient means a network or rate-limit failure that may
	// succeed on retry.
	ErrTransient = errors.New("transient network failure")

	// ErrPersistence means the watermark could not be saved after a
	// fully delivered batch. The next run will re-deliver that batch.
	ErrPersistence = errors.New("state persistence failed")
)

// Classify names the error class of err for diagnostics. Errors outside
// the relay taxonomy classify as a plain "Error".
func Classify(err error) string {
	switch {
	case errors.Is(err, ErrAuth):
		return "AuthError"
	case errors.Is(err, ErrChannelNotFound):
		return "ChannelNotFoundError"
	case errors.Is(err, ErrForbidden):
		return "ForbiddenError"
	case errors.Is(err, ErrTransient):
		return "TransientNetworkError"
	case errors.Is(err, ErrPersistence):
		return "PersistenceError"
	default:
		return "Error"
	}
}
