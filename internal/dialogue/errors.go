package dialogue

import "errors"

// Validation failure kinds. Each maps to a non-fatal re-prompt: the engine
// asks the same question again instead of aborting the turn.
var (
	ErrInvalidService    = errors.New("dialogue: invalid service")
	ErrInvalidLocation   = errors.New("dialogue: invalid location")
	ErrInvalidTimeFormat = errors.New("dialogue: invalid time format")
	ErrTimeOutsideHours  = errors.New("dialogue: time outside operating hours")
	ErrInvalidDateFormat = errors.New("dialogue: invalid date format")
	ErrInvalidContact    = errors.New("dialogue: invalid contact")

	// ErrSessionNotFound is returned by session stores for unknown ids.
	ErrSessionNotFound = errors.New("dialogue: session not found")

	// ErrGeneratorUnavailable marks a failed or timed-out generator call.
	ErrGeneratorUnavailable = errors.New("dialogue: generator unavailable")
)

// ValidationError wraps a validation failure kind together with the reply the
// user should see.
type ValidationError struct {
	Field Field
	Reply string
	kind  error
}

func (e *ValidationError) Error() string { return e.kind.Error() }

func (e *ValidationError) Unwrap() error { return e.kind }

func newValidationError(field Field, kind error, reply string) *ValidationError {
	return &ValidationError{Field: field, Reply: reply, kind: kind}
}

// invalidFor maps a field to its plain invalid-value error.
func invalidFor(f Field) *ValidationError {
	switch f {
	case FieldService:
		return newValidationError(f, ErrInvalidService, replyInvalidService)
	case FieldLocation:
		return newValidationError(f, ErrInvalidLocation, replyInvalidLocation)
	case FieldTime:
		return newValidationError(f, ErrInvalidTimeFormat, replyInvalidTime)
	case FieldDate:
		return newValidationError(f, ErrInvalidDateFormat, replyInvalidDate)
	default:
		return newValidationError(f, ErrInvalidContact, replyInvalidContact)
	}
}
