package domain

import "fmt"

// Kind classifies an error for retry and display decisions. Retry logic
// must branch on Kind (and Status), never on message text.
type Kind string

const (
	// KindValidation marks bad admin input. Recovered locally by
	// re-prompting with the same field; never fatal.
	KindValidation Kind = "validation"

	// KindAPI marks an upstream chat/model call that failed after
	// exhausting retries, or a structurally malformed response.
	KindAPI Kind = "api"

	// KindNetwork marks a transport-level failure (timeout, connection
	// refused) after exhausting retries.
	KindNetwork Kind = "network"

	// KindInvalidChannel marks a malformed sponsor channel reference,
	// rejected at admin-input time.
	KindInvalidChannel Kind = "invalid_channel"

	// KindUserVisible marks a domain error whose message is shown to the
	// user verbatim, e.g. "model not allowed".
	KindUserVisible Kind = "user_visible"
)

// Error is the single error shape crossing component boundaries.
// Status carries the upstream HTTP status for KindAPI errors (0 when
// not applicable).
type Error struct {
	Kind    Kind
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Validation creates a bad-admin-input error.
func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// API creates an upstream API error. status is 0 for shape errors with
// no HTTP status attached.
func API(status int, message string, err error) *Error {
	return &Error{Kind: KindAPI, Status: status, Message: message, Err: err}
}

// Network creates a transport-level error.
func Network(message string, err error) *Error {
	return &Error{Kind: KindNetwork, Message: message, Err: err}
}

// InvalidChannel creates a malformed-channel error.
func InvalidChannel(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidChannel, Message: fmt.Sprintf(format, args...)}
}

// UserVisible creates an error whose message is shown verbatim.
func UserVisible(message string) *Error {
	return &Error{Kind: KindUserVisible, Message: message}
}

// KindOf returns the Kind of err, or "" for errors outside the taxonomy.
func KindOf(err error) Kind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return ""
}

// Is lets errors.Is match on taxonomy kind via sentinel comparison.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}
