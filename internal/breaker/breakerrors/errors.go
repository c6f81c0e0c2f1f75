// Package breakerrors defines the typed error taxonomy every public
// coldsnap operation returns through. Callers map each Kind to an exit
// code or a user-facing message; no cloud-SDK error crosses the
// orchestrator boundary unwrapped.
package breakerrors

import "fmt"

// Kind discriminates the five error categories the core can surface.
type Kind string

const (
	Configuration Kind = "configuration"
	Authentication Kind = "authentication"
	Service       Kind = "service"
	State         Kind = "state"
	UserCancelled Kind = "user-cancelled"
)

// Error wraps an underlying cause with a Kind so callers can map it to
// an exit code without string-matching the message.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(kind Kind, op, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Cause: cause}
}

// Configurationf builds a configuration-kind error (missing/malformed
// inputs reaching the core).
func Configurationf(op, format string, args ...any) error {
	return newError(Configuration, op, fmt.Sprintf(format, args...), nil)
}

// Authenticationf builds an authentication-kind error (session refuses
// to vend a client, or a client returns a credential-scope error).
func Authenticationf(op string, cause error, format string, args ...any) error {
	return newError(Authentication, op, fmt.Sprintf(format, args...), cause)
}

// Servicef builds a service-kind error (a cloud-API failure that
// reached the core outside a per-resource fan-out).
func Servicef(op string, cause error, format string, args ...any) error {
	return newError(Service, op, fmt.Sprintf(format, args...), cause)
}

// WrapService wraps a raw AWS SDK error surfaced by a driver call into
// a service-kind error naming both the operation and the resource it
// was acting on.
func WrapService(op, resource string, cause error) error {
	return newError(Service, op, fmt.Sprintf("operation on %s failed", resource), cause)
}

// Statef builds a state-kind error (snapshot parse/integrity failure,
// missing original-state entry, unreadable snapshot directory).
func Statef(op string, cause error, format string, args ...any) error {
	return newError(State, op, fmt.Sprintf(format, args...), cause)
}

// Cancelled builds the marker error surfaced when the orchestrator
// observes the cancellation flag and returns a partial result set.
func Cancelled(op string) error {
	return newError(UserCancelled, op, "operation cancelled by user", nil)
}

// Is lets errors.Is(err, breakerrors.Service) etc. work by comparing
// Kind rather than identity.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// KindSentinel returns a zero-value *Error of the given kind, usable
// with errors.Is(err, breakerrors.KindSentinel(breakerrors.Service)).
func KindSentinel(k Kind) error {
	return &Error{Kind: k}
}
