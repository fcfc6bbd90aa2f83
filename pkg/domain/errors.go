package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned for caller-fixable input problems
	// (unknown transport kind, missing target, empty batch).
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConfigNotFound is returned by a ConfigStore that has never been saved to.
	ErrConfigNotFound = errors.New("transport config not found")

	// ErrChannel is returned when a delivery medium fails (transient or environmental).
	ErrChannel = errors.New("delivery channel failed")

	// ErrTransportUnavailable is returned when the prerequisite resource of a
	// channel is absent. The remedy is switching channels, not retrying.
	ErrTransportUnavailable = errors.New("transport unavailable")
)

// TransportError is the only error shape a channel lets cross its contract
// boundary. Reason is safe to show to the reviewer; Cause is kept for logs.
type TransportError struct {
	Transport Kind
	Reason    string
	Cause     error
	kind      error
}

// NewChannelError reports a failure inside the delivery medium.
func NewChannelError(kind Kind, reason string, cause error) *TransportError {
	return &TransportError{Transport: kind, Reason: reason, Cause: cause, kind: ErrChannel}
}

// NewUnavailableError reports that the channel's prerequisite resource is absent.
func NewUnavailableError(kind Kind, reason string, cause error) *TransportError {
	return &TransportError{Transport: kind, Reason: reason, Cause: cause, kind: ErrTransportUnavailable}
}

func (e *TransportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Transport, e.kind, e.Reason, e.Cause)
	}
	return fmt.Sprintf("%s: %s: %s", e.Transport, e.kind, e.Reason)
}

// Unwrap exposes both the sentinel kind and the underlying cause to errors.Is/As.
func (e *TransportError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.kind}
	}
	return []error{e.kind, e.Cause}
}

// UserMessage returns the message that may be shown to the end user.
// The underlying cause is deliberately left out.
func (e *TransportError) UserMessage() string {
	return fmt.Sprintf("%s: %s", e.Transport, e.Reason)
}

// UserMessage extracts a user-safe description from any error produced by
// the core. Unknown errors collapse to a generic message.
func UserMessage(err error) string {
	var te *TransportError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &te):
		return te.UserMessage()
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound):
		return err.Error()
	default:
		return "internal error"
	}
}
