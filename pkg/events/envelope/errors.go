package envelope

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPayload means the message is not a JSON object. Never retried.
	ErrInvalidPayload = errors.New("invalid event payload")
	// ErrMissingField means eventType or aggregateId is absent or blank. Never retried.
	ErrMissingField = errors.New("missing required event field")
	// ErrSerialization is returned by the encoder when the payload cannot be rendered.
	ErrSerialization = errors.New("failed to serialize domain event")
)

type Kind int

const (
	KindInvalidPayload Kind = iota + 1
	KindMissingField
)

// DecodeError describes why a message could not be decoded.
type DecodeError struct {
	Kind  Kind
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	switch e.Kind {
	case KindMissingField:
		return fmt.Sprintf("%s: %s", ErrMissingField, e.Field)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", ErrInvalidPayload, e.Err)
		}
		return ErrInvalidPayload.Error()
	}
}

// Unwrap exposes the sentinel for the kind together with the parse error.
func (e *DecodeError) Unwrap() []error {
	sentinel := ErrInvalidPayload
	if e.Kind == KindMissingField {
		sentinel = ErrMissingField
	}
	if e.Err != nil {
		return []error{sentinel, e.Err}
	}
	return []error{sentinel}
}
