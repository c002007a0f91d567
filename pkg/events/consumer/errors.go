package consumer

import (
	"errors"
	"fmt"
)

var (
	// ErrPermanent marks a message that can never be processed. It is not
	// retried and goes straight to the DLQ.
	ErrPermanent = errors.New("permanent error")

	// ErrRetriesExhausted wraps the last transient error once the retry policy
	// gives up on a message.
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// Outcome is the result of a message that was handled without error.
type Outcome int

const (
	// OutcomeProcessed means the event was claimed and applied.
	OutcomeProcessed Outcome = iota + 1
	// OutcomeDuplicate means another delivery already claimed the event.
	OutcomeDuplicate
	// OutcomeApplyFailed means the event was claimed but the applier failed.
	// The claim is kept and the message is not retried.
	OutcomeApplyFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeProcessed:
		return "processed"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeApplyFailed:
		return "apply_failed"
	default:
		return "unknown"
	}
}

// PanicError is produced when a handler panics.
type PanicError struct {
	Panic any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Panic)
}
