package relay

import (
	"errors"
	"fmt"
)

// codedError is a sentinel carrying a stable code for log summaries.
type codedError struct {
	code string
	msg  string
}

func (e *codedError) Error() string { return e.msg }

// Code returns the machine-readable error code.
func (e *codedError) Code() string { return e.code }

var (
	// ErrMalformedCommand means the reply command lacks the "<id> <text>" shape.
	ErrMalformedCommand error = &codedError{code: "MALFORMED_COMMAND", msg: "relay: malformed reply command"}
	// ErrInvalidIdentifier means the target token is not a non-negative integer.
	ErrInvalidIdentifier error = &codedError{code: "INVALID_IDENTIFIER", msg: "relay: invalid user identifier"}
	// ErrRecipientUnknown means the target never wrote to the bot (or was forgotten).
	ErrRecipientUnknown error = &codedError{code: "RECIPIENT_UNKNOWN", msg: "relay: recipient not found among active contacts"}
	// ErrNotAdministrator means a non-admin issued an admin-only command.
	ErrNotAdministrator error = &codedError{code: "NOT_ADMINISTRATOR", msg: "relay: command is restricted to administrators"}
	// ErrNoAdminReached means an inbound message reached none of the administrators.
	ErrNoAdminReached error = &codedError{code: "NO_ADMIN_REACHED", msg: "relay: no administrator reached"}
	// ErrOutcomeUnknown means a send was abandoned while the transport call was
	// still in flight, so the message may or may not have arrived.
	ErrOutcomeUnknown error = &codedError{code: "OUTCOME_UNKNOWN", msg: "relay: send outcome unknown"}
)

// DeliveryError reports that the transport rejected a send.
type DeliveryError struct {
	Recipient int64
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("relay: delivery to %d failed: %v", e.Recipient, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Code returns the machine-readable error code.
func (e *DeliveryError) Code() string {
	if errors.Is(e.Err, ErrOutcomeUnknown) {
		return "DELIVERY_UNCONFIRMED"
	}
	return "DELIVERY_FAILURE"
}

// IsOutcomeUnknown reports whether err is a send that may still have been delivered.
func IsOutcomeUnknown(err error) bool {
	return errors.Is(err, ErrOutcomeUnknown)
}

// IsDeliveryFailure reports whether err wraps a *DeliveryError.
func IsDeliveryFailure(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de)
}
