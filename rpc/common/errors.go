package common

import (
	"errors"
	"fmt"
	"time"
)

// --------------------------------------------------------------------------
// Error Taxonomy
// --------------------------------------------------------------------------

// Sentinel errors of the transport. Callers classify errors with errors.Is,
// all errors returned by the transport wrap exactly one of these.
var (
	// ErrConnectFailure is returned when the socket could not be established
	ErrConnectFailure = errors.New("connect failure")
	// ErrDecodeFailure is reported for a frame that is not valid JSON
	ErrDecodeFailure = errors.New("decode failure")
	// ErrCommandRejected is returned when the remote host answered with an error payload
	ErrCommandRejected = errors.New("command rejected")
	// ErrTimeout is returned when no response arrived before the deadline
	ErrTimeout = errors.New("request timed out")
	// ErrConnectionLost is returned when the socket closed before a response arrived
	ErrConnectionLost = errors.New("connection lost")
	// ErrEncodeFailure is returned when the argument payload could not be serialized
	ErrEncodeFailure = errors.New("encode failure")
	// ErrFrameTooLarge is a fatal stream error, the connection can not be resynchronized
	ErrFrameTooLarge = errors.New("frame too large")
	// ErrDuplicateID is returned when a correlation id is already pending
	ErrDuplicateID = errors.New("duplicate request id")
	// ErrUnreachable is reported once the reconnection policy gave up
	ErrUnreachable = errors.New("remote host unreachable")
	// ErrClientClosed is returned for calls on a closed client, it wraps ErrConnectionLost
	ErrClientClosed = fmt.Errorf("client closed: %w", ErrConnectionLost)
)

// CommandRejectedError carries the error message reported by the remote host
type CommandRejectedError struct {
	ID      string
	Command string
	Message string
}

func (e *CommandRejectedError) Error() string {
	return fmt.Sprintf("command %s (id %s) rejected: %s", e.Command, e.ID, e.Message)
}

// Is reports whether target is ErrCommandRejected
func (e *CommandRejectedError) Is(target error) bool {
	return target == ErrCommandRejected
}

// TimeoutError is returned when a pending request expired
type TimeoutError struct {
	ID      string
	Command string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request timed out: %s (id %s) after %s", e.Command, e.ID, e.Timeout)
}

// Is reports whether target is ErrTimeout
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}
