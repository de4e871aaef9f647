package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPort   = errors.New("port must be between 1 and 65535")
	ErrNilListener   = errors.New("transaction listener is required")
	ErrServerStarted = errors.New("server already started")
)

// BindError means the listening socket could not be acquired. It is fatal
// to startup and never retried.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("failed to bind %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// DecodeError means inbound bytes were not valid in the configured charset.
// Only the affected connection is closed.
type DecodeError struct {
	Peer string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode input from %s: %v", e.Peer, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// WriteFailure is logged when the fixed response could not be delivered.
// It never reaches the listener and never closes the connection.
type WriteFailure struct {
	Peer    string
	Payload string
	Err     error
}

func (e *WriteFailure) Error() string {
	return fmt.Sprintf("failed sending response %q to %s: %v", e.Payload, e.Peer, e.Err)
}

func (e *WriteFailure) Unwrap() error { return e.Err }
