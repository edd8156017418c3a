// Package errors defines the error taxonomy of the bridge.
package errors

import (
	"errors"
	"fmt"

	"github.com/replbridge/replbridge/src/bridge/entity"
)

// New returns an error that formats as the given text.
func New(text string) error {
	return errors.New(text)
}

// HandshakeFailedError indicates that no session or response arrived within
// the timeout during connection setup. Fatal to the connect attempt.
type HandshakeFailedError struct {
	Protocol entity.Protocol
	Reason   string
}

// Error is an implementation of the error interface.
func (e *HandshakeFailedError) Error() string {
	return fmt.Sprintf("%s handshake failed: %s", e.Protocol, e.Reason)
}

// ConnectionClosedError indicates socket EOF or a write failure. Fatal to
// the current connection; all pending evals must be discarded.
type ConnectionClosedError struct {
	Op  string
	Err error
}

// Error is an implementation of the error interface.
func (e *ConnectionClosedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("connection closed during %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("connection closed during %s", e.Op)
}

// Unwrap exposes the underlying socket error.
func (e *ConnectionClosedError) Unwrap() error {
	return e.Err
}

// MalformedMessageError indicates a codec decode failure. The connection is
// unusable afterwards since the framing cannot be resynchronized.
type MalformedMessageError struct {
	Protocol entity.Protocol
	Detail   string
}

// Error is an implementation of the error interface.
func (e *MalformedMessageError) Error() string {
	return fmt.Sprintf("malformed %s message: %s", e.Protocol, e.Detail)
}

// RequestNotFoundError indicates that no pending eval exists for an id.
type RequestNotFoundError struct {
	ID string
}

// Error is an implementation of the error interface.
func (e *RequestNotFoundError) Error() string {
	return fmt.Sprintf("no pending eval for request id %q", e.ID)
}

// UnsupportedOperationError indicates that the connection's protocol has no
// primitive for the requested operation.
type UnsupportedOperationError struct {
	Protocol entity.Protocol
	Op       string
}

// Error is an implementation of the error interface.
func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("%s does not support %s", e.Protocol, e.Op)
}
