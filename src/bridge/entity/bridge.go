// Package entity contains the domain types for the repl-bridge daemon.
package entity

import (
	"fmt"
	"sync/atomic"

	"github.com/gofrs/uuid"
)

// Protocol identifies the wire protocol spoken by a REPL connection.
type Protocol string

const (
	// ProtocolNrepl is the length-framed bencode protocol with sessions.
	ProtocolNrepl Protocol = "nrepl"
	// ProtocolPrepl is the line-oriented EDN protocol without sessions.
	ProtocolPrepl Protocol = "prepl"
)

// ConnInfo describes one live REPL connection.
type ConnInfo struct {
	Host     string   `json:"host" zap:"host"`
	Port     int      `json:"port" zap:"port"`
	Protocol Protocol `json:"protocol" zap:"protocol"`
	// Session is the server-assigned nREPL session id. Empty for prepl.
	Session string `json:"session,omitempty" zap:"session"`
}

// Addr returns the host:port string for dialing.
func (c ConnInfo) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RequestKind enumerates the operations a Request can carry.
type RequestKind string

const (
	// RequestEval submits code for evaluation.
	RequestEval RequestKind = "eval"
	// RequestInterrupt asks the server to cancel an outstanding eval.
	RequestInterrupt RequestKind = "interrupt"
	// RequestClone asks an nREPL server for a fresh session.
	RequestClone RequestKind = "clone"
	// RequestClose ends the session before the socket is closed.
	RequestClose RequestKind = "close"
)

// Request is one editor-originated operation against the REPL server.
// ID is the wire-level correlation key, unique for the process lifetime.
type Request struct {
	UUID   uuid.UUID
	ID     string
	Kind   RequestKind
	Code   string
	File   string
	Line   int
	Column int
	// InterruptID names the eval to cancel. Set only for RequestInterrupt.
	InterruptID string
}

var requestCounter uint64

// NextRequestID returns a process-unique wire id as a decimal string.
func NextRequestID() string {
	return fmt.Sprintf("%d", atomic.AddUint64(&requestCounter, 1))
}

// FragmentKind enumerates the kinds of response fragments a REPL emits.
type FragmentKind string

const (
	// FragmentValue carries the printed result of an evaluation.
	FragmentValue FragmentKind = "value"
	// FragmentOut carries stdout text.
	FragmentOut FragmentKind = "out"
	// FragmentErr carries stderr text.
	FragmentErr FragmentKind = "err"
	// FragmentException carries a digested exception message and trace.
	FragmentException FragmentKind = "exception"
	// FragmentDone marks the terminal fragment of a request.
	FragmentDone FragmentKind = "done"
	// FragmentNewSession carries the session id of an nREPL clone response.
	FragmentNewSession FragmentKind = "new-session"
	// FragmentConnClosed is synthesized when the socket reaches EOF or the
	// decoder gives up on the byte stream. Never produced by the server.
	FragmentConnClosed FragmentKind = "conn-closed"
)

// Fragment is one asynchronous piece of a REPL response.
type Fragment struct {
	// RequestID correlates the fragment to a Request. Empty for prepl
	// fragments and for synthetic fragments.
	RequestID string
	Kind      FragmentKind
	Text      string
	Namespace string
}

// OutputChunk is one stdout/stderr piece retained in arrival order.
type OutputChunk struct {
	Kind FragmentKind
	Text string
}

// PendingEval accumulates the fragments of an outstanding eval Request
// until its terminal fragment is observed.
type PendingEval struct {
	Request Request
	// Seq orders pending evals by creation so interrupt can target the
	// logically oldest one.
	Seq       uint64
	Chunks    []OutputChunk
	Value     string
	Namespace string
	Exception string
}

// CommandKind enumerates the inbound editor command surface.
type CommandKind string

const (
	// CommandEval evaluates a code fragment.
	CommandEval CommandKind = "eval"
	// CommandInterrupt cancels the oldest outstanding eval, when supported.
	CommandInterrupt CommandKind = "interrupt"
	// CommandStop shuts the bridge down.
	CommandStop CommandKind = "stop"
)

// Command is a fire-and-forget notification from the editor layer.
type Command struct {
	Kind   CommandKind
	File   string
	Line   int
	Column int
	Code   string
}

// DispatcherState tracks the lifecycle of the command dispatcher.
type DispatcherState string

const (
	// StateDisconnected is the initial state before a start is requested.
	StateDisconnected DispatcherState = "disconnected"
	// StateConnecting covers dialing and the protocol handshake.
	StateConnecting DispatcherState = "connecting"
	// StateReady is the steady-state event loop.
	StateReady DispatcherState = "ready"
	// StateStopping covers socket and sink teardown after a stop command.
	StateStopping DispatcherState = "stopping"
	// StateStopped is the terminal state of an orderly shutdown.
	StateStopped DispatcherState = "stopped"
	// StateFailed is the terminal state after an unrecoverable error.
	StateFailed DispatcherState = "failed"
)
