package transport

import (
	"context"
	"encoding/json"
	"net"
	"time"
)

// --------------------------------------------------------------------------
// Connection State
// --------------------------------------------------------------------------

// State is the state of the connection of a client transport
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
	Closing
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Closing:
		return "closing"
	default:
		return "unknown"
	}
}

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc is a function type that handles incoming requests
// This function is called by a server transport layer when a request is received
// It takes the command name and its raw arguments and returns the raw result
// A returned error is sent back to the client as an error response
type ServerHandleFunc func(ctx context.Context, command string, args json.RawMessage) (result json.RawMessage, err error)

// IRPCServerTransport is the interface for the host side of the socket protocol
type IRPCServerTransport interface {
	// RegisterHandler registers a handler for the transport layer
	// This handler is called for every request frame received
	RegisterHandler(handler ServerHandleFunc)
	// Listen creates the listener and returns the address it is bound to
	Listen() (net.Addr, error)
	// Serve accepts connections until the context is canceled or Close is called
	Serve(ctx context.Context) error
	// Close stops the listener and closes all open connections
	Close() error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// ICallHandle is the completion handle of a dispatched request
type ICallHandle interface {
	// ID returns the correlation id of the request
	ID() string
	// Command returns the command name of the request
	Command() string
	// Done is closed once the request completed (response, error, timeout or connection loss)
	Done() <-chan struct{}
	// Result returns the raw result or the error of the request, it blocks until Done is closed
	Result() (json.RawMessage, error)
}

// IRPCClientTransport is the interface for the RPC client transport
type IRPCClientTransport interface {
	// Connect establishes the connection, it is a no-op if the transport is already connected
	Connect(ctx context.Context) error
	// Call sends a command and waits for the matching response
	// A timeout <= 0 selects the configured default timeout
	Call(ctx context.Context, command string, args any, timeout time.Duration) (json.RawMessage, error)
	// CallAsync sends a command and returns a handle that completes with the matching response
	CallAsync(ctx context.Context, command string, args any, timeout time.Duration) (ICallHandle, error)
	// State returns the current connection state
	State() State
	// Close closes the transport connection, all pending calls fail with ErrConnectionLost
	Close() error
}
