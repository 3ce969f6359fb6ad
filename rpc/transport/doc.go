// Package transport defines the interfaces and abstractions for the socket
// protocol spoken between the MCP bridge and the Revit plug-in. It provides a
// common contract that all transport implementations must fulfill.
//
// The package focuses on:
//   - Defining clear interfaces for client and host side transport layers
//   - Correlating requests and responses by id, never by arrival order
//   - Exposing the connection state without giving access to the socket
//
// Key Components:
//
//   - IRPCClientTransport: Interface for client-side transport implementations that
//     handles connection management, reconnection and request dispatching.
//
//   - ICallHandle: Completion handle of a single request, returned by CallAsync.
//
//   - IRPCServerTransport: Interface for host side transport implementations that
//     receive requests and route them to a handler (used by the mock host).
//
//   - ServerHandleFunc: Function type for request handling callbacks.
//
//   - State: Connection state (Disconnected, Connecting, Connected, Closing).
package transport
