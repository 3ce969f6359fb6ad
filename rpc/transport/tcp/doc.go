// Package tcp implements the TCP socket transport between the MCP bridge and the Revit plug-in.
// It provides concrete implementations of the base package's connector interfaces.
//
// This package builds on the base package's transport functionality, inheriting its
// framing, request correlation and reconnection logic. See the base package documentation
// for detailed information on the underlying transport mechanisms.
//
// Key Components:
//
//   - clientConnector: TCP-specific implementation of base.IClientConnector, dials with
//     the connect timeout and applies TCPNoDelay and keep-alive settings
//
//   - serverConnector: TCP-specific implementation of base.IServerConnector, used by the
//     mock host and the tests
package tcp
