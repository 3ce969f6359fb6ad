// Package common provides core data structures and utilities shared across
// the Revit MCP bridge. It defines the wire message, the error taxonomy of the
// transport, configuration structures and the logging setup.
//
// The package focuses on:
//   - Message protocol definition for the command/response socket interface
//   - Error taxonomy shared by the transport, the client and the MCP layer
//   - Configuration structures for the client transport and the mock host
//   - Custom logging implementation integrated with Dragonboat's logger package
//
// Key Components:
//
//   - Message: a single frame on the wire. Requests carry id, command and args,
//     responses echo the id and carry either a result or an error. The id is
//     accepted as a JSON string or number.
//
//   - Errors: sentinel errors (ErrConnectFailure, ErrDecodeFailure, ErrCommandRejected,
//     ErrTimeout, ErrConnectionLost, ErrEncodeFailure, ...) and the typed errors
//     CommandRejectedError and TimeoutError. Use errors.Is to classify them.
//
//   - ClientConfig: endpoint, timeouts, framing and reconnection policy of the client.
//
//   - ServerConfig: configuration of the host side transport used by the mock host.
//
//   - Logger: custom formatting for the named Dragonboat loggers. All output goes
//     to stderr since stdout carries the MCP stdio stream.
package common
