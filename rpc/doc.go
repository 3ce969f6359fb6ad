// Package rpc provides the communication layer between the MCP bridge and the
// Revit plug-in, which listens on a plain TCP socket inside the Revit process.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures and utilities used across the RPC system,
//     including the Message protocol, the error taxonomy, configuration structures and logging.
//
//   - transport: Network communication abstractions. The base package implements
//     framing, request correlation and reconnection, the tcp and unix packages the socket connectors.
//
//   - serializer: JSON serialization of Message objects.
//
//   - client: The RPC client implementing revit.IRevitService on top of the transport.
//
//   - server: The MCP server exposing revit.IRevitService as tools, and the host side
//     server used to run a mock plug-in.
package rpc
