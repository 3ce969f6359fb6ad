// Package unix implements the socket transport over Unix domain sockets.
// It is meant for plug-ins or bridges running on the same machine as the MCP server.
//
// The package only provides the connectors, framing, request correlation
// and reconnection are inherited from the base package:
//
//   - clientConnector: Dials the socket path given as endpoint
//
//   - serverConnector: Listens on the socket path, a stale socket file is removed first
package unix
