// Package base provides the foundation of the socket transport between the MCP bridge
// and the Revit plug-in, independent of the specific network protocol. It is extended
// with protocol-specific connectors (see package tcp).
//
// The package focuses on:
//   - Framing of JSON messages (newline delimited or length prefixed) on a byte stream
//   - Correlation of responses to requests by id, responses may arrive in any order
//   - Per request deadlines and failing all pending requests when the connection drops
//   - Bounded reconnection with a fixed interval after an unexpected close
//
// Key Components:
//
//   - FrameCodec: Turns messages into frames and a chunked byte stream back into
//     messages. Malformed frames are reported and skipped, an oversized frame is fatal
//     for the connection.
//
//   - pendingTable: Maps correlation ids to completion handles. It is backed by a
//     concurrent map, so registering and resolving unrelated ids never contend.
//     Every handle completes exactly once: by a response, an error response,
//     its deadline or the loss of the connection.
//
//   - connManager: Owns the socket and the state machine
//     (Disconnected, Connecting, Connected, Closing). A single reader goroutine per
//     connection feeds the codec, writes are serialized by a mutex.
//
//   - clientTransport: The request dispatcher. Assigns ids, registers pending calls,
//     writes the frames and routes responses back to the callers. Calls are traced with
//     OpenTelemetry and counted with VictoriaMetrics metrics.
//
//   - serverTransport: The host side of the protocol, used by the mock host. It accepts
//     connections and handles the requests of every connection with a bounded worker pool.
//
// Thread Safety:
//
//	All public methods are thread-safe. Calls may be issued from any number of
//	goroutines, the state of the connection is only changed by the connection manager.
package base
