// Package serializer provides message serialization for the Revit socket
// transport. It defines a common interface and the JSON implementation used on
// the wire.
//
// The package focuses on:
//   - Providing a consistent interface for the frame codec of the transport
//   - Producing compact single-line JSON so that a newline can delimit frames
//   - Rejecting anything that is not a JSON object before it reaches the dispatcher
//
// Key Components:
//
//   - IRPCSerializer: Core interface that all serializer implementations must satisfy.
//
//   - jsonSerializerImpl: Implementation using encoding/json. The Revit plug-in
//     speaks UTF-8 JSON, there is no other format on this wire.
//
// Thread Safety:
//
//	All serializer implementations are stateless and safe for concurrent use
//	across multiple goroutines without additional synchronization.
//
// Usage:
//
//	serializer := serializer.NewJSONSerializer()
//	data, err := serializer.Serialize(*common.NewRequest("1", "get_levels", nil))
//	// ... frame and send data ...
//	var receivedMsg common.Message
//	err = serializer.Deserialize(receivedData, &receivedMsg)
package serializer
