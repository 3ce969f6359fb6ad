// Package revit defines the read-only view of a Revit model that is exposed to MCP clients.
//
// IRevitService is implemented by the RPC client (rpc/client), which forwards every
// method as a command to the Revit plug-in, and by SampleModel, a small in-memory office
// building used by the mock host and the tests.
//
// Results that the plug-in returns without a fixed shape (levels, views, categories,
// families, element info) are passed through as Record values.
package revit
