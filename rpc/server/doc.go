// Package server implements both ends that face away from the socket transport:
// the MCP server that AI assistants talk to, and the host side RPC server that
// answers the commands of the Revit plug-in.
//
// Key Components:
//
//   - NewMCPServer: Creates the MCP server "revit-mcp-server". Every IRevitService query is
//     exposed as a tool (get_categories, get_families, get_elements, get_levels, get_views,
//     get_element_info) and the model info as the resource revit://current/model-info.
//     Tool results are pretty printed JSON, failures are returned as tool errors with the
//     message of the plug-in.
//
//   - IRPCServerAdapter: Interface defining the contract for all server adapters,
//     with the Handle method that executes a command against a revit.IRevitService.
//
//   - NewHostHandler: Adapts a revit.IRevitService to the handler of a host side transport.
//
//   - NewRPCServer: Creates a host with the specified transport, used to run the sample
//     model as a mock plug-in.
//
// Usage Example:
//
//	// Connect to the plug-in
//	t, _ := tcp.NewTCPClientTransport(config)
//	service, _ := client.NewRPCRevit(ctx, config, t)
//
//	// Serve MCP on stdio
//	s := server.NewMCPServer(service, version)
//	if err := s.Run(ctx, &mcp.StdioTransport{}); err != nil {
//	  panic(err)
//	}
package server
