// Package cmd implements the command-line interface of revit-mcp.
//
// The package is organized into several subpackages:
//
//   - serve: Runs the MCP server on stdio and forwards tool calls to the Revit plug-in
//   - query: Commands to query the plug-in directly (model-info, levels, elements, call, ...)
//   - host: Runs a mock plug-in serving a sample model, useful without a Revit installation
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// All settings can also be given as environment variables with the prefix REVIT_
// (e.g. REVIT_HOST, REVIT_PORT), .env and .env.local files are read on startup.
//
// See revit-mcp -help for a list of all commands.
package cmd
