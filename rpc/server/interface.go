package server

import (
	"context"
	"encoding/json"
	"github.com/ValentinKolb/revit-mcp/lib/revit"
)

// IRPCServerAdapter is the interface for all RPC server adapters
// It is responsible for handling requests of the host side transport
type IRPCServerAdapter interface {
	// Handle handles a request and returns the raw result
	// It takes the command name, its raw arguments and the service that executes it
	// A returned error is sent back to the client as an error response
	Handle(ctx context.Context, command string, args json.RawMessage, service revit.IRevitService) (json.RawMessage, error)
}
