package query

import (
	"encoding/json"
	"fmt"
	"github.com/ValentinKolb/revit-mcp/cmd/util"
	"github.com/ValentinKolb/revit-mcp/lib/revit"
	"github.com/ValentinKolb/revit-mcp/rpc/transport"
	"github.com/spf13/cobra"
	"os"
)

var (
	rpcRevit     revit.IRevitService
	rpcTransport transport.IRPCClientTransport

	// QueryCommands represents the command group that queries the Revit plug-in directly
	QueryCommands = &cobra.Command{
		Use:                "query",
		Short:              "Query the Revit plug-in without an MCP client",
		PersistentPreRunE:  setupRevitClient,
		PersistentPostRunE: closeRevitClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common RPC flags to the revit command
	util.SetupRPCClientFlags(QueryCommands)

	// Add subcommands
	QueryCommands.AddCommand(modelInfoCmd)
	QueryCommands.AddCommand(levelsCmd)
	QueryCommands.AddCommand(viewsCmd)
	QueryCommands.AddCommand(categoriesCmd)
	QueryCommands.AddCommand(familiesCmd)
	QueryCommands.AddCommand(elementsCmd)
	QueryCommands.AddCommand(elementInfoCmd)
	QueryCommands.AddCommand(callCmd)
}

// setupRevitClient initializes the RPC revit client
func setupRevitClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	var err error
	rpcRevit, rpcTransport, err = util.NewRevitService(cmd.Context())
	return err
}

// closeRevitClient closes the connection to the plug-in
func closeRevitClient(_ *cobra.Command, _ []string) error {
	if rpcRevit == nil {
		return nil
	}
	return rpcRevit.Close()
}

// printJSON writes v indented to stdout
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to print result: %w", err)
	}
	return nil
}
