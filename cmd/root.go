package cmd

import (
	"fmt"
	"github.com/ValentinKolb/revit-mcp/cmd/host"
	"github.com/ValentinKolb/revit-mcp/cmd/query"
	"github.com/ValentinKolb/revit-mcp/cmd/serve"
	"github.com/ValentinKolb/revit-mcp/cmd/util"
	"github.com/spf13/cobra"
	"os"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "revit-mcp",
		Short: "MCP server for Autodesk Revit",
		Long: fmt.Sprintf(`revit-mcp (v%s)

Exposes a running Revit model to MCP clients. Tool calls are forwarded
over a TCP socket to the Revit plug-in and its answers are returned
to the client.`, util.Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of revit-mcp",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("revit-mcp v%s\n", util.Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(query.QueryCommands)
	RootCmd.AddCommand(host.HostCmd)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
