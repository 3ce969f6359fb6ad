package host

import (
	"context"
	"errors"
	"fmt"
	cmdUtil "github.com/ValentinKolb/revit-mcp/cmd/util"
	"github.com/ValentinKolb/revit-mcp/lib/revit"
	"github.com/ValentinKolb/revit-mcp/rpc/common"
	"github.com/ValentinKolb/revit-mcp/rpc/server"
	"github.com/ValentinKolb/revit-mcp/rpc/transport"
	"github.com/ValentinKolb/revit-mcp/rpc/transport/tcp"
	"github.com/ValentinKolb/revit-mcp/rpc/transport/unix"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
	"os/signal"
	"syscall"
)

var (
	hostCmdConfig = &common.ServerConfig{}
	HostCmd       = &cobra.Command{
		Use:   "host",
		Short: "Start a mock Revit plug-in",
		Long: `Start a mock of the Revit plug-in that answers all commands with a small sample office building.
Use it to try the MCP server without a Revit installation. The format of the environment variables is REVIT_<flag> (e.g. REVIT_ENDPOINT=127.0.0.1:8080)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitClientConfig)

	// add flags
	key := "transport"
	HostCmd.PersistentFlags().String(key, "tcp", cmdUtil.WrapString("The transport to listen with (tcp, unix)"))

	key = "endpoint"
	HostCmd.PersistentFlags().String(key, common.DefaultEndpoint, cmdUtil.WrapString("The address on which the mock plug-in will listen (host:port for tcp, a socket path for unix)"))

	key = "framing"
	HostCmd.PersistentFlags().String(key, string(common.FramingNewline), cmdUtil.WrapString("How messages are delimited on the socket (newline, length)"))

	key = "max-frame-size"
	HostCmd.PersistentFlags().Int(key, common.DefaultMaxFrameSize, cmdUtil.WrapString("The largest accepted message in bytes"))

	key = "workers"
	HostCmd.PersistentFlags().Int(key, 4, cmdUtil.WrapString("How many commands of one connection are handled at the same time"))

	key = "log-level"
	HostCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	framing, err := common.ParseFraming(viper.GetString("framing"))
	if err != nil {
		return err
	}

	hostCmdConfig.Endpoint = viper.GetString("endpoint")
	hostCmdConfig.Framing = framing
	hostCmdConfig.MaxFrameSize = viper.GetInt("max-frame-size")
	hostCmdConfig.MaxWorkersPerConn = viper.GetInt("workers")
	hostCmdConfig.LogLevel = viper.GetString("log-level")

	if hostCmdConfig.MaxWorkersPerConn <= 0 {
		return fmt.Errorf("workers must be positive, got %d", hostCmdConfig.MaxWorkersPerConn)
	}

	return common.InitLoggers(hostCmdConfig.LogLevel)
}

// run starts the mock plug-in and blocks until a signal is received
func run(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var t transport.IRPCServerTransport
	var err error
	switch viper.GetString("transport") {
	case "tcp":
		t, err = tcp.NewTCPServerTransport(*hostCmdConfig)
	case "unix":
		t, err = unix.NewUnixServerTransport(*hostCmdConfig)
	default:
		err = fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
	if err != nil {
		return err
	}

	model := revit.NewSampleModel()
	serv := server.NewRPCServer(*hostCmdConfig, t, model)

	defer model.Close()

	if err := serv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
