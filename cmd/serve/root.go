package serve

import (
	"context"
	"errors"
	cmdUtil "github.com/ValentinKolb/revit-mcp/cmd/util"
	"github.com/ValentinKolb/revit-mcp/rpc/common"
	"github.com/ValentinKolb/revit-mcp/rpc/server"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

var (
	ServeCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server on stdio",
		Long: `Start the MCP server on stdin/stdout. Tool calls are forwarded to the Revit plug-in.
The configuration can be set via command line flags or environment variables. The format of the environment variables is REVIT_<flag> (e.g. REVIT_PORT=8080)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitClientConfig)

	// add flags
	cmdUtil.SetupRPCClientFlags(ServeCmd)

	key := "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("If set, the transport metrics are exposed in the Prometheus format on this address (e.g. 127.0.0.1:9100)"))
}

// processConfig binds the command line flags to viper
func processConfig(cmd *cobra.Command, _ []string) error {
	return cmdUtil.BindCommandFlags(cmd)
}

// run starts the MCP server and blocks until stdin is closed or a signal is received
func run(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	service, _, err := cmdUtil.NewRevitService(ctx)
	if err != nil {
		return err
	}
	defer service.Close()

	log := logger.GetLogger(common.LoggerMCP)
	log.Infof("Starting %s v%s", server.ServerName, cmdUtil.Version)

	group, ctx := errgroup.WithContext(ctx)

	// the MCP session ends when the client closes stdin
	group.Go(func() error {
		defer stop()
		mcpServer := server.NewMCPServer(service, cmdUtil.Version)
		if err := mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if endpoint := viper.GetString("metrics-endpoint"); endpoint != "" {
		metricsServer := &http.Server{
			Addr: endpoint,
			Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				metrics.WritePrometheus(w, true)
			}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		group.Go(func() error {
			log.Infof("Metrics available on http://%s/metrics", endpoint)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		group.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			return metricsServer.Shutdown(shutdownCtx)
		})
	}

	return group.Wait()
}
