package util

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/revit-mcp/lib/revit"
	"github.com/ValentinKolb/revit-mcp/rpc/client"
	"github.com/ValentinKolb/revit-mcp/rpc/common"
	"github.com/ValentinKolb/revit-mcp/rpc/transport"
	"github.com/ValentinKolb/revit-mcp/rpc/transport/tcp"
	"github.com/ValentinKolb/revit-mcp/rpc/transport/unix"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"net"
	"strconv"
	"strings"
	"time"
)

const (
	// Version of the revit-mcp binary, reported to MCP clients
	Version = "0.4.1"

	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupRPCClientFlags adds the flags to reach the Revit plug-in to a command
func SetupRPCClientFlags(cmd *cobra.Command) {
	defaults := common.DefaultClientConfig()

	key := "transport"
	cmd.PersistentFlags().String(key, "tcp", WrapString("The transport to reach the plug-in with (tcp, unix)"))

	key = "socket"
	cmd.PersistentFlags().String(key, "", WrapString("The socket path of the plug-in, required for the unix transport"))

	key = "host"
	cmd.PersistentFlags().String(key, "127.0.0.1", WrapString("The host the Revit plug-in listens on (env REVIT_HOST)"))

	key = "port"
	cmd.PersistentFlags().Int(key, 8080, WrapString("The port the Revit plug-in listens on (env REVIT_PORT)"))

	key = "timeout"
	cmd.PersistentFlags().Duration(key, defaults.RequestTimeout, WrapString("How long to wait for the response to a single command"))

	key = "connect-timeout"
	cmd.PersistentFlags().Duration(key, defaults.ConnectTimeout, WrapString("How long a single connection attempt may take"))

	key = "framing"
	cmd.PersistentFlags().String(key, string(common.FramingNewline), WrapString("How messages are delimited on the socket (newline, length)"))

	key = "max-frame-size"
	cmd.PersistentFlags().Int(key, defaults.Transport.MaxFrameSize, WrapString("The largest accepted message in bytes, larger messages break the connection"))

	key = "serial-requests"
	cmd.PersistentFlags().Bool(key, false, WrapString("Only send one command at a time and match responses without an id to it. Needed for plug-ins that do not echo the request id"))

	key = "reconnect-interval"
	cmd.PersistentFlags().Duration(key, defaults.Transport.Reconnect.Interval, WrapString("The pause between two reconnection attempts after the connection was lost"))

	key = "reconnect-attempts"
	cmd.PersistentFlags().Int(key, defaults.Transport.Reconnect.MaxAttempts, WrapString("How many times to try to reconnect before the plug-in is considered unreachable (0 disables reconnection)"))

	key = "tcp-nodelay"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to enable TCP_NODELAY on the socket"))

	key = "tcp-keepalive"
	cmd.PersistentFlags().Int(key, 0, WrapString("The keepalive interval of the socket (in seconds, 0 uses the system default)"))

	key = "model-info-fallback"
	cmd.PersistentFlags().Bool(key, false, WrapString("Return sample model info if the plug-in can not be queried"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "info", WrapString("LogLevel is the level at which logs will be output to stderr (debug, info, warn, error)"))
}

// InitClientConfig initializes configuration from environment variables
func InitClientConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("revit")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetClientConfig reads client configuration from viper and applies the log level
func GetClientConfig() (common.ClientConfig, error) {
	if err := common.InitLoggers(viper.GetString("log-level")); err != nil {
		return common.ClientConfig{}, err
	}

	framing, err := common.ParseFraming(viper.GetString("framing"))
	if err != nil {
		return common.ClientConfig{}, err
	}

	// on the command line 0 means no reconnection, the library uses 0 for the default
	reconnectAttempts := viper.GetInt("reconnect-attempts")
	switch {
	case reconnectAttempts < 0:
		return common.ClientConfig{}, fmt.Errorf("invalid reconnect attempts %d", reconnectAttempts)
	case reconnectAttempts == 0:
		reconnectAttempts = common.ReconnectDisabled
	}

	endpoint, err := getEndpoint()
	if err != nil {
		return common.ClientConfig{}, err
	}

	conf := common.ClientConfig{
		Endpoint:          endpoint,
		RequestTimeout:    viper.GetDuration("timeout"),
		ConnectTimeout:    viper.GetDuration("connect-timeout"),
		ModelInfoFallback: viper.GetBool("model-info-fallback"),
		Transport: common.ClientTransportConfig{
			Framing:        framing,
			MaxFrameSize:   viper.GetInt("max-frame-size"),
			SerialRequests: viper.GetBool("serial-requests"),
			Reconnect: common.ReconnectConf{
				Interval:    viper.GetDuration("reconnect-interval"),
				MaxAttempts: reconnectAttempts,
			},
			TCPConf: common.TCPConf{
				TCPNoDelay:      viper.GetBool("tcp-nodelay"),
				TCPKeepAliveSec: viper.GetInt("tcp-keepalive"),
			},
		},
	}

	return conf.WithDefaults(), nil
}

// getEndpoint returns the socket path for the unix transport and host:port otherwise
func getEndpoint() (string, error) {
	switch viper.GetString("transport") {
	case "tcp":
		port := viper.GetInt("port")
		if port <= 0 || port > 65535 {
			return "", fmt.Errorf("invalid port %d", port)
		}
		return net.JoinHostPort(viper.GetString("host"), strconv.Itoa(port)), nil
	case "unix":
		if viper.GetString("socket") == "" {
			return "", fmt.Errorf("the unix transport requires a socket path")
		}
		return viper.GetString("socket"), nil
	default:
		return "", fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}

// GetTransport creates the client transport based on configuration
func GetTransport(config common.ClientConfig) (transport.IRPCClientTransport, error) {
	switch viper.GetString("transport") {
	case "tcp":
		return tcp.NewTCPClientTransport(config)
	case "unix":
		return unix.NewUnixClientTransport(config)
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}

// NewRevitService creates the RPC backed Revit service from the viper configuration.
// The returned transport is the one used by the service, it is closed together with the service.
func NewRevitService(ctx context.Context) (revit.IRevitService, transport.IRPCClientTransport, error) {
	config, err := GetClientConfig()
	if err != nil {
		return nil, nil, err
	}

	t, err := GetTransport(config)
	if err != nil {
		return nil, nil, err
	}

	connectCtx, cancel := context.WithTimeout(ctx, config.ConnectTimeout+time.Second)
	defer cancel()

	service, err := client.NewRPCRevit(connectCtx, config, t)
	if err != nil {
		_ = t.Close()
		return nil, nil, err
	}
	return service, t, nil
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
