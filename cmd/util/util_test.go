package util

import (
	"github.com/ValentinKolb/revit-mcp/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"strings"
	"testing"
	"time"
)

func TestWrapString(t *testing.T) {
	text := "The keepalive interval of the socket (in seconds, 0 uses the system default)"
	wrapped := WrapString(text)

	for _, line := range strings.Split(wrapped, "\n") {
		if len(line) > Wrap {
			t.Errorf("Line exceeds %d characters: %q", Wrap, line)
		}
	}
	if strings.Join(strings.Fields(wrapped), " ") != text {
		t.Errorf("Wrapping changed the text: %q", wrapped)
	}
}

// newFlagCommand creates a command with the client flags bound to a fresh viper state
func newFlagCommand(t *testing.T, args ...string) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	cmd := &cobra.Command{Use: "test"}
	SetupRPCClientFlags(cmd)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("Failed to parse flags: %v", err)
	}
	if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
		t.Fatalf("Failed to bind flags: %v", err)
	}
}

func TestGetClientConfigDefaults(t *testing.T) {
	newFlagCommand(t)

	config, err := GetClientConfig()
	if err != nil {
		t.Fatalf("GetClientConfig failed: %v", err)
	}

	defaults := common.DefaultClientConfig()
	if config.Endpoint != "127.0.0.1:8080" {
		t.Errorf("Expected endpoint 127.0.0.1:8080, got %s", config.Endpoint)
	}
	if config.RequestTimeout != defaults.RequestTimeout {
		t.Errorf("Expected request timeout %s, got %s", defaults.RequestTimeout, config.RequestTimeout)
	}
	if config.Transport.Framing != common.FramingNewline {
		t.Errorf("Expected newline framing, got %s", config.Transport.Framing)
	}
	if config.Transport.Reconnect != defaults.Transport.Reconnect {
		t.Errorf("Expected reconnect %+v, got %+v", defaults.Transport.Reconnect, config.Transport.Reconnect)
	}
	if !config.Transport.TCPNoDelay {
		t.Errorf("Expected TCP_NODELAY to be enabled")
	}
}

func TestGetClientConfigFlagsAndEnv(t *testing.T) {
	t.Setenv("REVIT_PORT", "9090")
	newFlagCommand(t,
		"--host", "10.0.0.5",
		"--timeout", "2s",
		"--framing", "length",
		"--serial-requests",
		"--reconnect-attempts", "0",
	)
	InitClientConfig()

	config, err := GetClientConfig()
	if err != nil {
		t.Fatalf("GetClientConfig failed: %v", err)
	}
	if config.Endpoint != "10.0.0.5:9090" {
		t.Errorf("Expected endpoint 10.0.0.5:9090, got %s", config.Endpoint)
	}
	if config.RequestTimeout != 2*time.Second {
		t.Errorf("Expected 2s timeout, got %s", config.RequestTimeout)
	}
	if config.Transport.Framing != common.FramingLength {
		t.Errorf("Expected length framing, got %s", config.Transport.Framing)
	}
	if !config.Transport.SerialRequests {
		t.Errorf("Expected serial requests")
	}
	if config.Transport.Reconnect.MaxAttempts != common.ReconnectDisabled {
		t.Errorf("Expected reconnection to be disabled, got %d attempts", config.Transport.Reconnect.MaxAttempts)
	}
}

func TestGetClientConfigInvalid(t *testing.T) {
	newFlagCommand(t, "--framing", "xml")
	if _, err := GetClientConfig(); err == nil {
		t.Errorf("Expected an error for an unknown framing")
	}

	newFlagCommand(t, "--port", "70000")
	if _, err := GetClientConfig(); err == nil {
		t.Errorf("Expected an error for an invalid port")
	}

	newFlagCommand(t, "--transport", "http")
	if _, err := GetClientConfig(); err == nil {
		t.Errorf("Expected an error for an unknown transport")
	}

	newFlagCommand(t, "--transport", "unix")
	if _, err := GetClientConfig(); err == nil {
		t.Errorf("Expected an error for a missing socket path")
	}

	newFlagCommand(t, "--reconnect-attempts", "-1")
	if _, err := GetClientConfig(); err == nil {
		t.Errorf("Expected an error for negative reconnect attempts")
	}

	newFlagCommand(t, "--log-level", "loud")
	if _, err := GetClientConfig(); err == nil {
		t.Errorf("Expected an error for an invalid log level")
	}
}

func TestGetTransport(t *testing.T) {
	newFlagCommand(t, "--transport", "unix", "--socket", "/tmp/revit.sock")

	config, err := GetClientConfig()
	if err != nil {
		t.Fatalf("GetClientConfig failed: %v", err)
	}
	if config.Endpoint != "/tmp/revit.sock" {
		t.Errorf("Expected the socket path as endpoint, got %s", config.Endpoint)
	}

	tr, err := GetTransport(config)
	if err != nil {
		t.Fatalf("GetTransport failed: %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}
