package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Defaults
// --------------------------------------------------------------------------

const (
	// DefaultRequestTimeout is the deadline of a single request if none is given
	DefaultRequestTimeout = 30 * time.Second
	// DefaultConnectTimeout bounds a single dial attempt
	DefaultConnectTimeout = 5 * time.Second
	// DefaultReconnectInterval is the fixed delay between two reconnection attempts
	DefaultReconnectInterval = 5 * time.Second
	// DefaultReconnectAttempts is the number of reconnection attempts after an unexpected close
	DefaultReconnectAttempts = 5
	// ReconnectDisabled as MaxAttempts turns reconnection off
	ReconnectDisabled = -1
	// DefaultMaxFrameSize is the largest frame accepted by the codec (16 MiB)
	DefaultMaxFrameSize = 16 * 1024 * 1024
	// DefaultEndpoint is the address of the Revit plug-in
	DefaultEndpoint = "127.0.0.1:8080"
)

// Framing selects how messages are delimited on the wire
type Framing string

const (
	// FramingNewline terminates every JSON document with a single '\n'
	FramingNewline Framing = "newline"
	// FramingLength prefixes every JSON document with its length (4 bytes, big endian)
	FramingLength Framing = "length"
)

// ParseFraming converts a string into a Framing
func ParseFraming(s string) (Framing, error) {
	switch Framing(strings.ToLower(strings.TrimSpace(s))) {
	case FramingNewline, "":
		return FramingNewline, nil
	case FramingLength:
		return FramingLength, nil
	default:
		return "", fmt.Errorf("invalid framing %q: must be one of newline, length", s)
	}
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

// TCPConf holds socket options for TCP connections
type TCPConf struct {
	TCPNoDelay      bool
	TCPKeepAliveSec int
}

// ReconnectConf holds the reconnection policy
type ReconnectConf struct {
	// Interval is the fixed delay before every reconnection attempt
	Interval time.Duration
	// MaxAttempts bounds the attempts after an unexpected close.
	// 0 uses DefaultReconnectAttempts, ReconnectDisabled (any negative value) turns reconnection off.
	MaxAttempts int
}

// ClientTransportConfig holds the settings of the client transport
type ClientTransportConfig struct {
	Framing      Framing
	MaxFrameSize int
	// SerialRequests allows only one request in flight, responses without id
	// are then attributed to that request
	SerialRequests bool
	Reconnect      ReconnectConf
	TCPConf
}

// ClientConfig holds all configuration parameters of the client
type ClientConfig struct {
	Endpoint       string
	RequestTimeout time.Duration
	ConnectTimeout time.Duration
	Transport      ClientTransportConfig

	// ModelInfoFallback returns the sample model info if the host can not be queried
	ModelInfoFallback bool
}

// DefaultClientConfig returns a client configuration with all defaults applied
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Endpoint:       DefaultEndpoint,
		RequestTimeout: DefaultRequestTimeout,
		ConnectTimeout: DefaultConnectTimeout,
		Transport: ClientTransportConfig{
			Framing:      FramingNewline,
			MaxFrameSize: DefaultMaxFrameSize,
			Reconnect: ReconnectConf{
				Interval:    DefaultReconnectInterval,
				MaxAttempts: DefaultReconnectAttempts,
			},
			TCPConf: TCPConf{TCPNoDelay: true},
		},
	}
}

// WithDefaults returns a copy of the config where all unset values are replaced by the defaults
func (c ClientConfig) WithDefaults() ClientConfig {
	d := DefaultClientConfig()
	if c.Endpoint == "" {
		c.Endpoint = d.Endpoint
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = d.RequestTimeout
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = d.ConnectTimeout
	}
	if c.Transport.Framing == "" {
		c.Transport.Framing = d.Transport.Framing
	}
	if c.Transport.MaxFrameSize <= 0 {
		c.Transport.MaxFrameSize = d.Transport.MaxFrameSize
	}
	if c.Transport.Reconnect.Interval <= 0 {
		c.Transport.Reconnect.Interval = d.Transport.Reconnect.Interval
	}
	if c.Transport.Reconnect.MaxAttempts == 0 {
		c.Transport.Reconnect.MaxAttempts = d.Transport.Reconnect.MaxAttempts
	} else if c.Transport.Reconnect.MaxAttempts < 0 {
		c.Transport.Reconnect.MaxAttempts = ReconnectDisabled
	}
	return c
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Endpoint", c.Endpoint)
	addField("Request Timeout", c.RequestTimeout.String())
	addField("Connect Timeout", c.ConnectTimeout.String())
	addField("Model Info Fallback", strconv.FormatBool(c.ModelInfoFallback))

	// Transport
	addSection("Transport")
	addField("Framing", string(c.Transport.Framing))
	addField("Max Frame Size", fmt.Sprintf("%d bytes", c.Transport.MaxFrameSize))
	addField("Serial Requests", strconv.FormatBool(c.Transport.SerialRequests))
	addField("TCP No Delay", strconv.FormatBool(c.Transport.TCPNoDelay))
	addField("TCP Keep Alive", fmt.Sprintf("%d sec", c.Transport.TCPKeepAliveSec))

	// Reconnection
	addSection("Reconnect")
	addField("Interval", c.Transport.Reconnect.Interval.String())
	if c.Transport.Reconnect.MaxAttempts < 0 {
		addField("Max Attempts", "disabled")
	} else {
		addField("Max Attempts", strconv.Itoa(c.Transport.Reconnect.MaxAttempts))
	}

	return sb.String()
}

// --------------------------------------------------------------------------
// Host (server side) configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds the configuration of the host side transport (mock host)
type ServerConfig struct {
	Endpoint          string
	Framing           Framing
	MaxFrameSize      int
	MaxWorkersPerConn int

	// Logging configuration
	LogLevel string
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Host")
	addField("Endpoint", c.Endpoint)
	addField("Framing", string(c.Framing))
	addField("Max Frame Size", fmt.Sprintf("%d bytes", c.MaxFrameSize))
	addField("Workers Per Conn", strconv.Itoa(c.MaxWorkersPerConn))

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}
