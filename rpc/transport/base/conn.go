package base

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/revit-mcp/rpc/common"
	"github.com/ValentinKolb/revit-mcp/rpc/transport"
	"io"
	"net"
	"sync"
	"time"
)

// readBufferSize is the size of the buffer used for a single socket read
const readBufferSize = 64 * 1024

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection to the endpoint, it must honor the context
	Connect(ctx context.Context, endpoint string) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.ClientConfig) error
}

// -----------------------------------------------------------
// Connection Manager
// -----------------------------------------------------------

// connectAttempt is one running dial. Callers that arrive while it runs wait for it.
type connectAttempt struct {
	done chan struct{}
	err  error
}

// connManager owns the socket and the connection state machine:
//
//	Disconnected --connect--> Connecting --dial ok--> Connected --close/socket error--> Disconnected
//
// It is the only writer of the state. Incoming messages and the loss of the connection are
// reported through the onMessage and onLost callbacks.
type connManager struct {
	connector IClientConnector
	config    common.ClientConfig
	newCodec  func() (*FrameCodec, error)
	metrics   *transportMetrics

	onMessage func(msg *common.Message)
	onLost    func(err error)

	mu              sync.Mutex // Protects all fields below
	state           transport.State
	conn            net.Conn
	attempt         *connectAttempt    // non-nil while Connecting
	closing         bool               // Close was requested, no reconnection
	unreachable     bool               // reconnection policy gave up
	attempts        int                // reconnection attempts since the last successful connect
	reconnectCancel context.CancelFunc // non-nil while a reconnection loop is active
	reconnectGen    uint64

	writeMu sync.Mutex     // Serializes writes, frames must not interleave
	wg      sync.WaitGroup // reader goroutine and reconnection loop
}

// State returns the current connection state
func (m *connManager) State() transport.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Unreachable reports whether the reconnection policy gave up
func (m *connManager) Unreachable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unreachable
}

// Attempts returns the number of reconnection attempts since the last successful connect
func (m *connManager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// Connect establishes the connection. It is a no-op if the manager is already connected
// and joins the running attempt if one is in progress.
func (m *connManager) Connect(ctx context.Context) error {
	return m.connect(ctx, false)
}

// connect implements Connect. fromReconnect is set by the reconnection loop, its attempts
// do not reset the unreachable state. Once Close was requested every attempt is refused.
func (m *connManager) connect(ctx context.Context, fromReconnect bool) error {
	m.mu.Lock()
	switch m.state {
	case transport.Connected:
		m.mu.Unlock()
		return nil
	case transport.Connecting:
		attempt := m.attempt
		m.mu.Unlock()
		select {
		case <-attempt.done:
			return attempt.err
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", common.ErrConnectFailure, ctx.Err())
		}
	case transport.Closing:
		m.mu.Unlock()
		return common.ErrClientClosed
	}

	if m.closing {
		m.mu.Unlock()
		return common.ErrClientClosed
	}
	if !fromReconnect {
		// an explicit connect leaves the terminal unreachable state
		m.unreachable = false
	}
	attempt := &connectAttempt{done: make(chan struct{})}
	m.attempt = attempt
	m.state = transport.Connecting
	m.mu.Unlock()

	Logger.Debugf("Connecting to %s using %s transport", m.config.Endpoint, m.connector.GetName())

	conn, codec, err := m.dial(ctx)

	m.mu.Lock()
	if err == nil && m.closing {
		conn.Close()
		err = common.ErrClientClosed
	}
	if err != nil {
		if m.state == transport.Connecting {
			m.state = transport.Disconnected
		}
		if !errors.Is(err, common.ErrClientClosed) {
			err = fmt.Errorf("%w: %s: %v", common.ErrConnectFailure, m.config.Endpoint, err)
		}
	} else {
		m.state = transport.Connected
		m.conn = conn
		m.attempts = 0
		m.unreachable = false
		// a successful connect cancels any scheduled retry
		if m.reconnectCancel != nil {
			m.reconnectCancel()
			m.reconnectCancel = nil
		}
		m.wg.Add(1)
		go m.readLoop(conn, codec)
	}
	attempt.err = err
	m.attempt = nil
	close(attempt.done)
	m.mu.Unlock()

	if err != nil {
		Logger.Warningf("Failed to connect to %s: %v", m.config.Endpoint, err)
		return err
	}
	m.metrics.connected()
	Logger.Infof("Connected to %s", m.config.Endpoint)
	return nil
}

// dial opens and upgrades a new connection and creates the codec for it
func (m *connManager) dial(ctx context.Context) (net.Conn, *FrameCodec, error) {
	codec, err := m.newCodec()
	if err != nil {
		return nil, nil, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, m.config.ConnectTimeout)
	defer cancel()

	conn, err := m.connector.Connect(dialCtx, m.config.Endpoint)
	if err != nil {
		return nil, nil, err
	}

	// Upgrade the connection with protocol-specific settings
	if err := m.connector.UpgradeConnection(conn, m.config); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to upgrade connection: %v", err)
	}
	return conn, codec, nil
}

// Send writes a complete frame. If the manager is not connected, it connects first and
// fails with ErrConnectFailure if that attempt fails.
func (m *connManager) Send(ctx context.Context, frame []byte) error {
	conn, err := m.liveConn(ctx)
	if err != nil {
		return err
	}

	// Lock the connection only for writing
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if m.config.RequestTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(m.config.RequestTimeout))
	}
	if _, err := conn.Write(frame); err != nil {
		m.dropConn(conn, err)
		return fmt.Errorf("%w: write failed: %v", common.ErrConnectionLost, err)
	}
	return nil
}

// liveConn returns the current connection, connecting first if necessary
func (m *connManager) liveConn(ctx context.Context) (net.Conn, error) {
	for {
		m.mu.Lock()
		if m.state == transport.Connected && m.conn != nil {
			conn := m.conn
			m.mu.Unlock()
			return conn, nil
		}
		m.mu.Unlock()

		if err := m.Connect(ctx); err != nil {
			return nil, err
		}
	}
}

// readLoop reads from the connection until it fails and hands every decoded message to onMessage.
// There is exactly one reader per connection, since frame boundaries can only be found sequentially.
func (m *connManager) readLoop(conn net.Conn, codec *FrameCodec) {
	defer m.wg.Done()

	buf := make([]byte, readBufferSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			for msg, decodeErr := range codec.Feed(buf[:n]) {
				if decodeErr != nil {
					if errors.Is(decodeErr, common.ErrFrameTooLarge) {
						Logger.Errorf("Dropping connection to %s: %v", m.config.Endpoint, decodeErr)
						m.dropConn(conn, decodeErr)
						return
					}
					m.metrics.decodeFailure()
					Logger.Warningf("Skipping malformed frame from %s: %v", m.config.Endpoint, decodeErr)
					continue
				}
				m.onMessage(msg)
			}
		}
		if err != nil {
			m.dropConn(conn, err)
			return
		}
	}
}

// dropConn tears down conn after an unexpected error. Pending calls are failed with
// ErrConnectionLost and, unless Close was requested, the reconnection loop is started.
// It is a no-op if conn is no longer the current connection.
func (m *connManager) dropConn(conn net.Conn, cause error) {
	m.mu.Lock()
	if m.conn != conn {
		m.mu.Unlock()
		_ = conn.Close()
		return
	}
	m.conn = nil
	m.state = transport.Disconnected
	deliberate := m.closing
	m.mu.Unlock()

	_ = conn.Close()
	if deliberate {
		return
	}

	m.metrics.disconnected()
	if errors.Is(cause, io.EOF) {
		Logger.Warningf("Connection to %s closed by remote host", m.config.Endpoint)
	} else {
		Logger.Warningf("Connection to %s lost: %v", m.config.Endpoint, cause)
	}

	m.onLost(fmt.Errorf("%w: %v", common.ErrConnectionLost, cause))
	m.startReconnect()
}

// Close closes the connection, stops the reconnection loop and waits for the background
// goroutines. Pending calls are failed with ErrClientClosed (wrapping ErrConnectionLost).
// Close is final: later connects and sends fail with ErrClientClosed.
func (m *connManager) Close() error {
	m.mu.Lock()
	if m.closing {
		m.mu.Unlock()
		return nil
	}
	m.closing = true
	m.state = transport.Closing
	if m.reconnectCancel != nil {
		m.reconnectCancel()
		m.reconnectCancel = nil
	}
	conn := m.conn
	m.conn = nil
	m.mu.Unlock()

	var err error
	if conn != nil {
		err = conn.Close()
	}
	m.wg.Wait()

	m.mu.Lock()
	m.state = transport.Disconnected
	m.mu.Unlock()

	m.onLost(common.ErrClientClosed)
	Logger.Infof("Connection to %s closed", m.config.Endpoint)
	return err
}
