package base

import (
	"bufio"
	"context"
	"encoding/json"
	"github.com/ValentinKolb/revit-mcp/rpc/common"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// --------------------------------------------------------------------------
// Test Connectors
// --------------------------------------------------------------------------

// testConnector dials plain TCP connections
type testConnector struct {
	dialer net.Dialer
}

func (c *testConnector) GetName() string { return "test" }

func (c *testConnector) Connect(ctx context.Context, endpoint string) (net.Conn, error) {
	return c.dialer.DialContext(ctx, "tcp", endpoint)
}

func (c *testConnector) UpgradeConnection(net.Conn, common.ClientConfig) error { return nil }

// recordingConnector is a testConnector that remembers when every dial started
type recordingConnector struct {
	testConnector
	mu    sync.Mutex
	dials []time.Time
}

func (c *recordingConnector) Connect(ctx context.Context, endpoint string) (net.Conn, error) {
	c.mu.Lock()
	c.dials = append(c.dials, time.Now())
	c.mu.Unlock()
	return c.testConnector.Connect(ctx, endpoint)
}

// Dials returns the start times of all dials so far
func (c *recordingConnector) Dials() []time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Time(nil), c.dials...)
}

// testServerConnector listens on plain TCP
type testServerConnector struct{}

func (c *testServerConnector) GetName() string { return "test" }

func (c *testServerConnector) Listen(config common.ServerConfig) (net.Listener, error) {
	return net.Listen("tcp", config.Endpoint)
}

// testClientConfig returns a config with short intervals for the given endpoint
func testClientConfig(endpoint string) common.ClientConfig {
	config := common.DefaultClientConfig()
	config.Endpoint = endpoint
	config.RequestTimeout = 2 * time.Second
	config.ConnectTimeout = time.Second
	config.Transport.Reconnect = common.ReconnectConf{
		Interval:    20 * time.Millisecond,
		MaxAttempts: 3,
	}
	return config
}

// newTestClient creates a client transport that is closed when the test ends
func newTestClient(t *testing.T, config common.ClientConfig) *clientTransport {
	t.Helper()
	return newTestClientWithConnector(t, &testConnector{}, config)
}

// newTestClientWithConnector is newTestClient with a custom connector
func newTestClientWithConnector(t *testing.T, connector IClientConnector, config common.ClientConfig) *clientTransport {
	t.Helper()
	client, err := newClientTransport(connector, config)
	if err != nil {
		t.Fatalf("Failed to create client transport: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

// waitFor polls cond until it is true or the timeout expires
func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("Timeout waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// --------------------------------------------------------------------------
// Fake Host
// --------------------------------------------------------------------------

// fakeHost is a scriptable newline framed host. handle is called for every request,
// sequentially per connection, and decides if and how to answer.
type fakeHost struct {
	listener net.Listener
	handle   func(c *hostConn, req *common.Message)

	mu       sync.Mutex
	conns    []*hostConn
	accepted atomic.Int32

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// hostConn is one connection accepted by the fake host
type hostConn struct {
	conn net.Conn
	mu   sync.Mutex
}

// startFakeHost starts a host on a free loopback port
func startFakeHost(t *testing.T, handle func(c *hostConn, req *common.Message)) *fakeHost {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}

	h := &fakeHost{listener: listener, handle: handle}
	h.wg.Add(1)
	go h.acceptLoop()
	t.Cleanup(h.Close)
	return h
}

func (h *fakeHost) Addr() string {
	return h.listener.Addr().String()
}

func (h *fakeHost) acceptLoop() {
	defer h.wg.Done()
	for {
		conn, err := h.listener.Accept()
		if err != nil {
			return
		}
		c := &hostConn{conn: conn}
		h.mu.Lock()
		h.conns = append(h.conns, c)
		h.mu.Unlock()
		h.accepted.Add(1)

		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			h.readLoop(c)
		}()
	}
}

func (h *fakeHost) readLoop(c *hostConn) {
	scanner := bufio.NewScanner(c.conn)
	for scanner.Scan() {
		req := &common.Message{}
		if err := json.Unmarshal(scanner.Bytes(), req); err != nil {
			continue
		}
		if h.handle != nil {
			h.handle(c, req)
		}
	}
}

// DropConnections closes all accepted connections, the listener keeps running
func (h *fakeHost) DropConnections() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.conns {
		c.conn.Close()
	}
	h.conns = nil
}

// Close stops the listener and closes all connections
func (h *fakeHost) Close() {
	h.closeOnce.Do(func() {
		h.listener.Close()
		h.DropConnections()
		h.wg.Wait()
	})
}

// reply writes a message as a newline terminated JSON document
func (c *hostConn) reply(msg *common.Message) {
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.writeRaw(append(b, '\n'))
}

// writeRaw writes bytes to the connection as they are
func (c *hostConn) writeRaw(b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = c.conn.Write(b)
}

// echo answers every request with its arguments as result
func echo(c *hostConn, req *common.Message) {
	c.reply(common.NewResponse(req.ID, req.Args, nil))
}
