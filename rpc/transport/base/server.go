package base

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/revit-mcp/rpc/common"
	"github.com/ValentinKolb/revit-mcp/rpc/serializer"
	"github.com/ValentinKolb/revit-mcp/rpc/transport"
	"io"
	"net"
	"sync"
	"time"
)

// writeTimeout bounds a single response write of the host side transport
const writeTimeout = 10 * time.Second

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates a listener and returns it
	Listen(config common.ServerConfig) (net.Listener, error)

	// GetName returns the name of the transport type (e.g., "tcp")
	GetName() string
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// serverTransport implements the host side of the socket protocol. It accepts
// connections, decodes request frames and answers every request with a response
// carrying the same id. Requests of one connection are handled by a bounded worker pool,
// so responses may be written in a different order than the requests arrived.
type serverTransport struct {
	connector         IServerConnector
	handler           transport.ServerHandleFunc
	config            common.ServerConfig
	maxWorkersPerConn int

	mu       sync.Mutex // Protects the fields below
	listener net.Listener
	conns    map[net.Conn]struct{}
	closed   bool

	wg sync.WaitGroup // connection handlers
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, ...)
// -----------------------------------------------------------

// NewBaseServerTransport creates a new base server transport with per-connection worker pool
func NewBaseServerTransport(connector IServerConnector, config common.ServerConfig) (transport.IRPCServerTransport, error) {
	if config.Framing == "" {
		config.Framing = common.FramingNewline
	}
	if config.MaxFrameSize <= 0 {
		config.MaxFrameSize = common.DefaultMaxFrameSize
	}
	// validate the framing once, the codecs are created per connection
	if _, err := NewFrameCodec(config.Framing, serializer.NewJSONSerializer(), config.MaxFrameSize); err != nil {
		return nil, err
	}

	// minimum one worker per connection
	maxWorkersPerConn := max(config.MaxWorkersPerConn, 1)

	return &serverTransport{
		connector:         connector,
		config:            config,
		maxWorkersPerConn: maxWorkersPerConn,
		conns:             make(map[net.Conn]struct{}),
	}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *serverTransport) Listen() (net.Addr, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.listener != nil {
		return t.listener.Addr(), nil
	}

	// Create listener using the connector
	listener, err := t.connector.Listen(t.config)
	if err != nil {
		return nil, fmt.Errorf("failed to create listener: %v", err)
	}
	t.listener = listener
	return listener.Addr(), nil
}

func (t *serverTransport) Serve(ctx context.Context) error {
	if t.handler == nil {
		return fmt.Errorf("no handler registered")
	}
	if _, err := t.Listen(); err != nil {
		return err
	}

	t.mu.Lock()
	listener := t.listener
	t.mu.Unlock()

	Logger.Infof("Starting %s host on %s with %d workers per connection",
		t.connector.GetName(), listener.Addr(), t.maxWorkersPerConn)

	// Stop accepting once the context is done
	stop := context.AfterFunc(ctx, func() { _ = t.Close() })
	defer stop()

	// Accept connections
	for {
		conn, err := listener.Accept()
		if err != nil {
			if t.isClosed() || errors.Is(err, net.ErrClosed) {
				break
			}
			Logger.Errorf("Accept error: %v", err)
			continue
		}

		if !t.track(conn) {
			_ = conn.Close()
			break
		}

		// Handle the connection in a goroutine
		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			defer t.untrack(conn)
			t.handleConnection(ctx, conn)
		}()
	}

	t.wg.Wait()
	Logger.Infof("Host on %s stopped", listener.Addr())
	return nil
}

func (t *serverTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	listener := t.listener
	conns := make([]net.Conn, 0, len(t.conns))
	for conn := range t.conns {
		conns = append(conns, conn)
	}
	t.mu.Unlock()

	var err error
	if listener != nil {
		err = listener.Close()
	}
	for _, conn := range conns {
		_ = conn.Close()
	}
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (t *serverTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// track registers an accepted connection, it returns false if the transport is closed
func (t *serverTransport) track(conn net.Conn) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	t.conns[conn] = struct{}{}
	return true
}

func (t *serverTransport) untrack(conn net.Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.conns, conn)
}

// handleConnection handles incoming requests for one connection
func (t *serverTransport) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	remote := conn.RemoteAddr()
	Logger.Infof("Client %s connected", remote)

	codec, err := NewFrameCodec(t.config.Framing, serializer.NewJSONSerializer(), t.config.MaxFrameSize)
	if err != nil {
		Logger.Errorf("Failed to create codec: %v", err)
		return
	}

	// Create a semaphore to limit concurrent workers for this connection
	// The buffered channel acts as a counting semaphore
	workerSemaphore := make(chan struct{}, t.maxWorkersPerConn)

	// Create a wait group to wait for all workers to finish
	var wg sync.WaitGroup

	// Create a mutex to protect writes to the connection
	var connMutex sync.Mutex

	// Handler function that processes requests in worker goroutines
	handleRequest := func(req *common.Message) {
		// When done, release the semaphore and mark worker as done
		defer func() {
			<-workerSemaphore // Release semaphore slot
			wg.Done()         // Mark worker as done
		}()

		// Process the request
		start := time.Now()
		result, err := t.handler(ctx, req.Command, req.Args)
		Logger.Debugf("Processed %s (id %s) in %s", req.Command, req.ID, time.Since(start))

		frame, encErr := codec.Encode(common.NewResponse(req.ID, result, err))
		if encErr != nil {
			Logger.Errorf("Failed to encode response for %s (id %s): %v", req.Command, req.ID, encErr)
			frame, encErr = codec.Encode(common.NewResponse(req.ID, nil, encErr))
			if encErr != nil {
				return
			}
		}

		// Protect writes to the connection with a mutex
		connMutex.Lock()
		defer connMutex.Unlock()

		if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			Logger.Errorf("Failed to set write deadline: %v", err)
			return
		}

		// Write the response with the same id
		if _, err := conn.Write(frame); err != nil {
			Logger.Errorf("Failed to write response: %v", err)
		}
	}

	// Read and dispatch requests in a loop
	buf := make([]byte, readBufferSize)
	for {
		n, readErr := conn.Read(buf)
		if n > 0 && !t.dispatchFrames(codec, buf[:n], workerSemaphore, &wg, handleRequest) {
			break
		}

		// Case EOF: Connection closed by client
		if errors.Is(readErr, io.EOF) {
			Logger.Infof("Client %s disconnected", remote)
			break
		}

		// Case error: log and close connection
		if readErr != nil {
			if !t.isClosed() {
				Logger.Errorf("Error reading from %s: %v", remote, readErr)
			}
			break
		}
	}

	// Wait for all workers to finish before closing the connection
	wg.Wait()
}

// dispatchFrames decodes the received bytes and starts a worker for every request.
// It returns false if the stream is broken and the connection must be closed.
func (t *serverTransport) dispatchFrames(codec *FrameCodec, data []byte, sem chan struct{}, wg *sync.WaitGroup, handle func(*common.Message)) bool {
	for msg, err := range codec.Feed(data) {
		if err != nil {
			if errors.Is(err, common.ErrFrameTooLarge) {
				Logger.Errorf("Closing connection: %v", err)
				return false
			}
			Logger.Warningf("Skipping malformed request: %v", err)
			continue
		}
		if !msg.IsRequest() {
			Logger.Warningf("Ignoring frame that is not a request (id %s)", msg.ID)
			continue
		}

		// Acquire a slot in the semaphore (blocks if maxWorkersPerConn is reached)
		sem <- struct{}{}
		wg.Add(1)
		go handle(msg)
	}
	return true
}
