package base

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/ValentinKolb/revit-mcp/rpc/common"
	"github.com/ValentinKolb/revit-mcp/rpc/serializer"
	"github.com/ValentinKolb/revit-mcp/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"sync/atomic"
	"time"
)

var Logger = logger.GetLogger(common.LoggerTransport)

// tracerName is the instrumentation scope of the spans created by the client transport
const tracerName = "github.com/ValentinKolb/revit-mcp/rpc/transport"

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// clientTransport is the request dispatcher. It turns calls into request frames,
// correlates the responses by id and completes the waiting callers.
// It is independent of the specific transport medium (tcp, ...).
type clientTransport struct {
	connector IClientConnector
	config    common.ClientConfig
	codec     *FrameCodec // only used for Encode, the receive side uses one codec per connection
	manager   *connManager
	pending   *pendingTable
	metrics   *transportMetrics
	tracer    trace.Tracer

	nextRequestID atomic.Uint64 // Atomic counter for unique request IDs
	closed        atomic.Bool

	// serial is a semaphore with one slot, nil unless only one request may be in flight
	serial chan struct{}
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, ...)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new client transport with the specified connector.
// The transport does not connect until Connect or the first call.
func NewBaseClientTransport(connector IClientConnector, config common.ClientConfig) (transport.IRPCClientTransport, error) {
	return newClientTransport(connector, config)
}

func newClientTransport(connector IClientConnector, config common.ClientConfig) (*clientTransport, error) {
	if connector == nil {
		return nil, fmt.Errorf("no connector provided")
	}
	config = config.WithDefaults()

	newCodec := func() (*FrameCodec, error) {
		codec, err := NewFrameCodec(config.Transport.Framing, serializer.NewJSONSerializer(), config.Transport.MaxFrameSize)
		if err != nil {
			return nil, err
		}
		// with one request in flight, a bare payload can only be its result
		if config.Transport.SerialRequests {
			codec.AcceptBarePayloads()
		}
		return codec, nil
	}
	codec, err := newCodec()
	if err != nil {
		return nil, err
	}

	t := &clientTransport{
		connector: connector,
		config:    config,
		codec:     codec,
		pending:   newPendingTable(),
		metrics:   newTransportMetrics(config.Endpoint),
		tracer:    otel.Tracer(tracerName),
	}
	if config.Transport.SerialRequests {
		t.serial = make(chan struct{}, 1)
	}
	t.pending.onExpire = func(call *pendingCall) {
		Logger.Warningf("Request %s (%s) timed out after %s", call.id, call.command, call.deadline.Sub(call.issuedAt))
	}
	t.manager = &connManager{
		connector: connector,
		config:    config,
		newCodec:  newCodec,
		metrics:   t.metrics,
		onMessage: t.handleMessage,
		onLost:    t.handleLost,
	}
	return t, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(ctx context.Context) error {
	if t.closed.Load() {
		return common.ErrClientClosed
	}
	return t.manager.Connect(ctx)
}

func (t *clientTransport) Call(ctx context.Context, command string, args any, timeout time.Duration) (json.RawMessage, error) {
	ctx, span := t.tracer.Start(ctx, "revit.call "+command,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("revit.command", command),
			attribute.String("revit.endpoint", t.config.Endpoint),
		),
	)
	defer span.End()

	call, err := t.dispatch(ctx, command, args, timeout)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("revit.request_id", call.id))

	var result json.RawMessage
	select {
	case <-call.Done():
		result, err = call.Result()
	case <-ctx.Done():
		// the caller gave up, the late response is dropped as unsolicited
		if t.pending.Reject(call.id, ctx.Err()) {
			err = ctx.Err()
		} else {
			result, err = call.Result()
		}
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	return result, nil
}

func (t *clientTransport) CallAsync(ctx context.Context, command string, args any, timeout time.Duration) (transport.ICallHandle, error) {
	call, err := t.dispatch(ctx, command, args, timeout)
	if err != nil {
		return nil, err
	}
	return call, nil
}

func (t *clientTransport) State() transport.State {
	return t.manager.State()
}

func (t *clientTransport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	return t.manager.Close()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// dispatch registers a new pending call and writes the request frame.
// The deadline of the call starts before the frame is written, so it also bounds
// an implicit connect. If the frame can not be written, the call is removed again.
func (t *clientTransport) dispatch(ctx context.Context, command string, args any, timeout time.Duration) (*pendingCall, error) {
	if t.closed.Load() {
		return nil, common.ErrClientClosed
	}
	if command == "" {
		return nil, fmt.Errorf("%w: empty command name", common.ErrEncodeFailure)
	}
	if timeout <= 0 {
		timeout = t.config.RequestTimeout
	}

	rawArgs, err := marshalArgs(args)
	if err != nil {
		t.metrics.request(command, time.Now(), errKindEncode)
		return nil, err
	}

	// Generate a unique request ID
	id := common.FormatID(t.nextRequestID.Add(1))
	frame, err := t.codec.Encode(common.NewRequest(id, command, rawArgs))
	if err != nil {
		t.metrics.request(command, time.Now(), errKindEncode)
		return nil, err
	}

	if t.serial != nil {
		select {
		case t.serial <- struct{}{}:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	call, err := t.pending.Register(string(id), command, timeout)
	if err != nil {
		t.releaseSerial()
		return nil, err
	}
	go t.observe(call)

	if err := t.manager.Send(ctx, frame); err != nil {
		t.pending.Reject(call.id, err)
		return nil, err
	}
	Logger.Debugf("Sent request %s (%s, %d bytes)", call.id, command, len(frame))
	return call, nil
}

// observe waits for the call to complete, records its metrics and frees the serial slot
func (t *clientTransport) observe(call *pendingCall) {
	<-call.Done()
	_, err := call.Result()
	t.metrics.request(call.command, call.issuedAt, errKind(err))
	t.releaseSerial()
}

func (t *clientTransport) releaseSerial() {
	if t.serial != nil {
		<-t.serial
	}
}

// handleMessage routes a decoded message to the waiting caller (called by the reader goroutine)
func (t *clientTransport) handleMessage(msg *common.Message) {
	if msg.IsRequest() {
		Logger.Warningf("Ignoring request frame (%s) sent by the remote host", msg.Command)
		return
	}

	id := string(msg.ID)
	if id == "" {
		single, ok := "", false
		if t.serial != nil {
			single, ok = t.pending.Single()
		}
		if !ok {
			t.metrics.unsolicited()
			Logger.Warningf("Dropping response without id")
			return
		}
		id = single
	}

	var matched bool
	if msg.IsError() {
		matched = t.pending.RejectRemote(id, string(msg.Error))
	} else {
		matched = t.pending.Resolve(id, msg.Result)
	}

	if !matched {
		t.metrics.unsolicited()
		Logger.Warningf("Dropping response for unknown or expired request id %s", id)
	}
}

// handleLost fails every pending call once the connection is gone
func (t *clientTransport) handleLost(err error) {
	if n := t.pending.DrainAll(err); n > 0 {
		Logger.Warningf("Failed %d pending requests: %v", n, err)
	}
}

// marshalArgs serializes the call arguments. Raw JSON is passed through.
func marshalArgs(args any) (json.RawMessage, error) {
	switch a := args.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		if len(a) > 0 && !json.Valid(a) {
			return nil, fmt.Errorf("%w: arguments are not valid json", common.ErrEncodeFailure)
		}
		return a, nil
	}

	b, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrEncodeFailure, err)
	}
	return b, nil
}

// errKind classifies an error for the error metrics
func errKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, common.ErrConnectFailure):
		return errKindConnect
	case errors.Is(err, common.ErrCommandRejected):
		return errKindRejected
	case errors.Is(err, common.ErrTimeout):
		return errKindTimeout
	case errors.Is(err, common.ErrConnectionLost):
		return errKindLost
	case errors.Is(err, common.ErrEncodeFailure):
		return errKindEncode
	default:
		return errKindOther
	}
}
