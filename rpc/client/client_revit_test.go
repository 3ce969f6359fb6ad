package client

import (
	"context"
	"errors"
	"github.com/ValentinKolb/revit-mcp/lib/revit"
	"github.com/ValentinKolb/revit-mcp/rpc/common"
	"github.com/ValentinKolb/revit-mcp/rpc/server"
	"github.com/ValentinKolb/revit-mcp/rpc/transport/tcp"
	"net"
	"testing"
	"time"
)

// startSampleHost runs the sample model as mock plug-in and returns its address
func startSampleHost(t *testing.T) string {
	t.Helper()

	config := common.ServerConfig{Endpoint: "127.0.0.1:0", MaxWorkersPerConn: 4}
	hostTransport, err := tcp.NewTCPServerTransport(config)
	if err != nil {
		t.Fatalf("Failed to create host transport: %v", err)
	}

	host := server.NewRPCServer(config, hostTransport, revit.NewSampleModel())
	addr, err := host.Listen()
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		host.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return addr.String()
}

// newTestService creates a revit service for the endpoint
func newTestService(t *testing.T, config common.ClientConfig) revit.IRevitService {
	t.Helper()

	clientTransport, err := tcp.NewTCPClientTransport(config)
	if err != nil {
		t.Fatalf("Failed to create transport: %v", err)
	}
	service, err := NewRPCRevit(context.Background(), config, clientTransport)
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}
	t.Cleanup(func() { service.Close() })
	return service
}

// closedEndpoint returns an address nobody listens on
func closedEndpoint(t *testing.T) string {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	addr := listener.Addr().String()
	listener.Close()
	return addr
}

// TestRPCRevit tests all service methods against the mock host
func TestRPCRevit(t *testing.T) {
	config := common.DefaultClientConfig()
	config.Endpoint = startSampleHost(t)
	service := newTestService(t, config)
	ctx := context.Background()

	info, err := service.GetModelInfo(ctx)
	if err != nil || info.Name != "Office Building.rvt" || info.ElementsCount != 5243 {
		t.Errorf("Unexpected model info %+v (%v)", info, err)
	}

	levels, err := service.GetLevels(ctx)
	if err != nil || len(levels) != 3 {
		t.Errorf("Expected 3 levels, got %d (%v)", len(levels), err)
	}

	views, err := service.GetViews(ctx)
	if err != nil || len(views) != 3 {
		t.Errorf("Expected 3 views, got %d (%v)", len(views), err)
	}

	categories, err := service.GetCategories(ctx)
	if err != nil || len(categories) != 4 {
		t.Errorf("Expected 4 categories, got %d (%v)", len(categories), err)
	}

	families, err := service.GetFamilies(ctx, revit.GetFamiliesArgs{Name: "wall"})
	if err != nil || len(families) != 2 {
		t.Errorf("Expected 2 wall families, got %d (%v)", len(families), err)
	}

	elements, err := service.GetElements(ctx, revit.GetElementsArgs{CategoryIDs: []revit.ID{"-2000023"}})
	if err != nil || len(elements) != 1 || elements[0].Name != "Main Entrance" {
		t.Errorf("Unexpected doors %+v (%v)", elements, err)
	}
	if len(elements) == 1 && elements[0].Parameters["Fire Rating"] != "EI30" {
		t.Errorf("Parameters were not decoded: %v", elements[0].Parameters)
	}

	element, err := service.GetElementInfo(ctx, revit.GetElementInfoArgs{ElementID: "317204"})
	if err != nil {
		t.Fatalf("GetElementInfo failed: %v", err)
	}
	if _, ok := element["properties"]; !ok {
		t.Errorf("Expected properties by default, got %v", element)
	}
}

// TestRPCRevitErrors tests that rejections of the host and invalid arguments are reported
func TestRPCRevitErrors(t *testing.T) {
	config := common.DefaultClientConfig()
	config.Endpoint = startSampleHost(t)
	service := newTestService(t, config)
	ctx := context.Background()

	_, err := service.GetElementInfo(ctx, revit.GetElementInfoArgs{ElementID: "1"})
	if !errors.Is(err, common.ErrCommandRejected) {
		t.Errorf("Expected ErrCommandRejected, got %v", err)
	}

	// invalid arguments are not sent
	_, err = service.GetElementInfo(ctx, revit.GetElementInfoArgs{})
	if !errors.Is(err, revit.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument, got %v", err)
	}
}

// TestModelInfoFallback tests the sample data returned when the plug-in is not reachable
func TestModelInfoFallback(t *testing.T) {
	config := common.DefaultClientConfig()
	config.Endpoint = closedEndpoint(t)
	config.ConnectTimeout = time.Second
	config.Transport.Reconnect.MaxAttempts = common.ReconnectDisabled

	// without fallback the connect failure is returned
	service := newTestService(t, config)
	if _, err := service.GetModelInfo(context.Background()); !errors.Is(err, common.ErrConnectFailure) {
		t.Errorf("Expected ErrConnectFailure, got %v", err)
	}

	// with fallback the sample info is returned
	config.ModelInfoFallback = true
	service = newTestService(t, config)
	info, err := service.GetModelInfo(context.Background())
	if err != nil {
		t.Fatalf("Expected the fallback, got %v", err)
	}
	if info.Name != revit.SampleModelInfo().Name {
		t.Errorf("Unexpected fallback %+v", info)
	}

	// the fallback is only used for the model info
	if _, err := service.GetLevels(context.Background()); !errors.Is(err, common.ErrConnectFailure) {
		t.Errorf("Expected ErrConnectFailure, got %v", err)
	}
}
