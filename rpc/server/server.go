package server

import (
	"context"
	"github.com/ValentinKolb/revit-mcp/lib/revit"
	"github.com/ValentinKolb/revit-mcp/rpc/common"
	"github.com/ValentinKolb/revit-mcp/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"net"
)

var Logger = logger.GetLogger(common.LoggerHost)

// NewRPCServer creates a new RPC server that answers the commands of the Revit plug-in
// with the given service. It is used as a mock host when no Revit instance is available.
//
// Usage:
//
//	t, _ := tcp.NewTCPServerTransport(config)
//	s := server.NewRPCServer(config, t, revit.NewSampleModel())
//
//	if err := s.Serve(ctx); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	service revit.IRevitService,
) *RPCServer {
	Logger.Infof("Created RPC Server")
	Logger.Debugf(config.String())

	return &RPCServer{
		config:    config,
		transport: transport,
		service:   service,
	}
}

// RPCServer is the host side of the socket protocol
type RPCServer struct {
	config    common.ServerConfig
	transport transport.IRPCServerTransport
	service   revit.IRevitService
}

func (s *RPCServer) registerTransportHandler() {
	s.transport.RegisterHandler(NewHostHandler(s.service))
}

// Listen binds the transport and returns the address, use it to find a port chosen by the system
func (s *RPCServer) Listen() (net.Addr, error) {
	return s.transport.Listen()
}

// Serve starts the RPC server and blocks until the context is canceled
func (s *RPCServer) Serve(ctx context.Context) error {
	// Configure the transport layer
	s.registerTransportHandler()

	addr, err := s.transport.Listen()
	if err != nil {
		return err
	}
	Logger.Infof("Serving %d commands on %s", len(revit.Commands), addr)

	return s.transport.Serve(ctx)
}
