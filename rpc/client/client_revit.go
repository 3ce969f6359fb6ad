package client

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/revit-mcp/lib/revit"
	"github.com/ValentinKolb/revit-mcp/rpc/common"
	"github.com/ValentinKolb/revit-mcp/rpc/transport"
)

// NewRPCRevit creates a new RPC IRevitService
// The function takes a util and a transport as parameters
// It tries to connect the transport, if the plug-in is not reachable yet the
// service is returned anyway and connects on the first call
func NewRPCRevit(
	ctx context.Context,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
) (revit.IRevitService, error) {
	if transport == nil {
		return nil, fmt.Errorf("no transport provided")
	}
	config = config.WithDefaults()

	// Connect the transport
	if err := transport.Connect(ctx); err != nil {
		Logger.Warningf("Revit plug-in not reachable on %s, connecting on first use: %v", config.Endpoint, err)
	}

	// Create a new RPC revit service
	r := rpcRevit{
		rpcClientAdapter{
			config:    config,
			transport: transport,
		},
	}

	// Return the RPC revit service
	return &r, nil
}

type rpcRevit struct {
	rpcClientAdapter
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the revit package in interface.go)
// --------------------------------------------------------------------------

func (r *rpcRevit) GetModelInfo(ctx context.Context) (revit.ModelInfo, error) {
	info, err := invokeRPCRequest[revit.ModelInfo](ctx, &r.rpcClientAdapter, revit.CmdGetModelInfo, nil)
	if err != nil && r.config.ModelInfoFallback {
		Logger.Warningf("Failed to get model info, using sample data: %v", err)
		return revit.SampleModelInfo(), nil
	}
	return info, err
}

func (r *rpcRevit) GetElements(ctx context.Context, args revit.GetElementsArgs) ([]revit.Element, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}
	return invokeRPCRequest[[]revit.Element](ctx, &r.rpcClientAdapter, revit.CmdGetElements, args)
}

func (r *rpcRevit) GetLevels(ctx context.Context) ([]revit.Record, error) {
	return invokeRPCRequest[[]revit.Record](ctx, &r.rpcClientAdapter, revit.CmdGetLevels, nil)
}

func (r *rpcRevit) GetViews(ctx context.Context) ([]revit.Record, error) {
	return invokeRPCRequest[[]revit.Record](ctx, &r.rpcClientAdapter, revit.CmdGetViews, nil)
}

func (r *rpcRevit) GetCategories(ctx context.Context) ([]revit.Record, error) {
	return invokeRPCRequest[[]revit.Record](ctx, &r.rpcClientAdapter, revit.CmdGetCategories, nil)
}

func (r *rpcRevit) GetFamilies(ctx context.Context, args revit.GetFamiliesArgs) ([]revit.Record, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}
	return invokeRPCRequest[[]revit.Record](ctx, &r.rpcClientAdapter, revit.CmdGetFamilies, args)
}

func (r *rpcRevit) GetElementInfo(ctx context.Context, args revit.GetElementInfoArgs) (revit.Record, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}
	// the plug-in expects both flags to be set
	return invokeRPCRequest[revit.Record](ctx, &r.rpcClientAdapter, revit.CmdGetElementInfo, args.WithDefaults())
}

func (r *rpcRevit) Close() error {
	return r.transport.Close()
}
