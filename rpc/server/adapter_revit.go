package server

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/ValentinKolb/revit-mcp/lib/revit"
	"github.com/ValentinKolb/revit-mcp/rpc/transport"
)

func NewRevitServerAdapter() IRPCServerAdapter {
	return &revitServerAdapterImpl{}
}

type revitServerAdapterImpl struct{}

func (adapter *revitServerAdapterImpl) Handle(ctx context.Context, command string, args json.RawMessage, service revit.IRevitService) (json.RawMessage, error) {
	// Check for nil service
	if service == nil {
		return nil, fmt.Errorf("handler: service is nil")
	}

	// Handle the different commands
	switch command {
	case revit.CmdGetModelInfo:
		return respond(service.GetModelInfo(ctx))
	case revit.CmdGetElements:
		a, err := decodeArgs[revit.GetElementsArgs](args)
		if err != nil {
			return nil, err
		}
		return respond(service.GetElements(ctx, a))
	case revit.CmdGetLevels:
		return respond(service.GetLevels(ctx))
	case revit.CmdGetViews:
		return respond(service.GetViews(ctx))
	case revit.CmdGetCategories:
		return respond(service.GetCategories(ctx))
	case revit.CmdGetFamilies:
		a, err := decodeArgs[revit.GetFamiliesArgs](args)
		if err != nil {
			return nil, err
		}
		return respond(service.GetFamilies(ctx, a))
	case revit.CmdGetElementInfo:
		a, err := decodeArgs[revit.GetElementInfoArgs](args)
		if err != nil {
			return nil, err
		}
		return respond(service.GetElementInfo(ctx, a))
	default:
		return nil, fmt.Errorf("%w: %s", revit.ErrUnknownCommand, command)
	}
}

// NewHostHandler adapts a revit service to the handler of a host side transport
func NewHostHandler(service revit.IRevitService) transport.ServerHandleFunc {
	adapter := NewRevitServerAdapter()
	return func(ctx context.Context, command string, args json.RawMessage) (json.RawMessage, error) {
		return adapter.Handle(ctx, command, args, service)
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// decodeArgs decodes the arguments of a command, missing arguments decode to the zero value
func decodeArgs[T any](args json.RawMessage) (T, error) {
	var a T
	if len(args) == 0 || string(args) == "null" {
		return a, nil
	}
	if err := json.Unmarshal(args, &a); err != nil {
		return a, fmt.Errorf("%w: %v", revit.ErrInvalidArgument, err)
	}
	return a, nil
}

// respond encodes the result of a service call
func respond(v any, err error) (json.RawMessage, error) {
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}
