package client

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/ValentinKolb/revit-mcp/rpc/common"
	"github.com/ValentinKolb/revit-mcp/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	Logger = logger.GetLogger(common.LoggerRPC)
)

// rpcClientAdapter is a struct that stores all data needed for an implementation of an RPC client
type rpcClientAdapter struct {
	config    common.ClientConfig
	transport transport.IRPCClientTransport
}

// invokeRPCRequest is a helper function used by the RPC client to send requests
// It sends the command with its arguments and decodes the result into T
// Errors of the transport are returned unchanged, so callers can classify them with errors.Is
func invokeRPCRequest[T any](ctx context.Context, a *rpcClientAdapter, command string, args any) (T, error) {
	var result T

	// Send the command and wait for the response
	raw, err := a.transport.Call(ctx, command, args, a.config.RequestTimeout)
	if err != nil {
		return result, err
	}

	// A null result decodes to the zero value
	if len(raw) == 0 {
		return result, nil
	}

	// Decode the result
	if err := json.Unmarshal(raw, &result); err != nil {
		return result, fmt.Errorf("%w: unexpected result of %s: %v", common.ErrDecodeFailure, command, err)
	}
	return result, nil
}
