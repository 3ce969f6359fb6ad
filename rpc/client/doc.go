// Package client implements the RPC client of the Revit plug-in.
// It provides an implementation of the revit.IRevitService interface that
// forwards every method as a command over the socket transport.
//
// The package focuses on:
//   - Mapping the service methods to the wire commands of the plug-in
//   - Decoding the results into the types of the revit package
//   - Passing transport errors through, so callers can classify them with errors.Is
//
// Usage Example:
//
//	// Configure the client
//	config := common.DefaultClientConfig()
//	config.Endpoint = "127.0.0.1:8080"
//
//	// Create the transport and the service
//	t, _ := tcp.NewTCPClientTransport(config)
//	service, _ := client.NewRPCRevit(ctx, config, t)
//	defer service.Close()
//
//	// Use the service
//	levels, err := service.GetLevels(ctx)
//	if errors.Is(err, common.ErrCommandRejected) {
//	  // the plug-in answered with an error
//	}
//
// Thread Safety:
//
//	The client is thread-safe, calls from several goroutines are multiplexed
//	over the single connection of the transport.
package client
