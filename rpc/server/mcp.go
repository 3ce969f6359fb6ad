package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/ValentinKolb/revit-mcp/lib/revit"
	"github.com/ValentinKolb/revit-mcp/rpc/common"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var mcpLogger = logger.GetLogger(common.LoggerMCP)

const (
	// ServerName is the name the MCP server reports to clients
	ServerName = "revit-mcp-server"

	// ModelInfoURI is the resource with the info of the open model
	ModelInfoURI = "revit://current/model-info"

	// toolErrorPrefix prefixes the text of failed tool calls
	toolErrorPrefix = "Revit API error: "
)

// toolFunc executes a tool with its raw arguments
type toolFunc func(ctx context.Context, service revit.IRevitService, args json.RawMessage) (any, error)

// toolDef is a tool and the function that executes it
type toolDef struct {
	tool *mcp.Tool
	fn   toolFunc
}

// objectSchema returns a JSON schema of an object with the given properties
func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// idListSchema is the schema of a list of element ids
func idListSchema(description string) map[string]any {
	return map[string]any{
		"type":        "array",
		"description": description,
		"items":       map[string]any{"type": []string{"string", "integer"}},
	}
}

// revitTools returns the tools exposed by the MCP server
func revitTools() []toolDef {
	return []toolDef{
		{
			tool: &mcp.Tool{
				Name:        revit.CmdGetCategories,
				Description: "Get all categories of the Revit model",
				InputSchema: objectSchema(map[string]any{}),
			},
			fn: func(ctx context.Context, s revit.IRevitService, _ json.RawMessage) (any, error) {
				return s.GetCategories(ctx)
			},
		},
		{
			tool: &mcp.Tool{
				Name:        revit.CmdGetFamilies,
				Description: "Get all families of the Revit model",
				InputSchema: objectSchema(map[string]any{
					"categoryId": map[string]any{"type": "string", "description": "Category id of the families (optional)"},
					"name":       map[string]any{"type": "string", "description": "Filter by family name (optional)"},
				}),
			},
			fn: func(ctx context.Context, s revit.IRevitService, raw json.RawMessage) (any, error) {
				args, err := decodeArgs[revit.GetFamiliesArgs](raw)
				if err != nil {
					return nil, err
				}
				return s.GetFamilies(ctx, args)
			},
		},
		{
			tool: &mcp.Tool{
				Name:        revit.CmdGetElements,
				Description: "Get elements of the Revit model",
				InputSchema: objectSchema(map[string]any{
					"categoryIds": idListSchema("Ids of the categories the elements belong to"),
					"viewIds":     idListSchema("Ids of the views the elements are visible in"),
					"levelIds":    idListSchema("Ids of the levels the elements are placed on"),
				}),
			},
			fn: func(ctx context.Context, s revit.IRevitService, raw json.RawMessage) (any, error) {
				args, err := decodeArgs[revit.GetElementsArgs](raw)
				if err != nil {
					return nil, err
				}
				return s.GetElements(ctx, args)
			},
		},
		{
			tool: &mcp.Tool{
				Name:        revit.CmdGetLevels,
				Description: "Get all levels of the Revit model",
				InputSchema: objectSchema(map[string]any{}),
			},
			fn: func(ctx context.Context, s revit.IRevitService, _ json.RawMessage) (any, error) {
				return s.GetLevels(ctx)
			},
		},
		{
			tool: &mcp.Tool{
				Name:        revit.CmdGetViews,
				Description: "Get all views of the Revit model",
				InputSchema: objectSchema(map[string]any{}),
			},
			fn: func(ctx context.Context, s revit.IRevitService, _ json.RawMessage) (any, error) {
				return s.GetViews(ctx)
			},
		},
		{
			tool: &mcp.Tool{
				Name:        revit.CmdGetElementInfo,
				Description: "Get detailed information about a Revit element",
				InputSchema: objectSchema(map[string]any{
					"elementId": map[string]any{"type": "string", "description": "Id of the element"},
					"getItemPropertyInfo": map[string]any{
						"type":        "boolean",
						"description": "Include the properties of the element",
						"default":     true,
					},
					"getItemParameterInfo": map[string]any{
						"type":        "boolean",
						"description": "Include the parameters of the element",
						"default":     false,
					},
				}, "elementId"),
			},
			fn: func(ctx context.Context, s revit.IRevitService, raw json.RawMessage) (any, error) {
				args, err := decodeArgs[revit.GetElementInfoArgs](raw)
				if err != nil {
					return nil, err
				}
				return s.GetElementInfo(ctx, args)
			},
		},
	}
}

// NewMCPServer creates the MCP server that exposes the service as tools and the
// model info as resource. Run it with server.Run(ctx, &mcp.StdioTransport{}).
func NewMCPServer(service revit.IRevitService, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: version}, nil)
	tracer := otel.Tracer("github.com/ValentinKolb/revit-mcp/rpc/server")

	for _, def := range revitTools() {
		server.AddTool(def.tool, toolHandler(tracer, service, def))
	}

	server.AddResource(&mcp.Resource{
		URI:         ModelInfoURI,
		Name:        "Current Revit model",
		MIMEType:    "application/json",
		Description: "Name, path, version and number of elements of the model currently open in Revit",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if req.Params.URI != ModelInfoURI {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}
		info, err := service.GetModelInfo(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get model info: %w", err)
		}
		text, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return nil, err
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{
				URI:      ModelInfoURI,
				MIMEType: "application/json",
				Text:     string(text),
			}},
		}, nil
	})

	mcpLogger.Infof("Created MCP server %s %s with %d tools", ServerName, version, len(revitTools()))
	return server
}

// toolHandler wraps a tool function. Failures are reported as tool results with
// IsError set, so the model can see the message of the plug-in.
func toolHandler(tracer trace.Tracer, service revit.IRevitService, def toolDef) mcp.ToolHandler {
	name := def.tool.Name
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx, span := tracer.Start(ctx, "mcp.tool "+name, trace.WithAttributes(attribute.String("mcp.tool", name)))
		defer span.End()

		result, err := def.fn(ctx, service, req.Params.Arguments)
		if err != nil {
			mcpLogger.Warningf("Tool %s failed: %v", name, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return errorResult(err), nil
		}

		text, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return errorResult(err), nil
		}

		span.SetStatus(codes.Ok, "")
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(text)}},
		}, nil
	}
}

// errorResult creates the result of a failed tool call
func errorResult(err error) *mcp.CallToolResult {
	message := err.Error()
	var rejected *common.CommandRejectedError
	if errors.As(err, &rejected) {
		message = rejected.Message
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: toolErrorPrefix + message}},
		IsError: true,
	}
}
