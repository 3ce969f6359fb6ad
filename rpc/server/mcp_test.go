package server

import (
	"context"
	"encoding/json"
	"github.com/ValentinKolb/revit-mcp/lib/revit"
	"github.com/ValentinKolb/revit-mcp/rpc/common"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"slices"
	"strings"
	"testing"
)

// rejectingModel is the sample model, but the plug-in rejects every get_levels call
type rejectingModel struct {
	*revit.SampleModel
}

func (m rejectingModel) GetLevels(ctx context.Context) ([]revit.Record, error) {
	return nil, &common.CommandRejectedError{ID: "1", Command: revit.CmdGetLevels, Message: "No document is open"}
}

// connectMCP connects an MCP client to a new server over in-memory transports
func connectMCP(t *testing.T, service revit.IRevitService) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := NewMCPServer(service, "test").Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("Failed to connect server: %v", err)
	}

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("Failed to connect client: %v", err)
	}

	t.Cleanup(func() {
		session.Close()
		serverSession.Wait()
	})
	return session
}

// toolText returns the text of the first content of a tool result
func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatalf("Tool result has no content")
	}
	text, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("Expected text content, got %T", result.Content[0])
	}
	return text.Text
}

// TestMCPListTools tests that all queries are exposed as tools
func TestMCPListTools(t *testing.T) {
	session := connectMCP(t, revit.NewSampleModel())

	result, err := session.ListTools(context.Background(), &mcp.ListToolsParams{})
	if err != nil {
		t.Fatalf("ListTools failed: %v", err)
	}

	var names []string
	for _, tool := range result.Tools {
		names = append(names, tool.Name)
	}
	for _, expected := range []string{"get_categories", "get_families", "get_elements", "get_levels", "get_views", "get_element_info"} {
		if !slices.Contains(names, expected) {
			t.Errorf("Tool %s is missing (got %v)", expected, names)
		}
	}
}

// TestMCPCallTool tests successful tool calls
func TestMCPCallTool(t *testing.T) {
	session := connectMCP(t, revit.NewSampleModel())
	ctx := context.Background()

	result, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "get_levels", Arguments: map[string]any{}})
	if err != nil {
		t.Fatalf("CallTool failed: %v", err)
	}
	if result.IsError {
		t.Fatalf("Unexpected tool error: %s", toolText(t, result))
	}

	text := toolText(t, result)
	var levels []map[string]any
	if err := json.Unmarshal([]byte(text), &levels); err != nil || len(levels) != 3 {
		t.Fatalf("Unexpected levels %s (%v)", text, err)
	}
	if !strings.Contains(text, "\n  ") {
		t.Errorf("Expected pretty printed JSON, got %s", text)
	}

	result, err = session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "get_elements",
		Arguments: map[string]any{"categoryIds": []any{"-2000011"}, "levelIds": []any{311}},
	})
	if err != nil {
		t.Fatalf("CallTool failed: %v", err)
	}
	var elements []revit.Element
	if err := json.Unmarshal([]byte(toolText(t, result)), &elements); err != nil || len(elements) != 3 {
		t.Errorf("Expected 3 walls on level 1, got %d (%v)", len(elements), err)
	}
}

// TestMCPToolErrors tests that failures are returned as tool errors
func TestMCPToolErrors(t *testing.T) {
	session := connectMCP(t, rejectingModel{revit.NewSampleModel()})
	ctx := context.Background()

	tests := []struct {
		name     string
		args     map[string]any
		expected string
	}{
		{"get_levels", map[string]any{}, "Revit API error: No document is open"},
		{"get_element_info", map[string]any{}, "Revit API error: invalid argument: elementId is required"},
		{"get_element_info", map[string]any{"elementId": "42"}, "Revit API error: element not found: 42"},
	}

	for _, tt := range tests {
		result, err := session.CallTool(ctx, &mcp.CallToolParams{Name: tt.name, Arguments: tt.args})
		if err != nil {
			t.Fatalf("CallTool %s failed: %v", tt.name, err)
		}
		if !result.IsError {
			t.Errorf("%s: expected a tool error", tt.name)
		}
		if text := toolText(t, result); text != tt.expected {
			t.Errorf("%s: expected %q, got %q", tt.name, tt.expected, text)
		}
	}
}

// TestMCPModelInfoResource tests the model info resource
func TestMCPModelInfoResource(t *testing.T) {
	session := connectMCP(t, revit.NewSampleModel())

	result, err := session.ReadResource(context.Background(), &mcp.ReadResourceParams{URI: ModelInfoURI})
	if err != nil {
		t.Fatalf("ReadResource failed: %v", err)
	}
	if len(result.Contents) != 1 {
		t.Fatalf("Expected one content, got %d", len(result.Contents))
	}

	content := result.Contents[0]
	if content.MIMEType != "application/json" || content.URI != ModelInfoURI {
		t.Errorf("Unexpected content %s %s", content.URI, content.MIMEType)
	}
	var info revit.ModelInfo
	if err := json.Unmarshal([]byte(content.Text), &info); err != nil || info.Version != "2023" {
		t.Errorf("Unexpected model info %s (%v)", content.Text, err)
	}
}
