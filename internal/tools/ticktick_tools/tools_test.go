package ticktick_tools

import (
	"testing"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/tickview/internal/ticktick"
)

func TestGetProjectIDFromArgs(t *testing.T) {
	// Test with missing projectId
	args := map[string]interface{}{}
	if _, err := getProjectIDFromArgs(args); err == nil {
		t.Error("Expected error for missing projectId")
	}

	// Test with empty projectId
	args = map[string]interface{}{
		"projectId": "",
	}
	if _, err := getProjectIDFromArgs(args); err == nil {
		t.Error("Expected error for empty projectId")
	}

	// Test with non-string projectId
	args = map[string]interface{}{
		"projectId": 42,
	}
	if _, err := getProjectIDFromArgs(args); err == nil {
		t.Error("Expected error for non-string projectId")
	}

	// Test with valid projectId
	args = map[string]interface{}{
		"projectId": "inbox123",
	}
	projectID, err := getProjectIDFromArgs(args)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if projectID != "inbox123" {
		t.Errorf("Expected 'inbox123', got %s", projectID)
	}
}

func TestRegisterTickTickTools(t *testing.T) {
	s := mcpserver.NewMCPServer("test", "dev",
		mcpserver.WithToolCapabilities(true),
	)

	provider := func() (*ticktick.Client, error) {
		return ticktick.NewClient("test-token"), nil
	}

	if err := RegisterTickTickTools(s, provider); err != nil {
		t.Fatalf("RegisterTickTickTools() error = %v", err)
	}

	tools := s.ListTools()
	if len(tools) != 3 {
		t.Errorf("Expected 3 registered tools, got %d", len(tools))
	}

	names := make(map[string]bool)
	for _, tool := range tools {
		names[tool.Tool.Name] = true
	}

	for _, want := range []string{"ticktick_list_projects", "ticktick_list_inbox_tasks", "ticktick_get_project_data"} {
		if !names[want] {
			t.Errorf("Expected tool %q to be registered", want)
		}
	}
}

func TestRegisterTickTickTools_NilProvider(t *testing.T) {
	s := mcpserver.NewMCPServer("test", "dev")

	if err := RegisterTickTickTools(s, nil); err == nil {
		t.Error("Expected error for nil client provider")
	}
}
