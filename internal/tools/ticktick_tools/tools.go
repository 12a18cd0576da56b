package ticktick_tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/tickview/internal/ticktick"
)

// ClientProvider supplies a TickTick client for a tool invocation.
// It fails when no access token is configured.
type ClientProvider func() (*ticktick.Client, error)

// getProjectIDFromArgs extracts the required projectId argument
func getProjectIDFromArgs(args map[string]interface{}) (string, error) {
	projectID, ok := args["projectId"].(string)
	if !ok || projectID == "" {
		return "", fmt.Errorf("projectId parameter is required")
	}
	return projectID, nil
}

// RegisterTickTickTools registers all TickTick tools with the MCP server
func RegisterTickTickTools(s *mcpserver.MCPServer, provider ClientProvider) error {
	if provider == nil {
		return fmt.Errorf("client provider is required")
	}

	registerListProjectsTool(s, provider)
	registerListInboxTasksTool(s, provider)
	registerGetProjectDataTool(s, provider)

	return nil
}

// registerListProjectsTool registers the project listing tool
func registerListProjectsTool(s *mcpserver.MCPServer, provider ClientProvider) {
	listProjectsTool := mcp.NewTool("ticktick_list_projects",
		mcp.WithDescription("List all TickTick projects for the authenticated user"),
	)

	s.AddTool(listProjectsTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		client, err := provider()
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		projects, err := client.Projects(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to list projects: %v", err)), nil
		}

		result, _ := json.MarshalIndent(projects, "", "  ")
		return mcp.NewToolResultText(string(result)), nil
	})
}

// registerListInboxTasksTool registers the inbox task listing tool
func registerListInboxTasksTool(s *mcpserver.MCPServer, provider ClientProvider) {
	listInboxTasksTool := mcp.NewTool("ticktick_list_inbox_tasks",
		mcp.WithDescription("List the tasks in the TickTick inbox project"),
	)

	s.AddTool(listInboxTasksTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		client, err := provider()
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		inboxID, tasks, err := client.InboxTasks(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to list inbox tasks: %v", err)), nil
		}

		payload := map[string]interface{}{
			"inboxId": inboxID,
			"tasks":   tasks,
		}
		result, _ := json.MarshalIndent(payload, "", "  ")
		return mcp.NewToolResultText(string(result)), nil
	})
}

// registerGetProjectDataTool registers the project data tool
func registerGetProjectDataTool(s *mcpserver.MCPServer, provider ClientProvider) {
	getProjectDataTool := mcp.NewTool("ticktick_get_project_data",
		mcp.WithDescription("Get a TickTick project together with its tasks"),
		mcp.WithString("projectId",
			mcp.Required(),
			mcp.Description("The ID of the project to retrieve"),
		),
	)

	s.AddTool(getProjectDataTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		projectID, err := getProjectIDFromArgs(args)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		client, err := provider()
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		data, err := client.ProjectData(ctx, projectID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to get project data: %v", err)), nil
		}

		result, _ := json.MarshalIndent(data, "", "  ")
		return mcp.NewToolResultText(string(result)), nil
	})
}
