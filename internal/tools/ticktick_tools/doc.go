// Package ticktick_tools provides MCP tools for reading TickTick data.
//
// This package implements MCP (Model Context Protocol) tools that wrap the
// TickTick client, exposing project and task information to AI assistants.
//
// # Available Tools
//
//   - ticktick_list_projects: List all projects for the authenticated user
//   - ticktick_list_inbox_tasks: List the tasks in the inbox project
//   - ticktick_get_project_data: Get a project together with its tasks
//
// All tools are read-only; nothing in this package mutates TickTick data.
//
// # Authentication
//
// Tools obtain a client through a ClientProvider supplied at registration.
// The mcp command wires a provider backed by the TICKTICK_ACCESS_TOKEN /
// TT_ACCESS_TOKEN environment variables (or the --token flag). Tools return
// an error result when no token is configured.
package ticktick_tools
