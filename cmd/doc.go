// Package cmd implements the command-line interface for tickview.
//
// This package provides the following commands:
//   - serve: Start the web server showing the TickTick inbox
//   - call: Make an ad-hoc authenticated call against the TickTick API
//   - mcp: Start an MCP server exposing TickTick tools for AI assistants
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for all MCP tools
//
// The serve command is the default command when no subcommand is specified.
package cmd
