package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/tickview/internal/logging"
	"github.com/teemow/tickview/internal/ticktick"
	"github.com/teemow/tickview/internal/tools/ticktick_tools"
)

func newMcpCmd() *cobra.Command {
	var (
		token     string
		debugMode bool
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server exposing TickTick tools",
		Long: `Start a Model Context Protocol (MCP) server on stdio, providing read-only
TickTick tools for AI assistants.

The access token is taken from --token, or from the TICKTICK_ACCESS_TOKEN /
TT_ACCESS_TOKEN environment variables. Tools fail with an error result when
no token is configured.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(debugMode)

			if token == "" {
				token = ticktick.AccessTokenFromEnv()
			}

			return runMcp(token)
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "TickTick access token. Can also use TICKTICK_ACCESS_TOKEN or TT_ACCESS_TOKEN env vars.")
	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	return cmd
}

func runMcp(token string) error {
	mcpSrv := mcpserver.NewMCPServer("tickview", version,
		mcpserver.WithToolCapabilities(true),
	)

	provider := func() (*ticktick.Client, error) {
		if token == "" {
			return nil, ticktick.ErrMissingToken
		}
		return ticktick.NewClient(token), nil
	}

	if err := ticktick_tools.RegisterTickTickTools(mcpSrv, provider); err != nil {
		return fmt.Errorf("failed to register TickTick tools: %w", err)
	}

	return runStdioServer(mcpSrv)
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	// Protocol errors go to slog instead of the default stderr logger so
	// they carry the same format as the rest of the process output.
	errorLogger := slog.NewLogLogger(logging.NewSlogAdapter(slog.Default()).Logger().Handler(), slog.LevelError)

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv, mcpserver.WithErrorLogger(errorLogger)); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}
