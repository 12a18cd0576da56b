package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the tickview application
var rootCmd = &cobra.Command{
	Use:   "tickview",
	Short: "Shows your TickTick inbox in the browser",
	Long: `tickview is a small web app that connects to your TickTick account via
OAuth and shows the tasks in your inbox.

It can run as:
  - A web server displaying your inbox (default)
  - An API playground for ad-hoc authenticated TickTick calls (call)
  - An MCP (Model Context Protocol) server for AI assistants (mcp)`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "tickview version %s\n" .Version}}`)

	// If no subcommand is provided, run the serve command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newCallCmd())
	rootCmd.AddCommand(newMcpCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}
