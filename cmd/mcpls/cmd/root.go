// Package cmd provides the CLI commands for mcpls.
package cmd

import (
	"github.com/spf13/cobra"

	"mcpls/internal/cli"
)

var (
	// cfgFile is the path to the config file specified via --config flag.
	cfgFile string

	// logLevel sets the minimum level the root logger emits.
	logLevel string

	// jsonLogs switches the root logger from text to JSON output.
	jsonLogs bool

	// workspaceRoots restricts which paths the bridge will open files
	// under; empty means no restriction.
	workspaceRoots []string
)

var rootCmd = &cobra.Command{
	Use:   "mcpls",
	Short: "An MCP server that bridges to Language Server Protocol servers",
	Long: `mcpls exposes Language Server Protocol features -- hover, go-to-definition,
references, diagnostics, rename, completions, document symbols, formatting,
and workspace symbol search -- as Model Context Protocol tools.

It spawns one LSP server per configured language, translates MCP tool calls
into LSP requests, and serves the result back over stdio as MCP tool
responses.

Example usage:
  mcpls serve                 # Run the MCP server over stdio
  mcpls serve --config ./mcpls.toml
  mcpls version`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       cli.Version,
}

// Execute adds all child commands to the root command and runs it. It is
// called once from main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: auto-discover)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "log-json", false, "emit logs as JSON instead of text")
	rootCmd.PersistentFlags().StringSliceVar(&workspaceRoots, "root", nil, "workspace root to restrict file access to (repeatable)")
}
