package cmd

import (
	"github.com/spf13/cobra"

	"mcpls/internal/cli"
)

var versionJSON bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print mcpls version information",
	RunE: func(_ *cobra.Command, _ []string) error {
		cli.PrintVersion("mcpls", versionJSON)
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "print version information as JSON")
	rootCmd.AddCommand(versionCmd)
}
