package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mcpls/internal/bridge"
	"mcpls/internal/diagnostic"
	"mcpls/internal/logging"
	"mcpls/internal/lsp"
)

var checkCmd = &cobra.Command{
	Use:   "check [files...]",
	Short: "Print a diagnostics report for one or more files",
	Long: `Check spawns the language servers applicable to the given files, pulls
diagnostics for each one, and prints a single sorted report -- similar to
running a linter directly, but through whichever LSP servers are
configured.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(_ *cobra.Command, files []string) error {
	logger := logging.New(logging.Options{Level: logLevel, JSON: jsonLogs})

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	roots := workspaceRoots
	if len(roots) == 0 {
		roots = cfg.Workspace.Roots
	}
	if len(roots) == 0 {
		if wd, err := os.Getwd(); err == nil {
			roots = []string{wd}
		}
	}

	ctx := context.Background()
	servers, failures, err := spawnServers(ctx, cfg, roots)
	if err != nil {
		return fmt.Errorf("spawning language servers: %w", err)
	}
	for _, f := range failures {
		logger.Warn("mcpls check: language server failed to spawn", "language_id", f.LanguageID, "error", f.Err)
	}
	defer shutdownServers(servers, logger)

	tracker := lsp.NewDocumentTracker(lsp.DefaultResourceLimits())
	translator := bridge.NewTranslator(tracker)
	translator.SetWorkspaceRoots(roots)
	for languageID, srv := range servers {
		translator.RegisterServer(languageID, srv)
	}

	report := diagnostic.NewReporter()
	for _, file := range files {
		result, err := translator.HandleDiagnostics(ctx, file)
		if err != nil {
			logger.Warn("mcpls check: failed to get diagnostics", "file", file, "error", err)
			continue
		}
		report.Add(file, result)
	}

	fmt.Print(report.Format())
	if errorCount, _ := report.Counts(); errorCount > 0 {
		os.Exit(1)
	}
	return nil
}
