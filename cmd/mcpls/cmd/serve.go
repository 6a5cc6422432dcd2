package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mcpls/internal/bridge"
	"mcpls/internal/config"
	"mcpls/internal/logging"
	"mcpls/internal/lsp"
	"mcpls/internal/mcpserver"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server over stdio",
	Long: `Serve spawns one language server per configured entry, waits for each to
finish its LSP initialize handshake, then starts serving MCP tool calls over
stdin/stdout.

Language servers whose project-marker heuristics don't match any workspace
root are skipped; mcpls only fails to start if every configured server fails
to spawn.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("mcpls: received shutdown signal")
		cancel()
	}()

	servers, failures, err := spawnServers(ctx, cfg, roots)
	if err != nil {
		return fmt.Errorf("spawning language servers: %w", err)
	}
	for _, f := range failures {
		logger.Warn("mcpls: language server failed to spawn", "language_id", f.LanguageID, "error", f.Err)
	}
	defer shutdownServers(servers, logger)

	tracker := lsp.NewDocumentTracker(lsp.DefaultResourceLimits())
	translator := bridge.NewTranslator(tracker)
	translator.SetWorkspaceRoots(roots)
	for languageID, srv := range servers {
		translator.RegisterServer(languageID, srv)
	}

	logger.Info("mcpls: ready", "servers", len(servers), "roots", roots)

	server := mcpserver.New(translator, logger)
	if err := server.Run(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

func loadConfig() (*config.ServerConfig, error) {
	if cfgFile != "" {
		return config.LoadFrom(cfgFile)
	}
	return config.Load()
}

func spawnServers(ctx context.Context, cfg *config.ServerConfig, roots []string) (map[string]*lsp.Server, []lsp.SpawnFailure, error) {
	cache := lsp.NewNotificationCache()

	applicable := make([]config.LspServerConfig, 0, len(cfg.LspServers))
	for _, sc := range cfg.LspServers {
		if spawnApplies(sc, roots) {
			applicable = append(applicable, sc)
		}
	}

	return lsp.BatchSpawn(ctx, applicable, roots, cache)
}

func spawnApplies(sc config.LspServerConfig, roots []string) bool {
	if len(roots) == 0 {
		return true
	}
	for _, root := range roots {
		if sc.ShouldSpawn(root) {
			return true
		}
	}
	return false
}

func shutdownServers(servers map[string]*lsp.Server, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for languageID, srv := range servers {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("mcpls: error shutting down language server", "language_id", languageID, "error", err)
		}
	}
}
