// Package config loads mcpls's TOML configuration file: which workspace
// roots to restrict file access to, which position encodings to offer
// during negotiation, and which language server to spawn per language.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	mcplserrors "mcpls/internal/errors"
)

// ServerHeuristics lets a language-server entry be skipped unless the
// workspace actually looks like a project for that language.
type ServerHeuristics struct {
	ProjectMarkers []string `toml:"project_markers"`
}

// IsApplicable reports whether any of the configured markers exists under
// root.
func (h ServerHeuristics) IsApplicable(root string) bool {
	if len(h.ProjectMarkers) == 0 {
		return true
	}
	for _, marker := range h.ProjectMarkers {
		if _, err := os.Stat(filepath.Join(root, marker)); err == nil {
			return true
		}
	}
	return false
}

// LspServerConfig describes one language server mcpls knows how to spawn.
type LspServerConfig struct {
	LanguageID             string            `toml:"language_id"`
	Command                string            `toml:"command"`
	Args                   []string          `toml:"args"`
	Env                    map[string]string `toml:"env"`
	FilePatterns           []string          `toml:"file_patterns"`
	InitializationOptions  interface{}       `toml:"initialization_options"`
	TimeoutSeconds         uint64            `toml:"timeout_seconds"`
	Heuristics             *ServerHeuristics `toml:"heuristics"`
}

// ShouldSpawn applies Heuristics (if any) against root; a config with no
// heuristics is always applicable.
func (c LspServerConfig) ShouldSpawn(root string) bool {
	if c.Heuristics == nil {
		return true
	}
	return c.Heuristics.IsApplicable(root)
}

// WorkspaceConfig restricts which paths the bridge will open and which
// position encodings it is willing to negotiate.
type WorkspaceConfig struct {
	Roots             []string `toml:"roots"`
	PositionEncodings []string `toml:"position_encodings"`
}

// ServerConfig is the root of mcpls.toml.
type ServerConfig struct {
	Workspace  WorkspaceConfig   `toml:"workspace"`
	LspServers []LspServerConfig `toml:"lsp_servers"`
}

// EnvVar names the environment variable that, if set, overrides the config
// file's discovery order entirely.
const EnvVar = "MCPLS_CONFIG"

// Load resolves mcpls's configuration using the documented discovery
// order: $MCPLS_CONFIG, then ./mcpls.toml, then the OS user config
// directory, finally the built-in default (never an error by itself).
func Load() (*ServerConfig, error) {
	if path := os.Getenv(EnvVar); path != "" {
		return LoadFrom(path)
	}
	if _, err := os.Stat("mcpls.toml"); err == nil {
		return LoadFrom("mcpls.toml")
	}
	if dir, err := os.UserConfigDir(); err == nil {
		candidate := filepath.Join(dir, "mcpls", "mcpls.toml")
		if _, err := os.Stat(candidate); err == nil {
			return LoadFrom(candidate)
		}
	}
	cfg := Default()
	return &cfg, nil
}

// LoadFrom reads and validates the TOML file at path.
func LoadFrom(path string) (*ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, mcplserrors.ConfigNotFound(path)
		}
		return nil, mcplserrors.IO(err)
	}

	var cfg ServerConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, mcplserrors.TOML(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects a config with an incomplete server entry (missing
// language_id or command). Unknown keys are not checked here or by
// LoadFrom; toml.Unmarshal ignores them.
func (c *ServerConfig) Validate() error {
	for _, s := range c.LspServers {
		if s.LanguageID == "" {
			return mcplserrors.InvalidConfig("lsp_servers entry is missing language_id")
		}
		if s.Command == "" {
			return mcplserrors.InvalidConfig("lsp_servers entry is missing command")
		}
	}
	return nil
}

// Default is the configuration mcpls ships with when no config file is
// found anywhere in the discovery order: workspace-encodings offered as
// utf-8 then utf-16, and a single rust-analyzer entry so the bridge is
// immediately useful against a Rust workspace without any setup.
func Default() ServerConfig {
	return ServerConfig{
		Workspace: WorkspaceConfig{
			PositionEncodings: []string{"utf-8", "utf-16"},
		},
		LspServers: []LspServerConfig{RustAnalyzer()},
	}
}

// Built-in server configs, one per language the bridge recognizes out of
// the box. Each carries the project markers that make its heuristic
// applicable, and a conservative default timeout.

func RustAnalyzer() LspServerConfig {
	return LspServerConfig{
		LanguageID:     "rust",
		Command:        "rust-analyzer",
		TimeoutSeconds: 30,
		Heuristics:     &ServerHeuristics{ProjectMarkers: []string{"Cargo.toml", "rust-toolchain.toml"}},
	}
}

func Pyright() LspServerConfig {
	return LspServerConfig{
		LanguageID:     "python",
		Command:        "pyright-langserver",
		Args:           []string{"--stdio"},
		TimeoutSeconds: 30,
		Heuristics: &ServerHeuristics{ProjectMarkers: []string{
			"pyproject.toml", "setup.py", "requirements.txt", "pyrightconfig.json",
		}},
	}
}

func TypeScript() LspServerConfig {
	return LspServerConfig{
		LanguageID:     "typescript",
		Command:        "typescript-language-server",
		Args:           []string{"--stdio"},
		FilePatterns:   []string{"**/*.ts", "**/*.tsx"},
		TimeoutSeconds: 30,
		Heuristics: &ServerHeuristics{ProjectMarkers: []string{
			"package.json", "tsconfig.json", "jsconfig.json",
		}},
	}
}

func Gopls() LspServerConfig {
	return LspServerConfig{
		LanguageID:     "go",
		Command:        "gopls",
		Args:           []string{"serve"},
		TimeoutSeconds: 30,
		Heuristics:     &ServerHeuristics{ProjectMarkers: []string{"go.mod", "go.sum"}},
	}
}

func Clangd() LspServerConfig {
	return LspServerConfig{
		LanguageID:     "cpp",
		Command:        "clangd",
		TimeoutSeconds: 30,
		Heuristics: &ServerHeuristics{ProjectMarkers: []string{
			"CMakeLists.txt", "compile_commands.json", "Makefile", ".clangd",
		}},
	}
}

func Zls() LspServerConfig {
	return LspServerConfig{
		LanguageID:     "zig",
		Command:        "zls",
		TimeoutSeconds: 30,
		Heuristics:     &ServerHeuristics{ProjectMarkers: []string{"build.zig", "build.zig.zon"}},
	}
}
