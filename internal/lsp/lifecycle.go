package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"mcpls/internal/config"
	mcplserrors "mcpls/internal/errors"
)

// State is a language server's position in its own lifecycle.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateShuttingDown
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateShuttingDown:
		return "shutting_down"
	case StateShutdown:
		return "shut_down"
	default:
		return "unknown"
	}
}

// IsReady reports whether the server has completed its initialize/initialized
// handshake and not yet begun shutting down.
func (s State) IsReady() bool { return s == StateReady }

// CanAcceptRequests reports whether new requests may be sent. It holds in
// exactly the same state as IsReady, so a server that has started shutting
// down rejects new requests.
func (s State) CanAcceptRequests() bool { return s == StateReady }

const (
	initializeTimeout = 30 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Server is one spawned, initialized language server and everything the
// bridge tracks about it.
type Server struct {
	Config           config.LspServerConfig
	Capabilities     map[string]interface{}
	PositionEncoding string

	mu    sync.Mutex
	state State

	peer  *Peer
	cmd   *exec.Cmd
	cache *NotificationCache
}

func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Server) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Server) Peer() *Peer                     { return s.peer }
func (s *Server) Notifications() *NotificationCache { return s.cache }

// NewServer wires an already-connected Peer into a Server without running
// the initialize handshake; Spawn is the usual entry point, but tests that
// drive a Peer over in-memory pipes construct a Server this way and call
// initialize themselves.
func NewServer(cfg config.LspServerConfig, peer *Peer, cache *NotificationCache) *Server {
	return &Server{Config: cfg, peer: peer, cache: cache, state: StateUninitialized}
}

// Initialize runs the initialize/initialized handshake against an
// already-connected Server. Spawn calls this automatically; it is exported
// for callers that built a Server via NewServer directly.
func (s *Server) Initialize(ctx context.Context, workspaceRoots []string, initOptions interface{}) error {
	return s.initialize(ctx, workspaceRoots, initOptions)
}

// Spawn starts the configured command, runs the initialize/initialized
// handshake against it, and returns a Server in StateReady.
func Spawn(ctx context.Context, cfg config.LspServerConfig, workspaceRoots []string, cache *NotificationCache) (*Server, error) {
	cmd := exec.Command(cfg.Command, cfg.Args...)
	for k, v := range cfg.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	if len(cmd.Env) > 0 {
		cmd.Env = append(os.Environ(), cmd.Env...)
	}
	setProcessGroup(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, mcplserrors.ServerSpawnFailed(cfg.Command, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, mcplserrors.ServerSpawnFailed(cfg.Command, err)
	}
	cmd.Stderr = nil // language server diagnostics go to stderr and are discarded, matching upstream's own spawn behavior

	if err := cmd.Start(); err != nil {
		return nil, mcplserrors.ServerSpawnFailed(cfg.Command, err)
	}

	srv := &Server{Config: cfg, cmd: cmd, cache: cache, state: StateUninitialized}
	srv.peer = NewPeer(stdin, stdout, srv.handleNotification, nil)

	if err := srv.initialize(ctx, workspaceRoots, cfg.InitializationOptions); err != nil {
		_ = killProcessGroup(cmd)
		return nil, err
	}

	return srv, nil
}

func (s *Server) handleNotification(method string, params json.RawMessage) {
	switch method {
	case "textDocument/publishDiagnostics":
		var p PublishDiagnosticsParams
		if err := json.Unmarshal(params, &p); err == nil {
			s.cache.StoreDiagnostics(DiagnosticInfo{URI: p.URI, Version: p.Version, Diagnostics: p.Diagnostics})
		}
	case "window/logMessage":
		var p LogMessageParams
		if err := json.Unmarshal(params, &p); err == nil {
			s.cache.StoreLog(LogEntry{Level: LogLevel(p.Type - 1), Message: p.Message, Timestamp: time.Now()})
		}
	case "window/showMessage":
		var p ShowMessageParams
		if err := json.Unmarshal(params, &p); err == nil {
			s.cache.StoreMessage(ServerMessage{Type: MessageType(p.Type - 1), Message: p.Message, Timestamp: time.Now()})
		}
	}
}

func (s *Server) initialize(ctx context.Context, workspaceRoots []string, initOptions interface{}) error {
	s.setState(StateInitializing)

	folders := make([]WorkspaceFolder, 0, len(workspaceRoots))
	for _, root := range workspaceRoots {
		folders = append(folders, WorkspaceFolder{URI: PathToURI(root), Name: workspaceFolderName(root)})
	}

	var rootURI *string
	if len(workspaceRoots) > 0 {
		u := PathToURI(workspaceRoots[0])
		rootURI = &u
	}

	params := InitializeParams{
		ProcessID:        os.Getpid(),
		ClientInfo:       ClientInfo{Name: "mcpls", Version: "0.1.0"},
		RootURI:          rootURI,
		WorkspaceFolders: folders,
		Capabilities: map[string]interface{}{
			"general": map[string]interface{}{
				"positionEncodings": []string{"utf-8", "utf-16"},
			},
			"textDocument": map[string]interface{}{
				"hover":      map[string]interface{}{"contentFormat": []string{"markdown", "plaintext"}},
				"definition": map[string]interface{}{"linkSupport": true},
				"references": map[string]interface{}{},
			},
			"workspace": map[string]interface{}{
				"workspaceFolders": true,
			},
		},
		InitializationOptions: initOptions,
	}

	var result InitializeResult
	if err := s.peer.Call(ctx, "initialize", params, &result, initializeTimeout); err != nil {
		return mcplserrors.LspInitFailed(err.Error())
	}
	s.Capabilities = result.Capabilities

	s.PositionEncoding = "utf-16"
	if general, ok := result.Capabilities["general"].(map[string]interface{}); ok {
		if enc, ok := general["positionEncoding"].(string); ok && enc != "" {
			s.PositionEncoding = enc
		}
	}

	if err := s.peer.Notify(ctx, "initialized", map[string]interface{}{}); err != nil {
		return mcplserrors.LspInitFailed(err.Error())
	}

	s.setState(StateReady)
	return nil
}

func workspaceFolderName(root string) string {
	name := filepath.Base(root)
	if name == "." || name == string(filepath.Separator) || name == "" {
		return "workspace"
	}
	return name
}

// Shutdown runs the shutdown/exit sequence and closes the transport.
func (s *Server) Shutdown(ctx context.Context) error {
	s.setState(StateShuttingDown)

	var shutdownResult interface{}
	shutdownErr := s.peer.Call(ctx, "shutdown", nil, &shutdownResult, shutdownTimeout)
	_ = s.peer.Notify(ctx, "exit", nil)
	_ = s.peer.Close()

	done := make(chan error, 1)
	go func() { done <- s.cmd.Wait() }()
	select {
	case <-done:
	case <-time.After(shutdownTimeout):
		_ = killProcessGroup(s.cmd)
		<-done
	}

	s.setState(StateShutdown)
	return shutdownErr
}

// SpawnFailure records one configuration that BatchSpawn could not start.
type SpawnFailure struct {
	LanguageID string
	Err        error
}

// BatchSpawn attempts to spawn every configured server, tolerating partial
// failure: it only returns an error when every single configuration
// failed and at least one was attempted.
func BatchSpawn(ctx context.Context, configs []config.LspServerConfig, workspaceRoots []string, cache *NotificationCache) (map[string]*Server, []SpawnFailure, error) {
	ready := make(map[string]*Server)
	var failures []SpawnFailure

	for _, cfg := range configs {
		srv, err := Spawn(ctx, cfg, workspaceRoots, cache)
		if err != nil {
			failures = append(failures, SpawnFailure{LanguageID: cfg.LanguageID, Err: err})
			continue
		}
		ready[cfg.LanguageID] = srv
	}

	if len(configs) > 0 && len(ready) == 0 {
		return ready, failures, mcplserrors.New(mcplserrors.KindLifecycle, "ALL_SERVERS_FAILED", "no configured language server could be started", nil)
	}
	return ready, failures, nil
}
