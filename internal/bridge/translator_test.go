package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"mcpls/internal/config"
	"mcpls/internal/lsp"
)

// TestMain doubles this binary as a canned-response LSP server when
// MCPLS_BRIDGE_STUB=1 is set, the same re-exec trick internal/lsp's own
// lifecycle tests use.
func TestMain(m *testing.M) {
	if os.Getenv("MCPLS_BRIDGE_STUB") == "1" {
		runStub()
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func runStub() {
	reader := bufio.NewReader(os.Stdin)
	for {
		msg, err := readFrame(reader)
		if err != nil {
			return
		}
		var envelope struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		_ = json.Unmarshal(msg, &envelope)

		switch envelope.Method {
		case "initialize":
			writeFrame(map[string]interface{}{"jsonrpc": "2.0", "id": envelope.ID, "result": map[string]interface{}{
				"capabilities": map[string]interface{}{"general": map[string]interface{}{"positionEncoding": "utf-8"}},
			}})
		case "shutdown":
			writeFrame(map[string]interface{}{"jsonrpc": "2.0", "id": envelope.ID, "result": nil})
		case "exit":
			return
		case "initialized", "textDocument/didOpen":
			// notifications, no reply
		case "textDocument/hover":
			writeFrame(map[string]interface{}{"jsonrpc": "2.0", "id": envelope.ID, "result": map[string]interface{}{
				"contents": "hover text",
				"range": map[string]interface{}{
					"start": map[string]interface{}{"line": 0, "character": 0},
					"end":   map[string]interface{}{"line": 0, "character": 5},
				},
			}})
		case "textDocument/definition":
			writeFrame(map[string]interface{}{"jsonrpc": "2.0", "id": envelope.ID, "result": []map[string]interface{}{
				{"uri": "file:///tmp/workspace/other.go", "range": map[string]interface{}{
					"start": map[string]interface{}{"line": 2, "character": 3},
					"end":   map[string]interface{}{"line": 2, "character": 8},
				}},
			}})
		case "textDocument/references":
			writeFrame(map[string]interface{}{"jsonrpc": "2.0", "id": envelope.ID, "result": []map[string]interface{}{
				{"uri": "file:///tmp/workspace/main.go", "range": map[string]interface{}{
					"start": map[string]interface{}{"line": 1, "character": 0},
					"end":   map[string]interface{}{"line": 1, "character": 4},
				}},
			}})
		case "workspace/symbol":
			writeFrame(map[string]interface{}{"jsonrpc": "2.0", "id": envelope.ID, "result": []map[string]interface{}{
				{"name": "DoThing", "kind": 12, "location": map[string]interface{}{
					"uri": "file:///tmp/workspace/main.go",
					"range": map[string]interface{}{
						"start": map[string]interface{}{"line": 0, "character": 0},
						"end":   map[string]interface{}{"line": 0, "character": 7},
					},
				}},
			}})
		default:
			writeFrame(map[string]interface{}{"jsonrpc": "2.0", "id": envelope.ID, "result": nil})
		}
	}
}

func readFrame(r *bufio.Reader) ([]byte, error) {
	length := -1
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "" {
			break
		}
		if strings.HasPrefix(strings.ToLower(trimmed), "content-length:") {
			parts := strings.SplitN(trimmed, ":", 2)
			length, _ = strconv.Atoi(strings.TrimSpace(parts[1]))
		}
	}
	if length < 0 {
		return nil, io.ErrUnexpectedEOF
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return body, nil
}

func writeFrame(v interface{}) {
	body, _ := json.Marshal(v)
	fmt.Fprintf(os.Stdout, "Content-Length: %d\r\n\r\n", len(body))
	os.Stdout.Write(body)
}

func newTestTranslator(t *testing.T) (*Translator, string, func()) {
	t.Helper()
	dir := t.TempDir()
	mainFile := filepath.Join(dir, "main.go")
	if err := os.WriteFile(mainFile, []byte("package main\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.LspServerConfig{
		LanguageID: "go",
		Command:    os.Args[0],
		Env:        map[string]string{"MCPLS_BRIDGE_STUB": "1"},
	}
	cache := lsp.NewNotificationCache()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	srv, err := lsp.Spawn(ctx, cfg, []string{dir}, cache)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	tracker := lsp.NewDocumentTracker(lsp.DefaultResourceLimits())
	tr := NewTranslator(tracker)
	tr.SetWorkspaceRoots([]string{dir})
	tr.RegisterServer("go", srv)

	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
	return tr, mainFile, cleanup
}

func TestHandleHover(t *testing.T) {
	tr, mainFile, cleanup := newTestTranslator(t)
	defer cleanup()

	result, err := tr.HandleHover(context.Background(), mainFile, 1, 1)
	if err != nil {
		t.Fatalf("HandleHover: %v", err)
	}
	if result.Contents != "hover text" {
		t.Errorf("contents = %q", result.Contents)
	}
	if result.Range == nil || result.Range.Start.Line != 1 || result.Range.Start.Character != 1 {
		t.Errorf("range = %+v, want normalized 1-based start", result.Range)
	}
}

func TestHandleDefinition(t *testing.T) {
	tr, mainFile, cleanup := newTestTranslator(t)
	defer cleanup()

	result, err := tr.HandleDefinition(context.Background(), mainFile, 1, 1)
	if err != nil {
		t.Fatalf("HandleDefinition: %v", err)
	}
	if len(result.Locations) != 1 {
		t.Fatalf("got %d locations, want 1", len(result.Locations))
	}
	if result.Locations[0].Range.Start.Line != 3 {
		t.Errorf("start line = %d, want 3 (0-based 2 + 1)", result.Locations[0].Range.Start.Line)
	}
}

func TestHandleReferences(t *testing.T) {
	tr, mainFile, cleanup := newTestTranslator(t)
	defer cleanup()

	result, err := tr.HandleReferences(context.Background(), mainFile, 1, 1, true)
	if err != nil {
		t.Fatalf("HandleReferences: %v", err)
	}
	if len(result.Locations) != 1 {
		t.Fatalf("got %d locations, want 1", len(result.Locations))
	}
}

func TestHandleWorkspaceSymbol(t *testing.T) {
	tr, _, cleanup := newTestTranslator(t)
	defer cleanup()

	result, err := tr.HandleWorkspaceSymbol(context.Background(), "DoThing", "", 10)
	if err != nil {
		t.Fatalf("HandleWorkspaceSymbol: %v", err)
	}
	if len(result.Symbols) != 1 || result.Symbols[0].Name != "DoThing" {
		t.Fatalf("unexpected symbols: %+v", result.Symbols)
	}
	if result.Symbols[0].Kind != "Function" {
		t.Errorf("kind = %q, want Function", result.Symbols[0].Kind)
	}
}

func TestHandleWorkspaceSymbolNoServerConfigured(t *testing.T) {
	tr := NewTranslator(lsp.NewDocumentTracker(lsp.DefaultResourceLimits()))
	_, err := tr.HandleWorkspaceSymbol(context.Background(), "anything", "", 10)
	if err == nil {
		t.Fatal("expected NoServerConfigured error")
	}
}

func TestHandleWorkspaceSymbolQueryTooLong(t *testing.T) {
	tr := NewTranslator(lsp.NewDocumentTracker(lsp.DefaultResourceLimits()))
	longQuery := strings.Repeat("a", maxQueryLength+1)
	_, err := tr.HandleWorkspaceSymbol(context.Background(), longQuery, "", 10)
	if err == nil {
		t.Fatal("expected error for over-long query")
	}
}

func TestHandleWorkspaceSymbolInvalidKindFilter(t *testing.T) {
	tr := NewTranslator(lsp.NewDocumentTracker(lsp.DefaultResourceLimits()))
	_, err := tr.HandleWorkspaceSymbol(context.Background(), "q", "NotARealKind", 10)
	if err == nil {
		t.Fatal("expected error for invalid kind_filter")
	}
}

func TestValidatePathOutsideWorkspace(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	outsideFile := filepath.Join(outside, "x.go")
	if err := os.WriteFile(outsideFile, []byte("package main"), 0o644); err != nil {
		t.Fatal(err)
	}

	tr := NewTranslator(lsp.NewDocumentTracker(lsp.DefaultResourceLimits()))
	tr.SetWorkspaceRoots([]string{root})

	if _, err := tr.validatePath(outsideFile); err == nil {
		t.Fatal("expected PathOutsideWorkspace error")
	}
}

func TestValidatePathNoWorkspaceRootsAllowsAnything(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "x.go")
	if err := os.WriteFile(file, []byte("package main"), 0o644); err != nil {
		t.Fatal(err)
	}

	tr := NewTranslator(lsp.NewDocumentTracker(lsp.DefaultResourceLimits()))
	if _, err := tr.validatePath(file); err != nil {
		t.Fatalf("expected no error with no workspace roots configured, got %v", err)
	}
}
