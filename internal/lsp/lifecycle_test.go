package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"mcpls/internal/config"
)

// TestMain lets this test binary double as a throwaway LSP server: when
// MCPLS_LSP_STUB=1 is set (as lifecycle tests below do when spawning
// os.Args[0] as the "language server"), it speaks just enough of the
// initialize/initialized/shutdown/exit handshake over stdio instead of
// running the actual test suite.
func TestMain(m *testing.M) {
	if os.Getenv("MCPLS_LSP_STUB") == "1" {
		runStubLanguageServer()
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func runStubLanguageServer() {
	reader := bufio.NewReader(os.Stdin)
	for {
		msg, err := readStubFrame(reader)
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
			writeStubFrame(map[string]interface{}{
				"jsonrpc": "2.0",
				"id":      json.RawMessage(envelope.ID),
				"result": map[string]interface{}{
					"capabilities": map[string]interface{}{
						"general": map[string]interface{}{"positionEncoding": "utf-8"},
					},
				},
			})
		case "shutdown":
			writeStubFrame(map[string]interface{}{
				"jsonrpc": "2.0",
				"id":      json.RawMessage(envelope.ID),
				"result":  nil,
			})
		case "exit":
			return
		case "initialized":
			// no reply expected
		}
	}
}

func readStubFrame(r *bufio.Reader) ([]byte, error) {
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

func writeStubFrame(v interface{}) {
	body, _ := json.Marshal(v)
	fmt.Fprintf(os.Stdout, "Content-Length: %d\r\n\r\n", len(body))
	os.Stdout.Write(body)
}

func TestSpawnAndShutdown(t *testing.T) {
	cfg := config.LspServerConfig{
		LanguageID: "stub",
		Command:    os.Args[0],
		Env:        map[string]string{"MCPLS_LSP_STUB": "1"},
	}
	cache := NewNotificationCache()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	srv, err := Spawn(ctx, cfg, nil, cache)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if srv.State() != StateReady {
		t.Fatalf("state = %v, want ready", srv.State())
	}
	if srv.PositionEncoding != "utf-8" {
		t.Fatalf("position encoding = %q, want utf-8", srv.PositionEncoding)
	}

	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if srv.State() != StateShutdown {
		t.Fatalf("state after shutdown = %v, want shutdown", srv.State())
	}
}

func TestSpawnUnknownCommandFails(t *testing.T) {
	cfg := config.LspServerConfig{LanguageID: "nope", Command: "/no/such/language-server-binary"}
	cache := NewNotificationCache()

	_, err := Spawn(context.Background(), cfg, nil, cache)
	if err == nil {
		t.Fatal("expected error spawning nonexistent command")
	}
}

func TestBatchSpawnPartialFailure(t *testing.T) {
	configs := []config.LspServerConfig{
		{LanguageID: "stub", Command: os.Args[0], Env: map[string]string{"MCPLS_LSP_STUB": "1"}},
		{LanguageID: "broken", Command: "/no/such/language-server-binary"},
	}
	cache := NewNotificationCache()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ready, failures, err := BatchSpawn(ctx, configs, nil, cache)
	if err != nil {
		t.Fatalf("BatchSpawn: %v", err)
	}
	if len(ready) != 1 || ready["stub"] == nil {
		t.Fatalf("expected one ready server, got %+v", ready)
	}
	if len(failures) != 1 || failures[0].LanguageID != "broken" {
		t.Fatalf("expected one failure for 'broken', got %+v", failures)
	}

	_ = ready["stub"].Shutdown(ctx)
}

func TestBatchSpawnAllFailErrors(t *testing.T) {
	configs := []config.LspServerConfig{
		{LanguageID: "broken", Command: "/no/such/language-server-binary"},
	}
	_, _, err := BatchSpawn(context.Background(), configs, nil, NewNotificationCache())
	if err == nil {
		t.Fatal("expected error when every configured server fails to spawn")
	}
}

func TestBatchSpawnEmptyConfigsNoError(t *testing.T) {
	ready, failures, err := BatchSpawn(context.Background(), nil, nil, NewNotificationCache())
	if err != nil {
		t.Fatalf("expected no error for empty config list, got %v", err)
	}
	if len(ready) != 0 || len(failures) != 0 {
		t.Fatalf("expected no servers, got ready=%v failures=%v", ready, failures)
	}
}
