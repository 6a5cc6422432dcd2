package lsp

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestDocumentTrackerOpenUpdateClose(t *testing.T) {
	tr := NewDocumentTracker(DefaultResourceLimits())

	uri, err := tr.Open("/tmp/a.go", "package main")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if uri != "file:///tmp/a.go" {
		t.Errorf("uri = %q", uri)
	}

	d, ok := tr.Get("/tmp/a.go")
	if !ok || d.Version != 1 || d.LanguageID != "go" {
		t.Fatalf("unexpected state: %+v ok=%v", d, ok)
	}

	version, ok := tr.Update("/tmp/a.go", "package main\n")
	if !ok || version != 2 {
		t.Fatalf("Update: version=%d ok=%v", version, ok)
	}

	closed, ok := tr.Close("/tmp/a.go")
	if !ok || closed.Version != 2 {
		t.Fatalf("Close: %+v ok=%v", closed, ok)
	}
	if tr.IsOpen("/tmp/a.go") {
		t.Error("document should no longer be open")
	}
}

func TestDocumentTrackerMaxDocuments(t *testing.T) {
	tr := NewDocumentTracker(ResourceLimits{MaxDocuments: 1})
	if _, err := tr.Open("/tmp/a.go", "x"); err != nil {
		t.Fatalf("first open: %v", err)
	}
	if _, err := tr.Open("/tmp/b.go", "y"); err == nil {
		t.Fatal("expected document limit error")
	}
}

func TestDocumentTrackerMaxFileSize(t *testing.T) {
	tr := NewDocumentTracker(ResourceLimits{MaxFileSize: 4})
	if _, err := tr.Open("/tmp/a.go", "too big"); err == nil {
		t.Fatal("expected file size limit error")
	}
}

func TestDocumentTrackerUpdateMissing(t *testing.T) {
	tr := NewDocumentTracker(DefaultResourceLimits())
	if _, ok := tr.Update("/tmp/missing.go", "x"); ok {
		t.Fatal("expected Update on missing document to fail")
	}
}

func TestDocumentTrackerCloseAll(t *testing.T) {
	tr := NewDocumentTracker(DefaultResourceLimits())
	tr.Open("/tmp/a.go", "a")
	tr.Open("/tmp/b.py", "b")

	closed := tr.CloseAll()
	if len(closed) != 2 {
		t.Fatalf("got %d closed documents, want 2", len(closed))
	}
	if tr.Len() != 0 {
		t.Errorf("tracker should be empty after CloseAll, got %d", tr.Len())
	}
}

func TestEnsureOpenReadsFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.go")
	if err := os.WriteFile(path, []byte("package main\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tr := NewDocumentTracker(DefaultResourceLimits())
	var notifiedMethod string
	notify := func(ctx context.Context, method string, params interface{}) error {
		notifiedMethod = method
		return nil
	}

	uri, err := tr.EnsureOpen(context.Background(), path, notify)
	if err != nil {
		t.Fatalf("EnsureOpen: %v", err)
	}
	if notifiedMethod != "textDocument/didOpen" {
		t.Errorf("notified method = %q", notifiedMethod)
	}
	if !tr.IsOpen(path) {
		t.Error("document should be tracked after EnsureOpen")
	}

	// Second call must not re-notify (document already open).
	notifiedMethod = ""
	again, err := tr.EnsureOpen(context.Background(), path, notify)
	if err != nil {
		t.Fatalf("EnsureOpen (second): %v", err)
	}
	if again != uri {
		t.Errorf("second EnsureOpen returned different URI: %q vs %q", again, uri)
	}
	if notifiedMethod != "" {
		t.Errorf("should not re-notify for already-open document, got %q", notifiedMethod)
	}
}

func TestDetectLanguageDefaultsToPlaintext(t *testing.T) {
	if DetectLanguage("README") != "plaintext" {
		t.Error("expected plaintext default for extensionless file")
	}
	if DetectLanguage("main.go") != "go" {
		t.Error("expected go for .go extension")
	}
}
