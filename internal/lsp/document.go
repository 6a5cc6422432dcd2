package lsp

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	mcplserrors "mcpls/internal/errors"
)

// ResourceLimits bounds how many documents the bridge keeps open at once
// and how large a single document may be; either limit set to zero is
// unlimited.
type ResourceLimits struct {
	MaxDocuments int
	MaxFileSize  int64
}

// DefaultResourceLimits matches the values the bridge ships with absent any
// configuration override.
func DefaultResourceLimits() ResourceLimits {
	return ResourceLimits{MaxDocuments: 100, MaxFileSize: 10 * 1024 * 1024}
}

// DocumentState mirrors one LSP TextDocumentItem the bridge has opened on
// behalf of a tool call.
type DocumentState struct {
	URI        string
	LanguageID string
	Version    int
	Content    string
}

// DocumentTracker is the single source of truth for which files the bridge
// currently has open with a language server, keyed by absolute filesystem
// path.
type DocumentTracker struct {
	mu        sync.Mutex
	documents map[string]DocumentState
	limits    ResourceLimits
}

func NewDocumentTracker(limits ResourceLimits) *DocumentTracker {
	return &DocumentTracker{documents: make(map[string]DocumentState), limits: limits}
}

func (t *DocumentTracker) IsOpen(path string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.documents[path]
	return ok
}

func (t *DocumentTracker) Get(path string) (DocumentState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.documents[path]
	return d, ok
}

func (t *DocumentTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.documents)
}

// Open registers path as newly opened, enforcing the resource limits, and
// returns its file:// URI.
func (t *DocumentTracker) Open(path, content string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.limits.MaxDocuments > 0 && len(t.documents) >= t.limits.MaxDocuments {
		if _, already := t.documents[path]; !already {
			return "", mcplserrors.DocumentLimitExceeded(len(t.documents), t.limits.MaxDocuments)
		}
	}
	if t.limits.MaxFileSize > 0 && int64(len(content)) > t.limits.MaxFileSize {
		return "", mcplserrors.FileSizeLimitExceeded(int64(len(content)), t.limits.MaxFileSize)
	}

	uri := PathToURI(path)
	t.documents[path] = DocumentState{
		URI:        uri,
		LanguageID: DetectLanguage(path),
		Version:    1,
		Content:    content,
	}
	return uri, nil
}

// Update bumps an already-open document's version and content, returning
// the new version, or false if the document is not open.
func (t *DocumentTracker) Update(path, content string) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.documents[path]
	if !ok {
		return 0, false
	}
	d.Version++
	d.Content = content
	t.documents[path] = d
	return d.Version, true
}

func (t *DocumentTracker) Close(path string) (DocumentState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.documents[path]
	if ok {
		delete(t.documents, path)
	}
	return d, ok
}

func (t *DocumentTracker) CloseAll() []DocumentState {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]DocumentState, 0, len(t.documents))
	for _, d := range t.documents {
		out = append(out, d)
	}
	t.documents = make(map[string]DocumentState)
	return out
}

// NotifyFunc sends a textDocument/didOpen-style notification; EnsureOpen
// takes this as a parameter rather than a *Peer so it stays testable
// without a real child process.
type NotifyFunc func(ctx context.Context, method string, params interface{}) error

// EnsureOpen returns path's URI, opening it (reading from disk and emitting
// textDocument/didOpen) first if it is not already tracked.
func (t *DocumentTracker) EnsureOpen(ctx context.Context, path string, notify NotifyFunc) (string, error) {
	if d, ok := t.Get(path); ok {
		return d.URI, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", mcplserrors.FileIO(path, err)
	}

	uri, err := t.Open(path, string(content))
	if err != nil {
		return "", err
	}

	d, _ := t.Get(path)
	params := DidOpenTextDocumentParams{
		TextDocument: TextDocumentItem{
			URI:        d.URI,
			LanguageID: d.LanguageID,
			Version:    d.Version,
			Text:       d.Content,
		},
	}
	if err := notify(ctx, "textDocument/didOpen", params); err != nil {
		return "", err
	}
	return uri, nil
}

// PathToURI renders an absolute filesystem path as a file:// URI, matching
// how language servers round-trip them back in responses.
func PathToURI(path string) string {
	if runtime.GOOS == "windows" {
		return "file:///" + strings.ReplaceAll(path, "\\", "/")
	}
	return "file://" + path
}

// URIToPath is PathToURI's inverse.
func URIToPath(uri string) string {
	path := strings.TrimPrefix(uri, "file://")
	if runtime.GOOS == "windows" {
		path = strings.TrimPrefix(path, "/")
		path = strings.ReplaceAll(path, "/", "\\")
	}
	return path
}

// languageExtensions is the default filename-extension to LSP languageId
// table, documented rather than left as an unspecified default.
var languageExtensions = map[string]string{
	".rs":    "rust",
	".py":    "python",
	".pyw":   "python",
	".pyi":   "python",
	".js":    "javascript",
	".mjs":   "javascript",
	".cjs":   "javascript",
	".ts":    "typescript",
	".mts":   "typescript",
	".cts":   "typescript",
	".tsx":   "typescriptreact",
	".jsx":   "javascriptreact",
	".go":    "go",
	".c":     "c",
	".h":     "c",
	".cpp":   "cpp",
	".cc":    "cpp",
	".cxx":   "cpp",
	".hpp":   "cpp",
	".hh":    "cpp",
	".hxx":   "cpp",
	".java":  "java",
	".rb":    "ruby",
	".php":   "php",
	".swift": "swift",
	".kt":    "kotlin",
	".kts":   "kotlin",
	".scala": "scala",
	".sc":    "scala",
	".zig":   "zig",
	".lua":   "lua",
	".sh":    "shellscript",
	".bash":  "shellscript",
	".zsh":   "shellscript",
	".json":  "json",
	".toml":  "toml",
	".yaml":  "yaml",
	".yml":   "yaml",
	".xml":   "xml",
	".html":  "html",
	".htm":   "html",
	".css":   "css",
	".scss":  "scss",
}

// DetectLanguage maps a path's extension to an LSP languageId, defaulting
// to "plaintext" for anything unrecognized.
func DetectLanguage(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if lang, ok := languageExtensions[ext]; ok {
		return lang
	}
	return "plaintext"
}
