// Package bridge implements the MCP-to-LSP translation layer: validating
// paths, routing a file to the language server responsible for it,
// ensuring the file is open on that server, and converting between MCP's
// and LSP's wire shapes for each supported operation.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	mcplserrors "mcpls/internal/errors"
	"mcpls/internal/lsp"
	"mcpls/internal/position"
)

const (
	defaultTimeout    = 30 * time.Second
	completionTimeout = 10 * time.Second
	maxQueryLength    = 1000
)

var validSymbolKinds = []string{
	"File", "Module", "Namespace", "Package", "Class", "Method", "Property",
	"Field", "Constructor", "Enum", "Interface", "Function", "Variable",
	"Constant", "String", "Number", "Boolean", "Array", "Object", "Key",
	"Null", "EnumMember", "Struct", "Event", "Operator", "TypeParameter",
}

// Translator dispatches MCP tool calls onto the appropriate language
// server, one per language ID.
type Translator struct {
	servers        map[string]*lsp.Server
	documents      *lsp.DocumentTracker
	workspaceRoots []string
}

func NewTranslator(documents *lsp.DocumentTracker) *Translator {
	return &Translator{servers: make(map[string]*lsp.Server), documents: documents}
}

func (t *Translator) SetWorkspaceRoots(roots []string) { t.workspaceRoots = roots }

func (t *Translator) RegisterServer(languageID string, srv *lsp.Server) {
	t.servers[languageID] = srv
}

func (t *Translator) Servers() map[string]*lsp.Server { return t.servers }

// validatePath resolves path to an absolute, symlink-free form and
// rejects it unless it falls under a configured workspace root. With no
// roots configured, any resolvable path is accepted.
func (t *Translator) validatePath(path string) (string, error) {
	canonical, err := filepath.Abs(path)
	if err != nil {
		return "", mcplserrors.FileIO(path, err)
	}
	canonical, err = filepath.EvalSymlinks(canonical)
	if err != nil {
		return "", mcplserrors.FileIO(path, err)
	}
	canonical = filepath.Clean(canonical)

	if len(t.workspaceRoots) == 0 {
		return canonical, nil
	}
	for _, root := range t.workspaceRoots {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		if resolved, err := filepath.EvalSymlinks(absRoot); err == nil {
			absRoot = resolved
		}
		absRoot = filepath.Clean(absRoot)
		if canonical == absRoot || strings.HasPrefix(canonical, absRoot+string(filepath.Separator)) {
			return canonical, nil
		}
	}
	return "", mcplserrors.PathOutsideWorkspace(path)
}

func (t *Translator) serverForFile(path string) (*lsp.Server, error) {
	languageID := lsp.DetectLanguage(path)
	srv, ok := t.servers[languageID]
	if !ok {
		return nil, mcplserrors.NoServerForLanguage(languageID)
	}
	return srv, nil
}

func (t *Translator) ensureOpen(ctx context.Context, srv *lsp.Server, path string) (string, error) {
	return t.documents.EnsureOpen(ctx, path, func(ctx context.Context, method string, params interface{}) error {
		return srv.Peer().Notify(ctx, method, params)
	})
}

func (t *Translator) resolve(ctx context.Context, filePath string) (*lsp.Server, string, error) {
	validated, err := t.validatePath(filePath)
	if err != nil {
		return nil, "", err
	}
	srv, err := t.serverForFile(validated)
	if err != nil {
		return nil, "", err
	}
	uri, err := t.ensureOpen(ctx, srv, validated)
	if err != nil {
		return nil, "", err
	}
	return srv, uri, nil
}

func mcpPosition(srv *lsp.Server, line, character int) lsp.Position {
	l, c := position.McpToLsp(line, character)
	_ = srv // the character column is passed through as-is; it is not converted to the server's negotiated PositionEncoding
	return lsp.Position{Line: l, Character: c}
}

func normalizeRange(r lsp.Range) Range {
	sl, sc := position.LspToMcp(r.Start.Line, r.Start.Character)
	el, ec := position.LspToMcp(r.End.Line, r.End.Character)
	return Range{Start: Position2D{Line: sl, Character: sc}, End: Position2D{Line: el, Character: ec}}
}

// Result types: MCP-facing, 1-based, JSON shapes. Field names mirror the
// upstream tool contracts exactly.

type Position2D struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

type Range struct {
	Start Position2D `json:"start"`
	End   Position2D `json:"end"`
}

type Location struct {
	URI   string `json:"uri"`
	Range Range  `json:"range"`
}

type HoverResult struct {
	Contents string `json:"contents"`
	Range    *Range `json:"range,omitempty"`
}

type DefinitionResult struct {
	Locations []Location `json:"locations"`
}

type ReferencesResult struct {
	Locations []Location `json:"locations"`
}

type Diagnostic struct {
	Range    Range   `json:"range"`
	Severity string  `json:"severity"`
	Message  string  `json:"message"`
	Code     *string `json:"code,omitempty"`
}

type DiagnosticsResult struct {
	Diagnostics []Diagnostic `json:"diagnostics"`
}

type TextEdit struct {
	Range   Range  `json:"range"`
	NewText string `json:"new_text"`
}

type DocumentChanges struct {
	URI   string     `json:"uri"`
	Edits []TextEdit `json:"edits"`
}

type RenameResult struct {
	Changes []DocumentChanges `json:"changes"`
}

type Completion struct {
	Label         string  `json:"label"`
	Kind          *string `json:"kind,omitempty"`
	Detail        *string `json:"detail,omitempty"`
	Documentation *string `json:"documentation,omitempty"`
}

type CompletionsResult struct {
	Items []Completion `json:"items"`
}

type Symbol struct {
	Name           string   `json:"name"`
	Kind           string   `json:"kind"`
	Range          Range    `json:"range"`
	SelectionRange Range    `json:"selection_range"`
	Children       []Symbol `json:"children,omitempty"`
}

type DocumentSymbolsResult struct {
	Symbols []Symbol `json:"symbols"`
}

type FormatDocumentResult struct {
	Edits []TextEdit `json:"edits"`
}

type WorkspaceSymbol struct {
	Name          string   `json:"name"`
	Kind          string   `json:"kind"`
	Location      Location `json:"location"`
	ContainerName *string  `json:"container_name,omitempty"`
}

type WorkspaceSymbolResult struct {
	Symbols []WorkspaceSymbol `json:"symbols"`
}

// HandleHover implements the get_hover tool.
func (t *Translator) HandleHover(ctx context.Context, filePath string, line, character int) (*HoverResult, error) {
	srv, uri, err := t.resolve(ctx, filePath)
	if err != nil {
		return nil, err
	}

	params := lsp.TextDocumentPositionParams{
		TextDocument: lsp.TextDocumentIdentifier{URI: uri},
		Position:     mcpPosition(srv, line, character),
	}

	var hover *lsp.Hover
	if err := srv.Peer().Call(ctx, "textDocument/hover", params, &hover, defaultTimeout); err != nil {
		return nil, err
	}
	if hover == nil {
		return &HoverResult{Contents: "No hover information available"}, nil
	}

	contents := extractHoverContents(hover.Contents)
	result := &HoverResult{Contents: contents}
	if hover.Range != nil {
		r := normalizeRange(*hover.Range)
		result.Range = &r
	}
	return result, nil
}

// HandleDefinition implements the get_definition tool.
func (t *Translator) HandleDefinition(ctx context.Context, filePath string, line, character int) (*DefinitionResult, error) {
	srv, uri, err := t.resolve(ctx, filePath)
	if err != nil {
		return nil, err
	}

	params := lsp.TextDocumentPositionParams{
		TextDocument: lsp.TextDocumentIdentifier{URI: uri},
		Position:     mcpPosition(srv, line, character),
	}

	var raw json.RawMessage
	if err := srv.Peer().Call(ctx, "textDocument/definition", params, &raw, defaultTimeout); err != nil {
		return nil, err
	}

	locations := decodeDefinitionResponse(raw)
	result := &DefinitionResult{Locations: make([]Location, 0, len(locations))}
	for _, loc := range locations {
		result.Locations = append(result.Locations, Location{URI: loc.URI, Range: normalizeRange(loc.Range)})
	}
	return result, nil
}

// HandleReferences implements the get_references tool.
func (t *Translator) HandleReferences(ctx context.Context, filePath string, line, character int, includeDeclaration bool) (*ReferencesResult, error) {
	srv, uri, err := t.resolve(ctx, filePath)
	if err != nil {
		return nil, err
	}

	params := lsp.ReferenceParams{
		TextDocumentPositionParams: lsp.TextDocumentPositionParams{
			TextDocument: lsp.TextDocumentIdentifier{URI: uri},
			Position:     mcpPosition(srv, line, character),
		},
		Context: lsp.ReferenceContext{IncludeDeclaration: includeDeclaration},
	}

	var locs []lsp.Location
	if err := srv.Peer().Call(ctx, "textDocument/references", params, &locs, defaultTimeout); err != nil {
		return nil, err
	}

	result := &ReferencesResult{Locations: make([]Location, 0, len(locs))}
	for _, loc := range locs {
		result.Locations = append(result.Locations, Location{URI: loc.URI, Range: normalizeRange(loc.Range)})
	}
	return result, nil
}

// HandleDiagnostics implements the get_diagnostics tool, reading from the
// document's own pull-diagnostics response (not the notification cache,
// which holds push diagnostics a server may have sent independently).
func (t *Translator) HandleDiagnostics(ctx context.Context, filePath string) (*DiagnosticsResult, error) {
	srv, uri, err := t.resolve(ctx, filePath)
	if err != nil {
		return nil, err
	}

	params := map[string]interface{}{
		"textDocument": lsp.TextDocumentIdentifier{URI: uri},
	}

	var report struct {
		Kind  string           `json:"kind"`
		Items []lsp.Diagnostic `json:"items"`
	}
	if err := srv.Peer().Call(ctx, "textDocument/diagnostic", params, &report, defaultTimeout); err != nil {
		return nil, err
	}

	result := &DiagnosticsResult{Diagnostics: make([]Diagnostic, 0, len(report.Items))}
	for _, d := range report.Items {
		result.Diagnostics = append(result.Diagnostics, Diagnostic{
			Range:    normalizeRange(d.Range),
			Severity: severityName(d.Severity),
			Message:  d.Message,
			Code:     diagnosticCode(d.Code),
		})
	}
	return result, nil
}

// HandleRename implements the rename_symbol tool.
func (t *Translator) HandleRename(ctx context.Context, filePath string, line, character int, newName string) (*RenameResult, error) {
	srv, uri, err := t.resolve(ctx, filePath)
	if err != nil {
		return nil, err
	}

	params := lsp.RenameParams{
		TextDocumentPositionParams: lsp.TextDocumentPositionParams{
			TextDocument: lsp.TextDocumentIdentifier{URI: uri},
			Position:     mcpPosition(srv, line, character),
		},
		NewName: newName,
	}

	var edit *lsp.WorkspaceEdit
	if err := srv.Peer().Call(ctx, "textDocument/rename", params, &edit, defaultTimeout); err != nil {
		return nil, err
	}

	var changes []DocumentChanges
	if edit != nil {
		uris := make([]string, 0, len(edit.Changes))
		for u := range edit.Changes {
			uris = append(uris, u)
		}
		sort.Strings(uris)
		for _, u := range uris {
			edits := make([]TextEdit, 0, len(edit.Changes[u]))
			for _, e := range edit.Changes[u] {
				edits = append(edits, TextEdit{Range: normalizeRange(e.Range), NewText: e.NewText})
			}
			changes = append(changes, DocumentChanges{URI: u, Edits: edits})
		}
	}
	return &RenameResult{Changes: changes}, nil
}

// HandleCompletions implements the get_completions tool.
func (t *Translator) HandleCompletions(ctx context.Context, filePath string, line, character int, trigger string) (*CompletionsResult, error) {
	srv, uri, err := t.resolve(ctx, filePath)
	if err != nil {
		return nil, err
	}

	params := map[string]interface{}{
		"textDocument": lsp.TextDocumentIdentifier{URI: uri},
		"position":     mcpPosition(srv, line, character),
	}
	if trigger != "" {
		params["context"] = map[string]interface{}{"triggerKind": 2, "triggerCharacter": trigger}
	}

	var raw json.RawMessage
	if err := srv.Peer().Call(ctx, "textDocument/completion", params, &raw, completionTimeout); err != nil {
		return nil, err
	}

	items := decodeCompletionResponse(raw)
	result := &CompletionsResult{Items: make([]Completion, 0, len(items))}
	for _, item := range items {
		c := Completion{Label: item.Label}
		if item.Kind != 0 {
			k := completionKindName(item.Kind)
			c.Kind = &k
		}
		if item.Detail != "" {
			d := item.Detail
			c.Detail = &d
		}
		if doc := extractDocumentation(item.Documentation); doc != "" {
			c.Documentation = &doc
		}
		result.Items = append(result.Items, c)
	}
	return result, nil
}

// HandleDocumentSymbols implements the get_document_symbols tool.
func (t *Translator) HandleDocumentSymbols(ctx context.Context, filePath string) (*DocumentSymbolsResult, error) {
	srv, uri, err := t.resolve(ctx, filePath)
	if err != nil {
		return nil, err
	}

	params := lsp.DocumentSymbolParams{TextDocument: lsp.TextDocumentIdentifier{URI: uri}}

	var raw json.RawMessage
	if err := srv.Peer().Call(ctx, "textDocument/documentSymbol", params, &raw, defaultTimeout); err != nil {
		return nil, err
	}

	symbols := decodeDocumentSymbolResponse(raw)
	return &DocumentSymbolsResult{Symbols: symbols}, nil
}

// HandleFormatDocument implements the format_document tool.
func (t *Translator) HandleFormatDocument(ctx context.Context, filePath string, tabSize int, insertSpaces bool) (*FormatDocumentResult, error) {
	srv, uri, err := t.resolve(ctx, filePath)
	if err != nil {
		return nil, err
	}

	params := lsp.DocumentFormattingParams{
		TextDocument: lsp.TextDocumentIdentifier{URI: uri},
		Options:      lsp.FormattingOptions{TabSize: tabSize, InsertSpaces: insertSpaces},
	}

	var edits []lsp.TextEdit
	if err := srv.Peer().Call(ctx, "textDocument/formatting", params, &edits, defaultTimeout); err != nil {
		return nil, err
	}

	result := &FormatDocumentResult{Edits: make([]TextEdit, 0, len(edits))}
	for _, e := range edits {
		result.Edits = append(result.Edits, TextEdit{Range: normalizeRange(e.Range), NewText: e.NewText})
	}
	return result, nil
}

// HandleWorkspaceSymbol implements the workspace_symbol_search tool.
func (t *Translator) HandleWorkspaceSymbol(ctx context.Context, query string, kindFilter string, limit int) (*WorkspaceSymbolResult, error) {
	if len(query) > maxQueryLength {
		return nil, mcplserrors.InvalidToolParams(fmt.Sprintf("query too long: %d chars (max %d)", len(query), maxQueryLength))
	}
	if kindFilter != "" && !isValidSymbolKind(kindFilter) {
		return nil, mcplserrors.InvalidToolParams(fmt.Sprintf("invalid kind_filter: %q", kindFilter))
	}

	var srv *lsp.Server
	for _, s := range t.servers {
		srv = s
		break
	}
	if srv == nil {
		return nil, mcplserrors.NoServerConfigured()
	}

	params := lsp.WorkspaceSymbolParams{Query: query}
	var syms []lsp.SymbolInformation
	if err := srv.Peer().Call(ctx, "workspace/symbol", params, &syms, defaultTimeout); err != nil {
		return nil, err
	}

	result := make([]WorkspaceSymbol, 0, len(syms))
	for _, s := range syms {
		kindName := symbolKindName(s.Kind)
		if kindFilter != "" && !strings.EqualFold(kindName, kindFilter) {
			continue
		}
		result = append(result, WorkspaceSymbol{
			Name:     s.Name,
			Kind:     kindName,
			Location: Location{URI: s.Location.URI, Range: normalizeRange(s.Location.Range)},
		})
	}
	if limit >= 0 && len(result) > limit {
		result = result[:limit]
	}
	return &WorkspaceSymbolResult{Symbols: result}, nil
}

func isValidSymbolKind(kind string) bool {
	for _, k := range validSymbolKinds {
		if strings.EqualFold(k, kind) {
			return true
		}
	}
	return false
}
