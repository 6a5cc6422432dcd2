package lsp

import "encoding/json"

// Position is an LSP position: zero-based line, character offset expressed
// in the negotiated PositionEncoding's unit.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

type Location struct {
	URI   string `json:"uri"`
	Range Range  `json:"range"`
}

type TextDocumentIdentifier struct {
	URI string `json:"uri"`
}

type VersionedTextDocumentIdentifier struct {
	URI     string `json:"uri"`
	Version int    `json:"version"`
}

type TextDocumentItem struct {
	URI        string `json:"uri"`
	LanguageID string `json:"languageId"`
	Version    int    `json:"version"`
	Text       string `json:"text"`
}

type TextDocumentPositionParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Position     Position               `json:"position"`
}

type DidOpenTextDocumentParams struct {
	TextDocument TextDocumentItem `json:"textDocument"`
}

type TextDocumentContentChangeEvent struct {
	Text string `json:"text"`
}

type DidChangeTextDocumentParams struct {
	TextDocument   VersionedTextDocumentIdentifier  `json:"textDocument"`
	ContentChanges []TextDocumentContentChangeEvent `json:"contentChanges"`
}

type DidCloseTextDocumentParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
}

// Hover.

type MarkupContent struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// Hover's Contents field can be a string, a {language,value} MarkedString,
// an array of either, or MarkupContent — decoded lazily by the translator.
type Hover struct {
	Contents json.RawMessage `json:"contents"`
	Range    *Range          `json:"range,omitempty"`
}

// Definition.

// DefinitionResponse can be a single Location, an array, or LocationLink[];
// the translator normalizes all three shapes.
type DefinitionResponse json.RawMessage

type LocationLink struct {
	TargetURI            string `json:"targetUri"`
	TargetRange          Range  `json:"targetRange"`
	TargetSelectionRange Range  `json:"targetSelectionRange"`
}

// References.

type ReferenceContext struct {
	IncludeDeclaration bool `json:"includeDeclaration"`
}

type ReferenceParams struct {
	TextDocumentPositionParams
	Context ReferenceContext `json:"context"`
}

// Diagnostics.

type Diagnostic struct {
	Range              Range                          `json:"range"`
	Severity           int                             `json:"severity,omitempty"`
	Code               json.RawMessage                 `json:"code,omitempty"`
	Source             string                          `json:"source,omitempty"`
	Message            string                          `json:"message"`
	RelatedInformation []DiagnosticRelatedInformation  `json:"relatedInformation,omitempty"`
}

type DiagnosticRelatedInformation struct {
	Location Location `json:"location"`
	Message  string   `json:"message"`
}

type PublishDiagnosticsParams struct {
	URI         string       `json:"uri"`
	Version     *int         `json:"version,omitempty"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// Rename.

type RenameParams struct {
	TextDocumentPositionParams
	NewName string `json:"newName"`
}

type TextEdit struct {
	Range   Range  `json:"range"`
	NewText string `json:"newText"`
}

type WorkspaceEdit struct {
	Changes map[string][]TextEdit `json:"changes,omitempty"`
}

// Completion.

type CompletionParams struct {
	TextDocumentPositionParams
}

type CompletionItem struct {
	Label         string          `json:"label"`
	Kind          int             `json:"kind,omitempty"`
	Detail        string          `json:"detail,omitempty"`
	Documentation json.RawMessage `json:"documentation,omitempty"`
	InsertText    string          `json:"insertText,omitempty"`
}

// CompletionResponse can be CompletionItem[] or a CompletionList; the
// translator normalizes both shapes.
type CompletionResponse json.RawMessage

type CompletionList struct {
	IsIncomplete bool             `json:"isIncomplete"`
	Items        []CompletionItem `json:"items"`
}

// Document symbols.

type DocumentSymbolParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
}

type DocumentSymbol struct {
	Name           string           `json:"name"`
	Detail         string           `json:"detail,omitempty"`
	Kind           int              `json:"kind"`
	Range          Range            `json:"range"`
	SelectionRange Range            `json:"selectionRange"`
	Children       []DocumentSymbol `json:"children,omitempty"`
}

type SymbolInformation struct {
	Name     string   `json:"name"`
	Kind     int      `json:"kind"`
	Location Location `json:"location"`
}

// DocumentSymbolResponse can be DocumentSymbol[] (hierarchical) or
// SymbolInformation[] (flat); the translator normalizes both shapes.
type DocumentSymbolResponse json.RawMessage

// Formatting.

type FormattingOptions struct {
	TabSize      int  `json:"tabSize"`
	InsertSpaces bool `json:"insertSpaces"`
}

type DocumentFormattingParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Options      FormattingOptions      `json:"options"`
}

// Workspace symbols.

type WorkspaceSymbolParams struct {
	Query string `json:"query"`
}

// Lifecycle / initialize.

type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

type WorkspaceFolder struct {
	URI  string `json:"uri"`
	Name string `json:"name"`
}

type InitializeParams struct {
	ProcessID             int                    `json:"processId"`
	ClientInfo            ClientInfo             `json:"clientInfo"`
	RootURI               *string                `json:"rootUri"`
	WorkspaceFolders      []WorkspaceFolder      `json:"workspaceFolders,omitempty"`
	Capabilities          map[string]interface{} `json:"capabilities"`
	InitializationOptions interface{}            `json:"initializationOptions,omitempty"`
}

type InitializeResult struct {
	Capabilities map[string]interface{} `json:"capabilities"`
}

// ShowMessageParams / LogMessageParams mirror window/showMessage and
// window/logMessage notifications sent by language servers.
type ShowMessageParams struct {
	Type    int    `json:"type"`
	Message string `json:"message"`
}

type LogMessageParams struct {
	Type    int    `json:"type"`
	Message string `json:"message"`
}
