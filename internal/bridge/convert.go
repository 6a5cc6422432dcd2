package bridge

import (
	"encoding/json"
	"strings"

	"mcpls/internal/lsp"
)

// extractHoverContents normalizes hover's three possible wire shapes
// (a bare MarkedString, an array of MarkedStrings, or MarkupContent) into
// a single markdown string.
func extractHoverContents(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return "No hover information available"
	}

	// MarkupContent: {"kind": "...", "value": "..."}
	var markup lsp.MarkupContent
	if err := json.Unmarshal(raw, &markup); err == nil && markup.Value != "" {
		return markup.Value
	}

	// Array of MarkedString.
	var array []json.RawMessage
	if err := json.Unmarshal(raw, &array); err == nil {
		parts := make([]string, 0, len(array))
		for _, item := range array {
			parts = append(parts, markedStringToString(item))
		}
		return strings.Join(parts, "\n\n")
	}

	// Scalar MarkedString (string or {language,value}).
	return markedStringToString(raw)
}

func markedStringToString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var ls struct {
		Language string `json:"language"`
		Value    string `json:"value"`
	}
	if err := json.Unmarshal(raw, &ls); err == nil && ls.Value != "" {
		return "```" + ls.Language + "\n" + ls.Value + "\n```"
	}
	return ""
}

// decodeDefinitionResponse accepts a single Location, a Location[], or a
// LocationLink[] and normalizes all three into a flat []lsp.Location.
func decodeDefinitionResponse(raw json.RawMessage) []lsp.Location {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var loc lsp.Location
	if err := json.Unmarshal(raw, &loc); err == nil && loc.URI != "" {
		return []lsp.Location{loc}
	}

	var locs []lsp.Location
	if err := json.Unmarshal(raw, &locs); err == nil {
		allHaveURI := true
		for _, l := range locs {
			if l.URI == "" {
				allHaveURI = false
				break
			}
		}
		if allHaveURI {
			return locs
		}
	}

	var links []lsp.LocationLink
	if err := json.Unmarshal(raw, &links); err == nil {
		out := make([]lsp.Location, 0, len(links))
		for _, link := range links {
			out = append(out, lsp.Location{URI: link.TargetURI, Range: link.TargetSelectionRange})
		}
		return out
	}

	return nil
}

// decodeCompletionResponse accepts either a CompletionItem[] or a
// CompletionList and normalizes both into a flat []lsp.CompletionItem.
func decodeCompletionResponse(raw json.RawMessage) []lsp.CompletionItem {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var items []lsp.CompletionItem
	if err := json.Unmarshal(raw, &items); err == nil {
		return items
	}

	var list lsp.CompletionList
	if err := json.Unmarshal(raw, &list); err == nil {
		return list.Items
	}

	return nil
}

// decodeDocumentSymbolResponse accepts either a DocumentSymbol[]
// (hierarchical) or a SymbolInformation[] (flat) and normalizes both into
// MCP's Symbol shape.
func decodeDocumentSymbolResponse(raw json.RawMessage) []Symbol {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var nested []lsp.DocumentSymbol
	if err := json.Unmarshal(raw, &nested); err == nil && len(nested) > 0 && hasSelectionRange(raw) {
		out := make([]Symbol, 0, len(nested))
		for _, s := range nested {
			out = append(out, convertDocumentSymbol(s))
		}
		return out
	}

	var flat []lsp.SymbolInformation
	if err := json.Unmarshal(raw, &flat); err == nil {
		out := make([]Symbol, 0, len(flat))
		for _, s := range flat {
			r := normalizeRange(s.Location.Range)
			out = append(out, Symbol{Name: s.Name, Kind: symbolKindName(s.Kind), Range: r, SelectionRange: r})
		}
		return out
	}

	return nil
}

// hasSelectionRange distinguishes DocumentSymbol (which carries its own
// selectionRange) from SymbolInformation (which nests range under
// location) since both otherwise unmarshal into either Go struct without
// error.
func hasSelectionRange(raw json.RawMessage) bool {
	var probe []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil || len(probe) == 0 {
		return false
	}
	_, ok := probe[0]["selectionRange"]
	return ok
}

func convertDocumentSymbol(s lsp.DocumentSymbol) Symbol {
	out := Symbol{
		Name:           s.Name,
		Kind:           symbolKindName(s.Kind),
		Range:          normalizeRange(s.Range),
		SelectionRange: normalizeRange(s.SelectionRange),
	}
	for _, c := range s.Children {
		out.Children = append(out.Children, convertDocumentSymbol(c))
	}
	return out
}

func extractDocumentation(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var markup lsp.MarkupContent
	if err := json.Unmarshal(raw, &markup); err == nil {
		return markup.Value
	}
	return ""
}

func severityName(severity int) string {
	switch severity {
	case 1:
		return "error"
	case 2:
		return "warning"
	case 3:
		return "information"
	case 4:
		return "hint"
	default:
		return "information"
	}
}

func diagnosticCode(raw json.RawMessage) *string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return &s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		str := n.String()
		return &str
	}
	return nil
}

// completionKindKinds and symbolKindKinds mirror lsp_types' Debug-derived
// names so MCP callers see the same identifiers across both language
// servers and this bridge, independent of which LSP server produced them.
var completionKindKinds = []string{
	"", "Text", "Method", "Function", "Constructor", "Field", "Variable",
	"Class", "Interface", "Module", "Property", "Unit", "Value", "Enum",
	"Keyword", "Snippet", "Color", "File", "Reference", "Folder",
	"EnumMember", "Constant", "Struct", "Event", "Operator", "TypeParameter",
}

func completionKindName(kind int) string {
	if kind > 0 && kind < len(completionKindKinds) {
		return completionKindKinds[kind]
	}
	return "Text"
}

var symbolKindKinds = []string{
	"", "File", "Module", "Namespace", "Package", "Class", "Method",
	"Property", "Field", "Constructor", "Enum", "Interface", "Function",
	"Variable", "Constant", "String", "Number", "Boolean", "Array",
	"Object", "Key", "Null", "EnumMember", "Struct", "Event", "Operator",
	"TypeParameter",
}

func symbolKindName(kind int) string {
	if kind > 0 && kind < len(symbolKindKinds) {
		return symbolKindKinds[kind]
	}
	return "Variable"
}
