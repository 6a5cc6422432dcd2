package mcpserver

import (
	"context"
	"encoding/json"

	mcplserrors "mcpls/internal/errors"
)

// registerTools builds the tool table, wiring each tool name to a
// translator method plus its MCP parameter schema and defaults.
func (s *Server) registerTools() {
	s.register(Tool{
		Name:        "get_hover",
		Description: "Get hover information (type, documentation) for a symbol at a position in a file.",
		InputSchema: positionSchema(),
	}, s.handleGetHover)

	s.register(Tool{
		Name:        "get_definition",
		Description: "Jump to the definition of the symbol at a position in a file.",
		InputSchema: positionSchema(),
	}, s.handleGetDefinition)

	s.register(Tool{
		Name:        "get_references",
		Description: "Find all references to the symbol at a position in a file.",
		InputSchema: mergeSchema(positionSchema(), map[string]interface{}{
			"include_declaration": map[string]interface{}{
				"type": "boolean", "description": "Include the declaration itself in the results.", "default": false,
			},
		}, nil),
	}, s.handleGetReferences)

	s.register(Tool{
		Name:        "get_diagnostics",
		Description: "Get diagnostics (errors, warnings) currently reported for a file.",
		InputSchema: fileSchema(),
	}, s.handleGetDiagnostics)

	s.register(Tool{
		Name:        "rename_symbol",
		Description: "Rename the symbol at a position in a file across the workspace.",
		InputSchema: mergeSchema(positionSchema(), map[string]interface{}{
			"new_name": map[string]interface{}{"type": "string", "description": "The new name for the symbol."},
		}, []string{"new_name"}),
	}, s.handleRenameSymbol)

	s.register(Tool{
		Name:        "get_completions",
		Description: "Get completion suggestions at a position in a file.",
		InputSchema: mergeSchema(positionSchema(), map[string]interface{}{
			"trigger_character": map[string]interface{}{
				"type": "string", "description": "The character that triggered completion, if any.", "default": "",
			},
		}, nil),
	}, s.handleGetCompletions)

	s.register(Tool{
		Name:        "get_document_symbols",
		Description: "List all symbols (functions, types, variables) defined in a file.",
		InputSchema: fileSchema(),
	}, s.handleGetDocumentSymbols)

	s.register(Tool{
		Name:        "format_document",
		Description: "Format an entire file according to its language server's formatting rules.",
		InputSchema: mergeSchema(fileSchema(), map[string]interface{}{
			"tab_size":      map[string]interface{}{"type": "integer", "description": "Spaces per indent level.", "default": 4},
			"insert_spaces": map[string]interface{}{"type": "boolean", "description": "Use spaces instead of tabs.", "default": true},
		}, nil),
	}, s.handleFormatDocument)

	s.register(Tool{
		Name:        "workspace_symbol_search",
		Description: "Search for symbols by name across the entire workspace.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"query":       map[string]interface{}{"type": "string", "description": "Symbol name query."},
				"kind_filter": map[string]interface{}{"type": "string", "description": "Restrict results to a single symbol kind (e.g. Function, Class).", "default": ""},
				"limit":       map[string]interface{}{"type": "integer", "description": "Maximum number of results.", "default": 100},
			},
			"required": []string{"query"},
		},
	}, s.handleWorkspaceSymbolSearch)
}

func fileSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"file_path": map[string]interface{}{"type": "string", "description": "Absolute path to the file (a relative path is resolved against the server's working directory)."},
		},
		"required": []string{"file_path"},
	}
}

func positionSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"file_path": map[string]interface{}{"type": "string", "description": "Absolute path to the file (a relative path is resolved against the server's working directory)."},
			"line":      map[string]interface{}{"type": "integer", "description": "1-based line number."},
			"character": map[string]interface{}{"type": "integer", "description": "1-based character column."},
		},
		"required": []string{"file_path", "line", "character"},
	}
}

// mergeSchema adds extra properties onto a base object schema and extends
// its required list.
func mergeSchema(base map[string]interface{}, extra map[string]interface{}, required []string) map[string]interface{} {
	props, _ := base["properties"].(map[string]interface{})
	merged := make(map[string]interface{}, len(props)+len(extra))
	for k, v := range props {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	reqList, _ := base["required"].([]string)
	reqList = append(append([]string{}, reqList...), required...)
	return map[string]interface{}{
		"type":       "object",
		"properties": merged,
		"required":   reqList,
	}
}

type filePositionArgs struct {
	FilePath  string `json:"file_path"`
	Line      int    `json:"line"`
	Character int    `json:"character"`
}

func (s *Server) handleGetHover(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var args filePositionArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, mcplserrors.InvalidToolParams(err.Error())
	}
	return s.translator.HandleHover(ctx, args.FilePath, args.Line, args.Character)
}

func (s *Server) handleGetDefinition(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var args filePositionArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, mcplserrors.InvalidToolParams(err.Error())
	}
	return s.translator.HandleDefinition(ctx, args.FilePath, args.Line, args.Character)
}

func (s *Server) handleGetReferences(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var args struct {
		filePositionArgs
		IncludeDeclaration bool `json:"include_declaration"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, mcplserrors.InvalidToolParams(err.Error())
	}
	return s.translator.HandleReferences(ctx, args.FilePath, args.Line, args.Character, args.IncludeDeclaration)
}

func (s *Server) handleGetDiagnostics(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var args struct {
		FilePath string `json:"file_path"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, mcplserrors.InvalidToolParams(err.Error())
	}
	return s.translator.HandleDiagnostics(ctx, args.FilePath)
}

func (s *Server) handleRenameSymbol(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var args struct {
		filePositionArgs
		NewName string `json:"new_name"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, mcplserrors.InvalidToolParams(err.Error())
	}
	return s.translator.HandleRename(ctx, args.FilePath, args.Line, args.Character, args.NewName)
}

func (s *Server) handleGetCompletions(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var args struct {
		filePositionArgs
		TriggerCharacter string `json:"trigger_character"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, mcplserrors.InvalidToolParams(err.Error())
	}
	return s.translator.HandleCompletions(ctx, args.FilePath, args.Line, args.Character, args.TriggerCharacter)
}

func (s *Server) handleGetDocumentSymbols(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var args struct {
		FilePath string `json:"file_path"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, mcplserrors.InvalidToolParams(err.Error())
	}
	return s.translator.HandleDocumentSymbols(ctx, args.FilePath)
}

func (s *Server) handleFormatDocument(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	args := struct {
		FilePath     string `json:"file_path"`
		TabSize      int    `json:"tab_size"`
		InsertSpaces *bool  `json:"insert_spaces"`
	}{TabSize: 4}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, mcplserrors.InvalidToolParams(err.Error())
	}
	insertSpaces := true
	if args.InsertSpaces != nil {
		insertSpaces = *args.InsertSpaces
	}
	if args.TabSize <= 0 {
		args.TabSize = 4
	}
	return s.translator.HandleFormatDocument(ctx, args.FilePath, args.TabSize, insertSpaces)
}

func (s *Server) handleWorkspaceSymbolSearch(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	args := struct {
		Query      string `json:"query"`
		KindFilter string `json:"kind_filter"`
		Limit      *int   `json:"limit"`
	}{}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, mcplserrors.InvalidToolParams(err.Error())
	}
	limit := 100
	if args.Limit != nil {
		limit = *args.Limit
	}
	return s.translator.HandleWorkspaceSymbol(ctx, args.Query, args.KindFilter, limit)
}
