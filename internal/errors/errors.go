// Package errors provides the standardized error taxonomy used across mcpls.
package errors

import "fmt"

// Kind categorizes an Error by the subsystem that raised it.
type Kind string

const (
	KindConfig    Kind = "CONFIG"
	KindLifecycle Kind = "LIFECYCLE"
	KindRouting   Kind = "ROUTING"
	KindProtocol  Kind = "PROTOCOL"
	KindTransport Kind = "TRANSPORT"
	KindDocument  Kind = "DOCUMENT"
	KindUpstream  Kind = "UPSTREAM"
)

// Error is the standard error shape returned by every mcpls package.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Context map[string]interface{}
	Wrapped error
}

func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Kind, e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Wrapped }

func New(kind Kind, code, message string, context map[string]interface{}) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Context: context}
}

func Wrap(kind Kind, code, message string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Wrapped: err}
}

// Config errors.

func ConfigNotFound(path string) *Error {
	return New(KindConfig, "CONFIG_NOT_FOUND", fmt.Sprintf("configuration file not found: %s", path),
		map[string]interface{}{"path": path})
}

func InvalidConfig(reason string) *Error {
	return New(KindConfig, "INVALID_CONFIG", reason, nil)
}

// Lifecycle errors.

func LspInitFailed(message string) *Error {
	return New(KindLifecycle, "LSP_INIT_FAILED", message, nil)
}

func ServerSpawnFailed(command string, err error) *Error {
	return Wrap(KindLifecycle, "SERVER_SPAWN_FAILED", fmt.Sprintf("failed to spawn %q", command), err)
}

func Timeout(seconds uint64) *Error {
	return New(KindLifecycle, "TIMEOUT", fmt.Sprintf("operation timed out after %ds", seconds),
		map[string]interface{}{"seconds": seconds})
}

func Shutdown() *Error {
	return New(KindLifecycle, "SHUTDOWN", "server is shutting down", nil)
}

func ServerTerminated() *Error {
	return New(KindLifecycle, "SERVER_TERMINATED", "language server terminated unexpectedly", nil)
}

// Routing errors.

func NoServerForLanguage(languageID string) *Error {
	return New(KindRouting, "NO_SERVER_FOR_LANGUAGE", fmt.Sprintf("no language server configured for %q", languageID),
		map[string]interface{}{"languageId": languageID})
}

func NoServerConfigured() *Error {
	return New(KindRouting, "NO_SERVER_CONFIGURED", "no language servers are configured", nil)
}

func PathOutsideWorkspace(path string) *Error {
	return New(KindRouting, "PATH_OUTSIDE_WORKSPACE", fmt.Sprintf("path is outside all workspace roots: %s", path),
		map[string]interface{}{"path": path})
}

// Protocol errors.

func LspServerError(code int, message string) *Error {
	return New(KindProtocol, "LSP_SERVER_ERROR", message,
		map[string]interface{}{"code": code})
}

func LspProtocolError(message string) *Error {
	return New(KindProtocol, "LSP_PROTOCOL_ERROR", message, nil)
}

func InvalidToolParams(message string) *Error {
	return New(KindProtocol, "INVALID_TOOL_PARAMS", message, nil)
}

func EncodingError(message string) *Error {
	return New(KindProtocol, "ENCODING_ERROR", message, nil)
}

func InvalidURI(uri string) *Error {
	return New(KindProtocol, "INVALID_URI", fmt.Sprintf("invalid URI: %s", uri),
		map[string]interface{}{"uri": uri})
}

// Transport errors.

func TransportError(message string) *Error {
	return New(KindTransport, "TRANSPORT_ERROR", message, nil)
}

// Document errors.

func DocumentNotFound(path string) *Error {
	return New(KindDocument, "DOCUMENT_NOT_FOUND", fmt.Sprintf("document not open: %s", path),
		map[string]interface{}{"path": path})
}

func DocumentLimitExceeded(current, max int) *Error {
	return New(KindDocument, "DOCUMENT_LIMIT_EXCEEDED",
		fmt.Sprintf("open document limit exceeded: %d/%d", current, max),
		map[string]interface{}{"current": current, "max": max})
}

func FileSizeLimitExceeded(size, max int64) *Error {
	return New(KindDocument, "FILE_SIZE_LIMIT_EXCEEDED",
		fmt.Sprintf("file size limit exceeded: %d/%d bytes", size, max),
		map[string]interface{}{"size": size, "max": max})
}

func FileIO(path string, err error) *Error {
	return Wrap(KindDocument, "FILE_IO", fmt.Sprintf("I/O error reading %s", path), err)
}

// Upstream errors (catch-all for wrapped stdlib I/O/JSON/TOML failures).

func IO(err error) *Error {
	return Wrap(KindUpstream, "IO", "I/O error", err)
}

func JSON(err error) *Error {
	return Wrap(KindUpstream, "JSON", "JSON encode/decode error", err)
}

func TOML(err error) *Error {
	return Wrap(KindUpstream, "TOML", "TOML decode error", err)
}

func MCPServer(message string) *Error {
	return New(KindUpstream, "MCP_SERVER", message, nil)
}
