package lsp

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	mcplserrors "mcpls/internal/errors"
)

// MaxContentLength caps a single LSP message body, matching the limit every
// language server in the wild assumes. A message larger than this is
// treated as a protocol violation rather than read into memory.
const MaxContentLength = 10 * 1024 * 1024

const (
	maxHeaderBytes = 32 * 1024
	maxHeaderLines = 100
)

// codec implements jsonrpc2.ObjectCodec using LSP's Content-Length framing:
// zero or more "Key: Value\r\n" header lines, a blank line, then exactly
// Content-Length bytes of a UTF-8 JSON body.
type codec struct {
	logger *slog.Logger
}

func newCodec(logger *slog.Logger) *codec {
	if logger == nil {
		logger = slog.Default()
	}
	return &codec{logger: logger}
}

func (c *codec) WriteObject(stream io.Writer, obj interface{}) error {
	body, err := json.Marshal(obj)
	if err != nil {
		return mcplserrors.JSON(err)
	}
	if _, err := fmt.Fprintf(stream, "Content-Length: %d\r\n\r\n", len(body)); err != nil {
		return mcplserrors.TransportError(err.Error())
	}
	if _, err := stream.Write(body); err != nil {
		return mcplserrors.TransportError(err.Error())
	}
	return nil
}

func (c *codec) ReadObject(stream *bufio.Reader, v interface{}) error {
	headers, err := c.readHeaders(stream)
	if err != nil {
		return err
	}

	rawLength, ok := headers["content-length"]
	if !ok {
		return mcplserrors.LspProtocolError("missing Content-Length header")
	}
	length, err := strconv.Atoi(strings.TrimSpace(rawLength))
	if err != nil || length < 0 {
		return mcplserrors.LspProtocolError("invalid Content-Length header")
	}
	if length > MaxContentLength {
		return mcplserrors.LspProtocolError(fmt.Sprintf("content length %d exceeds maximum %d", length, MaxContentLength))
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(stream, body); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return mcplserrors.ServerTerminated()
		}
		return mcplserrors.TransportError(err.Error())
	}
	if !utf8.Valid(body) {
		return mcplserrors.LspProtocolError("message body is not valid UTF-8")
	}

	return json.Unmarshal(body, v)
}

// readHeaders reads "Key: Value\r\n" lines (case-insensitive keys, lowercased
// on return) until a blank line. Malformed lines (no colon) are logged and
// skipped rather than failing the whole message, matching how real language
// servers occasionally emit stray debug output on their stdout.
func (c *codec) readHeaders(stream *bufio.Reader) (map[string]string, error) {
	headers := make(map[string]string)
	totalBytes := 0
	lines := 0

	for {
		line, err := stream.ReadString('\n')
		if err != nil {
			if err == io.EOF && line == "" {
				return nil, mcplserrors.ServerTerminated()
			}
			if err != io.EOF {
				return nil, mcplserrors.TransportError(err.Error())
			}
		}

		lines++
		totalBytes += len(line)
		if lines > maxHeaderLines {
			return nil, mcplserrors.LspProtocolError("too many header lines")
		}
		if totalBytes > maxHeaderBytes {
			return nil, mcplserrors.LspProtocolError("header section too large")
		}

		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "" {
			break
		}

		idx := strings.IndexByte(trimmed, ':')
		if idx < 0 {
			c.logger.Warn("lsp: skipping malformed header line", "line", trimmed)
			continue
		}
		key := strings.ToLower(strings.TrimSpace(trimmed[:idx]))
		value := strings.TrimSpace(trimmed[idx+1:])
		headers[key] = value
	}

	return headers, nil
}
