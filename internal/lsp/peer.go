package lsp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"github.com/sourcegraph/jsonrpc2"

	mcplserrors "mcpls/internal/errors"
)

// NotificationHandler is invoked for every inbound notification a language
// server sends (diagnostics, log messages, show-message requests, and any
// method the caller did not explicitly register for).
type NotificationHandler func(method string, params json.RawMessage)

// Peer is a JSON-RPC 2.0 connection to one spawned language server,
// correlating requests/responses via github.com/sourcegraph/jsonrpc2 and
// routing inbound notifications to a single handler.
type Peer struct {
	conn   *jsonrpc2.Conn
	logger *slog.Logger
}

// stdioStream combines a child process's stdin/stdout pipes into the single
// io.ReadWriteCloser the jsonrpc2 transport expects.
type stdioStream struct {
	in  io.WriteCloser
	out io.ReadCloser
}

func (s *stdioStream) Read(p []byte) (int, error)  { return s.out.Read(p) }
func (s *stdioStream) Write(p []byte) (int, error) { return s.in.Write(p) }
func (s *stdioStream) Close() error {
	errIn := s.in.Close()
	errOut := s.out.Close()
	if errIn != nil {
		return errIn
	}
	return errOut
}

type peerHandler struct {
	onNotify NotificationHandler
	logger   *slog.Logger
}

func (h *peerHandler) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params json.RawMessage
	if req.Params != nil {
		params = *req.Params
	}

	if !req.Notif {
		// Language servers occasionally issue server->client requests
		// (workspace/configuration, client/registerCapability, ...). mcpls
		// has no client-side state to satisfy them meaningfully, so it
		// acknowledges with an empty result rather than leaving the
		// server's request hanging.
		if err := conn.Reply(ctx, req.ID, map[string]interface{}{}); err != nil {
			h.logger.Warn("lsp: failed to reply to server request", "method", req.Method, "error", err)
		}
		return
	}

	if h.onNotify != nil {
		h.onNotify(req.Method, params)
	}
}

// NewPeer spawns no process itself; it wraps an already-connected pair of
// pipes (typically a child process's stdin/stdout) into a Peer.
func NewPeer(stdin io.WriteCloser, stdout io.ReadCloser, onNotify NotificationHandler, logger *slog.Logger) *Peer {
	if logger == nil {
		logger = slog.Default()
	}
	stream := &stdioStream{in: stdin, out: stdout}
	objStream := jsonrpc2.NewBufferedStream(stream, newCodec(logger))
	handler := &peerHandler{onNotify: onNotify, logger: logger}
	conn := jsonrpc2.NewConn(context.Background(), objStream, handler)
	return &Peer{conn: conn, logger: logger}
}

// Call issues a request and blocks for its response, or until timeout
// elapses. A late reply arriving after the deadline is discarded by the
// underlying connection's own correlation table.
func (p *Peer) Call(ctx context.Context, method string, params, result interface{}, timeout time.Duration) error {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := p.conn.Call(callCtx, method, params, result)
	if err != nil {
		if callCtx.Err() != nil {
			return mcplserrors.Timeout(uint64(timeout.Seconds()))
		}
		if rpcErr, ok := err.(*jsonrpc2.Error); ok {
			return mcplserrors.LspServerError(int(rpcErr.Code), rpcErr.Message)
		}
		return mcplserrors.TransportError(err.Error())
	}
	return nil
}

// Notify sends a one-way notification.
func (p *Peer) Notify(ctx context.Context, method string, params interface{}) error {
	if err := p.conn.Notify(ctx, method, params); err != nil {
		return mcplserrors.TransportError(err.Error())
	}
	return nil
}

// DisconnectNotify returns a channel closed when the underlying connection
// is torn down, whether by Close or because the child process exited.
func (p *Peer) DisconnectNotify() <-chan struct{} {
	return p.conn.DisconnectNotify()
}

// Close tears down the connection without sending shutdown/exit; callers
// that want a graceful LSP shutdown should call Lifecycle's Shutdown first.
func (p *Peer) Close() error {
	return p.conn.Close()
}
