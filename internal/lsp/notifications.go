package lsp

import (
	"sync"
	"time"
)

// MaxLogEntries and MaxServerMessages bound the FIFO queues below; the
// oldest entry is dropped to make room for a new one once either cap is
// reached, so a noisy language server cannot grow the bridge's memory
// without bound.
const (
	MaxLogEntries     = 100
	MaxServerMessages = 50
)

type LogLevel int

const (
	LogError LogLevel = iota
	LogWarning
	LogInfo
	LogDebug
)

type LogEntry struct {
	Level     LogLevel
	Message   string
	Timestamp time.Time
}

type MessageType int

const (
	MessageError MessageType = iota
	MessageWarning
	MessageInfo
	MessageLog
)

type ServerMessage struct {
	Type      MessageType
	Message   string
	Timestamp time.Time
}

// DiagnosticInfo is the latest textDocument/publishDiagnostics payload for
// one URI; a new publish for the same URI fully replaces the previous one.
type DiagnosticInfo struct {
	URI         string
	Version     *int
	Diagnostics []Diagnostic
}

// NotificationCache holds everything a language server has told the bridge
// about asynchronously: per-file diagnostics plus bounded FIFO queues of
// its log and show-message notifications.
type NotificationCache struct {
	mu          sync.Mutex
	diagnostics map[string]DiagnosticInfo
	logs        []LogEntry
	messages    []ServerMessage
}

func NewNotificationCache() *NotificationCache {
	return &NotificationCache{
		diagnostics: make(map[string]DiagnosticInfo),
	}
}

func (c *NotificationCache) StoreDiagnostics(info DiagnosticInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.diagnostics[info.URI] = info
}

func (c *NotificationCache) Diagnostics(uri string) (DiagnosticInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	info, ok := c.diagnostics[uri]
	return info, ok
}

func (c *NotificationCache) AllDiagnostics() []DiagnosticInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]DiagnosticInfo, 0, len(c.diagnostics))
	for _, info := range c.diagnostics {
		out = append(out, info)
	}
	return out
}

func (c *NotificationCache) StoreLog(entry LogEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.logs) >= MaxLogEntries {
		c.logs = c.logs[1:]
	}
	c.logs = append(c.logs, entry)
}

func (c *NotificationCache) Logs() []LogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]LogEntry, len(c.logs))
	copy(out, c.logs)
	return out
}

func (c *NotificationCache) StoreMessage(msg ServerMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.messages) >= MaxServerMessages {
		c.messages = c.messages[1:]
	}
	c.messages = append(c.messages, msg)
}

func (c *NotificationCache) Messages() []ServerMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ServerMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *NotificationCache) ClearDiagnostics() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.diagnostics = make(map[string]DiagnosticInfo)
}
