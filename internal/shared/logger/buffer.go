package logger

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap/zapcore"
)

const logBufferSize = 1000

// LogEntry is one captured log line, kept for the admin log endpoints.
type LogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// LogBuffer is a fixed-size ring of recent entries.
type LogBuffer struct {
	mu      sync.RWMutex
	entries []LogEntry
	size    int
}

var (
	logBuffer = &LogBuffer{size: logBufferSize}

	callbackMu        sync.RWMutex
	broadcastCallback func(LogEntry)
)

// GetLogBuffer returns the process-wide log buffer.
func GetLogBuffer() *LogBuffer {
	return logBuffer
}

// SetBroadcastCallback registers a function invoked for every captured entry.
func SetBroadcastCallback(cb func(LogEntry)) {
	callbackMu.Lock()
	broadcastCallback = cb
	callbackMu.Unlock()
}

func (b *LogBuffer) add(entry LogEntry) {
	b.mu.Lock()
	b.entries = append(b.entries, entry)
	if len(b.entries) > b.size {
		b.entries = b.entries[len(b.entries)-b.size:]
	}
	b.mu.Unlock()

	callbackMu.RLock()
	cb := broadcastCallback
	callbackMu.RUnlock()
	if cb != nil {
		cb(entry)
	}
}

// GetRecent returns up to limit newest entries in chronological order.
func (b *LogBuffer) GetRecent(limit int) []LogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	start := 0
	if limit > 0 && len(b.entries) > limit {
		start = len(b.entries) - limit
	}
	out := make([]LogEntry, len(b.entries)-start)
	copy(out, b.entries[start:])
	return out
}

// Clear drops every buffered entry.
func (b *LogBuffer) Clear() {
	b.mu.Lock()
	b.entries = nil
	b.mu.Unlock()
}

func (b *LogBuffer) ToJSON() ([]byte, error) {
	return json.MarshalIndent(b.GetRecent(0), "", "  ")
}

func (b *LogBuffer) ToText() string {
	var sb strings.Builder
	for _, e := range b.GetRecent(0) {
		fmt.Fprintf(&sb, "%s [%s] %s", e.Timestamp.Format(time.RFC3339), e.Level, e.Message)
		for k, v := range e.Fields {
			fmt.Fprintf(&sb, " %s=%v", k, v)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// bufferCore tees zap entries into the ring buffer.
type bufferCore struct {
	zapcore.LevelEnabler
	buffer *LogBuffer
	fields []zapcore.Field
}

func newBufferCore(buffer *LogBuffer, level zapcore.LevelEnabler) zapcore.Core {
	return &bufferCore{LevelEnabler: level, buffer: buffer}
}

func (c *bufferCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &bufferCore{LevelEnabler: c.LevelEnabler, buffer: c.buffer, fields: merged}
}

func (c *bufferCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *bufferCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}
	c.buffer.add(LogEntry{
		Timestamp: ent.Time,
		Level:     ent.Level.String(),
		Message:   ent.Message,
		Fields:    enc.Fields,
	})
	return nil
}

func (c *bufferCore) Sync() error {
	return nil
}
