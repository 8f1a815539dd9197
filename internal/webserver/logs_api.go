package webserver

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ichi0g0y/spy-party/internal/shared/logger"
	"go.uber.org/zap"
)

// logClient はログ配信用のWebSocketクライアント
type logClient struct {
	conn *websocket.Conn
	send chan logger.LogEntry
}

// LogStreamer はログ配信用の接続を管理
type LogStreamer struct {
	mu      sync.Mutex
	clients map[*logClient]struct{}
}

var logStreamer = &LogStreamer{clients: make(map[*logClient]struct{})}

func init() {
	logger.SetBroadcastCallback(BroadcastLog)
}

func (ls *LogStreamer) add(c *logClient) {
	ls.mu.Lock()
	ls.clients[c] = struct{}{}
	ls.mu.Unlock()
}

func (ls *LogStreamer) remove(c *logClient) {
	ls.mu.Lock()
	if _, ok := ls.clients[c]; ok {
		delete(ls.clients, c)
		close(c.send)
	}
	ls.mu.Unlock()
}

// BroadcastLog sends a log entry to all connected log streams
func BroadcastLog(entry logger.LogEntry) {
	logStreamer.mu.Lock()
	defer logStreamer.mu.Unlock()
	for c := range logStreamer.clients {
		select {
		case c.send <- entry:
		default:
			// 詰まっているクライアントは飛ばす
		}
	}
}

// handleLogs returns recent logs
func handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 100
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}
	logs := logger.GetLogBuffer().GetRecent(limit)

	writeJSON(w, http.StatusOK, map[string]any{
		"logs":      logs,
		"count":     len(logs),
		"timestamp": time.Now(),
	})
}

// handleLogsDownload downloads logs as a file
func handleLogsDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	buffer := logger.GetLogBuffer()
	stamp := time.Now().Format("20060102-150405")

	switch format {
	case "json":
		data, err := buffer.ToJSON()
		if err != nil {
			http.Error(w, "Failed to generate JSON", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=spy-party-logs-%s.json", stamp))
		w.Write(data)

	case "text":
		w.Header().Set("Content-Type", "text/plain")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=spy-party-logs-%s.txt", stamp))
		w.Write([]byte(buffer.ToText()))

	default:
		http.Error(w, "Invalid format. Use 'json' or 'text'", http.StatusBadRequest)
	}
}

// handleLogsStream provides real-time log streaming via WebSocket
func handleLogsStream(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Failed to upgrade to WebSocket", zap.Error(err))
		return
	}

	client := &logClient{conn: conn, send: make(chan logger.LogEntry, sendBuffer)}
	// 最近のログを先に積む
	for _, entry := range logger.GetLogBuffer().GetRecent(50) {
		client.send <- entry
	}
	logStreamer.add(client)
	defer logStreamer.remove(client)

	go client.writePump()

	// 切断検知のために読み続ける
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *logClient) writePump() {
	defer c.conn.Close()
	for entry := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(entry); err != nil {
			logger.Debug("Failed to write log entry", zap.Error(err))
			return
		}
	}
}

// handleLogsClear clears the log buffer
func handleLogsClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	logger.GetLogBuffer().Clear()
	logger.Info("Log buffer cleared")

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Log buffer cleared",
	})
}
