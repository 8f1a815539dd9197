package webserver

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ichi0g0y/spy-party/internal/shared/logger"
	"github.com/ichi0g0y/spy-party/internal/transport"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	sendBuffer     = 256
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	writeWait      = 10 * time.Second
	maxFrameSize   = 256 * 1024
	inboundPerSec  = 5
	inboundBurst   = 10
	heartbeatEvery = 30 * time.Second
)

// WSMessage はWebSocketメッセージの構造を定義
type WSMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// outboundMessage は "message" フレームの data
type outboundMessage struct {
	Text    string               `json:"text"`
	Buttons [][]transport.Button `json:"buttons,omitempty"`
}

// inboundFrame はクライアントから届くフレーム
type inboundFrame struct {
	Type     string   `json:"type"`
	Text     string   `json:"text,omitempty"`
	Callback string   `json:"callback,omitempty"`
	Verb     string   `json:"verb,omitempty"`
	Args     []string `json:"args,omitempty"`
	ReplyTo  int64    `json:"reply_to,omitempty"`
	Kind     string   `json:"kind,omitempty"`
	FileName string   `json:"file_name,omitempty"`
	Content  []byte   `json:"content,omitempty"`
}

// WSClient はWebSocket接続クライアントを表す
type WSClient struct {
	hub         *WSHub
	conn        *websocket.Conn
	send        chan []byte
	clientID    string
	identity    Identity
	limiter     *rate.Limiter
	connectedAt time.Time
}

// WSHub はユーザーごとのWebSocket接続を管理し、transport.Transport を実装する
type WSHub struct {
	mu      sync.RWMutex
	clients map[int64]map[*WSClient]struct{}
	closed  bool

	dispatch  func(transport.Event) bool
	onConnect func(userID int64)
}

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// 本人確認はトークンで行うのでオリジンは問わない
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// NewWSHub creates a hub. dispatch receives inbound events; onConnect runs
// for every authenticated connection, before its first frame is read.
func NewWSHub(dispatch func(transport.Event) bool, onConnect func(userID int64)) *WSHub {
	return &WSHub{
		clients:   make(map[int64]map[*WSClient]struct{}),
		dispatch:  dispatch,
		onConnect: onConnect,
	}
}

// Run logs a heartbeat until ctx is cancelled, then closes every connection.
func (h *WSHub) Run(ctx context.Context) {
	ticker := time.NewTicker(heartbeatEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-ticker.C:
			h.mu.RLock()
			count := h.countLocked()
			h.mu.RUnlock()
			logger.Debug("WebSocket heartbeat", zap.Int("clients", count))
		}
	}
}

func (h *WSHub) add(client *WSClient) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	set, ok := h.clients[client.identity.UserID]
	if !ok {
		set = make(map[*WSClient]struct{})
		h.clients[client.identity.UserID] = set
	}
	set[client] = struct{}{}
	total := h.countLocked()

	logger.Info("WebSocket client connected",
		zap.String("clientId", client.clientID),
		zap.Int64("user_id", client.identity.UserID),
		zap.Int("total_clients", total))

	// 接続確認メッセージを送信
	connected, _ := json.Marshal(map[string]any{"clientId": client.clientID, "userId": client.identity.UserID})
	h.pushLocked(client, WSMessage{Type: "connected", Data: connected})
	h.mu.Unlock()
	return true
}

func (h *WSHub) countLocked() int {
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

// remove is idempotent; the send channel is closed exactly once.
func (h *WSHub) remove(client *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[client.identity.UserID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.clients, client.identity.UserID)
	}
	close(client.send)
	logger.Info("WebSocket client disconnected",
		zap.String("clientId", client.clientID),
		zap.Int("remaining_clients", h.countLocked()))
}

func (h *WSHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for userID, set := range h.clients {
		for client := range set {
			close(client.send)
		}
		delete(h.clients, userID)
	}
}

// pushLocked はバッファが空いていれば送る。満杯なら切断する。h.mu を保持して呼ぶ。
func (h *WSHub) pushLocked(client *WSClient, msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Error("Failed to marshal WebSocket message", zap.Error(err))
		return
	}
	select {
	case client.send <- data:
	default:
		logger.Warn("WebSocket client buffer full, disconnecting", zap.String("clientId", client.clientID))
		go func(c *WSClient) {
			h.remove(c)
			c.conn.Close()
		}(client)
	}
}

// Connected reports whether userID has at least one open connection.
func (h *WSHub) Connected(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

func (h *WSHub) Deliver(userID int64, text string) error {
	return h.DeliverButtons(userID, text, nil)
}

// DeliverButtons sends a "message" frame to every connection of userID without blocking.
func (h *WSHub) DeliverButtons(userID int64, text string, buttons [][]transport.Button) error {
	data, err := json.Marshal(outboundMessage{Text: text, Buttons: buttons})
	if err != nil {
		return err
	}
	msg := WSMessage{Type: "message", Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	set := h.clients[userID]
	if len(set) == 0 {
		return transport.ErrNoRoute
	}
	for c := range set {
		h.pushLocked(c, msg)
	}
	return nil
}

// HandleWS WebSocket接続を処理
func (h *WSHub) HandleWS(tokens *TokenManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := tokenFromRequest(r)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		id, err := tokens.Verify(raw)
		if err != nil {
			logger.Debug("Rejected WebSocket token", zap.Error(err))
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("Failed to upgrade to WebSocket", zap.Error(err))
			return
		}

		client := &WSClient{
			hub:         h,
			conn:        conn,
			send:        make(chan []byte, sendBuffer),
			clientID:    "ws-" + uuid.NewString(),
			identity:    id,
			limiter:     rate.NewLimiter(inboundPerSec, inboundBurst),
			connectedAt: time.Now(),
		}
		if h.onConnect != nil {
			h.onConnect(id.UserID)
		}
		if !h.add(client) {
			conn.Close()
			return
		}

		go client.writePump()
		go client.readPump()
	}
}

func (c *WSClient) readPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Debug("WebSocket read error", zap.Error(err))
			}
			return
		}
		if !c.limiter.Allow() {
			logger.Debug("WebSocket frame dropped by limiter",
				zap.String("clientId", c.clientID), zap.Int64("user_id", c.identity.UserID))
			continue
		}

		var frame inboundFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			logger.Debug("Malformed WebSocket frame", zap.String("clientId", c.clientID), zap.Error(err))
			continue
		}
		ev, ok := c.toEvent(frame)
		if !ok {
			logger.Debug("Unknown WebSocket frame type", zap.String("type", frame.Type))
			continue
		}
		if !c.hub.dispatch(ev) {
			return
		}
	}
}

func (c *WSClient) toEvent(f inboundFrame) (transport.Event, bool) {
	id := c.identity
	switch f.Type {
	case "text":
		return transport.TextMessage{UserID: id.UserID, Name: id.Name, Text: f.Text, ReplyTo: f.ReplyTo}, true
	case "button":
		return transport.ButtonPress{UserID: id.UserID, Name: id.Name, Callback: f.Callback}, true
	case "command":
		return transport.Command{UserID: id.UserID, Name: id.Name, Verb: f.Verb, Args: f.Args, ReplyTo: f.ReplyTo}, true
	case "media":
		return transport.Media{UserID: id.UserID, Name: id.Name, Kind: f.Kind}, true
	case "document":
		content := f.Content
		return transport.Document{
			UserID:   id.UserID,
			Name:     id.Name,
			FileName: f.FileName,
			Fetch: func(context.Context) ([]byte, error) {
				return content, nil
			},
		}, true
	}
	return nil, false
}

func (c *WSClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Debug("WebSocket write failed", zap.String("clientId", c.clientID), zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
