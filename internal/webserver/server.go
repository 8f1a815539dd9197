// Package webserver is the HTTP side of the server: the websocket transport,
// the admin API, room QR invites and the log endpoints.
package webserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ichi0g0y/spy-party/internal/game"
	"github.com/ichi0g0y/spy-party/internal/shared/logger"
	"github.com/ichi0g0y/spy-party/internal/twitchtoken"
	"github.com/ichi0g0y/spy-party/internal/version"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

const (
	engineTimeout = 2 * time.Second
	qrSize        = 256
	roomsLimit    = 20
)

// Server serves the websocket transport and the admin API.
type Server struct {
	engine *game.Engine
	hub    *WSHub
	tokens *TokenManager
	debug  bool

	httpServer *http.Server
}

func NewServer(engine *game.Engine, hub *WSHub, tokens *TokenManager, debug bool) *Server {
	return &Server{engine: engine, hub: hub, tokens: tokens, debug: debug}
}

// corsMiddleware adds CORS headers to HTTP handlers
func corsMiddleware(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		handler(w, r)
	}
}

// adminOnly requires a bearer token whose user is an administrator.
func (s *Server) adminOnly(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := tokenFromRequest(r)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		id, err := s.tokens.Verify(raw)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		var admin bool
		if err := s.onLoop(r.Context(), func() { admin = s.engine.IsAdmin(id.UserID) }); err != nil {
			http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
			return
		}
		if !admin {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		handler(w, r)
	}
}

// onLoop runs fn on the engine loop with a short deadline.
func (s *Server) onLoop(ctx context.Context, fn func()) error {
	ctx, cancel := context.WithTimeout(ctx, engineTimeout)
	defer cancel()
	return s.engine.Do(ctx, fn)
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.hub.HandleWS(s.tokens))
	mux.HandleFunc("/api/status", corsMiddleware(s.handleStatus))
	mux.HandleFunc("/api/token", corsMiddleware(s.handleDebugToken))
	mux.HandleFunc("/api/rooms", corsMiddleware(s.adminOnly(s.handleRooms)))
	mux.HandleFunc("/api/rooms/", corsMiddleware(s.handleRoomPath))

	// Twitch OAuth
	mux.HandleFunc("/auth", twitchtoken.AuthRedirectHandler)
	mux.HandleFunc("/callback", twitchtoken.CallbackHandler)

	// ログ関連
	mux.HandleFunc("/api/logs", corsMiddleware(s.adminOnly(handleLogs)))
	mux.HandleFunc("/api/logs/download", corsMiddleware(s.adminOnly(handleLogsDownload)))
	mux.HandleFunc("/api/logs/clear", corsMiddleware(s.adminOnly(handleLogsClear)))
	mux.HandleFunc("/api/logs/stream", s.adminOnly(handleLogsStream))

	return mux
}

// Start listens on port in the background. Immediate bind errors are returned.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	logger.Info("Starting web server", zap.String("address", addr))

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		WriteTimeout: 30 * time.Second,
		ReadTimeout:  10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	// 起動直後のバインドエラーだけ待つ
	select {
	case err := <-errChan:
		if err != nil {
			logger.Error("Failed to start web server", zap.Error(err))
			return fmt.Errorf("failed to start web server on port %d: %w", port, err)
		}
	case <-time.After(100 * time.Millisecond):
	}
	return nil
}

// Shutdown gracefully shuts down the web server
func (s *Server) Shutdown(ctx context.Context) {
	if s.httpServer == nil {
		return
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown web server gracefully", zap.Error(err))
		return
	}
	logger.Info("Web server shutdown complete")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response", zap.Error(err))
	}
}

// handleStatus returns the current server status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var (
		rooms, queue int
		maintenance  bool
		scheduledAt  time.Time
		scheduled    bool
	)
	err := s.onLoop(r.Context(), func() {
		rooms = s.engine.RoomCount()
		queue = s.engine.QueueSize()
		maintenance = s.engine.MaintenanceActive()
		scheduledAt, scheduled = s.engine.MaintenanceScheduledAt()
	})
	if err != nil {
		http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
		return
	}

	resp := map[string]any{
		"rooms":       rooms,
		"queue":       queue,
		"maintenance": maintenance,
		"version":     version.String(),
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	}
	if scheduled {
		resp["maintenanceAt"] = scheduledAt.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

type tokenRequest struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
}

// handleDebugToken issues a websocket token. Only available in debug mode.
func (s *Server) handleDebugToken(w http.ResponseWriter, r *http.Request) {
	if !s.debug {
		http.Error(w, "Debug mode not enabled", http.StatusForbidden)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID <= 0 {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	token, err := s.tokens.Generate(Identity{UserID: req.UserID, Name: req.Name})
	if err != nil {
		logger.Error("Failed to issue token", zap.Error(err))
		http.Error(w, "Failed to issue token", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": token})
}

func (s *Server) handleRooms(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var rooms []game.RoomSummary
	if err := s.onLoop(r.Context(), func() { rooms = s.engine.RecentRooms(roomsLimit) }); err != nil {
		http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms, "count": len(rooms)})
}

// handleRoomPath serves /api/rooms/{token}/log (admin) and /api/rooms/{token}/qr.
func (s *Server) handleRoomPath(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/rooms/"), "/")
	if len(parts) != 2 || parts[0] == "" {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	token := parts[0]

	switch parts[1] {
	case "log":
		s.adminOnly(func(w http.ResponseWriter, r *http.Request) { s.handleRoomLog(w, r, token) })(w, r)
	case "qr":
		s.handleRoomQR(w, r, token)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleRoomLog(w http.ResponseWriter, r *http.Request, token string) {
	requestID := uuid.NewString()
	var (
		lines []string
		err   error
	)
	if loopErr := s.onLoop(r.Context(), func() { lines, err = s.engine.RoomLog(token) }); loopErr != nil {
		http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
		return
	}
	if errors.Is(err, game.ErrRoomNotFound) {
		http.Error(w, "Room not found", http.StatusNotFound)
		return
	}
	logger.Info("Room log exported", zap.String("request_id", requestID), zap.String("token", token), zap.Int("lines", len(lines)))

	w.Header().Set("X-Request-Id", requestID)
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=room-%s-%s.txt", token, time.Now().Format("20060102-150405")))
		w.Write([]byte(strings.Join(lines, "\n")))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "messages": lines, "count": len(lines)})
}

// handleRoomQR renders the join command of a private lobby as a PNG.
func (s *Server) handleRoomQR(w http.ResponseWriter, r *http.Request, token string) {
	var (
		found     bool
		canonical string
	)
	err := s.onLoop(r.Context(), func() {
		room, ok := s.engine.Room(token)
		if ok && room.IsPrivate() && room.Phase == game.PhaseLobby {
			found = true
			canonical = room.Token
		}
	})
	if err != nil {
		http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
		return
	}
	if !found {
		http.Error(w, "Room not found", http.StatusNotFound)
		return
	}

	png, err := qrcode.Encode("/join "+canonical, qrcode.Medium, qrSize)
	if err != nil {
		logger.Error("Failed to render QR code", zap.String("token", canonical), zap.Error(err))
		http.Error(w, "Failed to render QR code", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(png)
}
