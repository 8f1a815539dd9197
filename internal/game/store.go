package game

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ichi0g0y/spy-party/internal/shared/logger"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
)

const (
	privateAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	privateTokenLen = 6
	hexAlphabet     = "0123456789abcdef"
	suffixLen       = 4
)

// newToken returns an unused room token. prefix is empty for private rooms.
func (e *Engine) newToken(prefix string) string {
	alphabet, size := privateAlphabet, privateTokenLen
	if prefix != "" {
		alphabet, size = hexAlphabet, suffixLen
	}
	for attempt := 1; ; attempt++ {
		// 衝突が続く場合は長さを伸ばす
		id, err := gonanoid.Generate(alphabet, size+attempt/16)
		if err != nil {
			logger.Error("Failed to generate room token", zap.Error(err))
			continue
		}
		token := prefix + id
		if _, exists := e.rooms[token]; !exists {
			return token
		}
	}
}

// addRoom registers r and indexes its participants.
func (e *Engine) addRoom(r *Room) {
	e.rooms[r.Token] = r
	for _, p := range r.Participants {
		if !p.IsBot() {
			e.userRoom[p.UserID] = r.Token
		}
	}
	e.save()
}

// lookupRoom resolves a token, tolerating the case of private tokens.
func (e *Engine) lookupRoom(token string) (*Room, bool) {
	token = strings.TrimSpace(token)
	if r, ok := e.rooms[token]; ok {
		return r, true
	}
	r, ok := e.rooms[strings.ToUpper(token)]
	return r, ok
}

// Room returns the room with token.
func (e *Engine) Room(token string) (*Room, bool) {
	return e.lookupRoom(token)
}

// RoomOf returns the room userID is in.
func (e *Engine) RoomOf(userID int64) (*Room, bool) {
	token, ok := e.userRoom[userID]
	if !ok {
		return nil, false
	}
	r, ok := e.rooms[token]
	return r, ok
}

func (e *Engine) RoomCount() int {
	return len(e.rooms)
}

// RecentRooms lists rooms newest first.
func (e *Engine) RecentRooms(limit int) []RoomSummary {
	rooms := make([]*Room, 0, len(e.rooms))
	for _, r := range e.rooms {
		rooms = append(rooms, r)
	}
	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].CreatedAt.Equal(rooms[j].CreatedAt) {
			return rooms[i].Token < rooms[j].Token
		}
		return rooms[i].CreatedAt.After(rooms[j].CreatedAt)
	})
	if limit > 0 && len(rooms) > limit {
		rooms = rooms[:limit]
	}
	out := make([]RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.Summary())
	}
	return out
}

// RoomLog returns a copy of the room's message history.
func (e *Engine) RoomLog(token string) ([]string, error) {
	r, ok := e.lookupRoom(token)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, token)
	}
	return append([]string(nil), r.Messages...), nil
}

// deleteRoom cancels the room's timers and forgets it and its members.
func (e *Engine) deleteRoom(token string) {
	r, ok := e.rooms[token]
	if !ok {
		return
	}
	if t, ok := e.timers[token]; ok {
		t.cancelAll()
		delete(e.timers, token)
	}
	for _, p := range r.Participants {
		if e.userRoom[p.UserID] == token {
			delete(e.userRoom, p.UserID)
		}
	}
	delete(e.rooms, token)
	logger.Info("Room deleted", zap.String("token", token))
	e.save()
}

// save writes the snapshot unless one was written within the save interval.
// A throttled save arms a flush for the end of the interval.
func (e *Engine) save() {
	e.dirty = true
	now := e.now()
	if !e.lastSave.IsZero() && now.Sub(e.lastSave) < e.cfg.SaveInterval {
		if !e.flushTimer.active() {
			e.flushTimer = e.after(e.cfg.SaveInterval-now.Sub(e.lastSave), func() {
				if e.dirty {
					e.Flush()
				}
			})
		}
		return
	}
	e.Flush()
}

// Flush writes the snapshot now. A failure is logged and retried by the next save.
func (e *Engine) Flush() {
	if e.snap == nil {
		return
	}
	e.lastSave = e.now()
	data, err := encodeSnapshot(e.rooms, e.cfg.HistoryLimit)
	if err != nil {
		logger.Error("Failed to encode room snapshot", zap.Error(err))
		return
	}
	if err := e.snap.WriteSnapshot(data); err != nil {
		logger.Error("Failed to write room snapshot", zap.Error(err))
		return
	}
	e.dirty = false
}

// load replaces the in-memory rooms with the snapshot. Missing or broken snapshots start empty.
func (e *Engine) load() {
	e.rooms = make(map[string]*Room)
	e.userRoom = make(map[int64]string)
	e.timers = make(map[string]*roomTimers)
	if e.snap == nil {
		return
	}

	data, err := e.snap.ReadSnapshot()
	if err != nil {
		logger.Warn("Room snapshot not loaded", zap.Error(err))
		return
	}
	rooms, err := decodeSnapshot(data)
	if err != nil {
		logger.Warn("Room snapshot is unreadable, starting empty", zap.Error(err))
		return
	}

	now := e.now()
	for token, r := range rooms {
		r.Token = token
		r.LastActivity = now
		kept := r.Participants[:0]
		for _, p := range r.Participants {
			if p.IsBot() {
				kept = append(kept, p)
				continue
			}
			if other, dup := e.userRoom[p.UserID]; dup {
				logger.Warn("User found in two rooms, keeping the first",
					zap.Int64("user_id", p.UserID), zap.String("kept", other), zap.String("dropped", token))
				continue
			}
			e.userRoom[p.UserID] = token
			kept = append(kept, p)
		}
		r.Participants = kept
		e.rooms[token] = r
	}
	logger.Info("Rooms restored from snapshot", zap.Int("rooms", len(e.rooms)))
}

// recoverInterrupted closes rounds whose timers did not survive the restart.
func (e *Engine) recoverInterrupted() {
	for _, r := range e.rooms {
		if r.InRound() {
			e.broadcast(r, msgInterrupted)
			e.finishRound(r, OutcomeError, nil)
			continue
		}
		if r.Phase == PhaseFinished {
			// 猶予期間のタイマーは失われているので即削除
			e.deleteRoom(r.Token)
		}
	}
}
