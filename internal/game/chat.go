package game

import (
	"time"
	"unicode/utf8"

	"github.com/ichi0g0y/spy-party/internal/shared/logger"
	"go.uber.org/zap"
)

type verdict int

const (
	verdictAdmit verdict = iota
	verdictMute
	verdictDrop
)

// rateState is one user's sliding window and mute deadline.
type rateState struct {
	stamps       []time.Time
	mutedUntil   time.Time
	visibleAgain bool
	lastSeen     time.Time
}

// check classifies a message arriving at now. verdictMute is returned only
// for the message that starts a mute, so the warning goes out once.
func (s *rateState) check(now time.Time, window time.Duration, limit int, mute time.Duration) verdict {
	s.lastSeen = now
	if !s.mutedUntil.IsZero() {
		if now.Before(s.mutedUntil) {
			return verdictDrop
		}
		s.mutedUntil = time.Time{}
		s.visibleAgain = true
	}

	cutoff := now.Add(-window)
	kept := s.stamps[:0]
	for _, ts := range s.stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	s.stamps = kept

	if len(s.stamps) >= limit {
		s.stamps = nil
		s.mutedUntil = now.Add(mute)
		s.visibleAgain = false
		return verdictMute
	}
	s.stamps = append(s.stamps, now)
	return verdictAdmit
}

func (e *Engine) rateFor(userID int64) *rateState {
	s, ok := e.limits[userID]
	if !ok {
		s = &rateState{}
		e.limits[userID] = s
	}
	return s
}

// Relay forwards a text line from userID to the rest of their room.
func (e *Engine) Relay(userID int64, text string) error {
	r, ok := e.RoomOf(userID)
	if !ok {
		return ErrNotInRoom
	}
	p, _ := r.Participant(userID)

	switch r.Phase {
	case PhaseSpyGuess:
		if r.IsSpy(userID) && r.WaitingForSpyGuess {
			return e.SubmitSpyGuess(userID, r.Token, text)
		}
		return ErrChatClosed
	case PhaseSuspectVote:
		return ErrChatClosed
	}

	if !e.IsAdmin(userID) {
		s := e.rateFor(userID)
		switch s.check(e.now(), e.cfg.ChatWindow, e.cfg.ChatMaxInWindow, e.cfg.ChatMute) {
		case verdictDrop:
			return nil
		case verdictMute:
			logger.Debug("User muted for flooding", zap.Int64("user_id", userID), zap.String("token", r.Token))
			e.send(userID, msgMuted)
			return nil
		}
		if utf8.RuneCountInString(text) > e.cfg.MaxMessageLen {
			return ErrMessageTooLong
		}
		// 通知は実際に通ったメッセージでだけ消費する
		if s.visibleAgain {
			s.visibleAgain = false
			e.send(userID, msgVisibleAgain)
		}
	}

	line := r.displayName(p) + ": " + text
	r.appendMessage(line, e.cfg.HistoryLimit)
	e.broadcast(r, line, userID)
	e.touch(r)
	return nil
}

// RejectNonText answers stickers, photos and other media.
func (e *Engine) RejectNonText(userID int64) {
	e.send(userID, msgTextOnly)
}
