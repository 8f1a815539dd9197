package game

import (
	"time"

	"github.com/ichi0g0y/spy-party/internal/clock"
	"github.com/ichi0g0y/spy-party/internal/shared/logger"
	"go.uber.org/zap"
)

// timerHandle is a cancellable scheduled task. The body runs on the loop and
// is skipped if cancel ran first, so a firing already queued exits cleanly.
type timerHandle struct {
	timer     clock.Timer
	cancelled bool
	fired     bool
}

// cancel is a no-op on nil, fired or already cancelled handles.
func (h *timerHandle) cancel() {
	if h == nil || h.cancelled || h.fired {
		return
	}
	h.cancelled = true
	if h.timer != nil {
		h.timer.Stop()
	}
}

func (h *timerHandle) active() bool {
	return h != nil && !h.cancelled && !h.fired
}

// roomTimers holds the live timers of one room. It is never persisted.
type roomTimers struct {
	round       *timerHandle
	finalMinute *timerHandle
	earlyVote   *timerHandle
	suspectVote *timerHandle
	spyGuess    *timerHandle
	cleanup     *timerHandle
}

// cancelRound stops the free-chat timers.
func (t *roomTimers) cancelRound() {
	t.round.cancel()
	t.finalMinute.cancel()
	t.earlyVote.cancel()
}

func (t *roomTimers) cancelAll() {
	t.cancelRound()
	t.suspectVote.cancel()
	t.spyGuess.cancel()
	t.cleanup.cancel()
}

func (e *Engine) timersFor(token string) *roomTimers {
	t, ok := e.timers[token]
	if !ok {
		t = &roomTimers{}
		e.timers[token] = t
	}
	return t
}

// post hands fn to the loop from any goroutine.
func (e *Engine) post(fn func()) {
	select {
	case e.tasks <- fn:
	case <-e.stopped:
	}
}

// after schedules fn on the loop after d.
func (e *Engine) after(d time.Duration, fn func()) *timerHandle {
	h := &timerHandle{}
	h.timer = e.clock.AfterFunc(d, func() {
		e.post(func() {
			if h.cancelled {
				return
			}
			h.fired = true
			fn()
		})
	})
	return h
}

// afterRoom schedules body for the room with token. A body that panics ends
// the round with the error result through the normal finish path.
func (e *Engine) afterRoom(token string, d time.Duration, body func(r *Room)) *timerHandle {
	return e.after(d, func() {
		r, ok := e.rooms[token]
		if !ok {
			return
		}
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("Room timer panicked",
					zap.String("token", token), zap.Any("panic", rec), zap.Stack("stack"))
				e.finishRound(r, OutcomeError, nil)
			}
		}()
		body(r)
	})
}
