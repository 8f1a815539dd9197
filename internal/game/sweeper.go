package game

import (
	"github.com/ichi0g0y/spy-party/internal/shared/logger"
	"go.uber.org/zap"
)

func (e *Engine) sweepTick() {
	e.sweep()
	e.sweepTimer = e.after(e.cfg.SweepInterval, e.sweepTick)
}

// sweep deletes idle rooms and forgets rate-limit state of quiet users.
func (e *Engine) sweep() {
	now := e.now()
	expired := 0
	for token, r := range e.rooms {
		if r.GameStarted || r.InRound() {
			continue
		}
		if now.Sub(r.LastActivity) > e.cfg.RoomExpiry {
			e.deleteRoom(token)
			expired++
		}
	}

	evicted := 0
	for id, s := range e.limits {
		if now.Sub(s.lastSeen) > e.cfg.RateStateTTL {
			delete(e.limits, id)
			evicted++
		}
	}

	if expired > 0 || evicted > 0 {
		logger.Info("Sweep finished", zap.Int("rooms_expired", expired), zap.Int("rate_limits_evicted", evicted))
	}
	if e.dirty {
		e.Flush()
	}
}
