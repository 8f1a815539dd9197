package game

import (
	"time"

	"github.com/ichi0g0y/spy-party/internal/shared/logger"
	"go.uber.org/zap"
)

func (e *Engine) MaintenanceActive() bool {
	return e.maintenance
}

// MaintenanceScheduledAt reports the pending maintenance start, if any.
func (e *Engine) MaintenanceScheduledAt() (time.Time, bool) {
	if e.maintenanceAt.IsZero() {
		return time.Time{}, false
	}
	return e.maintenanceAt, true
}

// SetMaintenance toggles maintenance immediately.
func (e *Engine) SetMaintenance(on bool) {
	if on {
		e.enterMaintenance()
		return
	}
	e.cancelScheduledMaintenance()
	if !e.maintenance {
		return
	}
	e.maintenance = false
	logger.Info("Maintenance mode disabled")
	if e.OnMaintenanceChange != nil {
		e.OnMaintenanceChange(false)
	}
}

// ScheduleMaintenance warns every room member at the configured lead times
// and enters maintenance once lead has passed.
func (e *Engine) ScheduleMaintenance(lead time.Duration) error {
	if e.maintenance {
		return ErrMaintenance
	}
	e.cancelScheduledMaintenance()
	e.maintenanceAt = e.now().Add(lead)

	for _, w := range e.cfg.MaintenanceWarnings {
		if w > lead {
			continue
		}
		minutes := int(w / time.Minute)
		e.maintenanceTimers = append(e.maintenanceTimers, e.after(lead-w, func() {
			e.broadcastAll(fmtMaintenanceWarning(minutes))
		}))
	}
	e.maintenanceTimers = append(e.maintenanceTimers, e.after(lead, e.enterMaintenance))
	logger.Info("Maintenance scheduled", zap.Time("at", e.maintenanceAt))
	return nil
}

func (e *Engine) cancelScheduledMaintenance() {
	for _, h := range e.maintenanceTimers {
		h.cancel()
	}
	e.maintenanceTimers = nil
	e.maintenanceAt = time.Time{}
}

// broadcastAll notifies every human in any room.
func (e *Engine) broadcastAll(text string) {
	for _, r := range e.rooms {
		e.broadcast(r, text)
	}
}

// enterMaintenance closes every room and empties the queue.
func (e *Engine) enterMaintenance() {
	e.cancelScheduledMaintenance()
	if e.maintenance {
		return
	}
	e.maintenance = true

	rooms := len(e.rooms)
	for token, r := range e.rooms {
		e.broadcast(r, msgMaintenanceOn)
		e.deleteRoom(token)
	}
	for _, q := range e.queue {
		e.send(q.UserID, msgMaintenanceOn)
	}
	e.queue = nil
	e.queued = make(map[int64]struct{})

	logger.Info("Maintenance mode enabled", zap.Int("rooms_closed", rooms))
	if e.OnMaintenanceChange != nil {
		e.OnMaintenanceChange(true)
	}
	e.Flush()
}
