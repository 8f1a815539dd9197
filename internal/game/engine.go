// Package game is the game runtime: rooms, rounds, chat relay and matchmaking.
//
// All state belongs to a single Engine and is mutated only on its loop
// goroutine. Inbound events and timer firings are posted as tasks; outbound
// sends happen synchronously inside those tasks.
package game

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/ichi0g0y/spy-party/internal/clock"
	"github.com/ichi0g0y/spy-party/internal/shared/logger"
	"github.com/ichi0g0y/spy-party/internal/transport"
	"go.uber.org/zap"
)

const taskBuffer = 1024

// Stats is the part of the player directory the engine writes to.
type Stats interface {
	UpdateStats(userID int64, isSpy, isWinner bool) error
	PackLocations(pack string) ([]string, error)
}

type Engine struct {
	cfg   Config
	clock clock.Clock
	out   transport.Transport
	stats Stats
	snap  SnapshotStore

	tasks   chan func()
	stopped chan struct{}

	rooms    map[string]*Room
	timers   map[string]*roomTimers
	userRoom map[int64]string

	queue  []QueueEntry
	queued map[int64]struct{}

	limits map[int64]*rateState
	admins map[int64]struct{}

	maintenance       bool
	maintenanceAt     time.Time
	maintenanceTimers []*timerHandle

	// OnMaintenanceChange is called on the loop whenever maintenance is toggled.
	OnMaintenanceChange func(on bool)

	lastSave   time.Time
	dirty      bool
	flushTimer *timerHandle
	matchTimer *timerHandle
	sweepTimer *timerHandle

	randIntn func(n int) int
	shuffle  func(n int, swap func(i, j int))
}

func New(cfg Config, clk clock.Clock, out transport.Transport, stats Stats, snap SnapshotStore) *Engine {
	e := &Engine{
		cfg:      cfg,
		clock:    clk,
		out:      out,
		stats:    stats,
		snap:     snap,
		tasks:    make(chan func(), taskBuffer),
		stopped:  make(chan struct{}),
		rooms:    make(map[string]*Room),
		timers:   make(map[string]*roomTimers),
		userRoom: make(map[int64]string),
		queued:   make(map[int64]struct{}),
		limits:   make(map[int64]*rateState),
		admins:   make(map[int64]struct{}),
		randIntn: rand.IntN,
		shuffle:  rand.Shuffle,
	}
	for _, id := range cfg.AdminIDs {
		e.admins[id] = struct{}{}
	}
	return e
}

// Run drives the loop until ctx is cancelled, then cancels every timer and flushes the snapshot.
func (e *Engine) Run(ctx context.Context) {
	defer close(e.stopped)

	e.armBackground()
	logger.Info("Game engine started", zap.Int("rooms", len(e.rooms)))

	for {
		select {
		case <-ctx.Done():
			e.Shutdown()
			logger.Info("Game engine stopped")
			return
		case fn := <-e.tasks:
			e.exec(fn)
		}
	}
}

// Submit queues fn for the loop. It reports false once the engine has stopped.
func (e *Engine) Submit(fn func()) bool {
	select {
	case <-e.stopped:
		return false
	default:
	}
	select {
	case e.tasks <- fn:
		return true
	case <-e.stopped:
		return false
	}
}

// Do runs fn on the loop and waits for it.
func (e *Engine) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if !e.Submit(func() {
		defer close(done)
		fn()
	}) {
		return context.Canceled
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-e.stopped:
		return context.Canceled
	}
}

func (e *Engine) exec(fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("Engine task panicked", zap.Any("panic", rec), zap.Stack("stack"))
		}
	}()
	fn()
}

// runPending drains queued tasks without a running loop. Tests use it after advancing a fake clock.
func (e *Engine) runPending() {
	for {
		select {
		case fn := <-e.tasks:
			e.exec(fn)
		default:
			return
		}
	}
}

func (e *Engine) now() time.Time {
	return e.clock.Now().UTC()
}

func (e *Engine) IsAdmin(userID int64) bool {
	_, ok := e.admins[userID]
	return ok
}

// SetAdmins replaces the administrator set.
func (e *Engine) SetAdmins(ids []int64) {
	e.admins = make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		e.admins[id] = struct{}{}
	}
}

func (e *Engine) armBackground() {
	e.matchTimer.cancel()
	e.sweepTimer.cancel()
	e.matchTimer = e.after(e.cfg.MatchTick, e.matchTick)
	e.sweepTimer = e.after(e.cfg.SweepInterval, e.sweepTick)
}

// Startup restores rooms from the snapshot. Rounds cut by the restart are closed with an error result.
func (e *Engine) Startup() {
	e.load()
	e.recoverInterrupted()
}

// Shutdown cancels every timer and writes the snapshot.
func (e *Engine) Shutdown() {
	e.matchTimer.cancel()
	e.sweepTimer.cancel()
	e.flushTimer.cancel()
	e.cancelScheduledMaintenance()
	for _, t := range e.timers {
		t.cancelAll()
	}
	e.Flush()
}

// send delivers to one human. Bot placeholders are skipped and failures only logged.
func (e *Engine) send(userID int64, text string) {
	if userID < 0 {
		return
	}
	if err := e.out.Deliver(userID, text); err != nil {
		logger.Warn("Failed to deliver message", zap.Int64("user_id", userID), zap.Error(err))
	}
}

func (e *Engine) sendButtons(userID int64, text string, buttons [][]transport.Button) {
	if userID < 0 {
		return
	}
	if err := e.out.DeliverButtons(userID, text, buttons); err != nil {
		logger.Warn("Failed to deliver buttons", zap.Int64("user_id", userID), zap.Error(err))
	}
}

// broadcast sends text to every human in the room except the listed users.
func (e *Engine) broadcast(r *Room, text string, except ...int64) {
	for _, p := range r.Humans() {
		skip := false
		for _, id := range except {
			if p.UserID == id {
				skip = true
				break
			}
		}
		if !skip {
			e.send(p.UserID, text)
		}
	}
}

// Notify sends a one-off notice. Adapters and the router use it for replies.
func (e *Engine) Notify(userID int64, text string) {
	e.send(userID, text)
}

// NotifyButtons sends a notice with inline buttons.
func (e *Engine) NotifyButtons(userID int64, text string, buttons [][]transport.Button) {
	e.sendButtons(userID, text, buttons)
}

// touch marks activity on the room and requests a throttled save.
func (e *Engine) touch(r *Room) {
	r.LastActivity = e.now()
	e.save()
}
