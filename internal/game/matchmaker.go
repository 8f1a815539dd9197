package game

import (
	"time"

	"github.com/ichi0g0y/spy-party/internal/shared/logger"
	"go.uber.org/zap"
)

// QueueEntry is one user waiting for an automatic game.
type QueueEntry struct {
	UserID     int64     `json:"user_id"`
	Name       string    `json:"name"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Partition splits n queued players into room sizes. Fewer than 6 stay
// together, up to 2*maxSize are halved, larger queues take maxSize at a
// time. A remainder below 3 is left out.
func Partition(n, maxSize int) []int {
	sizes := []int{}
	for remaining := n; remaining >= 3; {
		var size int
		switch {
		case remaining < 6:
			size = remaining
		case remaining <= 2*maxSize:
			size = remaining / 2
		default:
			size = maxSize
		}
		sizes = append(sizes, size)
		remaining -= size
	}
	return sizes
}

// Enqueue adds userID to the match queue.
func (e *Engine) Enqueue(userID int64, name string) error {
	if err := e.checkFree(userID); err != nil {
		return err
	}
	e.queue = append(e.queue, QueueEntry{UserID: userID, Name: name, EnqueuedAt: e.now()})
	e.queued[userID] = struct{}{}
	e.send(userID, fmtQueued(len(e.queue)))
	e.broadcastQueueSize(userID)
	logger.Info("User enqueued", zap.Int64("user_id", userID), zap.Int("queue", len(e.queue)))
	return nil
}

// CancelSearch removes userID from the match queue.
func (e *Engine) CancelSearch(userID int64) error {
	if _, ok := e.queued[userID]; !ok {
		return ErrNotQueued
	}
	e.dequeue(userID)
	e.send(userID, msgSearchCancelled)
	e.broadcastQueueSize()
	return nil
}

func (e *Engine) QueueSize() int {
	return len(e.queue)
}

func (e *Engine) InQueue(userID int64) bool {
	_, ok := e.queued[userID]
	return ok
}

func (e *Engine) dequeue(userID int64) {
	delete(e.queued, userID)
	for i, q := range e.queue {
		if q.UserID == userID {
			e.queue = append(e.queue[:i], e.queue[i+1:]...)
			return
		}
	}
}

func (e *Engine) broadcastQueueSize(except ...int64) {
	text := fmtQueueSize(len(e.queue))
	for _, q := range e.queue {
		skip := false
		for _, id := range except {
			if q.UserID == id {
				skip = true
			}
		}
		if !skip {
			e.send(q.UserID, text)
		}
	}
}

func (e *Engine) matchTick() {
	e.processQueue()
	e.matchTimer = e.after(e.cfg.MatchTick, e.matchTick)
}

// processQueue evicts stale entries and seats everyone it can.
func (e *Engine) processQueue() {
	now := e.now()
	kept := e.queue[:0]
	for _, q := range e.queue {
		if now.Sub(q.EnqueuedAt) > e.cfg.QueueTimeout {
			delete(e.queued, q.UserID)
			e.send(q.UserID, msgQueueTimeout)
			logger.Info("Queue entry timed out", zap.Int64("user_id", q.UserID))
			continue
		}
		kept = append(kept, q)
	}
	e.queue = kept

	if len(e.queue) < e.cfg.MinPlayers {
		return
	}

	batch := append([]QueueEntry(nil), e.queue...)
	e.queue = nil
	e.queued = make(map[int64]struct{})
	e.shuffle(len(batch), func(i, j int) { batch[i], batch[j] = batch[j], batch[i] })

	offset := 0
	for _, size := range Partition(len(batch), e.cfg.MaxAutoRoom) {
		e.createAutoRoom(batch[offset : offset+size])
		offset += size
	}

	for _, q := range batch[offset:] {
		e.queue = append(e.queue, q)
		e.queued[q.UserID] = struct{}{}
	}
	if len(e.queue) > 0 {
		e.broadcastQueueSize()
	}
}

func (e *Engine) createAutoRoom(entries []QueueEntry) *Room {
	owner := entries[e.randIntn(len(entries))]
	r := newRoom(e.newToken(AutoPrefix), Participant{UserID: owner.UserID, Name: owner.Name}, e.now())
	for _, q := range entries {
		if q.UserID != owner.UserID {
			r.Participants = append(r.Participants, Participant{UserID: q.UserID, Name: q.Name})
		}
	}
	e.addRoom(r)
	logger.Info("Auto room created", zap.String("token", r.Token), zap.Int("players", len(r.Participants)))

	for _, p := range r.Humans() {
		e.send(p.UserID, fmtGameFound(r.Token, len(r.Participants)))
	}
	e.startRound(r)
	return r
}
