package game

import (
	"strings"
	"time"

	"github.com/ichi0g0y/spy-party/internal/shared/logger"
	"go.uber.org/zap"
)

// StartRound starts a round in the owner's room.
func (e *Engine) StartRound(userID int64) error {
	r, ok := e.RoomOf(userID)
	if !ok {
		return ErrNotInRoom
	}
	if r.OwnerID != userID {
		return ErrNotOwner
	}
	if r.GameStarted || r.Phase != PhaseLobby {
		return ErrGameInProgress
	}
	if len(r.Participants) < e.cfg.MinPlayers {
		return ErrTooFewPlayers
	}
	e.startRound(r)
	return nil
}

func (e *Engine) startRound(r *Room) {
	t := e.timersFor(r.Token)
	t.cancelAll()
	r.clearRound()
	r.ResultsProcessed = false

	pool := append([]string(nil), Callsigns...)
	e.shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	for i := range r.Participants {
		r.Participants[i].Callsign = pool[i%len(pool)]
	}

	locations := e.locationsFor(r)
	r.Location = locations[e.randIntn(len(locations))]
	spy := e.pickSpy(r)
	r.SpyID = &spy
	r.GameStarted = true
	r.Phase = PhaseRunning

	e.armRoundTimers(r)

	order := make([]string, 0, len(r.Participants))
	for _, p := range r.Participants {
		order = append(order, p.Callsign)
	}
	e.shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	info := fmtRoundInfo(len(r.Participants), order)

	for _, p := range r.Humans() {
		if p.UserID == spy {
			e.send(p.UserID, fmtSpyReveal(p.Callsign)+"\n\n"+info)
		} else {
			e.send(p.UserID, fmtCivilianReveal(r.Location, p.Callsign)+"\n\n"+info)
		}
	}

	logger.Info("Round started",
		zap.String("token", r.Token),
		zap.Int("players", len(r.Participants)),
		zap.Bool("test", r.IsTestGame),
		zap.String("pack", r.ContentPack))
	e.touch(r)
}

// locationsFor returns the room's pack locations, or the base set.
func (e *Engine) locationsFor(r *Room) []string {
	if r.ContentPack == "" || e.stats == nil {
		return BaseLocations
	}
	raw, err := e.stats.PackLocations(r.ContentPack)
	if err != nil {
		logger.Warn("Content pack unavailable, using base locations",
			zap.String("token", r.Token), zap.String("pack", r.ContentPack), zap.Error(err))
		return BaseLocations
	}
	locs := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			locs = append(locs, l)
		}
	}
	if len(locs) == 0 {
		return BaseLocations
	}
	return locs
}

// pickSpy chooses uniformly; test rooms use the owner or one of the bots.
func (e *Engine) pickSpy(r *Room) int64 {
	if r.IsTestGame {
		if r.TestSpyIsOwner {
			return r.OwnerID
		}
		if bots := r.Bots(); len(bots) > 0 {
			return bots[e.randIntn(len(bots))].UserID
		}
	}
	return r.Participants[e.randIntn(len(r.Participants))].UserID
}

func (e *Engine) roundDuration(r *Room) time.Duration {
	if r.IsTestGame {
		return e.cfg.TestRoundDuration
	}
	return e.cfg.RoundDuration
}

// armRoundTimers schedules the final-minute notice and the closing countdown.
func (e *Engine) armRoundTimers(r *Room) {
	d := e.roundDuration(r)
	t := e.timersFor(r.Token)

	finalAt := d - e.cfg.FinalMinute
	if finalAt < 0 {
		finalAt = 0
	}
	t.finalMinute = e.afterRoom(r.Token, finalAt, e.onFinalMinute)

	countdownAt := d - time.Duration(e.cfg.CountdownFrom)*time.Second
	if countdownAt < 0 {
		countdownAt = 0
	}
	t.round = e.afterRoom(r.Token, countdownAt, func(r *Room) {
		e.countdown(r, e.cfg.CountdownFrom)
	})
}

func (e *Engine) onFinalMinute(r *Room) {
	if r.Phase != PhaseRunning {
		return
	}
	r.LastMinuteChat = true
	e.broadcast(r, msgLastMinute)
	e.touch(r)
}

// countdown emits n, n-1 ... 1 one second apart, then closes free chat.
func (e *Engine) countdown(r *Room, n int) {
	if r.Phase != PhaseRunning {
		return
	}
	if n <= 0 {
		e.broadcast(r, msgRoundOver)
		e.beginSuspectVote(r)
		return
	}
	e.broadcast(r, fmtCountdown(n))
	e.timersFor(r.Token).round = e.afterRoom(r.Token, time.Second, func(r *Room) {
		e.countdown(r, n-1)
	})
}
