package game

import (
	"strings"

	"github.com/ichi0g0y/spy-party/internal/callback"
	"github.com/ichi0g0y/spy-party/internal/shared/logger"
	"github.com/ichi0g0y/spy-party/internal/transport"
	"go.uber.org/zap"
)

const guessButtonsPerRow = 2

// beginSpyGuess gives the unmasked spy one attempt to name the location.
func (e *Engine) beginSpyGuess(r *Room) {
	r.Phase = PhaseSpyGuess
	r.WaitingForSpyGuess = true
	r.SpyGuess = ""

	locs := append([]string(nil), e.locationsFor(r)...)
	e.shuffle(len(locs), func(i, j int) { locs[i], locs[j] = locs[j], locs[i] })

	rows := make([][]transport.Button, 0, len(locs)/guessButtonsPerRow+1)
	for i := 0; i < len(locs); i += guessButtonsPerRow {
		row := []transport.Button{}
		for _, loc := range locs[i:min(i+guessButtonsPerRow, len(locs))] {
			row = append(row, transport.Button{Label: loc, Callback: callback.SpyGuess(r.Token, loc)})
		}
		rows = append(rows, row)
	}

	spy := *r.SpyID
	e.sendButtons(spy, msgGuessPrompt, rows)
	e.broadcast(r, msgGuessWaiting, spy)

	t := e.timersFor(r.Token)
	t.spyGuess = e.afterRoom(r.Token, e.cfg.SpyGuessSoft, func(r *Room) {
		if r.Phase != PhaseSpyGuess || !r.WaitingForSpyGuess {
			return
		}
		e.send(*r.SpyID, msgGuessHurry)
		e.timersFor(r.Token).spyGuess = e.afterRoom(r.Token, e.cfg.SpyGuessCountdown, e.spyGuessTimeout)
	})

	logger.Info("Spy guess started", zap.String("token", r.Token), zap.Int64("spy", spy))
	e.touch(r)
}

func (e *Engine) spyGuessTimeout(r *Room) {
	if r.Phase != PhaseSpyGuess || !r.WaitingForSpyGuess {
		return
	}
	r.WaitingForSpyGuess = false
	e.finishRound(r, OutcomeGuessTimeout, nil)
}

// SubmitSpyGuess accepts the spy's single guess. Comparison ignores case and surrounding spaces.
func (e *Engine) SubmitSpyGuess(userID int64, token, guess string) error {
	r, ok := e.lookupRoom(token)
	if !ok {
		return ErrRoomNotFound
	}
	if r.Phase != PhaseSpyGuess || !r.WaitingForSpyGuess {
		return ErrNoGuessPending
	}
	if !r.IsSpy(userID) {
		return ErrNotSpy
	}

	r.WaitingForSpyGuess = false
	r.SpyGuess = strings.TrimSpace(guess)
	e.timersFor(r.Token).spyGuess.cancel()

	if SameLocation(guess, r.Location) {
		e.finishRound(r, OutcomeSpyGuessed, nil)
	} else {
		e.finishRound(r, OutcomeGuessMissed, nil)
	}
	return nil
}

func SameLocation(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
