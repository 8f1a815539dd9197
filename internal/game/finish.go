package game

import (
	"fmt"
	"strings"

	"github.com/ichi0g0y/spy-party/internal/shared/logger"
	"go.uber.org/zap"
)

// Outcome is how a round ended.
type Outcome string

const (
	OutcomeNoVotes       Outcome = "no_votes"
	OutcomeMisidentified Outcome = "misidentified"
	OutcomeSpyGuessed    Outcome = "spy_guessed"
	OutcomeGuessMissed   Outcome = "guess_missed"
	OutcomeGuessTimeout  Outcome = "guess_timeout"
	OutcomeSpyEscaped    Outcome = "spy_escaped"
	OutcomeTooFewPlayers Outcome = "too_few_players"
	OutcomeError         Outcome = "error"
)

func (o Outcome) SpyWon() bool {
	switch o {
	case OutcomeNoVotes, OutcomeMisidentified, OutcomeSpyGuessed:
		return true
	}
	return false
}

// Aborted outcomes end the round without a winner; nobody is scored.
func (o Outcome) Aborted() bool {
	switch o {
	case OutcomeSpyEscaped, OutcomeTooFewPlayers, OutcomeError:
		return true
	}
	return false
}

func (o Outcome) headline() string {
	switch o {
	case OutcomeNoVotes:
		return "Никто не проголосовал. Победил шпион!"
	case OutcomeMisidentified:
		return "Вы не смогли вычислить шпиона. Победил шпион!"
	case OutcomeSpyGuessed:
		return "Шпион угадал локацию. Победил шпион!"
	case OutcomeGuessMissed:
		return "Шпион не угадал локацию. Победили мирные жители!"
	case OutcomeGuessTimeout:
		return "Шпион не успел назвать локацию. Победили мирные жители!"
	case OutcomeSpyEscaped:
		return "Шпион сбежал, игра окончена."
	case OutcomeTooFewPlayers:
		return "Слишком мало игроков, игра окончена."
	}
	return "Игра завершена из-за ошибки."
}

// finishRound runs the terminal effects of a round exactly once.
// spy is passed when the spy has already left the room.
func (e *Engine) finishRound(r *Room, outcome Outcome, spy *Participant) {
	if r.ResultsProcessed {
		return
	}
	r.ResultsProcessed = true
	t := e.timersFor(r.Token)
	t.cancelAll()

	var spyP Participant
	haveSpy := false
	if spy != nil {
		spyP, haveSpy = *spy, true
	} else if r.SpyID != nil {
		spyP, haveSpy = r.Participant(*r.SpyID)
	}

	if !outcome.Aborted() && !r.IsTestGame && e.stats != nil && r.SpyID != nil {
		spyWon := outcome.SpyWon()
		for _, p := range r.Humans() {
			isSpy := r.IsSpy(p.UserID)
			if err := e.stats.UpdateStats(p.UserID, isSpy, isSpy == spyWon); err != nil {
				logger.Error("Failed to update player stats", zap.Int64("user_id", p.UserID), zap.Error(err))
			}
		}
	}

	e.broadcast(r, e.resultsText(r, outcome, spyP, haveSpy))

	logger.Info("Round finished",
		zap.String("token", r.Token),
		zap.String("outcome", string(outcome)),
		zap.Bool("spy_won", outcome.SpyWon()))

	r.Phase = PhaseFinished
	if r.IsPrivate() {
		r.clearRound()
		r.Phase = PhaseLobby
	} else {
		token := r.Token
		t.cleanup = e.after(e.cfg.FinishedGrace, func() {
			if r, ok := e.rooms[token]; ok {
				e.broadcast(r, msgRoomClosed)
				e.deleteRoom(token)
			}
		})
	}
	e.touch(r)
}

func (e *Engine) resultsText(r *Room, outcome Outcome, spy Participant, haveSpy bool) string {
	var b strings.Builder
	b.WriteString(outcome.headline())
	if haveSpy {
		fmt.Fprintf(&b, "\nШпион: %s (%s)", spy.Handle(), spy.Callsign)
	}
	if r.Location != "" {
		fmt.Fprintf(&b, "\nЛокация: %s", r.Location)
	}
	if r.SpyGuess != "" {
		fmt.Fprintf(&b, "\nОтвет шпиона: %s", r.SpyGuess)
	}
	for _, p := range r.Humans() {
		if p.Callsign == "" {
			continue
		}
		fmt.Fprintf(&b, "\n%s был '%s'", p.Handle(), p.Callsign)
	}
	return b.String()
}
