package game

import (
	"sort"

	"github.com/ichi0g0y/spy-party/internal/callback"
	"github.com/ichi0g0y/spy-party/internal/shared/logger"
	"github.com/ichi0g0y/spy-party/internal/transport"
	"go.uber.org/zap"
)

// beginSuspectVote closes free chat and asks every human to name the spy.
func (e *Engine) beginSuspectVote(r *Room) {
	t := e.timersFor(r.Token)
	t.cancelRound()

	r.VoteInProgress = false
	r.GameStarted = false
	r.LastMinuteChat = false
	r.ResultsProcessed = false
	r.Phase = PhaseSuspectVote
	r.Votes = map[int64]int64{}

	if r.IsTestGame && r.SpyID != nil {
		for _, b := range r.Bots() {
			r.Votes[b.UserID] = *r.SpyID
		}
	}

	buttons := make([][]transport.Button, 0, len(r.Participants))
	for _, p := range r.Participants {
		label := p.Callsign
		if label == "" {
			label = p.Handle()
		}
		buttons = append(buttons, []transport.Button{{Label: label, Callback: callback.Vote(r.Token, p.UserID)}})
	}
	for _, p := range r.Humans() {
		e.sendButtons(p.UserID, msgSuspectPrompt, buttons)
	}

	t.suspectVote = e.afterRoom(r.Token, e.cfg.SuspectVoteSoft, func(r *Room) {
		if r.Phase != PhaseSuspectVote {
			return
		}
		e.broadcast(r, msgSuspectHurry)
		e.timersFor(r.Token).suspectVote = e.afterRoom(r.Token, e.cfg.SuspectVoteCountdown, e.finalizeSuspectVote)
	})

	logger.Info("Suspect vote started", zap.String("token", r.Token))
	e.touch(r)
}

// CastSuspectVote records voter's choice. A later vote replaces an earlier one.
func (e *Engine) CastSuspectVote(userID int64, token string, target int64) error {
	r, ok := e.lookupRoom(token)
	if !ok {
		return ErrRoomNotFound
	}
	if r.Phase != PhaseSuspectVote {
		return ErrNoVoteInProgress
	}
	if !r.Has(userID) {
		return ErrNotInRoom
	}
	if !r.Has(target) {
		return ErrUnknownTarget
	}

	r.Votes[userID] = target
	e.send(userID, msgVoteAccepted)

	if e.everyoneVoted(r) {
		e.finalizeSuspectVote(r)
		return nil
	}
	e.touch(r)
	return nil
}

func (e *Engine) everyoneVoted(r *Room) bool {
	for _, p := range r.Participants {
		if _, ok := r.Votes[p.UserID]; !ok {
			return false
		}
	}
	return true
}

// Tally counts votes per target and returns the targets sharing the top count, sorted.
func Tally(votes map[int64]int64) (counts map[int64]int, leaders []int64, top int) {
	counts = make(map[int64]int)
	for _, target := range votes {
		counts[target]++
	}
	for target, n := range counts {
		switch {
		case n > top:
			top = n
			leaders = []int64{target}
		case n == top:
			leaders = append(leaders, target)
		}
	}
	sort.Slice(leaders, func(i, j int) bool { return leaders[i] < leaders[j] })
	return counts, leaders, top
}

// finalizeSuspectVote opens the spy guess only when the spy alone got the most votes.
func (e *Engine) finalizeSuspectVote(r *Room) {
	if r.Phase != PhaseSuspectVote {
		return
	}
	e.timersFor(r.Token).suspectVote.cancel()

	_, leaders, top := Tally(r.Votes)
	logger.Info("Suspect vote finished",
		zap.String("token", r.Token), zap.Int("votes", len(r.Votes)), zap.Int("top", top), zap.Int64s("leaders", leaders))

	switch {
	case len(r.Votes) == 0:
		e.finishRound(r, OutcomeNoVotes, nil)
	case len(leaders) == 1 && r.IsSpy(leaders[0]):
		e.beginSpyGuess(r)
	default:
		e.finishRound(r, OutcomeMisidentified, nil)
	}
}
