package game

import (
	"github.com/ichi0g0y/spy-party/internal/callback"
	"github.com/ichi0g0y/spy-party/internal/shared/logger"
	"github.com/ichi0g0y/spy-party/internal/transport"
	"go.uber.org/zap"
)

// StartEarlyVote opens a poll to skip straight to the suspect vote. Each
// participant may initiate once per round.
func (e *Engine) StartEarlyVote(userID int64) error {
	r, ok := e.RoomOf(userID)
	if !ok {
		return ErrNotInRoom
	}
	if !r.GameStarted || r.Phase != PhaseRunning {
		return ErrGameNotRunning
	}
	if r.VoteInProgress {
		return ErrVoteInProgress
	}
	if r.BannedFromVoting.Has(userID) {
		return ErrEarlyVoteUsed
	}

	initiator, _ := r.Participant(userID)
	r.BannedFromVoting.Add(userID)
	r.VotesFor, r.VotesAgainst = 0, 0
	r.Voters = IDSet{}
	r.VoteInProgress = true

	seconds := int(e.cfg.EarlyVoteDuration.Seconds())
	buttons := [][]transport.Button{{
		{Label: labelFor, Callback: callback.EarlyVoteFor(r.Token)},
		{Label: labelAgainst, Callback: callback.EarlyVoteAgainst(r.Token)},
	}}
	prompt := fmtEarlyVotePrompt(r.displayName(initiator), seconds)
	for _, p := range r.Humans() {
		e.sendButtons(p.UserID, prompt, buttons)
	}

	e.timersFor(r.Token).earlyVote = e.afterRoom(r.Token, e.cfg.EarlyVoteDuration, e.finalizeEarlyVote)
	logger.Info("Early vote started", zap.String("token", r.Token), zap.Int64("initiator", userID))
	e.touch(r)
	return nil
}

// CastEarlyVote records one human's answer to the running early vote.
func (e *Engine) CastEarlyVote(userID int64, token string, inFavor bool) error {
	r, ok := e.lookupRoom(token)
	if !ok {
		return ErrRoomNotFound
	}
	if !r.Has(userID) {
		return ErrNotInRoom
	}
	if !r.VoteInProgress {
		return ErrNoVoteInProgress
	}
	if r.Voters.Has(userID) {
		return ErrAlreadyVoted
	}

	r.Voters.Add(userID)
	if inFavor {
		r.VotesFor++
	} else {
		r.VotesAgainst++
	}
	e.send(userID, msgVoteAccepted)

	if e.allHumansIn(r, r.Voters) {
		e.finalizeEarlyVote(r)
		return nil
	}
	e.touch(r)
	return nil
}

func (e *Engine) allHumansIn(r *Room, set IDSet) bool {
	for _, p := range r.Humans() {
		if !set.Has(p.UserID) {
			return false
		}
	}
	return true
}

// finalizeEarlyVote closes the poll. Bots in test rooms count as "for".
func (e *Engine) finalizeEarlyVote(r *Room) {
	if !r.VoteInProgress {
		return
	}
	t := e.timersFor(r.Token)
	t.earlyVote.cancel()
	r.VoteInProgress = false

	if r.IsTestGame {
		r.VotesFor += len(r.Bots())
	}

	logger.Info("Early vote finished",
		zap.String("token", r.Token), zap.Int("for", r.VotesFor), zap.Int("against", r.VotesAgainst))

	if r.VotesFor > r.VotesAgainst {
		e.broadcast(r, fmtEarlyVotePassed(r.VotesFor, r.VotesAgainst))
		t.round.cancel()
		t.finalMinute.cancel()
		r.GameStarted = false
		e.beginSuspectVote(r)
		return
	}
	e.broadcast(r, fmtEarlyVoteFailed(r.VotesFor, r.VotesAgainst))
	e.touch(r)
}
