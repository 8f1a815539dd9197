package game

import (
	"github.com/ichi0g0y/spy-party/internal/shared/logger"
	"go.uber.org/zap"
)

// releaseFinished drops userID from a room that is only waiting out its grace period.
func (e *Engine) releaseFinished(userID int64) {
	r, ok := e.RoomOf(userID)
	if !ok || r.Phase != PhaseFinished {
		return
	}
	r.remove(userID)
	delete(e.userRoom, userID)
	if len(r.Humans()) == 0 {
		e.deleteRoom(r.Token)
	}
}

func (e *Engine) checkFree(userID int64) error {
	e.releaseFinished(userID)
	if _, ok := e.userRoom[userID]; ok {
		return ErrAlreadyInRoom
	}
	if _, ok := e.queued[userID]; ok {
		return ErrAlreadyQueued
	}
	return nil
}

// CreateRoom opens a private room owned by userID.
func (e *Engine) CreateRoom(userID int64, name string) (*Room, error) {
	if err := e.checkFree(userID); err != nil {
		return nil, err
	}
	r := newRoom(e.newToken(""), Participant{UserID: userID, Name: name}, e.now())
	e.addRoom(r)
	e.send(userID, fmtRoomCreated(r.Token))
	logger.Info("Room created", zap.String("token", r.Token), zap.Int64("owner", userID))
	return r, nil
}

// JoinRoom adds userID to a room that has not started yet.
func (e *Engine) JoinRoom(userID int64, name, token string) (*Room, error) {
	if err := e.checkFree(userID); err != nil {
		return nil, err
	}
	r, ok := e.lookupRoom(token)
	if !ok {
		return nil, ErrRoomNotFound
	}
	if r.Phase != PhaseLobby {
		return nil, ErrGameInProgress
	}
	if len(r.Participants) >= e.cfg.MaxRoomPlayers {
		return nil, ErrRoomFull
	}

	p := Participant{UserID: userID, Name: name}
	r.Participants = append(r.Participants, p)
	e.userRoom[userID] = r.Token
	e.broadcast(r, fmtJoined(p), userID)
	e.send(userID, fmtYouJoined(r.Token, r.Participants))
	e.touch(r)
	logger.Info("Player joined room", zap.String("token", r.Token), zap.Int64("user_id", userID))
	return r, nil
}

// LeaveRoom removes userID from their room and applies the early termination rules.
func (e *Engine) LeaveRoom(userID int64) error {
	r, ok := e.RoomOf(userID)
	if !ok {
		return ErrNotInRoom
	}

	inRound := r.InRound()
	wasSpy := inRound && r.IsSpy(userID)
	p, _ := r.remove(userID)
	delete(e.userRoom, userID)
	e.send(userID, msgYouLeft)
	logger.Info("Player left room", zap.String("token", r.Token), zap.Int64("user_id", userID), zap.String("phase", string(r.Phase)))

	if len(r.Humans()) == 0 {
		e.deleteRoom(r.Token)
		return nil
	}
	if r.Phase == PhaseLobby && userID == r.OwnerID {
		e.broadcast(r, msgOwnerLeft)
		e.deleteRoom(r.Token)
		return nil
	}

	e.broadcast(r, fmtLeft(p))
	if userID == r.OwnerID {
		next := r.Humans()[0]
		r.OwnerID = next.UserID
		e.broadcast(r, fmtNewOwner(next))
	}

	if inRound {
		switch {
		case wasSpy:
			e.finishRound(r, OutcomeSpyEscaped, &p)
		case len(r.Humans()) < e.cfg.MinHumans:
			e.finishRound(r, OutcomeTooFewPlayers, nil)
		default:
			e.recheckVotes(r)
		}
	}
	e.touch(r)
	return nil
}

// SetPack selects a content pack for the owner's private room. An empty name clears it.
func (e *Engine) SetPack(userID int64, pack string) error {
	r, ok := e.RoomOf(userID)
	if !ok {
		return ErrNotInRoom
	}
	if r.OwnerID != userID {
		return ErrNotOwner
	}
	if !r.IsPrivate() {
		return ErrPrivateRoomOnly
	}
	if r.Phase != PhaseLobby {
		return ErrGameInProgress
	}

	if pack == "" {
		r.ContentPack = ""
		e.broadcast(r, msgPackCleared)
		e.touch(r)
		return nil
	}
	if e.stats != nil {
		if _, err := e.stats.PackLocations(pack); err != nil {
			return err
		}
	}
	r.ContentPack = pack
	e.broadcast(r, fmtPackSet(pack))
	e.touch(r)
	return nil
}

// recheckVotes finalizes a vote that became complete because a voter left.
func (e *Engine) recheckVotes(r *Room) {
	if r.VoteInProgress && e.allHumansIn(r, r.Voters) {
		e.finalizeEarlyVote(r)
		return
	}
	if r.Phase == PhaseSuspectVote && e.everyoneVoted(r) {
		e.finalizeSuspectVote(r)
	}
}
