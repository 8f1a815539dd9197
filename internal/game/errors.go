package game

import "errors"

// Precondition failures. Each maps to a user notice through Notice.
var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrNotInRoom        = errors.New("not in a room")
	ErrAlreadyInRoom    = errors.New("already in a room")
	ErrAlreadyQueued    = errors.New("already searching")
	ErrNotQueued        = errors.New("not searching")
	ErrNotOwner         = errors.New("not the room owner")
	ErrGameInProgress   = errors.New("game in progress")
	ErrGameNotRunning   = errors.New("game not running")
	ErrTooFewPlayers    = errors.New("too few players")
	ErrRoomFull         = errors.New("room is full")
	ErrVoteInProgress   = errors.New("vote already in progress")
	ErrNoVoteInProgress = errors.New("no vote in progress")
	ErrEarlyVoteUsed    = errors.New("early vote already used this round")
	ErrAlreadyVoted     = errors.New("already voted")
	ErrUnknownTarget    = errors.New("vote target is not a participant")
	ErrNotSpy           = errors.New("only the spy may guess")
	ErrNoGuessPending   = errors.New("no spy guess pending")
	ErrChatClosed       = errors.New("chat closed during voting")
	ErrMessageTooLong   = errors.New("message too long")
	ErrPrivateRoomOnly  = errors.New("only private rooms support this")
	ErrMaintenance      = errors.New("maintenance in progress")
)

// Notice returns the localized user message for a precondition error.
func Notice(err error) string {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return msgRoomNotFound
	case errors.Is(err, ErrNotInRoom):
		return msgNotInRoom
	case errors.Is(err, ErrAlreadyInRoom):
		return msgAlreadyInRoom
	case errors.Is(err, ErrAlreadyQueued):
		return msgAlreadyQueued
	case errors.Is(err, ErrNotQueued):
		return msgNotQueued
	case errors.Is(err, ErrNotOwner):
		return msgNotOwner
	case errors.Is(err, ErrGameInProgress):
		return msgGameInProgress
	case errors.Is(err, ErrGameNotRunning):
		return msgGameNotRunning
	case errors.Is(err, ErrTooFewPlayers):
		return msgTooFewPlayers
	case errors.Is(err, ErrRoomFull):
		return msgRoomFull
	case errors.Is(err, ErrVoteInProgress):
		return msgVoteInProgress
	case errors.Is(err, ErrNoVoteInProgress):
		return msgNoVoteInProgress
	case errors.Is(err, ErrEarlyVoteUsed):
		return msgEarlyVoteUsed
	case errors.Is(err, ErrAlreadyVoted):
		return msgAlreadyVoted
	case errors.Is(err, ErrUnknownTarget):
		return msgUnknownTarget
	case errors.Is(err, ErrNotSpy):
		return msgNotSpy
	case errors.Is(err, ErrNoGuessPending):
		return msgNoGuessPending
	case errors.Is(err, ErrChatClosed):
		return msgChatClosed
	case errors.Is(err, ErrMessageTooLong):
		return msgTooLong
	case errors.Is(err, ErrPrivateRoomOnly):
		return msgPrivateRoomOnly
	case errors.Is(err, ErrMaintenance):
		return msgMaintenanceActive
	}
	return msgGenericError
}
