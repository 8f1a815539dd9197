package game

import (
	"github.com/ichi0g0y/spy-party/internal/shared/logger"
	"go.uber.org/zap"
)

var testBots = []Participant{
	{UserID: -1, Name: "Бот 1"},
	{UserID: -2, Name: "Бот 2"},
}

// CreateTestRoom starts a short round for userID against two bots.
func (e *Engine) CreateTestRoom(userID int64, name string, spyIsOwner bool) (*Room, error) {
	if err := e.checkFree(userID); err != nil {
		return nil, err
	}
	r := newRoom(e.newToken(TestPrefix), Participant{UserID: userID, Name: name}, e.now())
	r.Participants = append(r.Participants, testBots...)
	r.IsTestGame = true
	r.TestSpyIsOwner = spyIsOwner
	e.addRoom(r)

	e.send(userID, fmtTestRoom(r.Token, spyIsOwner))
	logger.Info("Test room created", zap.String("token", r.Token), zap.Int64("owner", userID), zap.Bool("spy_is_owner", spyIsOwner))
	e.startRound(r)
	return r, nil
}
