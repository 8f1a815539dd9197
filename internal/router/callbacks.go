package router

import (
	"github.com/ichi0g0y/spy-party/internal/callback"
	"github.com/ichi0g0y/spy-party/internal/directory"
	"github.com/ichi0g0y/spy-party/internal/shared/logger"
	"github.com/ichi0g0y/spy-party/internal/transport"
	"go.uber.org/zap"
)

func (r *Router) handleButton(e transport.ButtonPress) {
	tok, err := callback.Parse(e.Callback)
	if err != nil {
		logger.Debug("Rejected callback", zap.Int64("user_id", e.UserID), zap.Error(err))
		r.engine.Notify(e.UserID, msgBadCallback)
		return
	}

	switch tok.Kind {
	case callback.KindVote:
		err = r.engine.CastSuspectVote(e.UserID, tok.Room, tok.Target)
	case callback.KindSpyGuess:
		err = r.engine.SubmitSpyGuess(e.UserID, tok.Room, tok.Location)
	case callback.KindEarlyVoteFor:
		err = r.engine.CastEarlyVote(e.UserID, tok.Room, true)
	case callback.KindEarlyVoteAgainst:
		err = r.engine.CastEarlyVote(e.UserID, tok.Room, false)
	case callback.KindBuy:
		var id int64
		id, err = r.dir.Purchase(e.UserID, tok.Item)
		if err == nil {
			r.engine.Notify(e.UserID, fmtPurchased(tok.Item, id))
		}
	}
	if err != nil {
		r.fail(e.UserID, err)
	}
}

// handleDocument stores an uploaded "<pack>.txt". The download runs off the loop.
func (r *Router) handleDocument(e transport.Document, admin bool) {
	if !admin {
		r.engine.Notify(e.UserID, msgPackUploadAdmin)
		return
	}
	name, err := directory.PackNameFromFile(e.FileName)
	if err != nil {
		r.fail(e.UserID, err)
		return
	}
	if e.Fetch == nil {
		r.engine.Notify(e.UserID, msgPackFetchFailed)
		return
	}

	go func() {
		ctx, cancel := r.fetchContext()
		defer cancel()
		data, err := e.Fetch(ctx)
		r.engine.Submit(func() {
			if err != nil {
				logger.Warn("Failed to fetch pack file", zap.String("file", e.FileName), zap.Error(err))
				r.engine.Notify(e.UserID, msgPackFetchFailed)
				return
			}
			locations := directory.ParsePackFile(data)
			if err := r.dir.SavePack(name, locations, e.UserID); err != nil {
				r.fail(e.UserID, err)
				return
			}
			r.engine.Notify(e.UserID, fmtPackUploaded(name, len(locations)))
		})
	}()
}
