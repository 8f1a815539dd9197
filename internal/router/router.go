// Package router gates inbound events and turns them into engine calls.
//
// Handle runs on the engine loop. Adapters call Dispatch from their own
// goroutines; it only posts a task.
package router

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ichi0g0y/spy-party/internal/directory"
	"github.com/ichi0g0y/spy-party/internal/game"
	"github.com/ichi0g0y/spy-party/internal/localdb"
	"github.com/ichi0g0y/spy-party/internal/locale"
	"github.com/ichi0g0y/spy-party/internal/shared/logger"
	"github.com/ichi0g0y/spy-party/internal/transport"
	"go.uber.org/zap"
)

const defaultFetchTimeout = 30 * time.Second

type Router struct {
	engine *game.Engine
	dir    *directory.Directory
	now    func() time.Time

	// langs は最後に判定できたロケール
	langs map[int64]locale.Locale

	fetchTimeout time.Duration
}

func New(engine *game.Engine, dir *directory.Directory) *Router {
	return &Router{
		engine:       engine,
		dir:          dir,
		now:          time.Now,
		langs:        make(map[int64]locale.Locale),
		fetchTimeout: defaultFetchTimeout,
	}
}

// Dispatch posts ev onto the engine loop. It reports false after shutdown.
func (r *Router) Dispatch(ev transport.Event) bool {
	return r.engine.Submit(func() { r.Handle(ev) })
}

// Handle processes one inbound event. It must run on the engine loop.
func (r *Router) Handle(ev transport.Event) {
	userID := ev.Sender()
	if userID <= 0 {
		return
	}
	if _, err := r.dir.GetOrCreate(userID, ev.SenderName()); err != nil {
		logger.Warn("Failed to refresh player", zap.Int64("user_id", userID), zap.Error(err))
	}

	l := r.localeFor(userID, eventText(ev))
	admin := r.engine.IsAdmin(userID)
	if !admin {
		if notice, blocked := r.banGate(userID, l); blocked {
			r.engine.Notify(userID, notice)
			return
		}
		if r.engine.MaintenanceActive() {
			r.engine.Notify(userID, maintenanceNotice(l))
			return
		}
	}

	switch e := ev.(type) {
	case transport.TextMessage:
		if verb, args, ok := parseCommand(e.Text); ok {
			r.handleCommand(transport.Command{UserID: e.UserID, Name: e.Name, Verb: verb, Args: args, ReplyTo: e.ReplyTo}, l, admin)
			return
		}
		r.handleText(e, l)
	case transport.Media:
		r.engine.RejectNonText(userID)
	case transport.ButtonPress:
		r.handleButton(e)
	case transport.Document:
		r.handleDocument(e, admin)
	case transport.Command:
		r.handleCommand(e, l, admin)
	default:
		logger.Warn("Unknown inbound event", zap.Int64("user_id", userID))
	}
}

func eventText(ev transport.Event) string {
	switch e := ev.(type) {
	case transport.TextMessage:
		return e.Text
	case transport.Command:
		return strings.Join(e.Args, " ")
	}
	return ""
}

func (r *Router) localeFor(userID int64, text string) locale.Locale {
	if l, ok := locale.Detect(text); ok {
		r.langs[userID] = l
		return l
	}
	if l, ok := r.langs[userID]; ok {
		return l
	}
	return locale.RU
}

// SetLocale pins the locale of a user, e.g. from a client-provided language code.
func (r *Router) SetLocale(userID int64, l locale.Locale) {
	r.langs[userID] = l
}

func (r *Router) banGate(userID int64, l locale.Locale) (string, bool) {
	banned, permanent, remaining, err := r.dir.BanStatus(userID)
	if err != nil {
		logger.Error("Failed to check ban status", zap.Int64("user_id", userID), zap.Error(err))
		return "", false
	}
	if !banned {
		return "", false
	}
	return banNotice(l, permanent, remaining), true
}

func (r *Router) handleText(e transport.TextMessage, l locale.Locale) {
	if _, ok := r.engine.RoomOf(e.UserID); !ok {
		r.engine.Notify(e.UserID, hint(l))
		return
	}
	if err := r.engine.Relay(e.UserID, e.Text); err != nil {
		r.fail(e.UserID, err)
	}
}

// parseCommand splits "/verb@bot arg1 arg2".
func parseCommand(text string) (string, []string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", nil, false
	}
	fields := strings.Fields(text[1:])
	if len(fields) == 0 {
		return "", nil, false
	}
	verb, _, _ := strings.Cut(fields[0], "@")
	return strings.ToLower(verb), fields[1:], true
}

// fail answers a rejected request with its localized notice.
func (r *Router) fail(userID int64, err error) {
	r.engine.Notify(userID, notice(err))
}

func notice(err error) string {
	switch {
	case errors.Is(err, localdb.ErrPackNotFound):
		return msgPackNotFound
	case errors.Is(err, localdb.ErrPlayerNotFound):
		return msgPlayerNotFound
	case errors.Is(err, localdb.ErrPurchaseNotFound):
		return msgPurchaseNotFound
	case errors.Is(err, directory.ErrUnknownItem):
		return msgUnknownItem
	case errors.Is(err, directory.ErrAlreadyRefunded):
		return msgAlreadyRefunded
	case errors.Is(err, directory.ErrAlreadyOwned):
		return msgAlreadyOwned
	case errors.Is(err, directory.ErrBadPackName):
		return msgPackFileName
	case errors.Is(err, directory.ErrEmptyPack):
		return msgPackEmpty
	}
	text := game.Notice(err)
	if text == msgGenericError {
		logger.Error("Unhandled request error", zap.Error(err))
	}
	return text
}

func (r *Router) fetchContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), r.fetchTimeout)
}
