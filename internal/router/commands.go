package router

import (
	"fmt"
	"strings"
	"time"

	"github.com/ichi0g0y/spy-party/internal/callback"
	"github.com/ichi0g0y/spy-party/internal/directory"
	"github.com/ichi0g0y/spy-party/internal/locale"
	"github.com/ichi0g0y/spy-party/internal/transport"
)

func (r *Router) handleCommand(c transport.Command, l locale.Locale, admin bool) {
	verb := strings.ToLower(strings.TrimPrefix(c.Verb, "/"))
	verb, _, _ = strings.Cut(verb, "@")

	switch verb {
	case "start", "menu", "help":
		r.engine.Notify(c.UserID, menu(l))
	case "create":
		if _, err := r.engine.CreateRoom(c.UserID, c.Name); err != nil {
			r.fail(c.UserID, err)
		}
	case "join":
		if len(c.Args) == 0 {
			r.engine.Notify(c.UserID, msgUsageJoin)
			return
		}
		if _, err := r.engine.JoinRoom(c.UserID, c.Name, c.Args[0]); err != nil {
			r.fail(c.UserID, err)
		}
	case "leave":
		r.leave(c.UserID)
	case "begin":
		if err := r.engine.StartRound(c.UserID); err != nil {
			r.fail(c.UserID, err)
		}
	case "find":
		if err := r.engine.Enqueue(c.UserID, c.Name); err != nil {
			r.fail(c.UserID, err)
		}
	case "cancel":
		if err := r.engine.CancelSearch(c.UserID); err != nil {
			r.fail(c.UserID, err)
		}
	case "earlyvote":
		if err := r.engine.StartEarlyVote(c.UserID); err != nil {
			r.fail(c.UserID, err)
		}
	case "pack":
		r.pack(c.UserID, c.Args, admin)
	case "profile":
		r.profile(c.UserID)
	case "shop":
		r.shop(c.UserID)
	default:
		if !isAdminVerb(verb) {
			r.engine.Notify(c.UserID, hint(l))
			return
		}
		if !admin {
			r.engine.Notify(c.UserID, msgAdminOnly)
			return
		}
		c.Verb = verb
		r.handleAdmin(c)
	}
}

// leave cancels a running search when the user is not in a room.
func (r *Router) leave(userID int64) {
	if r.engine.InQueue(userID) {
		if err := r.engine.CancelSearch(userID); err != nil {
			r.fail(userID, err)
		}
		return
	}
	if err := r.engine.LeaveRoom(userID); err != nil {
		r.fail(userID, err)
	}
}

// pack selects a content pack for the room. Without an argument it clears the selection.
func (r *Router) pack(userID int64, args []string, admin bool) {
	name := ""
	if len(args) > 0 {
		name = strings.ToLower(strings.TrimSpace(args[0]))
	}
	if name != "" && !admin {
		owned, err := r.dir.OwnsPack(userID, name)
		if err != nil {
			r.fail(userID, err)
			return
		}
		if !owned {
			if _, err := r.dir.PackLocations(name); err != nil {
				r.fail(userID, err)
				return
			}
			item := directory.PackItem(name)
			r.engine.NotifyButtons(userID, msgPackNotOwned, [][]transport.Button{{buyButton(item)}})
			return
		}
	}
	if err := r.engine.SetPack(userID, name); err != nil {
		r.fail(userID, err)
	}
}

func (r *Router) profile(userID int64) {
	p, err := r.dir.Profile(userID)
	if err != nil {
		r.fail(userID, err)
		return
	}
	var b strings.Builder
	name := p.Player.Username
	if name == "" {
		name = fmt.Sprintf("%d", p.Player.UserID)
	}
	fmt.Fprintf(&b, "Профиль @%s\n", name)
	fmt.Fprintf(&b, "Уровень: %d\n", p.Progress.Level)
	fmt.Fprintf(&b, "Опыт: %d (ещё %d до следующего уровня)\n", p.Progress.TotalXP, p.Progress.ToNext)
	fmt.Fprintf(&b, "Игр сыграно: %d\n", p.Player.GamesPlayed)
	fmt.Fprintf(&b, "Побед за шпиона: %d\n", p.Player.SpyWins)
	fmt.Fprintf(&b, "Побед за мирных: %d\n", p.Player.CivilianWins)
	if p.Premium {
		until := time.Unix(p.Player.PremiumUntil, 0).UTC()
		fmt.Fprintf(&b, "Премиум до %s UTC\n", until.Format("02.01.2006"))
	}
	if len(p.Player.OwnedPacks) > 0 {
		fmt.Fprintf(&b, "Наборы локаций: %s", strings.Join(p.Player.OwnedPacks, ", "))
	}
	r.engine.Notify(userID, strings.TrimRight(b.String(), "\n"))
}

func (r *Router) shop(userID int64) {
	items, err := directory.Catalog()
	if err != nil && len(items) == 0 {
		r.fail(userID, err)
		return
	}
	premium := r.dir.IsPremium(userID)
	rows := make([][]transport.Button, 0, len(items))
	for _, item := range items {
		btn := buyButton(item)
		if pack, ok := strings.CutPrefix(item, directory.PackItem("")); ok {
			// 所持済みのパックは出さない
			if owned, err := r.dir.OwnsPack(userID, pack); err == nil && owned {
				continue
			}
		} else if item == directory.ItemPremium30d && premium {
			btn.Label = "Продлить: " + btn.Label
		}
		rows = append(rows, []transport.Button{btn})
	}
	r.engine.NotifyButtons(userID, msgShopHeader, rows)
}

func buyButton(item string) transport.Button {
	price, _ := directory.Price(item)
	return transport.Button{
		Label:    fmt.Sprintf("%s - %d ₽", itemTitle(item), price),
		Callback: callback.Buy(item),
	}
}

// itemTitle is the shop label of an item code.
func itemTitle(item string) string {
	if item == directory.ItemPremium30d {
		return "Премиум на 30 дней"
	}
	if pack, ok := strings.CutPrefix(item, directory.PackItem("")); ok && pack != "" {
		return "Набор локаций " + pack
	}
	return item
}
