package router

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ichi0g0y/spy-party/internal/directory"
	"github.com/ichi0g0y/spy-party/internal/localdb"
	"github.com/ichi0g0y/spy-party/internal/shared/logger"
	"github.com/ichi0g0y/spy-party/internal/transport"
	"go.uber.org/zap"
)

const (
	defaultMaintenanceLead = 10 * time.Minute
	recentRoomsLimit       = 20
	purchasesLimit         = 20
)

var errBadDuration = errors.New("bad ban duration")

func isAdminVerb(verb string) bool {
	switch verb {
	case "maintenance", "rooms", "log", "ban", "unban", "bans", "purchases", "refund", "testroom":
		return true
	}
	return false
}

// handleAdmin runs an administrator verb. It reports false for unknown verbs.
func (r *Router) handleAdmin(c transport.Command) bool {
	switch c.Verb {
	case "maintenance":
		r.maintenance(c.UserID, c.Args)
	case "rooms":
		r.rooms(c.UserID)
	case "log":
		r.roomLog(c.UserID, c.Args)
	case "ban":
		r.ban(c)
	case "unban":
		r.unban(c)
	case "bans":
		r.bans(c.UserID)
	case "purchases":
		r.purchases(c.UserID, c.Args)
	case "refund":
		r.refund(c.UserID, c.Args)
	case "testroom":
		r.testRoom(c)
	default:
		return false
	}
	logger.Info("Admin command", zap.Int64("user_id", c.UserID), zap.String("verb", c.Verb), zap.Strings("args", c.Args))
	return true
}

func (r *Router) maintenance(userID int64, args []string) {
	if len(args) == 0 {
		r.engine.Notify(userID, msgUsageMaintenance)
		return
	}
	switch strings.ToLower(args[0]) {
	case "on":
		r.engine.SetMaintenance(true)
		r.engine.Notify(userID, msgMaintenanceOnOK)
	case "off":
		r.engine.SetMaintenance(false)
		r.engine.Notify(userID, msgMaintenanceOffOK)
	case "schedule":
		lead := defaultMaintenanceLead
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n <= 0 {
				r.engine.Notify(userID, msgUsageMaintenance)
				return
			}
			lead = time.Duration(n) * time.Minute
		}
		if err := r.engine.ScheduleMaintenance(lead); err != nil {
			r.fail(userID, err)
			return
		}
		at, _ := r.engine.MaintenanceScheduledAt()
		r.engine.Notify(userID, fmtMaintenanceScheduled(at))
	case "status":
		switch at, scheduled := r.engine.MaintenanceScheduledAt(); {
		case r.engine.MaintenanceActive():
			r.engine.Notify(userID, msgMaintenanceOnOK)
		case scheduled:
			r.engine.Notify(userID, fmtMaintenanceScheduled(at))
		default:
			r.engine.Notify(userID, msgMaintenanceIdle)
		}
	default:
		r.engine.Notify(userID, msgUsageMaintenance)
	}
}

func (r *Router) rooms(userID int64) {
	rooms := r.engine.RecentRooms(recentRoomsLimit)
	if len(rooms) == 0 {
		r.engine.Notify(userID, msgNoRooms)
		return
	}
	lines := make([]string, 0, len(rooms)+1)
	lines = append(lines, fmt.Sprintf("Комнаты (%d из %d):", len(rooms), r.engine.RoomCount()))
	for _, s := range rooms {
		line := fmt.Sprintf("%s | %s | игроков %d (людей %d) | владелец %d | создана %s",
			s.Token, s.Phase, s.Players, s.Humans, s.OwnerID, s.CreatedAt.UTC().Format("02.01 15:04"))
		if s.ContentPack != "" {
			line += " | набор " + s.ContentPack
		}
		lines = append(lines, line)
	}
	r.engine.Notify(userID, strings.Join(lines, "\n"))
}

func (r *Router) roomLog(userID int64, args []string) {
	if len(args) == 0 {
		r.engine.Notify(userID, msgUsageLog)
		return
	}
	lines, err := r.engine.RoomLog(args[0])
	if err != nil {
		r.fail(userID, err)
		return
	}
	if len(lines) == 0 {
		r.engine.Notify(userID, msgEmptyLog)
		return
	}
	r.engine.Notify(userID, fmt.Sprintf("Лог комнаты %s:\n%s", args[0], strings.Join(lines, "\n")))
}

// ban accepts "/ban @handle 12h" or a reply with "/ban 12h".
func (r *Router) ban(c transport.Command) {
	var (
		target *localdb.Player
		err    error
		durArg string
	)
	switch {
	case c.ReplyTo > 0 && len(c.Args) == 1:
		target, err = r.dir.Get(c.ReplyTo)
		durArg = c.Args[0]
	case len(c.Args) == 2:
		target, err = r.dir.FindByHandle(c.Args[0])
		durArg = c.Args[1]
	default:
		r.engine.Notify(c.UserID, msgUsageBan)
		return
	}
	if err != nil {
		r.fail(c.UserID, err)
		return
	}

	d, permanent, err := parseBanDuration(durArg)
	if err != nil {
		r.engine.Notify(c.UserID, msgBadDuration)
		return
	}
	deadline := directory.BanPermanent
	until := time.Time{}
	if !permanent {
		until = r.now().Add(d)
		deadline = until.Unix()
	}
	if err := r.dir.SetBan(target.UserID, deadline); err != nil {
		r.fail(c.UserID, err)
		return
	}
	r.kick(target.UserID)
	r.engine.Notify(c.UserID, fmtBanned(handleOf(target), permanent, until))
}

// kick removes a banned player from their room or the search queue.
func (r *Router) kick(userID int64) {
	if r.engine.InQueue(userID) {
		_ = r.engine.CancelSearch(userID)
	}
	if _, ok := r.engine.RoomOf(userID); ok {
		if err := r.engine.LeaveRoom(userID); err != nil {
			logger.Warn("Failed to remove banned player", zap.Int64("user_id", userID), zap.Error(err))
		}
	}
}

func (r *Router) unban(c transport.Command) {
	var (
		target *localdb.Player
		err    error
	)
	switch {
	case len(c.Args) == 1:
		target, err = r.dir.FindByHandle(c.Args[0])
	case c.ReplyTo > 0:
		target, err = r.dir.Get(c.ReplyTo)
	default:
		r.engine.Notify(c.UserID, msgUsageUnban)
		return
	}
	if err != nil {
		r.fail(c.UserID, err)
		return
	}
	if err := r.dir.SetBan(target.UserID, 0); err != nil {
		r.fail(c.UserID, err)
		return
	}
	r.engine.Notify(c.UserID, fmtUnbanned(handleOf(target)))
}

func (r *Router) bans(userID int64) {
	players, err := r.dir.Banned()
	if err != nil {
		r.fail(userID, err)
		return
	}
	if len(players) == 0 {
		r.engine.Notify(userID, msgNoBans)
		return
	}
	lines := []string{fmt.Sprintf("Заблокированы (%d):", len(players))}
	for i := range players {
		p := &players[i]
		until := "навсегда"
		if p.BannedUntil != directory.BanPermanent {
			until = "до " + time.Unix(p.BannedUntil, 0).UTC().Format("02.01.2006 15:04") + " UTC"
		}
		lines = append(lines, fmt.Sprintf("%s | %d | %s", handleOf(p), p.UserID, until))
	}
	r.engine.Notify(userID, strings.Join(lines, "\n"))
}

func handleOf(p *localdb.Player) string {
	if p.Username != "" {
		return "@" + p.Username
	}
	return strconv.FormatInt(p.UserID, 10)
}

// parseBanDuration reads "30m", "12h", "7d" (also м/ч/д) or "perm".
func parseBanDuration(s string) (time.Duration, bool, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "perm", "forever", "навсегда":
		return 0, true, nil
	}
	runes := []rune(s)
	if len(runes) < 2 {
		return 0, false, errBadDuration
	}
	n, err := strconv.Atoi(string(runes[:len(runes)-1]))
	if err != nil || n <= 0 {
		return 0, false, errBadDuration
	}
	var unit time.Duration
	switch runes[len(runes)-1] {
	case 'm', 'м':
		unit = time.Minute
	case 'h', 'ч':
		unit = time.Hour
	case 'd', 'д':
		unit = 24 * time.Hour
	default:
		return 0, false, errBadDuration
	}
	return time.Duration(n) * unit, false, nil
}

func (r *Router) purchases(userID int64, args []string) {
	var filter int64
	if len(args) > 0 {
		p, err := r.dir.FindByHandle(args[0])
		if err != nil {
			r.fail(userID, err)
			return
		}
		filter = p.UserID
	}
	list, err := r.dir.Purchases(filter, purchasesLimit)
	if err != nil {
		r.fail(userID, err)
		return
	}
	if len(list) == 0 {
		r.engine.Notify(userID, msgNoPurchases)
		return
	}
	lines := make([]string, 0, len(list))
	for _, p := range list {
		line := fmt.Sprintf("#%d | %d | %s | %d ₽ | %s", p.ID, p.UserID, p.ItemCode, p.Price, p.CreatedAt.UTC().Format("02.01.2006 15:04"))
		if p.Refunded {
			line += " | возврат"
		}
		lines = append(lines, line)
	}
	r.engine.Notify(userID, strings.Join(lines, "\n"))
}

func (r *Router) refund(userID int64, args []string) {
	if len(args) == 0 {
		r.engine.Notify(userID, msgUsageRefund)
		return
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(args[0], "#"), 10, 64)
	if err != nil {
		r.engine.Notify(userID, msgUsageRefund)
		return
	}
	p, err := r.dir.Refund(id)
	if err != nil {
		r.fail(userID, err)
		return
	}
	r.engine.Notify(userID, fmtRefunded(p.ID, p.ItemCode, p.UserID))
}

func (r *Router) testRoom(c transport.Command) {
	if len(c.Args) == 0 {
		r.engine.Notify(c.UserID, msgUsageTestRoom)
		return
	}
	var spyIsOwner bool
	switch strings.ToLower(c.Args[0]) {
	case "bot":
	case "me":
		spyIsOwner = true
	default:
		r.engine.Notify(c.UserID, msgUsageTestRoom)
		return
	}
	if _, err := r.engine.CreateTestRoom(c.UserID, c.Name, spyIsOwner); err != nil {
		r.fail(c.UserID, err)
	}
}
