// Package directory is the player directory: profiles, XP, bans, premium and packs.
package directory

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/ichi0g0y/spy-party/internal/localdb"
	"github.com/ichi0g0y/spy-party/internal/progression"
	"github.com/ichi0g0y/spy-party/internal/shared/logger"
	"go.uber.org/zap"
)

const (
	SpyWinXP      = 20
	CivilianWinXP = 10

	// BanPermanent is the banned_until value of a ban without deadline.
	BanPermanent int64 = -1
)

var (
	ErrUnknownItem     = errors.New("unknown item")
	ErrAlreadyRefunded = errors.New("purchase already refunded")
	ErrAlreadyOwned    = errors.New("pack already owned")
)

type Directory struct {
	now func() time.Time
}

func New() *Directory {
	return &Directory{now: time.Now}
}

// NewWithClock lets tests pin the current time.
func NewWithClock(now func() time.Time) *Directory {
	return &Directory{now: now}
}

// GetOrCreate returns the player, creating the row on first sight and refreshing the name.
func (d *Directory) GetOrCreate(userID int64, name string) (*localdb.Player, error) {
	if err := localdb.UpsertPlayer(userID, strings.TrimPrefix(name, "@")); err != nil {
		return nil, err
	}
	return localdb.GetPlayer(userID)
}

func (d *Directory) Get(userID int64) (*localdb.Player, error) {
	return localdb.GetPlayer(userID)
}

// FindByHandle resolves "@name" or a numeric id.
func (d *Directory) FindByHandle(handle string) (*localdb.Player, error) {
	if id, err := strconv.ParseInt(strings.TrimSpace(handle), 10, 64); err == nil {
		return localdb.GetPlayer(id)
	}
	return localdb.FindPlayerByUsername(handle)
}

// UpdateStats applies the round-close scoring rule.
func (d *Directory) UpdateStats(userID int64, isSpy, isWinner bool) error {
	xp, spyWins, civWins := 0, 0, 0
	if isWinner {
		if isSpy {
			xp, spyWins = SpyWinXP, 1
		} else {
			xp, civWins = CivilianWinXP, 1
		}
	}
	if err := localdb.AddPlayerResult(userID, xp, spyWins, civWins); err != nil {
		return err
	}
	logger.Debug("Player stats updated",
		zap.Int64("user_id", userID), zap.Bool("spy", isSpy), zap.Bool("winner", isWinner), zap.Int("xp", xp))
	return nil
}

// SetBan stores a ban deadline: 0 lifts, -1 is permanent, otherwise epoch seconds.
func (d *Directory) SetBan(userID int64, deadline int64) error {
	return localdb.SetPlayerBan(userID, deadline)
}

// Banned lists players with an active or permanent ban. Expired bans are cleared on the way.
func (d *Directory) Banned() ([]localdb.Player, error) {
	players, err := localdb.ListBannedPlayers()
	if err != nil {
		return nil, err
	}
	now := d.now().Unix()
	active := make([]localdb.Player, 0, len(players))
	for _, p := range players {
		if p.BannedUntil > 0 && p.BannedUntil <= now {
			if err := localdb.SetPlayerBan(p.UserID, 0); err != nil {
				logger.Warn("Failed to clear expired ban", zap.Int64("user_id", p.UserID), zap.Error(err))
			}
			continue
		}
		active = append(active, p)
	}
	return active, nil
}

// BanStatus reports whether userID is banned now. remaining is zero for permanent bans.
func (d *Directory) BanStatus(userID int64) (banned bool, permanent bool, remaining time.Duration, err error) {
	p, err := localdb.GetPlayer(userID)
	if errors.Is(err, localdb.ErrPlayerNotFound) {
		return false, false, 0, nil
	}
	if err != nil {
		return false, false, 0, err
	}
	switch {
	case p.BannedUntil == BanPermanent:
		return true, true, 0, nil
	case p.BannedUntil > 0:
		left := time.Unix(p.BannedUntil, 0).Sub(d.now())
		if left > 0 {
			return true, false, left, nil
		}
		// 期限切れのBANは解除
		if err := localdb.SetPlayerBan(userID, 0); err != nil {
			logger.Warn("Failed to clear expired ban", zap.Int64("user_id", userID), zap.Error(err))
		}
	}
	return false, false, 0, nil
}

// AddPremium extends premium by seconds from max(now, current deadline). Negative shortens it.
func (d *Directory) AddPremium(userID int64, seconds int64) error {
	p, err := localdb.GetPlayer(userID)
	if err != nil {
		return err
	}
	base := p.PremiumUntil
	now := d.now().Unix()
	if seconds > 0 && base < now {
		base = now
	}
	until := base + seconds
	if until < 0 {
		until = 0
	}
	return localdb.SetPlayerPremium(userID, until)
}

func (d *Directory) IsPremium(userID int64) bool {
	p, err := localdb.GetPlayer(userID)
	if err != nil {
		return false
	}
	return p.PremiumUntil > d.now().Unix()
}

func (d *Directory) AddPack(userID int64, pack string) error {
	p, err := localdb.GetPlayer(userID)
	if err != nil {
		return err
	}
	return localdb.SetPlayerPacks(userID, append(p.OwnedPacks, pack))
}

func (d *Directory) RemovePack(userID int64, pack string) error {
	p, err := localdb.GetPlayer(userID)
	if err != nil {
		return err
	}
	kept := make([]string, 0, len(p.OwnedPacks))
	for _, owned := range p.OwnedPacks {
		if owned != pack {
			kept = append(kept, owned)
		}
	}
	return localdb.SetPlayerPacks(userID, kept)
}

func (d *Directory) OwnsPack(userID int64, pack string) (bool, error) {
	p, err := localdb.GetPlayer(userID)
	if err != nil {
		return false, err
	}
	for _, owned := range p.OwnedPacks {
		if owned == pack {
			return true, nil
		}
	}
	return false, nil
}

// PackLocations returns the locations of a stored content pack.
func (d *Directory) PackLocations(pack string) ([]string, error) {
	cp, err := localdb.GetContentPack(pack)
	if err != nil {
		return nil, err
	}
	return cp.Locations, nil
}

// Profile is the view behind /profile.
type Profile struct {
	Player   localdb.Player
	Progress progression.Progress
	Premium  bool
}

func (d *Directory) Profile(userID int64) (*Profile, error) {
	p, err := localdb.GetPlayer(userID)
	if err != nil {
		return nil, err
	}
	return &Profile{
		Player:   *p,
		Progress: progression.ProgressFor(p.TotalXP),
		Premium:  p.PremiumUntil > d.now().Unix(),
	}, nil
}
