package localdb

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ichi0g0y/spy-party/internal/shared/logger"
	"go.uber.org/zap"
)

var ErrPlayerNotFound = errors.New("player not found")

// Player is one row of the players table.
type Player struct {
	UserID       int64    `json:"user_id"`
	Username     string   `json:"username"`
	TotalXP      int      `json:"total_xp"`
	GamesPlayed  int      `json:"games_played"`
	SpyWins      int      `json:"spy_wins"`
	CivilianWins int      `json:"civilian_wins"`
	BannedUntil  int64    `json:"banned_until"`
	PremiumUntil int64    `json:"premium_until"`
	OwnedPacks   []string `json:"owned_packs"`
}

// SetupPlayersTable creates the players table
func SetupPlayersTable(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS players (
		user_id INTEGER PRIMARY KEY,
		username TEXT NOT NULL DEFAULT '',
		total_xp INTEGER NOT NULL DEFAULT 0,
		games_played INTEGER NOT NULL DEFAULT 0,
		spy_wins INTEGER NOT NULL DEFAULT 0,
		civilian_wins INTEGER NOT NULL DEFAULT 0,
		banned_until INTEGER NOT NULL DEFAULT 0,
		premium_until INTEGER NOT NULL DEFAULT 0,
		owned_packs TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		logger.Error("Failed to create players table", zap.Error(err))
		return fmt.Errorf("failed to create players table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_players_username ON players(username COLLATE NOCASE)`)
	if err != nil {
		logger.Error("Failed to create players username index", zap.Error(err))
		return fmt.Errorf("failed to create players username index: %w", err)
	}
	return nil
}

const playerColumns = `user_id, username, total_xp, games_played, spy_wins, civilian_wins, banned_until, premium_until, owned_packs`

func scanPlayer(row interface{ Scan(...any) error }) (*Player, error) {
	var p Player
	var packs string
	if err := row.Scan(&p.UserID, &p.Username, &p.TotalXP, &p.GamesPlayed, &p.SpyWins, &p.CivilianWins,
		&p.BannedUntil, &p.PremiumUntil, &packs); err != nil {
		return nil, err
	}
	p.OwnedPacks = SplitPacks(packs)
	return &p, nil
}

// SplitPacks decodes the comma-separated owned_packs column.
func SplitPacks(raw string) []string {
	packs := []string{}
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			packs = append(packs, part)
		}
	}
	return packs
}

// JoinPacks encodes packs sorted and de-duplicated.
func JoinPacks(packs []string) string {
	seen := make(map[string]struct{}, len(packs))
	out := make([]string, 0, len(packs))
	for _, p := range packs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Strings(out)
	return strings.Join(out, ",")
}

// GetPlayer returns the player or ErrPlayerNotFound.
func GetPlayer(userID int64) (*Player, error) {
	db := GetDB()
	if db == nil {
		return nil, ErrNotInitialized
	}

	p, err := scanPlayer(db.QueryRow(`SELECT `+playerColumns+` FROM players WHERE user_id = ?`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		logger.Error("Failed to get player", zap.Error(err), zap.Int64("user_id", userID))
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return p, nil
}

// FindPlayerByUsername matches a handle case-insensitively, without a leading '@'.
func FindPlayerByUsername(username string) (*Player, error) {
	db := GetDB()
	if db == nil {
		return nil, ErrNotInitialized
	}

	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	p, err := scanPlayer(db.QueryRow(`SELECT `+playerColumns+` FROM players WHERE username = ? COLLATE NOCASE ORDER BY updated_at DESC LIMIT 1`, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		logger.Error("Failed to find player", zap.Error(err), zap.String("username", username))
		return nil, fmt.Errorf("failed to find player: %w", err)
	}
	return p, nil
}

// UpsertPlayer creates the row or refreshes its username.
func UpsertPlayer(userID int64, username string) error {
	db := GetDB()
	if db == nil {
		return ErrNotInitialized
	}

	_, err := db.Exec(`INSERT INTO players (user_id, username) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			username = CASE WHEN excluded.username = '' THEN players.username ELSE excluded.username END,
			updated_at = CURRENT_TIMESTAMP`,
		userID, username)
	if err != nil {
		logger.Error("Failed to upsert player", zap.Error(err), zap.Int64("user_id", userID))
		return fmt.Errorf("failed to upsert player: %w", err)
	}
	return nil
}

// AddPlayerResult records one finished round for the player.
func AddPlayerResult(userID int64, xp, spyWins, civilianWins int) error {
	db := GetDB()
	if db == nil {
		return ErrNotInitialized
	}

	_, err := db.Exec(`UPDATE players SET
			games_played = games_played + 1,
			total_xp = total_xp + ?,
			spy_wins = spy_wins + ?,
			civilian_wins = civilian_wins + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ?`,
		xp, spyWins, civilianWins, userID)
	if err != nil {
		logger.Error("Failed to update player stats", zap.Error(err), zap.Int64("user_id", userID))
		return fmt.Errorf("failed to update player stats: %w", err)
	}
	return nil
}

func SetPlayerBan(userID int64, until int64) error {
	return updatePlayerColumn(userID, "banned_until", until)
}

func SetPlayerPremium(userID int64, until int64) error {
	return updatePlayerColumn(userID, "premium_until", until)
}

func SetPlayerPacks(userID int64, packs []string) error {
	return updatePlayerColumn(userID, "owned_packs", JoinPacks(packs))
}

func updatePlayerColumn(userID int64, column string, value any) error {
	db := GetDB()
	if db == nil {
		return ErrNotInitialized
	}

	res, err := db.Exec(`UPDATE players SET `+column+` = ?, updated_at = CURRENT_TIMESTAMP WHERE user_id = ?`, value, userID)
	if err != nil {
		logger.Error("Failed to update player", zap.Error(err), zap.String("column", column), zap.Int64("user_id", userID))
		return fmt.Errorf("failed to update player %s: %w", column, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

// ListBannedPlayers returns every player with a non-zero ban deadline.
func ListBannedPlayers() ([]Player, error) {
	db := GetDB()
	if db == nil {
		return []Player{}, ErrNotInitialized
	}

	rows, err := db.Query(`SELECT ` + playerColumns + ` FROM players WHERE banned_until != 0 ORDER BY user_id`)
	if err != nil {
		logger.Error("Failed to list banned players", zap.Error(err))
		return []Player{}, fmt.Errorf("failed to list banned players: %w", err)
	}
	defer rows.Close()

	players := []Player{}
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			logger.Error("Failed to scan player", zap.Error(err))
			continue
		}
		players = append(players, *p)
	}
	return players, rows.Err()
}
