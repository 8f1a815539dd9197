package localdb

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/ichi0g0y/spy-party/internal/shared/logger"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

var DBClient *sql.DB

var ErrNotInitialized = errors.New("database not initialized")

type Token struct {
	AccessToken  string
	RefreshToken string
	Scope        string
	ExpiresAt    int64
}

func SetupDB(dbPath string) (*sql.DB, error) {
	if DBClient != nil {
		return DBClient, nil
	}

	// WALモードとBusy Timeoutを設定
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	// SQLiteは単一ライターなので接続プールを1に制限
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS tokens (
		id INTEGER PRIMARY KEY,
		access_token TEXT,
		refresh_token TEXT,
		scope TEXT,
		expires_at INTEGER
	)`)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		setting_type TEXT NOT NULL DEFAULT 'normal',
		is_required BOOLEAN NOT NULL DEFAULT false,
		description TEXT,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return nil, err
	}

	if err := SetupPlayersTable(db); err != nil {
		return nil, err
	}
	if err := SetupPurchasesTable(db); err != nil {
		return nil, err
	}
	if err := SetupContentPacksTable(db); err != nil {
		return nil, err
	}

	DBClient = db
	return db, nil
}

// GetDB は現在のデータベース接続を返します
func GetDB() *sql.DB {
	return DBClient
}

// SaveToken replaces the stored Twitch token.
func SaveToken(token Token) error {
	db := GetDB()
	if db == nil {
		return ErrNotInitialized
	}

	_, err := db.Exec(`INSERT OR REPLACE INTO tokens (id, access_token, refresh_token, scope, expires_at) VALUES (1, ?, ?, ?, ?)`,
		token.AccessToken, token.RefreshToken, token.Scope, token.ExpiresAt)
	if err != nil {
		logger.Error("Failed to save token", zap.Error(err))
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// GetLatestToken returns the stored token or sql.ErrNoRows.
func GetLatestToken() (Token, error) {
	db := GetDB()
	if db == nil {
		return Token{}, ErrNotInitialized
	}

	var t Token
	err := db.QueryRow(`SELECT access_token, refresh_token, scope, expires_at FROM tokens WHERE id = 1`).
		Scan(&t.AccessToken, &t.RefreshToken, &t.Scope, &t.ExpiresAt)
	if err != nil {
		return Token{}, err
	}
	return t, nil
}

// DeleteAllTokens deletes all tokens from the database
// This is used when OAuth scopes are updated and re-authentication is required
func DeleteAllTokens() error {
	db := GetDB()
	if db == nil {
		return ErrNotInitialized
	}

	if _, err := db.Exec("DELETE FROM tokens"); err != nil {
		logger.Error("Failed to delete tokens", zap.Error(err))
		return fmt.Errorf("failed to delete tokens: %w", err)
	}

	logger.Info("All tokens have been deleted (scope update requires re-authentication)")
	return nil
}
