package localdb

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ichi0g0y/spy-party/internal/shared/logger"
	"go.uber.org/zap"
)

var ErrPackNotFound = errors.New("content pack not found")

// ContentPack is a named list of locations.
type ContentPack struct {
	Name       string    `json:"name"`
	Locations  []string  `json:"locations"`
	UploadedBy int64     `json:"uploaded_by"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SetupContentPacksTable creates the content_packs table
func SetupContentPacksTable(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS content_packs (
		name TEXT PRIMARY KEY,
		locations TEXT NOT NULL,
		uploaded_by INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		logger.Error("Failed to create content_packs table", zap.Error(err))
		return fmt.Errorf("failed to create content_packs table: %w", err)
	}
	return nil
}

// SaveContentPack creates or replaces a pack. Locations are stored one per line.
func SaveContentPack(name string, locations []string, uploadedBy int64) error {
	db := GetDB()
	if db == nil {
		return ErrNotInitialized
	}

	_, err := db.Exec(`INSERT INTO content_packs (name, locations, uploaded_by) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			locations = excluded.locations,
			uploaded_by = excluded.uploaded_by,
			updated_at = CURRENT_TIMESTAMP`,
		name, strings.Join(locations, "\n"), uploadedBy)
	if err != nil {
		logger.Error("Failed to save content pack", zap.Error(err), zap.String("pack", name))
		return fmt.Errorf("failed to save content pack: %w", err)
	}
	return nil
}

func GetContentPack(name string) (*ContentPack, error) {
	db := GetDB()
	if db == nil {
		return nil, ErrNotInitialized
	}

	var (
		pack ContentPack
		raw  string
	)
	err := db.QueryRow(`SELECT name, locations, uploaded_by, updated_at FROM content_packs WHERE name = ?`, name).
		Scan(&pack.Name, &raw, &pack.UploadedBy, &pack.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPackNotFound
	}
	if err != nil {
		logger.Error("Failed to get content pack", zap.Error(err), zap.String("pack", name))
		return nil, fmt.Errorf("failed to get content pack: %w", err)
	}
	pack.Locations = strings.Split(raw, "\n")
	return &pack, nil
}

// ListContentPackNames returns pack names in alphabetical order.
func ListContentPackNames() ([]string, error) {
	db := GetDB()
	if db == nil {
		return []string{}, ErrNotInitialized
	}

	rows, err := db.Query(`SELECT name FROM content_packs ORDER BY name`)
	if err != nil {
		logger.Error("Failed to list content packs", zap.Error(err))
		return []string{}, fmt.Errorf("failed to list content packs: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			logger.Error("Failed to scan content pack name", zap.Error(err))
			continue
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
