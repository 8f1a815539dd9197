package directory

import (
	"errors"
	"regexp"
	"strings"

	"github.com/ichi0g0y/spy-party/internal/localdb"
	"github.com/ichi0g0y/spy-party/internal/shared/logger"
	"go.uber.org/zap"
)

var (
	ErrBadPackName = errors.New("invalid pack name")
	ErrEmptyPack   = errors.New("pack has no locations")

	packNameRegex = regexp.MustCompile(`^[a-z0-9_-]{1,32}$`)
)

// ParsePackFile reads one location per line. Blank lines and duplicates are dropped.
func ParsePackFile(data []byte) []string {
	seen := map[string]struct{}{}
	locations := []string{}
	for _, line := range strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(line, "\ufeff"))
		if line == "" {
			continue
		}
		key := strings.ToLower(line)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		locations = append(locations, line)
	}
	return locations
}

// PackNameFromFile turns "Space.txt" into "space".
func PackNameFromFile(fileName string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(fileName))
	name = strings.TrimSuffix(name, ".txt")
	if !packNameRegex.MatchString(name) {
		return "", ErrBadPackName
	}
	return name, nil
}

// SavePack stores an uploaded pack, replacing one with the same name.
func (d *Directory) SavePack(name string, locations []string, uploadedBy int64) error {
	if !packNameRegex.MatchString(name) {
		return ErrBadPackName
	}
	if len(locations) == 0 {
		return ErrEmptyPack
	}
	if err := localdb.SaveContentPack(name, locations, uploadedBy); err != nil {
		return err
	}
	logger.Info("Content pack saved", zap.String("pack", name), zap.Int("locations", len(locations)), zap.Int64("uploaded_by", uploadedBy))
	return nil
}

func (d *Directory) Purchases(userID int64, limit int) ([]localdb.Purchase, error) {
	return localdb.ListPurchases(userID, limit)
}
