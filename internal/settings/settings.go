package settings

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ichi0g0y/spy-party/internal/shared/logger"
	"go.uber.org/zap"
)

type SettingType string

const (
	SettingTypeNormal SettingType = "normal"
	SettingTypeSecret SettingType = "secret"
)

type Setting struct {
	Key         string      `json:"key"`
	Value       string      `json:"value"`
	Type        SettingType `json:"type"`
	Required    bool        `json:"required"`
	Description string      `json:"description"`
	UpdatedAt   time.Time   `json:"updated_at"`
	HasValue    bool        `json:"has_value"`
}

type SettingsManager struct {
	db *sql.DB
}

func NewSettingsManager(db *sql.DB) *SettingsManager {
	return &SettingsManager{db: db}
}

// 設定の定義
var DefaultSettings = map[string]Setting{
	// サーバー設定
	"SERVER_PORT": {
		Key: "SERVER_PORT", Value: "8080", Type: SettingTypeNormal, Required: false,
		Description: "HTTP / websocket listen port",
	},
	"DEBUG_MODE": {
		Key: "DEBUG_MODE", Value: "false", Type: SettingTypeNormal, Required: false,
		Description: "Development logging",
	},
	"ADMIN_IDS": {
		Key: "ADMIN_IDS", Value: "", Type: SettingTypeNormal, Required: false,
		Description: "Comma separated administrator user ids",
	},
	"MAINTENANCE_MODE": {
		Key: "MAINTENANCE_MODE", Value: "false", Type: SettingTypeNormal, Required: false,
		Description: "Reject non-admin requests",
	},

	// ゲーム設定
	"ROUND_SECONDS": {
		Key: "ROUND_SECONDS", Value: "1140", Type: SettingTypeNormal, Required: false,
		Description: "Free chat length of a normal round",
	},
	"TEST_ROUND_SECONDS": {
		Key: "TEST_ROUND_SECONDS", Value: "60", Type: SettingTypeNormal, Required: false,
		Description: "Free chat length of a test round",
	},
	"QUEUE_TIMEOUT_SECONDS": {
		Key: "QUEUE_TIMEOUT_SECONDS", Value: "120", Type: SettingTypeNormal, Required: false,
		Description: "Matchmaking queue timeout",
	},
	"ROOM_EXPIRY_MINUTES": {
		Key: "ROOM_EXPIRY_MINUTES", Value: "60", Type: SettingTypeNormal, Required: false,
		Description: "Idle lobby expiry",
	},
	"SAVE_INTERVAL_SECONDS": {
		Key: "SAVE_INTERVAL_SECONDS", Value: "5", Type: SettingTypeNormal, Required: false,
		Description: "Minimum interval between room snapshots",
	},

	// Websocket
	"WS_JWT_SECRET": {
		Key: "WS_JWT_SECRET", Value: "", Type: SettingTypeSecret, Required: true,
		Description: "HS256 secret for websocket identity tokens",
	},

	// Twitch設定（機密情報）
	"CLIENT_ID": {
		Key: "CLIENT_ID", Value: "", Type: SettingTypeSecret, Required: false,
		Description: "Twitch API Client ID",
	},
	"CLIENT_SECRET": {
		Key: "CLIENT_SECRET", Value: "", Type: SettingTypeSecret, Required: false,
		Description: "Twitch API Client Secret",
	},
	"TWITCH_USER_ID": {
		Key: "TWITCH_USER_ID", Value: "", Type: SettingTypeSecret, Required: false,
		Description: "Twitch broadcaster whose chat carries !spy commands",
	},
}

type FeatureStatus struct {
	TwitchConfigured    bool     `json:"twitch_configured"`
	WebsocketConfigured bool     `json:"websocket_configured"`
	MissingSettings     []string `json:"missing_settings"`
	Warnings            []string `json:"warnings"`
}

func (sm *SettingsManager) CheckFeatureStatus() (*FeatureStatus, error) {
	status := &FeatureStatus{
		MissingSettings: []string{},
		Warnings:        []string{},
	}

	twitchComplete := true
	for _, key := range []string{"CLIENT_ID", "CLIENT_SECRET", "TWITCH_USER_ID"} {
		if val, err := sm.GetSetting(key); err != nil || val == "" {
			status.MissingSettings = append(status.MissingSettings, key)
			twitchComplete = false
		}
	}
	status.TwitchConfigured = twitchComplete

	if secret, err := sm.GetSetting("WS_JWT_SECRET"); err != nil || secret == "" {
		status.MissingSettings = append(status.MissingSettings, "WS_JWT_SECRET")
	} else {
		status.WebsocketConfigured = true
	}

	if m, _ := sm.GetSetting("MAINTENANCE_MODE"); m == "true" {
		status.Warnings = append(status.Warnings, "MAINTENANCE_MODE is enabled - only administrators are served")
	}
	if admins, _ := sm.GetSetting("ADMIN_IDS"); strings.TrimSpace(admins) == "" {
		status.Warnings = append(status.Warnings, "ADMIN_IDS is empty - administrative commands are unreachable")
	}

	return status, nil
}

// CRUD操作
func (sm *SettingsManager) GetSetting(key string) (string, error) {
	var value string
	err := sm.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		if defaultSetting, exists := DefaultSettings[key]; exists {
			return defaultSetting.Value, nil
		}
		return "", fmt.Errorf("setting not found: %s", key)
	}
	return value, err
}

func (sm *SettingsManager) SetSetting(key, value string) error {
	defaultSetting, exists := DefaultSettings[key]
	if !exists {
		return fmt.Errorf("unknown setting key: %s", key)
	}

	_, err := sm.db.Exec(`
		INSERT INTO settings (key, value, setting_type, is_required, description)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP`,
		key, value,
		string(defaultSetting.Type),
		defaultSetting.Required,
		defaultSetting.Description,
	)
	return err
}

func (sm *SettingsManager) GetAllSettings() (map[string]Setting, error) {
	rows, err := sm.db.Query(`
		SELECT key, value, setting_type, is_required, description, updated_at
		FROM settings ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := make(map[string]Setting)
	for rows.Next() {
		var s Setting
		var settingType string
		var description sql.NullString
		if err := rows.Scan(&s.Key, &s.Value, &settingType, &s.Required, &description, &s.UpdatedAt); err != nil {
			return nil, err
		}
		s.Type = SettingType(settingType)
		s.Description = description.String
		s.HasValue = s.Value != ""
		if s.Type == SettingTypeSecret {
			s.Value = ""
		}
		settings[s.Key] = s
	}

	// DBにない設定はデフォルト値で補完
	for key, defaultSetting := range DefaultSettings {
		if _, exists := settings[key]; !exists {
			settings[key] = defaultSetting
		}
	}

	return settings, nil
}

// 環境変数からの移行
func (sm *SettingsManager) MigrateFromEnv() error {
	migrated := 0

	for key := range DefaultSettings {
		var existingKey string
		if err := sm.db.QueryRow("SELECT key FROM settings WHERE key = ?", key).Scan(&existingKey); err == nil {
			continue
		}

		if envValue := os.Getenv(key); envValue != "" {
			if err := ValidateSetting(key, envValue); err != nil {
				logger.Warn("Skipping invalid setting from environment", zap.String("key", key), zap.Error(err))
				continue
			}
			if err := sm.SetSetting(key, envValue); err != nil {
				logger.Error("Failed to migrate setting", zap.String("key", key), zap.Error(err))
				return fmt.Errorf("failed to migrate %s: %w", key, err)
			}
			logger.Info("Migrated setting from environment", zap.String("key", key))
			migrated++
		}
	}

	if migrated > 0 {
		logger.Info("Migration completed", zap.Int("migrated_count", migrated))
	}
	return nil
}

// バリデーション
func ValidateSetting(key, value string) error {
	switch key {
	case "SERVER_PORT":
		if val, err := strconv.Atoi(value); err != nil || val < 1 || val > 65535 {
			return fmt.Errorf("must be integer between 1 and 65535")
		}
	case "ROUND_SECONDS":
		if val, err := strconv.Atoi(value); err != nil || val < 60 || val > 7200 {
			return fmt.Errorf("must be integer between 60 and 7200 seconds")
		}
	case "TEST_ROUND_SECONDS":
		if val, err := strconv.Atoi(value); err != nil || val < 15 || val > 600 {
			return fmt.Errorf("must be integer between 15 and 600 seconds")
		}
	case "QUEUE_TIMEOUT_SECONDS", "SAVE_INTERVAL_SECONDS", "ROOM_EXPIRY_MINUTES":
		if val, err := strconv.Atoi(value); err != nil || val < 1 {
			return fmt.Errorf("must be a positive integer")
		}
	case "ADMIN_IDS":
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if _, err := strconv.ParseInt(part, 10, 64); err != nil {
				return fmt.Errorf("invalid user id %q", part)
			}
		}
	case "DEBUG_MODE", "MAINTENANCE_MODE":
		if value != "true" && value != "false" {
			return fmt.Errorf("must be 'true' or 'false'")
		}
	}
	return nil
}

// 初期設定のセットアップ
func (sm *SettingsManager) InitializeDefaultSettings() error {
	for key, setting := range DefaultSettings {
		var existingKey string
		if err := sm.db.QueryRow("SELECT key FROM settings WHERE key = ?", key).Scan(&existingKey); err == nil {
			continue
		}

		if err := sm.SetSetting(key, setting.Value); err != nil {
			return fmt.Errorf("failed to initialize setting %s: %w", key, err)
		}
	}
	return nil
}
