package env

import (
	"os"
	"strconv"
	"strings"

	"github.com/ichi0g0y/spy-party/internal/localdb"
	"github.com/ichi0g0y/spy-party/internal/settings"
	"github.com/ichi0g0y/spy-party/internal/shared/logger"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type EnvValue struct {
	ServerPort      int
	DebugMode       bool
	AdminIDs        []int64
	MaintenanceMode bool

	RoundSeconds        int
	TestRoundSeconds    int
	QueueTimeoutSeconds int
	RoomExpiryMinutes   int
	SaveIntervalSeconds int

	WSJWTSecret  *string
	ClientID     *string
	ClientSecret *string
	TwitchUserID *string
}

var Value EnvValue

// LoadEnv must run after DB initialization: settings table first, process env overrides.
func LoadEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("Failed to load .env", zap.Error(err))
	}

	lookup := func(key string) string {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v
		}
		if db := localdb.GetDB(); db != nil {
			if v, err := settings.NewSettingsManager(db).GetSetting(key); err == nil {
				return v
			}
		}
		if s, ok := settings.DefaultSettings[key]; ok {
			return s.Value
		}
		return ""
	}

	Value = EnvValue{
		ServerPort:          atoi(lookup("SERVER_PORT"), 8080),
		DebugMode:           lookup("DEBUG_MODE") == "true",
		AdminIDs:            ParseIDList(lookup("ADMIN_IDS")),
		MaintenanceMode:     lookup("MAINTENANCE_MODE") == "true",
		RoundSeconds:        atoi(lookup("ROUND_SECONDS"), 1140),
		TestRoundSeconds:    atoi(lookup("TEST_ROUND_SECONDS"), 60),
		QueueTimeoutSeconds: atoi(lookup("QUEUE_TIMEOUT_SECONDS"), 120),
		RoomExpiryMinutes:   atoi(lookup("ROOM_EXPIRY_MINUTES"), 60),
		SaveIntervalSeconds: atoi(lookup("SAVE_INTERVAL_SECONDS"), 5),
		WSJWTSecret:         optional(lookup("WS_JWT_SECRET")),
		ClientID:            optional(lookup("CLIENT_ID")),
		ClientSecret:        optional(lookup("CLIENT_SECRET")),
		TwitchUserID:        optional(lookup("TWITCH_USER_ID")),
	}
}

// ParseIDList parses "1, 2,3" into user ids, skipping junk.
func ParseIDList(raw string) []int64 {
	ids := []int64{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			logger.Warn("Ignoring invalid admin id", zap.String("value", part))
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func atoi(s string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
