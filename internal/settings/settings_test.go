package settings

import (
	"path/filepath"
	"testing"

	"github.com/ichi0g0y/spy-party/internal/localdb"
)

func newTestManager(t *testing.T) *SettingsManager {
	t.Helper()
	if localdb.DBClient != nil {
		_ = localdb.DBClient.Close()
		localdb.DBClient = nil
	}
	db, err := localdb.SetupDB(filepath.Join(t.TempDir(), "local.db"))
	if err != nil {
		t.Fatalf("SetupDB failed: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
		localdb.DBClient = nil
	})
	return NewSettingsManager(db)
}

func TestSettingRoundTrip(t *testing.T) {
	sm := newTestManager(t)

	got, err := sm.GetSetting("ROUND_SECONDS")
	if err != nil {
		t.Fatalf("GetSetting failed: %v", err)
	}
	if got != "1140" {
		t.Fatalf("unexpected default: got=%q want=%q", got, "1140")
	}

	if err := sm.SetSetting("MAINTENANCE_MODE", "true"); err != nil {
		t.Fatalf("SetSetting failed: %v", err)
	}
	if got, _ := sm.GetSetting("MAINTENANCE_MODE"); got != "true" {
		t.Fatalf("unexpected value: got=%q want=%q", got, "true")
	}

	if err := sm.SetSetting("NOT_A_KEY", "1"); err == nil {
		t.Fatalf("unknown key should be rejected")
	}
	if _, err := sm.GetSetting("NOT_A_KEY"); err == nil {
		t.Fatalf("unknown key should not resolve")
	}
}

func TestSecretsAreMasked(t *testing.T) {
	sm := newTestManager(t)

	if err := sm.SetSetting("WS_JWT_SECRET", "s3cret"); err != nil {
		t.Fatalf("SetSetting failed: %v", err)
	}
	all, err := sm.GetAllSettings()
	if err != nil {
		t.Fatalf("GetAllSettings failed: %v", err)
	}
	s := all["WS_JWT_SECRET"]
	if s.Value != "" || !s.HasValue {
		t.Fatalf("secret should be masked but present: %+v", s)
	}
	if _, ok := all["ADMIN_IDS"]; !ok {
		t.Fatalf("defaults should be merged into GetAllSettings")
	}
}

func TestFeatureStatus(t *testing.T) {
	sm := newTestManager(t)

	status, err := sm.CheckFeatureStatus()
	if err != nil {
		t.Fatalf("CheckFeatureStatus failed: %v", err)
	}
	if status.TwitchConfigured || status.WebsocketConfigured {
		t.Fatalf("nothing should be configured yet: %+v", status)
	}
	if len(status.Warnings) != 1 {
		t.Fatalf("unexpected warnings: %v", status.Warnings)
	}

	for key, value := range map[string]string{
		"CLIENT_ID": "id", "CLIENT_SECRET": "secret", "TWITCH_USER_ID": "1", "WS_JWT_SECRET": "x", "ADMIN_IDS": "1",
	} {
		if err := sm.SetSetting(key, value); err != nil {
			t.Fatalf("SetSetting(%s) failed: %v", key, err)
		}
	}
	status, _ = sm.CheckFeatureStatus()
	if !status.TwitchConfigured || !status.WebsocketConfigured || len(status.MissingSettings) != 0 || len(status.Warnings) != 0 {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestValidateSetting(t *testing.T) {
	cases := []struct {
		key, value string
		ok         bool
	}{
		{"SERVER_PORT", "8080", true},
		{"SERVER_PORT", "70000", false},
		{"ROUND_SECONDS", "30", false},
		{"TEST_ROUND_SECONDS", "60", true},
		{"ADMIN_IDS", "1, 2", true},
		{"ADMIN_IDS", "1,bob", false},
		{"DEBUG_MODE", "yes", false},
		{"QUEUE_TIMEOUT_SECONDS", "0", false},
	}
	for _, tc := range cases {
		err := ValidateSetting(tc.key, tc.value)
		if (err == nil) != tc.ok {
			t.Fatalf("ValidateSetting(%s, %q): got err=%v want ok=%v", tc.key, tc.value, err, tc.ok)
		}
	}
}
