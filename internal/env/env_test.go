package env

import (
	"path/filepath"
	"testing"

	"github.com/ichi0g0y/spy-party/internal/localdb"
	"github.com/ichi0g0y/spy-party/internal/settings"
)

func TestParseIDList(t *testing.T) {
	ids := ParseIDList(" 10, x ,20,,-3")
	want := []int64{10, 20, -3}
	if len(ids) != len(want) {
		t.Fatalf("unexpected length: got=%d want=%d", len(ids), len(want))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("unexpected id at %d: got=%d want=%d", i, ids[i], want[i])
		}
	}
}

func TestLoadEnvPrefersProcessEnvOverSettings(t *testing.T) {
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

	sm := settings.NewSettingsManager(db)
	if err := sm.SetSetting("ROUND_SECONDS", "600"); err != nil {
		t.Fatalf("SetSetting failed: %v", err)
	}
	if err := sm.SetSetting("QUEUE_TIMEOUT_SECONDS", "90"); err != nil {
		t.Fatalf("SetSetting failed: %v", err)
	}
	t.Setenv("QUEUE_TIMEOUT_SECONDS", "30")
	t.Setenv("ADMIN_IDS", "1,2")

	LoadEnv()

	if Value.RoundSeconds != 600 {
		t.Fatalf("unexpected RoundSeconds: got=%d want=600", Value.RoundSeconds)
	}
	if Value.QueueTimeoutSeconds != 30 {
		t.Fatalf("unexpected QueueTimeoutSeconds: got=%d want=30", Value.QueueTimeoutSeconds)
	}
	if Value.TestRoundSeconds != 60 {
		t.Fatalf("unexpected TestRoundSeconds: got=%d want=60", Value.TestRoundSeconds)
	}
	if len(Value.AdminIDs) != 2 {
		t.Fatalf("unexpected AdminIDs: %v", Value.AdminIDs)
	}
}
