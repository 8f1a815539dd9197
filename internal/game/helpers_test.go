package game

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ichi0g0y/spy-party/internal/clock"
	"github.com/ichi0g0y/spy-party/internal/directory"
	"github.com/ichi0g0y/spy-party/internal/localdb"
	"github.com/ichi0g0y/spy-party/internal/transport"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	e    *Engine
	clk  *clock.Fake
	rec  *transport.Recorder
	snap *MemorySnapshot
}

// newHarness builds an engine with deterministic randomness: randIntn picks 0
// and shuffle keeps the order.
func newHarness(t *testing.T, stats Stats, mutate ...func(*Config)) *harness {
	t.Helper()
	cfg := DefaultConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	clk := clock.NewFake(testStart)
	rec := transport.NewRecorder()
	snap := &MemorySnapshot{}
	e := New(cfg, clk, rec, stats, snap)
	e.randIntn = func(int) int { return 0 }
	e.shuffle = func(int, func(i, j int)) {}
	return &harness{e: e, clk: clk, rec: rec, snap: snap}
}

// advance moves the fake clock in small steps and runs posted tasks after each.
func (h *harness) advance(d time.Duration) {
	const step = 250 * time.Millisecond
	h.e.runPending()
	for elapsed := time.Duration(0); elapsed < d; {
		s := min(step, d-elapsed)
		h.clk.Advance(s)
		h.e.runPending()
		elapsed += s
	}
}

// privateRoom creates a room owned by user 1 with users 2 and 3 joined.
func (h *harness) privateRoom(t *testing.T) *Room {
	t.Helper()
	r, err := h.e.CreateRoom(1, "u1")
	require.NoError(t, err)
	_, err = h.e.JoinRoom(2, "u2", r.Token)
	require.NoError(t, err)
	_, err = h.e.JoinRoom(3, "u3", r.Token)
	require.NoError(t, err)
	return r
}

// startWith starts the round and pins the spy and location.
func (h *harness) startWith(t *testing.T, r *Room, spy int64, location string) {
	t.Helper()
	require.NoError(t, h.e.StartRound(r.OwnerID))
	r.SpyID = &spy
	r.Location = location
}

func (h *harness) count(userID int64, text string) int {
	n := 0
	for _, d := range h.rec.To(userID) {
		if d.Text == text {
			n++
		}
	}
	return n
}

func (h *harness) countContaining(userID int64, substr string) int {
	n := 0
	for _, d := range h.rec.To(userID) {
		if strings.Contains(d.Text, substr) {
			n++
		}
	}
	return n
}

// directoryStats wires the engine to a real player directory on a temp database.
func directoryStats(t *testing.T, users ...int64) *directory.Directory {
	t.Helper()
	if localdb.DBClient != nil {
		_ = localdb.DBClient.Close()
		localdb.DBClient = nil
	}
	db, err := localdb.SetupDB(filepath.Join(t.TempDir(), "local.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
		localdb.DBClient = nil
	})

	dir := directory.NewWithClock(func() time.Time { return testStart })
	for _, id := range users {
		_, err := dir.GetOrCreate(id, "u")
		require.NoError(t, err)
	}
	return dir
}

func player(t *testing.T, userID int64) *localdb.Player {
	t.Helper()
	p, err := localdb.GetPlayer(userID)
	require.NoError(t, err)
	return p
}

type mockStats struct {
	mock.Mock
}

func (m *mockStats) UpdateStats(userID int64, isSpy, isWinner bool) error {
	args := m.Called(userID, isSpy, isWinner)
	return args.Error(0)
}

func (m *mockStats) PackLocations(pack string) ([]string, error) {
	args := m.Called(pack)
	locs, _ := args.Get(0).([]string)
	return locs, args.Error(1)
}
