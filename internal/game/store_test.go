package game

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRoundTrip(t *testing.T) {
	h := newHarness(t, nil)
	r := h.privateRoom(t)
	h.startWith(t, r, 2, "Банк")
	require.NoError(t, h.e.StartEarlyVote(3))
	require.NoError(t, h.e.CastEarlyVote(2, r.Token, false))
	r.Votes[1] = 2

	lobby, err := h.e.CreateRoom(10, "u10")
	require.NoError(t, err)
	for i := 0; i < 150; i++ {
		lobby.Messages = append(lobby.Messages, fmt.Sprintf("@u10: %d", i))
	}

	first, err := encodeSnapshot(h.e.rooms, 100)
	require.NoError(t, err)
	decoded, err := decodeSnapshot(first)
	require.NoError(t, err)
	second, err := encodeSnapshot(decoded, 100)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))

	got := decoded[lobby.Token]
	require.NotNil(t, got)
	assert.Len(t, got.Messages, 100)
	assert.Equal(t, "@u10: 50", got.Messages[0])
	assert.Len(t, lobby.Messages, 150)

	running := decoded[r.Token]
	require.NotNil(t, running)
	assert.Equal(t, PhaseRunning, running.Phase)
	assert.Equal(t, int64(2), *running.SpyID)
	assert.True(t, running.BannedFromVoting.Has(3))
	assert.True(t, running.Voters.Has(2))
	assert.Equal(t, int64(2), running.Votes[1])
	assert.Equal(t, Callsigns[0], running.Participants[0].Callsign)
}

func TestSnapshotSetsAreSorted(t *testing.T) {
	s := IDSet{}
	for _, id := range []int64{9, -1, 4} {
		s.Add(id)
	}
	data, err := s.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "[-1,4,9]", string(data))
}

func TestSaveIsThrottled(t *testing.T) {
	h := newHarness(t, nil)
	r, err := h.e.CreateRoom(1, "u1")
	require.NoError(t, err)

	participants := func() int {
		data, err := h.snap.ReadSnapshot()
		require.NoError(t, err)
		rooms, err := decodeSnapshot(data)
		require.NoError(t, err)
		return len(rooms[r.Token].Participants)
	}
	require.Equal(t, 1, participants())

	h.advance(time.Second)
	_, err = h.e.JoinRoom(2, "u2", r.Token)
	require.NoError(t, err)
	assert.Equal(t, 1, participants())

	h.advance(4 * time.Second)
	assert.Equal(t, 2, participants())
}

func TestFlushFailureKeepsState(t *testing.T) {
	h := newHarness(t, nil)
	h.snap.Err = errors.New("disk full")

	r, err := h.e.CreateRoom(1, "u1")
	require.NoError(t, err)
	assert.True(t, h.e.dirty)
	_, ok := h.e.Room(r.Token)
	assert.True(t, ok)

	h.snap.Err = nil
	h.e.Flush()
	assert.False(t, h.e.dirty)
}

func TestStartupRecoversInterruptedRounds(t *testing.T) {
	before := newHarness(t, nil)
	running := before.privateRoom(t)
	before.startWith(t, running, 2, "Банк")

	idle, err := before.e.CreateRoom(20, "u20")
	require.NoError(t, err)

	enqueueRange(t, before, 30, 32)
	before.e.processQueue()
	finished, ok := before.e.RoomOf(30)
	require.True(t, ok)
	before.e.finishRound(finished, OutcomeError, nil)
	require.Equal(t, PhaseFinished, finished.Phase)
	before.e.Flush()

	after := newHarness(t, nil)
	after.e.snap = before.snap
	after.e.Startup()

	r, ok := after.e.Room(running.Token)
	require.True(t, ok)
	assert.Equal(t, PhaseLobby, r.Phase)
	assert.Nil(t, r.SpyID)
	assert.True(t, after.rec.Contains(1, msgInterrupted))
	assert.True(t, after.rec.Contains(3, "Игра завершена из-за ошибки."))

	_, ok = after.e.Room(idle.Token)
	assert.True(t, ok)
	owner, ok := after.e.RoomOf(20)
	require.True(t, ok)
	assert.Equal(t, idle.Token, owner.Token)

	_, ok = after.e.Room(finished.Token)
	assert.False(t, ok)
	_, ok = after.e.RoomOf(30)
	assert.False(t, ok)
}

func TestStartupWithBrokenSnapshot(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.snap.WriteSnapshot([]byte("{not json")))
	h.e.Startup()
	assert.Equal(t, 0, h.e.RoomCount())
}

func TestFileSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "rooms.json")
	fs := FileSnapshot{Path: path}

	_, err := fs.ReadSnapshot()
	assert.True(t, errors.Is(err, os.ErrNotExist))

	require.NoError(t, fs.WriteSnapshot([]byte(`{"A":null}`)))
	data, err := fs.ReadSnapshot()
	require.NoError(t, err)
	assert.Equal(t, `{"A":null}`, string(data))
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestRecentRoomsAndLog(t *testing.T) {
	h := newHarness(t, nil)
	older, err := h.e.CreateRoom(1, "u1")
	require.NoError(t, err)
	h.clk.Advance(time.Second)
	newer, err := h.e.CreateRoom(2, "u2")
	require.NoError(t, err)

	recent := h.e.RecentRooms(10)
	require.Len(t, recent, 2)
	assert.Equal(t, newer.Token, recent[0].Token)
	assert.Equal(t, older.Token, recent[1].Token)
	assert.Len(t, h.e.RecentRooms(1), 1)

	require.NoError(t, h.e.Relay(1, "hello"))
	log, err := h.e.RoomLog(older.Token)
	require.NoError(t, err)
	assert.Equal(t, []string{"@u1: hello"}, log)

	_, err = h.e.RoomLog("missing")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestSweepExpiresIdleRooms(t *testing.T) {
	h := newHarness(t, nil)
	idle, err := h.e.CreateRoom(1, "u1")
	require.NoError(t, err)
	require.NoError(t, h.e.Relay(1, "hi"))

	r, err := h.e.CreateRoom(5, "u5")
	require.NoError(t, err)
	_, err = h.e.JoinRoom(6, "u6", r.Token)
	require.NoError(t, err)
	_, err = h.e.JoinRoom(7, "u7", r.Token)
	require.NoError(t, err)
	require.NoError(t, h.e.StartRound(5))

	h.clk.Advance(61 * time.Minute)
	h.e.sweep()

	_, ok := h.e.Room(idle.Token)
	assert.False(t, ok)
	_, ok = h.e.Room(r.Token)
	assert.True(t, ok)
	assert.Empty(t, h.e.limits)
}
