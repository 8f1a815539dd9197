package router

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ichi0g0y/spy-party/internal/callback"
	"github.com/ichi0g0y/spy-party/internal/clock"
	"github.com/ichi0g0y/spy-party/internal/directory"
	"github.com/ichi0g0y/spy-party/internal/game"
	"github.com/ichi0g0y/spy-party/internal/localdb"
	"github.com/ichi0g0y/spy-party/internal/locale"
	"github.com/ichi0g0y/spy-party/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminID = 100

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	r   *Router
	e   *game.Engine
	dir *directory.Directory
	rec *transport.Recorder
}

func newFixture(t *testing.T) *fixture {
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

	cfg := game.DefaultConfig()
	cfg.AdminIDs = []int64{adminID}
	dir := directory.NewWithClock(func() time.Time { return testNow })
	rec := transport.NewRecorder()
	e := game.New(cfg, clock.NewFake(testNow), rec, dir, &game.MemorySnapshot{})
	r := New(e, dir)
	r.now = func() time.Time { return testNow }
	return &fixture{r: r, e: e, dir: dir, rec: rec}
}

func (f *fixture) text(userID int64, name, text string) {
	f.r.Handle(transport.TextMessage{UserID: userID, Name: name, Text: text})
}

func (f *fixture) last(t *testing.T, userID int64) transport.Delivery {
	t.Helper()
	d, ok := f.rec.Last(userID)
	require.True(t, ok, "no delivery for %d", userID)
	return d
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		verb string
		args []string
		ok   bool
	}{
		{"/join ABC123", "join", []string{"ABC123"}, true},
		{"/Join@spy_bot  abc", "join", []string{"abc"}, true},
		{"  /create", "create", []string{}, true},
		{"/", "", nil, false},
		{"hello", "", nil, false},
	}
	for _, tt := range tests {
		verb, args, ok := parseCommand(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.verb, verb, tt.in)
		if tt.ok {
			assert.Equal(t, len(tt.args), len(args), tt.in)
		}
	}
}

func TestCreateJoinLeaveViaText(t *testing.T) {
	f := newFixture(t)

	f.text(1, "alice", "/create")
	room, ok := f.e.RoomOf(1)
	require.True(t, ok)
	assert.Contains(t, f.last(t, 1).Text, room.Token)

	f.text(2, "bob", "/join@spy_bot "+strings.ToLower(room.Token))
	joined, ok := f.e.RoomOf(2)
	require.True(t, ok)
	assert.Equal(t, room.Token, joined.Token)

	f.text(3, "carol", "/join")
	assert.Equal(t, msgUsageJoin, f.last(t, 3).Text)

	f.text(3, "carol", "/join NOPE42")
	assert.Equal(t, game.Notice(game.ErrRoomNotFound), f.last(t, 3).Text)

	f.text(2, "bob", "/leave")
	_, ok = f.e.RoomOf(2)
	assert.False(t, ok)

	// 検索中の /leave は検索を取り消す
	f.text(4, "dave", "/find")
	require.True(t, f.e.InQueue(4))
	f.text(4, "dave", "/leave")
	assert.False(t, f.e.InQueue(4))
}

func TestFreeTextOutsideRoomGetsLocalizedHint(t *testing.T) {
	f := newFixture(t)

	f.text(1, "alice", "привет")
	assert.Equal(t, msgHintRU, f.last(t, 1).Text)

	f.text(2, "bob", "hello")
	assert.Equal(t, msgHintEN, f.last(t, 2).Text)

	// 判定できない文は前回のロケールを使う
	f.text(2, "bob", "https://example.com/x")
	assert.Equal(t, msgHintEN, f.last(t, 2).Text)

	f.text(2, "bob", "/help")
	assert.Equal(t, msgMenuEN, f.last(t, 2).Text)
}

func TestFreeTextInsideRoomIsRelayed(t *testing.T) {
	f := newFixture(t)
	f.text(1, "alice", "/create")
	room, _ := f.e.RoomOf(1)
	f.text(2, "bob", "/join "+room.Token)

	f.text(2, "bob", "всем привет")
	assert.Equal(t, "@bob: всем привет", f.last(t, 1).Text)

	f.r.Handle(transport.Media{UserID: 2, Name: "bob", Kind: "sticker"})
	assert.NotEqual(t, "@bob: всем привет", f.last(t, 2).Text)
}

func TestBanGate(t *testing.T) {
	f := newFixture(t)
	f.text(2, "bob", "/create")
	require.Equal(t, 1, f.e.RoomCount())

	f.r.Handle(transport.Command{UserID: adminID, Name: "admin", Verb: "ban", Args: []string{"@bob", "2h"}})
	assert.Equal(t, fmtBanned("@bob", false, testNow.Add(2*time.Hour)), f.last(t, adminID).Text)
	// BAN されたオーナーはロビーから外れる
	assert.Equal(t, 0, f.e.RoomCount())

	f.text(2, "bob", "/create")
	assert.Equal(t, "Вы заблокированы. Осталось: 2ч", f.last(t, 2).Text)
	assert.Equal(t, 0, f.e.RoomCount())

	f.r.SetLocale(2, locale.EN)
	f.text(2, "bob", "/create")
	assert.Equal(t, "You are banned. Time left: 2h", f.last(t, 2).Text)

	f.r.Handle(transport.Command{UserID: adminID, Name: "admin", Verb: "unban", Args: []string{"2"}})
	assert.Equal(t, fmtUnbanned("@bob"), f.last(t, adminID).Text)
	f.text(2, "bob", "/create")
	assert.Equal(t, 1, f.e.RoomCount())
}

func TestBanByReplyPermanent(t *testing.T) {
	f := newFixture(t)
	f.text(5, "eve", "hi")

	f.r.Handle(transport.Command{UserID: adminID, Name: "admin", Verb: "ban", Args: []string{"навсегда"}, ReplyTo: 5})
	assert.Equal(t, fmtBanned("@eve", true, time.Time{}), f.last(t, adminID).Text)

	f.text(5, "eve", "привет")
	assert.Equal(t, msgBannedForeverRU, f.last(t, 5).Text)

	f.r.Handle(transport.Command{UserID: adminID, Name: "admin", Verb: "ban", Args: []string{"@eve", "soon"}})
	assert.Equal(t, msgBadDuration, f.last(t, adminID).Text)

	f.r.Handle(transport.Command{UserID: adminID, Name: "admin", Verb: "ban", Args: []string{"@ghost", "1d"}})
	assert.Equal(t, msgPlayerNotFound, f.last(t, adminID).Text)
}

func TestParseBanDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		perm bool
		err  bool
	}{
		{"30m", 30 * time.Minute, false, false},
		{"12h", 12 * time.Hour, false, false},
		{"7d", 7 * 24 * time.Hour, false, false},
		{"3д", 3 * 24 * time.Hour, false, false},
		{"5ч", 5 * time.Hour, false, false},
		{"PERM", 0, true, false},
		{"0m", 0, false, true},
		{"m", 0, false, true},
		{"10w", 0, false, true},
	}
	for _, tt := range tests {
		d, perm, err := parseBanDuration(tt.in)
		if tt.err {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, d, tt.in)
		assert.Equal(t, tt.perm, perm, tt.in)
	}
}

func TestFormatRemaining(t *testing.T) {
	assert.Equal(t, "1д 2ч 3м", formatRemaining(26*time.Hour+2*time.Minute+30*time.Second, locale.RU))
	assert.Equal(t, "1d 3m", formatRemaining(24*time.Hour+3*time.Minute, locale.EN))
	assert.Equal(t, "1м", formatRemaining(10*time.Second, locale.RU))
	assert.Equal(t, "0m", formatRemaining(0, locale.EN))
}

func TestMaintenanceGate(t *testing.T) {
	f := newFixture(t)
	f.text(1, "alice", "/create")

	f.r.Handle(transport.Command{UserID: adminID, Name: "admin", Verb: "maintenance", Args: []string{"on"}})
	assert.Equal(t, msgMaintenanceOnOK, f.last(t, adminID).Text)
	assert.Equal(t, 0, f.e.RoomCount())

	f.text(1, "alice", "/create")
	assert.Equal(t, msgMaintenanceRU, f.last(t, 1).Text)
	assert.Equal(t, 0, f.e.RoomCount())

	// 管理者はゲートを通る
	f.text(adminID, "admin", "/create")
	assert.Equal(t, 1, f.e.RoomCount())

	f.r.Handle(transport.Command{UserID: adminID, Name: "admin", Verb: "maintenance", Args: []string{"off"}})
	f.text(2, "bob", "/find")
	assert.True(t, f.e.InQueue(2))
}

func TestMaintenanceSchedule(t *testing.T) {
	f := newFixture(t)

	f.r.Handle(transport.Command{UserID: adminID, Verb: "maintenance", Args: []string{"schedule"}})
	at, ok := f.e.MaintenanceScheduledAt()
	require.True(t, ok)
	assert.Equal(t, testNow.Add(10*time.Minute), at)
	assert.Equal(t, fmtMaintenanceScheduled(at), f.last(t, adminID).Text)

	f.r.Handle(transport.Command{UserID: adminID, Verb: "maintenance", Args: []string{"status"}})
	assert.Equal(t, fmtMaintenanceScheduled(at), f.last(t, adminID).Text)

	f.r.Handle(transport.Command{UserID: adminID, Verb: "maintenance", Args: []string{"schedule", "x"}})
	assert.Equal(t, msgUsageMaintenance, f.last(t, adminID).Text)
}

func TestAdminVerbsRequireAdmin(t *testing.T) {
	f := newFixture(t)
	f.text(1, "alice", "/rooms")
	assert.Equal(t, msgAdminOnly, f.last(t, 1).Text)

	f.text(1, "alice", "/dance")
	assert.Equal(t, msgHintRU, f.last(t, 1).Text)
}

func TestRoomsAndLog(t *testing.T) {
	f := newFixture(t)

	f.text(adminID, "admin", "/rooms")
	assert.Equal(t, msgNoRooms, f.last(t, adminID).Text)

	f.text(1, "alice", "/create")
	room, _ := f.e.RoomOf(1)
	f.text(2, "bob", "/join "+room.Token)

	f.text(adminID, "admin", "/rooms")
	out := f.last(t, adminID).Text
	assert.Contains(t, out, room.Token)
	assert.Contains(t, out, "игроков 2")

	f.text(adminID, "admin", "/log "+room.Token)
	assert.Equal(t, msgEmptyLog, f.last(t, adminID).Text)

	f.text(2, "bob", "раз два")
	f.text(adminID, "admin", "/log "+room.Token)
	assert.Contains(t, f.last(t, adminID).Text, "@bob: раз два")

	f.text(adminID, "admin", "/log NOPE")
	assert.Equal(t, game.Notice(game.ErrRoomNotFound), f.last(t, adminID).Text)
}

func TestShopPurchaseAndRefund(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.dir.SavePack("space", []string{"Луна", "Марс", "МКС"}, adminID))

	f.text(1, "alice", "/shop")
	shop := f.last(t, 1)
	assert.Equal(t, msgShopHeader, shop.Text)
	require.Len(t, shop.Buttons, 2)
	assert.Equal(t, callback.Buy(directory.ItemPremium30d), shop.Buttons[0][0].Callback)
	assert.Equal(t, callback.Buy("pack_space"), shop.Buttons[1][0].Callback)

	f.r.Handle(transport.ButtonPress{UserID: 1, Name: "alice", Callback: shop.Buttons[1][0].Callback})
	assert.True(t, strings.HasPrefix(f.last(t, 1).Text, "Покупка #1 оформлена"))
	owned, err := f.dir.OwnsPack(1, "space")
	require.NoError(t, err)
	assert.True(t, owned)

	f.r.Handle(transport.ButtonPress{UserID: 1, Name: "alice", Callback: callback.Buy("pack_missing")})
	assert.Equal(t, msgPackNotFound, f.last(t, 1).Text)

	f.text(adminID, "admin", "/purchases @alice")
	assert.Contains(t, f.last(t, adminID).Text, "#1 | 1 | pack_space")

	f.text(adminID, "admin", "/refund 1")
	assert.Equal(t, fmtRefunded(1, "pack_space", 1), f.last(t, adminID).Text)
	owned, err = f.dir.OwnsPack(1, "space")
	require.NoError(t, err)
	assert.False(t, owned)

	f.text(adminID, "admin", "/refund #1")
	assert.Equal(t, msgAlreadyRefunded, f.last(t, adminID).Text)

	f.text(adminID, "admin", "/refund 99")
	assert.Equal(t, msgPurchaseNotFound, f.last(t, adminID).Text)
}

func TestPackCommandRequiresOwnership(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.dir.SavePack("space", []string{"Луна", "Марс", "МКС"}, adminID))
	f.text(1, "alice", "/create")
	room, _ := f.e.RoomOf(1)

	f.text(1, "alice", "/pack space")
	offer := f.last(t, 1)
	assert.Equal(t, msgPackNotOwned, offer.Text)
	require.Len(t, offer.Buttons, 1)
	assert.Equal(t, callback.Buy("pack_space"), offer.Buttons[0][0].Callback)
	assert.Empty(t, room.ContentPack)

	f.text(1, "alice", "/pack nothing")
	assert.Equal(t, msgPackNotFound, f.last(t, 1).Text)

	require.NoError(t, f.dir.AddPack(1, "space"))
	f.text(1, "alice", "/pack SPACE")
	assert.Equal(t, "space", room.ContentPack)

	f.text(1, "alice", "/pack")
	assert.Empty(t, room.ContentPack)
}

func TestProfile(t *testing.T) {
	f := newFixture(t)
	f.text(1, "alice", "hi")
	require.NoError(t, f.dir.UpdateStats(1, true, true))
	require.NoError(t, f.dir.AddPremium(1, 3600))

	f.text(1, "alice", "/profile")
	out := f.last(t, 1).Text
	assert.Contains(t, out, "Профиль @alice")
	assert.Contains(t, out, "Уровень: 1")
	assert.Contains(t, out, "Побед за шпиона: 1")
	assert.Contains(t, out, "Премиум до 01.03.2026 UTC")
}

func TestBadCallback(t *testing.T) {
	f := newFixture(t)
	f.r.Handle(transport.ButtonPress{UserID: 1, Name: "alice", Callback: "vote:ROOM:abc"})
	assert.Equal(t, msgBadCallback, f.last(t, 1).Text)

	f.r.Handle(transport.ButtonPress{UserID: 1, Name: "alice", Callback: callback.Vote("ROOM", 2)})
	assert.Equal(t, game.Notice(game.ErrRoomNotFound), f.last(t, 1).Text)
}

func TestIgnoresNonPositiveSenders(t *testing.T) {
	f := newFixture(t)
	f.text(0, "nobody", "/create")
	f.text(-1, "bot", "/create")
	assert.Empty(t, f.rec.All())
	assert.Equal(t, 0, f.e.RoomCount())
}

func TestTestRoomCommand(t *testing.T) {
	f := newFixture(t)
	f.text(adminID, "admin", "/testroom")
	assert.Equal(t, msgUsageTestRoom, f.last(t, adminID).Text)

	f.text(adminID, "admin", "/testroom me")
	room, ok := f.e.RoomOf(adminID)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(room.Token, "test_"))
	require.NotNil(t, room.SpyID)
	assert.Equal(t, int64(adminID), *room.SpyID)
}

func TestDocumentUploadRunsOnLoop(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.e.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	body := []byte("Луна\r\nМарс\n\nлуна\n")
	require.True(t, f.r.Dispatch(transport.Document{
		UserID:   adminID,
		Name:     "admin",
		FileName: "Space.txt",
		Fetch:    func(context.Context) ([]byte, error) { return body, nil },
	}))
	require.Eventually(t, func() bool {
		return f.rec.Contains(adminID, fmtPackUploaded("space", 2))
	}, 2*time.Second, 10*time.Millisecond)

	locs, err := f.dir.PackLocations("space")
	require.NoError(t, err)
	assert.Equal(t, []string{"Луна", "Марс"}, locs)

	require.True(t, f.r.Dispatch(transport.Document{
		UserID:   adminID,
		FileName: "broken.txt",
		Fetch:    func(context.Context) ([]byte, error) { return nil, errors.New("timeout") },
	}))
	require.Eventually(t, func() bool {
		return f.rec.Contains(adminID, msgPackFetchFailed)
	}, 2*time.Second, 10*time.Millisecond)

	require.True(t, f.r.Dispatch(transport.Document{UserID: 1, Name: "alice", FileName: "x.txt"}))
	require.Eventually(t, func() bool {
		return f.rec.Contains(1, msgPackUploadAdmin)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestShopHidesOwnedPackAndRejectsRebuy(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.dir.SavePack("space", []string{"Луна", "Марс", "МКС"}, adminID))

	f.text(1, "alice", "/shop")
	require.Len(t, f.last(t, 1).Buttons, 2)

	f.r.Handle(transport.ButtonPress{UserID: 1, Name: "alice", Callback: callback.Buy("pack_space")})
	assert.Equal(t, fmtPurchased("pack_space", 1), f.last(t, 1).Text)

	// 古いボタンからの再購入は記録されない
	f.r.Handle(transport.ButtonPress{UserID: 1, Name: "alice", Callback: callback.Buy("pack_space")})
	assert.Equal(t, msgAlreadyOwned, f.last(t, 1).Text)
	list, err := f.dir.Purchases(1, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	f.text(1, "alice", "/shop")
	shop := f.last(t, 1)
	require.Len(t, shop.Buttons, 1)
	assert.Equal(t, callback.Buy(directory.ItemPremium30d), shop.Buttons[0][0].Callback)
	assert.False(t, strings.HasPrefix(shop.Buttons[0][0].Label, "Продлить: "))

	f.r.Handle(transport.ButtonPress{UserID: 1, Name: "alice", Callback: callback.Buy(directory.ItemPremium30d)})
	f.text(1, "alice", "/shop")
	shop = f.last(t, 1)
	require.Len(t, shop.Buttons, 1)
	assert.Equal(t, "Продлить: "+buyButton(directory.ItemPremium30d).Label, shop.Buttons[0][0].Label)

	// 返金すればまた買える
	f.text(adminID, "admin", "/refund 1")
	f.text(1, "alice", "/shop")
	assert.Len(t, f.last(t, 1).Buttons, 2)
}

func TestBansListsActiveBans(t *testing.T) {
	f := newFixture(t)
	f.r.Handle(transport.Command{UserID: adminID, Name: "admin", Verb: "bans"})
	assert.Equal(t, msgNoBans, f.last(t, adminID).Text)

	f.text(2, "bob", "/start")
	f.text(3, "eve", "/start")
	f.r.Handle(transport.Command{UserID: adminID, Name: "admin", Verb: "ban", Args: []string{"@bob", "2h"}})
	f.r.Handle(transport.Command{UserID: adminID, Name: "admin", Verb: "ban", Args: []string{"@eve", "навсегда"}})

	f.r.Handle(transport.Command{UserID: adminID, Name: "admin", Verb: "bans"})
	want := "Заблокированы (2):\n" +
		"@bob | 2 | до 01.03.2026 14:00 UTC\n" +
		"@eve | 3 | навсегда"
	assert.Equal(t, want, f.last(t, adminID).Text)

	// 一般ユーザーには使えない
	f.r.Handle(transport.Command{UserID: 1, Name: "alice", Verb: "bans"})
	assert.Equal(t, msgAdminOnly, f.last(t, 1).Text)
}
