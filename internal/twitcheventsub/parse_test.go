package twitcheventsub

import (
	"testing"

	"github.com/ichi0g0y/spy-party/internal/transport"
)

func TestParseChat(t *testing.T) {
	cases := []struct {
		name string
		text string
		want transport.Event
	}{
		{"menu", "!spy", transport.Command{UserID: 12, Name: "alice", Verb: "menu"}},
		{"command", "!SPY Join ab12cd", transport.Command{UserID: 12, Name: "alice", Verb: "join", Args: []string{"ab12cd"}}},
		{"slash verb", "!spy /find", transport.Command{UserID: 12, Name: "alice", Verb: "find", Args: []string{}}},
		{"press", "!spy press v:AB12CD:7", transport.ButtonPress{UserID: 12, Name: "alice", Callback: "v:AB12CD:7"}},
		{"say", "!spy say  это   Луна?", transport.TextMessage{UserID: 12, Name: "alice", Text: "это   Луна?"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseChat("12", "alice", tc.text)
			if !ok {
				t.Fatalf("ParseChat(%q) was rejected", tc.text)
			}
			assertEvent(t, got, tc.want)
		})
	}
}

func TestParseChatIgnores(t *testing.T) {
	for _, text := range []string{"", "hello chat", "!spyglass", "!spy press", "!spy say   "} {
		if ev, ok := ParseChat("12", "alice", text); ok {
			t.Fatalf("ParseChat(%q) should be ignored, got %#v", text, ev)
		}
	}
	if _, ok := ParseChat("not-a-number", "alice", "!spy"); ok {
		t.Fatalf("non numeric chatter id should be ignored")
	}
	if _, ok := ParseChat("0", "alice", "!spy"); ok {
		t.Fatalf("zero chatter id should be ignored")
	}
}

func TestHandleChatRoutesSender(t *testing.T) {
	var (
		bound []int64
		got   []transport.Event
	)
	l := NewListener(Config{BotUserID: "99"},
		func(ev transport.Event) bool { got = append(got, ev); return true },
		func(userID int64) { bound = append(bound, userID) })

	l.handleChat("99", "bot", "!spy find")
	l.handleChat("12", "alice", "просто чат")
	l.handleChat("12", "alice", "!spy find")

	if len(got) != 1 || len(bound) != 1 || bound[0] != 12 {
		t.Fatalf("unexpected dispatch: events=%d bound=%v", len(got), bound)
	}
	cmd, ok := got[0].(transport.Command)
	if !ok || cmd.Verb != "find" {
		t.Fatalf("unexpected event: %#v", got[0])
	}
}

func assertEvent(t *testing.T, got, want transport.Event) {
	t.Helper()
	switch w := want.(type) {
	case transport.Command:
		g, ok := got.(transport.Command)
		if !ok || g.UserID != w.UserID || g.Name != w.Name || g.Verb != w.Verb || len(g.Args) != len(w.Args) {
			t.Fatalf("unexpected command: got=%#v want=%#v", got, want)
		}
		for i := range w.Args {
			if g.Args[i] != w.Args[i] {
				t.Fatalf("unexpected arg %d: got=%q want=%q", i, g.Args[i], w.Args[i])
			}
		}
	default:
		if got != want {
			t.Fatalf("unexpected event: got=%#v want=%#v", got, want)
		}
	}
}
