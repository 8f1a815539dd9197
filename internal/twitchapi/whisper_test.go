package twitchapi

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ichi0g0y/spy-party/internal/transport"
	"golang.org/x/time/rate"
)

type sentWhisper struct {
	from, to, text string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentWhisper
	fail error
}

func (f *fakeSender) SendWhisper(ctx context.Context, from, to, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentWhisper{from: from, to: to, text: message})
	return f.fail
}

func (f *fakeSender) all() []sentWhisper {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentWhisper(nil), f.sent...)
}

func waitSent(t *testing.T, f *fakeSender, n int) []sentWhisper {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := f.all(); len(got) >= n {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d whispers, got %d", n, len(f.all()))
	return nil
}

func TestWhisperTransportDelivers(t *testing.T) {
	sender := &fakeSender{}
	wt := newWhisperTransport(sender, "999", rate.NewLimiter(rate.Inf, 1))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go wt.Run(ctx)

	if err := wt.Deliver(42, "Раунд начался"); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}
	buttons := [][]transport.Button{
		{{Label: "За", Callback: "ev:AB12CD:1"}, {Label: "Против", Callback: "ev:AB12CD:0"}},
	}
	if err := wt.DeliverButtons(43, "Досрочное голосование", buttons); err != nil {
		t.Fatalf("DeliverButtons failed: %v", err)
	}

	got := waitSent(t, sender, 2)
	if got[0].from != "999" || got[0].to != "42" || got[0].text != "Раунд начался" {
		t.Fatalf("unexpected first whisper: %+v", got[0])
	}
	want := "Досрочное голосование\nЗа: !spy press ev:AB12CD:1\nПротив: !spy press ev:AB12CD:0"
	if got[1].to != "43" || got[1].text != want {
		t.Fatalf("unexpected button whisper: got=%q want=%q", got[1].text, want)
	}
}

func TestWhisperTransportQueueFull(t *testing.T) {
	wt := newWhisperTransport(&fakeSender{}, "1", rate.NewLimiter(rate.Inf, 1))
	for i := 0; i < whisperQueueSize; i++ {
		if err := wt.Deliver(1, "x"); err != nil {
			t.Fatalf("Deliver %d failed: %v", i, err)
		}
	}
	if err := wt.Deliver(1, "x"); !errors.Is(err, ErrWhisperQueueFull) {
		t.Fatalf("unexpected error: got=%v want=%v", err, ErrWhisperQueueFull)
	}
}

func TestWhisperTransportSplitsLongText(t *testing.T) {
	sender := &fakeSender{}
	wt := newWhisperTransport(sender, "1", rate.NewLimiter(rate.Inf, 1))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go wt.Run(ctx)

	line := strings.Repeat("а", 300)
	if err := wt.Deliver(7, line+"\n"+line); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}
	got := waitSent(t, sender, 2)
	if got[0].text != line || got[1].text != line {
		t.Fatalf("unexpected split: %d parts", len(got))
	}
}

func TestSplitWhisper(t *testing.T) {
	parts := splitWhisper("a\nb\nc")
	if len(parts) != 1 || parts[0] != "a\nb\nc" {
		t.Fatalf("unexpected parts: %q", parts)
	}

	long := strings.Repeat("б", maxWhisperRunes+10)
	parts = splitWhisper(long)
	if len(parts) != 2 {
		t.Fatalf("unexpected part count: got=%d want=2", len(parts))
	}
	if len([]rune(parts[1])) != 10 {
		t.Fatalf("unexpected tail length: %d", len([]rune(parts[1])))
	}

	if parts := splitWhisper(""); len(parts) != 0 {
		t.Fatalf("empty text should produce no parts: %q", parts)
	}
}
