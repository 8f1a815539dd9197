package transport

import (
	"errors"
	"testing"
)

func TestMuxRoutesToBoundTransport(t *testing.T) {
	fallback := NewRecorder()
	ws := NewRecorder()
	mux := NewMux(fallback)
	mux.Bind(1, ws)

	if err := mux.Deliver(1, "hello"); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}
	if err := mux.DeliverButtons(2, "pick", [][]Button{{{Label: "a", Callback: "x"}}}); err != nil {
		t.Fatalf("DeliverButtons failed: %v", err)
	}

	if !ws.Contains(1, "hello") {
		t.Fatalf("bound transport did not receive the message")
	}
	d, ok := fallback.Last(2)
	if !ok || len(d.Buttons) != 1 || d.Buttons[0][0].Callback != "x" {
		t.Fatalf("unexpected fallback delivery: %+v", d)
	}
}

func TestMuxWithoutFallback(t *testing.T) {
	mux := NewMux(nil)
	if err := mux.Deliver(9, "x"); !errors.Is(err, ErrNoRoute) {
		t.Fatalf("unexpected error: got=%v want=%v", err, ErrNoRoute)
	}
}
