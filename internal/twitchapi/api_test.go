package twitchapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"
)

func withHelix(t *testing.T, handler http.HandlerFunc) {
	t.Helper()
	srv := httptest.NewServer(handler)
	prev := helixBaseURL
	helixBaseURL = srv.URL
	t.Cleanup(func() {
		helixBaseURL = prev
		srv.Close()
	})
}

func staticToken(token string) TokenSource {
	return func() (string, error) { return token, nil }
}

func TestSendWhisper(t *testing.T) {
	var got struct {
		path, from, to, auth, clientID, message string
	}
	withHelix(t, func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		got.from = r.URL.Query().Get("from_user_id")
		got.to = r.URL.Query().Get("to_user_id")
		got.auth = r.Header.Get("Authorization")
		got.clientID = r.Header.Get("Client-Id")
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		got.message = body["message"]
		w.WriteHeader(http.StatusNoContent)
	})

	c := NewClient("cid", staticToken("tok"))
	if err := c.SendWhisper(context.Background(), "1", "2", "привет"); err != nil {
		t.Fatalf("SendWhisper failed: %v", err)
	}
	if got.path != "/whispers" || got.from != "1" || got.to != "2" {
		t.Fatalf("unexpected request: %+v", got)
	}
	if got.auth != "Bearer tok" || got.clientID != "cid" {
		t.Fatalf("unexpected headers: auth=%q client=%q", got.auth, got.clientID)
	}
	if got.message != "привет" {
		t.Fatalf("unexpected message: got=%q", got.message)
	}
}

func TestSendWhisperTruncatesAndReportsErrors(t *testing.T) {
	var length int
	withHelix(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		length = utf8.RuneCountInString(body["message"])
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"Too Many Requests","status":429,"message":"whisper limit"}`))
	})

	c := NewClient("cid", staticToken("tok"))
	err := c.SendWhisper(context.Background(), "1", "2", strings.Repeat("я", 700))
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("unexpected error: %v", err)
	}
	if length != maxWhisperRunes {
		t.Fatalf("unexpected message length: got=%d want=%d", length, maxWhisperRunes)
	}

	if err := c.SendWhisper(context.Background(), "1", "2", ""); !errors.Is(err, ErrEmptyWhisper) {
		t.Fatalf("unexpected error for empty whisper: %v", err)
	}
}

func TestSendWhisperTokenFailure(t *testing.T) {
	withHelix(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("request should not be sent")
	})

	boom := errors.New("no token")
	c := NewClient("cid", func() (string, error) { return "", boom })
	if err := c.SendWhisper(context.Background(), "1", "2", "hi"); !errors.Is(err, boom) {
		t.Fatalf("unexpected error: got=%v want=%v", err, boom)
	}
}
