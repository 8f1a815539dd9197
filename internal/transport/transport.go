// Package transport defines what the game core needs from a messaging adapter.
package transport

import (
	"context"
	"errors"
	"sync"
)

var ErrNoRoute = errors.New("no transport bound for user")

// Button is one inline button. Callback is an opaque callback token.
type Button struct {
	Label    string `json:"label"`
	Callback string `json:"callback"`
}

// Transport delivers outbound notifications. Implementations must not block
// the caller for long; a failure concerns a single recipient only.
type Transport interface {
	Deliver(userID int64, text string) error
	DeliverButtons(userID int64, text string, buttons [][]Button) error
}

// Event is an inbound user event.
type Event interface {
	Sender() int64
	SenderName() string
}

type TextMessage struct {
	UserID  int64
	Name    string
	Text    string
	ReplyTo int64
}

// Media is any non-text payload (sticker, photo, voice).
type Media struct {
	UserID int64
	Name   string
	Kind   string
}

type ButtonPress struct {
	UserID   int64
	Name     string
	Callback string
}

type Document struct {
	UserID   int64
	Name     string
	FileName string
	Fetch    func(ctx context.Context) ([]byte, error)
}

type Command struct {
	UserID  int64
	Name    string
	Verb    string
	Args    []string
	ReplyTo int64
}

func (e TextMessage) Sender() int64      { return e.UserID }
func (e TextMessage) SenderName() string { return e.Name }
func (e Media) Sender() int64            { return e.UserID }
func (e Media) SenderName() string       { return e.Name }
func (e ButtonPress) Sender() int64      { return e.UserID }
func (e ButtonPress) SenderName() string { return e.Name }
func (e Document) Sender() int64         { return e.UserID }
func (e Document) SenderName() string    { return e.Name }
func (e Command) Sender() int64          { return e.UserID }
func (e Command) SenderName() string     { return e.Name }

// Mux routes deliveries to the adapter a user last spoke through.
type Mux struct {
	mu       sync.RWMutex
	routes   map[int64]Transport
	fallback Transport
}

func NewMux(fallback Transport) *Mux {
	return &Mux{routes: make(map[int64]Transport), fallback: fallback}
}

func (m *Mux) Bind(userID int64, t Transport) {
	m.mu.Lock()
	m.routes[userID] = t
	m.mu.Unlock()
}

func (m *Mux) route(userID int64) (Transport, error) {
	m.mu.RLock()
	t, ok := m.routes[userID]
	m.mu.RUnlock()
	if ok {
		return t, nil
	}
	if m.fallback != nil {
		return m.fallback, nil
	}
	return nil, ErrNoRoute
}

func (m *Mux) Deliver(userID int64, text string) error {
	t, err := m.route(userID)
	if err != nil {
		return err
	}
	return t.Deliver(userID, text)
}

func (m *Mux) DeliverButtons(userID int64, text string, buttons [][]Button) error {
	t, err := m.route(userID)
	if err != nil {
		return err
	}
	return t.DeliverButtons(userID, text, buttons)
}
