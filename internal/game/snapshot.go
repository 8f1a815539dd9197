package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// SnapshotStore persists the encoded room snapshot.
type SnapshotStore interface {
	ReadSnapshot() ([]byte, error)
	WriteSnapshot(data []byte) error
}

// FileSnapshot writes the snapshot atomically through a temp file.
type FileSnapshot struct {
	Path string
}

func (f FileSnapshot) ReadSnapshot() ([]byte, error) {
	return os.ReadFile(f.Path)
}

func (f FileSnapshot) WriteSnapshot(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot dir: %w", err)
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, f.Path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// MemorySnapshot keeps the snapshot in memory.
type MemorySnapshot struct {
	mu   sync.Mutex
	data []byte
	Err  error
}

func (m *MemorySnapshot) ReadSnapshot() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, os.ErrNotExist
	}
	return append([]byte(nil), m.data...), nil
}

func (m *MemorySnapshot) WriteSnapshot(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.data = append([]byte(nil), data...)
	return nil
}

// encodeSnapshot renders rooms as one JSON document keyed by token. Sets are
// sorted lists, timers are absent and history is capped at limit lines.
func encodeSnapshot(rooms map[string]*Room, limit int) ([]byte, error) {
	out := make(map[string]*Room, len(rooms))
	for token, r := range rooms {
		cp := *r
		if len(cp.Messages) > limit {
			cp.Messages = cp.Messages[len(cp.Messages)-limit:]
		}
		out[token] = &cp
	}
	return json.MarshalIndent(out, "", "  ")
}

func decodeSnapshot(data []byte) (map[string]*Room, error) {
	if len(data) == 0 {
		return nil, errors.New("empty snapshot")
	}
	var rooms map[string]*Room
	if err := json.Unmarshal(data, &rooms); err != nil {
		return nil, err
	}
	for token, r := range rooms {
		if r == nil {
			delete(rooms, token)
			continue
		}
		if r.Participants == nil {
			r.Participants = []Participant{}
		}
		if r.Messages == nil {
			r.Messages = []string{}
		}
		if r.Votes == nil {
			r.Votes = map[int64]int64{}
		}
		if r.BannedFromVoting == nil {
			r.BannedFromVoting = IDSet{}
		}
		if r.Voters == nil {
			r.Voters = IDSet{}
		}
		if r.Phase == "" {
			r.Phase = PhaseLobby
			if r.GameStarted {
				r.Phase = PhaseRunning
			}
		}
	}
	return rooms, nil
}
