// Package checkpoint persists how far each watched log file has been read.
package checkpoint

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned by Load when no checkpoint exists for a file.
var ErrNotFound = errors.New("checkpoint not found")

// TailState is the resume point for one watched file.
type TailState struct {
	FileIdentity string    `msgpack:"file_identity" json:"file_identity"`
	BytesRead    uint64    `msgpack:"bytes_read" json:"bytes_read"`
	UpdatedAt    time.Time `msgpack:"updated_at" json:"updated_at"`
}

// Store loads and saves TailState records keyed by file identity.
// Implementations must be cheap enough to call after every read batch.
type Store interface {
	Load(ctx context.Context, fileIdentity string) (TailState, error)
	Save(ctx context.Context, state TailState) error
}

// MemoryStore is a Store kept in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]TailState
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]TailState)}
}

// Load returns the saved state for fileIdentity.
func (s *MemoryStore) Load(_ context.Context, fileIdentity string) (TailState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[fileIdentity]
	if !ok {
		return TailState{}, ErrNotFound
	}
	return st, nil
}

// Save records state, replacing any previous value for the same file.
func (s *MemoryStore) Save(_ context.Context, state TailState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.FileIdentity] = state
	return nil
}
