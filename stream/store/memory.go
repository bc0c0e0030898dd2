// Package store provides Store implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/stream-engine/stream"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	config  *stream.Config
	streams map[stream.StreamID]*stream.Stream
	nextID  stream.StreamID
}

func NewMemory() *Memory {
	return &Memory{
		streams: make(map[stream.StreamID]*stream.Stream),
	}
}

func (m *Memory) GetConfig(_ context.Context) (stream.Config, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.config == nil {
		return stream.Config{}, false, nil
	}
	return *m.config, true, nil
}

func (m *Memory) PutConfig(_ context.Context, cfg stream.Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config = &cfg
	return nil
}

func (m *Memory) GetStream(_ context.Context, id stream.StreamID) (*stream.Stream, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.streams[id]
	if !ok {
		return nil, stream.ErrStreamNotFound
	}
	// Copy out so callers never alias stored state.
	return s.Clone(), nil
}

func (m *Memory) PutStream(_ context.Context, s *stream.Stream) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streams[s.ID] = s.Clone()
	return nil
}

func (m *Memory) NextStreamID(_ context.Context) (stream.StreamID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nextID, nil
}

func (m *Memory) SetNextStreamID(_ context.Context, id stream.StreamID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID = id
	return nil
}
