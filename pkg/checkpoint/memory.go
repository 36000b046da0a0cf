package checkpoint

import (
	"context"
	"sync"
)

// Memory is an in-process Store. It does not survive restarts; it exists for
// tests and for deployments where recovery across restarts is not wanted but
// the engine is still wired against a store.
type Memory struct {
	mu    sync.RWMutex
	state string
	set   bool
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Save(_ context.Context, state string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
	m.set = true
	return nil
}

func (m *Memory) Load(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.set {
		return "", ErrNoCheckpoint
	}
	return m.state, nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = ""
	m.set = false
	return nil
}
