package cache

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Memory implements both the availability cache and the retired-session
// store in process. Entries never expire.
type Memory struct {
	mu      sync.Mutex
	seats   map[uuid.UUID]int
	retired map[string]struct{}
}

func NewMemory() *Memory {
	return &Memory{
		seats:   make(map[uuid.UUID]int),
		retired: make(map[string]struct{}),
	}
}

func (m *Memory) GetAvailability(ctx context.Context, eventID uuid.UUID) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.seats[eventID]
	return n, ok, nil
}

func (m *Memory) SetAvailability(ctx context.Context, eventID uuid.UUID, remaining int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seats[eventID] = remaining
	return nil
}

func (m *Memory) Invalidate(ctx context.Context, eventID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seats, eventID)
	return nil
}

func (m *Memory) Retire(ctx context.Context, sessionKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retired[sessionKey] = struct{}{}
	return nil
}

func (m *Memory) IsRetired(ctx context.Context, sessionKey string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.retired[sessionKey]
	return ok, nil
}
