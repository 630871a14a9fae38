package roomstore

import (
	"context"
	"sync"

	"partyseq/internal/model"
)

// Memory is the in-memory store, used by tests and as the degraded mode
// when no durable backend is configured.
type Memory struct {
	mu    sync.RWMutex
	rooms map[string]*model.Room
}

func NewMemory() *Memory {
	return &Memory{rooms: make(map[string]*model.Room)}
}

func (m *Memory) Load(_ context.Context) ([]*model.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r.Clone())
	}
	return out, nil
}

func (m *Memory) Save(_ context.Context, room *model.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[room.Code] = room.Clone()
	return nil
}

func (m *Memory) Delete(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, code)
	return nil
}

func (m *Memory) Close() {}
