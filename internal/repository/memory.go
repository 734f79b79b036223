package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"immobilier-assistant/internal/domain"
	"immobilier-assistant/internal/session"
)

// Memory is an in-process Store with the same version and expiry semantics as
// the DynamoDB client.
type Memory struct {
	mu    sync.Mutex
	items map[string]memoryItem
	ttl   time.Duration
	now   func() time.Time
}

type memoryItem struct {
	snap      session.Snapshot
	expiresAt time.Time
}

// NewMemory creates an empty store. A non-positive ttl selects DefaultTTL.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{items: make(map[string]memoryItem), ttl: ttl, now: time.Now}
}

func (m *Memory) Load(_ context.Context, id string) (session.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return session.Snapshot{}, ErrNotFound
	}
	if !m.now().Before(it.expiresAt) {
		delete(m.items, id)
		return session.Snapshot{}, ErrNotFound
	}
	return cloneSnapshot(it.snap), nil
}

func (m *Memory) Save(_ context.Context, snap session.Snapshot) (int64, error) {
	if snap.ID == "" {
		return 0, errors.New("repository: Save: session id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	cur, exists := m.items[snap.ID]
	if exists && !now.Before(cur.expiresAt) {
		exists = false
	}
	switch {
	case snap.Version == 0 && exists:
		return 0, ErrConflict
	case snap.Version != 0 && (!exists || cur.snap.Version != snap.Version):
		return 0, ErrConflict
	}

	stored := cloneSnapshot(snap)
	stored.Version = snap.Version + 1
	m.items[snap.ID] = memoryItem{snap: stored, expiresAt: now.Add(m.ttl)}
	return stored.Version, nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

// Sweep drops expired sessions and reports how many were removed.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	n := 0
	for id, it := range m.items {
		if !now.Before(it.expiresAt) {
			delete(m.items, id)
			n++
		}
	}
	return n
}

func cloneSnapshot(s session.Snapshot) session.Snapshot {
	msgs := make([]domain.Message, len(s.Messages))
	copy(msgs, s.Messages)
	s.Messages = msgs
	return s
}
