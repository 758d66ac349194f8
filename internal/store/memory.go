package store

import (
	"context"
	"sync"
	"time"
)

// Memory is the process-lifetime backend.
type Memory struct {
	mu    sync.RWMutex
	users map[int64]*UserRecord
	order []int64
	now   func() time.Time
}

func NewMemory() *Memory {
	return &Memory{users: map[int64]*UserRecord{}, now: time.Now}
}

// lookup must be called with mu held for writing.
func (m *Memory) lookup(id int64, now time.Time) *UserRecord {
	u, ok := m.users[id]
	if !ok {
		u = &UserRecord{ID: id, FirstSeen: now, LastSeen: now}
		m.users[id] = u
		m.order = append(m.order, id)
	}
	return u
}

func (m *Memory) Touch(_ context.Context, p Profile) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	u := m.lookup(p.ID, now)
	applyProfile(u, p)
	u.LastSeen = now
	return *u, nil
}

func (m *Memory) RecordDownload(_ context.Context, userID int64) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	u := m.lookup(userID, now)
	u.Downloads++
	u.LastSeen = now
	return *u, nil
}

func (m *Memory) Get(_ context.Context, userID int64) (UserRecord, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[userID]
	if !ok {
		return UserRecord{}, false, nil
	}
	return *u, true, nil
}

func (m *Memory) All(_ context.Context) ([]UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]UserRecord, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.users[id])
	}
	return out, nil
}
