package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore keeps analytics rows in-process.
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[string]UserRow
	queries map[string]QueryRow
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]UserRow),
		queries: make(map[string]QueryRow),
	}
}

func (m *MemoryStore) SaveSignup(_ context.Context, ev SignupEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[ev.ID]; ok {
		return nil
	}
	for _, u := range m.users {
		if u.UserID == ev.UserID {
			return nil
		}
	}
	m.users[ev.ID] = UserRow{
		ID:         ev.ID,
		UserID:     ev.UserID,
		Username:   ev.Username,
		Email:      ev.Email,
		Department: ev.Department,
		Hostel:     ev.Hostel,
		SignedUpAt: ev.At,
	}
	return nil
}

func (m *MemoryStore) SaveQuery(_ context.Context, ev QueryEvent) error {
	var details json.RawMessage
	if len(ev.Details) > 0 {
		raw, err := json.Marshal(ev.Details)
		if err != nil {
			return fmt.Errorf("encode query details: %w", err)
		}
		details = raw
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.queries[ev.ID]; ok {
		return nil
	}
	m.queries[ev.ID] = QueryRow{
		ID:        ev.ID,
		UserID:    ev.UserID,
		Username:  ev.Username,
		Kind:      ev.Kind,
		Query:     ev.Query,
		Matched:   ev.Matched,
		Details:   details,
		CreatedAt: ev.At,
	}
	return nil
}

func (m *MemoryStore) ListUsers(_ context.Context, limit int) ([]UserRow, error) {
	m.mu.RLock()
	out := make([]UserRow, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].SignedUpAt.After(out[j].SignedUpAt) })
	return truncate(out, limit), nil
}

func (m *MemoryStore) ListQueries(_ context.Context, limit int) ([]QueryRow, error) {
	m.mu.RLock()
	out := make([]QueryRow, 0, len(m.queries))
	for _, q := range m.queries {
		out = append(out, q)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return truncate(out, limit), nil
}

func truncate[T any](rows []T, limit int) []T {
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}
