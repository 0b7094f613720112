// Package store provides ledger.Store implementations.
package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/fairway/loopledger/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory keeps raw records per user, in insertion order newest-last. Records
// are copied on the way in and out so callers can't alias store state. Like
// the real store, it never interprets record contents beyond the id.
type Memory struct {
	mu       sync.RWMutex
	loops    map[string][]ledger.RawRecord // userID -> records
	expenses map[string][]ledger.RawRecord
	settings map[string]ledger.RawRecord
}

func NewMemory() *Memory {
	return &Memory{
		loops:    make(map[string][]ledger.RawRecord),
		expenses: make(map[string][]ledger.RawRecord),
		settings: make(map[string]ledger.RawRecord),
	}
}

// Seed inserts raw loop records verbatim, bypassing the upsert path. Used
// by tests to plant legacy-shaped records.
func (m *Memory) Seed(userID string, loops ...ledger.RawRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range loops {
		m.loops[userID] = append(m.loops[userID], copyRecord(r))
	}
}

// SeedExpenses inserts raw expense records verbatim.
func (m *Memory) SeedExpenses(userID string, expenses ...ledger.RawRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range expenses {
		m.expenses[userID] = append(m.expenses[userID], copyRecord(r))
	}
}

func (m *Memory) ListLoops(_ context.Context, userID string) ([]ledger.RawRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyRecords(m.loops[userID]), nil
}

func (m *Memory) UpsertLoop(_ context.Context, userID string, raw ledger.RawRecord) (ledger.RawRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loops[userID] = upsert(m.loops[userID], raw)
	return copyRecord(raw), nil
}

func (m *Memory) DeleteLoop(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := false
	for userID, records := range m.loops {
		next, hit := remove(records, id)
		m.loops[userID] = next
		removed = removed || hit
	}
	if !removed {
		return ledger.ErrRecordNotFound
	}
	return nil
}

func (m *Memory) ListExpenses(_ context.Context, userID string) ([]ledger.RawRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyRecords(m.expenses[userID]), nil
}

func (m *Memory) UpsertExpense(_ context.Context, userID string, raw ledger.RawRecord) (ledger.RawRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expenses[userID] = upsert(m.expenses[userID], raw)
	return copyRecord(raw), nil
}

func (m *Memory) DeleteExpense(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := false
	for userID, records := range m.expenses {
		next, hit := remove(records, id)
		m.expenses[userID] = next
		removed = removed || hit
	}
	if !removed {
		return ledger.ErrRecordNotFound
	}
	return nil
}

func (m *Memory) LoadSettings(_ context.Context, userID string) (ledger.RawRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.settings[userID]; ok {
		return copyRecord(r), nil
	}
	return nil, nil
}

func (m *Memory) SaveSettings(_ context.Context, userID string, raw ledger.RawRecord) (ledger.RawRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[userID] = copyRecord(raw)
	return copyRecord(raw), nil
}

// =============================================================================
// HELPERS
// =============================================================================

func recordID(r ledger.RawRecord) string {
	if id, ok := r["id"].(string); ok {
		return id
	}
	return ""
}

func upsert(records []ledger.RawRecord, raw ledger.RawRecord) []ledger.RawRecord {
	stored := copyRecord(raw)
	id := recordID(stored)
	if id == "" {
		id = uuid.NewString()
		stored["id"] = id
	}
	for i, existing := range records {
		if recordID(existing) == id {
			records[i] = stored
			return records
		}
	}
	return append(records, stored)
}

func remove(records []ledger.RawRecord, id string) ([]ledger.RawRecord, bool) {
	var out []ledger.RawRecord
	removed := false
	for _, r := range records {
		if recordID(r) == id {
			removed = true
			continue
		}
		out = append(out, r)
	}
	return out, removed
}

func copyRecord(r ledger.RawRecord) ledger.RawRecord {
	if r == nil {
		return nil
	}
	out := make(ledger.RawRecord, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func copyRecords(records []ledger.RawRecord) []ledger.RawRecord {
	out := make([]ledger.RawRecord, 0, len(records))
	for _, r := range records {
		out = append(out, copyRecord(r))
	}
	return out
}
