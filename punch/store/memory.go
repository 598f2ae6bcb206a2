// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/punch-engine/punch"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	days     map[dayKey][]punch.Punch
	byID     map[punch.PunchID]punch.Punch
	evidence map[string]punch.Evidence
	workers  map[string]punch.Worker // keyed by worker id
	audit    []punch.AuditEntry
}

type dayKey struct {
	Scope punch.ScopeKey
	Day   string
}

func NewMemory() *Memory {
	return &Memory{
		days:     make(map[dayKey][]punch.Punch),
		byID:     make(map[punch.PunchID]punch.Punch),
		evidence: make(map[string]punch.Evidence),
		workers:  make(map[string]punch.Worker),
	}
}

// Insert adds a punch, enforcing the (scope, day, ordinal) uniqueness
// guarantee the same way the SQLite unique index does.
func (m *Memory) Insert(_ context.Context, day string, p punch.Punch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := dayKey{Scope: p.Scope, Day: day}
	for _, existing := range m.days[k] {
		if existing.Ordinal == p.Ordinal {
			return punch.ErrStateChanged
		}
	}

	punches := append(m.days[k], p)
	sort.SliceStable(punches, func(i, j int) bool {
		return punches[i].Ordinal < punches[j].Ordinal
	})
	m.days[k] = punches
	m.byID[p.ID] = p
	return nil
}

func (m *Memory) FindDay(_ context.Context, scope punch.ScopeKey, day string) ([]punch.Punch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	k := dayKey{Scope: scope, Day: day}
	result := make([]punch.Punch, len(m.days[k]))
	copy(result, m.days[k])
	return result, nil
}

func (m *Memory) FindRange(_ context.Context, scope punch.ScopeKey, window punch.DayWindow) ([]punch.Punch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []punch.Punch
	for k, punches := range m.days {
		if k.Scope != scope {
			continue
		}
		for _, p := range punches {
			if window.Contains(p.OccurredAt) {
				result = append(result, p)
			}
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].OccurredAt.Equal(result[j].OccurredAt) {
			return result[i].OccurredAt.Before(result[j].OccurredAt)
		}
		return result[i].Ordinal < result[j].Ordinal
	})
	return result, nil
}

func (m *Memory) FindPunch(_ context.Context, scope punch.ScopeKey, id punch.PunchID) (punch.Punch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.byID[id]
	if !ok || p.Scope != scope {
		return punch.Punch{}, punch.ErrNotFound
	}
	return p, nil
}

// =============================================================================
// EVIDENCE STORE
// =============================================================================

func (m *Memory) Save(_ context.Context, ev punch.Evidence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evidence[ev.Ref] = ev
	return nil
}

func (m *Memory) Load(_ context.Context, ref string) (punch.Evidence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ev, ok := m.evidence[ref]
	if !ok {
		return punch.Evidence{}, punch.ErrNotFound
	}
	return ev, nil
}

func (m *Memory) Delete(_ context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.evidence, ref)
	return nil
}

// EvidenceCount returns the number of stored payloads.
func (m *Memory) EvidenceCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.evidence)
}

// =============================================================================
// AUDIT SINK
// =============================================================================

func (m *Memory) Record(_ context.Context, entry punch.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, entry)
	return nil
}

// AuditEntries returns a copy of everything recorded so far.
func (m *Memory) AuditEntries() []punch.AuditEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]punch.AuditEntry, len(m.audit))
	copy(result, m.audit)
	return result
}

// =============================================================================
// DIRECTORY
// =============================================================================

// PutWorker registers a worker for identity lookups.
func (m *Memory) PutWorker(w punch.Worker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workers[w.ID] = w
}

func (m *Memory) FindWorkerByEmail(_ context.Context, email string) (punch.Worker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, w := range m.workers {
		if w.Email == email {
			return w, nil
		}
	}
	return punch.Worker{}, punch.ErrNotFound
}

func (m *Memory) FindWorker(_ context.Context, scope punch.ScopeKey) (punch.Worker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	w, ok := m.workers[scope.WorkerID]
	if !ok || w.OrgID != scope.OrgID {
		return punch.Worker{}, punch.ErrNotFound
	}
	return w, nil
}
