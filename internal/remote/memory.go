package remote

import (
	"context"
	"maps"
	"slices"
	"sync"
)

// Call is one recorded MemoryCollection operation.
type Call struct {
	Method string
	ID     string
}

// MemoryCollection is an in-memory Collection with separate workspace and
// published views. Approval copies the workspace over the published view.
type MemoryCollection struct {
	mu        sync.Mutex
	workspace map[string][]byte
	published map[string][]byte
	calls     []Call

	// Fail maps a method name ("list", "upsert", "delete", "approve") to
	// an error returned instead of performing the call. When FailID is
	// set, only calls for that record id fail.
	Fail   map[string]error
	FailID string
}

// NewMemoryCollection creates a collection whose workspace and published
// views both hold records.
func NewMemoryCollection(records ...Record) *MemoryCollection {
	m := &MemoryCollection{
		workspace: make(map[string][]byte),
		published: make(map[string][]byte),
		Fail:      make(map[string]error),
	}
	for _, rec := range records {
		m.workspace[rec.ID] = rec.Payload
		m.published[rec.ID] = rec.Payload
	}
	return m
}

func (m *MemoryCollection) fail(method, id string) error {
	err, ok := m.Fail[method]
	if !ok {
		return nil
	}
	if m.FailID != "" && id != m.FailID {
		return nil
	}
	return err
}

// ListRecords returns the published view sorted by id.
func (m *MemoryCollection) ListRecords(_ context.Context) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Method: "list"})
	if err := m.fail("list", ""); err != nil {
		return nil, err
	}
	return sortedRecords(m.published), nil
}

// UpsertRecord stages rec in the workspace.
func (m *MemoryCollection) UpsertRecord(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Method: "upsert", ID: rec.ID})
	if err := m.fail("upsert", rec.ID); err != nil {
		return err
	}
	m.workspace[rec.ID] = slices.Clone(rec.Payload)
	return nil
}

// DeleteRecord removes id from the workspace. Absent ids are not an error.
func (m *MemoryCollection) DeleteRecord(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Method: "delete", ID: id})
	if err := m.fail("delete", id); err != nil {
		return err
	}
	delete(m.workspace, id)
	return nil
}

// ApprovePendingChanges publishes the workspace.
func (m *MemoryCollection) ApprovePendingChanges(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Method: "approve"})
	if err := m.fail("approve", ""); err != nil {
		return err
	}
	m.published = maps.Clone(m.workspace)
	return nil
}

// Published returns the published view sorted by id.
func (m *MemoryCollection) Published() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedRecords(m.published)
}

// Workspace returns the workspace view sorted by id.
func (m *MemoryCollection) Workspace() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedRecords(m.workspace)
}

// Calls returns every call made so far, in order.
func (m *MemoryCollection) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

// CountCalls returns how many calls of method were made.
func (m *MemoryCollection) CountCalls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

func sortedRecords(src map[string][]byte) []Record {
	out := make([]Record, 0, len(src))
	for _, id := range slices.Sorted(maps.Keys(src)) {
		out = append(out, Record{ID: id, Payload: slices.Clone(src[id])})
	}
	return out
}
