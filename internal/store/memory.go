package store

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/clinic-ingest/internal/model"
)

// MemoryStore is an in-process Store. Documents are copied on the way in and
// out so callers never share state with the store.
type MemoryStore struct {
	mu      sync.RWMutex
	clinics map[string][]byte
	logs    []*model.ImportResult
}

// NewMemory creates an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{clinics: make(map[string][]byte)}
}

func (m *MemoryStore) Migrate(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) Get(_ context.Context, id string) (*model.Clinic, error) {
	m.mu.RLock()
	doc, ok := m.clinics[id]
	m.mu.RUnlock()
	if !ok {
		return nil, eris.Wrapf(model.ErrNotFound, "memory: get %s", id)
	}
	return decodeClinic(doc)
}

func (m *MemoryStore) Exists(_ context.Context, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.clinics[id]
	return ok, nil
}

func (m *MemoryStore) Put(_ context.Context, c *model.Clinic) error {
	if err := requireID(c); err != nil {
		return err
	}
	doc, err := json.Marshal(c)
	if err != nil {
		return eris.Wrapf(err, "memory: marshal %s", c.ID)
	}
	m.mu.Lock()
	m.clinics[c.ID] = doc
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) PutBatch(ctx context.Context, cs []*model.Clinic) error {
	for _, c := range cs {
		if err := m.Put(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryStore) Query(_ context.Context, filters ...Filter) ([]*model.Clinic, error) {
	if err := validateFilters(filters); err != nil {
		return nil, err
	}

	m.mu.RLock()
	docs := make([][]byte, 0, len(m.clinics))
	ids := make([]string, 0, len(m.clinics))
	for id := range m.clinics {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		docs = append(docs, m.clinics[id])
	}
	m.mu.RUnlock()

	var out []*model.Clinic
	for _, doc := range docs {
		c, err := decodeClinic(doc)
		if err != nil {
			return nil, err
		}
		if matchesAll(c, filters) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MemoryStore) AppendImportLog(_ context.Context, r *model.ImportResult) error {
	snap := r.Snapshot()
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.logs {
		if l.ID == snap.ID {
			return eris.Errorf("memory: import log %s already exists", snap.ID)
		}
	}
	m.logs = append(m.logs, snap)
	return nil
}

func (m *MemoryStore) ListImportLogs(_ context.Context, limit int) ([]*model.ImportResult, error) {
	if limit <= 0 {
		limit = 20
	}
	m.mu.RLock()
	out := make([]*model.ImportResult, 0, len(m.logs))
	for _, l := range m.logs {
		out = append(out, l.Snapshot())
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Len returns the number of stored clinics.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clinics)
}

func matchesAll(c *model.Clinic, filters []Filter) bool {
	for _, f := range filters {
		got := fieldValue(c, f.Field)
		want := filterValue(f)
		switch f.Op {
		case OpEq:
			if got != want {
				return false
			}
		case OpPrefix:
			if !strings.HasPrefix(got, want) {
				return false
			}
		}
	}
	return true
}

// fieldValue mirrors the promoted columns of the SQL stores.
func fieldValue(c *model.Clinic, field string) string {
	switch field {
	case FieldNameKey:
		return c.NameKey
	case FieldAddress:
		return strings.ToLower(c.Address)
	case FieldCity:
		return strings.ToLower(c.City)
	case FieldState:
		return c.State
	case FieldPhone:
		return c.Phone
	case FieldSlug:
		return c.Slug
	}
	return ""
}
