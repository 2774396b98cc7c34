package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/papyr-dev/papyr-store/pkg/schema"
)

// MemStore is a thread-safe collection-of-documents store. All returned
// records are deep copies; mutating them never affects stored state.
type MemStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]schema.Record
}

// NewMemStore initializes a store. It accepts existing data (from LoadSeed)
// which may be nil.
func NewMemStore(seed map[string]map[string]schema.Record) *MemStore {
	if seed == nil {
		seed = make(map[string]map[string]schema.Record)
	}
	return &MemStore{collections: seed}
}

// Collections returns the names of all collections, sorted.
func (m *MemStore) Collections() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.collections))
	for name := range m.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetAll returns every record in the collection with _id injected.
func (m *MemStore) GetAll(collection string) ([]schema.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	target, ok := m.collections[collection]
	if !ok {
		return nil, ErrCollectionNotFound
	}

	result := make([]schema.Record, 0, len(target))
	for id, entry := range target {
		rec := schema.CopyRecord(entry)
		rec[schema.FieldID] = id
		result = append(result, rec)
	}
	// Map iteration order is random; keep responses deterministic.
	sort.Slice(result, func(i, j int) bool {
		a, _ := result[i][schema.FieldID].(string)
		b, _ := result[j][schema.FieldID].(string)
		return a < b
	})
	return result, nil
}

// Get returns a single record by ID.
func (m *MemStore) Get(collection, id string) (schema.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	target, ok := m.collections[collection]
	if !ok {
		return nil, ErrCollectionNotFound
	}
	entry, ok := target[id]
	if !ok {
		return nil, ErrEntryNotFound
	}
	rec := schema.CopyRecord(entry)
	rec[schema.FieldID] = id
	return rec, nil
}

// Add stores a new record under a generated unique ID, creating the
// collection if absent. Reserved fields in data are discarded, except a
// pre-set _ownerId which is kept. Stamps _createdOn.
func (m *MemStore) Add(collection string, data schema.Record) schema.Record {
	record := schema.AssignClean(schema.Record{}, data)
	if owner, ok := data[schema.FieldOwnerID]; ok {
		record[schema.FieldOwnerID] = owner
	}
	record[schema.FieldCreatedOn] = time.Now().UnixMilli()

	m.mu.Lock()
	defer m.mu.Unlock()

	// A seeded collection may carry a nil inner map (empty or null seed
	// file); re-make it before the first insert.
	target := m.collections[collection]
	if target == nil {
		target = make(map[string]schema.Record)
		m.collections[collection] = target
	}

	id := uuid.NewString()
	for _, taken := target[id]; taken; _, taken = target[id] {
		id = uuid.NewString()
	}
	target[id] = record

	result := schema.CopyRecord(record)
	result[schema.FieldID] = id
	return result
}

// Set fully replaces an existing record, preserving its reserved fields
// and stamping _updatedOn.
func (m *MemStore) Set(collection, id string, data schema.Record) (schema.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	target, ok := m.collections[collection]
	if !ok {
		return nil, ErrCollectionNotFound
	}
	existing, ok := target[id]
	if !ok {
		return nil, ErrEntryNotFound
	}

	record := schema.AssignSystem(schema.CopyRecord(data), existing)
	record[schema.FieldUpdatedOn] = time.Now().UnixMilli()
	target[id] = record

	result := schema.CopyRecord(record)
	result[schema.FieldID] = id
	return result, nil
}

// Merge shallow-merges the non-reserved fields of data onto an existing
// record and stamps _updatedOn.
func (m *MemStore) Merge(collection, id string, data schema.Record) (schema.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	target, ok := m.collections[collection]
	if !ok {
		return nil, ErrCollectionNotFound
	}
	existing, ok := target[id]
	if !ok {
		return nil, ErrEntryNotFound
	}

	record := schema.AssignClean(schema.CopyRecord(existing), data)
	record[schema.FieldUpdatedOn] = time.Now().UnixMilli()
	target[id] = record

	result := schema.CopyRecord(record)
	result[schema.FieldID] = id
	return result, nil
}

// Delete removes an entry and reports the deletion time.
func (m *MemStore) Delete(collection, id string) (schema.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	target, ok := m.collections[collection]
	if !ok {
		return nil, ErrCollectionNotFound
	}
	if _, ok := target[id]; !ok {
		return nil, ErrEntryNotFound
	}
	delete(target, id)

	return schema.Record{schema.FieldDeletedOn: time.Now().UnixMilli()}, nil
}

// QueryBy returns all records whose fields exactly match the query object.
// String values compare case-insensitively, everything else loosely. All
// provided fields must match.
func (m *MemStore) QueryBy(collection string, query schema.Record) ([]schema.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	target, ok := m.collections[collection]
	if !ok {
		return nil, ErrCollectionNotFound
	}

	var result []schema.Record
	for id, entry := range target {
		match := true
		for prop, want := range query {
			if !looseEqual(entry[prop], want) {
				match = false
				break
			}
		}
		if match {
			rec := schema.CopyRecord(entry)
			rec[schema.FieldID] = id
			result = append(result, rec)
		}
	}
	return result, nil
}

func looseEqual(a, b any) bool {
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return strings.EqualFold(as, bs)
		}
	}
	if af, ok := asFloat(a); ok {
		if bf, ok := asFloat(b); ok {
			return af == bf
		}
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
