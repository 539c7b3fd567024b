// Package storetest provides an in-memory Store with the same Cas and
// transaction semantics as the Couchbase implementation, for use in
// package tests.
package storetest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Sonnyywithanyextray/CheckMate/internal/store"
)

type document struct {
	data []byte
	cas  store.Cas
}

var _ store.Store = (*Memory)(nil)

// Memory is an in-memory document store. Safe for concurrent use; Cas
// conflicts behave like the real store, which makes it suitable for
// exercising conditional-write races.
type Memory struct {
	mu      sync.Mutex
	docs    map[string]map[string]document
	nextCas store.Cas
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{docs: map[string]map[string]document{}}
}

func (m *Memory) collection(name string) map[string]document {
	col, ok := m.docs[name]
	if !ok {
		col = map[string]document{}
		m.docs[name] = col
	}
	return col
}

func (m *Memory) bumpCas() store.Cas {
	m.nextCas++
	return m.nextCas
}

func (m *Memory) Insert(ctx context.Context, collection, id string, doc interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertLocked(collection, id, doc)
}

func (m *Memory) insertLocked(collection, id string, doc interface{}) error {
	col := m.collection(collection)
	if _, ok := col[id]; ok {
		return fmt.Errorf("%s/%s: %w", collection, id, store.ErrExists)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	col[id] = document{data: data, cas: m.bumpCas()}
	return nil
}

func (m *Memory) Get(ctx context.Context, collection, id string, out interface{}) (store.Cas, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.collection(collection)[id]
	if !ok {
		return 0, fmt.Errorf("%s/%s: %w", collection, id, store.ErrNotFound)
	}
	if out != nil {
		if err := json.Unmarshal(doc.data, out); err != nil {
			return 0, err
		}
	}
	return doc.cas, nil
}

func (m *Memory) Replace(ctx context.Context, collection, id string, doc interface{}, cas store.Cas) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.replaceLocked(collection, id, doc, cas)
}

func (m *Memory) replaceLocked(collection, id string, doc interface{}, cas store.Cas) error {
	col := m.collection(collection)
	existing, ok := col[id]
	if !ok {
		return fmt.Errorf("%s/%s: %w", collection, id, store.ErrNotFound)
	}
	if cas != 0 && existing.cas != cas {
		return fmt.Errorf("%s/%s: %w", collection, id, store.ErrCasMismatch)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	col[id] = document{data: data, cas: m.bumpCas()}
	return nil
}

func (m *Memory) Remove(ctx context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeLocked(collection, id)
}

func (m *Memory) removeLocked(collection, id string) error {
	col := m.collection(collection)
	if _, ok := col[id]; !ok {
		return fmt.Errorf("%s/%s: %w", collection, id, store.ErrNotFound)
	}
	delete(col, id)
	return nil
}

func (m *Memory) Query(ctx context.Context, collection string, conds ...store.Cond) ([]store.Doc, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var docs []store.Doc
	for id, doc := range m.collection(collection) {
		var fields map[string]interface{}
		if err := json.Unmarshal(doc.data, &fields); err != nil {
			return nil, err
		}
		if matches(fields, conds) {
			docs = append(docs, store.Doc{ID: id, Data: append(json.RawMessage(nil), doc.data...)})
		}
	}
	return docs, nil
}

func matches(fields map[string]interface{}, conds []store.Cond) bool {
	for _, cond := range conds {
		value, ok := fields[cond.Field]
		if !ok || value == nil {
			return false
		}
		switch cond.Op {
		case "=":
			if fmt.Sprintf("%v", value) != fmt.Sprintf("%v", cond.Value) {
				return false
			}
		case "<=":
			left, err1 := asTime(value)
			right, err2 := asTime(cond.Value)
			if err1 != nil || err2 != nil || left.After(right) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func asTime(v interface{}) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		return time.Parse(time.RFC3339, t)
	default:
		return time.Time{}, fmt.Errorf("not a timestamp: %v", v)
	}
}

// InTransaction applies fn's writes atomically: the whole store is
// locked for the duration and restored from a snapshot if fn fails.
func (m *Memory) InTransaction(ctx context.Context, fn func(tx store.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := make(map[string]map[string]document, len(m.docs))
	for name, col := range m.docs {
		copied := make(map[string]document, len(col))
		for id, doc := range col {
			copied[id] = doc
		}
		snapshot[name] = copied
	}

	if err := fn(&memoryTx{store: m}); err != nil {
		m.docs = snapshot
		return err
	}
	return nil
}

type memoryTx struct {
	store *Memory
}

func (t *memoryTx) Get(collection, id string, out interface{}) error {
	doc, ok := t.store.collection(collection)[id]
	if !ok {
		return fmt.Errorf("%s/%s: %w", collection, id, store.ErrNotFound)
	}
	if out != nil {
		return json.Unmarshal(doc.data, out)
	}
	return nil
}

func (t *memoryTx) Insert(collection, id string, doc interface{}) error {
	return t.store.insertLocked(collection, id, doc)
}

func (t *memoryTx) Replace(collection, id string, doc interface{}) error {
	return t.store.replaceLocked(collection, id, doc, 0)
}

func (t *memoryTx) Remove(collection, id string) error {
	return t.store.removeLocked(collection, id)
}
