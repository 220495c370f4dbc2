// Package memstore is the in-memory document store implementation, used
// by the test suite and as the default backend when no database URL is
// configured. Transactions are optimistic: reads record document
// versions and the commit revalidates them, retrying on conflict the way
// the production backend does.
package memstore

import (
	"context"
	"sort"
	"sync"

	"encoding/json"

	"github.com/Gagansidh-u/studio/internal/store"
)

const defaultTxAttempts = 5

type Memstore struct {
	mu sync.Mutex
	// versions outlives docs so a deleted and recreated document keeps a
	// monotonically increasing version.
	versions      map[string]int64
	docs          map[string]json.RawMessage
	subs          map[string][]*subscription
	maxTxAttempts int
}

type subscription struct {
	fn func(doc store.Doc, exists bool)
}

func New() *Memstore {
	return NewWithRetries(defaultTxAttempts)
}

// NewWithRetries bounds how often RunTransaction retries a conflicting
// transaction before giving up. Non-positive values fall back to the
// default.
func NewWithRetries(maxTxAttempts int) *Memstore {
	if maxTxAttempts <= 0 {
		maxTxAttempts = defaultTxAttempts
	}

	return &Memstore{
		versions:      make(map[string]int64),
		docs:          make(map[string]json.RawMessage),
		subs:          make(map[string][]*subscription),
		maxTxAttempts: maxTxAttempts,
	}
}

func key(collection, id string) string { return collection + "/" + id }

func (m *Memstore) Get(_ context.Context, collection, id string) (store.Doc, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.getLocked(collection, id)
}

func (m *Memstore) getLocked(collection, id string) (store.Doc, error) {
	k := key(collection, id)
	data, ok := m.docs[k]
	if !ok {
		return store.Doc{}, store.ErrNotFound
	}

	return store.Doc{ID: id, Version: m.versions[k], Data: data}, nil
}

func (m *Memstore) Set(_ context.Context, collection, id string, data any) error {
	raw, err := store.Marshal(data)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.setLocked(collection, id, raw)
	return nil
}

func (m *Memstore) setLocked(collection, id string, raw json.RawMessage) {
	k := key(collection, id)
	m.versions[k]++
	m.docs[k] = raw
	m.notifyLocked(collection, id)
}

func (m *Memstore) Update(_ context.Context, collection, id string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.updateLocked(collection, id, fields)
}

func (m *Memstore) updateLocked(collection, id string, fields map[string]any) error {
	k := key(collection, id)
	data, ok := m.docs[k]
	if !ok {
		return store.ErrNotFound
	}

	merged, err := store.MergeFields(data, fields)
	if err != nil {
		return err
	}

	m.versions[k]++
	m.docs[k] = merged
	m.notifyLocked(collection, id)
	return nil
}

func (m *Memstore) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deleteLocked(collection, id)
	return nil
}

func (m *Memstore) deleteLocked(collection, id string) {
	k := key(collection, id)
	if _, ok := m.docs[k]; !ok {
		return
	}

	m.versions[k]++
	delete(m.docs, k)
	m.notifyLocked(collection, id)
}

func (m *Memstore) List(_ context.Context, collection string) ([]store.Doc, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prefix := collection + "/"
	var out []store.Doc
	for k, data := range m.docs {
		if len(k) <= len(prefix) || k[:len(prefix)] != prefix {
			continue
		}
		out = append(out, store.Doc{ID: k[len(prefix):], Version: m.versions[k], Data: data})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Subscribe delivers snapshots synchronously in write order. The
// callback must not call back into the store.
func (m *Memstore) Subscribe(collection, id string, fn func(doc store.Doc, exists bool)) func() {
	sub := &subscription{fn: fn}
	k := key(collection, id)

	m.mu.Lock()
	m.subs[k] = append(m.subs[k], sub)
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		subs := m.subs[k]
		for i, s := range subs {
			if s == sub {
				m.subs[k] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}
}

func (m *Memstore) notifyLocked(collection, id string) {
	k := key(collection, id)
	data, exists := m.docs[k]
	doc := store.Doc{ID: id, Version: m.versions[k], Data: data}
	for _, sub := range m.subs[k] {
		sub.fn(doc, exists)
	}
}

type writeOp struct {
	delete bool
	set    json.RawMessage
	fields map[string]any
}

type memTxn struct {
	m     *Memstore
	reads map[string]int64
	// writes preserves application order per document: a Set replaces any
	// buffered op, an Update stacks onto it.
	writes map[string][]writeOp
	order  []string
}

func (t *memTxn) Get(collection, id string) (store.Doc, error) {
	k := key(collection, id)

	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	if _, ok := t.reads[k]; !ok {
		t.reads[k] = t.m.versions[k]
	}

	doc, err := t.m.getLocked(collection, id)
	if err != nil {
		return store.Doc{}, err
	}
	return t.applyPending(k, doc)
}

func (t *memTxn) applyPending(k string, doc store.Doc) (store.Doc, error) {
	for _, op := range t.writes[k] {
		switch {
		case op.delete:
			return store.Doc{}, store.ErrNotFound
		case op.set != nil:
			doc.Data = op.set
		default:
			merged, err := store.MergeFields(doc.Data, op.fields)
			if err != nil {
				return store.Doc{}, err
			}
			doc.Data = merged
		}
	}
	return doc, nil
}

func (t *memTxn) buffer(collection, id string, op writeOp) {
	k := key(collection, id)
	if _, ok := t.writes[k]; !ok {
		t.order = append(t.order, k)
	}
	if op.set != nil || op.delete {
		t.writes[k] = []writeOp{op}
		return
	}
	t.writes[k] = append(t.writes[k], op)
}

func (t *memTxn) Set(collection, id string, data any) error {
	raw, err := store.Marshal(data)
	if err != nil {
		return err
	}
	t.buffer(collection, id, writeOp{set: raw})
	return nil
}

func (t *memTxn) Update(collection, id string, fields map[string]any) error {
	t.buffer(collection, id, writeOp{fields: fields})
	return nil
}

func (t *memTxn) Delete(collection, id string) error {
	t.buffer(collection, id, writeOp{delete: true})
	return nil
}

func (m *Memstore) RunTransaction(ctx context.Context, fn func(txn store.Txn) error) error {
	for attempt := 0; attempt < m.maxTxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		txn := &memTxn{
			m:      m,
			reads:  make(map[string]int64),
			writes: make(map[string][]writeOp),
		}

		if err := fn(txn); err != nil {
			return err
		}

		if m.commit(txn) {
			return nil
		}
	}

	return store.ErrConflict
}

func (m *Memstore) commit(txn *memTxn) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, version := range txn.reads {
		if m.versions[k] != version {
			return false
		}
	}

	for _, k := range txn.order {
		collection, id := splitKey(k)
		for _, op := range txn.writes[k] {
			switch {
			case op.delete:
				m.deleteLocked(collection, id)
			case op.set != nil:
				m.setLocked(collection, id, op.set)
			default:
				// Updates inside a transaction tolerate an absent base:
				// the merged result is written as a new document.
				if err := m.updateLocked(collection, id, op.fields); err != nil {
					merged, mergeErr := store.MergeFields(nil, op.fields)
					if mergeErr != nil {
						continue
					}
					m.setLocked(collection, id, merged)
				}
			}
		}
	}

	return true
}

func splitKey(k string) (collection, id string) {
	for i := 0; i < len(k); i++ {
		if k[i] == '/' {
			return k[:i], k[i+1:]
		}
	}
	return k, ""
}
