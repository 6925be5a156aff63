// Package memadapter is the in-process, map-backed storage.Adapter used for
// unit tests and as a non-durable backend for the facade. It implements
// the same Adapter/Transaction/Collection contract as badgeradapter so the
// engine is indifferent to which backend it runs on.
package memadapter

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/worldiety/vfsengine/storage"
	"github.com/worldiety/vfsengine/vfserr"
	"github.com/worldiety/vfsengine/vfslog"
)

type row struct {
	key  string
	data []byte // json-encoded record
}

// store is one collection's state: primary rows plus secondary indexes.
// indexes[indexName][indexKey] = set of primary keys (a slice in insertion
// order, without duplicates).
type store struct {
	rows    map[string][]byte
	indexes map[string]map[string][]string
}

func newStore() *store {
	return &store{rows: map[string][]byte{}, indexes: map[string]map[string][]string{}}
}

func (s *store) clone() *store {
	cp := newStore()
	for k, v := range s.rows {
		cp.rows[k] = v
	}
	for idxName, m := range s.indexes {
		cm := make(map[string][]string, len(m))
		for k, v := range m {
			cm[k] = append([]string(nil), v...)
		}
		cp.indexes[idxName] = cm
	}
	return cp
}

// Adapter is the in-memory storage.Adapter.
type Adapter struct {
	mu     sync.Mutex
	stores map[string]*store
}

var collections = []string{
	storage.CollVNodes, storage.CollContents, storage.CollModules,
	storage.CollTags, storage.CollNodeTags, storage.CollSRSItems,
}

// New builds an empty memory adapter. Connect still must be called before
// use, matching the Adapter contract's lifecycle.
func New() *Adapter {
	return &Adapter{stores: map[string]*store{}}
}

func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, c := range collections {
		if _, ok := a.stores[c]; !ok {
			a.stores[c] = newStore()
		}
	}
	storageLog := vfslog.Component("storage")
	storageLog.Debug().Msg("memadapter connected")
	return nil
}

func (a *Adapter) Disconnect(ctx context.Context) error {
	return nil
}

func (a *Adapter) Destroy(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stores = map[string]*store{}
	for _, c := range collections {
		a.stores[c] = newStore()
	}
	return nil
}

func (a *Adapter) GetCollection(name string) storage.Collection {
	return &collView{a: a, name: name}
}

// BeginTransaction snapshots (clones) the requested collections, hands out
// working copies to a txn, and swaps them back into the live store on
// Commit, discarding them on Abort. This gives full isolation and rollback
// without a real WAL, appropriate for an in-process reference/test adapter.
func (a *Adapter) BeginTransaction(ctx context.Context, collectionNames []string, mode storage.Mode) (storage.Transaction, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	work := make(map[string]*store, len(collectionNames))
	for _, name := range collectionNames {
		base, ok := a.stores[name]
		if !ok {
			base = newStore()
			a.stores[name] = base
		}
		work[name] = base.clone()
	}
	return &tx{adapter: a, mode: mode, work: work, done: make(chan struct{})}, nil
}

type tx struct {
	adapter *Adapter
	mode    storage.Mode
	work    map[string]*store
	mu      sync.Mutex
	closed  bool
	done    chan struct{}
}

func (t *tx) GetCollection(name string) storage.CollectionInTx {
	return &collView{a: t.adapter, name: name, tx: t}
}

func (t *tx) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.adapter.mu.Lock()
	for name, s := range t.work {
		t.adapter.stores[name] = s
	}
	t.adapter.mu.Unlock()
	t.closed = true
	close(t.done)
	return nil
}

func (t *tx) Abort() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	close(t.done)
	return nil
}

func (t *tx) Done() <-chan struct{} {
	return t.done
}

// collView is a Collection/CollectionInTx implementation over either the
// adapter's live store (ad-hoc reads, tx == nil) or a transaction's working
// copy (tx != nil).
type collView struct {
	a    *Adapter
	name string
	tx   *tx
}

func (c *collView) store() *store {
	if c.tx != nil {
		return c.tx.work[c.name]
	}
	c.a.mu.Lock()
	defer c.a.mu.Unlock()
	s, ok := c.a.stores[c.name]
	if !ok {
		s = newStore()
		c.a.stores[c.name] = s
	}
	return s
}

func (c *collView) withLock(fn func(s *store)) {
	if c.tx != nil {
		c.tx.mu.Lock()
		defer c.tx.mu.Unlock()
		fn(c.tx.work[c.name])
		return
	}
	c.a.mu.Lock()
	defer c.a.mu.Unlock()
	s, ok := c.a.stores[c.name]
	if !ok {
		s = newStore()
		c.a.stores[c.name] = s
	}
	fn(s)
}

func (c *collView) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	var data []byte
	var ok bool
	c.withLock(func(s *store) {
		data, ok = s.rows[key]
	})
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dest)
}

func (c *collView) GetAll(ctx context.Context, dest interface{}) error {
	return c.Query(ctx, storage.QueryOptions{}, dest)
}

func (c *collView) Put(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	var outerErr error
	c.withLock(func(s *store) {
		// Drop stale index entries for any previous value at key.
		if old, existed := s.rows[key]; existed {
			removeFromIndexes(s, c.name, key, old)
		}
		for _, spec := range storage.IndexesOf(c.name) {
			rec := storage.NewRecord(c.name)
			if uerr := json.Unmarshal(data, rec); uerr != nil {
				outerErr = uerr
				return
			}
			idxKey := spec.Key(rec)
			m, ok := s.indexes[spec.Name]
			if !ok {
				m = map[string][]string{}
				s.indexes[spec.Name] = m
			}
			if spec.Unique {
				if existing, has := m[idxKey]; has && len(existing) > 0 && existing[0] != key {
					outerErr = vfserr.New(vfserr.AlreadyExists, "unique index %s violated for key %q", spec.Name, idxKey)
					return
				}
			}
			m[idxKey] = appendUnique(m[idxKey], key)
		}
		s.rows[key] = data
	})
	return outerErr
}

func (c *collView) Delete(ctx context.Context, key string) error {
	c.withLock(func(s *store) {
		if old, ok := s.rows[key]; ok {
			removeFromIndexes(s, c.name, key, old)
			delete(s.rows, key)
		}
	})
	return nil
}

func (c *collView) Clear(ctx context.Context) error {
	c.withLock(func(s *store) {
		s.rows = map[string][]byte{}
		s.indexes = map[string]map[string][]string{}
	})
	return nil
}

func (c *collView) Count(ctx context.Context) (int, error) {
	n := 0
	c.withLock(func(s *store) { n = len(s.rows) })
	return n, nil
}

func (c *collView) GetByIndex(ctx context.Context, index string, value interface{}, dest interface{}) (bool, error) {
	keys := c.keysForIndex(index, value)
	if len(keys) == 0 {
		return false, nil
	}
	return c.Get(ctx, keys[0], dest)
}

func (c *collView) GetAllByIndex(ctx context.Context, index string, value interface{}, dest interface{}) error {
	return c.Query(ctx, storage.QueryOptions{Index: index, Range: &storage.Range{Lower: value, Upper: value}}, dest)
}

func (c *collView) keysForIndex(index string, value interface{}) []string {
	var keys []string
	c.withLock(func(s *store) {
		m := s.indexes[index]
		keys = append([]string(nil), m[toIndexString(value)]...)
	})
	return keys
}

// Query decodes every matching row (optionally narrowed by Range over
// Index, filtered, ordered, and paginated) into dest, a pointer to a slice
// of the collection's record type.
func (c *collView) Query(ctx context.Context, opts storage.QueryOptions, dest interface{}) error {
	var rows []row
	c.withLock(func(s *store) {
		if opts.Index == "" || opts.Range == nil {
			for k, v := range s.rows {
				rows = append(rows, row{k, v})
			}
			return
		}
		seen := map[string]bool{}
		for idxKey, pks := range s.indexes[opts.Index] {
			if !inRange(idxKey, opts.Range) {
				continue
			}
			for _, pk := range pks {
				if seen[pk] {
					continue
				}
				seen[pk] = true
				if v, ok := s.rows[pk]; ok {
					rows = append(rows, row{pk, v})
				}
			}
		}
	})

	sort.Slice(rows, func(i, j int) bool {
		if opts.Direction == storage.Prev {
			return rows[i].key > rows[j].key
		}
		return rows[i].key < rows[j].key
	})

	results := decodeRows(c.name, rows, opts.Filter)

	if opts.Offset > 0 {
		if opts.Offset >= len(results) {
			results = nil
		} else {
			results = results[opts.Offset:]
		}
	}
	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return assignSlice(dest, results)
}

func (c *collView) BulkPut(ctx context.Context, keys []string, values []interface{}) error {
	for i, k := range keys {
		if err := c.Put(ctx, k, values[i]); err != nil {
			return err
		}
	}
	return nil
}

func (c *collView) BulkDelete(ctx context.Context, keys []string) error {
	for _, k := range keys {
		if err := c.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}
