// Package badgeradapter is the durable storage.Adapter backend: an
// embedded, transactional on-disk key-value store (BadgerDB) modeling the
// six collections and their secondary indexes as key prefixes, with JSON
// row serialization.
//
// Key layout:
//
//	p:<collection>:<primaryKey>                                  -> JSON row
//	i:<collection>:<indexName>:<indexKey>\x00<primaryKey>         -> "" (marker)
//
// A secondary index lookup is a prefix scan over
// "i:<collection>:<indexName>:<indexKey>\x00", trimming the primary key off
// the tail of the matched keys. Range queries (e.g. the dueAt index) scan
// "i:<collection>:<indexName>:" and compare the <indexKey> segment
// lexicographically, which the caller's IndexSpec.Key encoding (a fixed-
// width zero-padded decimal for numeric fields) makes equivalent to numeric
// ordering.
package badgeradapter

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/worldiety/vfsengine/storage"
	"github.com/worldiety/vfsengine/vfserr"
	"github.com/worldiety/vfsengine/vfslog"
)

// Adapter is the BadgerDB-backed storage.Adapter.
type Adapter struct {
	mu         sync.Mutex
	db         *badger.DB
	dataDir    string
	inMemory   bool
	syncWrites bool
}

// Options configures a new Adapter.
type Options struct {
	// DataDir is the directory Badger persists to. Ignored if InMemory.
	DataDir string
	// InMemory runs Badger in memory-only mode, useful for tests that still
	// want exact badger semantics without touching disk.
	InMemory bool
	// SyncWrites forces fsync after each commit. Slower, more durable.
	SyncWrites bool
}

// New builds an adapter from opts. Connect must still be called.
func New(opts Options) *Adapter {
	return &Adapter{dataDir: opts.DataDir, inMemory: opts.InMemory, syncWrites: opts.SyncWrites}
}

func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.db != nil {
		return nil
	}
	bopts := badger.DefaultOptions(a.dataDir)
	if a.inMemory {
		bopts = bopts.WithInMemory(true)
	}
	bopts = bopts.WithSyncWrites(a.syncWrites).WithLogger(nil)
	db, err := badger.Open(bopts)
	if err != nil {
		return vfserr.Wrap(err, vfserr.TransactionFailed, "opening badger db at %q", a.dataDir)
	}
	a.db = db
	storageLog := vfslog.Component("storage")
	storageLog.Info().Str("dir", a.dataDir).Bool("inMemory", a.inMemory).Msg("badger adapter connected")
	return nil
}

func (a *Adapter) Disconnect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

func (a *Adapter) Destroy(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.db == nil {
		return nil
	}
	return a.db.DropAll()
}

func primaryKey(coll, key string) []byte {
	return []byte("p:" + coll + ":" + key)
}

func indexPrefix(coll, index string) []byte {
	return []byte("i:" + coll + ":" + index + ":")
}

func indexEntryKey(coll, index, idxKey, primary string) []byte {
	return []byte("i:" + coll + ":" + index + ":" + idxKey + "\x00" + primary)
}

func (a *Adapter) GetCollection(name string) storage.Collection {
	return &collView{a: a, name: name}
}

func (a *Adapter) BeginTransaction(ctx context.Context, collections []string, mode storage.Mode) (storage.Transaction, error) {
	if a.db == nil {
		return nil, vfserr.New(vfserr.TransactionFailed, "badger adapter not connected")
	}
	txn := a.db.NewTransaction(mode == storage.ReadWrite)
	return &tx{a: a, txn: txn, done: make(chan struct{})}, nil
}

type tx struct {
	a      *Adapter
	txn    *badger.Txn
	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func (t *tx) GetCollection(name string) storage.CollectionInTx {
	return &collView{a: t.a, name: name, txn: t.txn}
}

func (t *tx) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	defer close(t.done)
	if err := t.txn.Commit(); err != nil {
		return vfserr.Wrap(err, vfserr.TransactionFailed, "commit failed")
	}
	return nil
}

func (t *tx) Abort() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	t.txn.Discard()
	close(t.done)
	return nil
}

func (t *tx) Done() <-chan struct{} {
	return t.done
}

// collView implements storage.Collection/CollectionInTx over badger, either
// against an explicit transaction (txn != nil) or a short-lived ad-hoc one.
type collView struct {
	a    *Adapter
	name string
	txn  *badger.Txn
}

func (c *collView) runView(fn func(txn *badger.Txn) error) error {
	if c.txn != nil {
		return fn(c.txn)
	}
	return c.a.db.View(fn)
}

func (c *collView) runUpdate(fn func(txn *badger.Txn) error) error {
	if c.txn != nil {
		return fn(c.txn)
	}
	return c.a.db.Update(fn)
}

func (c *collView) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	found := false
	err := c.runView(func(txn *badger.Txn) error {
		item, err := txn.Get(primaryKey(c.name, key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, dest)
		})
	})
	return found, err
}

func (c *collView) GetAll(ctx context.Context, dest interface{}) error {
	return c.Query(ctx, storage.QueryOptions{}, dest)
}

func (c *collView) Put(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.runUpdate(func(txn *badger.Txn) error {
		// Drop stale index entries for a previous value at key.
		if item, gerr := txn.Get(primaryKey(c.name, key)); gerr == nil {
			var old []byte
			if verr := item.Value(func(val []byte) error { old = append([]byte(nil), val...); return nil }); verr != nil {
				return verr
			}
			if derr := deleteIndexEntries(txn, c.name, key, old); derr != nil {
				return derr
			}
		}
		for _, spec := range storage.IndexesOf(c.name) {
			rec := storage.NewRecord(c.name)
			if uerr := json.Unmarshal(data, rec); uerr != nil {
				return uerr
			}
			idxKey := spec.Key(rec)
			if spec.Unique {
				if conflict, cerr := hasOtherIndexEntry(txn, c.name, spec.Name, idxKey, key); cerr != nil {
					return cerr
				} else if conflict {
					return vfserr.New(vfserr.AlreadyExists, "unique index %s violated for key %q", spec.Name, idxKey)
				}
			}
			if err := txn.Set(indexEntryKey(c.name, spec.Name, idxKey, key), []byte{}); err != nil {
				return err
			}
		}
		return txn.Set(primaryKey(c.name, key), data)
	})
}

func hasOtherIndexEntry(txn *badger.Txn, coll, index, idxKey, excludeKey string) (bool, error) {
	prefix := append(indexPrefix(coll, index), []byte(idxKey+"\x00")...)
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		full := string(it.Item().Key())
		pk := full[strings.LastIndexByte(full, '\x00')+1:]
		if pk != excludeKey {
			return true, nil
		}
	}
	return false, nil
}

func deleteIndexEntries(txn *badger.Txn, coll, key string, oldData []byte) error {
	for _, spec := range storage.IndexesOf(coll) {
		rec := storage.NewRecord(coll)
		if err := json.Unmarshal(oldData, rec); err != nil {
			continue
		}
		idxKey := spec.Key(rec)
		if err := txn.Delete(indexEntryKey(coll, spec.Name, idxKey, key)); err != nil && err != badger.ErrKeyNotFound {
			return err
		}
	}
	return nil
}

func (c *collView) Delete(ctx context.Context, key string) error {
	return c.runUpdate(func(txn *badger.Txn) error {
		item, err := txn.Get(primaryKey(c.name, key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		var old []byte
		if verr := item.Value(func(val []byte) error { old = append([]byte(nil), val...); return nil }); verr != nil {
			return verr
		}
		if derr := deleteIndexEntries(txn, c.name, key, old); derr != nil {
			return derr
		}
		return txn.Delete(primaryKey(c.name, key))
	})
}

func (c *collView) Clear(ctx context.Context) error {
	var keys [][]byte
	err := c.runView(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte("p:" + c.name + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, append([]byte(nil), it.Item().Key()...))
		}
		iprefix := []byte("i:" + c.name + ":")
		it2 := txn.NewIterator(opts)
		defer it2.Close()
		for it2.Seek(iprefix); it2.ValidForPrefix(iprefix); it2.Next() {
			keys = append(keys, append([]byte(nil), it2.Item().Key()...))
		}
		return nil
	})
	if err != nil {
		return err
	}
	return c.runUpdate(func(txn *badger.Txn) error {
		for _, k := range keys {
			if err := txn.Delete(k); err != nil && err != badger.ErrKeyNotFound {
				return err
			}
		}
		return nil
	})
}

func (c *collView) Count(ctx context.Context) (int, error) {
	n := 0
	err := c.runView(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte("p:" + c.name + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

func (c *collView) GetByIndex(ctx context.Context, index string, value interface{}, dest interface{}) (bool, error) {
	keys := c.primaryKeysForIndex(index, fmt.Sprintf("%v", value))
	if len(keys) == 0 {
		return false, nil
	}
	return c.Get(ctx, keys[0], dest)
}

func (c *collView) GetAllByIndex(ctx context.Context, index string, value interface{}, dest interface{}) error {
	return c.Query(ctx, storage.QueryOptions{Index: index, Range: &storage.Range{Lower: value, Upper: value}}, dest)
}

func (c *collView) primaryKeysForIndex(index, idxKey string) []string {
	var keys []string
	_ = c.runView(func(txn *badger.Txn) error {
		prefix := append(indexPrefix(c.name, index), []byte(idxKey+"\x00")...)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			full := string(it.Item().Key())
			keys = append(keys, full[strings.LastIndexByte(full, '\x00')+1:])
		}
		return nil
	})
	return keys
}

func (c *collView) Query(ctx context.Context, opts storage.QueryOptions, dest interface{}) error {
	var primaryKeys []string
	if opts.Index == "" || opts.Range == nil {
		err := c.runView(func(txn *badger.Txn) error {
			bopts := badger.DefaultIteratorOptions
			bopts.PrefetchValues = false
			it := txn.NewIterator(bopts)
			defer it.Close()
			prefix := []byte("p:" + c.name + ":")
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				primaryKeys = append(primaryKeys, strings.TrimPrefix(string(it.Item().Key()), string(prefix)))
			}
			return nil
		})
		if err != nil {
			return err
		}
	} else {
		var lower, upper *string
		if opts.Range.Lower != nil {
			v := fmt.Sprintf("%v", opts.Range.Lower)
			lower = &v
		}
		if opts.Range.Upper != nil {
			v := fmt.Sprintf("%v", opts.Range.Upper)
			upper = &v
		}
		seen := map[string]bool{}
		err := c.runView(func(txn *badger.Txn) error {
			bopts := badger.DefaultIteratorOptions
			bopts.PrefetchValues = false
			it := txn.NewIterator(bopts)
			defer it.Close()
			prefix := indexPrefix(c.name, opts.Index)
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				full := string(it.Item().Key())
				rest := strings.TrimPrefix(full, string(prefix))
				sep := strings.LastIndexByte(rest, '\x00')
				idxKey, pk := rest[:sep], rest[sep+1:]
				if lower != nil {
					if opts.Range.LowerOpen {
						if idxKey <= *lower {
							continue
						}
					} else if idxKey < *lower {
						continue
					}
				}
				if upper != nil {
					if opts.Range.UpperOpen {
						if idxKey >= *upper {
							continue
						}
					} else if idxKey > *upper {
						continue
					}
				}
				if !seen[pk] {
					seen[pk] = true
					primaryKeys = append(primaryKeys, pk)
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	sort.Strings(primaryKeys)
	if opts.Direction == storage.Prev {
		for i, j := 0, len(primaryKeys)-1; i < j; i, j = i+1, j-1 {
			primaryKeys[i], primaryKeys[j] = primaryKeys[j], primaryKeys[i]
		}
	}

	results := make([]interface{}, 0, len(primaryKeys))
	err := c.runView(func(txn *badger.Txn) error {
		for _, pk := range primaryKeys {
			item, err := txn.Get(primaryKey(c.name, pk))
			if err == badger.ErrKeyNotFound {
				continue
			}
			if err != nil {
				return err
			}
			rec := storage.NewRecord(c.name)
			if verr := item.Value(func(val []byte) error { return json.Unmarshal(val, rec) }); verr != nil {
				return verr
			}
			if opts.Filter != nil && !opts.Filter(rec) {
				continue
			}
			results = append(results, rec)
		}
		return nil
	})
	if err != nil {
		return err
	}

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
