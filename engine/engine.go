// Package engine is the VFS core: node CRUD, traversal, and the
// move/copy/delete algorithms atop the storage adapter, path resolver,
// event bus, and middleware registry. One engine call wraps exactly one
// storage transaction; events fire only after that transaction is done.
package engine

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/worldiety/vfsengine/eventbus"
	"github.com/worldiety/vfsengine/middleware"
	"github.com/worldiety/vfsengine/model"
	"github.com/worldiety/vfsengine/storage"
	"github.com/worldiety/vfsengine/vfserr"
	"github.com/worldiety/vfsengine/vfslog"
	"github.com/worldiety/vfsengine/vfspath"
)

// allCollections is the fixed set of collections an engine transaction may
// touch; every engine call begins one transaction spanning whichever of
// these it needs.
var allCollections = []string{
	storage.CollVNodes, storage.CollContents, storage.CollModules,
	storage.CollTags, storage.CollNodeTags, storage.CollSRSItems,
}

// Engine is the VFS core, bound to one storage adapter, event bus, and
// middleware registry.
type Engine struct {
	adapter  storage.Adapter
	bus      *eventbus.Bus
	registry *middleware.Registry
	log      zerolog.Logger

	// nodeLocks serializes concurrent engine calls against the same
	// nodeId: two concurrent writes on one node are linearized in call
	// order instead of interleaving their transactions.
	nodeLocks sync.Map // nodeID -> *sync.Mutex

	// cache is a small LRU of hot VNode reads sitting in front of the
	// storage adapter. Invalidated (Remove) on every write/delete/move of
	// the node it holds, inside the same call that commits the mutation.
	cache *lru.Cache[string, *model.VNode]
}

// New builds an Engine over adapter, bus, and registry. cacheSize <= 0
// disables the read cache.
func New(adapter storage.Adapter, bus *eventbus.Bus, registry *middleware.Registry, cacheSize int) *Engine {
	e := &Engine{adapter: adapter, bus: bus, registry: registry, log: vfslog.Component("engine")}
	if cacheSize > 0 {
		c, err := lru.New[string, *model.VNode](cacheSize)
		if err == nil {
			e.cache = c
		}
	}
	return e
}

func (e *Engine) lockFor(nodeID string) *sync.Mutex {
	v, _ := e.nodeLocks.LoadOrStore(nodeID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

func (e *Engine) invalidate(nodeID string) {
	if e.cache != nil {
		e.cache.Remove(nodeID)
	}
}

func (e *Engine) cachePut(v *model.VNode) {
	if e.cache != nil && v != nil {
		e.cache.Add(v.NodeID, v.Clone())
	}
}

// GetNode fetches a VNode by id, consulting the cache before the adapter.
func (e *Engine) GetNode(ctx context.Context, nodeID string) (*model.VNode, error) {
	if e.cache != nil {
		if v, ok := e.cache.Get(nodeID); ok {
			return v.Clone(), nil
		}
	}
	var v model.VNode
	found, err := e.adapter.GetCollection(storage.CollVNodes).Get(ctx, nodeID, &v)
	if err != nil {
		return nil, vfserr.Wrap(err, vfserr.TransactionFailed, "reading node %s", nodeID)
	}
	if !found {
		return nil, vfserr.New(vfserr.NotFound, "node %s not found", nodeID)
	}
	e.cachePut(&v)
	return &v, nil
}

// NodeIDByPath implements vfspath.Index so a Resolver can be built directly
// over this Engine.
func (e *Engine) NodeIDByPath(moduleID, systemPath string) (string, bool) {
	var v model.VNode
	found, err := e.adapter.GetCollection(storage.CollVNodes).GetByIndex(
		context.Background(), storage.IdxModulePath, storage.VNodePathKey(moduleID, systemPath), &v)
	if err != nil || !found {
		return "", false
	}
	return v.NodeID, true
}

// Resolver returns a vfspath.Resolver bound to this engine's live index.
func (e *Engine) Resolver() *vfspath.Resolver {
	return vfspath.NewResolver(e)
}

// ReadDir returns the direct children of a directory node.
func (e *Engine) ReadDir(ctx context.Context, dirID string) ([]*model.VNode, error) {
	dir, err := e.GetNode(ctx, dirID)
	if err != nil {
		return nil, err
	}
	if !dir.IsDir() {
		return nil, vfserr.New(vfserr.InvalidOperation, "%s is not a directory", dirID)
	}
	var children []*model.VNode
	err = e.adapter.GetCollection(storage.CollVNodes).GetAllByIndex(ctx, storage.IdxParentID, dirID, &children)
	if err != nil {
		return nil, vfserr.Wrap(err, vfserr.TransactionFailed, "listing children of %s", dirID)
	}
	return children, nil
}

// NodeStat is the typed projection over the well-known vnode.metadata keys.
type NodeStat struct {
	TaskCount    int
	ClozeCount   int
	MermaidCount int
	IsProtected  bool
	IsAssetDir   bool
	OwnerID      string
	MimeType     string
	Icon         string
}

// asInt normalizes a metadata numeric value that may be an int (set
// in-process by a middleware) or a float64 (decoded off a JSON-backed
// storage adapter) into a plain int.
func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// Stat projects v's well-known metadata keys into a NodeStat.
func Stat(v *model.VNode) NodeStat {
	var s NodeStat
	if v.Metadata == nil {
		return s
	}
	if n, ok := asInt(v.Metadata[model.MetaTaskCount]); ok {
		s.TaskCount = n
	}
	if n, ok := asInt(v.Metadata[model.MetaClozeCount]); ok {
		s.ClozeCount = n
	}
	if n, ok := asInt(v.Metadata[model.MetaMermaidCount]); ok {
		s.MermaidCount = n
	}
	if b, ok := v.Metadata[model.MetaIsProtected].(bool); ok {
		s.IsProtected = b
	}
	if b, ok := v.Metadata[model.MetaIsAssetDir].(bool); ok {
		s.IsAssetDir = b
	}
	if id, ok := v.Metadata[model.MetaOwnerID].(string); ok {
		s.OwnerID = id
	}
	if mt, ok := v.Metadata[model.MetaMimeType].(string); ok {
		s.MimeType = mt
	}
	if icon, ok := v.Metadata[model.MetaIcon].(string); ok {
		s.Icon = icon
	}
	return s
}

func mergeMetadata(base map[string]interface{}, derived map[string]interface{}) map[string]interface{} {
	out := map[string]interface{}{}
	for k, v := range base {
		out[k] = v
	}
	for k, v := range derived {
		out[k] = v
	}
	return out
}
