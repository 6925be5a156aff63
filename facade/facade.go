// Package facade is the public API surface: the single entry point
// UI/editor code calls instead of touching engine, modreg, or storage
// directly. It owns initialization ordering and the process-wide
// Default()/SetDefault() singleton.
package facade

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/worldiety/vfsengine/engine"
	"github.com/worldiety/vfsengine/eventbus"
	"github.com/worldiety/vfsengine/middleware"
	"github.com/worldiety/vfsengine/middleware/assetdir"
	"github.com/worldiety/vfsengine/middleware/mermaid"
	"github.com/worldiety/vfsengine/middleware/mime"
	"github.com/worldiety/vfsengine/middleware/outline"
	"github.com/worldiety/vfsengine/middleware/tasks"
	"github.com/worldiety/vfsengine/model"
	"github.com/worldiety/vfsengine/modreg"
	"github.com/worldiety/vfsengine/storage"
	"github.com/worldiety/vfsengine/vfslog"
)

// DefaultModule is the module ensured to exist on every fresh VFS, mirroring
// the source system's single always-present workspace.
const DefaultModule = "notes"

// MetaModule is the protected, internal-use module name; it is invisible
// to search and event consumers.
const MetaModule = "__vfs_meta__"

// Config parametrizes New.
type Config struct {
	Adapter         storage.Adapter
	CacheSize       int  // VNode read-cache capacity; <= 0 disables it
	SkipDefault     bool // skip ensuring DefaultModule, for tests that mount their own
	ExtraMiddleware []*middleware.Middleware
}

// VFS is the fully wired facade: storage adapter, event bus, middleware
// registry, engine, and module registry, bound together for one database.
type VFS struct {
	adapter  storage.Adapter
	bus      *eventbus.Bus
	registry *middleware.Registry
	engine   *engine.Engine
	modules  *modreg.Registry
	log      zerolog.Logger
}

var (
	defaultMu  sync.Mutex
	defaultVFS *VFS
)

// New connects the storage adapter, builds the event bus, middleware
// registry and engine, loads persisted modules, registers built-in
// middlewares plus any caller-supplied ones, and ensures the default
// module exists — in that order.
func New(ctx context.Context, cfg Config) (*VFS, error) {
	if err := cfg.Adapter.Connect(ctx); err != nil {
		return nil, err
	}

	bus := eventbus.New()
	registry := middleware.NewRegistry()
	eng := engine.New(cfg.Adapter, bus, registry, cfg.CacheSize)
	modules := modreg.New(eng, cfg.Adapter, bus)
	if err := modules.Load(ctx); err != nil {
		return nil, err
	}

	registry.Register(tasks.New())
	registry.Register(mermaid.New())
	registry.Register(mime.New())
	registry.Register(outline.New())
	registry.Register(assetdir.New())
	for _, mw := range cfg.ExtraMiddleware {
		registry.Register(mw)
	}

	v := &VFS{adapter: cfg.Adapter, bus: bus, registry: registry, engine: eng, modules: modules, log: vfslog.Component("facade")}

	if !cfg.SkipDefault {
		if _, err := modules.Mount(ctx, DefaultModule, modreg.MountOptions{}); err != nil {
			return nil, err
		}
	}

	bus.Emit(eventbus.Event{Type: eventbus.VFSReady, Timestamp: model.NowMillis()})
	return v, nil
}

// Default returns the process-wide VFS singleton. Panics if SetDefault has
// not been called; there is no meaningful zero-config fallback because
// storage backend selection is the caller's decision.
func Default() *VFS {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultVFS == nil {
		panic("facade: no default VFS set; call facade.SetDefault first")
	}
	return defaultVFS
}

// SetDefault installs v as the process-wide singleton.
func SetDefault(v *VFS) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultVFS = v
}

// Shutdown disconnects the storage adapter and, if v is the current
// default, clears the singleton so tests can rebuild a fresh one.
func (v *VFS) Shutdown(ctx context.Context) error {
	defaultMu.Lock()
	if defaultVFS == v {
		defaultVFS = nil
	}
	defaultMu.Unlock()
	return v.adapter.Disconnect(ctx)
}

// GetEventBus returns the facade's event bus.
func (v *VFS) GetEventBus() *eventbus.Bus { return v.bus }

// GetMiddlewareRegistry returns the facade's middleware registry.
func (v *VFS) GetMiddlewareRegistry() *middleware.Registry { return v.registry }

// GetVFS returns the underlying engine.
func (v *VFS) GetVFS() *engine.Engine { return v.engine }

// Modules returns the module registry.
func (v *VFS) Modules() *modreg.Registry { return v.modules }

// CopyDatabase performs a destructive copy from src into dst: dst is reset,
// then every collection's rows are copied verbatim. A package-level
// function because it operates on raw adapters, not a mounted VFS.
func CopyDatabase(ctx context.Context, src, dst storage.Adapter) error {
	if err := dst.Destroy(ctx); err != nil {
		return err
	}
	if err := dst.Connect(ctx); err != nil {
		return err
	}
	for _, coll := range []string{storage.CollVNodes, storage.CollContents, storage.CollModules, storage.CollTags, storage.CollNodeTags, storage.CollSRSItems} {
		if err := copyCollection(ctx, src, dst, coll); err != nil {
			return err
		}
	}
	return nil
}

func copyCollection(ctx context.Context, src, dst storage.Adapter, name string) error {
	rows, err := decodeAll(ctx, src, name)
	if err != nil {
		return err
	}

	tx, err := dst.BeginTransaction(ctx, []string{name}, storage.ReadWrite)
	if err != nil {
		return err
	}
	dstColl := tx.GetCollection(name)
	for _, row := range rows {
		key, err := storage.PrimaryKeyOf(name, row)
		if err != nil {
			_ = tx.Abort()
			return err
		}
		if err := dstColl.Put(ctx, key, row); err != nil {
			_ = tx.Abort()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	<-tx.Done()
	return nil
}

// decodeAll reads every row of collection name into its concrete record
// type, per the schema table in storage.NewRecord.
func decodeAll(ctx context.Context, adapter storage.Adapter, name string) ([]interface{}, error) {
	switch name {
	case storage.CollVNodes:
		var rows []model.VNode
		if err := adapter.GetCollection(name).GetAll(ctx, &rows); err != nil {
			return nil, err
		}
		out := make([]interface{}, len(rows))
		for i := range rows {
			out[i] = &rows[i]
		}
		return out, nil
	case storage.CollContents:
		var rows []model.Content
		if err := adapter.GetCollection(name).GetAll(ctx, &rows); err != nil {
			return nil, err
		}
		out := make([]interface{}, len(rows))
		for i := range rows {
			out[i] = &rows[i]
		}
		return out, nil
	case storage.CollModules:
		var rows []model.ModuleInfo
		if err := adapter.GetCollection(name).GetAll(ctx, &rows); err != nil {
			return nil, err
		}
		out := make([]interface{}, len(rows))
		for i := range rows {
			out[i] = &rows[i]
		}
		return out, nil
	case storage.CollTags:
		var rows []model.Tag
		if err := adapter.GetCollection(name).GetAll(ctx, &rows); err != nil {
			return nil, err
		}
		out := make([]interface{}, len(rows))
		for i := range rows {
			out[i] = &rows[i]
		}
		return out, nil
	case storage.CollNodeTags:
		var rows []model.NodeTag
		if err := adapter.GetCollection(name).GetAll(ctx, &rows); err != nil {
			return nil, err
		}
		out := make([]interface{}, len(rows))
		for i := range rows {
			out[i] = &rows[i]
		}
		return out, nil
	case storage.CollSRSItems:
		var rows []model.SRSItem
		if err := adapter.GetCollection(name).GetAll(ctx, &rows); err != nil {
			return nil, err
		}
		out := make([]interface{}, len(rows))
		for i := range rows {
			out[i] = &rows[i]
		}
		return out, nil
	default:
		return nil, nil
	}
}
