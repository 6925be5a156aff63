// Package modreg is the module registry: an in-memory name->ModuleInfo map
// mirrored to the modules collection. A module's entry is a VNode subtree
// managed by the engine, not a separate storage instance.
package modreg

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/worldiety/vfsengine/engine"
	"github.com/worldiety/vfsengine/eventbus"
	"github.com/worldiety/vfsengine/model"
	"github.com/worldiety/vfsengine/storage"
	"github.com/worldiety/vfsengine/vfserr"
	"github.com/worldiety/vfsengine/vfslog"
)

// MountOptions configures Mount and Update.
type MountOptions struct {
	Description string
	IsProtected bool
}

// Registry is the module registry, bound to one Engine, one storage Adapter
// for the modules collection, and the event bus module lifecycle events are
// published on.
type Registry struct {
	mu      sync.RWMutex
	engine  *engine.Engine
	adapter storage.Adapter
	bus     *eventbus.Bus
	log     zerolog.Logger
	byName  map[string]*model.ModuleInfo
}

// New builds an empty Registry. Call Load before Mount: persisted
// ModuleInfo records must be registered before any defaults are ensured,
// or a restart re-creates the default module over existing data.
func New(eng *engine.Engine, adapter storage.Adapter, bus *eventbus.Bus) *Registry {
	return &Registry{engine: eng, adapter: adapter, bus: bus, log: vfslog.Component("modreg"), byName: map[string]*model.ModuleInfo{}}
}

// Load populates the in-memory map from every persisted ModuleInfo record,
// without touching the engine. Must run before the first Mount call.
func (r *Registry) Load(ctx context.Context) error {
	var modules []model.ModuleInfo
	if err := r.adapter.GetCollection(storage.CollModules).GetAll(ctx, &modules); err != nil {
		return vfserr.Wrap(err, vfserr.TransactionFailed, "loading modules")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range modules {
		m := modules[i]
		r.byName[m.Name] = &m
	}
	return nil
}

// Get returns the ModuleInfo for name, if mounted.
func (r *Registry) Get(name string) (*model.ModuleInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byName[name]
	return m, ok
}

// List returns every mounted module's info.
func (r *Registry) List() []*model.ModuleInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.ModuleInfo, 0, len(r.byName))
	for _, m := range r.byName {
		out = append(out, m)
	}
	return out
}

// Mount ensures module name exists: a no-op if already registered, else it
// creates the module's root directory node via the engine (so path
// invariants are enforced), registers it in memory, and persists its
// ModuleInfo, rolling back the in-memory registration on a persistence
// failure.
func (r *Registry) Mount(ctx context.Context, name string, opts MountOptions) (*model.ModuleInfo, error) {
	r.mu.Lock()
	if existing, ok := r.byName[name]; ok {
		r.mu.Unlock()
		return existing, nil
	}
	r.mu.Unlock()

	root, err := r.engine.CreateNode(ctx, engine.CreateParams{
		Module: name,
		Path:   "/",
		Type:   model.Directory,
		Metadata: map[string]interface{}{
			model.MetaIsProtected: opts.IsProtected,
		},
	})
	if err != nil {
		return nil, err
	}

	info := &model.ModuleInfo{
		Name: name, RootNodeID: root.NodeID, Description: opts.Description,
		IsProtected: opts.IsProtected, CreatedAt: model.NowMillis(),
	}

	r.mu.Lock()
	r.byName[name] = info
	r.mu.Unlock()

	if err := r.adapter.GetCollection(storage.CollModules).Put(ctx, name, info); err != nil {
		r.mu.Lock()
		delete(r.byName, name)
		r.mu.Unlock()
		r.log.Error().Err(err).Str("module", name).Msg("persisting module info failed, rolled back registration")
		return nil, vfserr.Wrap(err, vfserr.TransactionFailed, "persisting module %s", name)
	}

	r.bus.Emit(eventbus.Event{
		Type: eventbus.ModuleMounted, ModuleID: name, Path: root.SystemPath,
		Timestamp: model.NowMillis(), Data: info,
	})
	return info, nil
}

// Update rewrites module name's Description and IsProtected flags, persists
// the new ModuleInfo, and emits MODULE_UPDATED. The in-memory entry is
// restored to its prior state on a persistence failure.
func (r *Registry) Update(ctx context.Context, name string, opts MountOptions) (*model.ModuleInfo, error) {
	r.mu.Lock()
	prev, ok := r.byName[name]
	if !ok {
		r.mu.Unlock()
		return nil, vfserr.New(vfserr.NotFound, "module %s not mounted", name)
	}
	updated := *prev
	updated.Description = opts.Description
	updated.IsProtected = opts.IsProtected
	r.byName[name] = &updated
	r.mu.Unlock()

	if err := r.adapter.GetCollection(storage.CollModules).Put(ctx, name, &updated); err != nil {
		r.mu.Lock()
		r.byName[name] = prev
		r.mu.Unlock()
		r.log.Error().Err(err).Str("module", name).Msg("persisting module update failed, rolled back")
		return nil, vfserr.Wrap(err, vfserr.TransactionFailed, "updating module %s", name)
	}

	r.bus.Emit(eventbus.Event{
		Type: eventbus.ModuleUpdated, ModuleID: name,
		Timestamp: model.NowMillis(), Data: &updated,
	})
	return &updated, nil
}

// Unmount recursively deletes module name's root, then removes its
// in-memory and persisted ModuleInfo, rolling back the in-memory removal on
// a persistence failure.
func (r *Registry) Unmount(ctx context.Context, name string) error {
	r.mu.RLock()
	info, ok := r.byName[name]
	r.mu.RUnlock()
	if !ok {
		return vfserr.New(vfserr.NotFound, "module %s not mounted", name)
	}

	if err := r.engine.Unlink(ctx, info.RootNodeID, true); err != nil {
		return err
	}

	r.mu.Lock()
	delete(r.byName, name)
	r.mu.Unlock()

	if err := r.adapter.GetCollection(storage.CollModules).Delete(ctx, name); err != nil {
		r.mu.Lock()
		r.byName[name] = info
		r.mu.Unlock()
		r.log.Error().Err(err).Str("module", name).Msg("removing persisted module info failed, rolled back removal")
		return vfserr.Wrap(err, vfserr.TransactionFailed, "removing module %s", name)
	}

	r.bus.Emit(eventbus.Event{
		Type: eventbus.ModuleUnmounted, ModuleID: name,
		Timestamp: model.NowMillis(), Data: info,
	})
	return nil
}
