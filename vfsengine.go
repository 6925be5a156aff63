package vfsengine

import (
	"context"

	"github.com/worldiety/vfsengine/engine"
	"github.com/worldiety/vfsengine/eventbus"
	"github.com/worldiety/vfsengine/facade"
	"github.com/worldiety/vfsengine/middleware"
	"github.com/worldiety/vfsengine/model"
	"github.com/worldiety/vfsengine/modreg"
	"github.com/worldiety/vfsengine/storage"
)

// Config re-exports facade.Config so callers configuring the package-level
// singleton don't need to import facade directly.
type Config = facade.Config

// Open connects the adapter, builds the engine/middleware/module-registry
// stack and installs the result as the process-wide default. Returns the
// constructed VFS in case the caller wants to keep an explicit handle
// alongside the singleton.
func Open(ctx context.Context, cfg Config) (*facade.VFS, error) {
	v, err := facade.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	facade.SetDefault(v)
	return v, nil
}

// Default returns the process-wide VFS singleton. Panics if Open/SetDefault
// has not been called yet.
func Default() *facade.VFS {
	return facade.Default()
}

// SetDefault installs v as the process-wide singleton, per
// facade.SetDefault.
func SetDefault(v *facade.VFS) {
	facade.SetDefault(v)
}

// Shutdown tears down the default VFS: delegates to Default().Shutdown.
func Shutdown(ctx context.Context) error {
	return Default().Shutdown(ctx)
}

// CreateFile delegates to Default().CreateFile.
func CreateFile(ctx context.Context, module, path string, content []byte, metadata map[string]interface{}) (*model.VNode, error) {
	return Default().CreateFile(ctx, module, path, content, metadata)
}

// CreateDirectory delegates to Default().CreateDirectory.
func CreateDirectory(ctx context.Context, module, path string, metadata map[string]interface{}) (*model.VNode, error) {
	return Default().CreateDirectory(ctx, module, path, metadata)
}

// Read delegates to Default().Read.
func Read(ctx context.Context, nodeID string) ([]byte, error) {
	return Default().Read(ctx, nodeID)
}

// Write delegates to Default().Write.
func Write(ctx context.Context, nodeID string, content []byte) (*model.VNode, error) {
	return Default().Write(ctx, nodeID, content)
}

// Delete delegates to Default().Delete.
func Delete(ctx context.Context, nodeID string, recursive bool) error {
	return Default().Delete(ctx, nodeID, recursive)
}

// Move delegates to Default().Move.
func Move(ctx context.Context, nodeID, newUserPath string) (*model.VNode, error) {
	return Default().Move(ctx, nodeID, newUserPath)
}

// ReadDir delegates to Default().ReadDir.
func ReadDir(ctx context.Context, dirID string) ([]*model.VNode, error) {
	return Default().ReadDir(ctx, dirID)
}

// SearchNodes delegates to Default().SearchNodes.
func SearchNodes(ctx context.Context, params engine.SearchParams) ([]*model.VNode, error) {
	return Default().SearchNodes(ctx, params)
}

// Modules returns the default VFS's module registry.
func Modules() *modreg.Registry {
	return Default().Modules()
}

// GetEventBus returns the default VFS's event bus.
func GetEventBus() *eventbus.Bus {
	return Default().GetEventBus()
}

// GetMiddlewareRegistry returns the default VFS's middleware registry.
func GetMiddlewareRegistry() *middleware.Registry {
	return Default().GetMiddlewareRegistry()
}

// CopyDatabase re-exports facade.CopyDatabase for package-level callers.
func CopyDatabase(ctx context.Context, src, dst storage.Adapter) error {
	return facade.CopyDatabase(ctx, src, dst)
}
