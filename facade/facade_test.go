package facade

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worldiety/vfsengine/model"
	"github.com/worldiety/vfsengine/storage"
	"github.com/worldiety/vfsengine/storage/memadapter"
)

func newTestVFS(t *testing.T, cfg Config) *VFS {
	t.Helper()
	if cfg.Adapter == nil {
		cfg.Adapter = memadapter.New()
	}
	if cfg.CacheSize == 0 {
		cfg.CacheSize = 16
	}
	v, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = v.Shutdown(context.Background()) })
	return v
}

func TestNewEnsuresDefaultModule(t *testing.T) {
	v := newTestVFS(t, Config{})
	info, ok := v.Modules().Get(DefaultModule)
	require.True(t, ok)
	assert.NotEmpty(t, info.RootNodeID)
}

func TestNewSkipDefaultLeavesNoModulesMounted(t *testing.T) {
	v := newTestVFS(t, Config{SkipDefault: true})
	assert.Empty(t, v.Modules().List())
}

func TestCreateReadWriteRoundTrip(t *testing.T) {
	v := newTestVFS(t, Config{})
	ctx := context.Background()

	f, err := v.CreateFile(ctx, DefaultModule, "/hello.md", []byte("hi"), nil)
	require.NoError(t, err)

	got, err := v.Read(ctx, f.NodeID)
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), got)

	_, err = v.Write(ctx, f.NodeID, []byte("updated"))
	require.NoError(t, err)

	got, err = v.Read(ctx, f.NodeID)
	require.NoError(t, err)
	assert.Equal(t, []byte("updated"), got)
}

func TestRenameChangesBasenameOnly(t *testing.T) {
	v := newTestVFS(t, Config{})
	ctx := context.Background()

	dir, err := v.CreateDirectory(ctx, DefaultModule, "/docs", nil)
	require.NoError(t, err)
	f, err := v.CreateFile(ctx, DefaultModule, "/docs/a.md", nil, nil)
	require.NoError(t, err)

	renamed, err := v.Rename(ctx, f.NodeID, "b.md")
	require.NoError(t, err)
	assert.Equal(t, "b.md", renamed.Name)
	assert.Equal(t, dir.NodeID, renamed.ParentID)
}

func TestGetTreeWalksWholeSubtree(t *testing.T) {
	v := newTestVFS(t, Config{})
	ctx := context.Background()

	root, ok := v.Modules().Get(DefaultModule)
	require.True(t, ok)

	dir, err := v.CreateDirectory(ctx, DefaultModule, "/d", nil)
	require.NoError(t, err)
	_, err = v.CreateFile(ctx, DefaultModule, "/d/a.md", nil, nil)
	require.NoError(t, err)

	tree, err := v.GetTree(ctx, root.RootNodeID)
	require.NoError(t, err)
	assert.Len(t, tree, 3) // module root, /d, /d/a.md
	_ = dir
}

func TestSetDefaultAndDefault(t *testing.T) {
	v := newTestVFS(t, Config{})
	SetDefault(v)
	assert.Same(t, v, Default())
}

func TestDefaultPanicsWithoutSetDefault(t *testing.T) {
	defaultMu.Lock()
	saved := defaultVFS
	defaultVFS = nil
	defaultMu.Unlock()
	defer func() {
		defaultMu.Lock()
		defaultVFS = saved
		defaultMu.Unlock()
	}()

	assert.Panics(t, func() { Default() })
}

func TestCopyDatabaseCopiesAllCollections(t *testing.T) {
	src := memadapter.New()
	dst := memadapter.New()

	v := newTestVFS(t, Config{Adapter: src})
	ctx := context.Background()
	_, err := v.CreateFile(ctx, DefaultModule, "/a.md", []byte("x"), nil)
	require.NoError(t, err)

	require.NoError(t, CopyDatabase(ctx, src, dst))

	var nodes []model.VNode
	require.NoError(t, dst.GetCollection(storage.CollVNodes).GetAll(ctx, &nodes))
	assert.NotEmpty(t, nodes)
}
