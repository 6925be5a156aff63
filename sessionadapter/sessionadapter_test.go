package sessionadapter

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worldiety/vfsengine/engine"
	"github.com/worldiety/vfsengine/eventbus"
	"github.com/worldiety/vfsengine/facade"
	"github.com/worldiety/vfsengine/model"
	"github.com/worldiety/vfsengine/modreg"
	"github.com/worldiety/vfsengine/storage/memadapter"
	"github.com/worldiety/vfsengine/vfserr"
)

func newTestVFS(t *testing.T) *facade.VFS {
	t.Helper()
	v, err := facade.New(context.Background(), facade.Config{Adapter: memadapter.New(), CacheSize: 16})
	require.NoError(t, err)
	t.Cleanup(func() { _ = v.Shutdown(context.Background()) })
	return v
}

func TestGetNodeRejectsForeignModule(t *testing.T) {
	vfs := newTestVFS(t)
	ctx := context.Background()
	_, err := vfs.Modules().Mount(ctx, "work", modreg.MountOptions{})
	require.NoError(t, err)

	other, err := vfs.CreateFile(ctx, facade.DefaultModule, "/a.md", nil, nil)
	require.NoError(t, err)

	a := New(vfs, "work")
	_, err = a.GetNode(ctx, other.NodeID)
	require.Error(t, err)
	assert.True(t, vfserr.Is(err, vfserr.NotFound))
}

func TestCreateFileScopedToOwnModule(t *testing.T) {
	vfs := newTestVFS(t)
	ctx := context.Background()
	_, err := vfs.Modules().Mount(ctx, "work", modreg.MountOptions{})
	require.NoError(t, err)

	a := New(vfs, "work")
	f, err := a.CreateFile(ctx, "/report.md", []byte("q3"), nil)
	require.NoError(t, err)
	assert.Equal(t, "work", f.ModuleID)

	got, err := a.ReadContent(ctx, f.NodeID)
	require.NoError(t, err)
	assert.Equal(t, []byte("q3"), got)
}

func TestCreateAssetCreatesSidecarDirectory(t *testing.T) {
	vfs := newTestVFS(t)
	ctx := context.Background()
	_, err := vfs.Modules().Mount(ctx, "work", modreg.MountOptions{})
	require.NoError(t, err)

	a := New(vfs, "work")
	owner, err := a.CreateFile(ctx, "/doc.md", nil, nil)
	require.NoError(t, err)

	asset, err := a.CreateAsset(ctx, owner.NodeID, "image.png", []byte("bin"), nil)
	require.NoError(t, err)
	assert.Equal(t, owner.NodeID, asset.Metadata["ownerId"])
	assert.Equal(t, "/work/.doc.md/image.png", asset.SystemPath)
}

func TestSearchIsForcedToOwnModule(t *testing.T) {
	vfs := newTestVFS(t)
	ctx := context.Background()
	_, err := vfs.Modules().Mount(ctx, "work", modreg.MountOptions{})
	require.NoError(t, err)

	_, err = vfs.CreateFile(ctx, facade.DefaultModule, "/x.md", nil, nil)
	require.NoError(t, err)
	_, err = vfs.CreateFile(ctx, "work", "/x.md", nil, nil)
	require.NoError(t, err)

	a := New(vfs, "work")
	results, err := a.Search(ctx, engine.SearchParams{})
	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, "work", r.ModuleID)
	}
}

func TestOnFiltersOtherModulesAndHiddenPaths(t *testing.T) {
	vfs := newTestVFS(t)
	ctx := context.Background()
	_, err := vfs.Modules().Mount(ctx, "work", modreg.MountOptions{})
	require.NoError(t, err)

	a := New(vfs, "work")

	var mu sync.Mutex
	var seen []string
	unsub := a.On(eventbus.NodeCreated, func(ev eventbus.Event) {
		mu.Lock()
		seen = append(seen, ev.Path)
		mu.Unlock()
	})
	defer unsub()

	_, err = vfs.CreateFile(ctx, facade.DefaultModule, "/other.md", nil, nil)
	require.NoError(t, err)
	_, err = vfs.CreateFile(ctx, "work", "/visible.md", nil, nil)
	require.NoError(t, err)
	_, err = vfs.CreateFile(ctx, "work", "/.hidden.md", nil, nil)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/work/visible.md"}, seen)
}

func TestOnNarrowsBatchEventsToOwnModule(t *testing.T) {
	vfs := newTestVFS(t)
	ctx := context.Background()
	_, err := vfs.Modules().Mount(ctx, "work", modreg.MountOptions{})
	require.NoError(t, err)

	mine, err := vfs.CreateFile(ctx, "work", "/a.md", nil, nil)
	require.NoError(t, err)
	other, err := vfs.CreateFile(ctx, facade.DefaultModule, "/b.md", nil, nil)
	require.NoError(t, err)

	a := New(vfs, "work")
	var got []*model.VNode
	unsub := a.On(eventbus.NodesBatchUpdated, func(ev eventbus.Event) {
		got = ev.Data.([]*model.VNode)
	})
	defer unsub()

	require.NoError(t, vfs.BatchSetTags(ctx, []engine.TagAssignment{
		{NodeID: mine.NodeID, Tags: []string{"t"}},
		{NodeID: other.NodeID, Tags: []string{"t"}},
	}))

	require.Len(t, got, 1)
	assert.Equal(t, mine.NodeID, got[0].NodeID)
}
