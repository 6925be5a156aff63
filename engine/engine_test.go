package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/worldiety/vfsengine/eventbus"
	"github.com/worldiety/vfsengine/middleware"
	"github.com/worldiety/vfsengine/model"
	"github.com/worldiety/vfsengine/storage/memadapter"
)

// newTestEngine builds an Engine over a fresh in-memory adapter and an empty
// middleware registry, standing up a minimal fixture per test rather than
// sharing global state.
func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	ctx := context.Background()
	adapter := memadapter.New()
	require.NoError(t, adapter.Connect(ctx))
	t.Cleanup(func() { _ = adapter.Disconnect(ctx) })
	return New(adapter, eventbus.New(), middleware.NewRegistry(), 16)
}

func mustMount(t *testing.T, e *Engine, module string) *model.VNode {
	t.Helper()
	root, err := e.CreateNode(context.Background(), CreateParams{Module: module, Path: "/", Type: model.Directory})
	require.NoError(t, err)
	return root
}

func TestResolverLooksUpUserPaths(t *testing.T) {
	e := newTestEngine(t)
	root := mustMount(t, e, "notes")
	ctx := context.Background()

	_, err := e.CreateNode(ctx, CreateParams{Module: "notes", Path: "/d", Type: model.Directory})
	require.NoError(t, err)
	v, err := e.CreateNode(ctx, CreateParams{Module: "notes", Path: "/d/a.md", Type: model.File})
	require.NoError(t, err)

	r := e.Resolver()

	id, ok := r.Resolve("notes", "/d/a.md")
	require.True(t, ok)
	require.Equal(t, v.NodeID, id)

	parentID, ok := r.ResolveParent("notes", "/a.md")
	require.True(t, ok)
	require.Equal(t, root.NodeID, parentID)

	_, ok = r.Resolve("notes", "/missing.md")
	require.False(t, ok)
}
