package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worldiety/vfsengine/model"
)

func TestSearchNodesByNameAndType(t *testing.T) {
	e := newTestEngine(t)
	mustMount(t, e, "notes")
	ctx := context.Background()

	_, err := e.CreateNode(ctx, CreateParams{Module: "notes", Path: "/Recipes.md", Type: model.File})
	require.NoError(t, err)
	_, err = e.CreateNode(ctx, CreateParams{Module: "notes", Path: "/recipes", Type: model.Directory})
	require.NoError(t, err)

	files, err := e.SearchNodes(ctx, SearchParams{NameContains: "recipe", Type: model.File})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "Recipes.md", files[0].Name)
}

func TestSearchNodesRestrictsToScope(t *testing.T) {
	e := newTestEngine(t)
	mustMount(t, e, "a")
	mustMount(t, e, "b")
	ctx := context.Background()

	_, err := e.CreateNode(ctx, CreateParams{Module: "a", Path: "/x.md", Type: model.File})
	require.NoError(t, err)
	_, err = e.CreateNode(ctx, CreateParams{Module: "b", Path: "/x.md", Type: model.File})
	require.NoError(t, err)

	got, err := e.SearchNodes(ctx, SearchParams{Scope: []string{"a"}})
	require.NoError(t, err)
	for _, v := range got {
		assert.Equal(t, "a", v.ModuleID)
	}
}

func TestSearchNodesRequiresTagIntersection(t *testing.T) {
	e := newTestEngine(t)
	mustMount(t, e, "notes")
	ctx := context.Background()

	v1, err := e.CreateNode(ctx, CreateParams{Module: "notes", Path: "/a.md", Type: model.File})
	require.NoError(t, err)
	v2, err := e.CreateNode(ctx, CreateParams{Module: "notes", Path: "/b.md", Type: model.File})
	require.NoError(t, err)

	require.NoError(t, e.AddTag(ctx, v1.NodeID, "x"))
	require.NoError(t, e.AddTag(ctx, v1.NodeID, "y"))
	require.NoError(t, e.AddTag(ctx, v2.NodeID, "x"))

	got, err := e.SearchNodes(ctx, SearchParams{Tags: []string{"x", "y"}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, v1.NodeID, got[0].NodeID)
}

func TestSearchNodesRespectsLimit(t *testing.T) {
	e := newTestEngine(t)
	mustMount(t, e, "notes")
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := e.CreateNode(ctx, CreateParams{Module: "notes", Path: "/f" + string(rune('a'+i)) + ".md", Type: model.File})
		require.NoError(t, err)
	}

	got, err := e.SearchNodes(ctx, SearchParams{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
