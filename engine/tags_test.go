package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worldiety/vfsengine/model"
)

func TestAddTagIsIdempotent(t *testing.T) {
	e := newTestEngine(t)
	mustMount(t, e, "notes")
	ctx := context.Background()

	v, err := e.CreateNode(ctx, CreateParams{Module: "notes", Path: "/a.md", Type: model.File})
	require.NoError(t, err)

	require.NoError(t, e.AddTag(ctx, v.NodeID, "important"))
	require.NoError(t, e.AddTag(ctx, v.NodeID, "important"))

	got, err := e.GetNode(ctx, v.NodeID)
	require.NoError(t, err)
	assert.Equal(t, []string{"important"}, got.Tags)
}

func TestRemoveTagLeavesTagDefinitionInPlace(t *testing.T) {
	e := newTestEngine(t)
	mustMount(t, e, "notes")
	ctx := context.Background()

	v, err := e.CreateNode(ctx, CreateParams{Module: "notes", Path: "/a.md", Type: model.File})
	require.NoError(t, err)
	require.NoError(t, e.AddTag(ctx, v.NodeID, "important"))

	require.NoError(t, e.RemoveTag(ctx, v.NodeID, "important"))

	got, err := e.GetNode(ctx, v.NodeID)
	require.NoError(t, err)
	assert.NotContains(t, got.Tags, "important")

	// re-tagging works, proving the tag definition survived the untag.
	require.NoError(t, e.AddTag(ctx, v.NodeID, "important"))
}

func TestSetTagsReplacesFullSet(t *testing.T) {
	e := newTestEngine(t)
	mustMount(t, e, "notes")
	ctx := context.Background()

	v, err := e.CreateNode(ctx, CreateParams{Module: "notes", Path: "/a.md", Type: model.File})
	require.NoError(t, err)
	require.NoError(t, e.AddTag(ctx, v.NodeID, "x"))
	require.NoError(t, e.AddTag(ctx, v.NodeID, "y"))

	require.NoError(t, e.SetTags(ctx, v.NodeID, []string{"y", "z"}))

	got, err := e.GetNode(ctx, v.NodeID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"y", "z"}, got.Tags)
}

func TestBatchSetTagsAppliesToEveryNode(t *testing.T) {
	e := newTestEngine(t)
	mustMount(t, e, "notes")
	ctx := context.Background()

	a, err := e.CreateNode(ctx, CreateParams{Module: "notes", Path: "/a.md", Type: model.File})
	require.NoError(t, err)
	b, err := e.CreateNode(ctx, CreateParams{Module: "notes", Path: "/b.md", Type: model.File})
	require.NoError(t, err)

	require.NoError(t, e.BatchSetTags(ctx, []TagAssignment{
		{NodeID: a.NodeID, Tags: []string{"reviewed"}},
		{NodeID: b.NodeID, Tags: []string{"reviewed", "inbox"}},
	}))

	gotA, err := e.GetNode(ctx, a.NodeID)
	require.NoError(t, err)
	gotB, err := e.GetNode(ctx, b.NodeID)
	require.NoError(t, err)
	assert.Equal(t, []string{"reviewed"}, gotA.Tags)
	assert.ElementsMatch(t, []string{"reviewed", "inbox"}, gotB.Tags)
}
