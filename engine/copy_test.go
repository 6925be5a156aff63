package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worldiety/vfsengine/model"
)

func TestCopyDuplicatesFileContent(t *testing.T) {
	e := newTestEngine(t)
	mustMount(t, e, "notes")
	ctx := context.Background()

	src, err := e.CreateNode(ctx, CreateParams{Module: "notes", Path: "/a.md", Type: model.File, Content: []byte("orig")})
	require.NoError(t, err)
	require.NoError(t, e.AddTag(ctx, src.NodeID, "favorite"))

	cp, err := e.Copy(ctx, CopyParams{NodeID: src.NodeID, TargetPath: "/", NewName: "b.md"})
	require.NoError(t, err)
	assert.NotEqual(t, src.NodeID, cp.NodeID)
	assert.Equal(t, "b.md", cp.Name)
	assert.Contains(t, cp.Tags, "favorite")

	content, err := e.Read(ctx, cp.NodeID)
	require.NoError(t, err)
	assert.Equal(t, []byte("orig"), content)

	// original is untouched
	origContent, err := e.Read(ctx, src.NodeID)
	require.NoError(t, err)
	assert.Equal(t, []byte("orig"), origContent)
}

func TestCopySubtreeRewritesChildPaths(t *testing.T) {
	e := newTestEngine(t)
	mustMount(t, e, "notes")
	ctx := context.Background()

	dir, err := e.CreateNode(ctx, CreateParams{Module: "notes", Path: "/d", Type: model.Directory})
	require.NoError(t, err)
	_, err = e.CreateNode(ctx, CreateParams{Module: "notes", Path: "/d/child.md", Type: model.File, Content: []byte("c")})
	require.NoError(t, err)

	cp, err := e.Copy(ctx, CopyParams{NodeID: dir.NodeID, TargetPath: "/", NewName: "d2"})
	require.NoError(t, err)

	children, err := e.ReadDir(ctx, cp.NodeID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "/notes/d2/child.md", children[0].SystemPath)
}

func TestCopyRejectsExistingTargetName(t *testing.T) {
	e := newTestEngine(t)
	mustMount(t, e, "notes")
	ctx := context.Background()

	a, err := e.CreateNode(ctx, CreateParams{Module: "notes", Path: "/a.md", Type: model.File})
	require.NoError(t, err)
	_, err = e.CreateNode(ctx, CreateParams{Module: "notes", Path: "/b.md", Type: model.File})
	require.NoError(t, err)

	_, err = e.Copy(ctx, CopyParams{NodeID: a.NodeID, TargetPath: "/", NewName: "b.md"})
	require.Error(t, err)
}
