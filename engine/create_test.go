package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worldiety/vfsengine/model"
	"github.com/worldiety/vfsengine/vfserr"
)

func TestCreateNodeModuleRoot(t *testing.T) {
	e := newTestEngine(t)
	root := mustMount(t, e, "notes")
	assert.Equal(t, "notes", root.Name)
	assert.Equal(t, "/notes", root.SystemPath)
	assert.Empty(t, root.ParentID)
}

func TestCreateFileUnderRoot(t *testing.T) {
	e := newTestEngine(t)
	mustMount(t, e, "notes")

	v, err := e.CreateNode(context.Background(), CreateParams{
		Module: "notes", Path: "/hello.md", Type: model.File, Content: []byte("hi"),
	})
	require.NoError(t, err)
	assert.Equal(t, "hello.md", v.Name)
	assert.Equal(t, int64(2), v.Size)
	assert.NotEmpty(t, v.ContentRef)
}

func TestCreateNodeRejectsCollision(t *testing.T) {
	e := newTestEngine(t)
	mustMount(t, e, "notes")
	ctx := context.Background()

	_, err := e.CreateNode(ctx, CreateParams{Module: "notes", Path: "/a", Type: model.Directory})
	require.NoError(t, err)

	_, err = e.CreateNode(ctx, CreateParams{Module: "notes", Path: "/a", Type: model.Directory})
	require.Error(t, err)
	assert.True(t, vfserr.Is(err, vfserr.AlreadyExists))
}

func TestCreateNodeMissingParent(t *testing.T) {
	e := newTestEngine(t)
	mustMount(t, e, "notes")

	_, err := e.CreateNode(context.Background(), CreateParams{Module: "notes", Path: "/missing/child.md", Type: model.File})
	require.Error(t, err)
	assert.True(t, vfserr.Is(err, vfserr.NotFound))
}

func TestCreateNodeParentMustBeDirectory(t *testing.T) {
	e := newTestEngine(t)
	mustMount(t, e, "notes")
	ctx := context.Background()

	_, err := e.CreateNode(ctx, CreateParams{Module: "notes", Path: "/f.md", Type: model.File})
	require.NoError(t, err)

	_, err = e.CreateNode(ctx, CreateParams{Module: "notes", Path: "/f.md/child.md", Type: model.File})
	require.Error(t, err)
	assert.True(t, vfserr.Is(err, vfserr.InvalidOperation))
}
