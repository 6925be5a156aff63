package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worldiety/vfsengine/model"
)

func TestUpdateMetadataFillsMissingWithoutOverwrite(t *testing.T) {
	e := newTestEngine(t)
	mustMount(t, e, "notes")
	ctx := context.Background()

	v, err := e.CreateNode(ctx, CreateParams{
		Module: "notes", Path: "/a.md", Type: model.File,
		Metadata: map[string]interface{}{"icon": "note"},
	})
	require.NoError(t, err)

	updated, err := e.UpdateMetadata(ctx, v.NodeID, map[string]interface{}{"icon": "changed", "mimeType": "text/markdown"}, false)
	require.NoError(t, err)
	assert.Equal(t, "note", updated.Metadata["icon"])
	assert.Equal(t, "text/markdown", updated.Metadata["mimeType"])
}

func TestUpdateMetadataOverwritesWhenRequested(t *testing.T) {
	e := newTestEngine(t)
	mustMount(t, e, "notes")
	ctx := context.Background()

	v, err := e.CreateNode(ctx, CreateParams{
		Module: "notes", Path: "/a.md", Type: model.File,
		Metadata: map[string]interface{}{"icon": "note"},
	})
	require.NoError(t, err)

	updated, err := e.UpdateMetadata(ctx, v.NodeID, map[string]interface{}{"icon": "changed"}, true)
	require.NoError(t, err)
	assert.Equal(t, "changed", updated.Metadata["icon"])
}
