package assetdir

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worldiety/vfsengine/model"
	"github.com/worldiety/vfsengine/storage"
	"github.com/worldiety/vfsengine/storage/memadapter"
)

func TestCanHandleOnlyDottedDirectories(t *testing.T) {
	mw := New()
	assert.True(t, mw.CanHandle(&model.VNode{Type: model.Directory, Name: ".doc.md"}))
	assert.False(t, mw.CanHandle(&model.VNode{Type: model.Directory, Name: "plain"}))
	assert.False(t, mw.CanHandle(&model.VNode{Type: model.File, Name: ".hidden"}))
}

func TestBackReferencesMatchingSibling(t *testing.T) {
	mw := New()
	ctx := context.Background()
	adapter := memadapter.New()
	require.NoError(t, adapter.Connect(ctx))
	t.Cleanup(func() { _ = adapter.Disconnect(ctx) })

	sibling := &model.VNode{NodeID: "owner1", Type: model.File, Name: "doc.md", ModuleID: "notes", SystemPath: "/notes/doc.md"}
	require.NoError(t, adapter.GetCollection(storage.CollVNodes).Put(ctx, sibling.NodeID, sibling))

	tx, err := adapter.BeginTransaction(ctx, []string{storage.CollVNodes}, storage.ReadWrite)
	require.NoError(t, err)

	dir := &model.VNode{NodeID: "dir1", Type: model.Directory, Name: ".doc.md", ModuleID: "notes", SystemPath: "/notes/.doc.md"}
	derived, err := mw.OnAfterWrite(dir, nil, tx)
	require.NoError(t, err)
	assert.Equal(t, true, derived[model.MetaIsAssetDir])
	assert.Equal(t, "owner1", derived[model.MetaOwnerID])

	require.NoError(t, tx.Commit())
	<-tx.Done()
}

func TestNoOwnerWithoutSibling(t *testing.T) {
	mw := New()
	ctx := context.Background()
	adapter := memadapter.New()
	require.NoError(t, adapter.Connect(ctx))
	t.Cleanup(func() { _ = adapter.Disconnect(ctx) })

	tx, err := adapter.BeginTransaction(ctx, []string{storage.CollVNodes}, storage.ReadWrite)
	require.NoError(t, err)

	dir := &model.VNode{NodeID: "dir1", Type: model.Directory, Name: ".orphan", ModuleID: "notes", SystemPath: "/notes/.orphan"}
	derived, err := mw.OnAfterWrite(dir, nil, tx)
	require.NoError(t, err)
	assert.Equal(t, true, derived[model.MetaIsAssetDir])
	_, hasOwner := derived[model.MetaOwnerID]
	assert.False(t, hasOwner)

	require.NoError(t, tx.Abort())
}
