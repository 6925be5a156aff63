package memadapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worldiety/vfsengine/model"
	"github.com/worldiety/vfsengine/storage"
)

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()
	ctx := context.Background()
	a := New()
	require.NoError(t, a.Connect(ctx))
	t.Cleanup(func() { _ = a.Disconnect(ctx) })
	return a
}

func TestPutGetRoundTrip(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	n := &model.VNode{NodeID: "n1", Name: "a.md"}
	require.NoError(t, a.GetCollection(storage.CollVNodes).Put(ctx, "n1", n))

	var got model.VNode
	found, err := a.GetCollection(storage.CollVNodes).Get(ctx, "n1", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "a.md", got.Name)
}

func TestUniqueIndexRejectsCollision(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	require.NoError(t, a.GetCollection(storage.CollVNodes).Put(ctx, "n1", &model.VNode{NodeID: "n1", ModuleID: "a", SystemPath: "/a/x"}))
	err := a.GetCollection(storage.CollVNodes).Put(ctx, "n2", &model.VNode{NodeID: "n2", ModuleID: "a", SystemPath: "/a/x"})
	require.Error(t, err)
}

func TestTransactionCommitIsVisibleAfterward(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	tx, err := a.BeginTransaction(ctx, []string{storage.CollVNodes}, storage.ReadWrite)
	require.NoError(t, err)
	require.NoError(t, tx.GetCollection(storage.CollVNodes).Put(ctx, "n1", &model.VNode{NodeID: "n1"}))
	require.NoError(t, tx.Commit())
	<-tx.Done()

	found, err := a.GetCollection(storage.CollVNodes).Get(ctx, "n1", &model.VNode{})
	require.NoError(t, err)
	assert.True(t, found)
}

func TestTransactionAbortDiscardsWrites(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	require.NoError(t, a.GetCollection(storage.CollVNodes).Put(ctx, "n1", &model.VNode{NodeID: "n1", ModuleID: "a", SystemPath: "/a/x"}))

	tx, err := a.BeginTransaction(ctx, []string{storage.CollVNodes}, storage.ReadWrite)
	require.NoError(t, err)
	require.NoError(t, tx.GetCollection(storage.CollVNodes).Put(ctx, "n2", &model.VNode{NodeID: "n2", ModuleID: "a", SystemPath: "/a/y"}))
	require.NoError(t, tx.GetCollection(storage.CollVNodes).Delete(ctx, "n1"))
	require.NoError(t, tx.Abort())
	<-tx.Done()

	found, err := a.GetCollection(storage.CollVNodes).Get(ctx, "n1", &model.VNode{})
	require.NoError(t, err)
	assert.True(t, found)
	found, err = a.GetCollection(storage.CollVNodes).Get(ctx, "n2", &model.VNode{})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDestroyResetsAllCollections(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	require.NoError(t, a.GetCollection(storage.CollVNodes).Put(ctx, "n1", &model.VNode{NodeID: "n1"}))
	require.NoError(t, a.Destroy(ctx))

	found, err := a.GetCollection(storage.CollVNodes).Get(ctx, "n1", &model.VNode{})
	require.NoError(t, err)
	assert.False(t, found)
}
