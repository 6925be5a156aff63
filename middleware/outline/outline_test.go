package outline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worldiety/vfsengine/model"
	"github.com/worldiety/vfsengine/storage"
	"github.com/worldiety/vfsengine/storage/memadapter"
)

func newTx(t *testing.T) (storage.Transaction, *memadapter.Adapter) {
	t.Helper()
	ctx := context.Background()
	adapter := memadapter.New()
	require.NoError(t, adapter.Connect(ctx))
	t.Cleanup(func() { _ = adapter.Disconnect(ctx) })
	tx, err := adapter.BeginTransaction(ctx, []string{storage.CollSRSItems}, storage.ReadWrite)
	require.NoError(t, err)
	return tx, adapter
}

func TestExtractsHeadingsAndClozeCount(t *testing.T) {
	mw := New()
	tx, _ := newTx(t)

	content := []byte("# Title\n## Sub\nSome {{c1::answer}} text and {{c2::another}}.\n")
	derived, err := mw.OnAfterWrite(&model.VNode{NodeID: "n1", ModuleID: "notes"}, content, tx)
	require.NoError(t, err)

	headings := derived[model.MetaOutline].([]Heading)
	require.Len(t, headings, 2)
	assert.Equal(t, 1, headings[0].Level)
	assert.Equal(t, "Title", headings[0].Text)
	assert.Equal(t, 2, derived[model.MetaClozeCount])
}

func TestSeedsOneSRSItemPerNewCloze(t *testing.T) {
	mw := New()
	tx, adapter := newTx(t)

	content := []byte("{{c1::answer}} and {{c1::answer}} again, plus {{c2::other}}")
	_, err := mw.OnAfterWrite(&model.VNode{NodeID: "n1", ModuleID: "notes"}, content, tx)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	<-tx.Done()

	var items []model.SRSItem
	require.NoError(t, adapter.GetCollection(storage.CollSRSItems).GetAll(context.Background(), &items))
	assert.Len(t, items, 2)
}
