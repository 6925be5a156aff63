package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worldiety/vfsengine/model"
	"github.com/worldiety/vfsengine/vfserr"
)

func TestUpdateSRSItemByIDRequiresExistingNode(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.UpdateSRSItemByID(ctx, SRSReview{NodeID: "missing", ClozeID: "c1", Interval: 1, Ease: 2.5, DueAt: 100})
	require.Error(t, err)
	assert.True(t, vfserr.Is(err, vfserr.NotFound))
}

func TestUpdateSRSItemByIDAppliesReviewOutcome(t *testing.T) {
	e := newTestEngine(t)
	mustMount(t, e, "notes")
	ctx := context.Background()

	v, err := e.CreateNode(ctx, CreateParams{Module: "notes", Path: "/a.md", Type: model.File})
	require.NoError(t, err)
	require.NoError(t, e.PutSRSItem(ctx, &model.SRSItem{NodeID: v.NodeID, ClozeID: "c1", ModuleID: "notes", DueAt: 0}))

	updated, err := e.UpdateSRSItemByID(ctx, SRSReview{NodeID: v.NodeID, ClozeID: "c1", Interval: 3, Ease: 2.6, DueAt: 500})
	require.NoError(t, err)
	assert.Equal(t, 3.0, updated.Interval)
	assert.Equal(t, 2.6, updated.Ease)
	assert.Equal(t, int64(500), updated.DueAt)
	assert.Equal(t, 1, updated.ReviewCount)
}

func TestUpdateSRSItemByIDUpsertsNewCard(t *testing.T) {
	e := newTestEngine(t)
	mustMount(t, e, "notes")
	ctx := context.Background()

	v, err := e.CreateNode(ctx, CreateParams{Module: "notes", Path: "/a.md", Type: model.File})
	require.NoError(t, err)

	created, err := e.UpdateSRSItemByID(ctx, SRSReview{NodeID: v.NodeID, ClozeID: "c9", Interval: 1, Ease: 2.5, DueAt: 700})
	require.NoError(t, err)
	assert.Equal(t, "notes", created.ModuleID)
	assert.Equal(t, 1, created.ReviewCount)

	items, err := e.GetSRSItemsByNodeID(ctx, v.NodeID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "c9", items[0].ClozeID)
}

func TestGetDueSRSItemsFiltersByAsOfAndModule(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.PutSRSItem(ctx, &model.SRSItem{NodeID: "n1", ClozeID: "c1", ModuleID: "a", DueAt: 100}))
	require.NoError(t, e.PutSRSItem(ctx, &model.SRSItem{NodeID: "n2", ClozeID: "c1", ModuleID: "a", DueAt: 900}))
	require.NoError(t, e.PutSRSItem(ctx, &model.SRSItem{NodeID: "n3", ClozeID: "c1", ModuleID: "b", DueAt: 50}))

	due, err := e.GetDueSRSItems(ctx, "a", 500, 0)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "n1", due[0].NodeID)

	dueAll, err := e.GetDueSRSItems(ctx, "", 500, 0)
	require.NoError(t, err)
	assert.Len(t, dueAll, 2)
}

func TestGetDueSRSItemsOrdersByDueAt(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.PutSRSItem(ctx, &model.SRSItem{NodeID: "late", ClozeID: "c1", ModuleID: "a", DueAt: 300}))
	require.NoError(t, e.PutSRSItem(ctx, &model.SRSItem{NodeID: "early", ClozeID: "c1", ModuleID: "a", DueAt: 100}))

	due, err := e.GetDueSRSItems(ctx, "a", 1000, 0)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "early", due[0].NodeID)
	assert.Equal(t, "late", due[1].NodeID)
}
