package engine

import (
	"context"
	"sort"

	"github.com/worldiety/vfsengine/eventbus"
	"github.com/worldiety/vfsengine/model"
	"github.com/worldiety/vfsengine/storage"
	"github.com/worldiety/vfsengine/vfserr"
)

// SRSReview carries a spaced-repetition grading outcome.
type SRSReview struct {
	NodeID   string
	ClozeID  string
	Interval float64
	Ease     float64
	DueAt    int64
}

// UpdateSRSItemByID applies a review outcome to one SRS card as an upsert:
// an existing row keeps its prior reviewCount (incremented), a new row
// starts fresh against the node's current module. The node itself must
// exist or the call is NOT_FOUND.
func (e *Engine) UpdateSRSItemByID(ctx context.Context, review SRSReview) (*model.SRSItem, error) {
	node, err := e.GetNode(ctx, review.NodeID)
	if err != nil {
		return nil, err
	}

	key := model.SRSItemID(review.NodeID, review.ClozeID)
	mu := e.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	tx, err := e.adapter.BeginTransaction(ctx, []string{storage.CollSRSItems}, storage.ReadWrite)
	if err != nil {
		return nil, vfserr.Wrap(err, vfserr.TransactionFailed, "beginning srs transaction")
	}

	var item model.SRSItem
	found, err := tx.GetCollection(storage.CollSRSItems).Get(ctx, key, &item)
	if err != nil {
		_ = tx.Abort()
		return nil, vfserr.Wrap(err, vfserr.TransactionFailed, "reading srs item")
	}
	if !found {
		item = model.SRSItem{NodeID: review.NodeID, ClozeID: review.ClozeID, ModuleID: node.ModuleID}
	}

	item.Interval = review.Interval
	item.Ease = review.Ease
	item.DueAt = review.DueAt
	item.ReviewCount++
	item.LastReviewedAt = model.NowMillis()

	if err := tx.GetCollection(storage.CollSRSItems).Put(ctx, key, &item); err != nil {
		_ = tx.Abort()
		return nil, vfserr.Wrap(err, vfserr.TransactionFailed, "storing srs item")
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	<-tx.Done()

	e.bus.Emit(eventbus.Event{
		Type: eventbus.NodeUpdated, NodeID: item.NodeID, ModuleID: item.ModuleID,
		Path: node.SystemPath, Timestamp: model.NowMillis(), Data: &item,
	})
	return &item, nil
}

// PutSRSItem unconditionally upserts item, bypassing the "must already
// exist" contract of UpdateSRSItemByID. Used by backup/restore import, where
// a card's full prior state (including reviewCount/lastReviewedAt) is being
// replayed rather than graded.
func (e *Engine) PutSRSItem(ctx context.Context, item *model.SRSItem) error {
	key := model.SRSItemID(item.NodeID, item.ClozeID)
	mu := e.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	if err := e.adapter.GetCollection(storage.CollSRSItems).Put(ctx, key, item); err != nil {
		return vfserr.Wrap(err, vfserr.TransactionFailed, "storing srs item %s", key)
	}
	return nil
}

// GetSRSItemsByNodeID returns every SRS card attached to nodeID.
func (e *Engine) GetSRSItemsByNodeID(ctx context.Context, nodeID string) ([]*model.SRSItem, error) {
	var items []model.SRSItem
	if err := e.adapter.GetCollection(storage.CollSRSItems).GetAllByIndex(ctx, storage.IdxSRSNode, nodeID, &items); err != nil {
		return nil, vfserr.Wrap(err, vfserr.TransactionFailed, "listing srs items of %s", nodeID)
	}
	out := make([]*model.SRSItem, len(items))
	for i := range items {
		out[i] = &items[i]
	}
	return out, nil
}

// GetDueSRSItems returns SRS cards whose dueAt has passed asOfMillis,
// ordered by due date, optionally restricted to one module and bounded by
// limit (<= 0 means unbounded). An empty moduleID searches every module.
func (e *Engine) GetDueSRSItems(ctx context.Context, moduleID string, asOfMillis int64, limit int) ([]*model.SRSItem, error) {
	var candidates []model.SRSItem
	var err error
	if moduleID != "" {
		err = e.adapter.GetCollection(storage.CollSRSItems).GetAllByIndex(ctx, storage.IdxModuleID, moduleID, &candidates)
	} else {
		err = e.adapter.GetCollection(storage.CollSRSItems).Query(ctx, storage.QueryOptions{
			Index: storage.IdxSRSDueAt,
			Range: &storage.Range{Upper: storage.SRSDueKey(asOfMillis)},
		}, &candidates)
	}
	if err != nil {
		return nil, vfserr.Wrap(err, vfserr.TransactionFailed, "listing due srs items")
	}
	var out []*model.SRSItem
	for i := range candidates {
		if candidates[i].DueAt <= asOfMillis {
			out = append(out, &candidates[i])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueAt < out[j].DueAt })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
