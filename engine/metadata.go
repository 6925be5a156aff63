package engine

import (
	"context"

	"github.com/worldiety/vfsengine/eventbus"
	"github.com/worldiety/vfsengine/model"
	"github.com/worldiety/vfsengine/storage"
	"github.com/worldiety/vfsengine/vfserr"
)

// UpdateMetadata merges patch into nodeID's metadata and persists it
// directly, without re-running the write middleware pipeline. When
// overwrite is true, patch's values win over any existing key; otherwise
// existing values are kept and only missing keys are filled in from patch.
func (e *Engine) UpdateMetadata(ctx context.Context, nodeID string, patch map[string]interface{}, overwrite bool) (*model.VNode, error) {
	mu := e.lockFor(nodeID)
	mu.Lock()
	defer mu.Unlock()

	v, err := e.GetNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}

	merged := map[string]interface{}{}
	for k, val := range v.Metadata {
		merged[k] = val
	}
	for k, val := range patch {
		if !overwrite {
			if _, exists := merged[k]; exists {
				continue
			}
		}
		merged[k] = val
	}
	v.Metadata = merged
	v.ModifiedAt = model.NowMillis()

	tx, err := e.adapter.BeginTransaction(ctx, []string{storage.CollVNodes}, storage.ReadWrite)
	if err != nil {
		return nil, vfserr.Wrap(err, vfserr.TransactionFailed, "beginning metadata transaction")
	}
	if err := tx.GetCollection(storage.CollVNodes).Put(ctx, v.NodeID, v); err != nil {
		_ = tx.Abort()
		return nil, vfserr.Wrap(err, vfserr.TransactionFailed, "storing node")
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	<-tx.Done()

	e.invalidate(v.NodeID)
	e.cachePut(v)
	e.bus.Emit(eventbus.Event{
		Type: eventbus.NodeUpdated, NodeID: v.NodeID, Path: v.SystemPath,
		ModuleID: v.ModuleID, Timestamp: model.NowMillis(), Data: v.Clone(),
	})
	return v.Clone(), nil
}
