package engine

import (
	"context"

	"github.com/worldiety/vfsengine/eventbus"
	"github.com/worldiety/vfsengine/model"
	"github.com/worldiety/vfsengine/storage"
	"github.com/worldiety/vfsengine/vfserr"
)

// Unlink deletes nodeID. A non-empty directory requires
// recursive=true, else it fails INVALID_OPERATION and nothing is removed. A
// protected node (metadata.isProtected) cannot be deleted directly, nor can
// any protected descendant — the whole call fails and nothing is removed.
func (e *Engine) Unlink(ctx context.Context, nodeID string, recursive bool) error {
	mu := e.lockFor(nodeID)
	mu.Lock()
	defer mu.Unlock()

	root, err := e.GetNode(ctx, nodeID)
	if err != nil {
		return err
	}

	subtree, err := e.collectSubtree(ctx, root)
	if err != nil {
		return err
	}
	if root.IsDir() && len(subtree) > 1 && !recursive {
		return vfserr.New(vfserr.InvalidOperation, "%s is a non-empty directory; recursive not set", nodeID)
	}
	for _, v := range subtree {
		if v.IsProtected() {
			return vfserr.New(vfserr.PermissionDenied, "node %s is protected", v.NodeID)
		}
	}

	tx, err := e.adapter.BeginTransaction(ctx, allCollections, storage.ReadWrite)
	if err != nil {
		return vfserr.Wrap(err, vfserr.TransactionFailed, "beginning delete transaction")
	}

	removedIDs := make([]string, 0, len(subtree))
	for i := len(subtree) - 1; i >= 0; i-- {
		v := subtree[i]
		if err := e.registry.RunBeforeDelete(v, tx); err != nil {
			_ = tx.Abort()
			return err
		}
		if err := e.deleteNodeRows(ctx, tx, v); err != nil {
			_ = tx.Abort()
			return err
		}
		if err := e.registry.RunAfterDelete(v, tx); err != nil {
			_ = tx.Abort()
			return err
		}
		removedIDs = append(removedIDs, v.NodeID)
	}
	// reverse removedIDs so root comes first in the emitted event
	for i, j := 0, len(removedIDs)-1; i < j; i, j = i+1, j-1 {
		removedIDs[i], removedIDs[j] = removedIDs[j], removedIDs[i]
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	<-tx.Done()

	for _, v := range subtree {
		e.invalidate(v.NodeID)
	}
	e.bus.Emit(eventbus.Event{
		Type: eventbus.NodeDeleted, NodeID: root.NodeID, Path: root.SystemPath,
		ModuleID: root.ModuleID, Timestamp: model.NowMillis(), Data: removedIDs,
	})
	return nil
}

// collectSubtree returns root plus all of its descendants, in top-down
// (parent before child) order.
func (e *Engine) collectSubtree(ctx context.Context, root *model.VNode) ([]*model.VNode, error) {
	out := []*model.VNode{root}
	if !root.IsDir() {
		return out, nil
	}
	children, err := e.ReadDir(ctx, root.NodeID)
	if err != nil {
		return nil, err
	}
	for _, c := range children {
		sub, err := e.collectSubtree(ctx, c)
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
	}
	return out, nil
}

// deleteNodeRows removes v's own row plus its owned content, tags, and SRS
// items within tx.
func (e *Engine) deleteNodeRows(ctx context.Context, tx storage.Transaction, v *model.VNode) error {
	if v.Type == model.File && v.ContentRef != "" {
		if err := tx.GetCollection(storage.CollContents).Delete(ctx, v.ContentRef); err != nil {
			return vfserr.Wrap(err, vfserr.TransactionFailed, "deleting content of %s", v.NodeID)
		}
	}

	var nodeTags []model.NodeTag
	if err := tx.GetCollection(storage.CollNodeTags).GetAllByIndex(ctx, storage.IdxNodeTagNode, v.NodeID, &nodeTags); err != nil {
		return vfserr.Wrap(err, vfserr.TransactionFailed, "listing tags of %s", v.NodeID)
	}
	for _, nt := range nodeTags {
		if err := tx.GetCollection(storage.CollNodeTags).Delete(ctx, model.NodeTagID(nt.NodeID, nt.TagName)); err != nil {
			return vfserr.Wrap(err, vfserr.TransactionFailed, "deleting tag edge")
		}
	}

	var srsItems []model.SRSItem
	if err := tx.GetCollection(storage.CollSRSItems).GetAllByIndex(ctx, storage.IdxSRSNode, v.NodeID, &srsItems); err != nil {
		return vfserr.Wrap(err, vfserr.TransactionFailed, "listing srs items of %s", v.NodeID)
	}
	for _, s := range srsItems {
		if err := tx.GetCollection(storage.CollSRSItems).Delete(ctx, model.SRSItemID(s.NodeID, s.ClozeID)); err != nil {
			return vfserr.Wrap(err, vfserr.TransactionFailed, "deleting srs item")
		}
	}

	if err := tx.GetCollection(storage.CollVNodes).Delete(ctx, v.NodeID); err != nil {
		return vfserr.Wrap(err, vfserr.TransactionFailed, "deleting node %s", v.NodeID)
	}
	return nil
}
