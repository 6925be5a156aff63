package engine

import (
	"context"
	"strings"

	"github.com/worldiety/vfsengine/eventbus"
	"github.com/worldiety/vfsengine/model"
	"github.com/worldiety/vfsengine/storage"
	"github.com/worldiety/vfsengine/vfserr"
	"github.com/worldiety/vfsengine/vfspath"
)

// Move relocates/renames nodeID to newUserPath within its own module.
// A directory's descendants have their systemPath rewritten by
// prefix substitution in the same transaction. Use BatchMove to cross module
// boundaries.
func (e *Engine) Move(ctx context.Context, nodeID string, newUserPath string) (*model.VNode, error) {
	if err := vfspath.Validate(newUserPath); err != nil {
		return nil, err
	}

	mu := e.lockFor(nodeID)
	mu.Lock()
	defer mu.Unlock()

	v, err := e.GetNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	if v.IsProtected() {
		return nil, vfserr.New(vfserr.PermissionDenied, "node %s is protected", nodeID)
	}

	newSystemPath := vfspath.ToSystemPath(v.ModuleID, newUserPath)
	if existingID, exists := e.NodeIDByPath(v.ModuleID, newSystemPath); exists && existingID != v.NodeID {
		return nil, vfserr.New(vfserr.AlreadyExists, "path %s already exists in module %s", newUserPath, v.ModuleID)
	}

	newParentUserPath := vfspath.Dirname(vfspath.Normalize(newUserPath))
	newParentSystemPath := vfspath.ToSystemPath(v.ModuleID, newParentUserPath)
	newParentID, ok := e.NodeIDByPath(v.ModuleID, newParentSystemPath)
	if !ok {
		return nil, vfserr.New(vfserr.NotFound, "parent directory %s does not exist", newParentUserPath)
	}
	newParent, err := e.GetNode(ctx, newParentID)
	if err != nil {
		return nil, err
	}
	if !newParent.IsDir() {
		return nil, vfserr.New(vfserr.InvalidOperation, "parent %s is not a directory", newParentUserPath)
	}
	if v.IsDir() {
		if newParentID == v.NodeID || strings.HasPrefix(newParent.SystemPath+"/", v.SystemPath+"/") {
			return nil, vfserr.New(vfserr.InvalidOperation, "cannot move %s into its own subtree", v.NodeID)
		}
	}

	subtree, err := e.collectSubtree(ctx, v)
	if err != nil {
		return nil, err
	}
	oldSystemPath := v.SystemPath

	tx, err := e.adapter.BeginTransaction(ctx, []string{storage.CollVNodes}, storage.ReadWrite)
	if err != nil {
		return nil, vfserr.Wrap(err, vfserr.TransactionFailed, "beginning move transaction")
	}

	for _, n := range subtree {
		n.SystemPath = strings.Replace(n.SystemPath, oldSystemPath, newSystemPath, 1)
		if n.NodeID == v.NodeID {
			n.Name = vfspath.Basename(newUserPath)
			n.ParentID = newParentID
		}
		n.ModifiedAt = model.NowMillis()
		if err := tx.GetCollection(storage.CollVNodes).Put(ctx, n.NodeID, n); err != nil {
			_ = tx.Abort()
			return nil, vfserr.Wrap(err, vfserr.TransactionFailed, "updating node %s", n.NodeID)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	<-tx.Done()

	for _, n := range subtree {
		e.invalidate(n.NodeID)
	}
	e.cachePut(v)
	e.bus.Emit(eventbus.Event{
		Type: eventbus.NodeMoved, NodeID: v.NodeID, Path: v.SystemPath,
		ModuleID: v.ModuleID, Timestamp: model.NowMillis(),
		Data: map[string]string{"oldPath": oldSystemPath, "newPath": v.SystemPath},
	})
	return v.Clone(), nil
}

// BatchMove relocates nodeIDs under targetParentID in one transaction.
// When targetParentID's module differs from a moved node's
// current module, that node's (and its whole subtree's) moduleId is
// rewritten, along with every affected SRSItem's moduleId. A directory cannot
// be moved into itself or one of its own descendants.
func (e *Engine) BatchMove(ctx context.Context, nodeIDs []string, targetParentID string) ([]*model.VNode, error) {
	targetParent, err := e.GetNode(ctx, targetParentID)
	if err != nil {
		return nil, err
	}
	if !targetParent.IsDir() {
		return nil, vfserr.New(vfserr.InvalidOperation, "target %s is not a directory", targetParentID)
	}

	type plan struct {
		root    *model.VNode
		subtree []*model.VNode
		oldPath string
		newPath string
	}
	plans := make([]plan, 0, len(nodeIDs))

	for _, id := range nodeIDs {
		v, err := e.GetNode(ctx, id)
		if err != nil {
			return nil, err
		}
		if v.IsProtected() {
			return nil, vfserr.New(vfserr.PermissionDenied, "node %s is protected", id)
		}
		if v.IsDir() {
			if targetParentID == v.NodeID || strings.HasPrefix(targetParent.SystemPath+"/", v.SystemPath+"/") {
				return nil, vfserr.New(vfserr.InvalidOperation, "cannot move %s into its own subtree", v.NodeID)
			}
		}
		newPath := targetParent.SystemPath + "/" + v.Name
		if existingID, exists := e.NodeIDByPath(targetParent.ModuleID, newPath); exists && existingID != v.NodeID {
			return nil, vfserr.New(vfserr.AlreadyExists, "path %s already exists in module %s", newPath, targetParent.ModuleID)
		}
		subtree, err := e.collectSubtree(ctx, v)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan{root: v, subtree: subtree, oldPath: v.SystemPath, newPath: newPath})
	}

	tx, err := e.adapter.BeginTransaction(ctx, []string{storage.CollVNodes, storage.CollSRSItems}, storage.ReadWrite)
	if err != nil {
		return nil, vfserr.Wrap(err, vfserr.TransactionFailed, "beginning batch move transaction")
	}

	now := model.NowMillis()
	results := make([]*model.VNode, 0, len(plans))
	var touched []*model.VNode

	for _, pl := range plans {
		crossModule := pl.root.ModuleID != targetParent.ModuleID
		for _, n := range pl.subtree {
			n.SystemPath = strings.Replace(n.SystemPath, pl.oldPath, pl.newPath, 1)
			n.ModuleID = targetParent.ModuleID
			if n.NodeID == pl.root.NodeID {
				n.ParentID = targetParentID
			}
			n.ModifiedAt = now
			if err := tx.GetCollection(storage.CollVNodes).Put(ctx, n.NodeID, n); err != nil {
				_ = tx.Abort()
				return nil, vfserr.Wrap(err, vfserr.TransactionFailed, "updating node %s", n.NodeID)
			}
			touched = append(touched, n)

			if crossModule {
				var items []model.SRSItem
				if err := tx.GetCollection(storage.CollSRSItems).GetAllByIndex(ctx, storage.IdxSRSNode, n.NodeID, &items); err != nil {
					_ = tx.Abort()
					return nil, vfserr.Wrap(err, vfserr.TransactionFailed, "listing srs items of %s", n.NodeID)
				}
				for i := range items {
					items[i].ModuleID = targetParent.ModuleID
					key := model.SRSItemID(items[i].NodeID, items[i].ClozeID)
					if err := tx.GetCollection(storage.CollSRSItems).Put(ctx, key, &items[i]); err != nil {
						_ = tx.Abort()
						return nil, vfserr.Wrap(err, vfserr.TransactionFailed, "rewriting srs item module")
					}
				}
			}
		}
		results = append(results, pl.root)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	<-tx.Done()

	for _, n := range touched {
		e.invalidate(n.NodeID)
	}
	clones := make([]*model.VNode, len(results))
	for i, v := range results {
		clones[i] = v.Clone()
	}
	e.bus.Emit(eventbus.Event{Type: eventbus.NodesBatchMoved, Timestamp: model.NowMillis(), Data: clones})
	return clones, nil
}
