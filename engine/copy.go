package engine

import (
	"context"

	"github.com/worldiety/vfsengine/eventbus"
	"github.com/worldiety/vfsengine/model"
	"github.com/worldiety/vfsengine/storage"
	"github.com/worldiety/vfsengine/vfserr"
	"github.com/worldiety/vfsengine/vfspath"
)

// CopyParams parametrizes Copy. TargetModule defaults to the source node's
// own module, so a bare TargetPath performs an in-module copy; setting it
// explicitly performs a cross-module copy.
type CopyParams struct {
	NodeID       string
	TargetModule string
	TargetPath   string // user path of the new parent directory
	NewName      string // empty keeps the current name
}

// Copy duplicates a node (and, if it's a directory, its whole subtree) under
// a new parent. Content and tags are duplicated; SRS review state is not —
// a copy starts its spaced-repetition history fresh.
// The whole source subtree is read into memory first, then written in one
// transaction.
func (e *Engine) Copy(ctx context.Context, p CopyParams) (*model.VNode, error) {
	src, err := e.GetNode(ctx, p.NodeID)
	if err != nil {
		return nil, err
	}
	if p.TargetModule == "" {
		p.TargetModule = src.ModuleID
	}

	targetParentSystemPath := vfspath.ToSystemPath(p.TargetModule, vfspath.Normalize(p.TargetPath))
	targetParentID, ok := e.NodeIDByPath(p.TargetModule, targetParentSystemPath)
	if !ok {
		return nil, vfserr.New(vfserr.NotFound, "target directory %s does not exist", p.TargetPath)
	}
	targetParent, err := e.GetNode(ctx, targetParentID)
	if err != nil {
		return nil, err
	}
	if !targetParent.IsDir() {
		return nil, vfserr.New(vfserr.InvalidOperation, "target %s is not a directory", p.TargetPath)
	}

	newName := src.Name
	if p.NewName != "" {
		newName = p.NewName
	}
	newSystemPath := targetParent.SystemPath + "/" + newName
	if _, exists := e.NodeIDByPath(p.TargetModule, newSystemPath); exists {
		return nil, vfserr.New(vfserr.AlreadyExists, "path %s already exists in module %s", newSystemPath, p.TargetModule)
	}

	subtree, err := e.collectSubtree(ctx, src)
	if err != nil {
		return nil, err
	}

	type planned struct {
		original *model.VNode
		copy     *model.VNode
		content  []byte
	}
	plans := make([]planned, 0, len(subtree))
	idFor := map[string]string{}
	now := model.NowMillis()

	for _, n := range subtree {
		newID := model.NewNodeID()
		idFor[n.NodeID] = newID

		cp := n.Clone()
		cp.NodeID = newID
		cp.ModuleID = p.TargetModule
		cp.CreatedAt = now
		cp.ModifiedAt = now
		if n.NodeID == src.NodeID {
			cp.Name = newName
			cp.ParentID = targetParentID
			cp.SystemPath = newSystemPath
		} else {
			cp.ParentID = idFor[n.ParentID]
			suffix := n.SystemPath[len(src.SystemPath):]
			cp.SystemPath = newSystemPath + suffix
		}

		var content []byte
		if n.Type == model.File {
			cp.ContentRef = model.NewContentRef(newID)
			var c model.Content
			found, err := e.adapter.GetCollection(storage.CollContents).Get(ctx, n.ContentRef, &c)
			if err != nil {
				return nil, vfserr.Wrap(err, vfserr.TransactionFailed, "reading content of %s", n.NodeID)
			}
			if found {
				content = c.Content
			}
		}

		var tags []model.NodeTag
		if err := e.adapter.GetCollection(storage.CollNodeTags).GetAllByIndex(ctx, storage.IdxNodeTagNode, n.NodeID, &tags); err != nil {
			return nil, vfserr.Wrap(err, vfserr.TransactionFailed, "listing tags of %s", n.NodeID)
		}
		cp.Tags = nil
		for _, t := range tags {
			cp.Tags = append(cp.Tags, t.TagName)
		}

		plans = append(plans, planned{original: n, copy: cp, content: content})
	}

	tx, err := e.adapter.BeginTransaction(ctx, []string{storage.CollVNodes, storage.CollContents, storage.CollNodeTags}, storage.ReadWrite)
	if err != nil {
		return nil, vfserr.Wrap(err, vfserr.TransactionFailed, "beginning copy transaction")
	}

	for _, pl := range plans {
		if pl.copy.Type == model.File {
			c := &model.Content{ContentRef: pl.copy.ContentRef, NodeID: pl.copy.NodeID, Content: pl.content, Size: int64(len(pl.content)), CreatedAt: now}
			if err := tx.GetCollection(storage.CollContents).Put(ctx, c.ContentRef, c); err != nil {
				_ = tx.Abort()
				return nil, vfserr.Wrap(err, vfserr.TransactionFailed, "storing copied content")
			}
			pl.copy.Size = int64(len(pl.content))
		}
		if err := tx.GetCollection(storage.CollVNodes).Put(ctx, pl.copy.NodeID, pl.copy); err != nil {
			_ = tx.Abort()
			return nil, vfserr.Wrap(err, vfserr.TransactionFailed, "storing copied node")
		}
		for _, tagName := range pl.copy.Tags {
			nt := &model.NodeTag{ID: model.NodeTagID(pl.copy.NodeID, tagName), NodeID: pl.copy.NodeID, TagName: tagName}
			if err := tx.GetCollection(storage.CollNodeTags).Put(ctx, nt.ID, nt); err != nil {
				_ = tx.Abort()
				return nil, vfserr.Wrap(err, vfserr.TransactionFailed, "storing copied tag edge")
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	<-tx.Done()

	root := plans[0].copy
	e.cachePut(root)
	e.bus.Emit(eventbus.Event{
		Type: eventbus.NodeCopied, NodeID: root.NodeID, Path: root.SystemPath,
		ModuleID: root.ModuleID, Timestamp: model.NowMillis(), Data: root.Clone(),
	})
	return root.Clone(), nil
}
