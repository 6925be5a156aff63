package engine

import (
	"context"

	"github.com/worldiety/vfsengine/eventbus"
	"github.com/worldiety/vfsengine/model"
	"github.com/worldiety/vfsengine/storage"
	"github.com/worldiety/vfsengine/vfserr"
)

// Read fetches a file node's content, running the onBeforeRead/onAfterRead
// pipeline. Reading a directory is INVALID_OPERATION.
func (e *Engine) Read(ctx context.Context, nodeID string) ([]byte, error) {
	v, err := e.GetNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	if v.IsDir() {
		return nil, vfserr.New(vfserr.InvalidOperation, "%s is a directory", nodeID)
	}

	if err := e.registry.RunBeforeRead(v); err != nil {
		return nil, err
	}
	if v.ContentRef == "" {
		return e.registry.RunAfterRead(v, nil)
	}

	var c model.Content
	found, err := e.adapter.GetCollection(storage.CollContents).Get(ctx, v.ContentRef, &c)
	if err != nil {
		return nil, vfserr.Wrap(err, vfserr.TransactionFailed, "reading content of %s", nodeID)
	}
	if !found {
		return nil, vfserr.New(vfserr.NotFound, "content %s not found", v.ContentRef)
	}

	return e.registry.RunAfterRead(v, c.Content)
}

// Write replaces a file node's content, running the full onValidate /
// onBeforeWrite / persist / onAfterWrite pipeline in one transaction, and
// emits NODE_UPDATED.
func (e *Engine) Write(ctx context.Context, nodeID string, content []byte) (*model.VNode, error) {
	mu := e.lockFor(nodeID)
	mu.Lock()
	defer mu.Unlock()

	v, err := e.GetNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	if v.IsDir() {
		return nil, vfserr.New(vfserr.InvalidOperation, "%s is a directory", nodeID)
	}
	if v.IsProtected() {
		return nil, vfserr.New(vfserr.PermissionDenied, "node %s is protected", nodeID)
	}

	if err := e.registry.RunValidate(v, content); err != nil {
		return nil, err
	}

	tx, err := e.adapter.BeginTransaction(ctx, allCollections, storage.ReadWrite)
	if err != nil {
		return nil, vfserr.Wrap(err, vfserr.TransactionFailed, "beginning write transaction")
	}

	finalContent, err := e.registry.RunBeforeWrite(v, content, tx)
	if err != nil {
		_ = tx.Abort()
		return nil, err
	}

	now := model.NowMillis()
	contentColl := tx.GetCollection(storage.CollContents)
	var existing model.Content
	found, err := contentColl.Get(ctx, v.ContentRef, &existing)
	if err != nil {
		_ = tx.Abort()
		return nil, vfserr.Wrap(err, vfserr.TransactionFailed, "reading content of %s", nodeID)
	}
	c := &model.Content{ContentRef: v.ContentRef, NodeID: v.NodeID, Content: finalContent, Size: int64(len(finalContent)), CreatedAt: now}
	if found {
		c.CreatedAt = existing.CreatedAt
	}
	if err := contentColl.Put(ctx, v.ContentRef, c); err != nil {
		_ = tx.Abort()
		return nil, vfserr.Wrap(err, vfserr.TransactionFailed, "storing content")
	}

	derived, err := e.registry.RunAfterWrite(v, finalContent, tx)
	if err != nil {
		_ = tx.Abort()
		return nil, err
	}

	v.Metadata = mergeMetadata(v.Metadata, derived)
	v.Size = int64(len(finalContent))
	v.ModifiedAt = now

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
