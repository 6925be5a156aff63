package engine

import (
	"context"

	"github.com/worldiety/vfsengine/eventbus"
	"github.com/worldiety/vfsengine/model"
	"github.com/worldiety/vfsengine/storage"
	"github.com/worldiety/vfsengine/vfserr"
)

// AddTag attaches tagName to nodeID, creating the global Tag definition if it
// doesn't already exist. Idempotent: tagging an
// already-tagged node succeeds without creating a duplicate edge.
func (e *Engine) AddTag(ctx context.Context, nodeID, tagName string) error {
	mu := e.lockFor(nodeID)
	mu.Lock()
	defer mu.Unlock()

	v, err := e.GetNode(ctx, nodeID)
	if err != nil {
		return err
	}

	tx, err := e.adapter.BeginTransaction(ctx, []string{storage.CollVNodes, storage.CollTags, storage.CollNodeTags}, storage.ReadWrite)
	if err != nil {
		return vfserr.Wrap(err, vfserr.TransactionFailed, "beginning tag transaction")
	}

	var tag model.Tag
	found, err := tx.GetCollection(storage.CollTags).Get(ctx, tagName, &tag)
	if err != nil {
		_ = tx.Abort()
		return vfserr.Wrap(err, vfserr.TransactionFailed, "reading tag %s", tagName)
	}
	if !found {
		tag = model.Tag{Name: tagName, CreatedAt: model.NowMillis()}
		if err := tx.GetCollection(storage.CollTags).Put(ctx, tagName, &tag); err != nil {
			_ = tx.Abort()
			return vfserr.Wrap(err, vfserr.TransactionFailed, "creating tag %s", tagName)
		}
	}

	edgeID := model.NodeTagID(nodeID, tagName)
	var existing model.NodeTag
	found, err = tx.GetCollection(storage.CollNodeTags).Get(ctx, edgeID, &existing)
	if err != nil {
		_ = tx.Abort()
		return vfserr.Wrap(err, vfserr.TransactionFailed, "reading tag edge")
	}
	if !found {
		edge := &model.NodeTag{ID: edgeID, NodeID: nodeID, TagName: tagName}
		if err := tx.GetCollection(storage.CollNodeTags).Put(ctx, edgeID, edge); err != nil {
			_ = tx.Abort()
			return vfserr.Wrap(err, vfserr.TransactionFailed, "creating tag edge")
		}
		if !containsString(v.Tags, tagName) {
			v.Tags = append(v.Tags, tagName)
			v.ModifiedAt = model.NowMillis()
			if err := tx.GetCollection(storage.CollVNodes).Put(ctx, v.NodeID, v); err != nil {
				_ = tx.Abort()
				return vfserr.Wrap(err, vfserr.TransactionFailed, "updating node tags")
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	<-tx.Done()

	e.invalidate(v.NodeID)
	e.bus.Emit(eventbus.Event{
		Type: eventbus.NodeUpdated, NodeID: v.NodeID, Path: v.SystemPath,
		ModuleID: v.ModuleID, Timestamp: model.NowMillis(), Data: v.Clone(),
	})
	return nil
}

// RemoveTag detaches tagName from nodeID. The global Tag definition is left
// in place even if this was its last reference; definition lifecycle
// belongs to an explicit deletion call, never to edge removal.
func (e *Engine) RemoveTag(ctx context.Context, nodeID, tagName string) error {
	mu := e.lockFor(nodeID)
	mu.Lock()
	defer mu.Unlock()

	v, err := e.GetNode(ctx, nodeID)
	if err != nil {
		return err
	}

	tx, err := e.adapter.BeginTransaction(ctx, []string{storage.CollVNodes, storage.CollNodeTags}, storage.ReadWrite)
	if err != nil {
		return vfserr.Wrap(err, vfserr.TransactionFailed, "beginning untag transaction")
	}

	edgeID := model.NodeTagID(nodeID, tagName)
	if err := tx.GetCollection(storage.CollNodeTags).Delete(ctx, edgeID); err != nil {
		_ = tx.Abort()
		return vfserr.Wrap(err, vfserr.TransactionFailed, "deleting tag edge")
	}
	v.Tags = removeString(v.Tags, tagName)
	v.ModifiedAt = model.NowMillis()
	if err := tx.GetCollection(storage.CollVNodes).Put(ctx, v.NodeID, v); err != nil {
		_ = tx.Abort()
		return vfserr.Wrap(err, vfserr.TransactionFailed, "updating node tags")
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	<-tx.Done()

	e.invalidate(v.NodeID)
	e.bus.Emit(eventbus.Event{
		Type: eventbus.NodeUpdated, NodeID: v.NodeID, Path: v.SystemPath,
		ModuleID: v.ModuleID, Timestamp: model.NowMillis(), Data: v.Clone(),
	})
	return nil
}

// SetTags replaces nodeID's full tag set with tagNames (deduped, order
// preserved) as an atomic diff: removed edges and added edges land in the
// same transaction, and exactly one NODE_UPDATED is emitted.
func (e *Engine) SetTags(ctx context.Context, nodeID string, tagNames []string) error {
	mu := e.lockFor(nodeID)
	mu.Lock()
	defer mu.Unlock()

	v, err := e.GetNode(ctx, nodeID)
	if err != nil {
		return err
	}

	tx, err := e.adapter.BeginTransaction(ctx, []string{storage.CollVNodes, storage.CollTags, storage.CollNodeTags}, storage.ReadWrite)
	if err != nil {
		return vfserr.Wrap(err, vfserr.TransactionFailed, "beginning tag transaction")
	}
	if err := e.applyTagDiff(ctx, tx, v, tagNames); err != nil {
		_ = tx.Abort()
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	<-tx.Done()

	e.invalidate(v.NodeID)
	e.bus.Emit(eventbus.Event{
		Type: eventbus.NodeUpdated, NodeID: v.NodeID, Path: v.SystemPath,
		ModuleID: v.ModuleID, Timestamp: model.NowMillis(), Data: v.Clone(),
	})
	return nil
}

// TagAssignment pairs one node with its replacement tag set for
// BatchSetTags.
type TagAssignment struct {
	NodeID string
	Tags   []string
}

// BatchSetTags applies every assignment in a single transaction — all
// succeed or none do — then emits one NODES_BATCH_UPDATED event carrying
// the updated nodes.
func (e *Engine) BatchSetTags(ctx context.Context, assignments []TagAssignment) error {
	nodes := make([]*model.VNode, 0, len(assignments))
	for _, a := range assignments {
		v, err := e.GetNode(ctx, a.NodeID)
		if err != nil {
			return err
		}
		nodes = append(nodes, v)
	}

	tx, err := e.adapter.BeginTransaction(ctx, []string{storage.CollVNodes, storage.CollTags, storage.CollNodeTags}, storage.ReadWrite)
	if err != nil {
		return vfserr.Wrap(err, vfserr.TransactionFailed, "beginning batch tag transaction")
	}
	for i, a := range assignments {
		if err := e.applyTagDiff(ctx, tx, nodes[i], a.Tags); err != nil {
			_ = tx.Abort()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	<-tx.Done()

	updated := make([]*model.VNode, len(nodes))
	for i, v := range nodes {
		e.invalidate(v.NodeID)
		updated[i] = v.Clone()
	}
	e.bus.Emit(eventbus.Event{Type: eventbus.NodesBatchUpdated, Timestamp: model.NowMillis(), Data: updated})
	return nil
}

// applyTagDiff rewrites v's tag edges and embedded tag list to match
// tagNames within tx, creating missing Tag definitions along the way. v is
// mutated in place so callers can emit the post-diff state.
func (e *Engine) applyTagDiff(ctx context.Context, tx storage.Transaction, v *model.VNode, tagNames []string) error {
	want := map[string]bool{}
	deduped := make([]string, 0, len(tagNames))
	for _, t := range tagNames {
		if !want[t] {
			want[t] = true
			deduped = append(deduped, t)
		}
	}

	for _, existing := range v.Tags {
		if want[existing] {
			continue
		}
		if err := tx.GetCollection(storage.CollNodeTags).Delete(ctx, model.NodeTagID(v.NodeID, existing)); err != nil {
			return vfserr.Wrap(err, vfserr.TransactionFailed, "deleting tag edge")
		}
	}

	have := map[string]bool{}
	for _, t := range v.Tags {
		have[t] = true
	}
	for _, t := range deduped {
		if have[t] {
			continue
		}
		var tag model.Tag
		found, err := tx.GetCollection(storage.CollTags).Get(ctx, t, &tag)
		if err != nil {
			return vfserr.Wrap(err, vfserr.TransactionFailed, "reading tag %s", t)
		}
		if !found {
			tag = model.Tag{Name: t, CreatedAt: model.NowMillis()}
			if err := tx.GetCollection(storage.CollTags).Put(ctx, t, &tag); err != nil {
				return vfserr.Wrap(err, vfserr.TransactionFailed, "creating tag %s", t)
			}
		}
		edge := &model.NodeTag{ID: model.NodeTagID(v.NodeID, t), NodeID: v.NodeID, TagName: t}
		if err := tx.GetCollection(storage.CollNodeTags).Put(ctx, edge.ID, edge); err != nil {
			return vfserr.Wrap(err, vfserr.TransactionFailed, "creating tag edge")
		}
	}

	v.Tags = deduped
	v.ModifiedAt = model.NowMillis()
	if err := tx.GetCollection(storage.CollVNodes).Put(ctx, v.NodeID, v); err != nil {
		return vfserr.Wrap(err, vfserr.TransactionFailed, "updating node tags")
	}
	return nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func removeString(list []string, s string) []string {
	out := list[:0:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
