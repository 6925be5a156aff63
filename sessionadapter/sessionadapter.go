// Package sessionadapter exposes a SessionEngine capability surface scoped
// to one module, as consumed by UI/editor code that should never see
// another module's nodes: a moduleId guard on every returned node plus a
// hidden-path filter on relayed events.
package sessionadapter

import (
	"context"
	"strings"

	"github.com/worldiety/vfsengine/engine"
	"github.com/worldiety/vfsengine/eventbus"
	"github.com/worldiety/vfsengine/facade"
	"github.com/worldiety/vfsengine/model"
	"github.com/worldiety/vfsengine/vfserr"
	"github.com/worldiety/vfsengine/vfspath"
)

// Adapter is a SessionEngine bound to one module. Every read/write/search it
// performs is restricted to that module; every event it relays to a
// subscriber has hidden paths (segments starting with "." or "__") filtered
// out.
type Adapter struct {
	vfs      *facade.VFS
	moduleID string
}

// New binds an Adapter to moduleID against vfs. The module must already be
// mounted; callers typically Mount it via vfs.Modules() first.
func New(vfs *facade.VFS, moduleID string) *Adapter {
	return &Adapter{vfs: vfs, moduleID: moduleID}
}

// ModuleID returns the module this adapter is scoped to.
func (a *Adapter) ModuleID() string { return a.moduleID }

// guard rejects a node that doesn't belong to this adapter's module, so a
// caller can never observe another module's tree through a leaked nodeId.
func (a *Adapter) guard(n *model.VNode) (*model.VNode, error) {
	if n.ModuleID != a.moduleID {
		return nil, vfserr.New(vfserr.NotFound, "node %s not found in module %s", n.NodeID, a.moduleID)
	}
	return n, nil
}

// isHidden reports whether a path (user or system) has any segment starting with "."
// or "__", the protected-module and sidecar-directory conventions.
func isHidden(userPath string) bool {
	for _, seg := range strings.Split(userPath, "/") {
		if seg == "" {
			continue
		}
		if strings.HasPrefix(seg, ".") || strings.HasPrefix(seg, "__") {
			return true
		}
	}
	return false
}

// getNode returns nodeID's VNode, failing NOT_FOUND if it belongs to
// another module.
func (a *Adapter) getNode(ctx context.Context, nodeID string) (*model.VNode, error) {
	n, err := a.vfs.GetVFS().GetNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	return a.guard(n)
}

// GetNode implements SessionEngine.getNode.
func (a *Adapter) GetNode(ctx context.Context, nodeID string) (*model.VNode, error) {
	return a.getNode(ctx, nodeID)
}

// LoadTree returns the module's root node and its full subtree, per
// SessionEngine.loadTree.
func (a *Adapter) LoadTree(ctx context.Context) ([]*model.VNode, error) {
	info, ok := a.vfs.Modules().Get(a.moduleID)
	if !ok {
		return nil, vfserr.New(vfserr.NotFound, "module %s not mounted", a.moduleID)
	}
	return a.vfs.GetTree(ctx, info.RootNodeID)
}

// GetChildren implements SessionEngine.getChildren.
func (a *Adapter) GetChildren(ctx context.Context, dirID string) ([]*model.VNode, error) {
	if _, err := a.getNode(ctx, dirID); err != nil {
		return nil, err
	}
	return a.vfs.ReadDir(ctx, dirID)
}

// ReadContent implements SessionEngine.readContent.
func (a *Adapter) ReadContent(ctx context.Context, nodeID string) ([]byte, error) {
	if _, err := a.getNode(ctx, nodeID); err != nil {
		return nil, err
	}
	return a.vfs.Read(ctx, nodeID)
}

// Search implements SessionEngine.search(scope): scope is ignored for
// cross-module widening and is always forced to this adapter's own module.
func (a *Adapter) Search(ctx context.Context, p engine.SearchParams) ([]*model.VNode, error) {
	p.Scope = []string{a.moduleID}
	return a.vfs.SearchNodes(ctx, p)
}

// CreateFile implements SessionEngine.createFile.
func (a *Adapter) CreateFile(ctx context.Context, path string, content []byte, metadata map[string]interface{}) (*model.VNode, error) {
	return a.vfs.CreateFile(ctx, a.moduleID, path, content, metadata)
}

// CreateDirectory implements SessionEngine.createDirectory.
func (a *Adapter) CreateDirectory(ctx context.Context, path string, metadata map[string]interface{}) (*model.VNode, error) {
	return a.vfs.CreateDirectory(ctx, a.moduleID, path, metadata)
}

// CreateAsset implements SessionEngine.createAsset: a file created inside
// the sidecar directory of an owner node. The sidecar directory
// "."+ownerName is created alongside the
// owner if it doesn't already exist; metadata.ownerId is set as the
// documented (non-authoritative) back-reference hint.
func (a *Adapter) CreateAsset(ctx context.Context, ownerID, assetName string, content []byte, metadata map[string]interface{}) (*model.VNode, error) {
	owner, err := a.getNode(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	ownerUserPath := vfspath.ToUserPath(owner.SystemPath, owner.ModuleID)
	parentPath := vfspath.Dirname(ownerUserPath)
	sidecarPath := vfspath.Join(parentPath, "."+owner.Name)

	sidecarSystemPath := vfspath.ToSystemPath(a.moduleID, sidecarPath)
	if _, exists := a.vfs.GetVFS().NodeIDByPath(a.moduleID, sidecarSystemPath); !exists {
		if _, err := a.vfs.CreateDirectory(ctx, a.moduleID, sidecarPath, map[string]interface{}{model.MetaIsAssetDir: true}); err != nil {
			return nil, err
		}
	}

	merged := map[string]interface{}{model.MetaOwnerID: owner.NodeID}
	for k, v := range metadata {
		merged[k] = v
	}
	return a.vfs.CreateFile(ctx, a.moduleID, vfspath.Join(sidecarPath, assetName), content, merged)
}

// Rename implements SessionEngine.rename.
func (a *Adapter) Rename(ctx context.Context, nodeID, newName string) (*model.VNode, error) {
	if _, err := a.getNode(ctx, nodeID); err != nil {
		return nil, err
	}
	return a.vfs.Rename(ctx, nodeID, newName)
}

// Move implements SessionEngine.move, restricted to moves that stay inside
// this adapter's module — cross-module relocation is a batchMove concern
// the adapter intentionally does not expose, per the module-isolation guard.
func (a *Adapter) Move(ctx context.Context, nodeID, newPath string) (*model.VNode, error) {
	if _, err := a.getNode(ctx, nodeID); err != nil {
		return nil, err
	}
	return a.vfs.Move(ctx, nodeID, newPath)
}

// Delete implements SessionEngine.delete.
func (a *Adapter) Delete(ctx context.Context, nodeID string, recursive bool) error {
	if _, err := a.getNode(ctx, nodeID); err != nil {
		return err
	}
	return a.vfs.Delete(ctx, nodeID, recursive)
}

// UpdateMetadata implements SessionEngine.updateMetadata.
func (a *Adapter) UpdateMetadata(ctx context.Context, nodeID string, patch map[string]interface{}, overwrite bool) (*model.VNode, error) {
	if _, err := a.getNode(ctx, nodeID); err != nil {
		return nil, err
	}
	return a.vfs.GetVFS().UpdateMetadata(ctx, nodeID, patch, overwrite)
}

// SetTags implements SessionEngine.setTags.
func (a *Adapter) SetTags(ctx context.Context, nodeID string, tags []string) error {
	if _, err := a.getNode(ctx, nodeID); err != nil {
		return err
	}
	return a.vfs.SetTags(ctx, nodeID, tags)
}

// SetTagsBatch implements SessionEngine.setTagsBatch: every nodeID must
// belong to this adapter's module or the whole batch is rejected, so a
// caller can't smuggle a foreign-module write in alongside legitimate ones.
func (a *Adapter) SetTagsBatch(ctx context.Context, nodeIDs []string, tags []string) error {
	assignments := make([]engine.TagAssignment, 0, len(nodeIDs))
	for _, id := range nodeIDs {
		if _, err := a.getNode(ctx, id); err != nil {
			return err
		}
		assignments = append(assignments, engine.TagAssignment{NodeID: id, Tags: tags})
	}
	return a.vfs.BatchSetTags(ctx, assignments)
}

// GetSRSStatus implements SessionEngine.getSRSStatus.
func (a *Adapter) GetSRSStatus(ctx context.Context, nodeID string) ([]*model.SRSItem, error) {
	if _, err := a.getNode(ctx, nodeID); err != nil {
		return nil, err
	}
	return a.vfs.GetSRSItemsByNodeID(ctx, nodeID)
}

// UpdateSRSStatus implements SessionEngine.updateSRSStatus.
func (a *Adapter) UpdateSRSStatus(ctx context.Context, review engine.SRSReview) (*model.SRSItem, error) {
	if _, err := a.getNode(ctx, review.NodeID); err != nil {
		return nil, err
	}
	return a.vfs.UpdateSRSItemByID(ctx, review)
}

// GetDueCards implements SessionEngine.getDueCards, scoped to this
// adapter's own module.
func (a *Adapter) GetDueCards(ctx context.Context, asOfMillis int64, limit int) ([]*model.SRSItem, error) {
	return a.vfs.GetDueSRSItems(ctx, a.moduleID, asOfMillis, limit)
}

// On implements SessionEngine.on: cb is invoked only for events belonging to
// this adapter's module, with hidden (sidecar/protected) paths filtered out.
// Batch events carry no ModuleID of their own; their node payload is
// narrowed to this module's nodes, and dropped entirely when none remain.
func (a *Adapter) On(t eventbus.Type, cb func(eventbus.Event)) eventbus.Unsubscribe {
	return a.vfs.GetEventBus().On(t, func(ev eventbus.Event) {
		if ev.ModuleID != "" && ev.ModuleID != a.moduleID {
			return
		}
		if ev.Path != "" && isHidden(ev.Path) {
			return
		}
		if nodes, ok := ev.Data.([]*model.VNode); ok {
			var mine []*model.VNode
			for _, n := range nodes {
				if n.ModuleID == a.moduleID && !isHidden(n.SystemPath) {
					mine = append(mine, n)
				}
			}
			if len(mine) == 0 {
				return
			}
			ev.Data = mine
		}
		cb(ev)
	})
}
