package facade

import (
	"context"

	"github.com/worldiety/vfsengine/engine"
	"github.com/worldiety/vfsengine/model"
	"github.com/worldiety/vfsengine/vfspath"
)

// CreateFile creates a file node.
func (v *VFS) CreateFile(ctx context.Context, module, path string, content []byte, metadata map[string]interface{}) (*model.VNode, error) {
	return v.engine.CreateNode(ctx, engine.CreateParams{Module: module, Path: path, Type: model.File, Content: content, Metadata: metadata})
}

// CreateDirectory creates a directory node.
func (v *VFS) CreateDirectory(ctx context.Context, module, path string, metadata map[string]interface{}) (*model.VNode, error) {
	return v.engine.CreateNode(ctx, engine.CreateParams{Module: module, Path: path, Type: model.Directory, Metadata: metadata})
}

// Read returns a file node's content.
func (v *VFS) Read(ctx context.Context, nodeID string) ([]byte, error) {
	return v.engine.Read(ctx, nodeID)
}

// Write replaces a file node's content.
func (v *VFS) Write(ctx context.Context, nodeID string, content []byte) (*model.VNode, error) {
	return v.engine.Write(ctx, nodeID, content)
}

// Delete removes a node.
func (v *VFS) Delete(ctx context.Context, nodeID string, recursive bool) error {
	return v.engine.Unlink(ctx, nodeID, recursive)
}

// Move relocates/renames a node within its own module.
func (v *VFS) Move(ctx context.Context, nodeID, newUserPath string) (*model.VNode, error) {
	return v.engine.Move(ctx, nodeID, newUserPath)
}

// Rename changes a node's name in place, expressed as a Move to the same
// parent with a new basename.
func (v *VFS) Rename(ctx context.Context, nodeID, newName string) (*model.VNode, error) {
	node, err := v.engine.GetNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	userPath := vfspath.ToUserPath(node.SystemPath, node.ModuleID)
	parentUserPath := vfspath.Dirname(userPath)
	return v.engine.Move(ctx, nodeID, vfspath.Join(parentUserPath, newName))
}

// ReadDir lists a directory's direct children.
func (v *VFS) ReadDir(ctx context.Context, dirID string) ([]*model.VNode, error) {
	return v.engine.ReadDir(ctx, dirID)
}

// GetTree recursively reads dirID's full subtree.
func (v *VFS) GetTree(ctx context.Context, dirID string) ([]*model.VNode, error) {
	root, err := v.engine.GetNode(ctx, dirID)
	if err != nil {
		return nil, err
	}
	var out []*model.VNode
	var walk func(n *model.VNode) error
	walk = func(n *model.VNode) error {
		out = append(out, n)
		if !n.IsDir() {
			return nil
		}
		children, err := v.engine.ReadDir(ctx, n.NodeID)
		if err != nil {
			return err
		}
		for _, c := range children {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root); err != nil {
		return nil, err
	}
	return out, nil
}

// AddTag attaches a tag to a node.
func (v *VFS) AddTag(ctx context.Context, nodeID, tagName string) error {
	return v.engine.AddTag(ctx, nodeID, tagName)
}

// RemoveTag detaches a tag from a node.
func (v *VFS) RemoveTag(ctx context.Context, nodeID, tagName string) error {
	return v.engine.RemoveTag(ctx, nodeID, tagName)
}

// SetTags replaces a node's tag set.
func (v *VFS) SetTags(ctx context.Context, nodeID string, tags []string) error {
	return v.engine.SetTags(ctx, nodeID, tags)
}

// BatchSetTags replaces several nodes' tag sets all-or-nothing.
func (v *VFS) BatchSetTags(ctx context.Context, assignments []engine.TagAssignment) error {
	return v.engine.BatchSetTags(ctx, assignments)
}

// SearchNodes searches mounted modules.
func (v *VFS) SearchNodes(ctx context.Context, params engine.SearchParams) ([]*model.VNode, error) {
	return v.engine.SearchNodes(ctx, params)
}

// UpdateSRSItemByID grades an SRS card.
func (v *VFS) UpdateSRSItemByID(ctx context.Context, review engine.SRSReview) (*model.SRSItem, error) {
	return v.engine.UpdateSRSItemByID(ctx, review)
}

// GetSRSItemsByNodeID lists a node's SRS cards.
func (v *VFS) GetSRSItemsByNodeID(ctx context.Context, nodeID string) ([]*model.SRSItem, error) {
	return v.engine.GetSRSItemsByNodeID(ctx, nodeID)
}

// GetDueSRSItems lists due SRS cards.
func (v *VFS) GetDueSRSItems(ctx context.Context, moduleID string, asOfMillis int64, limit int) ([]*model.SRSItem, error) {
	return v.engine.GetDueSRSItems(ctx, moduleID, asOfMillis, limit)
}
