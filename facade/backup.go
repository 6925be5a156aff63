package facade

import (
	"context"
	"encoding/base64"

	"github.com/google/uuid"

	"github.com/worldiety/vfsengine/engine"
	"github.com/worldiety/vfsengine/model"
	"github.com/worldiety/vfsengine/modreg"
	"github.com/worldiety/vfsengine/vfserr"
	"github.com/worldiety/vfsengine/vfspath"
)

// BackupVersion is the current backup schema version.
const BackupVersion = 1

// TreeData is one node and its subtree in the versioned backup format.
type TreeData struct {
	Name     string                   `json:"name"`
	Type     model.NodeType           `json:"type"`
	Metadata map[string]interface{}   `json:"metadata,omitempty"`
	Tags     []string                 `json:"tags,omitempty"`
	SRS      map[string]model.SRSItem `json:"srs,omitempty"`
	Content  string                   `json:"content,omitempty"` // base64 for files
	Children []TreeData               `json:"children,omitempty"`
}

// ModuleBackup pairs a ModuleInfo with its exported tree.
type ModuleBackup struct {
	Module model.ModuleInfo `json:"module"`
	Tree   TreeData         `json:"tree"`
}

// SystemBackup is the full versioned backup document.
// BackupID is assigned fresh on every CreateSystemBackup call, independent
// of the content it carries, so a sync adapter or support ticket can refer
// to "this particular export" unambiguously even across two backups with
// identical module contents.
type SystemBackup struct {
	BackupID  string         `json:"backupId"`
	Version   int            `json:"version"`
	Timestamp int64          `json:"timestamp"`
	Modules   []ModuleBackup `json:"modules"`
}

// RestoreOptions parametrizes RestoreSystemBackupIncrementally.
type RestoreOptions struct {
	Overwrite bool
	MergeTags bool
}

// ExportModule reads moduleName's whole tree into the backup TreeData
// shape. The returned Tree is the module root node itself, with the rest of
// the module as its Children; ImportModule skips that root entry and
// imports only its children.
func (v *VFS) ExportModule(ctx context.Context, moduleName string) (*ModuleBackup, error) {
	info, ok := v.modules.Get(moduleName)
	if !ok {
		return nil, vfserr.New(vfserr.NotFound, "module %s not mounted", moduleName)
	}
	root, err := v.engine.GetNode(ctx, info.RootNodeID)
	if err != nil {
		return nil, err
	}
	rootTree, err := v.exportNode(ctx, root)
	if err != nil {
		return nil, err
	}
	return &ModuleBackup{Module: *info, Tree: rootTree}, nil
}

func (v *VFS) exportNode(ctx context.Context, n *model.VNode) (TreeData, error) {
	td := TreeData{Name: n.Name, Type: n.Type, Metadata: n.Metadata, Tags: n.Tags}

	if n.Type == model.File {
		content, err := v.engine.Read(ctx, n.NodeID)
		if err != nil {
			return td, err
		}
		td.Content = base64.StdEncoding.EncodeToString(content)
	}

	items, err := v.engine.GetSRSItemsByNodeID(ctx, n.NodeID)
	if err != nil {
		return td, err
	}
	if len(items) > 0 {
		td.SRS = make(map[string]model.SRSItem, len(items))
		for _, it := range items {
			td.SRS[it.ClozeID] = *it
		}
	}

	if n.IsDir() {
		children, err := v.engine.ReadDir(ctx, n.NodeID)
		if err != nil {
			return td, err
		}
		for _, c := range children {
			childTree, err := v.exportNode(ctx, c)
			if err != nil {
				return td, err
			}
			td.Children = append(td.Children, childTree)
		}
	}
	return td, nil
}

// CreateSystemBackup exports every mounted module.
func (v *VFS) CreateSystemBackup(ctx context.Context) (*SystemBackup, error) {
	backup := &SystemBackup{BackupID: uuid.NewString(), Version: BackupVersion, Timestamp: model.NowMillis()}
	for _, info := range v.modules.List() {
		mb, err := v.ExportModule(ctx, info.Name)
		if err != nil {
			return nil, err
		}
		backup.Modules = append(backup.Modules, *mb)
	}
	return backup, nil
}

// RestoreSystemBackup performs a full restore: every currently mounted
// module is unmounted, then each module in backup is mounted fresh and its
// tree imported. Existing data is destroyed.
func (v *VFS) RestoreSystemBackup(ctx context.Context, backup *SystemBackup) error {
	for _, info := range v.modules.List() {
		if err := v.modules.Unmount(ctx, info.Name); err != nil {
			return err
		}
	}
	for _, mb := range backup.Modules {
		if _, err := v.modules.Mount(ctx, mb.Module.Name, moduleMountOptionsOf(mb.Module)); err != nil {
			return err
		}
		if err := v.ImportModule(ctx, mb.Module.Name, mb.Tree, RestoreOptions{Overwrite: true, MergeTags: true}); err != nil {
			return err
		}
	}
	return nil
}

// RestoreSystemBackupIncrementally merges backup into the currently mounted
// state: existing file content is
// overwritten only when opts.Overwrite; metadata is merged with Overwrite
// controlling which side wins; tags are unioned when opts.MergeTags; SRS
// rows are written only for new cards or when opts.Overwrite.
func (v *VFS) RestoreSystemBackupIncrementally(ctx context.Context, backup *SystemBackup, opts RestoreOptions) error {
	for _, mb := range backup.Modules {
		if _, ok := v.modules.Get(mb.Module.Name); !ok {
			if _, err := v.modules.Mount(ctx, mb.Module.Name, moduleMountOptionsOf(mb.Module)); err != nil {
				return err
			}
		}
		if err := v.ImportModule(ctx, mb.Module.Name, mb.Tree, opts); err != nil {
			return err
		}
	}
	return nil
}

// ImportModule imports tree into moduleName under "/": tree is the module
// root's TreeData as ExportModule produces it. The root entry itself is
// skipped; its Children are created directly under the module root.
func (v *VFS) ImportModule(ctx context.Context, moduleName string, tree TreeData, opts RestoreOptions) error {
	if _, ok := v.modules.Get(moduleName); !ok {
		return vfserr.New(vfserr.NotFound, "module %s not mounted", moduleName)
	}
	for _, child := range tree.Children {
		if err := v.importNode(ctx, moduleName, "/", child, opts); err != nil {
			return err
		}
	}
	return nil
}

func (v *VFS) importNode(ctx context.Context, moduleName, parentUserPath string, td TreeData, opts RestoreOptions) error {
	userPath := vfspath.Join(parentUserPath, td.Name)
	systemPath := vfspath.ToSystemPath(moduleName, userPath)
	nodeID, exists := v.engine.NodeIDByPath(moduleName, systemPath)

	var content []byte
	if td.Content != "" {
		decoded, err := base64.StdEncoding.DecodeString(td.Content)
		if err != nil {
			return vfserr.Wrap(err, vfserr.ValidationFailed, "decoding content of %s", userPath)
		}
		content = decoded
	}

	var node *model.VNode
	var err error
	if !exists {
		node, err = v.engine.CreateNode(ctx, engine.CreateParams{
			Module: moduleName, Path: userPath, Type: td.Type, Content: content, Metadata: td.Metadata,
		})
		if err != nil {
			return err
		}
	} else {
		node, err = v.engine.GetNode(ctx, nodeID)
		if err != nil {
			return err
		}
		if td.Type == model.File && opts.Overwrite {
			node, err = v.engine.Write(ctx, nodeID, content)
			if err != nil {
				return err
			}
		}
		if len(td.Metadata) > 0 {
			node, err = v.engine.UpdateMetadata(ctx, node.NodeID, td.Metadata, opts.Overwrite)
			if err != nil {
				return err
			}
		}
	}

	if opts.MergeTags {
		want := map[string]bool{}
		for _, t := range node.Tags {
			want[t] = true
		}
		for _, t := range td.Tags {
			want[t] = true
		}
		merged := make([]string, 0, len(want))
		for t := range want {
			merged = append(merged, t)
		}
		if err := v.engine.SetTags(ctx, node.NodeID, merged); err != nil {
			return err
		}
	} else if !exists {
		if err := v.engine.SetTags(ctx, node.NodeID, td.Tags); err != nil {
			return err
		}
	}

	for clozeID, item := range td.SRS {
		existingItems, err := v.engine.GetSRSItemsByNodeID(ctx, node.NodeID)
		if err != nil {
			return err
		}
		hasExisting := false
		for _, ex := range existingItems {
			if ex.ClozeID == clozeID {
				hasExisting = true
				break
			}
		}
		if hasExisting && !opts.Overwrite {
			continue
		}
		item := item
		item.NodeID = node.NodeID
		item.ModuleID = moduleName
		item.ClozeID = clozeID
		if err := v.engine.PutSRSItem(ctx, &item); err != nil {
			return err
		}
	}

	if td.Type == model.Directory {
		for _, child := range td.Children {
			if err := v.importNode(ctx, moduleName, userPath, child, opts); err != nil {
				return err
			}
		}
	}
	return nil
}

func moduleMountOptionsOf(info model.ModuleInfo) modreg.MountOptions {
	return modreg.MountOptions{Description: info.Description, IsProtected: info.IsProtected}
}
