package engine

import (
	"context"

	"github.com/worldiety/vfsengine/eventbus"
	"github.com/worldiety/vfsengine/model"
	"github.com/worldiety/vfsengine/storage"
	"github.com/worldiety/vfsengine/vfserr"
	"github.com/worldiety/vfsengine/vfspath"
)

// CreateParams parametrizes CreateNode.
type CreateParams struct {
	Module   string
	Path     string
	Type     model.NodeType
	Content  []byte
	Metadata map[string]interface{}
}

// CreateNode creates a file or directory node: normalize the path,
// reject a collision, resolve the parent, run the validate/beforeWrite/
// persist/afterWrite pipeline in one transaction, and emit NODE_CREATED.
func (e *Engine) CreateNode(ctx context.Context, p CreateParams) (*model.VNode, error) {
	if err := vfspath.Validate(p.Path); err != nil {
		return nil, err
	}
	userPath := vfspath.Normalize(p.Path)
	systemPath := vfspath.ToSystemPath(p.Module, userPath)

	mu := e.lockFor(systemPath)
	mu.Lock()
	defer mu.Unlock()

	if _, exists := e.NodeIDByPath(p.Module, systemPath); exists {
		return nil, vfserr.New(vfserr.AlreadyExists, "path %s already exists in module %s", userPath, p.Module)
	}

	var parentID string
	isModuleRoot := systemPath == "/"+p.Module
	if !isModuleRoot {
		parentUserPath := vfspath.Dirname(userPath)
		parentSystemPath := vfspath.ToSystemPath(p.Module, parentUserPath)
		pid, ok := e.NodeIDByPath(p.Module, parentSystemPath)
		if !ok {
			return nil, vfserr.New(vfserr.NotFound, "parent directory %s does not exist", parentUserPath)
		}
		parent, err := e.GetNode(ctx, pid)
		if err != nil {
			return nil, err
		}
		if !parent.IsDir() {
			return nil, vfserr.New(vfserr.InvalidOperation, "parent %s is not a directory", parentUserPath)
		}
		parentID = pid
	}

	nodeID := model.NewNodeID()
	now := model.NowMillis()
	v := &model.VNode{
		NodeID:     nodeID,
		Type:       p.Type,
		ParentID:   parentID,
		Name:       vfspath.Basename(userPath),
		SystemPath: systemPath,
		ModuleID:   p.Module,
		Size:       int64(len(p.Content)),
		CreatedAt:  now,
		ModifiedAt: now,
		Metadata:   copyMeta(p.Metadata),
	}
	if isModuleRoot {
		v.Name = p.Module
	}
	if v.Type == model.File {
		v.ContentRef = model.NewContentRef(nodeID)
	}

	if err := e.registry.RunValidate(v, p.Content); err != nil {
		return nil, err
	}

	// span all collections: middleware hooks receive tx and may write
	// derived rows (e.g. seeded SRS items) beyond vnodes/contents
	tx, err := e.adapter.BeginTransaction(ctx, allCollections, storage.ReadWrite)
	if err != nil {
		return nil, vfserr.Wrap(err, vfserr.TransactionFailed, "beginning create transaction")
	}

	finalContent, err := e.registry.RunBeforeWrite(v, p.Content, tx)
	if err != nil {
		_ = tx.Abort()
		return nil, err
	}

	if v.Type == model.File {
		content := &model.Content{
			ContentRef: v.ContentRef,
			NodeID:     nodeID,
			Content:    finalContent,
			Size:       int64(len(finalContent)),
			CreatedAt:  now,
		}
		if err := tx.GetCollection(storage.CollContents).Put(ctx, v.ContentRef, content); err != nil {
			_ = tx.Abort()
			return nil, vfserr.Wrap(err, vfserr.TransactionFailed, "storing content")
		}
		v.Size = int64(len(finalContent))
	}

	derived, err := e.registry.RunAfterWrite(v, finalContent, tx)
	if err != nil {
		_ = tx.Abort()
		return nil, err
	}
	v.Metadata = mergeMetadata(v.Metadata, derived)

	if err := tx.GetCollection(storage.CollVNodes).Put(ctx, v.NodeID, v); err != nil {
		_ = tx.Abort()
		return nil, vfserr.Wrap(err, vfserr.TransactionFailed, "storing node")
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	<-tx.Done()

	e.cachePut(v)
	e.bus.Emit(eventbus.Event{
		Type: eventbus.NodeCreated, NodeID: v.NodeID, Path: v.SystemPath,
		ModuleID: v.ModuleID, Timestamp: model.NowMillis(), Data: v.Clone(),
	})
	return v.Clone(), nil
}

func copyMeta(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
