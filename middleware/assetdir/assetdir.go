// Package assetdir implements the sidecar-directory naming convention:
// a directory named ".X" alongside a file "X" is hinted, not enforced, as
// that file's asset directory. On a directory's write/create path, if its
// name starts with "." and a sibling file matching its un-dotted name
// exists, this middleware stamps metadata.isAssetDir on the directory plus
// metadata.ownerId back-referencing the owning file. Both are hints only;
// nothing else depends on them for correctness.
package assetdir

import (
	"context"
	"strings"

	"github.com/worldiety/vfsengine/middleware"
	"github.com/worldiety/vfsengine/model"
	"github.com/worldiety/vfsengine/storage"
)

// Priority is the default registration priority for this middleware.
const Priority = 30

// New builds the sidecar-directory hint middleware, applying only to
// directory nodes whose name starts with a dot.
func New() *middleware.Middleware {
	return &middleware.Middleware{
		Name:     "assetdir",
		Priority: Priority,
		CanHandle: func(v *model.VNode) bool {
			return v.IsDir() && strings.HasPrefix(v.Name, ".") && len(v.Name) > 1
		},
		OnAfterWrite: func(v *model.VNode, content []byte, tx storage.Transaction) (map[string]interface{}, error) {
			derived := map[string]interface{}{model.MetaIsAssetDir: true}
			if tx == nil {
				return derived, nil
			}
			siblingName := v.Name[1:]
			siblingPath := strings.TrimSuffix(v.SystemPath, "/"+v.Name) + "/" + siblingName

			coll := tx.GetCollection(storage.CollVNodes)
			var sibling model.VNode
			found, err := coll.GetByIndex(context.Background(), storage.IdxModulePath, storage.VNodePathKey(v.ModuleID, siblingPath), &sibling)
			if err != nil {
				return nil, err
			}
			if found && !sibling.IsDir() {
				derived[model.MetaOwnerID] = sibling.NodeID
			}
			return derived, nil
		},
	}
}
