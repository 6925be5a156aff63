// Package tasks implements a middleware that counts markdown checkbox list
// items ("- [ ]" / "- [x]") into vnode.metadata.taskCount on every write.
// A single-purpose regexp scan.
package tasks

import (
	"regexp"

	"github.com/worldiety/vfsengine/middleware"
	"github.com/worldiety/vfsengine/model"
	"github.com/worldiety/vfsengine/storage"
)

var checkboxLine = regexp.MustCompile(`(?m)^\s*[-*]\s+\[[ xX]\]\s`)

// Priority is the default registration priority for this middleware.
const Priority = 50

// New builds the task-count middleware, applying only to file nodes.
func New() *middleware.Middleware {
	return &middleware.Middleware{
		Name:      "tasks",
		Priority:  Priority,
		CanHandle: func(v *model.VNode) bool { return !v.IsDir() },
		OnAfterWrite: func(v *model.VNode, content []byte, tx storage.Transaction) (map[string]interface{}, error) {
			count := len(checkboxLine.FindAll(content, -1))
			return map[string]interface{}{model.MetaTaskCount: count}, nil
		},
	}
}
