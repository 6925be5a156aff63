// Package mime implements a middleware that derives vnode.metadata.mimeType
// and vnode.metadata.icon from a file's extension, via the stdlib mime
// package's extension table.
package mime

import (
	stdmime "mime"
	"path/filepath"
	"strings"

	"github.com/worldiety/vfsengine/middleware"
	"github.com/worldiety/vfsengine/model"
	"github.com/worldiety/vfsengine/storage"
)

// Priority is the default registration priority for this middleware.
const Priority = 60

var iconByExt = map[string]string{
	".md":   "note",
	".png":  "image",
	".jpg":  "image",
	".jpeg": "image",
	".gif":  "image",
	".svg":  "image",
	".pdf":  "pdf",
	".mp3":  "audio",
	".wav":  "audio",
	".mp4":  "video",
	".mov":  "video",
}

// New builds the MIME/icon middleware, applying only to file nodes.
func New() *middleware.Middleware {
	return &middleware.Middleware{
		Name:      "mime",
		Priority:  Priority,
		CanHandle: func(v *model.VNode) bool { return !v.IsDir() },
		OnAfterWrite: func(v *model.VNode, content []byte, tx storage.Transaction) (map[string]interface{}, error) {
			ext := strings.ToLower(filepath.Ext(v.Name))
			mt := stdmime.TypeByExtension(ext)
			if mt == "" {
				mt = "application/octet-stream"
			}
			icon, ok := iconByExt[ext]
			if !ok {
				icon = "file"
			}
			return map[string]interface{}{
				model.MetaMimeType: mt,
				model.MetaIcon:     icon,
			}, nil
		},
	}
}
