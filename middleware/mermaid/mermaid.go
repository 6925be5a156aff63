// Package mermaid implements a middleware that counts fenced ```mermaid
// code blocks into vnode.metadata.mermaidCount. A single fenced-block
// counter does not warrant a parser dependency; a bufio line scan is
// sufficient.
package mermaid

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/worldiety/vfsengine/middleware"
	"github.com/worldiety/vfsengine/model"
	"github.com/worldiety/vfsengine/storage"
)

// Priority is the default registration priority for this middleware.
const Priority = 40

// New builds the mermaid-block-count middleware, applying only to file
// nodes.
func New() *middleware.Middleware {
	return &middleware.Middleware{
		Name:      "mermaid",
		Priority:  Priority,
		CanHandle: func(v *model.VNode) bool { return !v.IsDir() },
		OnAfterWrite: func(v *model.VNode, content []byte, tx storage.Transaction) (map[string]interface{}, error) {
			return map[string]interface{}{model.MetaMermaidCount: countMermaidBlocks(content)}, nil
		},
	}
}

func countMermaidBlocks(content []byte) int {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	count := 0
	inBlock := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !inBlock && strings.HasPrefix(line, "```mermaid") {
			inBlock = true
			count++
			continue
		}
		if inBlock && strings.HasPrefix(line, "```") {
			inBlock = false
		}
	}
	return count
}
