// Package outline implements a middleware that parses markdown headings
// into vnode.metadata.outline and inline cloze markers ({{c1::...}}-style)
// into vnode.metadata.clozeCount, seeding one SRSItem stub per newly
// discovered cloze directly in the write transaction. A line-oriented
// regexp scan; headings and cloze markers don't need a full markdown AST.
package outline

import (
	"bufio"
	"bytes"
	"context"
	"regexp"
	"strings"

	"github.com/worldiety/vfsengine/middleware"
	"github.com/worldiety/vfsengine/model"
	"github.com/worldiety/vfsengine/storage"
)

// Priority is the default registration priority for this middleware.
const Priority = 45

var (
	headingLine = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	clozeMarker = regexp.MustCompile(`\{\{c(\d+)::[^}]*\}\}`)
)

// Heading is one entry of the derived metadata.outline list.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// New builds the outline/cloze middleware, applying only to file nodes.
func New() *middleware.Middleware {
	return &middleware.Middleware{
		Name:      "outline",
		Priority:  Priority,
		CanHandle: func(v *model.VNode) bool { return !v.IsDir() },
		OnAfterWrite: func(v *model.VNode, content []byte, tx storage.Transaction) (map[string]interface{}, error) {
			headings := extractHeadings(content)
			clozeIDs := extractClozeIDs(content)

			if len(clozeIDs) > 0 && tx != nil {
				coll := tx.GetCollection(storage.CollSRSItems)
				for _, clozeID := range clozeIDs {
					key := model.SRSItemID(v.NodeID, clozeID)
					var existing model.SRSItem
					found, err := coll.Get(context.Background(), key, &existing)
					if err != nil {
						return nil, err
					}
					if found {
						continue // preserve prior review state
					}
					item := &model.SRSItem{
						NodeID:   v.NodeID,
						ClozeID:  clozeID,
						ModuleID: v.ModuleID,
						DueAt:    model.NowMillis(),
						Interval: 0,
						Ease:     2.5,
					}
					if err := coll.Put(context.Background(), key, item); err != nil {
						return nil, err
					}
				}
			}

			return map[string]interface{}{
				model.MetaOutline:    headings,
				model.MetaClozeCount: len(clozeIDs),
			}, nil
		},
	}
}

func extractHeadings(content []byte) []Heading {
	var out []Heading
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		m := headingLine.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		out = append(out, Heading{Level: len(m[1]), Text: strings.TrimSpace(m[2])})
	}
	return out
}

func extractClozeIDs(content []byte) []string {
	matches := clozeMarker.FindAllSubmatch(content, -1)
	seen := map[string]bool{}
	var out []string
	for _, m := range matches {
		id := "c" + string(m[1])
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
