package engine

import (
	"context"
	"strings"

	"github.com/worldiety/vfsengine/model"
	"github.com/worldiety/vfsengine/storage"
	"github.com/worldiety/vfsengine/vfserr"
)

// SearchParams parametrizes SearchNodes. Scope lists the module ids to
// search; a nil/empty Scope means every module except the protected
// "__"-prefixed ones.
// Tags, when non-empty, requires every listed tag to be present (AND
// intersection).
type SearchParams struct {
	Scope        []string
	NameContains string
	Type         model.NodeType
	Tags         []string
	Limit        int
}

// SearchNodes filters vnodes by type, a case-insensitive name substring, and
// tag intersection, optionally restricted to a set of modules. Result
// ordering is unspecified. There is no full-text content index.
func (e *Engine) SearchNodes(ctx context.Context, p SearchParams) ([]*model.VNode, error) {
	var taggedSets []map[string]bool
	for _, tag := range p.Tags {
		var edges []model.NodeTag
		if err := e.adapter.GetCollection(storage.CollNodeTags).GetAllByIndex(ctx, storage.IdxNodeTagTag, tag, &edges); err != nil {
			return nil, vfserr.Wrap(err, vfserr.TransactionFailed, "listing nodes tagged %s", tag)
		}
		set := make(map[string]bool, len(edges))
		for _, edge := range edges {
			set[edge.NodeID] = true
		}
		taggedSets = append(taggedSets, set)
	}

	scope := map[string]bool{}
	for _, m := range p.Scope {
		scope[m] = true
	}

	var candidates []model.VNode
	var err error
	if len(p.Scope) == 1 {
		err = e.adapter.GetCollection(storage.CollVNodes).GetAllByIndex(ctx, storage.IdxModuleID, p.Scope[0], &candidates)
	} else {
		err = e.adapter.GetCollection(storage.CollVNodes).GetAll(ctx, &candidates)
	}
	if err != nil {
		return nil, vfserr.Wrap(err, vfserr.TransactionFailed, "scanning nodes")
	}

	query := strings.ToLower(p.NameContains)
	var out []*model.VNode
	for i := range candidates {
		v := &candidates[i]
		if len(scope) > 0 && !scope[v.ModuleID] {
			continue
		}
		// protected modules stay invisible unless the caller scoped to
		// them explicitly; dot-segment (sidecar) paths are always skipped
		if len(scope) == 0 && strings.HasPrefix(v.ModuleID, "__") {
			continue
		}
		if hasHiddenSegment(v.SystemPath) {
			continue
		}
		if p.Type != "" && v.Type != p.Type {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(v.Name), query) {
			continue
		}
		allTagged := true
		for _, set := range taggedSets {
			if !set[v.NodeID] {
				allTagged = false
				break
			}
		}
		if !allTagged {
			continue
		}
		out = append(out, v.Clone())
		if p.Limit > 0 && len(out) >= p.Limit {
			break
		}
	}
	return out, nil
}

func hasHiddenSegment(systemPath string) bool {
	for _, seg := range strings.Split(systemPath, "/") {
		if strings.HasPrefix(seg, ".") && len(seg) > 1 {
			return true
		}
	}
	return false
}
