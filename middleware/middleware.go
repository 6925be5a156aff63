// Package middleware is the content-processing hook registry: ordered
// invocation of write/read/delete hooks with priority and capability
// filtering. A middleware is a plain struct with optional function-valued
// fields rather than a hierarchy of type-asserted capability interfaces —
// simpler to register, simpler to test, and extensions implement only the
// hooks they need.
package middleware

import (
	"sort"

	"github.com/worldiety/vfsengine/model"
	"github.com/worldiety/vfsengine/storage"
	"github.com/worldiety/vfsengine/vfserr"
)

// Middleware declares a name, an invocation priority (higher runs first),
// an optional capability filter, and any subset of the content-processing
// hooks below.
type Middleware struct {
	Name     string
	Priority int

	// CanHandle, if set, is consulted before every hook invocation; a
	// middleware whose CanHandle returns false is skipped for that node.
	CanHandle func(v *model.VNode) bool

	OnValidate     func(v *model.VNode, content []byte) error
	OnBeforeRead   func(v *model.VNode) error
	OnAfterRead    func(v *model.VNode, content []byte) ([]byte, error)
	OnBeforeWrite  func(v *model.VNode, content []byte, tx storage.Transaction) ([]byte, error)
	OnAfterWrite   func(v *model.VNode, content []byte, tx storage.Transaction) (map[string]interface{}, error)
	OnBeforeDelete func(v *model.VNode, tx storage.Transaction) error
	OnAfterDelete  func(v *model.VNode, tx storage.Transaction) error
}

func (m *Middleware) handles(v *model.VNode) bool {
	return m.CanHandle == nil || m.CanHandle(v)
}

// Registry holds the ordered set of registered middlewares and runs each
// hook across them in descending priority, skipping any middleware whose
// CanHandle returns false.
type Registry struct {
	middlewares []*Middleware
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds mw, re-sorting by descending priority. Ties keep insertion
// order (sort.SliceStable) so registration order stays deterministic.
func (r *Registry) Register(mw *Middleware) {
	r.middlewares = append(r.middlewares, mw)
	sort.SliceStable(r.middlewares, func(i, j int) bool {
		return r.middlewares[i].Priority > r.middlewares[j].Priority
	})
}

// Middlewares returns the registered middlewares in invocation order.
func (r *Registry) Middlewares() []*Middleware {
	return append([]*Middleware(nil), r.middlewares...)
}

// RunValidate invokes every applicable OnValidate hook; the first failure
// aborts with vfserr.ValidationFailed before any storage mutation.
func (r *Registry) RunValidate(v *model.VNode, content []byte) error {
	for _, mw := range r.middlewares {
		if mw.OnValidate == nil || !mw.handles(v) {
			continue
		}
		if err := mw.OnValidate(v, content); err != nil {
			return vfserr.Wrap(err, vfserr.ValidationFailed, "middleware %q rejected content", mw.Name)
		}
	}
	return nil
}

// RunBeforeRead invokes every applicable OnBeforeRead hook.
func (r *Registry) RunBeforeRead(v *model.VNode) error {
	for _, mw := range r.middlewares {
		if mw.OnBeforeRead == nil || !mw.handles(v) {
			continue
		}
		if err := mw.OnBeforeRead(v); err != nil {
			return err
		}
	}
	return nil
}

// RunAfterRead chains every applicable OnAfterRead hook, each receiving the
// prior hook's output.
func (r *Registry) RunAfterRead(v *model.VNode, content []byte) ([]byte, error) {
	cur := content
	for _, mw := range r.middlewares {
		if mw.OnAfterRead == nil || !mw.handles(v) {
			continue
		}
		next, err := mw.OnAfterRead(v, cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// RunBeforeWrite chains every applicable OnBeforeWrite hook, each receiving
// the prior output; the final value is what gets persisted.
func (r *Registry) RunBeforeWrite(v *model.VNode, content []byte, tx storage.Transaction) ([]byte, error) {
	cur := content
	for _, mw := range r.middlewares {
		if mw.OnBeforeWrite == nil || !mw.handles(v) {
			continue
		}
		next, err := mw.OnBeforeWrite(v, cur, tx)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// RunAfterWrite invokes every applicable OnAfterWrite hook and merges their
// outputs into one map. The merge proceeds in invocation order (descending
// priority) with object-spread semantics: a later middleware's key
// overwrites an earlier one's for the same key — not a "highest priority
// always wins" merge.
func (r *Registry) RunAfterWrite(v *model.VNode, content []byte, tx storage.Transaction) (map[string]interface{}, error) {
	merged := map[string]interface{}{}
	for _, mw := range r.middlewares {
		if mw.OnAfterWrite == nil || !mw.handles(v) {
			continue
		}
		derived, err := mw.OnAfterWrite(v, content, tx)
		if err != nil {
			return nil, err
		}
		for k, val := range derived {
			merged[k] = val
		}
	}
	return merged, nil
}

// RunBeforeDelete invokes every applicable OnBeforeDelete hook.
func (r *Registry) RunBeforeDelete(v *model.VNode, tx storage.Transaction) error {
	for _, mw := range r.middlewares {
		if mw.OnBeforeDelete == nil || !mw.handles(v) {
			continue
		}
		if err := mw.OnBeforeDelete(v, tx); err != nil {
			return err
		}
	}
	return nil
}

// RunAfterDelete invokes every applicable OnAfterDelete hook.
func (r *Registry) RunAfterDelete(v *model.VNode, tx storage.Transaction) error {
	for _, mw := range r.middlewares {
		if mw.OnAfterDelete == nil || !mw.handles(v) {
			continue
		}
		if err := mw.OnAfterDelete(v, tx); err != nil {
			return err
		}
	}
	return nil
}
