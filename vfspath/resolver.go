package vfspath

// Index is the narrow lookup contract a storage adapter must expose for the
// resolver to translate a user path into a node id without the vfspath
// package importing the storage package (avoiding an import cycle, since
// storage never needs to know about paths).
type Index interface {
	// NodeIDByPath returns the node id stored at (moduleID, systemPath), or
	// ("", false) if no such node exists.
	NodeIDByPath(moduleID, systemPath string) (string, bool)
}

// Resolver binds path translation to a concrete Index so callers can resolve
// user paths to node ids without repeating ToSystemPath at every call site.
type Resolver struct {
	idx Index
}

// NewResolver builds a Resolver backed by idx.
func NewResolver(idx Index) *Resolver {
	return &Resolver{idx: idx}
}

// Resolve looks up the node id addressed by a module-relative user path.
func (r *Resolver) Resolve(module, userPath string) (string, bool) {
	return r.idx.NodeIDByPath(module, ToSystemPath(module, userPath))
}

// ResolveParent looks up the node id of userPath's parent directory.
func (r *Resolver) ResolveParent(module, userPath string) (string, bool) {
	parent := Dirname(userPath)
	return r.idx.NodeIDByPath(module, ToSystemPath(module, parent))
}
