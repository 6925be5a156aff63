// Package vfspath is the stateless bridge between two path spaces: the
// user path (module-relative, root "/") that callers of the facade see, and
// the system path (absolute, "/<moduleId>/<segments...>") that the storage
// adapter keys on. It never touches storage; see Resolver for the lookup
// side that does.
//
// Design decisions
//
//   - A path is kept as a plain string instead of a pre-split segment
//     slice: most paths are short, and split-on-demand keeps the common
//     case (comparing or storing a path) allocation-free.
//   - Popping above root with ".." is ignored rather than erroring, mirroring
//     POSIX shells' behavior for "cd /../.." at the filesystem root.
package vfspath

import (
	"strings"

	"github.com/worldiety/vfsengine/vfserr"
)

// disallowed holds the reserved characters a path segment may not contain:
// < > : " | ? * (control chars 0x00-0x1f are checked separately).
var disallowed = []byte{'<', '>', ':', '"', '|', '?', '*'}

// IsValid reports whether p is a syntactically legal path: a non-empty
// string starting with "/", free of "//" and of any disallowed/control
// character.
func IsValid(p string) bool {
	if p == "" || p[0] != '/' {
		return false
	}
	if strings.Contains(p, "//") {
		return false
	}
	for i := 0; i < len(p); i++ {
		c := p[i]
		if c <= 0x1f {
			return false
		}
		for _, bad := range disallowed {
			if c == bad {
				return false
			}
		}
	}
	return true
}

// Normalize collapses repeated slashes, resolves "." and ".." segments
// (popping above root is a no-op) and ensures a single leading slash.
// Normalize never fails; callers validate with IsValid first.
func Normalize(p string) string {
	segs := splitSegments(p)
	out := make([]string, 0, len(segs))
	for _, s := range segs {
		switch s {
		case ".", "":
			continue
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return "/"
	}
	return "/" + strings.Join(out, "/")
}

func splitSegments(p string) []string {
	raw := strings.Split(p, "/")
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate returns vfserr.InvalidPath if p is not a valid user or system
// path, wrapping the offending value into the error message.
func Validate(p string) error {
	if !IsValid(p) {
		return vfserr.New(vfserr.InvalidPath, "malformed path %q", p)
	}
	return nil
}

// Dirname returns the parent segment of p ("/" for a root-level path).
func Dirname(p string) string {
	segs := splitSegments(Normalize(p))
	if len(segs) <= 1 {
		return "/"
	}
	return "/" + strings.Join(segs[:len(segs)-1], "/")
}

// Basename returns the last segment of p, or "" for the root path.
func Basename(p string) string {
	segs := splitSegments(Normalize(p))
	if len(segs) == 0 {
		return ""
	}
	return segs[len(segs)-1]
}

// Join concatenates segments into a single normalized path.
func Join(segments ...string) string {
	return Normalize(strings.Join(segments, "/"))
}

// ToSystemPath maps a module-relative user path onto the absolute system
// path space: "/<module>" + userPath, with the module root itself mapping to
// "/<module>".
func ToSystemPath(module, userPath string) string {
	norm := Normalize(userPath)
	if norm == "/" {
		return "/" + module
	}
	return "/" + module + norm
}

// ToUserPath maps an absolute system path back onto the module-relative
// space. If systemPath does not belong to module, the systemPath is returned
// unchanged (the caller is expected to warn and treat this as a mismatch).
func ToUserPath(systemPath, module string) string {
	prefix := "/" + module
	if systemPath == prefix {
		return "/"
	}
	if strings.HasPrefix(systemPath, prefix+"/") {
		return strings.TrimPrefix(systemPath, prefix)
	}
	return systemPath
}
