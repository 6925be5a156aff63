package memadapter

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/worldiety/vfsengine/storage"
)

func toIndexString(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// inRange reports whether idxKey falls within r, comparing lexicographically
// (the dueAt index pre-encodes as a fixed-width zero-padded decimal so
// lexicographic order matches numeric order).
func inRange(idxKey string, r *storage.Range) bool {
	if r.Lower != nil {
		lower := toIndexString(r.Lower)
		if r.LowerOpen {
			if idxKey <= lower {
				return false
			}
		} else if idxKey < lower {
			return false
		}
	}
	if r.Upper != nil {
		upper := toIndexString(r.Upper)
		if r.UpperOpen {
			if idxKey >= upper {
				return false
			}
		} else if idxKey > upper {
			return false
		}
	}
	return true
}

func removeFromIndexes(s *store, coll string, key string, old []byte) {
	for _, spec := range storage.IndexesOf(coll) {
		rec := storage.NewRecord(coll)
		if err := json.Unmarshal(old, rec); err != nil {
			continue
		}
		idxKey := spec.Key(rec)
		m := s.indexes[spec.Name]
		if m == nil {
			continue
		}
		m[idxKey] = removeString(m[idxKey], key)
		if len(m[idxKey]) == 0 {
			delete(m, idxKey)
		}
	}
}

func removeString(list []string, v string) []string {
	out := list[:0]
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}

// decodeRows unmarshals every row into the collection's record type,
// applying filter if non-nil, and returns the resulting slice as
// []interface{} (each element a pointer to the concrete record type).
func decodeRows(coll string, rows []row, filter func(v interface{}) bool) []interface{} {
	out := make([]interface{}, 0, len(rows))
	for _, r := range rows {
		rec := storage.NewRecord(coll)
		if err := json.Unmarshal(r.data, rec); err != nil {
			continue
		}
		if filter != nil && !filter(rec) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// assignSlice copies results (each a pointer to the collection's record
// type) into dest, a pointer to a slice of either the pointer or the value
// form of that type (*[]*model.VNode and *[]model.VNode both work).
func assignSlice(dest interface{}, results []interface{}) error {
	destVal := reflect.ValueOf(dest)
	if destVal.Kind() != reflect.Ptr || destVal.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("memadapter: dest must be a pointer to a slice, got %T", dest)
	}
	sliceVal := destVal.Elem()
	elemType := sliceVal.Type().Elem()
	out := reflect.MakeSlice(sliceVal.Type(), 0, len(results))
	for _, r := range results {
		rv := reflect.ValueOf(r)
		switch {
		case rv.Type().AssignableTo(elemType):
			out = reflect.Append(out, rv)
		case rv.Kind() == reflect.Ptr && rv.Elem().Type().AssignableTo(elemType):
			out = reflect.Append(out, rv.Elem())
		default:
			return fmt.Errorf("memadapter: cannot assign %s into %s", rv.Type(), elemType)
		}
	}
	sliceVal.Set(out)
	return nil
}
