package badgeradapter

import (
	"fmt"
	"reflect"
)

// assignSlice copies results (each a pointer to the collection's record
// type) into dest, a pointer to a slice of either the pointer or the value
// form of that type (*[]*model.VNode and *[]model.VNode both work).
func assignSlice(dest interface{}, results []interface{}) error {
	destVal := reflect.ValueOf(dest)
	if destVal.Kind() != reflect.Ptr || destVal.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("badgeradapter: dest must be a pointer to a slice, got %T", dest)
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
			return fmt.Errorf("badgeradapter: cannot assign %s into %s", rv.Type(), elemType)
		}
	}
	sliceVal.Set(out)
	return nil
}
