package storage

import (
	"fmt"

	"github.com/worldiety/vfsengine/model"
)

// IndexSpec describes one secondary index maintained by an adapter: its
// name, whether it enforces uniqueness, and how to derive the index key
// string from a decoded record. Sortable numeric indexes (dueAt) encode
// their key as a fixed-width zero-padded decimal so lexicographic byte
// ordering matches numeric ordering.
type IndexSpec struct {
	Name   string
	Unique bool
	Key    func(v interface{}) string
}

// PrimaryKeyOf derives the primary key for a value about to be stored in
// collection coll.
func PrimaryKeyOf(coll string, v interface{}) (string, error) {
	switch coll {
	case CollVNodes:
		return v.(*model.VNode).NodeID, nil
	case CollContents:
		return v.(*model.Content).ContentRef, nil
	case CollModules:
		return v.(*model.ModuleInfo).Name, nil
	case CollTags:
		return v.(*model.Tag).Name, nil
	case CollNodeTags:
		nt := v.(*model.NodeTag)
		return model.NodeTagID(nt.NodeID, nt.TagName), nil
	case CollSRSItems:
		s := v.(*model.SRSItem)
		return model.SRSItemID(s.NodeID, s.ClozeID), nil
	default:
		return "", fmt.Errorf("storage: unknown collection %q", coll)
	}
}

// IndexesOf returns the secondary index specs maintained for collection
// coll.
func IndexesOf(coll string) []IndexSpec {
	switch coll {
	case CollVNodes:
		return []IndexSpec{
			{Name: IdxModulePath, Unique: true, Key: func(v interface{}) string {
				n := v.(*model.VNode)
				return n.ModuleID + "\x00" + n.SystemPath
			}},
			{Name: IdxParentID, Unique: false, Key: func(v interface{}) string {
				return v.(*model.VNode).ParentID
			}},
			{Name: IdxModuleID, Unique: false, Key: func(v interface{}) string {
				return v.(*model.VNode).ModuleID
			}},
			{Name: IdxType, Unique: false, Key: func(v interface{}) string {
				return string(v.(*model.VNode).Type)
			}},
		}
	case CollContents:
		return []IndexSpec{
			{Name: IdxContentNode, Unique: true, Key: func(v interface{}) string {
				return v.(*model.Content).NodeID
			}},
		}
	case CollNodeTags:
		return []IndexSpec{
			{Name: IdxNodeTagNode, Unique: false, Key: func(v interface{}) string {
				return v.(*model.NodeTag).NodeID
			}},
			{Name: IdxNodeTagTag, Unique: false, Key: func(v interface{}) string {
				return v.(*model.NodeTag).TagName
			}},
		}
	case CollSRSItems:
		return []IndexSpec{
			{Name: IdxSRSNode, Unique: false, Key: func(v interface{}) string {
				return v.(*model.SRSItem).NodeID
			}},
			{Name: IdxModuleID, Unique: false, Key: func(v interface{}) string {
				return v.(*model.SRSItem).ModuleID
			}},
			{Name: IdxSRSDueAt, Unique: false, Key: func(v interface{}) string {
				return SRSDueKey(v.(*model.SRSItem).DueAt)
			}},
		}
	default:
		return nil
	}
}

// SRSDueKey encodes a dueAt timestamp as the fixed-width zero-padded
// decimal the IdxSRSDueAt index sorts on, so range queries against the
// index can be built without duplicating the encoding.
func SRSDueKey(dueAtMillis int64) string {
	return fmt.Sprintf("%020d", dueAtMillis)
}

// VNodePathKey builds the composite key used by the IdxModulePath index, so
// callers can look a node up by (moduleID, systemPath) without duplicating
// the "\x00"-join convention used by IndexesOf's key functions.
func VNodePathKey(moduleID, systemPath string) string {
	return moduleID + "\x00" + systemPath
}

// NewRecord allocates a zero-valued pointer for the record type stored in
// coll, so adapters can unmarshal into it generically.
func NewRecord(coll string) interface{} {
	switch coll {
	case CollVNodes:
		return &model.VNode{}
	case CollContents:
		return &model.Content{}
	case CollModules:
		return &model.ModuleInfo{}
	case CollTags:
		return &model.Tag{}
	case CollNodeTags:
		return &model.NodeTag{}
	case CollSRSItems:
		return &model.SRSItem{}
	default:
		return nil
	}
}
