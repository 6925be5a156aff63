// Package model holds the durable record types every other vfsengine package
// shares: VNode, Content, Module, Tag/NodeTag and SRSItem.
//
// Keeping these in their own package (instead of under engine or storage)
// avoids an import cycle, since both storage adapters and the engine need
// the same wire shape.
package model

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// NodeType distinguishes files from directories.
type NodeType string

const (
	File      NodeType = "file"
	Directory NodeType = "directory"
)

// Well-known metadata keys. vnode.Metadata is an open map;
// these constants exist so typed accessors (see engine.Stat) and middlewares
// agree on the same key spelling.
const (
	MetaTaskCount    = "taskCount"
	MetaClozeCount   = "clozeCount"
	MetaMermaidCount = "mermaidCount"
	MetaIsProtected  = "isProtected"
	MetaIsAssetDir   = "isAssetDir"
	MetaOwnerID      = "ownerId"
	MetaMimeType     = "mimeType"
	MetaIcon         = "icon"
	MetaOutline      = "outline"
)

// VNode is the inode analogue: one row per file or directory.
type VNode struct {
	NodeID     string                 `json:"nodeId"`
	Type       NodeType               `json:"type"`
	ParentID   string                 `json:"parentId,omitempty"`
	Name       string                 `json:"name"`
	SystemPath string                 `json:"systemPath"`
	ModuleID   string                 `json:"moduleId"`
	ContentRef string                 `json:"contentRef,omitempty"`
	Size       int64                  `json:"size"`
	CreatedAt  int64                  `json:"createdAt"`
	ModifiedAt int64                  `json:"modifiedAt"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Tags       []string               `json:"tags,omitempty"`
}

// Clone returns a deep-enough copy of v so that callers holding a *VNode
// from a cache or an in-flight transaction can't observe later mutations.
func (v *VNode) Clone() *VNode {
	if v == nil {
		return nil
	}
	cp := *v
	if v.Metadata != nil {
		cp.Metadata = make(map[string]interface{}, len(v.Metadata))
		for k, val := range v.Metadata {
			cp.Metadata[k] = val
		}
	}
	if v.Tags != nil {
		cp.Tags = append([]string(nil), v.Tags...)
	}
	return &cp
}

// IsDir reports whether the node is a directory.
func (v *VNode) IsDir() bool { return v.Type == Directory }

// IsProtected reports whether metadata.isProtected is truthy.
func (v *VNode) IsProtected() bool {
	if v.Metadata == nil {
		return false
	}
	b, _ := v.Metadata[MetaIsProtected].(bool)
	return b
}

// Content is the owned payload of a file VNode. Exactly one VNode
// references a given ContentRef at a time.
type Content struct {
	ContentRef string `json:"contentRef"`
	NodeID     string `json:"nodeId"`
	Content    []byte `json:"content"`
	Size       int64  `json:"size"`
	CreatedAt  int64  `json:"createdAt"`
}

// ModuleInfo describes a mounted top-level namespace.
type ModuleInfo struct {
	Name        string `json:"name"`
	RootNodeID  string `json:"rootNodeId"`
	Description string `json:"description,omitempty"`
	IsProtected bool   `json:"isProtected,omitempty"`
	CreatedAt   int64  `json:"createdAt"`
}

// Tag is a global tag definition.
type Tag struct {
	Name      string `json:"name"`
	Color     string `json:"color,omitempty"`
	CreatedAt int64  `json:"createdAt"`
}

// NodeTag is a (nodeId, tagName) edge with a unique composite key.
type NodeTag struct {
	ID      string `json:"id"`
	NodeID  string `json:"nodeId"`
	TagName string `json:"tagName"`
}

// NodeTagID derives the unique composite key for a (nodeId, tagName) edge.
func NodeTagID(nodeID, tagName string) string {
	return nodeID + "\x00" + tagName
}

// SRSItem is a spaced-repetition card state row, keyed by (nodeId, clozeId).
type SRSItem struct {
	NodeID         string  `json:"nodeId"`
	ClozeID        string  `json:"clozeId"`
	ModuleID       string  `json:"moduleId"`
	DueAt          int64   `json:"dueAt"`
	Interval       float64 `json:"interval"`
	Ease           float64 `json:"ease"`
	ReviewCount    int     `json:"reviewCount"`
	LastReviewedAt int64   `json:"lastReviewedAt,omitempty"`
}

// SRSItemID derives the unique composite key for an SRS row.
func SRSItemID(nodeID, clozeID string) string {
	return nodeID + "\x00" + clozeID
}

// NowMillis returns the current time in unix milliseconds, the timestamp
// unit used for every createdAt/modifiedAt field.
func NowMillis() int64 {
	return time.Now().UnixNano() / int64(time.Millisecond)
}

// NewNodeID generates an opaque node id: a base36 timestamp plus a random
// hex tail. Deliberately compact rather than a full UUID — node ids never
// leave the process, so a short string key keeps index entries small.
// github.com/google/uuid is reserved for ids handed to external systems,
// such as facade.SystemBackup.BackupID.
func NewNodeID() string {
	ts := strconv.FormatInt(time.Now().UnixNano(), 36)
	var tail [5]byte
	_, _ = rand.Read(tail[:])
	return ts + "-" + hex.EncodeToString(tail[:])
}

// NewContentRef derives the content key owned by nodeID
// ("content:" + nodeId), so a file and its payload share a lifetime.
func NewContentRef(nodeID string) string {
	var b strings.Builder
	b.WriteString("content:")
	b.WriteString(nodeID)
	return b.String()
}
