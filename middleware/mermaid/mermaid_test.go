package mermaid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worldiety/vfsengine/model"
)

func TestCountsFencedMermaidBlocks(t *testing.T) {
	mw := New()
	content := []byte("# doc\n```mermaid\ngraph TD\nA-->B\n```\nsome text\n```mermaid\ngraph TD\nC-->D\n```\n```go\nfmt.Println(1)\n```\n")

	derived, err := mw.OnAfterWrite(&model.VNode{Type: model.File}, content, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, derived[model.MetaMermaidCount])
}

func TestNoMermaidBlocksCountsZero(t *testing.T) {
	mw := New()
	derived, err := mw.OnAfterWrite(&model.VNode{Type: model.File}, []byte("plain text"), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, derived[model.MetaMermaidCount])
}
