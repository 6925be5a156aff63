package mime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worldiety/vfsengine/model"
)

func TestDerivesMimeTypeAndIconFromExtension(t *testing.T) {
	mw := New()

	derived, err := mw.OnAfterWrite(&model.VNode{Type: model.File, Name: "photo.png"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "image/png", derived[model.MetaMimeType])
	assert.Equal(t, "image", derived[model.MetaIcon])
}

func TestUnknownExtensionFallsBackToGenericIcon(t *testing.T) {
	mw := New()

	derived, err := mw.OnAfterWrite(&model.VNode{Type: model.File, Name: "data.xyz"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", derived[model.MetaMimeType])
	assert.Equal(t, "file", derived[model.MetaIcon])
}
