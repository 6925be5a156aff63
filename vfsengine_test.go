package vfsengine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worldiety/vfsengine/facade"
	"github.com/worldiety/vfsengine/storage/memadapter"
)

func TestOpenInstallsDefault(t *testing.T) {
	v, err := Open(context.Background(), Config{Adapter: memadapter.New(), CacheSize: 16})
	require.NoError(t, err)
	defer func() { _ = Shutdown(context.Background()) }()

	assert.Same(t, v, Default())
}

func TestPackageLevelCreateReadDelegatesToDefault(t *testing.T) {
	_, err := Open(context.Background(), Config{Adapter: memadapter.New(), CacheSize: 16})
	require.NoError(t, err)
	defer func() { _ = Shutdown(context.Background()) }()
	ctx := context.Background()

	f, err := CreateFile(ctx, facade.DefaultModule, "/note.md", []byte("hi"), nil)
	require.NoError(t, err)

	got, err := Read(ctx, f.NodeID)
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), got)
}

func TestPackageLevelModulesAndEventBus(t *testing.T) {
	_, err := Open(context.Background(), Config{Adapter: memadapter.New(), CacheSize: 16})
	require.NoError(t, err)
	defer func() { _ = Shutdown(context.Background()) }()

	info, ok := Modules().Get(facade.DefaultModule)
	require.True(t, ok)
	assert.NotEmpty(t, info.RootNodeID)

	assert.NotNil(t, GetEventBus())
	assert.NotNil(t, GetMiddlewareRegistry())
}
