package navigation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVolumeCopyReuseAndEviction(t *testing.T) {
	w := newTestWorld(t, nil, TileTaskSchedulerConfig{})
	require.NoError(t, w.registry.SetMeshBoundaryVolume(w.meshID, w.boundary))
	m := w.registry.GetMesh(w.meshID)

	var c volumeCopyCache
	first, ok := c.acquire(w.meshID, m, w.registry)
	require.True(t, ok)
	second, ok := c.acquire(w.meshID, m, w.registry)
	require.True(t, ok)
	assert.Equal(t, first, second, "same mesh version shares a slot")
	assert.Equal(t, 1, c.hits)
	assert.True(t, c.get(first).boundary.IsValid())

	m.Version++
	third, ok := c.acquire(w.meshID, m, w.registry)
	require.True(t, ok)
	assert.NotEqual(t, first, third)
	assert.Equal(t, 2, c.referenced())

	c.release(first)
	c.release(first)
	c.release(third)
	assert.Equal(t, 0, c.referenced())
}

func TestVolumeCopyExhaustion(t *testing.T) {
	w := newTestWorld(t, nil, TileTaskSchedulerConfig{})
	m := w.registry.GetMesh(w.meshID)

	var c volumeCopyCache
	for i := 0; i < MaxVolumeDefCopyCount; i++ {
		m.Version++
		_, ok := c.acquire(w.meshID, m, w.registry)
		require.True(t, ok)
	}
	m.Version++
	_, ok := c.acquire(w.meshID, m, w.registry)
	assert.False(t, ok, "every slot is pinned")

	// the oldest release is overwritten first
	c.release(3)
	c.release(5)
	idx, ok := c.acquire(w.meshID, m, w.registry)
	require.True(t, ok)
	assert.Equal(t, 3, idx)
}
