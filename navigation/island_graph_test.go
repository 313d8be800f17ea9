package navigation

import (
	"testing"

	"github.com/gorustyt/navsystem/common"
	"github.com/gorustyt/navsystem/mnm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newSplitWorld builds the test square with a wall along x=2, leaving two
// islands.
func newSplitWorld(t *testing.T) (*testWorld, mnm.GlobalIslandID, mnm.GlobalIslandID) {
	w := newTestWorld(t, nil, TileTaskSchedulerConfig{})
	w.source.Obstacles = append(w.source.Obstacles, mnm.Obstacle{
		Bounds:   common.NewAABB(common.Vec3{1.8, -1, -1}, common.Vec3{2.2, 5, 1}),
		EntityID: 7,
	})
	w.build(t)
	require.Equal(t, 2, w.grid().GetTotalIslands())

	left := w.islands.GetGlobalIslandIDAtPosition(w.agentID, common.Vec3{0.5, 0.5, 0}, 1, 1)
	right := w.islands.GetGlobalIslandIDAtPosition(w.agentID, common.Vec3{3.5, 0.5, 0}, 1, 1)
	require.True(t, left.IsValid())
	require.True(t, right.IsValid())
	require.NotEqual(t, left, right)
	return w, left, right
}

func TestIslandLinkAddRemoveRestoresReachability(t *testing.T) {
	w, left, right := newSplitWorld(t)
	assert.False(t, w.islands.AreReachable(nil, left, right))
	assert.True(t, w.islands.AreReachable(nil, left, left))

	link, err := w.offMesh.AddLink(w.meshID, 9, common.Vec3{0.5, 1.5, 0}, common.Vec3{3.5, 1.5, 0})
	require.NoError(t, err)
	require.True(t, w.islands.AddLink(w.meshID, link.StartTriangle, link.EndTriangle))
	assert.True(t, w.islands.AreReachable(nil, left, right))
	assert.False(t, w.islands.AreReachable(nil, right, left), "links are one way")
	assert.False(t, w.islands.AreReachable(func(objectID uint32, _ mnm.OffMeshLinkID) bool {
		return objectID != 9
	}, left, right))

	require.True(t, w.islands.RemoveLink(w.meshID, link.StartTriangle, link.EndTriangle))
	_, ok := w.offMesh.RemoveLink(w.meshID, link.ID)
	require.True(t, ok)
	assert.False(t, w.islands.AreReachable(nil, left, right))
	assert.Equal(t, 0, w.islands.Connections().LinkCount())
	assert.False(t, w.islands.RemoveLink(w.meshID, link.StartTriangle, link.EndTriangle))
}

func TestIslandRebuildKeepsLinks(t *testing.T) {
	w, left, right := newSplitWorld(t)
	_, err := w.offMesh.AddLink(w.meshID, 9, common.Vec3{0.5, 1.5, 0}, common.Vec3{3.5, 1.5, 0})
	require.NoError(t, err)
	_, err = w.offMesh.AddLink(w.meshID, 9, common.Vec3{3.5, 3.5, 0}, common.Vec3{0.5, 3.5, 0})
	require.NoError(t, err)
	assert.Equal(t, 2, w.offMesh.LinkCount())

	w.islands.RebuildAll()
	assert.True(t, w.islands.AreReachable(nil, left, right))
	assert.True(t, w.islands.AreReachable(nil, right, left))

	assert.Equal(t, 2, w.islands.RemoveAllLinksForEntity(w.meshID, 9))
	assert.Len(t, w.offMesh.RemoveAllLinksForEntity(w.meshID, 9), 2)
	assert.False(t, w.islands.AreReachable(nil, left, right))

	w.islands.RemoveMesh(w.meshID)
	assert.Equal(t, 0, w.islands.Connections().LinkCount())
}

func TestOffMeshLinksFollowTileChanges(t *testing.T) {
	w, _, _ := newSplitWorld(t)
	link, err := w.offMesh.AddLink(w.meshID, 9, common.Vec3{0.5, 0.5, 0}, common.Vec3{3.5, 0.5, 0})
	require.NoError(t, err)
	assert.Equal(t, []MeshID{w.meshID}, w.offMesh.MeshIDs())

	// regenerating tile 0,0 moves the start triangle to a new tile id
	exclusion, err := w.registry.CreateVolume(square(0.5, 0.5, 1.5, 1.5, -1), 2, InvalidVolumeID)
	require.NoError(t, err)
	require.NoError(t, w.registry.SetExclusionVolume([]AgentTypeID{w.agentID}, exclusion))
	w.scheduler.ProcessQueuedMeshUpdates()

	got, ok := w.offMesh.FindTable(w.meshID).GetLink(link.ID)
	require.True(t, ok)
	assert.Equal(t, mnm.InvalidTriangleID, got.StartTriangle, "ground under the start is gone")
	assert.Equal(t, link.EndTriangle, got.EndTriangle)

	w.registry.DestroyVolume(exclusion)
	w.scheduler.ProcessQueuedMeshUpdates()
	got, _ = w.offMesh.FindTable(w.meshID).GetLink(link.ID)
	assert.NotEqual(t, mnm.InvalidTriangleID, got.StartTriangle)
}
