package navigation

import (
	"math"
	"testing"

	"github.com/gorustyt/navsystem/common"
	"github.com/gorustyt/navsystem/mnm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingQueue struct {
	regions     []common.AABB
	differences int
}

func (q *recordingQueue) QueueRegionUpdate(_ MeshID, aabb common.AABB) int {
	q.regions = append(q.regions, aabb)
	return 1
}

func (q *recordingQueue) QueueDifferenceUpdate(_ MeshID, _, _ *mnm.BoundingVolume) int {
	q.differences++
	return 1
}

func TestCreateAgentTypeValidation(t *testing.T) {
	r := NewRegistry(nil)
	id, err := r.CreateAgentType("Human", testAgentParams())
	require.NoError(t, err)
	assert.Equal(t, id, r.GetAgentTypeID("human"))
	assert.Equal(t, id, r.GetAgentTypeIDByIndex(0))
	assert.Equal(t, "Human", r.GetAgentTypeName(id))
	assert.Equal(t, uint16(2), r.GetAgentRadiusInVoxelUnits(id))
	assert.Equal(t, uint16(4), r.GetAgentHeightInVoxelUnits(id))

	_, err = r.CreateAgentType("HUMAN", testAgentParams())
	assert.ErrorIs(t, err, ErrDuplicateAgentType)
	_, err = r.CreateAgentType("", testAgentParams())
	assert.ErrorIs(t, err, ErrInvalidAgentType)

	p := testAgentParams()
	p.ClimbableHeight = p.Height
	_, err = r.CreateAgentType("climber", p)
	assert.ErrorIs(t, err, ErrInvalidAgentType)
	assert.ErrorIs(t, err, ErrFailure)

	p = testAgentParams()
	p.VoxelSize[2] = 0
	_, err = r.CreateAgentType("flat", p)
	assert.ErrorIs(t, err, ErrInvalidAgentType)
	assert.Equal(t, 1, r.AgentTypeCount())
}

func TestSmartObjectUserClasses(t *testing.T) {
	r := NewRegistry(nil)
	p := testAgentParams()
	p.SmartObjectUserClasses = []string{"Ladder"}
	id, err := r.CreateAgentType("human", p)
	require.NoError(t, err)
	assert.True(t, r.AgentTypeSupportSmartObjectUserClass(id, "ladder"))
	assert.False(t, r.AgentTypeSupportSmartObjectUserClass(id, "door"))
	assert.False(t, r.AgentTypeSupportSmartObjectUserClass(InvalidAgentTypeID, "ladder"))
}

func TestMeshLifecycle(t *testing.T) {
	r := NewRegistry(nil)
	agent, err := r.CreateAgentType("human", testAgentParams())
	require.NoError(t, err)

	params := CreateMeshParams{TileSize: [3]uint16{8, 8, 8}, TileCount: 4}
	meshID, err := r.CreateMesh("Main", agent, params, InvalidMeshID)
	require.NoError(t, err)
	assert.True(t, r.ValidateMesh(meshID))
	assert.Equal(t, meshID, r.GetMeshID("main", agent))

	_, err = r.CreateMesh("MAIN", agent, params, InvalidMeshID)
	assert.ErrorIs(t, err, ErrDuplicateMesh)
	_, err = r.CreateMesh("zero", agent, CreateMeshParams{}, InvalidMeshID)
	assert.ErrorIs(t, err, ErrInvalidMesh)
	_, err = r.CreateMesh("other", InvalidAgentTypeID, params, InvalidMeshID)
	assert.ErrorIs(t, err, ErrInvalidAgentType)

	r.SetMeshName(meshID, "renamed")
	assert.Equal(t, "renamed", r.GetMeshName(meshID))
	assert.Equal(t, meshID, r.GetMeshID("Renamed", agent))
	assert.Equal(t, InvalidMeshID, r.GetMeshID("main", agent))

	requested := MeshID(encodeID(4, 2))
	loaded, err := r.CreateMesh("loaded", agent, params, requested)
	require.NoError(t, err)
	assert.Equal(t, requested, loaded)
	assert.Equal(t, []MeshID{meshID, loaded}, r.MeshIDsForAgentType(agent))

	r.eraseMesh(meshID)
	assert.False(t, r.ValidateMesh(meshID))
	assert.Equal(t, []MeshID{loaded}, r.MeshIDsForAgentType(agent))
}

func TestVolumeEditsInvalidateMeshes(t *testing.T) {
	r := NewRegistry(nil)
	q := &recordingQueue{}
	r.SetUpdateQueue(q)
	agent, err := r.CreateAgentType("human", testAgentParams())
	require.NoError(t, err)
	meshID, err := r.CreateMesh("main", agent, CreateMeshParams{TileSize: [3]uint16{8, 8, 8}}, InvalidMeshID)
	require.NoError(t, err)

	_, err = r.CreateVolume(square(0, 0, 1, 1, 0)[:2], 1, InvalidVolumeID)
	assert.ErrorIs(t, err, ErrInvalidVolume)
	_, err = r.CreateVolume(square(0, 0, float32(math.Inf(1)), 1, 0), 1, InvalidVolumeID)
	assert.ErrorIs(t, err, ErrInvalidVolume)

	boundary, err := r.CreateVolume(square(0, 0, 4, 4, 0), 2, InvalidVolumeID)
	require.NoError(t, err)
	require.NoError(t, r.SetMeshBoundaryVolume(meshID, boundary))
	assert.Len(t, q.regions, 1)
	assert.Equal(t, uint32(1), r.GetMesh(meshID).Version)
	assert.Equal(t, boundary, r.GetVolumeID(meshID))
	assert.Equal(t, float32(4), r.WorldAABB().Max[0])

	require.NoError(t, r.SetVolume(boundary, square(0, 0, 8, 8, 0), 2))
	assert.Equal(t, 1, q.differences)
	assert.Equal(t, uint32(2), r.GetMesh(meshID).Version)
	assert.Equal(t, float32(8), r.WorldAABB().Max[0])

	exclusion, err := r.CreateVolume(square(1, 1, 2, 2, 0), 2, InvalidVolumeID)
	require.NoError(t, err)
	require.NoError(t, r.SetExclusionVolume([]AgentTypeID{agent}, exclusion))
	assert.Equal(t, []VolumeID{exclusion}, r.GetMesh(meshID).Exclusions)
	assert.Len(t, q.regions, 2)

	require.NoError(t, r.SetVolume(exclusion, square(1, 1, 3, 3, 0), 2))
	assert.Len(t, q.regions, 4, "old and new exclusion bounds")

	require.NoError(t, r.SetExclusionVolume(nil, exclusion))
	assert.Empty(t, r.GetMesh(meshID).Exclusions)
	assert.Len(t, q.regions, 5)

	require.NoError(t, r.RegisterArea("arena", exclusion))
	require.NoError(t, r.RegisterArea("pit", exclusion))
	r.UnregisterArea("pit")
	assert.Equal(t, []string{"arena"}, r.AreaNames())
	r.DestroyVolume(exclusion)
	assert.Equal(t, InvalidVolumeID, r.GetAreaID("arena"))
	assert.False(t, r.ValidateVolume(exclusion))

	assert.ErrorIs(t, r.SetMeshBoundaryVolume(meshID, exclusion), ErrInvalidVolume)
}

func TestEnclosingMeshAndClosestLocation(t *testing.T) {
	w := newTestWorld(t, nil, TileTaskSchedulerConfig{})
	w.build(t)

	inside := common.Vec3{1.2, 3.3, 0.3}
	assert.Equal(t, w.meshID, w.registry.GetEnclosingMeshID(w.agentID, inside))
	assert.Equal(t, InvalidMeshID, w.registry.GetEnclosingMeshID(w.agentID, common.Vec3{10, 10, 0}))

	p, tri, err := w.registry.GetClosestMeshLocation(w.meshID, inside, 1, 1)
	require.NoError(t, err)
	assert.NotEqual(t, mnm.InvalidTriangleID, tri)
	assert.InDelta(t, 0, p[2], 1e-4)

	_, _, err = w.registry.GetClosestMeshLocation(w.meshID, common.Vec3{1, 1, 5}, 0.5, 0.5)
	assert.ErrorIs(t, err, ErrNoTriangle)
	_, _, err = w.registry.GetClosestMeshLocation(InvalidMeshID, inside, 1, 1)
	assert.ErrorIs(t, err, ErrInvalidMesh)

	bounds, ok := w.registry.GetTileBoundsForMesh(w.meshID, 1, 0, 0)
	require.True(t, ok)
	assert.Equal(t, common.Vec3{2, 0, -1}, bounds.Min)
	assert.Equal(t, common.Vec3{4, 2, 1}, bounds.Max)
}

func TestMeshChangeCallbackHandles(t *testing.T) {
	r := NewRegistry(nil)
	agent, err := r.CreateAgentType("human", testAgentParams())
	require.NoError(t, err)
	h1, err := r.AddMeshChangeCallback(agent, func(AgentTypeID, MeshID, mnm.TileID) {})
	require.NoError(t, err)
	h2, err := r.AddMeshChangeCallback(agent, func(AgentTypeID, MeshID, mnm.TileID) {})
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
	assert.True(t, r.RemoveMeshChangeCallback(agent, h1))
	assert.False(t, r.RemoveMeshChangeCallback(agent, h1))
	_, err = r.AddMeshChangeCallback(InvalidAgentTypeID, nil)
	assert.ErrorIs(t, err, ErrInvalidAgentType)
}

func TestRegistryClear(t *testing.T) {
	w := newTestWorld(t, nil, TileTaskSchedulerConfig{})
	w.build(t)
	w.scheduler.Clear()
	w.registry.Clear()
	assert.Empty(t, w.registry.MeshIDs())
	assert.Empty(t, w.registry.VolumeIDs())
	assert.True(t, w.registry.WorldAABB().IsEmpty())
	assert.Equal(t, 1, w.registry.AgentTypeCount())

	w.registry.ResetAgentTypes()
	assert.Equal(t, 0, w.registry.AgentTypeCount())
}
