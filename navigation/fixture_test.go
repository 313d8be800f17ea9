package navigation

import (
	"testing"

	"github.com/gorustyt/navsystem/common"
	"github.com/gorustyt/navsystem/common/jobs"
	"github.com/gorustyt/navsystem/mnm"
	"github.com/stretchr/testify/require"
)

// A 4x4m square split into 2x2 tiles of 2m (8 voxels of 0.25m).
type testWorld struct {
	registry  *Registry
	scheduler *TileTaskScheduler
	offMesh   *OffMeshNavigationManager
	islands   *IslandGraph
	source    *mnm.PlaneSource
	agentID   AgentTypeID
	meshID    MeshID
	boundary  VolumeID
	changes   []mnm.TileID
}

func testAgentParams() AgentTypeParams {
	return AgentTypeParams{
		VoxelSize:       common.Vec3{0.25, 0.25, 0.25},
		Radius:          2,
		Height:          4,
		ClimbableHeight: 2,
	}
}

func square(minX, minY, maxX, maxY, z float32) []common.Vec3 {
	return []common.Vec3{{minX, minY, z}, {maxX, minY, z}, {maxX, maxY, z}, {minX, maxY, z}}
}

func newTestWorld(t *testing.T, executor jobs.Executor, cfg TileTaskSchedulerConfig) *testWorld {
	t.Helper()
	w := &testWorld{source: &mnm.PlaneSource{}}
	w.registry = NewRegistry(nil)
	metrics := NewMetrics(nil)
	w.offMesh = NewOffMeshNavigationManager(w.registry, metrics, nil)
	w.islands = NewIslandGraph(w.registry, w.offMesh, metrics, nil)
	w.scheduler = NewTileTaskScheduler(TileTaskSchedulerParams{
		Config:    cfg,
		Registry:  w.registry,
		Generator: mnm.NewHeightfieldGenerator(w.source, 2),
		Executor:  executor,
		OffMesh:   w.offMesh,
		Islands:   w.islands,
		Metrics:   metrics,
	})

	var err error
	w.agentID, err = w.registry.CreateAgentType("human", testAgentParams())
	require.NoError(t, err)
	w.meshID, err = w.registry.CreateMesh("main", w.agentID, CreateMeshParams{
		Origin:    common.Vec3{0, 0, -1},
		TileSize:  [3]uint16{8, 8, 8},
		TileCount: 16,
	}, InvalidMeshID)
	require.NoError(t, err)
	_, err = w.registry.AddMeshChangeCallback(w.agentID, func(_ AgentTypeID, meshID MeshID, tileID mnm.TileID) {
		if meshID == w.meshID {
			w.changes = append(w.changes, tileID)
		}
	})
	require.NoError(t, err)
	w.boundary, err = w.registry.CreateVolume(square(-0.1, -0.1, 4.1, 4.1, -1), 2, InvalidVolumeID)
	require.NoError(t, err)
	return w
}

// build attaches the boundary and generates every tile synchronously.
func (w *testWorld) build(t *testing.T) {
	t.Helper()
	require.NoError(t, w.registry.SetMeshBoundaryVolume(w.meshID, w.boundary))
	w.scheduler.ProcessQueuedMeshUpdates()
	require.Equal(t, Idle, w.scheduler.State())
}

func (w *testWorld) grid() *mnm.MeshGrid {
	return w.registry.GetMesh(w.meshID).Grid
}

// checkArena verifies every result slot is either running or free, never both.
func checkArena(t *testing.T, s *TileTaskScheduler) {
	t.Helper()
	seen := make([]bool, len(s.results))
	for _, idx := range s.running {
		require.False(t, seen[idx], "slot %d running twice", idx)
		seen[idx] = true
	}
	for idx := s.free; idx >= 0; idx = s.results[idx].next {
		require.False(t, seen[idx], "slot %d both running and free", idx)
		seen[idx] = true
	}
	for idx, ok := range seen {
		require.True(t, ok, "slot %d leaked", idx)
	}
}
