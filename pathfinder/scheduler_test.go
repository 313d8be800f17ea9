package pathfinder

import (
	"testing"
	"time"

	"github.com/gorustyt/navsystem/common"
	"github.com/gorustyt/navsystem/common/jobs"
	"github.com/gorustyt/navsystem/mnm"
	"github.com/gorustyt/navsystem/navigation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type agent navigation.AgentTypeID

func (a agent) AgentTypeID() navigation.AgentTypeID {
	return navigation.AgentTypeID(a)
}

type testWorld struct {
	registry *navigation.Registry
	tiles    *navigation.TileTaskScheduler
	offMesh  *navigation.OffMeshNavigationManager
	agent    agent
	meshID   navigation.MeshID
}

// newTestWorld builds a flat mesh over [0,maxX]x[0,maxY] with 2m tiles and
// 1m cells.
func newTestWorld(t *testing.T, maxX, maxY float32, obstacles ...mnm.Obstacle) *testWorld {
	t.Helper()
	w := &testWorld{registry: navigation.NewRegistry(nil)}
	w.offMesh = navigation.NewOffMeshNavigationManager(w.registry, nil, nil)
	islands := navigation.NewIslandGraph(w.registry, w.offMesh, nil, nil)
	w.tiles = navigation.NewTileTaskScheduler(navigation.TileTaskSchedulerParams{
		Registry:  w.registry,
		Generator: mnm.NewHeightfieldGenerator(&mnm.PlaneSource{Obstacles: obstacles}, 2),
		OffMesh:   w.offMesh,
		Islands:   islands,
	})
	agentID, err := w.registry.CreateAgentType("human", navigation.AgentTypeParams{
		VoxelSize:       common.Vec3{0.25, 0.25, 0.25},
		Radius:          1,
		Height:          4,
		ClimbableHeight: 2,
	})
	require.NoError(t, err)
	w.agent = agent(agentID)
	w.meshID, err = w.registry.CreateMesh("main", agentID, navigation.CreateMeshParams{
		Origin:    common.Vec3{0, 0, -1},
		TileSize:  [3]uint16{8, 8, 8},
		TileCount: 64,
	}, navigation.InvalidMeshID)
	require.NoError(t, err)
	boundary, err := w.registry.CreateVolume([]common.Vec3{
		{-0.1, -0.1, -1}, {maxX + 0.1, -0.1, -1}, {maxX + 0.1, maxY + 0.1, -1}, {-0.1, maxY + 0.1, -1},
	}, 2, navigation.InvalidVolumeID)
	require.NoError(t, err)
	require.NoError(t, w.registry.SetMeshBoundaryVolume(w.meshID, boundary))
	w.tiles.ProcessQueuedMeshUpdates()
	return w
}

func (w *testWorld) scheduler(cfg Config, executor jobs.Executor) *PathRequestScheduler {
	s := NewPathRequestScheduler(Params{
		Config:   cfg,
		Registry: w.registry,
		OffMesh:  w.offMesh,
		Executor: executor,
		Metrics:  NewMetrics(nil),
	})
	w.tiles.AddObserver(s)
	return s
}

func (w *testWorld) tileID(x, y uint16) mnm.TileID {
	return w.registry.GetMesh(w.meshID).Grid.GetTileID(x, y, 0)
}

type collector struct {
	results map[RequestID][]Result
}

func newCollector() *collector {
	return &collector{results: map[RequestID][]Result{}}
}

func (c *collector) callback(id RequestID, r Result) {
	c.results[id] = append(c.results[id], r)
}

func (c *collector) request(from, to common.Vec3) PathRequest {
	return PathRequest{Start: from, End: to, Callback: c.callback}
}

func updateUntil(t *testing.T, s *PathRequestScheduler, done func() bool) {
	t.Helper()
	for i := 0; i < 1000 && !done(); i++ {
		s.Update()
		require.LessOrEqual(t, s.ActiveContextCount(), s.MaxProcessingContexts())
	}
	require.True(t, done(), "scheduler did not finish")
}

func serialConfig() Config {
	cfg := DefaultConfig()
	cfg.MultiThreaded = false
	cfg.FindWayQuota = 0
	return cfg
}

func TestPathOnOpenGroundIsStraight(t *testing.T) {
	w := newTestWorld(t, 6, 4)
	s := w.scheduler(serialConfig(), nil)
	c := newCollector()

	id := s.RequestPathTo(w.agent, c.request(common.Vec3{0.5, 0.5, 0.3}, common.Vec3{5.5, 3.2, 0}))
	require.NotEqual(t, InvalidRequestID, id)
	assert.True(t, s.IsQueued(id))
	updateUntil(t, s, func() bool { return len(c.results[id]) > 0 })

	require.Len(t, c.results[id], 1)
	r := c.results[id][0]
	require.Equal(t, StatusSuccess, r.Status)
	require.Len(t, r.Path, 2)
	assert.InDelta(t, 0, r.Path[0].Position[2], 1e-4, "start is snapped onto the mesh")
	assert.InDelta(t, 5.5, r.Path[1].Position[0], 1e-4)
	assert.InDelta(t, 3.2, r.Path[1].Position[1], 1e-4)
	assert.Equal(t, 0, s.ActiveContextCount())
}

func TestPathWithoutStringPullingUsesEdgeMidPoints(t *testing.T) {
	w := newTestWorld(t, 6, 2)
	cfg := serialConfig()
	cfg.StringPull = false
	s := w.scheduler(cfg, nil)
	c := newCollector()

	id := s.RequestPathTo(w.agent, c.request(common.Vec3{0.5, 0.5, 0}, common.Vec3{5.5, 0.5, 0}))
	updateUntil(t, s, func() bool { return len(c.results[id]) > 0 })
	r := c.results[id][0]
	require.Equal(t, StatusSuccess, r.Status)
	assert.Greater(t, len(r.Path), 2)
	for _, p := range r.Path[1 : len(r.Path)-1] {
		// mid points of the edges of the 0.5m grid of cell diagonals
		assert.InDelta(t, 0, p.Position[2], 1e-4)
		frac := p.Position[0]*2 - float32(int(p.Position[0]*2))
		assert.InDelta(t, 0, frac, 1e-4, "point %v", p.Position)
	}
}

func TestPathGoesAroundWall(t *testing.T) {
	wall := mnm.Obstacle{Bounds: common.NewAABB(common.Vec3{2.8, -1, -1}, common.Vec3{3.2, 3.2, 1}), EntityID: 3}
	w := newTestWorld(t, 6, 6, wall)
	s := w.scheduler(serialConfig(), nil)
	c := newCollector()

	id := s.RequestPathTo(w.agent, c.request(common.Vec3{1, 0.5, 0}, common.Vec3{5, 0.5, 0}))
	updateUntil(t, s, func() bool { return len(c.results[id]) > 0 })
	r := c.results[id][0]
	require.Equal(t, StatusSuccess, r.Status)
	require.Greater(t, len(r.Path), 2)
	for i := 1; i < len(r.Path); i++ {
		a, b := r.Path[i-1].Position, r.Path[i].Position
		if (a[0]-3)*(b[0]-3) >= 0 {
			continue
		}
		y := a[1] + (b[1]-a[1])*(3-a[0])/(b[0]-a[0])
		assert.GreaterOrEqual(t, y, float32(3.9), "segment %v -> %v crosses the wall", a, b)
	}
}

func TestRequestFailsSynchronously(t *testing.T) {
	w := newTestWorld(t, 4, 4)
	s := w.scheduler(serialConfig(), nil)
	c := newCollector()

	id := s.RequestPathTo(w.agent, c.request(common.Vec3{20, 20, 0}, common.Vec3{1, 1, 0}))
	assert.Equal(t, InvalidRequestID, id)
	require.Len(t, c.results[InvalidRequestID], 1)
	assert.Equal(t, StatusNoEnclosingMesh, c.results[InvalidRequestID][0].Status)

	s.RequestPathTo(nil, c.request(common.Vec3{1, 1, 0}, common.Vec3{2, 2, 0}))
	s.RequestPathTo(agent(99), c.request(common.Vec3{1, 1, 0}, common.Vec3{2, 2, 0}))
	require.Len(t, c.results[InvalidRequestID], 3)
	assert.Equal(t, StatusInvalidRequester, c.results[InvalidRequestID][1].Status)
	assert.Equal(t, StatusInvalidRequester, c.results[InvalidRequestID][2].Status)
	assert.Equal(t, InvalidRequestID, s.RequestPathTo(w.agent, PathRequest{Start: common.Vec3{1, 1, 0}}))
	assert.Equal(t, 0, s.QueuedRequestCount())
}

func TestUnreachableEndIsReportedAtAdmission(t *testing.T) {
	w := newTestWorld(t, 4, 4)
	s := w.scheduler(serialConfig(), nil)
	c := newCollector()

	id := s.RequestPathTo(w.agent, c.request(common.Vec3{1, 1, 0}, common.Vec3{30, 30, 0}))
	require.NotEqual(t, InvalidRequestID, id)
	s.Update()
	require.Len(t, c.results[id], 1)
	assert.Equal(t, StatusInvalidEnd, c.results[id][0].Status)
	assert.Equal(t, 0, s.ActiveContextCount())
}

func TestEveryRequestIsAnsweredOnce(t *testing.T) {
	w := newTestWorld(t, 6, 6)
	cfg := DefaultConfig()
	cfg.MaxProcessingContexts = 3
	pool := jobs.NewPool(4, nil)
	t.Cleanup(pool.Close)
	s := w.scheduler(cfg, pool)
	c := newCollector()

	var ids []RequestID
	for i := 0; i < 10; i++ {
		from := common.Vec3{0.5 + float32(i%5), 0.5, 0}
		to := common.Vec3{5.5 - float32(i%3), 5.5, 0}
		ids = append(ids, s.RequestPathTo(w.agent, c.request(from, to)))
	}
	updateUntil(t, s, func() bool { return len(c.results) == len(ids) })
	for _, id := range ids {
		require.Len(t, c.results[id], 1, "request %d", id)
		assert.Equal(t, StatusSuccess, c.results[id][0].Status)
	}
	for i := 0; i < 5; i++ {
		s.Update()
	}
	assert.Len(t, c.results, len(ids))
}

func TestCancelPathRequest(t *testing.T) {
	w := newTestWorld(t, 6, 6)
	cfg := serialConfig()
	cfg.MaxProcessingContexts = 1
	s := w.scheduler(cfg, nil)
	c := newCollector()

	running := s.RequestPathTo(w.agent, c.request(common.Vec3{0.5, 0.5, 0}, common.Vec3{5.5, 5.5, 0}))
	queued := s.RequestPathTo(w.agent, c.request(common.Vec3{0.5, 0.5, 0}, common.Vec3{5.5, 0.5, 0}))
	s.Update()
	require.NotEqual(t, ContextInvalid, s.ContextState(running))
	require.True(t, s.IsQueued(queued))

	s.CancelPathRequest(queued)
	s.CancelPathRequest(running)
	s.CancelPathRequest(running)
	assert.Equal(t, []Result{{Status: StatusCanceled}}, c.results[queued])
	assert.Equal(t, []Result{{Status: StatusCanceled}}, c.results[running])
	assert.Equal(t, 0, s.ActiveContextCount())
	assert.Equal(t, 0, s.QueuedRequestCount())

	for i := 0; i < 5; i++ {
		s.Update()
	}
	assert.Len(t, c.results[running], 1)

	done := s.RequestPathTo(w.agent, c.request(common.Vec3{0.5, 0.5, 0}, common.Vec3{1.5, 0.5, 0}))
	updateUntil(t, s, func() bool { return len(c.results[done]) > 0 })
	s.CancelPathRequest(done)
	assert.Len(t, c.results[done], 1, "answered requests are not canceled again")
}

func TestCancelWhileJobsRun(t *testing.T) {
	w := newTestWorld(t, 6, 6)
	cfg := DefaultConfig()
	cfg.MaxProcessingContexts = 2
	cfg.FindWayQuota = 0
	pool := jobs.NewPool(4, nil)
	t.Cleanup(pool.Close)
	s := w.scheduler(cfg, pool)
	c := newCollector()

	var others []RequestID
	for round := 0; round < 12; round++ {
		id := s.RequestPathTo(w.agent, c.request(common.Vec3{0.5, 0.5, 0}, common.Vec3{5.5, 5.5, 0}))
		require.NotEqual(t, InvalidRequestID, id)
		// the answer is only dispatched by the third update
		for i := 0; i < round%3; i++ {
			s.Update()
		}
		other := s.RequestPathTo(w.agent, c.request(common.Vec3{5.5, 0.5, 0}, common.Vec3{0.5, 5.5, 0}))
		others = append(others, other)
		assert.LessOrEqual(t, s.ActiveContextCount(), s.MaxProcessingContexts())

		s.CancelPathRequest(id)
		assert.Equal(t, []Result{{Status: StatusCanceled}}, c.results[id], "round %d", round)
		assert.False(t, s.IsQueued(id))
		assert.Equal(t, ContextInvalid, s.ContextState(id))
	}

	updateUntil(t, s, func() bool {
		for _, id := range others {
			if len(c.results[id]) == 0 {
				return false
			}
		}
		return true
	})
	for i := 0; i < 5; i++ {
		s.Update()
	}
	for id, results := range c.results {
		assert.Len(t, results, 1, "request %d", id)
	}
	for _, id := range others {
		assert.Equal(t, StatusSuccess, c.results[id][0].Status)
	}
	assert.Equal(t, 0, s.ActiveContextCount())
}

func TestContextStateWaitsForJob(t *testing.T) {
	w := newTestWorld(t, 6, 6)
	cfg := DefaultConfig()
	cfg.FindWayQuota = 0
	pool := jobs.NewPool(2, nil)
	t.Cleanup(pool.Close)
	s := w.scheduler(cfg, pool)
	c := newCollector()

	id := s.RequestPathTo(w.agent, c.request(common.Vec3{0.5, 0.5, 0}, common.Vec3{5.5, 5.5, 0}))
	s.Update()
	assert.Equal(t, ContextFindWayCompleted, s.ContextState(id))
	s.Update()
	assert.Equal(t, ContextCompleted, s.ContextState(id))
	s.Update()
	require.Len(t, c.results[id], 1)
	assert.Equal(t, StatusSuccess, c.results[id][0].Status)
	assert.Equal(t, ContextInvalid, s.ContextState(id))
}

func TestCancelFromCallback(t *testing.T) {
	w := newTestWorld(t, 4, 4)
	s := w.scheduler(serialConfig(), nil)
	c := newCollector()

	var second RequestID
	first := s.RequestPathTo(w.agent, PathRequest{
		Start: common.Vec3{0.5, 0.5, 0},
		End:   common.Vec3{3.5, 0.5, 0},
		Callback: func(id RequestID, r Result) {
			c.callback(id, r)
			s.CancelPathRequest(second)
		},
	})
	second = s.RequestPathTo(w.agent, c.request(common.Vec3{0.5, 0.5, 0}, common.Vec3{3.5, 0.5, 0}))
	updateUntil(t, s, func() bool { return len(c.results[first]) > 0 })
	for i := 0; i < 5; i++ {
		s.Update()
	}
	require.Len(t, c.results[second], 1)
	assert.Equal(t, StatusCanceled, c.results[second][0].Status)
}

func TestUnrelatedTileChangeKeepsSearch(t *testing.T) {
	w := newTestWorld(t, 6, 6)
	s := w.scheduler(serialConfig(), nil)
	c := newCollector()

	id := s.RequestPathTo(w.agent, c.request(common.Vec3{0.5, 0.5, 0}, common.Vec3{1.5, 1.5, 0}))
	s.Update()
	require.Equal(t, ContextFindWayCompleted, s.ContextState(id))

	s.OnNavigationMeshChanged(w.meshID, w.tileID(2, 2))
	assert.Equal(t, ContextFindWayCompleted, s.ContextState(id))
	assert.False(t, s.IsQueued(id))

	s.OnNavigationMeshChanged(w.meshID+1, w.tileID(0, 0))
	assert.Equal(t, ContextFindWayCompleted, s.ContextState(id), "other mesh")

	s.OnNavigationMeshChanged(w.meshID, w.tileID(0, 0))
	assert.Equal(t, ContextInvalid, s.ContextState(id))
	assert.True(t, s.IsQueued(id))

	updateUntil(t, s, func() bool { return len(c.results[id]) > 0 })
	require.Len(t, c.results[id], 1)
	assert.Equal(t, StatusSuccess, c.results[id][0].Status)
}

func TestNeighbourTileChangeRestartsSearch(t *testing.T) {
	w := newTestWorld(t, 6, 6)
	s := w.scheduler(serialConfig(), nil)
	c := newCollector()

	id := s.RequestPathTo(w.agent, c.request(common.Vec3{0.5, 0.5, 0}, common.Vec3{1.5, 1.5, 0}))
	s.Update()
	s.OnNavigationMeshChanged(w.meshID, w.tileID(1, 1))
	assert.True(t, s.IsQueued(id))
}

func TestMeshDestroyedMidSearch(t *testing.T) {
	w := newTestWorld(t, 6, 6)
	cfg := serialConfig()
	cfg.FindWayQuota = time.Nanosecond
	s := w.scheduler(cfg, nil)
	c := newCollector()

	id := s.RequestPathTo(w.agent, c.request(common.Vec3{0.5, 0.5, 0}, common.Vec3{5.5, 5.5, 0}))
	s.Update()
	require.Equal(t, ContextInProgress, s.ContextState(id))

	w.tiles.DestroyMesh(w.meshID)
	s.Update()
	require.Len(t, c.results[id], 1)
	assert.Equal(t, StatusMeshDestroyed, c.results[id][0].Status)
	s.Update()
	assert.Len(t, c.results[id], 1)
}

func TestSearchResumesAcrossUpdates(t *testing.T) {
	w := newTestWorld(t, 6, 6)
	cfg := serialConfig()
	cfg.FindWayQuota = time.Nanosecond
	s := w.scheduler(cfg, nil)
	c := newCollector()

	id := s.RequestPathTo(w.agent, c.request(common.Vec3{0.5, 0.5, 0}, common.Vec3{5.5, 5.5, 0}))
	s.Update()
	assert.Equal(t, ContextInProgress, s.ContextState(id))
	updates := 1
	for len(c.results[id]) == 0 && updates < 1000 {
		s.Update()
		updates++
	}
	require.Len(t, c.results[id], 1)
	assert.Equal(t, StatusSuccess, c.results[id][0].Status)
	assert.Greater(t, updates, 3, "one expansion per update")
}

func TestResetAnswersEverything(t *testing.T) {
	w := newTestWorld(t, 6, 6)
	cfg := serialConfig()
	cfg.MaxProcessingContexts = 2
	s := w.scheduler(cfg, nil)
	c := newCollector()

	var ids []RequestID
	for i := 0; i < 5; i++ {
		ids = append(ids, s.RequestPathTo(w.agent, c.request(common.Vec3{0.5, 0.5, 0}, common.Vec3{5.5, 5.5, 0})))
	}
	s.Update()
	assert.Equal(t, 2, s.ActiveContextCount())
	assert.Equal(t, 3, s.QueuedRequestCount())

	s.Reset()
	for _, id := range ids {
		assert.Equal(t, []Result{{Status: StatusSchedulerReset}}, c.results[id])
	}
	assert.Equal(t, 0, s.ActiveContextCount())
	assert.Equal(t, 0, s.QueuedRequestCount())
	s.Update()
	assert.Len(t, c.results, len(ids))
}

func TestOffMeshLinkInPath(t *testing.T) {
	wall := mnm.Obstacle{Bounds: common.NewAABB(common.Vec3{2.8, -1, -1}, common.Vec3{3.2, 7, 1}), EntityID: 3}
	w := newTestWorld(t, 6, 6, wall)
	link, err := w.offMesh.AddLink(w.meshID, 11, common.Vec3{1.5, 2.5, 0}, common.Vec3{4.5, 2.5, 0})
	require.NoError(t, err)
	s := w.scheduler(serialConfig(), nil)
	c := newCollector()

	id := s.RequestPathTo(w.agent, c.request(common.Vec3{0.5, 0.5, 0}, common.Vec3{5.5, 0.5, 0}))
	updateUntil(t, s, func() bool { return len(c.results[id]) > 0 })
	r := c.results[id][0]
	require.Equal(t, StatusSuccess, r.Status)
	var linkPoints []PathPoint
	for _, p := range r.Path {
		if p.OffMeshLink != mnm.InvalidOffMeshLinkID {
			linkPoints = append(linkPoints, p)
		}
	}
	require.Len(t, linkPoints, 1)
	assert.Equal(t, link.ID, linkPoints[0].OffMeshLink)
	assert.Equal(t, link.Start, linkPoints[0].Position)

	denied := s.RequestPathTo(w.agent, PathRequest{
		Start:      common.Vec3{0.5, 0.5, 0},
		End:        common.Vec3{5.5, 0.5, 0},
		Callback:   c.callback,
		LinkFilter: func(objectID uint32, _ mnm.OffMeshLinkID) bool { return objectID != 11 },
	})
	updateUntil(t, s, func() bool { return len(c.results[denied]) > 0 })
	assert.Equal(t, StatusNoPathFound, c.results[denied][0].Status)
}
