package navigation

import (
	"math"
	"slices"
	"sync/atomic"

	"github.com/gorustyt/navsystem/common"
	"github.com/gorustyt/navsystem/common/jobs"
	"github.com/gorustyt/navsystem/mnm"
	"go.uber.org/zap"
)

type WorkingState int

const (
	Idle WorkingState = iota
	Working
)

func (s WorkingState) String() string {
	if s == Working {
		return "working"
	}
	return "idle"
}

type TileTaskState uint32

const (
	TileTaskRunning TileTaskState = iota
	TileTaskCompleted
	TileTaskNoChanges
	TileTaskFailed
)

func (s TileTaskState) String() string {
	switch s {
	case TileTaskRunning:
		return "running"
	case TileTaskCompleted:
		return "completed"
	case TileTaskNoChanges:
		return "no_changes"
	default:
		return "failed"
	}
}

// TileChangeObserver is told about every tile committed into a mesh.
type TileChangeObserver interface {
	OnNavigationMeshChanged(meshID MeshID, tileID mnm.TileID)
}

const defaultTaskCountPerWorkerThread = 2

type TileTaskSchedulerConfig struct {
	// MaxRunningTaskCount caps concurrent generation jobs. Zero derives it from
	// the executor worker count.
	MaxRunningTaskCount      int `yaml:"max_running_task_count" validate:"gte=0"`
	TaskCountPerWorkerThread int `yaml:"task_count_per_worker_thread" validate:"gte=0"`
}

type TileTaskSchedulerParams struct {
	Config    TileTaskSchedulerConfig
	Registry  *Registry
	Generator mnm.Generator
	Executor  jobs.Executor
	OffMesh   *OffMeshNavigationManager
	Islands   *IslandGraph
	Metrics   *Metrics
	Logger    *zap.Logger
}

type tileTask struct {
	meshID  MeshID
	x, y, z uint16
	aborted bool
}

type tileTaskResult struct {
	meshID     MeshID
	x, y, z    uint16
	job        *jobs.Job
	tile       mnm.Tile
	hashValue  uint32
	volumeCopy int
	state      atomic.Uint32
	next       int
}

func (r *tileTaskResult) getState() TileTaskState {
	return TileTaskState(r.state.Load())
}

// TileTaskScheduler regenerates tiles of invalidated regions on worker jobs
// and commits the results into the meshes from the thread calling Tick.
type TileTaskScheduler struct {
	registry  *Registry
	generator mnm.Generator
	executor  jobs.Executor
	offMesh   *OffMeshNavigationManager
	islands   *IslandGraph
	observers []TileChangeObserver
	metrics   *Metrics
	logger    *zap.Logger

	tasks   []tileTask
	results []tileTaskResult
	running []int
	// finished holds harvested slots not committed yet.
	finished []int
	free     int
	// generation changes whenever the result arena is reset.
	generation uint64

	volumeCopies        volumeCopyCache
	maxRunningTaskCount int
	state               WorkingState
	throughput          float32
	cacheHitRate        float32
	ticking             bool
	paused              bool
}

func NewTileTaskScheduler(p TileTaskSchedulerParams) *TileTaskScheduler {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	executor := p.Executor
	if executor == nil {
		executor = jobs.Inline{}
	}
	maxRunning := p.Config.MaxRunningTaskCount
	if maxRunning <= 0 {
		perWorker := p.Config.TaskCountPerWorkerThread
		if perWorker <= 0 {
			perWorker = defaultTaskCountPerWorkerThread
		}
		maxRunning = max(1, executor.WorkerCount()*3/4) * perWorker
	}
	s := &TileTaskScheduler{
		registry:            p.Registry,
		generator:           p.Generator,
		executor:            executor,
		offMesh:             p.OffMesh,
		islands:             p.Islands,
		metrics:             p.Metrics,
		logger:              logger,
		maxRunningTaskCount: maxRunning,
		results:             make([]tileTaskResult, maxRunning),
	}
	s.resetResults()
	p.Registry.SetUpdateQueue(s)
	return s
}

func (s *TileTaskScheduler) resetResults() {
	for i := range s.results {
		r := &s.results[i]
		r.job = nil
		r.tile.Reset()
		r.volumeCopy = -1
		r.next = i + 1
	}
	if len(s.results) > 0 {
		s.results[len(s.results)-1].next = -1
		s.free = 0
	} else {
		s.free = -1
	}
	s.running = s.running[:0]
	s.finished = s.finished[:0]
	s.generation++
}

func (s *TileTaskScheduler) AddObserver(o TileChangeObserver) {
	s.observers = append(s.observers, o)
}

func (s *TileTaskScheduler) State() WorkingState      { return s.state }
func (s *TileTaskScheduler) Throughput() float32      { return s.throughput }
func (s *TileTaskScheduler) CacheHitRate() float32    { return s.cacheHitRate }
func (s *TileTaskScheduler) QueueSize() int           { return len(s.tasks) }
func (s *TileTaskScheduler) RunningTaskCount() int    { return len(s.running) }
func (s *TileTaskScheduler) MaxRunningTaskCount() int { return s.maxRunningTaskCount }
func (s *TileTaskScheduler) Paused() bool             { return s.paused }

func (s *TileTaskScheduler) Pause() {
	s.paused = true
}

func (s *TileTaskScheduler) Restart() {
	s.paused = false
}

// QueueRegionUpdate enqueues every tile of the mesh touched by aabb, clipped
// to the mesh boundary and grown by the agent footprint. Tasks already queued
// for those tiles are moved to the back. Returns the number of tasks queued.
func (s *TileTaskScheduler) QueueRegionUpdate(meshID MeshID, aabb common.AABB) int {
	if aabb.IsEmpty() {
		return 0
	}
	m := s.registry.GetMesh(meshID)
	if m == nil {
		return 0
	}
	boundary := s.registry.GetVolume(m.Boundary)
	if boundary == nil {
		return 0
	}
	clipped := aabb.ClipToBox(boundary.AABB)
	if clipped.IsEmpty() {
		return 0
	}
	return s.queueTilesInAABB(meshID, m, clipped)
}

// QueueDifferenceUpdate enqueues the tiles covered by either shape of an
// edited boundary volume.
func (s *TileTaskScheduler) QueueDifferenceUpdate(meshID MeshID, oldVolume, newVolume *mnm.BoundingVolume) int {
	m := s.registry.GetMesh(meshID)
	if m == nil {
		return 0
	}
	box := common.EmptyAABB()
	if oldVolume != nil {
		box.AddAABB(oldVolume.AABB)
	}
	if newVolume != nil {
		box.AddAABB(newVolume.AABB)
	}
	if box.IsEmpty() {
		return 0
	}
	return s.queueTilesInAABB(meshID, m, box)
}

func (s *TileTaskScheduler) queueTilesInAABB(meshID MeshID, m *NavigationMesh, box common.AABB) int {
	agent := s.registry.agentType(m.AgentTypeID)
	if agent == nil {
		return 0
	}
	params := m.Grid.GetParams()
	vs := params.VoxelSize
	extraH := max(vs[0], vs[1]) * float32(agent.params.Radius+1)
	extraV := vs[2] * float32(agent.params.Height+1)
	extraVM := vs[2]
	box.Min = box.Min.Sub(common.Vec3{extraH, extraH, extraV})
	box.Max = box.Max.Add(common.Vec3{extraH, extraH, extraVM})
	box = box.Offset(params.Origin.Mul(-1))

	size := params.TileWorldSize()
	var lo, hi [3]uint16
	for i := 0; i < 3; i++ {
		if box.Max[i] < 0 || size[i] <= 0 {
			return 0
		}
		lo[i] = uint16(min(math.MaxUint16, math.Floor(float64(max(0, box.Min[i])/size[i]))))
		hi[i] = uint16(min(math.MaxUint16, math.Floor(float64(box.Max[i]/size[i]))))
	}

	inRange := func(t *tileTask) bool {
		return t.meshID == meshID &&
			t.x >= lo[0] && t.x <= hi[0] &&
			t.y >= lo[1] && t.y <= hi[1] &&
			t.z >= lo[2] && t.z <= hi[2]
	}
	kept := s.tasks[:0]
	for i := range s.tasks {
		if !inRange(&s.tasks[i]) {
			kept = append(kept, s.tasks[i])
		}
	}
	s.tasks = kept

	count := 0
	for y := int(lo[1]); y <= int(hi[1]); y++ {
		for x := int(lo[0]); x <= int(hi[0]); x++ {
			for z := int(lo[2]); z <= int(hi[2]); z++ {
				s.tasks = append(s.tasks, tileTask{meshID: meshID, x: uint16(x), y: uint16(y), z: uint16(z)})
				count++
			}
		}
	}
	if s.metrics != nil {
		s.metrics.tileQueueSize.Set(float64(len(s.tasks)))
	}
	return count
}

// WorldChanged queues the tiles of every mesh whose boundary overlaps aabb.
func (s *TileTaskScheduler) WorldChanged(aabb common.AABB) int {
	if !aabb.Overlaps(s.registry.WorldAABB()) {
		return 0
	}
	count := 0
	for _, meshID := range s.registry.MeshIDs() {
		m := s.registry.GetMesh(meshID)
		if v := s.registry.GetVolume(m.Boundary); v != nil && v.Overlaps(aabb) {
			count += s.QueueRegionUpdate(meshID, aabb)
		}
	}
	return count
}

// Tick harvests finished jobs, commits their tiles and spawns new jobs. With
// blocking set it keeps going until the queue is drained. Calls made while a
// tick is in progress, while paused, or with a zero frame time are ignored.
func (s *TileTaskScheduler) Tick(frameTime float32, blocking, multiThreaded bool) WorkingState {
	if s.ticking || s.paused || frameTime <= 0 {
		return s.state
	}
	s.ticking = true
	defer func() { s.ticking = false }()

	maxRunning := s.maxRunningTaskCount
	if !multiThreaded {
		maxRunning = max(1, maxRunning/2)
	}

	completed, cacheHits := 0, 0
	for {
		c, h := s.harvest()
		completed += c
		cacheHits += h
		s.throughput = float32(completed) / frameTime
		s.cacheHitRate = float32(cacheHits) / frameTime

		if len(s.tasks) == 0 && len(s.running) == 0 {
			if s.state == Working {
				s.state = Idle
				if s.islands != nil {
					s.islands.RebuildAll()
				}
				s.logger.Debug("tile generation idle")
			}
			break
		}

		s.state = Working
		s.spawn(maxRunning, multiThreaded)
		if !blocking {
			break
		}
		for _, idx := range s.running {
			s.results[idx].job.Wait()
		}
	}

	s.updateMetrics()
	return s.state
}

// ProcessQueuedMeshUpdates drains the queue synchronously.
func (s *TileTaskScheduler) ProcessQueuedMeshUpdates() {
	for s.Tick(1.0/30.0, true, true) != Idle {
		if s.paused || s.ticking {
			return
		}
	}
}

func (s *TileTaskScheduler) harvest() (completed, cacheHits int) {
	kept := s.running[:0]
	for _, idx := range s.running {
		if s.results[idx].getState() == TileTaskRunning {
			kept = append(kept, idx)
			continue
		}
		s.finished = append(s.finished, idx)
	}
	s.running = kept

	for len(s.finished) > 0 {
		idx := s.finished[0]
		r := &s.results[idx]
		r.job.Wait()
		state := r.getState()
		switch state {
		case TileTaskCompleted:
			completed++
		case TileTaskNoChanges:
			cacheHits++
		}
		if s.metrics != nil {
			s.metrics.tileResults.WithLabelValues(state.String()).Inc()
		}
		generation := s.generation
		s.commitTile(r, state)
		if generation != s.generation {
			// a callback stopped every task and already freed the arena
			break
		}
		s.finished = slices.Delete(s.finished, 0, 1)
		s.releaseResult(idx)
	}
	return completed, cacheHits
}

func (s *TileTaskScheduler) releaseResult(idx int) {
	r := &s.results[idx]
	r.tile.Reset()
	r.job = nil
	s.volumeCopies.release(r.volumeCopy)
	r.volumeCopy = -1
	r.next = s.free
	s.free = idx
}

func (s *TileTaskScheduler) spawn(maxRunning int, multiThreaded bool) {
	popped := 0
	defer func() {
		s.tasks = slices.Delete(s.tasks, 0, popped)
	}()
	for popped < len(s.tasks) && len(s.running) < maxRunning && s.free >= 0 {
		task := s.tasks[popped]
		if task.aborted {
			popped++
			continue
		}
		m := s.registry.GetMesh(task.meshID)
		var agent *AgentType
		if m != nil {
			agent = s.registry.agentType(m.AgentTypeID)
		}
		if m == nil || agent == nil {
			popped++
			continue
		}
		copyIdx, ok := s.volumeCopies.acquire(task.meshID, m, s.registry)
		if !ok {
			s.logger.Debug("no volume copy slot available, retrying next tick")
			break
		}
		popped++

		idx := s.free
		r := &s.results[idx]
		s.free = r.next
		r.next = -1
		r.meshID = task.meshID
		r.x, r.y, r.z = task.x, task.y, task.z
		r.hashValue = 0
		r.volumeCopy = copyIdx
		r.tile.Reset()
		r.state.Store(uint32(TileTaskRunning))

		params := s.generatorParams(m, agent, task, s.volumeCopies.get(copyIdx))
		if multiThreaded {
			r.job = s.executor.Submit(func() { s.generateTile(r, params) })
		} else {
			r.job = jobs.Inline{}.Submit(func() { s.generateTile(r, params) })
		}
		s.running = append(s.running, idx)
	}
}

func (s *TileTaskScheduler) generatorParams(m *NavigationMesh, agent *AgentType, task tileTask, v *volumeDefCopy) mnm.GeneratorParams {
	gp := m.Grid.GetParams()
	params := mnm.GeneratorParams{
		Origin:     gp.TileOrigin(task.x, task.y, task.z),
		VoxelSize:  gp.VoxelSize,
		SizeX:      gp.TileSize[0],
		SizeY:      gp.TileSize[1],
		SizeZ:      gp.TileSize[2],
		Exclusions: v.exclusions,
		Agent:      agent.settings(),
	}
	if v.boundary.IsValid() {
		params.BoundingVolume = &v.boundary
	}
	if tile := m.Grid.GetTile(m.Grid.GetTileID(task.x, task.y, task.z)); tile != nil {
		params.HashValue = tile.HashValue
	} else {
		params.Flags |= mnm.NoHashTest
	}
	return params
}

// generateTile runs on a worker. It only touches its own result slot.
func (s *TileTaskScheduler) generateTile(r *tileTaskResult, params mnm.GeneratorParams) {
	if r.getState() == TileTaskFailed {
		return
	}
	hash, ok := s.generator.Generate(&params, &r.tile)
	r.hashValue = hash
	outcome := TileTaskFailed
	if ok {
		outcome = TileTaskCompleted
	} else if params.Flags&mnm.NoHashTest == 0 && hash == params.HashValue {
		outcome = TileTaskNoChanges
	}
	r.state.CompareAndSwap(uint32(TileTaskRunning), uint32(outcome))
}

func (s *TileTaskScheduler) commitTile(r *tileTaskResult, state TileTaskState) {
	m := s.registry.GetMesh(r.meshID)
	if m == nil {
		return
	}
	switch state {
	case TileTaskCompleted:
		tileID := m.Grid.SetTile(r.x, r.y, r.z, &r.tile)
		m.Grid.ConnectToNetwork(tileID)
		s.notifyTileChanged(r.meshID, m, tileID)
	case TileTaskFailed:
		if tileID := m.Grid.GetTileID(r.x, r.y, r.z); tileID != mnm.InvalidTileID {
			m.Grid.ClearTile(tileID)
			s.notifyTileChanged(r.meshID, m, tileID)
		}
	}
}

func (s *TileTaskScheduler) notifyTileChanged(meshID MeshID, m *NavigationMesh, tileID mnm.TileID) {
	if s.offMesh != nil {
		s.offMesh.RefreshConnections(meshID, tileID)
	}
	for _, o := range s.observers {
		o.OnNavigationMeshChanged(meshID, tileID)
	}
	if a := s.registry.agentType(m.AgentTypeID); a != nil {
		a.notify(m.AgentTypeID, meshID, tileID)
	}
}

// DestroyMesh cancels the jobs and queued tasks of a mesh and removes it.
func (s *TileTaskScheduler) DestroyMesh(meshID MeshID) {
	if !s.registry.ValidateMesh(meshID) {
		return
	}
	var pending []*jobs.Job
	for _, idx := range s.running {
		r := &s.results[idx]
		if r.meshID == meshID {
			r.state.Store(uint32(TileTaskFailed))
			pending = append(pending, r.job)
		}
	}
	jobs.WaitForCompletion(pending...)

	for i := range s.tasks {
		if s.tasks[i].meshID == meshID {
			s.tasks[i].aborted = true
		}
	}
	if s.offMesh != nil {
		s.offMesh.RemoveMesh(meshID)
	}
	if s.islands != nil {
		s.islands.RemoveMesh(meshID)
	}
	s.registry.eraseMesh(meshID)
	s.logger.Debug("mesh destroyed", zap.Uint32("mesh", uint32(meshID)))
}

// StopAllTasks fails every running job, waits for them and empties the queue.
func (s *TileTaskScheduler) StopAllTasks() {
	var pending []*jobs.Job
	for _, idx := range s.running {
		r := &s.results[idx]
		r.state.Store(uint32(TileTaskFailed))
		pending = append(pending, r.job)
	}
	for _, idx := range s.finished {
		pending = append(pending, s.results[idx].job)
	}
	jobs.WaitForCompletion(pending...)
	for _, idx := range s.running {
		s.volumeCopies.release(s.results[idx].volumeCopy)
	}
	for _, idx := range s.finished {
		s.volumeCopies.release(s.results[idx].volumeCopy)
	}
	s.resetResults()
	s.tasks = s.tasks[:0]
	s.state = Idle
	s.updateMetrics()
}

// Clear stops everything and forgets cached volume snapshots.
func (s *TileTaskScheduler) Clear() {
	s.StopAllTasks()
	s.volumeCopies.reset()
	s.throughput = 0
	s.cacheHitRate = 0
}

func (s *TileTaskScheduler) updateMetrics() {
	if s.metrics == nil {
		return
	}
	s.metrics.tileQueueSize.Set(float64(len(s.tasks)))
	s.metrics.tileRunning.Set(float64(len(s.running)))
	s.metrics.tileThroughput.Set(float64(s.throughput))
	s.metrics.tileCacheHitRate.Set(float64(s.cacheHitRate))
}
