package pathfinder

import (
	"container/list"

	"github.com/gorustyt/navsystem/common/jobs"
	"github.com/gorustyt/navsystem/mnm"
	"github.com/gorustyt/navsystem/navigation"
	"go.uber.org/zap"
)

type Params struct {
	Config   Config
	Registry *navigation.Registry
	OffMesh  *navigation.OffMeshNavigationManager
	Executor jobs.Executor
	Metrics  *Metrics
	Logger   *zap.Logger
}

type resultEvent struct {
	id     RequestID
	result Result
}

// PathRequestScheduler searches an unbounded FIFO of path requests with a
// fixed pool of processing contexts, a bounded slice of A* per context and
// update.
type PathRequestScheduler struct {
	config   Config
	registry *navigation.Registry
	offMesh  *navigation.OffMeshNavigationManager
	executor jobs.Executor
	metrics  *Metrics
	logger   *zap.Logger

	contexts []*processingContext
	queue    *list.List
	queued   map[RequestID]*list.Element
	// owed holds the callback of every accepted request not answered yet.
	owed   map[RequestID]Callback
	events []resultEvent
	nextID RequestID
}

func NewPathRequestScheduler(p Params) *PathRequestScheduler {
	cfg := p.Config
	def := DefaultConfig()
	if cfg.MaxProcessingContexts <= 0 {
		cfg.MaxProcessingContexts = def.MaxProcessingContexts
	}
	if cfg.SnapVerticalRange <= 0 {
		cfg.SnapVerticalRange = def.SnapVerticalRange
	}
	if cfg.SnapHorizontalRange <= 0 {
		cfg.SnapHorizontalRange = def.SnapHorizontalRange
	}
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	executor := p.Executor
	if executor == nil {
		executor = jobs.Inline{}
	}
	s := &PathRequestScheduler{
		config:   cfg,
		registry: p.Registry,
		offMesh:  p.OffMesh,
		executor: executor,
		metrics:  p.Metrics,
		logger:   logger,
		queue:    list.New(),
		queued:   map[RequestID]*list.Element{},
		owed:     map[RequestID]Callback{},
	}
	s.contexts = make([]*processingContext, cfg.MaxProcessingContexts)
	for i := range s.contexts {
		s.contexts[i] = newProcessingContext()
	}
	return s
}

func (s *PathRequestScheduler) newRequestID() RequestID {
	s.nextID++
	if s.nextID == InvalidRequestID {
		s.nextID++
	}
	return s.nextID
}

// RequestPathTo queues a path request. Requests that can never succeed are
// answered immediately through their callback and get InvalidRequestID.
func (s *PathRequestScheduler) RequestPathTo(requester Requester, req PathRequest) RequestID {
	if req.Callback == nil {
		s.logger.Warn("path request without callback ignored")
		return InvalidRequestID
	}
	if requester == nil || !s.registry.ValidateAgentType(requester.AgentTypeID()) {
		s.fail(req.Callback, StatusInvalidRequester)
		return InvalidRequestID
	}
	agentTypeID := requester.AgentTypeID()
	if s.registry.GetEnclosingMeshID(agentTypeID, req.Start) == navigation.InvalidMeshID {
		s.fail(req.Callback, StatusNoEnclosingMesh)
		return InvalidRequestID
	}

	id := s.newRequestID()
	q := &queuedRequest{
		id:          id,
		agentTypeID: agentTypeID,
		request:     req,
		dangers:     buildDangerAreas(&req.Danger, req.Start),
	}
	s.queued[id] = s.queue.PushBack(q)
	s.owed[id] = req.Callback
	if s.metrics != nil {
		s.metrics.accepted.Inc()
	}
	s.updateGauges()
	return id
}

func (s *PathRequestScheduler) fail(cb Callback, status Status) {
	s.countResult(status)
	cb(InvalidRequestID, Result{Status: status})
}

// CancelPathRequest drops a queued or running request. A request still owed
// an answer gets a StatusCanceled callback.
func (s *PathRequestScheduler) CancelPathRequest(id RequestID) {
	if e, ok := s.queued[id]; ok {
		s.queue.Remove(e)
		delete(s.queued, id)
	}
	for _, c := range s.contexts {
		if c.state != ContextInvalid && c.request.id == id {
			c.reset()
		}
	}
	s.purgeEvents(id)
	s.updateGauges()
	if cb, ok := s.owed[id]; ok {
		delete(s.owed, id)
		s.countResult(StatusCanceled)
		cb(id, Result{Status: StatusCanceled})
	}
}

func (s *PathRequestScheduler) purgeEvents(id RequestID) {
	kept := s.events[:0]
	for _, e := range s.events {
		if e.id != id {
			kept = append(kept, e)
		}
	}
	s.events = kept
}

func (s *PathRequestScheduler) WaitForJobsToFinish() {
	for _, c := range s.contexts {
		c.sync()
	}
}

// Update harvests finished contexts, admits queued requests, dispatches
// results and spawns the next unit of work of every active context.
func (s *PathRequestScheduler) Update() {
	s.WaitForJobsToFinish()

	for _, c := range s.contexts {
		if c.state == ContextCompleted {
			s.events = append(s.events, resultEvent{id: c.request.id, result: c.result})
			c.reset()
		}
	}

	for _, c := range s.contexts {
		if c.state != ContextInvalid && !s.registry.ValidateMesh(c.meshID) {
			s.events = append(s.events, resultEvent{id: c.request.id, result: Result{Status: StatusMeshDestroyed}})
			c.reset()
		}
	}

	for s.queue.Len() > 0 {
		c := s.freeContext()
		if c == nil {
			break
		}
		q := s.queue.Remove(s.queue.Front()).(*queuedRequest)
		delete(s.queued, q.id)
		if status, ok := s.setupForNextPathRequest(c, q); !ok {
			s.events = append(s.events, resultEvent{id: q.id, result: Result{Status: status}})
		}
	}

	s.dispatchEvents()

	for _, c := range s.contexts {
		switch c.state {
		case ContextInProgress:
			c.job = s.submit(c.findWay)
		case ContextFindWayCompleted:
			c.job = s.submit(c.buildPath)
		}
	}
	s.updateGauges()
}

func (s *PathRequestScheduler) submit(fn func()) *jobs.Job {
	if s.config.MultiThreaded {
		return s.executor.Submit(fn)
	}
	return jobs.Inline{}.Submit(fn)
}

func (s *PathRequestScheduler) freeContext() *processingContext {
	for _, c := range s.contexts {
		if c.state == ContextInvalid {
			return c
		}
	}
	return nil
}

// setupForNextPathRequest resolves the request against the current meshes.
// On failure the context stays free.
func (s *PathRequestScheduler) setupForNextPathRequest(c *processingContext, q *queuedRequest) (Status, bool) {
	c.state = ContextReserved
	c.request = *q

	meshID := s.registry.GetEnclosingMeshID(q.agentTypeID, q.request.Start)
	if meshID == navigation.InvalidMeshID {
		c.reset()
		return StatusNoEnclosingMesh, false
	}
	vr, hr := s.config.SnapVerticalRange, s.config.SnapHorizontalRange
	start, startTri, err := s.registry.GetClosestMeshLocation(meshID, q.request.Start, vr, hr)
	if err != nil {
		c.reset()
		return StatusInvalidStart, false
	}
	end, endTri, err := s.registry.GetClosestMeshLocation(meshID, q.request.End, vr, hr)
	if err != nil {
		c.reset()
		return StatusInvalidEnd, false
	}

	var table *mnm.OffMeshNavigation
	if s.offMesh != nil {
		table = s.offMesh.FindTable(meshID)
	}
	c.meshID = meshID
	c.grid = s.registry.GetMesh(meshID).Grid
	c.start = start
	c.end = end
	c.query = mnm.WayQueryRequest{
		From:         startTri,
		To:           endTri,
		FromLocation: start,
		ToLocation:   end,
		DangerAreas:  q.dangers,
		LinkFilter:   q.request.LinkFilter,
		OffMesh:      table,
		Quota:        s.config.FindWayQuota,
	}
	c.builder = pathBuilder{grid: c.grid, offMesh: table, stringPull: s.config.StringPull, points: c.builder.points}
	c.state = ContextInProgress
	return StatusSuccess, true
}

func (s *PathRequestScheduler) dispatchEvents() {
	// callbacks may queue or cancel requests
	for len(s.events) > 0 {
		e := s.events[0]
		s.events = s.events[1:]
		cb, ok := s.owed[e.id]
		if !ok {
			continue
		}
		delete(s.owed, e.id)
		s.countResult(e.result.Status)
		cb(e.id, e.result)
	}
	s.events = nil
}

// OnNavigationMeshChanged restarts the searches a tile change can affect.
// The request keeps its id and goes back to the front of the queue.
func (s *PathRequestScheduler) OnNavigationMeshChanged(meshID navigation.MeshID, tileID mnm.TileID) {
	for _, c := range s.contexts {
		if c.state == ContextInvalid || c.meshID != meshID {
			continue
		}
		c.sync()
		if c.state == ContextCompleted || !c.touches(tileID) {
			continue
		}
		q := c.request
		c.reset()
		s.queued[q.id] = s.queue.PushFront(&q)
		if s.metrics != nil {
			s.metrics.restarts.Inc()
		}
		s.logger.Debug("path request restarted",
			zap.Uint32("request", uint32(q.id)), zap.Uint32("tile", uint32(tileID)))
	}
}

// Reset answers every queued and running request with StatusSchedulerReset
// and empties the scheduler.
func (s *PathRequestScheduler) Reset() {
	s.WaitForJobsToFinish()
	var ids []RequestID
	for _, c := range s.contexts {
		if c.state != ContextInvalid {
			ids = append(ids, c.request.id)
			c.reset()
		}
	}
	for _, e := range s.events {
		ids = append(ids, e.id)
	}
	for e := s.queue.Front(); e != nil; e = e.Next() {
		ids = append(ids, e.Value.(*queuedRequest).id)
	}
	s.queue.Init()
	clear(s.queued)
	s.events = nil

	owed := s.owed
	s.owed = map[RequestID]Callback{}
	s.updateGauges()
	for _, id := range ids {
		if cb, ok := owed[id]; ok {
			delete(owed, id)
			s.countResult(StatusSchedulerReset)
			cb(id, Result{Status: StatusSchedulerReset})
		}
	}
}

func (s *PathRequestScheduler) QueuedRequestCount() int {
	return s.queue.Len()
}

func (s *PathRequestScheduler) ActiveContextCount() int {
	n := 0
	for _, c := range s.contexts {
		if c.state != ContextInvalid {
			n++
		}
	}
	return n
}

func (s *PathRequestScheduler) MaxProcessingContexts() int {
	return len(s.contexts)
}

// ContextState returns the state of the context processing id, or
// ContextInvalid when it is queued or unknown. It waits for the job of that
// context.
func (s *PathRequestScheduler) ContextState(id RequestID) ContextState {
	for _, c := range s.contexts {
		if c.state != ContextInvalid && c.request.id == id {
			c.sync()
			return c.state
		}
	}
	return ContextInvalid
}

func (s *PathRequestScheduler) IsQueued(id RequestID) bool {
	_, ok := s.queued[id]
	return ok
}

func (s *PathRequestScheduler) countResult(status Status) {
	if s.metrics != nil {
		s.metrics.results.WithLabelValues(status.String()).Inc()
	}
}

func (s *PathRequestScheduler) updateGauges() {
	if s.metrics == nil {
		return
	}
	s.metrics.queued.Set(float64(s.queue.Len()))
	s.metrics.activeContexts.Set(float64(s.ActiveContextCount()))
}
