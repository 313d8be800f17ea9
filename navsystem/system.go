// Package navsystem owns the navigation registry, the schedulers that keep it
// up to date and the queries run against it.
package navsystem

import (
	"fmt"

	"github.com/gorustyt/navsystem/common"
	"github.com/gorustyt/navsystem/common/jobs"
	"github.com/gorustyt/navsystem/common/logger"
	"github.com/gorustyt/navsystem/mnm"
	"github.com/gorustyt/navsystem/navigation"
	"github.com/gorustyt/navsystem/pathfinder"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type Option func(*options)

type options struct {
	logger   *zap.Logger
	executor jobs.Executor
	metrics  prometheus.Registerer
}

// WithLogger replaces the logger built from the config.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithExecutor runs jobs on e instead of a pool owned by the system.
func WithExecutor(e jobs.Executor) Option {
	return func(o *options) { o.executor = e }
}

func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.metrics = reg }
}

type NavigationSystem struct {
	config   Config
	logger   *zap.Logger
	pool     *jobs.Pool
	executor jobs.Executor

	registry *navigation.Registry
	offMesh  *navigation.OffMeshNavigationManager
	islands  *navigation.IslandGraph
	tiles    *navigation.TileTaskScheduler
	paths    *pathfinder.PathRequestScheduler
}

func New(cfg Config, generator mnm.Generator, opts ...Option) (*NavigationSystem, error) {
	if generator == nil {
		return nil, fmt.Errorf("%w: no tile generator", navigation.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		l, err := logger.New(&cfg.Logger)
		if err != nil {
			return nil, err
		}
		o.logger = l
	}

	n := &NavigationSystem{config: cfg, logger: o.logger, executor: o.executor}
	if n.executor == nil {
		n.pool = jobs.NewPool(cfg.Workers, o.logger.Named("jobs"))
		n.executor = n.pool
	}

	metrics := navigation.NewMetrics(o.metrics)
	n.registry = navigation.NewRegistry(o.logger.Named("registry"))
	n.offMesh = navigation.NewOffMeshNavigationManager(n.registry, metrics, o.logger.Named("offmesh"))
	n.islands = navigation.NewIslandGraph(n.registry, n.offMesh, metrics, o.logger.Named("islands"))
	n.tiles = navigation.NewTileTaskScheduler(navigation.TileTaskSchedulerParams{
		Config:    cfg.Tiles,
		Registry:  n.registry,
		Generator: generator,
		Executor:  n.executor,
		OffMesh:   n.offMesh,
		Islands:   n.islands,
		Metrics:   metrics,
		Logger:    o.logger.Named("tiles"),
	})
	n.paths = pathfinder.NewPathRequestScheduler(pathfinder.Params{
		Config:   cfg.Pathfinder,
		Registry: n.registry,
		OffMesh:  n.offMesh,
		Executor: n.executor,
		Metrics:  pathfinder.NewMetrics(o.metrics),
		Logger:   o.logger.Named("paths"),
	})
	n.tiles.AddObserver(n.paths)

	if _, err := n.registry.LoadAgentTypes(cfg.AgentTypes); err != nil {
		n.Close()
		return nil, err
	}
	n.logger.Info("navigation system started",
		zap.Int("workers", n.executor.WorkerCount()),
		zap.Int("agentTypes", n.registry.AgentTypeCount()))
	return n, nil
}

func (n *NavigationSystem) Config() Config { return n.config }

func (n *NavigationSystem) Logger() *zap.Logger { return n.logger }

func (n *NavigationSystem) Registry() *navigation.Registry { return n.registry }

func (n *NavigationSystem) TileScheduler() *navigation.TileTaskScheduler { return n.tiles }

func (n *NavigationSystem) PathScheduler() *pathfinder.PathRequestScheduler { return n.paths }

func (n *NavigationSystem) Islands() *navigation.IslandGraph { return n.islands }

func (n *NavigationSystem) OffMesh() *navigation.OffMeshNavigationManager { return n.offMesh }

// Update advances one frame. Path jobs read the meshes, so they are joined
// before the tile scheduler commits anything.
func (n *NavigationSystem) Update(frameTime float32, blocking bool) navigation.WorkingState {
	n.paths.WaitForJobsToFinish()
	state := n.tiles.Tick(frameTime, blocking, n.executor.WorkerCount() > 1)
	n.paths.Update()
	return state
}

// ProcessQueuedMeshUpdates regenerates every queued tile before returning.
func (n *NavigationSystem) ProcessQueuedMeshUpdates() {
	n.paths.WaitForJobsToFinish()
	n.tiles.ProcessQueuedMeshUpdates()
}

// RequestPathTo forwards to the path scheduler. The callback runs during a
// later Update unless the request is rejected right away.
func (n *NavigationSystem) RequestPathTo(requester pathfinder.Requester, req pathfinder.PathRequest) pathfinder.RequestID {
	return n.paths.RequestPathTo(requester, req)
}

func (n *NavigationSystem) CancelPathRequest(id pathfinder.RequestID) {
	n.paths.CancelPathRequest(id)
}

func (n *NavigationSystem) DestroyMesh(meshID navigation.MeshID) {
	n.paths.WaitForJobsToFinish()
	n.tiles.DestroyMesh(meshID)
}

// ReloadConfig replaces the agent types with the ones of the file at path.
// Every mesh is dropped. A file that fails to load or validate leaves the
// system untouched.
func (n *NavigationSystem) ReloadConfig(path string) error {
	cfg, err := LoadConfig(path)
	if err != nil {
		n.logger.Error("navigation config reload failed", zap.String("path", path), zap.Error(err))
		return err
	}
	n.Clear()
	n.registry.ResetAgentTypes()
	if _, err := n.registry.LoadAgentTypes(cfg.AgentTypes); err != nil {
		return err
	}
	n.config.AgentTypes = cfg.AgentTypes
	n.config.ConfigVersion = cfg.ConfigVersion
	n.logger.Info("navigation config reloaded",
		zap.String("path", path), zap.Uint32("configVersion", cfg.ConfigVersion),
		zap.Int("agentTypes", n.registry.AgentTypeCount()))
	return nil
}

// LoadAgentTypes adds agent types next to the existing ones.
func (n *NavigationSystem) LoadAgentTypes(configs []navigation.AgentTypeConfig) ([]navigation.AgentTypeID, error) {
	return n.registry.LoadAgentTypes(configs)
}

// Clear drops every mesh, volume and link. Pending path requests are
// answered with StatusSchedulerReset. Agent types are kept.
func (n *NavigationSystem) Clear() {
	n.paths.Reset()
	n.tiles.Clear()
	for _, id := range n.registry.MeshIDs() {
		n.tiles.DestroyMesh(id)
	}
	n.registry.Clear()
	n.offMesh.Clear()
	n.islands.Reset()
}

// Close stops every job. The system must not be used afterwards.
func (n *NavigationSystem) Close() {
	n.paths.WaitForJobsToFinish()
	n.tiles.StopAllTasks()
	if n.pool != nil {
		n.pool.Close()
	}
	_ = n.logger.Sync()
}

// Queries

func (n *NavigationSystem) snapRange() (float32, float32) {
	return n.config.QuerySnapRange, n.config.QuerySnapRange
}

func (n *NavigationSystem) GetGlobalIslandIDAtPosition(agentTypeID navigation.AgentTypeID, location common.Vec3) mnm.GlobalIslandID {
	vr, hr := n.snapRange()
	return n.islands.GetGlobalIslandIDAtPosition(agentTypeID, location, vr, hr)
}

// IsPointReachableFromPosition reports whether end lies on an island reachable
// from the island under start, using only the links accepted by filter.
func (n *NavigationSystem) IsPointReachableFromPosition(agentTypeID navigation.AgentTypeID, filter mnm.LinkFilter, start, end common.Vec3) bool {
	from := n.GetGlobalIslandIDAtPosition(agentTypeID, start)
	to := n.GetGlobalIslandIDAtPosition(agentTypeID, end)
	return n.islands.AreReachable(filter, from, to)
}

// GetClosestPointInNavigationMesh snaps location onto the mesh of the agent
// type enclosing it.
func (n *NavigationSystem) GetClosestPointInNavigationMesh(agentTypeID navigation.AgentTypeID, location common.Vec3) (common.Vec3, bool) {
	meshID := n.registry.GetEnclosingMeshID(agentTypeID, location)
	if meshID == navigation.InvalidMeshID {
		return location, false
	}
	vr, hr := n.snapRange()
	p, _, err := n.registry.GetClosestMeshLocation(meshID, location, vr, hr)
	return p, err == nil
}

// IsLocationValidInNavigationMesh reports whether a triangle lies directly
// under or over location.
func (n *NavigationSystem) IsLocationValidInNavigationMesh(agentTypeID navigation.AgentTypeID, location common.Vec3) bool {
	meshID := n.registry.GetEnclosingMeshID(agentTypeID, location)
	if meshID == navigation.InvalidMeshID {
		return false
	}
	vr, _ := n.snapRange()
	return n.registry.GetMesh(meshID).Grid.GetTriangleAt(location, vr, vr) != mnm.InvalidTriangleID
}

// Off-mesh links

// AddOffMeshLink registers a link and the island edge it creates.
func (n *NavigationSystem) AddOffMeshLink(meshID navigation.MeshID, entityID uint32, start, end common.Vec3) (mnm.OffMeshLinkID, error) {
	n.paths.WaitForJobsToFinish()
	l, err := n.offMesh.AddLink(meshID, entityID, start, end)
	if err != nil {
		return mnm.InvalidOffMeshLinkID, err
	}
	n.islands.AddLink(meshID, l.StartTriangle, l.EndTriangle)
	return l.ID, nil
}

func (n *NavigationSystem) RemoveOffMeshLink(meshID navigation.MeshID, linkID mnm.OffMeshLinkID) bool {
	n.paths.WaitForJobsToFinish()
	table := n.offMesh.FindTable(meshID)
	if table == nil {
		return false
	}
	l, ok := table.GetLink(linkID)
	if !ok {
		return false
	}
	// the edge is resolved through the link table
	n.islands.RemoveLink(meshID, l.StartTriangle, l.EndTriangle)
	_, ok = n.offMesh.RemoveLink(meshID, linkID)
	return ok
}

func (n *NavigationSystem) RemoveAllOffMeshLinksForEntity(meshID navigation.MeshID, entityID uint32) int {
	n.paths.WaitForJobsToFinish()
	n.islands.RemoveAllLinksForEntity(meshID, entityID)
	return len(n.offMesh.RemoveAllLinksForEntity(meshID, entityID))
}
