package pathfinder

import (
	"github.com/gorustyt/navsystem/common"
	"github.com/gorustyt/navsystem/common/jobs"
	"github.com/gorustyt/navsystem/mnm"
	"github.com/gorustyt/navsystem/navigation"
)

type ContextState int

const (
	ContextInvalid ContextState = iota
	ContextReserved
	ContextInProgress
	ContextFindWayCompleted
	ContextCompleted
)

func (s ContextState) String() string {
	switch s {
	case ContextReserved:
		return "reserved"
	case ContextInProgress:
		return "in_progress"
	case ContextFindWayCompleted:
		return "find_way_completed"
	case ContextCompleted:
		return "completed"
	default:
		return "invalid"
	}
}

// processingContext holds one request being searched. A job only touches
// its own context. state is owned by the scheduler; a job reports the state
// it reached through jobState, which sync applies once the job is done.
type processingContext struct {
	state      ContextState
	jobState   ContextState
	job        *jobs.Job
	request    queuedRequest
	meshID     navigation.MeshID
	grid       *mnm.MeshGrid
	start      common.Vec3
	end        common.Vec3
	query      mnm.WayQueryRequest
	workingSet *mnm.WayQueryWorkingSet
	way        mnm.WayQueryResult
	findStatus mnm.FindWayStatus
	builder    pathBuilder
	result     Result
}

func newProcessingContext() *processingContext {
	return &processingContext{workingSet: mnm.NewWayQueryWorkingSet()}
}

func (c *processingContext) reset() {
	c.job.Wait()
	c.state = ContextInvalid
	c.jobState = ContextInvalid
	c.job = nil
	c.request = queuedRequest{}
	c.meshID = navigation.InvalidMeshID
	c.grid = nil
	c.query = mnm.WayQueryRequest{}
	c.workingSet.Reset()
	c.way.Reset()
	c.findStatus = mnm.FindWayInvalidRequest
	c.builder.grid = nil
	c.builder.offMesh = nil
	c.result = Result{}
}

// sync waits for the pending job and applies the state it reached.
func (c *processingContext) sync() {
	c.job.Wait()
	c.job = nil
	if c.jobState != ContextInvalid {
		c.state = c.jobState
		c.jobState = ContextInvalid
	}
}

// touches reports whether a change of tileID can affect the search: the
// tile or one of its neighbours was expanded or holds an endpoint.
func (c *processingContext) touches(tileID mnm.TileID) bool {
	x, y, z, ok := c.grid.GetTileContainerCoordinates(tileID)
	if !ok {
		return false
	}
	related := func(id mnm.TileID) bool {
		return c.workingSet.HasVisitedTile(id) ||
			mnm.ComputeTileID(c.query.From) == id ||
			mnm.ComputeTileID(c.query.To) == id
	}
	if related(tileID) {
		return true
	}
	for _, n := range c.grid.NeighbourTileIDs(x, y, z) {
		if related(n) {
			return true
		}
	}
	return false
}

// findWay runs on a worker.
func (c *processingContext) findWay() {
	status := c.grid.FindWay(&c.query, c.workingSet, &c.way)
	c.findStatus = status
	if status != mnm.FindWayContinuing {
		c.jobState = ContextFindWayCompleted
	}
}

// buildPath runs on a worker.
func (c *processingContext) buildPath() {
	c.jobState = ContextCompleted
	if c.findStatus != mnm.FindWayFound {
		c.result = Result{Status: StatusNoPathFound}
		return
	}
	points, err := c.builder.build(c.way.Way, c.start, c.end)
	if err != nil {
		c.result = Result{Status: StatusNoPathFound}
		return
	}
	c.result = Result{Status: StatusSuccess, Path: points}
}
