package pathfinder

import (
	"github.com/gorustyt/navsystem/common"
	"github.com/gorustyt/navsystem/mnm"
	"github.com/gorustyt/navsystem/navigation"
)

type RequestID uint32

const InvalidRequestID RequestID = 0

type Status int

const (
	StatusSuccess Status = iota
	StatusNoPathFound
	StatusInvalidRequester
	StatusNoEnclosingMesh
	StatusInvalidStart
	StatusInvalidEnd
	StatusCanceled
	StatusSchedulerReset
	StatusMeshDestroyed
)

var statusNames = [...]string{
	StatusSuccess:          "success",
	StatusNoPathFound:      "no_path_found",
	StatusInvalidRequester: "invalid_requester",
	StatusNoEnclosingMesh:  "no_enclosing_mesh",
	StatusInvalidStart:     "invalid_start",
	StatusInvalidEnd:       "invalid_end",
	StatusCanceled:         "canceled",
	StatusSchedulerReset:   "scheduler_reset",
	StatusMeshDestroyed:    "mesh_destroyed",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

// PathPoint is one corner of a path. OffMeshLink is set on the point where
// the agent has to start traversing that link.
type PathPoint struct {
	Position    common.Vec3
	OffMeshLink mnm.OffMeshLinkID
}

type Result struct {
	Status Status
	Path   []PathPoint
}

// Callback receives the outcome of a request. It is called exactly once per
// accepted request, from the goroutine calling Update, CancelPathRequest or
// Reset.
type Callback func(id RequestID, result Result)

// Requester is the agent a path is computed for.
type Requester interface {
	AgentTypeID() navigation.AgentTypeID
}

type PathRequest struct {
	Start    common.Vec3
	End      common.Vec3
	Callback Callback
	Danger   DangerOptions
	// LinkFilter rejects off-mesh links the requester may not use.
	LinkFilter mnm.LinkFilter
}

type queuedRequest struct {
	id          RequestID
	agentTypeID navigation.AgentTypeID
	request     PathRequest
	dangers     []mnm.DangerArea
}
