package navigation

import (
	"strings"

	"github.com/gorustyt/navsystem/common"
	"github.com/gorustyt/navsystem/mnm"
)

// AgentTypeParams describe a locomotion profile. Sizes are in voxels.
type AgentTypeParams struct {
	VoxelSize                common.Vec3
	Radius                   uint16
	Height                   uint16
	ClimbableHeight          uint16
	MaxWaterDepth            uint16
	ClimbableInclineGradient float32
	ClimbableStepRatio       float32
	SmartObjectUserClasses   []string
}

// MeshChangeCallback is invoked once per tile committed into a mesh.
type MeshChangeCallback func(agentTypeID AgentTypeID, meshID MeshID, tileID mnm.TileID)

type CallbackHandle uint32

type meshChangeListener struct {
	handle CallbackHandle
	fn     MeshChangeCallback
}

type meshInfo struct {
	id       MeshID
	name     string
	nameHash uint32
}

type AgentType struct {
	name               string
	params             AgentTypeParams
	meshEntityCallback func(entityID uint32) bool
	meshes             []meshInfo
	exclusions         []VolumeID
	listeners          []meshChangeListener
	nextHandle         CallbackHandle
}

func (a *AgentType) Name() string {
	return a.name
}

func (a *AgentType) Params() AgentTypeParams {
	return a.params
}

func (a *AgentType) settings() mnm.AgentSettings {
	return mnm.AgentSettings{
		Radius:                   a.params.Radius,
		Height:                   a.params.Height,
		ClimbableHeight:          a.params.ClimbableHeight,
		MaxWaterDepth:            a.params.MaxWaterDepth,
		ClimbableInclineGradient: a.params.ClimbableInclineGradient,
		ClimbableStepRatio:       a.params.ClimbableStepRatio,
		Callback:                 a.meshEntityCallback,
	}
}

func (a *AgentType) removeMesh(id MeshID) {
	for i, m := range a.meshes {
		if m.id == id {
			a.meshes = append(a.meshes[:i], a.meshes[i+1:]...)
			return
		}
	}
}

func (a *AgentType) hasExclusion(id VolumeID) bool {
	for _, e := range a.exclusions {
		if e == id {
			return true
		}
	}
	return false
}

func (a *AgentType) supportsSmartObjectUserClass(class string) bool {
	for _, c := range a.params.SmartObjectUserClasses {
		if strings.EqualFold(c, class) {
			return true
		}
	}
	return false
}

func (a *AgentType) notify(agentTypeID AgentTypeID, meshID MeshID, tileID mnm.TileID) {
	// listeners may unregister themselves while being notified
	listeners := append([]meshChangeListener(nil), a.listeners...)
	for _, l := range listeners {
		l.fn(agentTypeID, meshID, tileID)
	}
}
