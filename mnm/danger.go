package mnm

import "github.com/gorustyt/navsystem/common"

// DangerArea adds a cost to moving between two points.
type DangerArea interface {
	Cost(from, to Vec3) float32
}

// DangerAreaConstant charges a flat cost for entering a sphere.
type DangerAreaConstant struct {
	Position Vec3
	Radius   float32
	Penalty  float32
}

func (d DangerAreaConstant) Cost(_, to Vec3) float32 {
	if to.Sub(d.Position).LenSqr() <= d.Radius*d.Radius {
		return d.Penalty
	}
	return 0
}

// DangerAreaDirectional charges for moving toward a threat, proportional to
// how directly the step points at it. Range <= 0 means unlimited.
type DangerAreaDirectional struct {
	Position Vec3
	Range    float32
	Penalty  float32
}

func (d DangerAreaDirectional) Cost(from, to Vec3) float32 {
	if d.Range > 0 && to.Sub(d.Position).LenSqr() > d.Range*d.Range {
		return 0
	}
	step := to.Sub(from)
	toThreat := d.Position.Sub(from)
	if step.LenSqr() < 1e-8 || toThreat.LenSqr() < 1e-8 {
		return 0
	}
	dot := step.Normalize().Dot(toThreat.Normalize())
	if dot <= 0 {
		return 0
	}
	return d.Penalty * common.Clamp(dot, 0, 1)
}
