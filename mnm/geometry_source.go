package mnm

import "github.com/gorustyt/navsystem/common"

type Obstacle struct {
	Bounds   common.AABB
	EntityID uint32
}

// PlaneSource is a flat ground at Height with box obstacles that block
// walking. Obstacles whose entity is rejected by the agent callback are ignored.
type PlaneSource struct {
	Height    float32
	Obstacles []Obstacle
}

func (p *PlaneSource) SampleHeight(x, y, minZ, maxZ float32, accept func(entityID uint32) bool) (float32, bool) {
	if p.Height < minZ || p.Height >= maxZ {
		return p.Height, false
	}
	pt := Vec3{x, y, p.Height}
	for _, o := range p.Obstacles {
		if accept != nil && !accept(o.EntityID) {
			continue
		}
		if o.Bounds.ContainsPoint2D(pt) && o.Bounds.Max[2] >= p.Height && o.Bounds.Min[2] <= p.Height {
			return p.Height, false
		}
	}
	return p.Height, true
}
