package common

import "math"

// AABB is an axis aligned bounding box. The zero value is a degenerate box at
// the origin, use EmptyAABB for a box that contains nothing.
type AABB struct {
	Min Vec3
	Max Vec3
}

func EmptyAABB() AABB {
	return AABB{
		Min: Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32},
		Max: Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32},
	}
}

func NewAABB(min, max Vec3) AABB {
	return AABB{Min: min, Max: max}
}

func (b AABB) IsEmpty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}

func (b *AABB) Add(p Vec3) {
	for i := 0; i < 3; i++ {
		b.Min[i] = min(b.Min[i], p[i])
		b.Max[i] = max(b.Max[i], p[i])
	}
}

func (b *AABB) AddAABB(o AABB) {
	if o.IsEmpty() {
		return
	}
	b.Add(o.Min)
	b.Add(o.Max)
}

func (b AABB) Expand(v Vec3) AABB {
	return AABB{Min: b.Min.Sub(v), Max: b.Max.Add(v)}
}

func (b AABB) Offset(v Vec3) AABB {
	return AABB{Min: b.Min.Add(v), Max: b.Max.Add(v)}
}

// ClipToBox returns the intersection of b and o. The result may be empty.
func (b AABB) ClipToBox(o AABB) AABB {
	var res AABB
	for i := 0; i < 3; i++ {
		res.Min[i] = max(b.Min[i], o.Min[i])
		res.Max[i] = min(b.Max[i], o.Max[i])
	}
	return res
}

func (b AABB) Overlaps(o AABB) bool {
	if b.IsEmpty() || o.IsEmpty() {
		return false
	}
	return b.Min[0] <= o.Max[0] && b.Max[0] >= o.Min[0] &&
		b.Min[1] <= o.Max[1] && b.Max[1] >= o.Min[1] &&
		b.Min[2] <= o.Max[2] && b.Max[2] >= o.Min[2]
}

func (b AABB) ContainsPoint(p Vec3) bool {
	return p[0] >= b.Min[0] && p[0] <= b.Max[0] &&
		p[1] >= b.Min[1] && p[1] <= b.Max[1] &&
		p[2] >= b.Min[2] && p[2] <= b.Max[2]
}

func (b AABB) ContainsPoint2D(p Vec3) bool {
	return p[0] >= b.Min[0] && p[0] <= b.Max[0] &&
		p[1] >= b.Min[1] && p[1] <= b.Max[1]
}

func (b AABB) Size() Vec3 {
	return b.Max.Sub(b.Min)
}
