package mnm

import "github.com/gorustyt/navsystem/common"

// BoundingVolume is a vertical prism: a polygon on the xy-plane extruded
// upward by Height from its lowest vertex.
type BoundingVolume struct {
	Vertices []Vec3
	Height   float32
	AABB     common.AABB
}

func NewBoundingVolume(vertices []Vec3, height float32) BoundingVolume {
	v := BoundingVolume{Vertices: append([]Vec3(nil), vertices...), Height: height}
	v.UpdateAABB()
	return v
}

func (v *BoundingVolume) UpdateAABB() {
	v.AABB = common.EmptyAABB()
	for _, p := range v.Vertices {
		v.AABB.Add(p)
	}
	if len(v.Vertices) > 0 {
		v.AABB.Max[2] = v.AABB.Min[2] + v.Height
	}
}

func (v *BoundingVolume) IsValid() bool {
	if len(v.Vertices) < 3 || v.AABB.IsEmpty() || !common.IsFinite(v.Height) {
		return false
	}
	for _, p := range v.Vertices {
		if !common.IsFinite(p[0]) || !common.IsFinite(p[1]) || !common.IsFinite(p[2]) {
			return false
		}
	}
	return true
}

func (v *BoundingVolume) Contains(p Vec3) bool {
	if !v.AABB.ContainsPoint(p) {
		return false
	}
	return common.PointInPolygon2D(v.Vertices, p)
}

func (v *BoundingVolume) Overlaps(box common.AABB) bool {
	return v.AABB.Overlaps(box)
}

func (v *BoundingVolume) Clone() BoundingVolume {
	return BoundingVolume{
		Vertices: append([]Vec3(nil), v.Vertices...),
		Height:   v.Height,
		AABB:     v.AABB,
	}
}
