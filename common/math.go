package common

import (
	"cmp"
	"math"
)

// / Returns the square of the value.
// / @param[in]		a	The value.
// / @return The square of the value.
func Sqr[T IT](a T) T {
	return a * a
}

// / Returns the absolute value.
// / @param[in]		a	The value.
// / @return The absolute value of the specified value.
func Abs[T IT](a T) T {
	if a < 0 {
		return -a
	}
	return a
}

// / Clamps the value to the specified range.
// /  @param[in]		value			The value to clamp.
// /  @param[in]		minInclusive	The minimum permitted return value.
// /  @param[in]		maxInclusive	The maximum permitted return value.
// /  @return The value, clamped to the specified range.
func Clamp[T cmp.Ordered](value, minInclusive, maxInclusive T) T {
	if value < minInclusive {
		return minInclusive
	}
	if value > maxInclusive {
		return maxInclusive
	}
	return value
}

func IsFinite(v float32) bool {
	return !math.IsInf(float64(v), 0) && !math.IsNaN(float64(v))
}

// / Returns the distance between two points on the xy-plane.
func Vdist2D(v1, v2 Vec3) float32 {
	return float32(math.Sqrt(float64(Vdist2DSqr(v1, v2))))
}

func Vdist2DSqr(v1, v2 Vec3) float32 {
	dx := v2[0] - v1[0]
	dy := v2[1] - v1[1]
	return dx*dx + dy*dy
}

// / Performs a 'sloppy' colocation check of the specified points.
// / Returns true if the points are considered to be at the same location.
func Vequal(p0, p1 Vec3) bool {
	return p0.Sub(p1).LenSqr() < Sqr[float32](1.0/1024.0)
}

// / Derives the signed xy-plane area of the triangle ABC, or the relationship of line AB to point C.
// / Positive when c is to the left of ab (counter clockwise).
func TriArea2D(a, b, c Vec3) float32 {
	abx := b[0] - a[0]
	aby := b[1] - a[1]
	acx := c[0] - a[0]
	acy := c[1] - a[1]
	return abx*acy - acx*aby
}

// DistancePtSeg2DSqr returns the squared xy distance from pt to segment pq
// and the parametric position of the closest point on the segment.
func DistancePtSeg2DSqr(pt, p, q Vec3) (dist float32, t float32) {
	pqx := q[0] - p[0]
	pqy := q[1] - p[1]
	dx := pt[0] - p[0]
	dy := pt[1] - p[1]
	d := pqx*pqx + pqy*pqy
	t = pqx*dx + pqy*dy
	if d > 0 {
		t /= d
	}
	t = Clamp(t, 0, 1)
	dx = p[0] + t*pqx - pt[0]
	dy = p[1] + t*pqy - pt[1]
	return dx*dx + dy*dy, t
}

// PointInPolygon2D checks if the point lies inside the polygon on the xy-plane.
func PointInPolygon2D(verts []Vec3, point Vec3) bool {
	inPoly := false
	for i, j := 0, len(verts)-1; i < len(verts); j, i = i, i+1 {
		vi := verts[i]
		vj := verts[j]
		if (vi[1] > point[1]) == (vj[1] > point[1]) {
			continue
		}
		if point[0] >= (vj[0]-vi[0])*(point[1]-vi[1])/(vj[1]-vi[1])+vi[0] {
			continue
		}
		inPoly = !inPoly
	}
	return inPoly
}

// PointInTriangle2D reports whether p is inside (or on the edge of) triangle abc on the xy-plane.
func PointInTriangle2D(p, a, b, c Vec3) bool {
	const eps = 1e-4
	d1 := TriArea2D(a, b, p)
	d2 := TriArea2D(b, c, p)
	d3 := TriArea2D(c, a, p)
	hasNeg := d1 < -eps || d2 < -eps || d3 < -eps
	hasPos := d1 > eps || d2 > eps || d3 > eps
	return !(hasNeg && hasPos)
}

// HeightOnTriangle returns the z of the point p projected vertically onto the plane of abc.
func HeightOnTriangle(p, a, b, c Vec3) float32 {
	v0 := c.Sub(a)
	v1 := b.Sub(a)
	v2 := p.Sub(a)
	denom := v0[0]*v1[1] - v0[1]*v1[0]
	if Abs(denom) < 1e-6 {
		return (a[2] + b[2] + c[2]) / 3
	}
	u := (v1[1]*v2[0] - v1[0]*v2[1]) / denom
	v := (v0[0]*v2[1] - v0[1]*v2[0]) / denom
	return a[2] + v0[2]*u + v1[2]*v
}

// ClosestPtPointTriangle returns the point on triangle abc closest to p.
func ClosestPtPointTriangle(p, a, b, c Vec3) Vec3 {
	ab := b.Sub(a)
	ac := c.Sub(a)
	ap := p.Sub(a)
	d1 := ab.Dot(ap)
	d2 := ac.Dot(ap)
	if d1 <= 0 && d2 <= 0 {
		return a
	}

	bp := p.Sub(b)
	d3 := ab.Dot(bp)
	d4 := ac.Dot(bp)
	if d3 >= 0 && d4 <= d3 {
		return b
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := d1 / (d1 - d3)
		return a.Add(ab.Mul(v))
	}

	cp := p.Sub(c)
	d5 := ab.Dot(cp)
	d6 := ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		return c
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := d2 / (d2 - d6)
		return a.Add(ac.Mul(w))
	}

	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return b.Add(c.Sub(b).Mul(w))
	}

	denom := 1 / (va + vb + vc)
	v := vb * denom
	w := vc * denom
	return a.Add(ab.Mul(v)).Add(ac.Mul(w))
}

// / Returns the next power of two of v.
func NextPow2(v uint32) uint32 {
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v++
	return v
}
