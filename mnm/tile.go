package mnm

import (
	"sort"

	"github.com/gorustyt/navsystem/common"
)

const (
	SideInternal uint8 = 0xff
	SideOffMesh  uint8 = 0xfe
)

// NeighbourOffsets lists the coordinate offset of each external link side.
var NeighbourOffsets = func() (res [26][3]int) {
	i := 0
	for z := -1; z <= 1; z++ {
		for y := -1; y <= 1; y++ {
			for x := -1; x <= 1; x++ {
				if x == 0 && y == 0 && z == 0 {
					continue
				}
				res[i] = [3]int{x, y, z}
				i++
			}
		}
	}
	return res
}()

type Triangle struct {
	Vertex    [3]uint16
	LinkCount uint8
	FirstLink uint16
	IslandID  StaticIslandID
}

// Link connects an edge of a triangle to a triangle of the same tile
// (SideInternal) or of the neighbour tile in direction Side.
type Link struct {
	Side     uint8
	Edge     uint8
	Triangle uint16
}

// BVNode is a node of the tile bounding volume tree, stored in pre-order.
// For leaves Offset is the triangle index, otherwise it is the escape offset.
type BVNode struct {
	Leaf   bool
	Offset uint16
	AABB   common.AABB
}

type Tile struct {
	Triangles []Triangle
	Vertices  []Vec3
	Links     []Link
	Nodes     []BVNode
	HashValue uint32
}

func (t *Tile) Reset() {
	t.Triangles = t.Triangles[:0]
	t.Vertices = t.Vertices[:0]
	t.Links = t.Links[:0]
	t.Nodes = t.Nodes[:0]
	t.HashValue = 0
}

func (t *Tile) Swap(other *Tile) {
	*t, *other = *other, *t
}

func (t *Tile) Clone() Tile {
	return Tile{
		Triangles: append([]Triangle(nil), t.Triangles...),
		Vertices:  append([]Vec3(nil), t.Vertices...),
		Links:     append([]Link(nil), t.Links...),
		Nodes:     append([]BVNode(nil), t.Nodes...),
		HashValue: t.HashValue,
	}
}

func (t *Tile) TriangleVertices(index uint16) (a, b, c Vec3) {
	tri := &t.Triangles[index]
	return t.Vertices[tri.Vertex[0]], t.Vertices[tri.Vertex[1]], t.Vertices[tri.Vertex[2]]
}

func (t *Tile) TriangleAABB(index uint16) common.AABB {
	a, b, c := t.TriangleVertices(index)
	box := common.EmptyAABB()
	box.Add(a)
	box.Add(b)
	box.Add(c)
	return box
}

func (t *Tile) TriangleCenter(index uint16) Vec3 {
	a, b, c := t.TriangleVertices(index)
	return a.Add(b).Add(c).Mul(1.0 / 3.0)
}

// EdgeVertices returns the two vertices of edge e (0..2) of a triangle.
func (t *Tile) EdgeVertices(index uint16, e uint8) (Vec3, Vec3) {
	tri := &t.Triangles[index]
	return t.Vertices[tri.Vertex[e]], t.Vertices[tri.Vertex[(e+1)%3]]
}

// BuildBVTree rebuilds Nodes from the current triangles.
func (t *Tile) BuildBVTree() {
	t.Nodes = t.Nodes[:0]
	if len(t.Triangles) == 0 {
		return
	}
	items := make([]uint16, len(t.Triangles))
	for i := range items {
		items[i] = uint16(i)
	}
	t.subdivide(items)
}

func (t *Tile) subdivide(items []uint16) {
	box := common.EmptyAABB()
	for _, it := range items {
		box.AddAABB(t.TriangleAABB(it))
	}
	if len(items) == 1 {
		t.Nodes = append(t.Nodes, BVNode{Leaf: true, Offset: items[0], AABB: box})
		return
	}
	self := len(t.Nodes)
	t.Nodes = append(t.Nodes, BVNode{AABB: box})

	size := box.Size()
	axis := 0
	if size[1] > size[axis] {
		axis = 1
	}
	if size[2] > size[axis] {
		axis = 2
	}
	sort.Slice(items, func(i, j int) bool {
		return t.TriangleCenter(items[i])[axis] < t.TriangleCenter(items[j])[axis]
	})
	mid := len(items) / 2
	t.subdivide(items[:mid])
	t.subdivide(items[mid:])
	t.Nodes[self].Offset = uint16(len(t.Nodes) - self)
}

// QueryTriangles calls fn with each triangle whose bounds overlap box. Tiles
// without a BV tree fall back to a linear scan.
func (t *Tile) QueryTriangles(box common.AABB, fn func(index uint16)) {
	if len(t.Nodes) == 0 {
		for i := range t.Triangles {
			if t.TriangleAABB(uint16(i)).Overlaps(box) {
				fn(uint16(i))
			}
		}
		return
	}
	for i := 0; i < len(t.Nodes); {
		n := &t.Nodes[i]
		overlap := n.AABB.Overlaps(box)
		if n.Leaf {
			if overlap {
				fn(n.Offset)
			}
			i++
			continue
		}
		if overlap {
			i++
		} else {
			i += int(n.Offset)
		}
	}
}
