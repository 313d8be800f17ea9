package mnm

import "math"

type edgeKey struct {
	a, b [3]int32
}

func quantize(v Vec3) (res [3]int32) {
	for i := 0; i < 3; i++ {
		res[i] = int32(math.Round(float64(v[i]) * 256))
	}
	return res
}

func lessQ(a, b [3]int32) bool {
	if a[0] != b[0] {
		return a[0] < b[0]
	}
	if a[1] != b[1] {
		return a[1] < b[1]
	}
	return a[2] < b[2]
}

func makeEdgeKey(a, b Vec3) edgeKey {
	qa, qb := quantize(a), quantize(b)
	if lessQ(qb, qa) {
		qa, qb = qb, qa
	}
	return edgeKey{a: qa, b: qb}
}

type edgeRef struct {
	side     uint8
	triangle uint16
	edge     uint8
}

// ConnectToNetwork links the triangles of the tile with each other and with
// the tiles around it, then refreshes the neighbours so they link back.
func (g *MeshGrid) ConnectToNetwork(tileID TileID) {
	c := g.container(tileID)
	if c == nil || !c.used {
		return
	}
	g.rebuildLinks(tileID)
	for _, n := range g.NeighbourTileIDs(c.x, c.y, c.z) {
		g.rebuildLinks(n)
	}
}

func (g *MeshGrid) rebuildLinks(tileID TileID) {
	c := g.container(tileID)
	if c == nil || !c.used {
		return
	}
	t := &c.tile

	edges := make(map[edgeKey][]edgeRef, len(t.Triangles)*3)
	addTile := func(side uint8, other *Tile) {
		for i := range other.Triangles {
			for e := uint8(0); e < 3; e++ {
				a, b := other.EdgeVertices(uint16(i), e)
				k := makeEdgeKey(a, b)
				edges[k] = append(edges[k], edgeRef{side: side, triangle: uint16(i), edge: e})
			}
		}
	}
	addTile(SideInternal, t)
	for side, o := range NeighbourOffsets {
		if nid, ok := g.neighbourTileID(c.x, c.y, c.z, o); ok {
			addTile(uint8(side), g.GetTile(nid))
		}
	}

	t.Links = t.Links[:0]
	for i := range t.Triangles {
		tri := &t.Triangles[i]
		tri.FirstLink = uint16(len(t.Links))
		count := 0
		for e := uint8(0); e < 3; e++ {
			a, b := t.EdgeVertices(uint16(i), e)
			for _, r := range edges[makeEdgeKey(a, b)] {
				if r.side == SideInternal && r.triangle == uint16(i) {
					continue
				}
				if count == math.MaxUint8 {
					break
				}
				t.Links = append(t.Links, Link{Side: r.side, Edge: e, Triangle: r.triangle})
				count++
			}
		}
		tri.LinkCount = uint8(count)
	}
}
