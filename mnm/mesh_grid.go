package mnm

import (
	"math"

	"github.com/gorustyt/navsystem/common"
)

// Params describe the tile grid of one mesh. TileSize is in voxels; the world
// size of a tile is TileSize*VoxelSize.
type Params struct {
	Origin    Vec3
	VoxelSize Vec3
	TileSize  [3]uint16
	TileCount uint32
}

func (p *Params) TileWorldSize() Vec3 {
	return Vec3{
		float32(p.TileSize[0]) * p.VoxelSize[0],
		float32(p.TileSize[1]) * p.VoxelSize[1],
		float32(p.TileSize[2]) * p.VoxelSize[2],
	}
}

// TileOrigin returns the world position of the minimum corner of tile x, y, z.
func (p *Params) TileOrigin(x, y, z uint16) Vec3 {
	s := p.TileWorldSize()
	return Vec3{
		p.Origin[0] + float32(x)*s[0],
		p.Origin[1] + float32(y)*s[1],
		p.Origin[2] + float32(z)*s[2],
	}
}

func (p *Params) TileAABB(x, y, z uint16) common.AABB {
	o := p.TileOrigin(x, y, z)
	return common.NewAABB(o, o.Add(p.TileWorldSize()))
}

// TileCoordinates returns the coordinates of the tile containing location.
// ok is false for locations below the grid origin.
func (p *Params) TileCoordinates(location Vec3) (x, y, z uint16, ok bool) {
	s := p.TileWorldSize()
	var c [3]uint16
	for i := 0; i < 3; i++ {
		if s[i] <= 0 {
			return 0, 0, 0, false
		}
		f := math.Floor(float64((location[i] - p.Origin[i]) / s[i]))
		if f < 0 || f > math.MaxUint16 {
			return 0, 0, 0, false
		}
		c[i] = uint16(f)
	}
	return c[0], c[1], c[2], true
}

type tileContainer struct {
	x, y, z uint16
	used    bool
	tile    Tile
}

type Island struct {
	ID            StaticIslandID
	TriangleCount int
	Area          float32
}

type MeshGrid struct {
	params     Params
	containers []tileContainer
	freeList   []TileID
	tileMap    map[uint64]TileID
	tileCount  int
	islands    []Island
}

func NewMeshGrid(params Params) *MeshGrid {
	g := &MeshGrid{}
	g.Init(params)
	return g
}

func (g *MeshGrid) Init(params Params) {
	g.params = params
	g.containers = make([]tileContainer, 0, params.TileCount)
	g.freeList = g.freeList[:0]
	g.tileMap = make(map[uint64]TileID, params.TileCount)
	g.tileCount = 0
	g.islands = nil
}

func (g *MeshGrid) GetParams() Params {
	return g.params
}

func (g *MeshGrid) GetTileCount() int {
	return g.tileCount
}

func packCoordinates(x, y, z uint16) uint64 {
	return uint64(x) | uint64(y)<<16 | uint64(z)<<32
}

func (g *MeshGrid) container(tileID TileID) *tileContainer {
	if tileID == InvalidTileID || int(tileID) > len(g.containers) {
		return nil
	}
	return &g.containers[tileID-1]
}

func (g *MeshGrid) GetTileID(x, y, z uint16) TileID {
	return g.tileMap[packCoordinates(x, y, z)]
}

// GetTile returns the tile with the given id, or nil if it is not in use.
func (g *MeshGrid) GetTile(tileID TileID) *Tile {
	c := g.container(tileID)
	if c == nil || !c.used {
		return nil
	}
	return &c.tile
}

// GetTileContainerCoordinates returns the coordinates of the container. The
// coordinates of a cleared tile remain readable until its id is reused.
func (g *MeshGrid) GetTileContainerCoordinates(tileID TileID) (x, y, z uint16, ok bool) {
	c := g.container(tileID)
	if c == nil {
		return 0, 0, 0, false
	}
	return c.x, c.y, c.z, true
}

// SetTile moves tile into the grid at x, y, z. The previous content of that
// position, if any, is handed back through tile.
func (g *MeshGrid) SetTile(x, y, z uint16, tile *Tile) TileID {
	key := packCoordinates(x, y, z)
	if id, ok := g.tileMap[key]; ok {
		c := g.container(id)
		c.tile.Swap(tile)
		return id
	}

	var id TileID
	if n := len(g.freeList); n > 0 {
		id = g.freeList[n-1]
		g.freeList = g.freeList[:n-1]
	} else {
		g.containers = append(g.containers, tileContainer{})
		id = TileID(len(g.containers))
	}
	c := g.container(id)
	c.x, c.y, c.z = x, y, z
	c.used = true
	c.tile.Reset()
	c.tile.Swap(tile)
	g.tileMap[key] = id
	g.tileCount++
	return id
}

// ClearTile removes the tile and drops the links neighbours had into it.
func (g *MeshGrid) ClearTile(tileID TileID) {
	c := g.container(tileID)
	if c == nil || !c.used {
		return
	}
	delete(g.tileMap, packCoordinates(c.x, c.y, c.z))
	c.used = false
	c.tile.Reset()
	g.freeList = append(g.freeList, tileID)
	g.tileCount--

	for _, n := range g.NeighbourTileIDs(c.x, c.y, c.z) {
		g.rebuildLinks(n)
	}
}

// NeighbourTileIDs returns the ids of the existing tiles around x, y, z.
func (g *MeshGrid) NeighbourTileIDs(x, y, z uint16) []TileID {
	var res []TileID
	for _, o := range NeighbourOffsets {
		if id, ok := g.neighbourTileID(x, y, z, o); ok {
			res = append(res, id)
		}
	}
	return res
}

func (g *MeshGrid) neighbourTileID(x, y, z uint16, o [3]int) (TileID, bool) {
	nx, ny, nz := int(x)+o[0], int(y)+o[1], int(z)+o[2]
	if nx < 0 || ny < 0 || nz < 0 || nx > math.MaxUint16 || ny > math.MaxUint16 || nz > math.MaxUint16 {
		return InvalidTileID, false
	}
	id, ok := g.tileMap[packCoordinates(uint16(nx), uint16(ny), uint16(nz))]
	return id, ok
}

func (g *MeshGrid) IsTriangleValid(triangleID TriangleID) bool {
	t := g.GetTile(ComputeTileID(triangleID))
	return t != nil && int(ComputeTriangleIndex(triangleID)) < len(t.Triangles)
}

func (g *MeshGrid) GetTriangle(triangleID TriangleID) (Triangle, bool) {
	t := g.GetTile(ComputeTileID(triangleID))
	idx := ComputeTriangleIndex(triangleID)
	if t == nil || int(idx) >= len(t.Triangles) {
		return Triangle{}, false
	}
	return t.Triangles[idx], true
}

func (g *MeshGrid) GetVertices(triangleID TriangleID) (a, b, c Vec3, ok bool) {
	t := g.GetTile(ComputeTileID(triangleID))
	idx := ComputeTriangleIndex(triangleID)
	if t == nil || int(idx) >= len(t.Triangles) {
		return a, b, c, false
	}
	a, b, c = t.TriangleVertices(idx)
	return a, b, c, true
}

// ResolveLink returns the triangle at the other end of an internal or
// external link of a triangle in tileID.
func (g *MeshGrid) ResolveLink(tileID TileID, link Link) TriangleID {
	if link.Side == SideInternal {
		return ComputeTriangleID(tileID, link.Triangle)
	}
	if int(link.Side) >= len(NeighbourOffsets) {
		return InvalidTriangleID
	}
	c := g.container(tileID)
	if c == nil || !c.used {
		return InvalidTriangleID
	}
	nid, ok := g.neighbourTileID(c.x, c.y, c.z, NeighbourOffsets[link.Side])
	if !ok {
		return InvalidTriangleID
	}
	tri := ComputeTriangleID(nid, link.Triangle)
	if !g.IsTriangleValid(tri) {
		return InvalidTriangleID
	}
	return tri
}

// ForEachNeighbour calls fn for every triangle adjacent to triangleID through
// a shared edge, with the edge index on triangleID.
func (g *MeshGrid) ForEachNeighbour(triangleID TriangleID, fn func(neighbour TriangleID, edge uint8)) {
	tileID := ComputeTileID(triangleID)
	t := g.GetTile(tileID)
	idx := ComputeTriangleIndex(triangleID)
	if t == nil || int(idx) >= len(t.Triangles) {
		return
	}
	tri := t.Triangles[idx]
	for i := uint16(0); i < uint16(tri.LinkCount); i++ {
		link := t.Links[tri.FirstLink+i]
		if n := g.ResolveLink(tileID, link); n != InvalidTriangleID {
			fn(n, link.Edge)
		}
	}
}

// tilesInAABB calls fn for every existing tile overlapping box.
func (g *MeshGrid) tilesInAABB(box common.AABB, fn func(tileID TileID, t *Tile)) {
	s := g.params.TileWorldSize()
	if s[0] <= 0 || s[1] <= 0 || s[2] <= 0 || box.IsEmpty() {
		return
	}
	var lo, hi [3]int
	for i := 0; i < 3; i++ {
		lo[i] = max(0, int(math.Floor(float64((box.Min[i]-g.params.Origin[i])/s[i]))))
		hi[i] = int(math.Floor(float64((box.Max[i] - g.params.Origin[i]) / s[i])))
		if hi[i] < lo[i] {
			return
		}
	}
	for z := lo[2]; z <= hi[2]; z++ {
		for y := lo[1]; y <= hi[1]; y++ {
			for x := lo[0]; x <= hi[0]; x++ {
				if x > math.MaxUint16 || y > math.MaxUint16 || z > math.MaxUint16 {
					continue
				}
				id := g.GetTileID(uint16(x), uint16(y), uint16(z))
				if id == InvalidTileID {
					continue
				}
				fn(id, g.GetTile(id))
			}
		}
	}
}

// GetTriangleAt returns the triangle directly below or above location whose
// surface is within [location.z-down, location.z+up], preferring the closest.
func (g *MeshGrid) GetTriangleAt(location Vec3, down, up float32) TriangleID {
	box := common.NewAABB(
		Vec3{location[0], location[1], location[2] - down},
		Vec3{location[0], location[1], location[2] + up},
	)
	best := InvalidTriangleID
	bestDist := float32(math.MaxFloat32)
	g.tilesInAABB(box, func(tileID TileID, t *Tile) {
		t.QueryTriangles(box, func(idx uint16) {
			a, b, c := t.TriangleVertices(idx)
			if !common.PointInTriangle2D(location, a, b, c) {
				return
			}
			h := common.HeightOnTriangle(location, a, b, c)
			if h < location[2]-down || h > location[2]+up {
				return
			}
			if d := common.Abs(h - location[2]); d < bestDist {
				bestDist = d
				best = ComputeTriangleID(tileID, idx)
			}
		})
	})
	return best
}

// GetClosestTriangle returns the triangle closest to location inside the
// search box of half size (hrange, hrange, vrange), the closest point on it
// and the squared distance to that point.
func (g *MeshGrid) GetClosestTriangle(location Vec3, vrange, hrange float32) (TriangleID, Vec3, float32) {
	box := common.NewAABB(location, location).Expand(Vec3{hrange, hrange, vrange})
	best := InvalidTriangleID
	var bestPoint Vec3
	bestDist := float32(math.MaxFloat32)
	g.tilesInAABB(box, func(tileID TileID, t *Tile) {
		t.QueryTriangles(box, func(idx uint16) {
			a, b, c := t.TriangleVertices(idx)
			p := common.ClosestPtPointTriangle(location, a, b, c)
			if common.Abs(p[2]-location[2]) > vrange || common.Vdist2D(p, location) > hrange {
				return
			}
			if d := p.Sub(location).LenSqr(); d < bestDist {
				bestDist = d
				bestPoint = p
				best = ComputeTriangleID(tileID, idx)
			}
		})
	})
	return best, bestPoint, bestDist
}

// ForEachTile iterates the tiles in use in container order.
func (g *MeshGrid) ForEachTile(fn func(tileID TileID, x, y, z uint16, t *Tile)) {
	for i := range g.containers {
		c := &g.containers[i]
		if c.used {
			fn(TileID(i+1), c.x, c.y, c.z, &c.tile)
		}
	}
}

func (g *MeshGrid) GetTotalIslands() int {
	return len(g.islands)
}

func (g *MeshGrid) GetIslands() []Island {
	return g.islands
}

func (g *MeshGrid) SetTotalIslands(n int) {
	g.islands = make([]Island, n)
	for i := range g.islands {
		g.islands[i].ID = StaticIslandID(i + 1)
	}
}

func (g *MeshGrid) GetIslandID(triangleID TriangleID) StaticIslandID {
	tri, ok := g.GetTriangle(triangleID)
	if !ok {
		return InvalidIslandID
	}
	return tri.IslandID
}
