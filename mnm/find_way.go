package mnm

import (
	"time"

	"github.com/bits-and-blooms/bitset"
)

// HScale slightly underestimates the heuristic so ties favour explored nodes.
const HScale = 0.999

type FindWayStatus int

const (
	FindWayInvalidRequest FindWayStatus = iota
	FindWayContinuing
	FindWayFound
	FindWayNoPath
)

func (s FindWayStatus) String() string {
	switch s {
	case FindWayContinuing:
		return "continuing"
	case FindWayFound:
		return "found"
	case FindWayNoPath:
		return "no_path"
	default:
		return "invalid_request"
	}
}

type WayQueryRequest struct {
	From         TriangleID
	To           TriangleID
	FromLocation Vec3
	ToLocation   Vec3
	DangerAreas  []DangerArea
	LinkFilter   LinkFilter
	OffMesh      *OffMeshNavigation
	// Quota bounds the time spent in one FindWay call. Zero means unbounded.
	Quota time.Duration
}

// WayTriangleData is one step of a found way. LinkID is the off-mesh link
// used to enter the triangle, or InvalidOffMeshLinkID for a shared edge.
type WayTriangleData struct {
	TriangleID TriangleID
	LinkID     OffMeshLinkID
}

type WayQueryResult struct {
	Way []WayTriangleData
}

func (r *WayQueryResult) Reset() {
	r.Way = r.Way[:0]
}

const (
	nodeOpen   = 0x01
	nodeClosed = 0x02
)

type aStarNode struct {
	triangle TriangleID
	pos      Vec3
	cost     float32
	total    float32
	parent   *aStarNode
	link     OffMeshLinkID
	flags    uint8
	index    int
}

func (n *aStarNode) SetIndex(index int) { n.index = index }
func (n *aStarNode) GetIndex() int      { return n.index }

// WayQueryWorkingSet is the resumable state of one search: open list, node
// pool and the set of tiles the search has expanded.
type WayQueryWorkingSet struct {
	openList     *nodeQueue[*aStarNode]
	nodes        map[TriangleID]*aStarNode
	visitedTiles *bitset.BitSet
	started      bool
}

func NewWayQueryWorkingSet() *WayQueryWorkingSet {
	return &WayQueryWorkingSet{
		openList: newNodeQueue(func(a, b *aStarNode) bool {
			return a.total < b.total
		}),
		nodes:        map[TriangleID]*aStarNode{},
		visitedTiles: bitset.New(64),
	}
}

func (ws *WayQueryWorkingSet) Reset() {
	ws.openList.Reset()
	clear(ws.nodes)
	ws.visitedTiles.ClearAll()
	ws.started = false
}

// HasVisitedTile reports whether the search expanded a triangle of the tile.
func (ws *WayQueryWorkingSet) HasVisitedTile(tileID TileID) bool {
	return ws.visitedTiles.Test(uint(tileID))
}

func (ws *WayQueryWorkingSet) getNode(triangleID TriangleID) *aStarNode {
	n, ok := ws.nodes[triangleID]
	if !ok {
		n = &aStarNode{triangle: triangleID, index: -1}
		ws.nodes[triangleID] = n
	}
	return n
}

// FindWay advances the search described by req. The first call seeds the
// open list; later calls continue from the working set until the way is
// found, the open list is exhausted or the time quota runs out.
func (g *MeshGrid) FindWay(req *WayQueryRequest, ws *WayQueryWorkingSet, res *WayQueryResult) FindWayStatus {
	if !g.IsTriangleValid(req.From) || !g.IsTriangleValid(req.To) {
		return FindWayInvalidRequest
	}

	if !ws.started {
		ws.Reset()
		ws.started = true
		res.Reset()
		if req.From == req.To {
			ws.visitedTiles.Set(uint(ComputeTileID(req.From)))
			res.Way = append(res.Way, WayTriangleData{TriangleID: req.From})
			return FindWayFound
		}
		start := ws.getNode(req.From)
		start.pos = req.FromLocation
		start.total = req.FromLocation.Sub(req.ToLocation).Len() * HScale
		start.flags = nodeOpen
		ws.openList.Offer(start)
	}

	var deadline time.Time
	if req.Quota > 0 {
		deadline = time.Now().Add(req.Quota)
	}

	for !ws.openList.Empty() {
		best := ws.openList.Poll()
		best.flags &^= nodeOpen
		best.flags |= nodeClosed
		ws.visitedTiles.Set(uint(ComputeTileID(best.triangle)))

		if best.triangle == req.To {
			g.buildWay(best, res)
			return FindWayFound
		}

		// A triangle can disappear when its tile is regenerated mid search.
		if !g.IsTriangleValid(best.triangle) {
			return FindWayInvalidRequest
		}

		tile := g.GetTile(ComputeTileID(best.triangle))
		idx := ComputeTriangleIndex(best.triangle)
		g.ForEachNeighbour(best.triangle, func(n TriangleID, edge uint8) {
			if best.parent != nil && n == best.parent.triangle {
				return
			}
			a, b := tile.EdgeVertices(idx, edge)
			mid := a.Add(b).Mul(0.5)
			g.relax(req, ws, best, n, mid, InvalidOffMeshLinkID, best.pos.Sub(mid).Len())
		})
		if req.OffMesh != nil {
			for _, id := range req.OffMesh.GetLinksForTriangle(best.triangle) {
				l, ok := req.OffMesh.GetLink(id)
				if !ok || !g.IsTriangleValid(l.EndTriangle) {
					continue
				}
				if req.LinkFilter != nil && !req.LinkFilter(l.EntityID, l.ID) {
					continue
				}
				step := best.pos.Sub(l.Start).Len() + l.End.Sub(l.Start).Len()
				g.relax(req, ws, best, l.EndTriangle, l.End, l.ID, step)
			}
		}

		if !deadline.IsZero() && time.Now().After(deadline) {
			return FindWayContinuing
		}
	}
	return FindWayNoPath
}

func (g *MeshGrid) relax(req *WayQueryRequest, ws *WayQueryWorkingSet, from *aStarNode, to TriangleID, entry Vec3, link OffMeshLinkID, step float32) {
	node := ws.getNode(to)
	cost := from.cost + step
	for _, d := range req.DangerAreas {
		cost += d.Cost(from.pos, entry)
	}
	heuristic := float32(0)
	if to == req.To {
		cost += entry.Sub(req.ToLocation).Len()
	} else {
		heuristic = entry.Sub(req.ToLocation).Len() * HScale
	}
	total := cost + heuristic
	if node.flags != 0 && total >= node.total {
		return
	}

	node.pos = entry
	node.parent = from
	node.link = link
	node.cost = cost
	node.total = total
	if node.flags&nodeOpen != 0 {
		ws.openList.Update(node)
		return
	}
	node.flags = nodeOpen
	ws.openList.Offer(node)
}

func (g *MeshGrid) buildWay(end *aStarNode, res *WayQueryResult) {
	res.Reset()
	for n := end; n != nil; n = n.parent {
		res.Way = append(res.Way, WayTriangleData{TriangleID: n.triangle, LinkID: n.link})
	}
	for i, j := 0, len(res.Way)-1; i < j; i, j = i+1, j-1 {
		res.Way[i], res.Way[j] = res.Way[j], res.Way[i]
	}
}
