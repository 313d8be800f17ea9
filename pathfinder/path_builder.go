package pathfinder

import (
	"errors"

	"github.com/gorustyt/navsystem/common"
	"github.com/gorustyt/navsystem/mnm"
)

var (
	errBrokenWay   = errors.New("way triangles are not adjacent")
	errMissingLink = errors.New("off-mesh link of the way was removed")
)

type portal struct {
	left, right common.Vec3
}

// portalBetween returns the shared edge of two adjacent triangles, oriented
// as seen when walking from the first into the second.
func portalBetween(grid *mnm.MeshGrid, from, to mnm.TriangleID) (portal, bool) {
	var edge uint8
	found := false
	grid.ForEachNeighbour(from, func(n mnm.TriangleID, e uint8) {
		if !found && n == to {
			edge = e
			found = true
		}
	})
	if !found {
		return portal{}, false
	}
	tile := grid.GetTile(mnm.ComputeTileID(from))
	idx := mnm.ComputeTriangleIndex(from)
	a, b := tile.EdgeVertices(idx, edge)
	// the inside of the triangle is left of a->b when walking out through b
	if common.TriArea2D(a, b, tile.TriangleCenter(idx)) < 0 {
		a, b = b, a
	}
	return portal{left: b, right: a}, true
}

type pathBuilder struct {
	grid       *mnm.MeshGrid
	offMesh    *mnm.OffMeshNavigation
	stringPull bool
	points     []PathPoint
}

func (b *pathBuilder) add(p common.Vec3, link mnm.OffMeshLinkID) {
	if n := len(b.points); n > 0 && link == mnm.InvalidOffMeshLinkID &&
		b.points[n-1].OffMeshLink == mnm.InvalidOffMeshLinkID && common.Vequal(b.points[n-1].Position, p) {
		return
	}
	b.points = append(b.points, PathPoint{Position: p, OffMeshLink: link})
}

// build turns a triangle way into points. The way is cut into segments at
// every off-mesh link; each segment goes through the mid points of its
// portals or, with string pulling, through the funnel corners.
func (b *pathBuilder) build(way []mnm.WayTriangleData, start, end common.Vec3) ([]PathPoint, error) {
	b.points = b.points[:0]
	segStart := start
	var portals []portal
	for i := 1; i < len(way); i++ {
		step := way[i]
		if step.LinkID != mnm.InvalidOffMeshLinkID {
			if b.offMesh == nil {
				return nil, errMissingLink
			}
			l, ok := b.offMesh.GetLink(step.LinkID)
			if !ok {
				return nil, errMissingLink
			}
			b.segment(segStart, l.Start, portals)
			b.add(l.Start, l.ID)
			segStart = l.End
			portals = portals[:0]
			continue
		}
		p, ok := portalBetween(b.grid, way[i-1].TriangleID, step.TriangleID)
		if !ok {
			return nil, errBrokenWay
		}
		portals = append(portals, p)
	}
	b.segment(segStart, end, portals)
	return append([]PathPoint(nil), b.points...), nil
}

func (b *pathBuilder) segment(from, to common.Vec3, portals []portal) {
	b.add(from, mnm.InvalidOffMeshLinkID)
	if b.stringPull {
		for _, p := range funnel(from, to, portals) {
			b.add(p, mnm.InvalidOffMeshLinkID)
		}
	} else {
		for _, p := range portals {
			b.add(p.left.Add(p.right).Mul(0.5), mnm.InvalidOffMeshLinkID)
		}
	}
	b.add(to, mnm.InvalidOffMeshLinkID)
}

// funnel returns the corners of the shortest xy path from start to end
// through the portals, excluding start and end.
func funnel(start, end common.Vec3, portals []portal) []common.Vec3 {
	all := make([]portal, 0, len(portals)+1)
	all = append(all, portals...)
	all = append(all, portal{left: end, right: end})

	var corners []common.Vec3
	apex, left, right := start, start, start
	apexIndex, leftIndex, rightIndex := -1, -1, -1
	for i := 0; i < len(all); i++ {
		l, r := all[i].left, all[i].right

		if common.TriArea2D(apex, right, r) >= 0 {
			if common.Vequal(apex, right) || common.TriArea2D(apex, left, r) < 0 {
				right = r
				rightIndex = i
			} else {
				apex = left
				apexIndex = leftIndex
				corners = append(corners, apex)
				left, right = apex, apex
				leftIndex, rightIndex = apexIndex, apexIndex
				i = apexIndex
				continue
			}
		}

		if common.TriArea2D(apex, left, l) <= 0 {
			if common.Vequal(apex, left) || common.TriArea2D(apex, right, l) > 0 {
				left = l
				leftIndex = i
			} else {
				apex = right
				apexIndex = rightIndex
				corners = append(corners, apex)
				left, right = apex, apex
				leftIndex, rightIndex = apexIndex, apexIndex
				i = apexIndex
				continue
			}
		}
	}
	// the end portal collapses the funnel onto the end itself
	if n := len(corners); n > 0 && common.Vequal(corners[n-1], end) {
		corners = corners[:n-1]
	}
	return corners
}
