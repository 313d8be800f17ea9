package mnm

// ComputeStaticIslandsAndConnections labels every triangle with the id of the
// edge-connected island it belongs to, then adds one island graph edge per
// off-mesh link of the mesh. conns is expected to be reset by the caller.
func (g *MeshGrid) ComputeStaticIslandsAndConnections(meshID uint32, offMesh *OffMeshNavigation, conns *IslandConnections) {
	g.ForEachTile(func(_ TileID, _, _, _ uint16, t *Tile) {
		for i := range t.Triangles {
			t.Triangles[i].IslandID = InvalidIslandID
		}
	})

	var islands []Island
	var stack []TriangleID
	g.ForEachTile(func(tileID TileID, _, _, _ uint16, t *Tile) {
		for i := range t.Triangles {
			if t.Triangles[i].IslandID != InvalidIslandID {
				continue
			}
			island := Island{ID: StaticIslandID(len(islands) + 1)}
			start := ComputeTriangleID(tileID, uint16(i))
			g.setIsland(start, island.ID)
			stack = append(stack[:0], start)
			for len(stack) > 0 {
				cur := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				island.TriangleCount++
				island.Area += g.triangleArea(cur)
				g.ForEachNeighbour(cur, func(n TriangleID, _ uint8) {
					if g.GetIslandID(n) == InvalidIslandID {
						g.setIsland(n, island.ID)
						stack = append(stack, n)
					}
				})
			}
			islands = append(islands, island)
		}
	})
	g.islands = islands

	if offMesh == nil || conns == nil {
		return
	}
	for _, l := range offMesh.Links() {
		fromIsland := g.GetIslandID(l.StartTriangle)
		toIsland := g.GetIslandID(l.EndTriangle)
		if fromIsland == InvalidIslandID || toIsland == InvalidIslandID {
			continue
		}
		conns.SetOneWayConnectionBetweenIsland(NewGlobalIslandID(meshID, fromIsland), IslandLink{
			ToTriangle: l.EndTriangle,
			LinkID:     l.ID,
			ToIsland:   NewGlobalIslandID(meshID, toIsland),
			ObjectID:   l.EntityID,
		})
	}
}

func (g *MeshGrid) setIsland(triangleID TriangleID, id StaticIslandID) {
	t := g.GetTile(ComputeTileID(triangleID))
	if t == nil {
		return
	}
	t.Triangles[ComputeTriangleIndex(triangleID)].IslandID = id
}

func (g *MeshGrid) triangleArea(triangleID TriangleID) float32 {
	a, b, c, ok := g.GetVertices(triangleID)
	if !ok {
		return 0
	}
	return b.Sub(a).Cross(c.Sub(a)).Len() * 0.5
}
