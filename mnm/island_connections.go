package mnm

// IslandLink is a directed edge of the island graph created by an off-mesh link.
type IslandLink struct {
	ToTriangle TriangleID
	LinkID     OffMeshLinkID
	ToIsland   GlobalIslandID
	ObjectID   uint32
}

// LinkFilter decides whether a requester may use a link owned by objectID.
// A nil filter accepts every link.
type LinkFilter func(objectID uint32, linkID OffMeshLinkID) bool

// IslandConnections is the directed graph of islands joined by off-mesh links.
// Islands of the same mesh that share triangle edges are a single island, so
// only transition links appear as edges.
type IslandConnections struct {
	links map[GlobalIslandID][]IslandLink
}

func NewIslandConnections() *IslandConnections {
	return &IslandConnections{links: map[GlobalIslandID][]IslandLink{}}
}

func (c *IslandConnections) Reset() {
	c.links = map[GlobalIslandID][]IslandLink{}
}

func (c *IslandConnections) SetOneWayConnectionBetweenIsland(from GlobalIslandID, link IslandLink) {
	for _, l := range c.links[from] {
		if l == link {
			return
		}
	}
	c.links[from] = append(c.links[from], link)
}

func (c *IslandConnections) RemoveOneWayConnectionBetweenIsland(from GlobalIslandID, link IslandLink) bool {
	list := c.links[from]
	for i, l := range list {
		if l == link {
			list = append(list[:i], list[i+1:]...)
			if len(list) == 0 {
				delete(c.links, from)
			} else {
				c.links[from] = list
			}
			return true
		}
	}
	return false
}

func (c *IslandConnections) RemoveAllIslandConnectionsForObject(meshID uint32, objectID uint32) int {
	removed := 0
	for from, list := range c.links {
		if from.MeshID() != meshID {
			continue
		}
		kept := list[:0]
		for _, l := range list {
			if l.ObjectID == objectID {
				removed++
				continue
			}
			kept = append(kept, l)
		}
		if len(kept) == 0 {
			delete(c.links, from)
		} else {
			c.links[from] = kept
		}
	}
	return removed
}

func (c *IslandConnections) GetLinks(from GlobalIslandID) []IslandLink {
	return c.links[from]
}

func (c *IslandConnections) LinkCount() int {
	n := 0
	for _, list := range c.links {
		n += len(list)
	}
	return n
}

// AreIslandsConnected runs a breadth first search from one island to another
// over the links accepted by filter.
func (c *IslandConnections) AreIslandsConnected(filter LinkFilter, from, to GlobalIslandID) bool {
	if !from.IsValid() || !to.IsValid() {
		return false
	}
	if from == to {
		return true
	}
	visited := map[GlobalIslandID]struct{}{from: {}}
	queue := []GlobalIslandID{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, l := range c.links[cur] {
			if filter != nil && !filter(l.ObjectID, l.LinkID) {
				continue
			}
			if l.ToIsland == to {
				return true
			}
			if _, ok := visited[l.ToIsland]; ok {
				continue
			}
			visited[l.ToIsland] = struct{}{}
			queue = append(queue, l.ToIsland)
		}
	}
	return false
}

// RemoveAllIslandConnectionsForMesh drops every edge leaving or entering an
// island of the mesh.
func (c *IslandConnections) RemoveAllIslandConnectionsForMesh(meshID uint32) {
	for from, list := range c.links {
		if from.MeshID() == meshID {
			delete(c.links, from)
			continue
		}
		kept := list[:0]
		for _, l := range list {
			if l.ToIsland.MeshID() != meshID {
				kept = append(kept, l)
			}
		}
		if len(kept) == 0 {
			delete(c.links, from)
		} else {
			c.links[from] = kept
		}
	}
}
