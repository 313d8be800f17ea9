package navigation

import (
	"github.com/gorustyt/navsystem/common"
	"github.com/gorustyt/navsystem/mnm"
	"go.uber.org/zap"
)

// IslandGraph answers reachability between islands of every mesh. Static
// islands are recomputed in bulk when tile generation goes idle; off-mesh
// link edits patch the graph in between.
type IslandGraph struct {
	registry *Registry
	offMesh  *OffMeshNavigationManager
	conns    *mnm.IslandConnections
	metrics  *Metrics
	logger   *zap.Logger
}

func NewIslandGraph(registry *Registry, offMesh *OffMeshNavigationManager, metrics *Metrics, logger *zap.Logger) *IslandGraph {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IslandGraph{
		registry: registry,
		offMesh:  offMesh,
		conns:    mnm.NewIslandConnections(),
		metrics:  metrics,
		logger:   logger,
	}
}

func (g *IslandGraph) Connections() *mnm.IslandConnections {
	return g.conns
}

// RebuildAll relabels the islands of every mesh and re-adds the link edges.
func (g *IslandGraph) RebuildAll() {
	g.conns.Reset()
	for _, meshID := range g.registry.MeshIDs() {
		m := g.registry.GetMesh(meshID)
		var table *mnm.OffMeshNavigation
		if g.offMesh != nil {
			table = g.offMesh.FindTable(meshID)
		}
		m.Grid.ComputeStaticIslandsAndConnections(uint32(meshID), table, g.conns)
	}
	if g.metrics != nil {
		g.metrics.islandRebuilds.Inc()
	}
	g.logger.Debug("island graph rebuilt", zap.Int("links", g.conns.LinkCount()))
}

func (g *IslandGraph) GetGlobalIslandID(meshID MeshID, triangleID mnm.TriangleID) mnm.GlobalIslandID {
	m := g.registry.GetMesh(meshID)
	if m == nil {
		return mnm.InvalidGlobalIslandID
	}
	island := m.Grid.GetIslandID(triangleID)
	if island == mnm.InvalidIslandID {
		return mnm.InvalidGlobalIslandID
	}
	return mnm.NewGlobalIslandID(uint32(meshID), island)
}

// GetGlobalIslandIDAtPosition resolves the island under a location.
func (g *IslandGraph) GetGlobalIslandIDAtPosition(agentTypeID AgentTypeID, location common.Vec3, vrange, hrange float32) mnm.GlobalIslandID {
	meshID := g.registry.GetEnclosingMeshID(agentTypeID, location)
	if meshID == InvalidMeshID {
		return mnm.InvalidGlobalIslandID
	}
	_, tri, err := g.registry.GetClosestMeshLocation(meshID, location, vrange, hrange)
	if err != nil {
		return mnm.InvalidGlobalIslandID
	}
	return g.GetGlobalIslandID(meshID, tri)
}

func (g *IslandGraph) linkEdge(meshID MeshID, fromTri, toTri mnm.TriangleID) (mnm.GlobalIslandID, mnm.IslandLink, bool) {
	if g.offMesh == nil {
		return 0, mnm.IslandLink{}, false
	}
	table := g.offMesh.FindTable(meshID)
	if table == nil {
		return 0, mnm.IslandLink{}, false
	}
	l, ok := table.FindLink(fromTri, toTri)
	if !ok {
		return 0, mnm.IslandLink{}, false
	}
	from := g.GetGlobalIslandID(meshID, fromTri)
	to := g.GetGlobalIslandID(meshID, toTri)
	if !from.IsValid() || !to.IsValid() {
		return 0, mnm.IslandLink{}, false
	}
	return from, mnm.IslandLink{ToTriangle: toTri, LinkID: l.ID, ToIsland: to, ObjectID: l.EntityID}, true
}

// AddLink adds the edge for the link registered between two triangles.
func (g *IslandGraph) AddLink(meshID MeshID, fromTri, toTri mnm.TriangleID) bool {
	from, link, ok := g.linkEdge(meshID, fromTri, toTri)
	if !ok {
		return false
	}
	g.conns.SetOneWayConnectionBetweenIsland(from, link)
	return true
}

// RemoveLink removes the edge of a link. It must be called before the link
// is dropped from the link table.
func (g *IslandGraph) RemoveLink(meshID MeshID, fromTri, toTri mnm.TriangleID) bool {
	from, link, ok := g.linkEdge(meshID, fromTri, toTri)
	if !ok {
		return false
	}
	return g.conns.RemoveOneWayConnectionBetweenIsland(from, link)
}

func (g *IslandGraph) RemoveAllLinksForEntity(meshID MeshID, entityID uint32) int {
	return g.conns.RemoveAllIslandConnectionsForObject(uint32(meshID), entityID)
}

func (g *IslandGraph) RemoveMesh(meshID MeshID) {
	g.conns.RemoveAllIslandConnectionsForMesh(uint32(meshID))
}

func (g *IslandGraph) AreReachable(filter mnm.LinkFilter, from, to mnm.GlobalIslandID) bool {
	return g.conns.AreIslandsConnected(filter, from, to)
}

func (g *IslandGraph) Reset() {
	g.conns.Reset()
}
