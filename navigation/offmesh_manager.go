package navigation

import (
	"fmt"
	"sort"

	"github.com/gorustyt/navsystem/common"
	"github.com/gorustyt/navsystem/mnm"
	"go.uber.org/zap"
)

const defaultLinkSnapRange = 1.0

// OffMeshNavigationManager keeps one link table per mesh and re-attaches
// links to triangles when the tiles under their endpoints change.
type OffMeshNavigationManager struct {
	registry  *Registry
	tables    map[MeshID]*mnm.OffMeshNavigation
	snapRange float32
	metrics   *Metrics
	logger    *zap.Logger
}

func NewOffMeshNavigationManager(registry *Registry, metrics *Metrics, logger *zap.Logger) *OffMeshNavigationManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OffMeshNavigationManager{
		registry:  registry,
		tables:    map[MeshID]*mnm.OffMeshNavigation{},
		snapRange: defaultLinkSnapRange,
		metrics:   metrics,
		logger:    logger,
	}
}

// GetTable returns the link table of a mesh, creating it on first use. It
// returns nil for invalid meshes.
func (o *OffMeshNavigationManager) GetTable(meshID MeshID) *mnm.OffMeshNavigation {
	if t, ok := o.tables[meshID]; ok {
		return t
	}
	if !o.registry.ValidateMesh(meshID) {
		return nil
	}
	t := mnm.NewOffMeshNavigation()
	o.tables[meshID] = t
	return t
}

// FindTable returns the link table without creating it.
func (o *OffMeshNavigationManager) FindTable(meshID MeshID) *mnm.OffMeshNavigation {
	return o.tables[meshID]
}

func (o *OffMeshNavigationManager) snap(meshID MeshID, p common.Vec3) mnm.TriangleID {
	_, tri, err := o.registry.GetClosestMeshLocation(meshID, p, o.snapRange, o.snapRange)
	if err != nil {
		return mnm.InvalidTriangleID
	}
	return tri
}

// AddLink registers a directed link owned by entityID. Both endpoints must
// lie on the mesh.
func (o *OffMeshNavigationManager) AddLink(meshID MeshID, entityID uint32, start, end common.Vec3) (mnm.OffMeshLink, error) {
	t := o.GetTable(meshID)
	if t == nil {
		return mnm.OffMeshLink{}, fmt.Errorf("%w: %d", ErrInvalidMesh, meshID)
	}
	startTri := o.snap(meshID, start)
	endTri := o.snap(meshID, end)
	if startTri == mnm.InvalidTriangleID || endTri == mnm.InvalidTriangleID {
		return mnm.OffMeshLink{}, fmt.Errorf("%w: link endpoints of entity %d", ErrNoTriangle, entityID)
	}
	id := t.AddLink(entityID, start, end, startTri, endTri)
	o.updateGauge()
	l, _ := t.GetLink(id)
	return l, nil
}

func (o *OffMeshNavigationManager) RemoveLink(meshID MeshID, linkID mnm.OffMeshLinkID) (mnm.OffMeshLink, bool) {
	t := o.tables[meshID]
	if t == nil {
		return mnm.OffMeshLink{}, false
	}
	l, ok := t.RemoveLink(linkID)
	o.updateGauge()
	return l, ok
}

func (o *OffMeshNavigationManager) RemoveAllLinksForEntity(meshID MeshID, entityID uint32) []mnm.OffMeshLink {
	t := o.tables[meshID]
	if t == nil {
		return nil
	}
	var res []mnm.OffMeshLink
	for _, id := range t.LinksForEntity(entityID) {
		if l, ok := t.RemoveLink(id); ok {
			res = append(res, l)
		}
	}
	o.updateGauge()
	return res
}

// RefreshConnections re-snaps the links with an endpoint inside the tile.
// Links whose endpoint no longer lies on the mesh stay registered but are
// not traversable until the ground comes back.
func (o *OffMeshNavigationManager) RefreshConnections(meshID MeshID, tileID mnm.TileID) {
	t := o.tables[meshID]
	m := o.registry.GetMesh(meshID)
	if t == nil || m == nil || t.Len() == 0 {
		return
	}
	x, y, z, ok := m.Grid.GetTileContainerCoordinates(tileID)
	if !ok {
		return
	}
	params := m.Grid.GetParams()
	bounds := params.TileAABB(x, y, z).Expand(common.Vec3{o.snapRange, o.snapRange, o.snapRange})
	for _, l := range t.Links() {
		if !bounds.ContainsPoint(l.Start) && !bounds.ContainsPoint(l.End) {
			continue
		}
		t.Rebind(l.ID, o.snap(meshID, l.Start), o.snap(meshID, l.End))
	}
}

func (o *OffMeshNavigationManager) RemoveMesh(meshID MeshID) {
	delete(o.tables, meshID)
	o.updateGauge()
}

func (o *OffMeshNavigationManager) MeshIDs() []MeshID {
	res := make([]MeshID, 0, len(o.tables))
	for id := range o.tables {
		res = append(res, id)
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}

func (o *OffMeshNavigationManager) LinkCount() int {
	n := 0
	for _, t := range o.tables {
		n += t.Len()
	}
	return n
}

func (o *OffMeshNavigationManager) Clear() {
	o.tables = map[MeshID]*mnm.OffMeshNavigation{}
	o.updateGauge()
}

func (o *OffMeshNavigationManager) updateGauge() {
	if o.metrics != nil {
		o.metrics.offMeshLinks.Set(float64(o.LinkCount()))
	}
}
