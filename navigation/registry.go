package navigation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gorustyt/navsystem/common"
	"github.com/gorustyt/navsystem/mnm"
	"go.uber.org/zap"
)

// UpdateQueue receives the regions invalidated by registry edits.
type UpdateQueue interface {
	QueueRegionUpdate(meshID MeshID, aabb common.AABB) int
	QueueDifferenceUpdate(meshID MeshID, oldVolume, newVolume *mnm.BoundingVolume) int
}

type NavigationMesh struct {
	AgentTypeID AgentTypeID
	Name        string
	Grid        *mnm.MeshGrid
	Boundary    VolumeID
	Exclusions  []VolumeID
	Version     uint32
}

func (m *NavigationMesh) hasExclusion(id VolumeID) bool {
	for _, e := range m.Exclusions {
		if e == id {
			return true
		}
	}
	return false
}

func (m *NavigationMesh) removeExclusion(id VolumeID) bool {
	for i, e := range m.Exclusions {
		if e == id {
			m.Exclusions = append(m.Exclusions[:i], m.Exclusions[i+1:]...)
			return true
		}
	}
	return false
}

// CreateMeshParams: TileSize is in voxels of the agent type.
type CreateMeshParams struct {
	Origin    common.Vec3
	TileSize  [3]uint16
	TileCount uint32
}

// Registry owns agent types, meshes, volumes and named areas. It is only
// mutated from the simulation thread.
type Registry struct {
	logger     *zap.Logger
	agentTypes []*AgentType
	meshes     IDMap[NavigationMesh]
	volumes    IDMap[mnm.BoundingVolume]
	areas      map[string]VolumeID
	worldAABB  common.AABB
	updates    UpdateQueue
}

func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		logger:    logger,
		areas:     map[string]VolumeID{},
		worldAABB: common.EmptyAABB(),
	}
}

// SetUpdateQueue wires the queue that volume edits push invalidated regions to.
func (r *Registry) SetUpdateQueue(q UpdateQueue) {
	r.updates = q
}

func (r *Registry) queueRegion(meshID MeshID, aabb common.AABB) {
	if r.updates != nil {
		r.updates.QueueRegionUpdate(meshID, aabb)
	}
}

func (r *Registry) queueDifference(meshID MeshID, oldVolume, newVolume *mnm.BoundingVolume) {
	if r.updates != nil {
		r.updates.QueueDifferenceUpdate(meshID, oldVolume, newVolume)
	}
}

// Agent types

func (r *Registry) CreateAgentType(name string, params AgentTypeParams) (AgentTypeID, error) {
	if name == "" {
		return InvalidAgentTypeID, fmt.Errorf("%w: missing name", ErrInvalidAgentType)
	}
	if r.GetAgentTypeID(name) != InvalidAgentTypeID {
		return InvalidAgentTypeID, fmt.Errorf("%w: %q", ErrDuplicateAgentType, name)
	}
	for i := 0; i < 3; i++ {
		if params.VoxelSize[i] <= 0 {
			return InvalidAgentTypeID, fmt.Errorf("%w: %q voxel size must be positive", ErrInvalidAgentType, name)
		}
	}
	if params.Height == 0 || params.ClimbableHeight >= params.Height {
		return InvalidAgentTypeID, fmt.Errorf("%w: %q climbable height %d must be lower than height %d",
			ErrInvalidAgentType, name, params.ClimbableHeight, params.Height)
	}
	r.agentTypes = append(r.agentTypes, &AgentType{name: name, params: params})
	id := AgentTypeID(len(r.agentTypes))
	r.logger.Debug("agent type created", zap.String("name", name), zap.Uint32("id", uint32(id)))
	return id, nil
}

func (r *Registry) agentType(id AgentTypeID) *AgentType {
	if id == InvalidAgentTypeID || int(id) > len(r.agentTypes) {
		return nil
	}
	return r.agentTypes[id-1]
}

func (r *Registry) ValidateAgentType(id AgentTypeID) bool {
	return r.agentType(id) != nil
}

// GetAgentTypeID looks an agent type up by name, ignoring case.
func (r *Registry) GetAgentTypeID(name string) AgentTypeID {
	for i, a := range r.agentTypes {
		if strings.EqualFold(a.name, name) {
			return AgentTypeID(i + 1)
		}
	}
	return InvalidAgentTypeID
}

func (r *Registry) GetAgentTypeIDByIndex(index int) AgentTypeID {
	if index < 0 || index >= len(r.agentTypes) {
		return InvalidAgentTypeID
	}
	return AgentTypeID(index + 1)
}

func (r *Registry) GetAgentTypeName(id AgentTypeID) string {
	if a := r.agentType(id); a != nil {
		return a.name
	}
	return ""
}

func (r *Registry) AgentTypeCount() int {
	return len(r.agentTypes)
}

func (r *Registry) GetAgentTypeProperties(id AgentTypeID) (AgentTypeParams, bool) {
	a := r.agentType(id)
	if a == nil {
		return AgentTypeParams{}, false
	}
	return a.params, true
}

func (r *Registry) AgentTypeSupportSmartObjectUserClass(id AgentTypeID, class string) bool {
	a := r.agentType(id)
	return a != nil && a.supportsSmartObjectUserClass(class)
}

func (r *Registry) GetAgentRadiusInVoxelUnits(id AgentTypeID) uint16 {
	if a := r.agentType(id); a != nil {
		return a.params.Radius
	}
	return 0
}

func (r *Registry) GetAgentHeightInVoxelUnits(id AgentTypeID) uint16 {
	if a := r.agentType(id); a != nil {
		return a.params.Height
	}
	return 0
}

// SetMeshEntityCallback sets the predicate deciding which entities contribute
// geometry to the meshes of the agent type.
func (r *Registry) SetMeshEntityCallback(id AgentTypeID, fn func(entityID uint32) bool) {
	if a := r.agentType(id); a != nil {
		a.meshEntityCallback = fn
	}
}

func (r *Registry) AddMeshChangeCallback(id AgentTypeID, fn MeshChangeCallback) (CallbackHandle, error) {
	a := r.agentType(id)
	if a == nil {
		return 0, fmt.Errorf("%w: %d", ErrInvalidAgentType, id)
	}
	a.nextHandle++
	a.listeners = append(a.listeners, meshChangeListener{handle: a.nextHandle, fn: fn})
	return a.nextHandle, nil
}

func (r *Registry) RemoveMeshChangeCallback(id AgentTypeID, handle CallbackHandle) bool {
	a := r.agentType(id)
	if a == nil {
		return false
	}
	for i, l := range a.listeners {
		if l.handle == handle {
			a.listeners = append(a.listeners[:i], a.listeners[i+1:]...)
			return true
		}
	}
	return false
}

// Meshes

func (r *Registry) CreateMesh(name string, agentTypeID AgentTypeID, params CreateMeshParams, requestedID MeshID) (MeshID, error) {
	a := r.agentType(agentTypeID)
	if a == nil {
		return InvalidMeshID, fmt.Errorf("%w: %d", ErrInvalidAgentType, agentTypeID)
	}
	if params.TileSize[0] == 0 || params.TileSize[1] == 0 || params.TileSize[2] == 0 {
		return InvalidMeshID, fmt.Errorf("%w: tile size must be positive", ErrInvalidMesh)
	}
	nameHash := common.NameHash(name)
	for _, m := range a.meshes {
		if m.nameHash == nameHash {
			return InvalidMeshID, fmt.Errorf("%w: %q", ErrDuplicateMesh, name)
		}
	}

	mesh := NavigationMesh{
		AgentTypeID: agentTypeID,
		Name:        name,
		Grid: mnm.NewMeshGrid(mnm.Params{
			Origin:    params.Origin,
			VoxelSize: a.params.VoxelSize,
			TileSize:  params.TileSize,
			TileCount: params.TileCount,
		}),
	}
	var id MeshID
	if requestedID != InvalidMeshID {
		if err := r.meshes.InsertWithID(uint32(requestedID), mesh); err != nil {
			return InvalidMeshID, err
		}
		id = requestedID
	} else {
		id = MeshID(r.meshes.Insert(mesh))
	}
	a.meshes = append(a.meshes, meshInfo{id: id, name: name, nameHash: nameHash})
	r.logger.Debug("mesh created", zap.String("name", name), zap.Uint32("id", uint32(id)),
		zap.String("agentType", a.name))
	return id, nil
}

func (r *Registry) ValidateMesh(id MeshID) bool {
	return r.meshes.Validate(uint32(id))
}

func (r *Registry) GetMesh(id MeshID) *NavigationMesh {
	return r.meshes.Get(uint32(id))
}

func (r *Registry) MeshIDs() []MeshID {
	ids := r.meshes.IDs()
	res := make([]MeshID, len(ids))
	for i, id := range ids {
		res[i] = MeshID(id)
	}
	return res
}

// MeshIDsForAgentType returns the meshes of an agent type in creation order.
func (r *Registry) MeshIDsForAgentType(id AgentTypeID) []MeshID {
	a := r.agentType(id)
	if a == nil {
		return nil
	}
	res := make([]MeshID, len(a.meshes))
	for i, m := range a.meshes {
		res[i] = m.id
	}
	return res
}

func (r *Registry) GetMeshID(name string, agentTypeID AgentTypeID) MeshID {
	a := r.agentType(agentTypeID)
	if a == nil {
		return InvalidMeshID
	}
	h := common.NameHash(name)
	for _, m := range a.meshes {
		if m.nameHash == h {
			return m.id
		}
	}
	return InvalidMeshID
}

func (r *Registry) GetMeshName(id MeshID) string {
	if m := r.GetMesh(id); m != nil {
		return m.Name
	}
	return ""
}

func (r *Registry) SetMeshName(id MeshID, name string) {
	m := r.GetMesh(id)
	if m == nil {
		return
	}
	m.Name = name
	if a := r.agentType(m.AgentTypeID); a != nil {
		for i := range a.meshes {
			if a.meshes[i].id == id {
				a.meshes[i].name = name
				a.meshes[i].nameHash = common.NameHash(name)
			}
		}
	}
}

// eraseMesh drops the mesh from its agent type and the slot map. Jobs and
// queued tasks must have been dealt with by the caller.
func (r *Registry) eraseMesh(id MeshID) {
	m := r.GetMesh(id)
	if m == nil {
		return
	}
	if a := r.agentType(m.AgentTypeID); a != nil {
		a.removeMesh(id)
	}
	r.meshes.Erase(uint32(id))
	r.ComputeWorldAABB()
}

func (r *Registry) SetMeshBoundaryVolume(meshID MeshID, volumeID VolumeID) error {
	m := r.GetMesh(meshID)
	if m == nil {
		return fmt.Errorf("%w: %d", ErrInvalidMesh, meshID)
	}
	newVolume := r.GetVolume(volumeID)
	if newVolume == nil {
		return fmt.Errorf("%w: %d", ErrInvalidVolume, volumeID)
	}
	if oldVolume := r.GetVolume(m.Boundary); oldVolume != nil {
		old := oldVolume.Clone()
		m.Boundary = volumeID
		m.Version++
		r.queueDifference(meshID, &old, newVolume)
	} else {
		m.Boundary = volumeID
		m.Version++
		r.queueRegion(meshID, newVolume.AABB)
	}
	r.ComputeWorldAABB()
	return nil
}

// Volumes

func (r *Registry) CreateVolume(vertices []common.Vec3, height float32, requestedID VolumeID) (VolumeID, error) {
	v := mnm.NewBoundingVolume(vertices, height)
	if !v.IsValid() {
		return InvalidVolumeID, fmt.Errorf("%w: need at least 3 finite vertices", ErrInvalidVolume)
	}
	if requestedID != InvalidVolumeID {
		if err := r.volumes.InsertWithID(uint32(requestedID), v); err != nil {
			return InvalidVolumeID, err
		}
		return requestedID, nil
	}
	return VolumeID(r.volumes.Insert(v)), nil
}

func (r *Registry) ValidateVolume(id VolumeID) bool {
	return r.volumes.Validate(uint32(id))
}

func (r *Registry) GetVolume(id VolumeID) *mnm.BoundingVolume {
	return r.volumes.Get(uint32(id))
}

func (r *Registry) VolumeIDs() []VolumeID {
	ids := r.volumes.IDs()
	res := make([]VolumeID, len(ids))
	for i, id := range ids {
		res[i] = VolumeID(id)
	}
	return res
}

// GetVolumeID returns the boundary volume of a mesh.
func (r *Registry) GetVolumeID(meshID MeshID) VolumeID {
	if m := r.GetMesh(meshID); m != nil {
		return m.Boundary
	}
	return InvalidVolumeID
}

// SetVolume replaces the shape of a volume and invalidates every mesh using
// it as boundary (difference of old and new) or exclusion (old and new).
func (r *Registry) SetVolume(volumeID VolumeID, vertices []common.Vec3, height float32) error {
	v := r.GetVolume(volumeID)
	if v == nil {
		return fmt.Errorf("%w: %d", ErrInvalidVolume, volumeID)
	}
	newVolume := mnm.NewBoundingVolume(vertices, height)
	if !newVolume.IsValid() {
		return fmt.Errorf("%w: need at least 3 finite vertices", ErrInvalidVolume)
	}
	old := v.Clone()
	*v = newVolume

	for _, meshID := range r.MeshIDs() {
		m := r.GetMesh(meshID)
		if m.Boundary == volumeID {
			m.Version++
			r.queueDifference(meshID, &old, v)
		}
		if m.hasExclusion(volumeID) {
			r.queueRegion(meshID, old.AABB)
			r.queueRegion(meshID, v.AABB)
			m.Version++
		}
	}
	r.ComputeWorldAABB()
	return nil
}

func (r *Registry) DestroyVolume(volumeID VolumeID) {
	v := r.GetVolume(volumeID)
	if v == nil {
		return
	}
	for _, meshID := range r.MeshIDs() {
		m := r.GetMesh(meshID)
		if m.Boundary == volumeID {
			m.Boundary = InvalidVolumeID
			m.Version++
		}
		if m.removeExclusion(volumeID) {
			r.queueRegion(meshID, v.AABB)
			m.Version++
		}
	}
	for _, a := range r.agentTypes {
		for i, e := range a.exclusions {
			if e == volumeID {
				a.exclusions = append(a.exclusions[:i], a.exclusions[i+1:]...)
				break
			}
		}
	}
	for name, id := range r.areas {
		if id == volumeID {
			delete(r.areas, name)
		}
	}
	r.volumes.Erase(uint32(volumeID))
	r.ComputeWorldAABB()
}

// SetExclusionVolume makes the volume an exclusion of exactly the listed
// agent types, invalidating the meshes that gain or lose it.
func (r *Registry) SetExclusionVolume(agentTypeIDs []AgentTypeID, volumeID VolumeID) error {
	v := r.GetVolume(volumeID)
	if v == nil {
		return fmt.Errorf("%w: %d", ErrInvalidVolume, volumeID)
	}
	wanted := map[AgentTypeID]bool{}
	for _, id := range agentTypeIDs {
		if r.agentType(id) == nil {
			return fmt.Errorf("%w: %d", ErrInvalidAgentType, id)
		}
		wanted[id] = true
	}

	for i, a := range r.agentTypes {
		id := AgentTypeID(i + 1)
		has := a.hasExclusion(volumeID)
		switch {
		case wanted[id] && !has:
			a.exclusions = append(a.exclusions, volumeID)
			for _, mi := range a.meshes {
				m := r.GetMesh(mi.id)
				m.Exclusions = append(m.Exclusions, volumeID)
				m.Version++
				r.queueRegion(mi.id, v.AABB)
			}
		case !wanted[id] && has:
			for j, e := range a.exclusions {
				if e == volumeID {
					a.exclusions = append(a.exclusions[:j], a.exclusions[j+1:]...)
					break
				}
			}
			for _, mi := range a.meshes {
				m := r.GetMesh(mi.id)
				if m.removeExclusion(volumeID) {
					m.Version++
					r.queueRegion(mi.id, v.AABB)
				}
			}
		}
	}
	return nil
}

// SetMeshExclusions restores the exclusion list of a mesh as persisted,
// without invalidating any tile. The owning agent type learns the volumes too.
func (r *Registry) SetMeshExclusions(meshID MeshID, ids []VolumeID) error {
	m := r.GetMesh(meshID)
	if m == nil {
		return fmt.Errorf("%w: %d", ErrInvalidMesh, meshID)
	}
	m.Exclusions = append(m.Exclusions[:0], ids...)
	if a := r.agentType(m.AgentTypeID); a != nil {
		for _, id := range ids {
			if !a.hasExclusion(id) {
				a.exclusions = append(a.exclusions, id)
			}
		}
	}
	return nil
}

// Areas

// RegisterArea names a volume so persisted data can refer to it.
func (r *Registry) RegisterArea(name string, volumeID VolumeID) error {
	if !r.ValidateVolume(volumeID) {
		return fmt.Errorf("%w: %d", ErrInvalidVolume, volumeID)
	}
	r.areas[name] = volumeID
	return nil
}

func (r *Registry) UnregisterArea(name string) {
	delete(r.areas, name)
}

func (r *Registry) GetAreaID(name string) VolumeID {
	return r.areas[name]
}

// SetAreaID rebinds a name to another volume id without validation, used
// while loading before volumes exist.
func (r *Registry) SetAreaID(name string, volumeID VolumeID) {
	r.areas[name] = volumeID
}

func (r *Registry) AreaNames() []string {
	res := make([]string, 0, len(r.areas))
	for name := range r.areas {
		res = append(res, name)
	}
	sort.Strings(res)
	return res
}

// Queries

// GetEnclosingMeshID returns the first mesh of the agent type whose boundary
// contains location.
func (r *Registry) GetEnclosingMeshID(agentTypeID AgentTypeID, location common.Vec3) MeshID {
	a := r.agentType(agentTypeID)
	if a == nil {
		return InvalidMeshID
	}
	for _, mi := range a.meshes {
		if r.IsLocationInMesh(mi.id, location) {
			return mi.id
		}
	}
	return InvalidMeshID
}

func (r *Registry) IsLocationInMesh(meshID MeshID, location common.Vec3) bool {
	m := r.GetMesh(meshID)
	if m == nil {
		return false
	}
	v := r.GetVolume(m.Boundary)
	return v != nil && v.Contains(location)
}

// GetClosestMeshLocation snaps location onto the closest triangle of the mesh.
func (r *Registry) GetClosestMeshLocation(meshID MeshID, location common.Vec3, vrange, hrange float32) (common.Vec3, mnm.TriangleID, error) {
	m := r.GetMesh(meshID)
	if m == nil {
		return location, mnm.InvalidTriangleID, fmt.Errorf("%w: %d", ErrInvalidMesh, meshID)
	}
	if tri := m.Grid.GetTriangleAt(location, vrange, vrange); tri != mnm.InvalidTriangleID {
		a, b, c, _ := m.Grid.GetVertices(tri)
		p := location
		p[2] = common.HeightOnTriangle(location, a, b, c)
		return p, tri, nil
	}
	tri, p, _ := m.Grid.GetClosestTriangle(location, vrange, hrange)
	if tri == mnm.InvalidTriangleID {
		return location, tri, ErrNoTriangle
	}
	return p, tri, nil
}

func (r *Registry) WorldAABB() common.AABB {
	return r.worldAABB
}

// ComputeWorldAABB recomputes the union of every mesh boundary.
func (r *Registry) ComputeWorldAABB() common.AABB {
	r.worldAABB = common.EmptyAABB()
	for _, id := range r.MeshIDs() {
		if v := r.GetVolume(r.GetMesh(id).Boundary); v != nil {
			r.worldAABB.AddAABB(v.AABB)
		}
	}
	return r.worldAABB
}

// GetTileBoundsForMesh returns the world bounds of a tile.
func (r *Registry) GetTileBoundsForMesh(meshID MeshID, x, y, z uint16) (common.AABB, bool) {
	m := r.GetMesh(meshID)
	if m == nil {
		return common.AABB{}, false
	}
	p := m.Grid.GetParams()
	return p.TileAABB(x, y, z), true
}

// Clear drops every mesh, volume and area. Agent types are kept.
func (r *Registry) Clear() {
	for _, a := range r.agentTypes {
		a.meshes = nil
		a.exclusions = nil
	}
	r.meshes.Clear()
	r.volumes.Clear()
	r.areas = map[string]VolumeID{}
	r.worldAABB = common.EmptyAABB()
}

// ResetAgentTypes drops everything including agent types, as done before a
// configuration reload.
func (r *Registry) ResetAgentTypes() {
	r.Clear()
	r.agentTypes = nil
}
