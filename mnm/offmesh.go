package mnm

import "sort"

// OffMeshLink is a directed transition between two triangles that are not
// connected through a shared edge, owned by an entity (ladder, door, jump).
type OffMeshLink struct {
	ID            OffMeshLinkID
	EntityID      uint32
	Start         Vec3
	End           Vec3
	StartTriangle TriangleID
	EndTriangle   TriangleID
}

// OffMeshNavigation is the link table of one mesh.
type OffMeshNavigation struct {
	links      map[OffMeshLinkID]*OffMeshLink
	byTriangle map[TriangleID][]OffMeshLinkID
	nextID     OffMeshLinkID
}

func NewOffMeshNavigation() *OffMeshNavigation {
	return &OffMeshNavigation{
		links:      map[OffMeshLinkID]*OffMeshLink{},
		byTriangle: map[TriangleID][]OffMeshLinkID{},
	}
}

func (o *OffMeshNavigation) AddLink(entityID uint32, start, end Vec3, startTriangle, endTriangle TriangleID) OffMeshLinkID {
	o.nextID++
	if o.nextID == InvalidOffMeshLinkID {
		o.nextID++
	}
	l := &OffMeshLink{
		ID:            o.nextID,
		EntityID:      entityID,
		Start:         start,
		End:           end,
		StartTriangle: startTriangle,
		EndTriangle:   endTriangle,
	}
	o.links[l.ID] = l
	o.index(l)
	return l.ID
}

func (o *OffMeshNavigation) index(l *OffMeshLink) {
	if l.StartTriangle != InvalidTriangleID {
		o.byTriangle[l.StartTriangle] = append(o.byTriangle[l.StartTriangle], l.ID)
	}
}

func (o *OffMeshNavigation) unindex(l *OffMeshLink) {
	list := o.byTriangle[l.StartTriangle]
	for i, id := range list {
		if id == l.ID {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(o.byTriangle, l.StartTriangle)
	} else {
		o.byTriangle[l.StartTriangle] = list
	}
}

func (o *OffMeshNavigation) RemoveLink(id OffMeshLinkID) (OffMeshLink, bool) {
	l, ok := o.links[id]
	if !ok {
		return OffMeshLink{}, false
	}
	o.unindex(l)
	delete(o.links, id)
	return *l, true
}

func (o *OffMeshNavigation) GetLink(id OffMeshLinkID) (OffMeshLink, bool) {
	l, ok := o.links[id]
	if !ok {
		return OffMeshLink{}, false
	}
	return *l, true
}

// Rebind updates the triangles a link is attached to after tile changes.
func (o *OffMeshNavigation) Rebind(id OffMeshLinkID, startTriangle, endTriangle TriangleID) {
	l, ok := o.links[id]
	if !ok {
		return
	}
	o.unindex(l)
	l.StartTriangle = startTriangle
	l.EndTriangle = endTriangle
	o.index(l)
}

func (o *OffMeshNavigation) GetLinksForTriangle(triangleID TriangleID) []OffMeshLinkID {
	return o.byTriangle[triangleID]
}

// FindLink returns the first link going from one triangle to another.
func (o *OffMeshNavigation) FindLink(from, to TriangleID) (OffMeshLink, bool) {
	for _, id := range o.byTriangle[from] {
		if l := o.links[id]; l.EndTriangle == to {
			return *l, true
		}
	}
	return OffMeshLink{}, false
}

func (o *OffMeshNavigation) LinksForEntity(entityID uint32) []OffMeshLinkID {
	var res []OffMeshLinkID
	for id, l := range o.links {
		if l.EntityID == entityID {
			res = append(res, id)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}

// Links returns every link sorted by id.
func (o *OffMeshNavigation) Links() []OffMeshLink {
	res := make([]OffMeshLink, 0, len(o.links))
	for _, l := range o.links {
		res = append(res, *l)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

func (o *OffMeshNavigation) Len() int {
	return len(o.links)
}
