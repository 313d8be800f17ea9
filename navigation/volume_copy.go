package navigation

import "github.com/gorustyt/navsystem/mnm"

const MaxVolumeDefCopyCount = 8

// volumeDefCopy is a snapshot of the volumes a mesh version was generated
// with. Generator jobs read it while the registry keeps changing.
type volumeDefCopy struct {
	meshID       MeshID
	version      uint32
	boundary     mnm.BoundingVolume
	exclusions   []mnm.BoundingVolume
	refCount     int
	releaseStamp uint64
	used         bool
}

type volumeCopyCache struct {
	copies [MaxVolumeDefCopyCount]volumeDefCopy
	stamp  uint64
	hits   int
	misses int
}

// acquire returns a slot holding the volumes of mesh at its current version.
// A slot already holding that version is shared; otherwise the unreferenced
// slot released the longest time ago is overwritten. ok is false when every
// slot is referenced.
func (c *volumeCopyCache) acquire(meshID MeshID, mesh *NavigationMesh, reg *Registry) (int, bool) {
	for i := range c.copies {
		v := &c.copies[i]
		if v.used && v.meshID == meshID && v.version == mesh.Version {
			v.refCount++
			c.hits++
			return i, true
		}
	}

	best := -1
	for i := range c.copies {
		v := &c.copies[i]
		if v.refCount != 0 {
			continue
		}
		if !v.used {
			best = i
			break
		}
		if best < 0 || v.releaseStamp < c.copies[best].releaseStamp {
			best = i
		}
	}
	if best < 0 {
		return -1, false
	}

	c.misses++
	v := &c.copies[best]
	v.used = true
	v.meshID = meshID
	v.version = mesh.Version
	v.refCount = 1
	v.boundary = mnm.BoundingVolume{}
	if b := reg.GetVolume(mesh.Boundary); b != nil {
		v.boundary = b.Clone()
	}
	v.exclusions = v.exclusions[:0]
	for _, id := range mesh.Exclusions {
		if e := reg.GetVolume(id); e != nil {
			v.exclusions = append(v.exclusions, e.Clone())
		}
	}
	return best, true
}

func (c *volumeCopyCache) release(index int) {
	if index < 0 || index >= len(c.copies) {
		return
	}
	v := &c.copies[index]
	if v.refCount > 0 {
		v.refCount--
		if v.refCount == 0 {
			c.stamp++
			v.releaseStamp = c.stamp
		}
	}
}

func (c *volumeCopyCache) get(index int) *volumeDefCopy {
	return &c.copies[index]
}

func (c *volumeCopyCache) referenced() int {
	n := 0
	for i := range c.copies {
		if c.copies[i].refCount > 0 {
			n++
		}
	}
	return n
}

func (c *volumeCopyCache) reset() {
	*c = volumeCopyCache{}
}
