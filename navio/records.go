package navio

import (
	"fmt"
	"math"

	"github.com/gorustyt/navsystem/common"
	"github.com/gorustyt/navsystem/common/rw"
	"github.com/gorustyt/navsystem/mnm"
)

const (
	triangleRecordSize = 3*2 + 1 + 2 + 4
	vertexRecordSize   = 3 * 4
	linkRecordSize     = 1 + 1 + 2
	nodeRecordSize     = 1 + 2 + 6*4
)

func writeVolume(w *rw.ReaderWriter, v *Volume) {
	w.WriteFloat32(v.Height)
	w.WriteInt32(uint32(len(v.Vertices)))
	for _, p := range v.Vertices {
		w.WriteVec3(p)
	}
}

func readVolume(r *rw.ReaderWriter) (v Volume) {
	v.Height = r.ReadFloat32()
	n := r.ReadCount(vertexRecordSize)
	v.Vertices = make([]common.Vec3, n)
	for i := range v.Vertices {
		v.Vertices[i] = r.ReadVec3()
	}
	return v
}

func writeParams(w *rw.ReaderWriter, p *mnm.Params) {
	w.WriteVec3(p.Origin)
	w.WriteInt16s(p.TileSize[:])
	w.WriteVec3(p.VoxelSize)
	w.WriteInt32(p.TileCount)
}

func readParams(r *rw.ReaderWriter) (p mnm.Params) {
	p.Origin = r.ReadVec3()
	r.ReadUInt16s(p.TileSize[:])
	p.VoxelSize = r.ReadVec3()
	p.TileCount = r.ReadUInt32()
	return p
}

func writeTile(w *rw.ReaderWriter, rec *TileRecord) error {
	t := &rec.Tile
	for _, n := range []int{len(t.Triangles), len(t.Vertices), len(t.Links), len(t.Nodes)} {
		if n > math.MaxUint16 {
			return fmt.Errorf("tile %d,%d,%d: %d elements do not fit a record", rec.X, rec.Y, rec.Z, n)
		}
	}
	w.WriteInt16(rec.X)
	w.WriteInt16(rec.Y)
	w.WriteInt16(rec.Z)
	w.WriteInt32(t.HashValue)

	w.WriteInt16(uint16(len(t.Triangles)))
	for _, tri := range t.Triangles {
		w.WriteInt16s(tri.Vertex[:])
		w.WriteInt8(tri.LinkCount)
		w.WriteInt16(tri.FirstLink)
		w.WriteInt32(uint32(tri.IslandID))
	}
	w.WriteInt16(uint16(len(t.Vertices)))
	for _, v := range t.Vertices {
		w.WriteVec3(v)
	}
	w.WriteInt16(uint16(len(t.Links)))
	for _, l := range t.Links {
		w.WriteInt8(l.Side)
		w.WriteInt8(l.Edge)
		w.WriteInt16(l.Triangle)
	}
	w.WriteInt16(uint16(len(t.Nodes)))
	for _, n := range t.Nodes {
		w.WriteInt8(n.Leaf)
		w.WriteInt16(n.Offset)
		w.WriteVec3(n.AABB.Min)
		w.WriteVec3(n.AABB.Max)
	}
	return nil
}

// readCount16 reads a uint16 element count and rejects counts the remaining
// data cannot hold.
func readCount16(r *rw.ReaderWriter, elemSize int) int {
	n := int(r.ReadUInt16())
	if r.Err() != nil || n*elemSize > r.Size() {
		return -1
	}
	return n
}

func readTile(r *rw.ReaderWriter) (rec TileRecord, err error) {
	rec.X = r.ReadUInt16()
	rec.Y = r.ReadUInt16()
	rec.Z = r.ReadUInt16()
	t := &rec.Tile
	t.HashValue = r.ReadUInt32()

	n := readCount16(r, triangleRecordSize)
	if n < 0 {
		return rec, fmt.Errorf("%w: triangle count", ErrCorruptData)
	}
	t.Triangles = make([]mnm.Triangle, n)
	for i := range t.Triangles {
		tri := &t.Triangles[i]
		r.ReadUInt16s(tri.Vertex[:])
		tri.LinkCount = r.ReadUInt8()
		tri.FirstLink = r.ReadUInt16()
		tri.IslandID = mnm.StaticIslandID(r.ReadUInt32())
	}

	if n = readCount16(r, vertexRecordSize); n < 0 {
		return rec, fmt.Errorf("%w: vertex count", ErrCorruptData)
	}
	t.Vertices = make([]common.Vec3, n)
	for i := range t.Vertices {
		t.Vertices[i] = r.ReadVec3()
	}

	if n = readCount16(r, linkRecordSize); n < 0 {
		return rec, fmt.Errorf("%w: link count", ErrCorruptData)
	}
	t.Links = make([]mnm.Link, n)
	for i := range t.Links {
		l := &t.Links[i]
		l.Side = r.ReadUInt8()
		l.Edge = r.ReadUInt8()
		l.Triangle = r.ReadUInt16()
	}

	if n = readCount16(r, nodeRecordSize); n < 0 {
		return rec, fmt.Errorf("%w: node count", ErrCorruptData)
	}
	t.Nodes = make([]mnm.BVNode, n)
	for i := range t.Nodes {
		node := &t.Nodes[i]
		node.Leaf = r.ReadUInt8() != 0
		node.Offset = r.ReadUInt16()
		node.AABB.Min = r.ReadVec3()
		node.AABB.Max = r.ReadVec3()
	}
	if err := r.Err(); err != nil {
		return rec, fmt.Errorf("%w: %v", ErrCorruptData, err)
	}
	return rec, validateTile(t)
}

// validateTile rejects indices pointing outside the tile so a corrupt file
// cannot crash later queries.
func validateTile(t *mnm.Tile) error {
	for i, tri := range t.Triangles {
		for _, v := range tri.Vertex {
			if int(v) >= len(t.Vertices) {
				return fmt.Errorf("%w: triangle %d references vertex %d", ErrCorruptData, i, v)
			}
		}
		if int(tri.FirstLink)+int(tri.LinkCount) > len(t.Links) {
			return fmt.Errorf("%w: triangle %d links out of range", ErrCorruptData, i)
		}
	}
	for i, n := range t.Nodes {
		if n.Leaf && int(n.Offset) >= len(t.Triangles) {
			return fmt.Errorf("%w: node %d references triangle %d", ErrCorruptData, i, n.Offset)
		}
	}
	return nil
}
