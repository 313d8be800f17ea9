// Package mnm holds the navigation mesh data model: tiles of triangles
// stored in a MeshGrid, the static island labelling, the off-mesh link
// table, the island connectivity graph, the budgeted A* used by path
// requests and the tile generator interface.
package mnm

import "github.com/gorustyt/navsystem/common"

type Vec3 = common.Vec3

type TileID uint32

type TriangleID uint32

type StaticIslandID uint32

type OffMeshLinkID uint32

const (
	InvalidTileID        TileID         = 0
	InvalidTriangleID    TriangleID     = 0
	InvalidIslandID      StaticIslandID = 0
	InvalidOffMeshLinkID OffMeshLinkID  = 0
)

const (
	triangleIndexBits = 10
	// MaxTrianglesPerTile is bounded by the index bits of a TriangleID.
	MaxTrianglesPerTile = 1 << triangleIndexBits
)

func ComputeTriangleID(tileID TileID, triangleIndex uint16) TriangleID {
	return TriangleID(uint32(tileID)<<triangleIndexBits | uint32(triangleIndex))
}

func ComputeTileID(triangleID TriangleID) TileID {
	return TileID(uint32(triangleID) >> triangleIndexBits)
}

func ComputeTriangleIndex(triangleID TriangleID) uint16 {
	return uint16(uint32(triangleID) & (MaxTrianglesPerTile - 1))
}

// GlobalIslandID identifies a static island across meshes: the mesh id in the
// high 32 bits, the island id inside that mesh in the low 32 bits.
type GlobalIslandID uint64

const InvalidGlobalIslandID GlobalIslandID = 0

func NewGlobalIslandID(meshID uint32, islandID StaticIslandID) GlobalIslandID {
	return GlobalIslandID(uint64(meshID)<<32 | uint64(islandID))
}

func (id GlobalIslandID) MeshID() uint32 {
	return uint32(id >> 32)
}

func (id GlobalIslandID) IslandID() StaticIslandID {
	return StaticIslandID(uint32(id))
}

func (id GlobalIslandID) IsValid() bool {
	return id.MeshID() != 0 && id.IslandID() != InvalidIslandID
}
