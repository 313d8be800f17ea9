// Package navio reads and writes exported navigation data. A file is a
// protobuf wire message made of length delimited blocks; geometry inside the
// blocks is packed little endian with common/rw.
package navio

import (
	"fmt"

	"github.com/gorustyt/navsystem/common"
	"github.com/gorustyt/navsystem/mnm"
	"github.com/gorustyt/navsystem/navigation"
)

const FileVersion = 7

var (
	ErrWrongVersion = fmt.Errorf("%w: wrong navigation file version", navigation.ErrFailure)
	ErrCorruptData  = fmt.Errorf("%w: corrupt navigation data", navigation.ErrFailure)
)

type File struct {
	FileVersion   uint32
	ConfigVersion uint32
	Areas         []Area
	Agents        []Agent
	// SkippedAgents lists agent blocks left undecoded by Unmarshal.
	SkippedAgents []string
}

type Area struct {
	Name string
	ID   navigation.VolumeID
}

// Agent groups the meshes of one agent type, referenced by name so files
// survive agent type reordering.
type Agent struct {
	Name   string
	Meshes []Mesh
}

type Volume struct {
	ID       navigation.VolumeID
	Height   float32
	Vertices []common.Vec3
}

type Mesh struct {
	ID           navigation.MeshID
	Name         string
	TotalIslands uint32
	Boundary     Volume
	Exclusions   []Volume
	Params       mnm.Params
	Tiles        []TileRecord
}

func (m *Mesh) ExclusionIDs() []navigation.VolumeID {
	res := make([]navigation.VolumeID, len(m.Exclusions))
	for i, e := range m.Exclusions {
		res[i] = e.ID
	}
	return res
}

type TileRecord struct {
	X, Y, Z uint16
	Tile    mnm.Tile
}
