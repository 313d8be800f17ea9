package mnm

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
)

// AgentSettings are the locomotion limits of an agent type, in voxels.
type AgentSettings struct {
	Radius                   uint16
	Height                   uint16
	ClimbableHeight          uint16
	MaxWaterDepth            uint16
	ClimbableInclineGradient float32
	ClimbableStepRatio       float32
	// Callback filters which entities contribute geometry. Nil accepts all.
	Callback func(entityID uint32) bool
}

type GeneratorFlags uint32

const (
	// NoHashTest forces generation even when the content hash is unchanged.
	NoHashTest GeneratorFlags = 1 << iota
)

type GeneratorParams struct {
	Origin         Vec3
	VoxelSize      Vec3
	SizeX          uint16
	SizeY          uint16
	SizeZ          uint16
	BoundingVolume *BoundingVolume
	Exclusions     []BoundingVolume
	Agent          AgentSettings
	HashValue      uint32
	Flags          GeneratorFlags
}

func (p *GeneratorParams) TileWorldSize() Vec3 {
	return Vec3{
		float32(p.SizeX) * p.VoxelSize[0],
		float32(p.SizeY) * p.VoxelSize[1],
		float32(p.SizeZ) * p.VoxelSize[2],
	}
}

// Generator builds the triangles of one tile. It returns false when nothing
// was produced: either the tile is empty or, with the hash test enabled, the
// content hash equals params.HashValue.
type Generator interface {
	Generate(params *GeneratorParams, tile *Tile) (hash uint32, ok bool)
}

// GeometrySource answers walkable surface heights. accept filters the
// entities allowed to contribute geometry.
type GeometrySource interface {
	SampleHeight(x, y, minZ, maxZ float32, accept func(entityID uint32) bool) (z float32, ok bool)
}

// HeightfieldGenerator samples a GeometrySource on a regular grid of cells and
// emits two triangles per walkable cell.
type HeightfieldGenerator struct {
	Source       GeometrySource
	CellsPerSide int
}

func NewHeightfieldGenerator(source GeometrySource, cellsPerSide int) *HeightfieldGenerator {
	if cellsPerSide <= 0 {
		cellsPerSide = 2
	}
	return &HeightfieldGenerator{Source: source, CellsPerSide: cellsPerSide}
}

type sample struct {
	pos      Vec3
	walkable bool
}

func (h *HeightfieldGenerator) Generate(params *GeneratorParams, tile *Tile) (uint32, bool) {
	tile.Reset()
	n := h.CellsPerSide
	size := params.TileWorldSize()
	step := Vec3{size[0] / float32(n), size[1] / float32(n)}
	// search a little outside the tile so surfaces sitting on its border are found
	minZ := params.Origin[2] - float32(params.Agent.ClimbableHeight)*params.VoxelSize[2]
	maxZ := params.Origin[2] + size[2]

	samples := make([]sample, (n+1)*(n+1))
	for j := 0; j <= n; j++ {
		for i := 0; i <= n; i++ {
			x := params.Origin[0] + float32(i)*step[0]
			y := params.Origin[1] + float32(j)*step[1]
			s := &samples[j*(n+1)+i]
			z, ok := h.Source.SampleHeight(x, y, minZ, maxZ, params.Agent.Callback)
			s.pos = Vec3{x, y, z}
			s.walkable = ok && h.allowed(params, s.pos)
		}
	}

	maxStep := float32(params.Agent.ClimbableHeight) * params.VoxelSize[2]
	remap := make([]int, len(samples))
	for i := range remap {
		remap[i] = -1
	}
	vertex := func(k int) uint16 {
		if remap[k] < 0 {
			remap[k] = len(tile.Vertices)
			tile.Vertices = append(tile.Vertices, samples[k].pos)
		}
		return uint16(remap[k])
	}
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			k00 := j*(n+1) + i
			k10 := k00 + 1
			k01 := k00 + n + 1
			k11 := k01 + 1
			corners := [4]int{k00, k10, k11, k01}
			lo, hi := float32(math.MaxFloat32), float32(-math.MaxFloat32)
			walkable := true
			for _, k := range corners {
				walkable = walkable && samples[k].walkable
				lo = min(lo, samples[k].pos[2])
				hi = max(hi, samples[k].pos[2])
			}
			if !walkable || hi-lo > maxStep {
				continue
			}
			// a cell belongs to the tile layer containing its mean height
			mean := (samples[k00].pos[2] + samples[k10].pos[2] + samples[k01].pos[2] + samples[k11].pos[2]) / 4
			if mean < params.Origin[2] || mean >= maxZ {
				continue
			}
			if len(tile.Triangles)+2 > MaxTrianglesPerTile {
				continue
			}
			tile.Triangles = append(tile.Triangles,
				Triangle{Vertex: [3]uint16{vertex(k00), vertex(k10), vertex(k11)}},
				Triangle{Vertex: [3]uint16{vertex(k00), vertex(k11), vertex(k01)}},
			)
		}
	}

	if len(tile.Triangles) == 0 {
		tile.Reset()
		return 0, false
	}
	hash := ComputeTileHash(tile)
	if params.Flags&NoHashTest == 0 && hash == params.HashValue {
		tile.Reset()
		return hash, false
	}
	tile.HashValue = hash
	tile.BuildBVTree()
	return hash, true
}

func (h *HeightfieldGenerator) allowed(params *GeneratorParams, p Vec3) bool {
	if params.BoundingVolume != nil && !params.BoundingVolume.Contains(p) {
		return false
	}
	for i := range params.Exclusions {
		if params.Exclusions[i].Contains(p) {
			return false
		}
	}
	return true
}

// ComputeTileHash hashes the geometry of a tile.
func ComputeTileHash(tile *Tile) uint32 {
	d := xxhash.New()
	var buf [4]byte
	for _, v := range tile.Vertices {
		for _, c := range v {
			binary.LittleEndian.PutUint32(buf[:], math.Float32bits(c))
			_, _ = d.Write(buf[:])
		}
	}
	for _, t := range tile.Triangles {
		for _, vi := range t.Vertex {
			binary.LittleEndian.PutUint16(buf[:2], vi)
			_, _ = d.Write(buf[:2])
		}
	}
	sum := d.Sum64()
	res := uint32(sum) ^ uint32(sum>>32)
	if res == 0 {
		res = 1
	}
	return res
}
