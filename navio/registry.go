package navio

import (
	"fmt"
	"io"
	"os"

	"github.com/gorustyt/navsystem/common"
	"github.com/gorustyt/navsystem/mnm"
	"github.com/gorustyt/navsystem/navigation"
	"go.uber.org/zap"
)

// Export captures every mesh of the registry, grouped by agent type.
func Export(reg *navigation.Registry, configVersion uint32) *File {
	f := &File{FileVersion: FileVersion, ConfigVersion: configVersion}
	for _, name := range reg.AreaNames() {
		f.Areas = append(f.Areas, Area{Name: name, ID: reg.GetAreaID(name)})
	}
	for i := 0; i < reg.AgentTypeCount(); i++ {
		agentID := reg.GetAgentTypeIDByIndex(i)
		agent := Agent{Name: reg.GetAgentTypeName(agentID)}
		for _, meshID := range reg.MeshIDsForAgentType(agentID) {
			agent.Meshes = append(agent.Meshes, exportMesh(reg, meshID))
		}
		f.Agents = append(f.Agents, agent)
	}
	return f
}

func exportVolume(reg *navigation.Registry, id navigation.VolumeID) Volume {
	v := Volume{ID: id}
	if bv := reg.GetVolume(id); bv != nil {
		v.Height = bv.Height
		v.Vertices = append([]common.Vec3(nil), bv.Vertices...)
	}
	return v
}

func exportMesh(reg *navigation.Registry, meshID navigation.MeshID) Mesh {
	m := reg.GetMesh(meshID)
	res := Mesh{
		ID:           meshID,
		Name:         m.Name,
		TotalIslands: uint32(m.Grid.GetTotalIslands()),
		Boundary:     exportVolume(reg, m.Boundary),
		Params:       m.Grid.GetParams(),
	}
	for _, id := range m.Exclusions {
		res.Exclusions = append(res.Exclusions, exportVolume(reg, id))
	}
	m.Grid.ForEachTile(func(_ mnm.TileID, x, y, z uint16, t *mnm.Tile) {
		res.Tiles = append(res.Tiles, TileRecord{X: x, Y: y, Z: z, Tile: t.Clone()})
	})
	return res
}

type LoadStats struct {
	Meshes        int
	Tiles         int
	SkippedAgents []string
	SkippedMeshes []string
}

// Import recreates the meshes of f inside reg, reusing the persisted mesh and
// volume ids. Agent types unknown to reg and meshes that cannot be created
// are skipped and reported in the stats. Tiles are installed as they are:
// the caller decides whether regeneration queued by the boundary assignment
// should run.
func Import(reg *navigation.Registry, f *File, configVersion uint32, logger *zap.Logger) (LoadStats, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var stats LoadStats
	if f.FileVersion != FileVersion {
		return stats, fmt.Errorf("%w: found %d, expected %d", ErrWrongVersion, f.FileVersion, FileVersion)
	}
	if f.ConfigVersion != configVersion {
		logger.Warn("navigation config version mismatch, loading anyway",
			zap.Uint32("found", f.ConfigVersion), zap.Uint32("expected", configVersion))
	}
	stats.SkippedAgents = append(stats.SkippedAgents, f.SkippedAgents...)

	for _, a := range f.Areas {
		reg.SetAreaID(a.Name, a.ID)
	}
	for i := range f.Agents {
		a := &f.Agents[i]
		agentID := reg.GetAgentTypeID(a.Name)
		if agentID == navigation.InvalidAgentTypeID {
			logger.Warn("skipping meshes of unknown agent type", zap.String("agentType", a.Name))
			stats.SkippedAgents = append(stats.SkippedAgents, a.Name)
			continue
		}
		for j := range a.Meshes {
			m := &a.Meshes[j]
			if err := importMesh(reg, agentID, m, logger); err != nil {
				logger.Warn("skipping mesh", zap.String("mesh", m.Name), zap.Error(err))
				stats.SkippedMeshes = append(stats.SkippedMeshes, m.Name)
				continue
			}
			stats.Meshes++
			stats.Tiles += len(m.Tiles)
		}
	}
	return stats, nil
}

func importVolume(reg *navigation.Registry, v *Volume) error {
	if v.ID == navigation.InvalidVolumeID || reg.ValidateVolume(v.ID) {
		return nil
	}
	if len(v.Vertices) == 0 {
		return fmt.Errorf("%w: volume %d has no geometry", ErrCorruptData, v.ID)
	}
	_, err := reg.CreateVolume(v.Vertices, v.Height, v.ID)
	return err
}

func importMesh(reg *navigation.Registry, agentID navigation.AgentTypeID, m *Mesh, logger *zap.Logger) error {
	if err := importVolume(reg, &m.Boundary); err != nil {
		return err
	}
	for i := range m.Exclusions {
		if err := importVolume(reg, &m.Exclusions[i]); err != nil {
			logger.Warn("exclusion volume not restored", zap.Uint32("volume", uint32(m.Exclusions[i].ID)), zap.Error(err))
		}
	}

	props, _ := reg.GetAgentTypeProperties(agentID)
	if props.VoxelSize != m.Params.VoxelSize {
		logger.Warn("mesh voxel size differs from its agent type",
			zap.String("mesh", m.Name), zap.Any("file", m.Params.VoxelSize), zap.Any("agentType", props.VoxelSize))
	}
	meshID := m.ID
	if existing := reg.GetMesh(meshID); existing == nil {
		id, err := reg.CreateMesh(m.Name, agentID, navigation.CreateMeshParams{
			Origin:    m.Params.Origin,
			TileSize:  m.Params.TileSize,
			TileCount: m.Params.TileCount,
		}, meshID)
		if err != nil {
			return err
		}
		meshID = id
	} else if existing.AgentTypeID != agentID {
		return fmt.Errorf("%w: mesh id %d belongs to another agent type", navigation.ErrIDInUse, meshID)
	}

	if m.Boundary.ID != navigation.InvalidVolumeID {
		if err := reg.SetMeshBoundaryVolume(meshID, m.Boundary.ID); err != nil {
			return err
		}
	}
	if err := reg.SetMeshExclusions(meshID, m.ExclusionIDs()); err != nil {
		return err
	}
	grid := reg.GetMesh(meshID).Grid
	grid.SetTotalIslands(int(m.TotalIslands))
	for i := range m.Tiles {
		rec := &m.Tiles[i]
		tile := rec.Tile.Clone()
		grid.SetTile(rec.X, rec.Y, rec.Z, &tile)
	}
	return nil
}

func Write(w io.Writer, reg *navigation.Registry, configVersion uint32) error {
	data, err := Marshal(Export(reg, configVersion))
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Read decodes data and imports it into reg. Agent blocks of unknown agent
// types are skipped without being decoded.
func Read(data []byte, reg *navigation.Registry, configVersion uint32, logger *zap.Logger) (LoadStats, error) {
	f, err := Unmarshal(data, func(name string) bool {
		return reg.GetAgentTypeID(name) != navigation.InvalidAgentTypeID
	})
	if err != nil {
		return LoadStats{}, err
	}
	return Import(reg, f, configVersion, logger)
}

func SaveToFile(path string, reg *navigation.Registry, configVersion uint32) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(file, reg, configVersion); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func ReadFromFile(path string, reg *navigation.Registry, configVersion uint32, logger *zap.Logger) (LoadStats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return LoadStats{}, err
	}
	return Read(data, reg, configVersion, logger)
}
