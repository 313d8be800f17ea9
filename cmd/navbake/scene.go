package main

import (
	"fmt"
	"os"
	"slices"

	"github.com/gorustyt/navsystem/common"
	"github.com/gorustyt/navsystem/mnm"
	"github.com/gorustyt/navsystem/navigation"
	"github.com/gorustyt/navsystem/navsystem"
	"gopkg.in/yaml.v3"
)

// scene describes flat ground with box obstacles and the meshes to bake over it.
type scene struct {
	GroundHeight float32       `yaml:"ground_height"`
	Obstacles    []sceneBox    `yaml:"obstacles"`
	Meshes       []sceneMesh   `yaml:"meshes" validate:"required,dive"`
	Exclusions   []sceneVolume `yaml:"exclusions" validate:"dive"`
	// Areas names the meshes whose boundary is registered as an area.
	Areas []string `yaml:"areas"`
}

type sceneBox struct {
	Min    common.Vec3 `yaml:"min"`
	Max    common.Vec3 `yaml:"max"`
	Entity uint32      `yaml:"entity"`
}

type sceneVolume struct {
	Height   float32       `yaml:"height" validate:"gt=0"`
	Vertices []common.Vec3 `yaml:"vertices" validate:"min=3"`
	// AgentTypes limits an exclusion to some agent types. Empty means all.
	AgentTypes []string `yaml:"agent_types"`
}

type sceneMesh struct {
	Name      string      `yaml:"name" validate:"required"`
	AgentType string      `yaml:"agent_type" validate:"required"`
	Origin    common.Vec3 `yaml:"origin"`
	TileSize  [3]uint16   `yaml:"tile_size" validate:"dive,gt=0"`
	TileCount uint32      `yaml:"tile_count"`
	Boundary  sceneVolume `yaml:"boundary"`
}

func loadScene(path string) (*scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s := &scene{}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("%w: scene %s: %v", navigation.ErrInvalidConfig, path, err)
	}
	if err := navigation.ValidateStruct(s); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *scene) generator() *mnm.HeightfieldGenerator {
	src := &mnm.PlaneSource{Height: s.GroundHeight}
	for _, b := range s.Obstacles {
		src.Obstacles = append(src.Obstacles, mnm.Obstacle{Bounds: common.NewAABB(b.Min, b.Max), EntityID: b.Entity})
	}
	return mnm.NewHeightfieldGenerator(src, 2)
}

// build creates the volumes and meshes of the scene. Tiles are queued, not
// generated.
func (s *scene) build(n *navsystem.NavigationSystem) error {
	reg := n.Registry()
	for i, e := range s.Exclusions {
		id, err := reg.CreateVolume(e.Vertices, e.Height, navigation.InvalidVolumeID)
		if err != nil {
			return fmt.Errorf("exclusion %d: %w", i, err)
		}
		var agents []navigation.AgentTypeID
		for _, name := range e.AgentTypes {
			agentID := reg.GetAgentTypeID(name)
			if agentID == navigation.InvalidAgentTypeID {
				return fmt.Errorf("exclusion %d: %w %q", i, navigation.ErrInvalidAgentType, name)
			}
			agents = append(agents, agentID)
		}
		if len(agents) == 0 {
			for j := 0; j < reg.AgentTypeCount(); j++ {
				agents = append(agents, reg.GetAgentTypeIDByIndex(j))
			}
		}
		if err := reg.SetExclusionVolume(agents, id); err != nil {
			return fmt.Errorf("exclusion %d: %w", i, err)
		}
	}
	for _, m := range s.Meshes {
		agentID := reg.GetAgentTypeID(m.AgentType)
		if agentID == navigation.InvalidAgentTypeID {
			return fmt.Errorf("mesh %q: %w %q", m.Name, navigation.ErrInvalidAgentType, m.AgentType)
		}
		tileCount := m.TileCount
		if tileCount == 0 {
			tileCount = 1024
		}
		meshID, err := reg.CreateMesh(m.Name, agentID, navigation.CreateMeshParams{
			Origin:    m.Origin,
			TileSize:  m.TileSize,
			TileCount: tileCount,
		}, navigation.InvalidMeshID)
		if err != nil {
			return fmt.Errorf("mesh %q: %w", m.Name, err)
		}
		boundary, err := reg.CreateVolume(m.Boundary.Vertices, m.Boundary.Height, navigation.InvalidVolumeID)
		if err != nil {
			return fmt.Errorf("mesh %q boundary: %w", m.Name, err)
		}
		if err := reg.SetMeshBoundaryVolume(meshID, boundary); err != nil {
			return fmt.Errorf("mesh %q boundary: %w", m.Name, err)
		}
		if slices.Contains(s.Areas, m.Name) {
			if err := reg.RegisterArea(m.Name, boundary); err != nil {
				return err
			}
		}
	}
	return nil
}
