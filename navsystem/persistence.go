package navsystem

import (
	"os"

	"github.com/gorustyt/navsystem/navigation"
	"github.com/gorustyt/navsystem/navio"
	"github.com/gorustyt/navsystem/store"
	"go.uber.org/zap"
)

// Export captures the current meshes.
func (n *NavigationSystem) Export() ([]byte, error) {
	n.paths.WaitForJobsToFinish()
	return navio.Marshal(navio.Export(n.registry, n.config.ConfigVersion))
}

func (n *NavigationSystem) SaveToFile(path string) error {
	n.paths.WaitForJobsToFinish()
	if err := navio.SaveToFile(path, n.registry, n.config.ConfigVersion); err != nil {
		n.logger.Error("save navigation failed", zap.String("path", path), zap.Error(err))
		return err
	}
	n.logger.Info("navigation saved", zap.String("path", path), zap.Int("meshes", len(n.registry.MeshIDs())))
	return nil
}

func (n *NavigationSystem) ReadFromFile(path string) (navio.LoadStats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return navio.LoadStats{}, err
	}
	stats, err := n.Load(data)
	if err != nil {
		n.logger.Error("load navigation failed", zap.String("path", path), zap.Error(err))
		return stats, err
	}
	n.logger.Info("navigation loaded", zap.String("path", path),
		zap.Int("meshes", stats.Meshes), zap.Int("tiles", stats.Tiles),
		zap.Strings("skippedAgentTypes", stats.SkippedAgents))
	return stats, nil
}

// Load replaces the meshes with the exported data. Data that cannot be
// decoded leaves the current meshes in place. The loaded tiles are used as
// they are, nothing is regenerated.
func (n *NavigationSystem) Load(data []byte) (navio.LoadStats, error) {
	f, err := navio.Unmarshal(data, func(name string) bool {
		return n.registry.GetAgentTypeID(name) != navigation.InvalidAgentTypeID
	})
	if err != nil {
		return navio.LoadStats{}, err
	}
	n.Clear()
	stats, err := navio.Import(n.registry, f, n.config.ConfigVersion, n.logger)
	// boundary assignment queued every tile of the loaded meshes
	n.tiles.StopAllTasks()
	n.islands.RebuildAll()
	return stats, err
}

// SaveSnapshot stores the exported meshes under key.
func (n *NavigationSystem) SaveSnapshot(st *store.Store, key string) error {
	data, err := n.Export()
	if err != nil {
		return err
	}
	return st.Put(key, data)
}

func (n *NavigationSystem) LoadSnapshot(st *store.Store, key string) (navio.LoadStats, error) {
	data, err := st.Get(key)
	if err != nil {
		return navio.LoadStats{}, err
	}
	return n.Load(data)
}

// OpenSnapshotStore opens the store described by the snapshots config.
func (n *NavigationSystem) OpenSnapshotStore() (*store.Store, error) {
	return store.Open(n.config.Snapshots, n.logger.Named("store"))
}
