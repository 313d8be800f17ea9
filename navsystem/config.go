package navsystem

import (
	"errors"
	"fmt"
	"os"

	"github.com/gorustyt/navsystem/common/logger"
	"github.com/gorustyt/navsystem/navigation"
	"github.com/gorustyt/navsystem/pathfinder"
	"github.com/gorustyt/navsystem/store"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Logger logger.Config `yaml:"logger"`
	// Workers is the size of the job pool. Zero uses one worker per CPU.
	Workers int `yaml:"workers" validate:"gte=0"`
	// ConfigVersion is written to exported files and compared on load.
	ConfigVersion uint32 `yaml:"config_version"`
	// QuerySnapRange is the vertical and horizontal range used by location
	// queries to find the mesh under a position.
	QuerySnapRange float32                            `yaml:"query_snap_range" validate:"gt=0"`
	Tiles          navigation.TileTaskSchedulerConfig `yaml:"tiles"`
	Pathfinder     pathfinder.Config                  `yaml:"pathfinder"`
	Snapshots      store.Config                       `yaml:"snapshots"`
	AgentTypes     []navigation.AgentTypeConfig       `yaml:"agent_types"`
}

func DefaultConfig() Config {
	return Config{
		Logger:         logger.DefaultConfig(),
		QuerySnapRange: 2,
		Pathfinder:     pathfinder.DefaultConfig(),
		Snapshots:      store.InMemoryConfig(),
	}
}

// ParseConfig decodes YAML over the defaults and validates the result.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %v", navigation.ErrInvalidConfig, err)
	}
	return cfg, cfg.Validate()
}

func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultConfig(), err
	}
	return ParseConfig(data)
}

func (c *Config) Validate() error {
	if _, err := logger.ParseLogLevel(c.Logger.Level); err != nil {
		return fmt.Errorf("%w: %v", navigation.ErrInvalidConfig, err)
	}
	return errors.Join(navigation.ValidateStruct(c), navigation.ValidateAgentTypeConfigs(c.AgentTypes))
}
