package navigation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorustyt/navsystem/common"
)

var configValidate = validator.New()

// AgentTypeConfig is the serialized form of an agent type. Sizes are in
// voxels.
type AgentTypeConfig struct {
	Name                     string     `yaml:"name" validate:"required"`
	VoxelSize                [3]float32 `yaml:"voxel_size" validate:"dive,gt=0"`
	Radius                   uint16     `yaml:"radius" validate:"gt=0"`
	Height                   uint16     `yaml:"height" validate:"gt=0"`
	ClimbableHeight          uint16     `yaml:"climbable_height" validate:"ltfield=Height"`
	MaxWaterDepth            uint16     `yaml:"max_water_depth"`
	ClimbableInclineGradient float32    `yaml:"climbable_incline_gradient" validate:"gte=0"`
	ClimbableStepRatio       float32    `yaml:"climbable_step_ratio" validate:"gte=0"`
	SmartObjectUserClasses   []string   `yaml:"smart_object_user_classes"`
}

func (c *AgentTypeConfig) Params() AgentTypeParams {
	return AgentTypeParams{
		VoxelSize:                common.Vec3(c.VoxelSize),
		Radius:                   c.Radius,
		Height:                   c.Height,
		ClimbableHeight:          c.ClimbableHeight,
		MaxWaterDepth:            c.MaxWaterDepth,
		ClimbableInclineGradient: c.ClimbableInclineGradient,
		ClimbableStepRatio:       c.ClimbableStepRatio,
		SmartObjectUserClasses:   c.SmartObjectUserClasses,
	}
}

// ValidateAgentTypeConfigs checks every entry and the uniqueness of names.
// All problems are reported together.
func ValidateAgentTypeConfigs(configs []AgentTypeConfig) error {
	var errs []error
	seen := map[string]bool{}
	for i := range configs {
		c := &configs[i]
		if err := configValidate.Struct(c); err != nil {
			errs = append(errs, fmt.Errorf("%w: agent type %d (%q): %v", ErrInvalidConfig, i, c.Name, err))
			continue
		}
		key := strings.ToLower(c.Name)
		if seen[key] {
			errs = append(errs, fmt.Errorf("%w: agent type %q", ErrDuplicateAgentType, c.Name))
			continue
		}
		seen[key] = true
	}
	return errors.Join(errs...)
}

// LoadAgentTypes validates configs and creates them in order. Nothing is
// created when validation fails.
func (r *Registry) LoadAgentTypes(configs []AgentTypeConfig) ([]AgentTypeID, error) {
	if err := ValidateAgentTypeConfigs(configs); err != nil {
		return nil, err
	}
	ids := make([]AgentTypeID, 0, len(configs))
	for i := range configs {
		id, err := r.CreateAgentType(configs[i].Name, configs[i].Params())
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ValidateStruct runs the struct validation rules on any config value.
func ValidateStruct(v any) error {
	if err := configValidate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
