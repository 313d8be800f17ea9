package navigation

import (
	"errors"
	"fmt"
)

var ErrFailure = errors.New("navigation failure")

var (
	ErrInvalidAgentType   = fmt.Errorf("%w: invalid agent type", ErrFailure)
	ErrDuplicateAgentType = fmt.Errorf("%w: duplicate agent type", ErrFailure)
	ErrInvalidMesh        = fmt.Errorf("%w: invalid mesh", ErrFailure)
	ErrDuplicateMesh      = fmt.Errorf("%w: duplicate mesh name", ErrFailure)
	ErrInvalidVolume      = fmt.Errorf("%w: invalid volume", ErrFailure)
	ErrInvalidID          = fmt.Errorf("%w: invalid id", ErrFailure)
	ErrIDInUse            = fmt.Errorf("%w: id already in use", ErrFailure)
	ErrInvalidConfig      = fmt.Errorf("%w: invalid config", ErrFailure)
	ErrNoTriangle         = fmt.Errorf("%w: no triangle near location", ErrFailure)
)
