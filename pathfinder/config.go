package pathfinder

import "time"

type Config struct {
	// MaxProcessingContexts is the number of requests searched at once.
	MaxProcessingContexts int `yaml:"max_processing_contexts" validate:"gte=1"`
	// FindWayQuota bounds the A* time of one context per update. Zero
	// searches to completion.
	FindWayQuota        time.Duration `yaml:"find_way_quota" validate:"gte=0"`
	SnapVerticalRange   float32       `yaml:"snap_vertical_range" validate:"gt=0"`
	SnapHorizontalRange float32       `yaml:"snap_horizontal_range" validate:"gt=0"`
	StringPull          bool          `yaml:"string_pull"`
	MultiThreaded       bool          `yaml:"multi_threaded"`
}

func DefaultConfig() Config {
	return Config{
		MaxProcessingContexts: 8,
		FindWayQuota:          2 * time.Millisecond,
		SnapVerticalRange:     2,
		SnapHorizontalRange:   2,
		StringPull:            true,
		MultiThreaded:         true,
	}
}
