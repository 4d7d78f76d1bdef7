package config

import "time"

// Duration breakpoints for the fast preset. Longer videos get coarser
// sampling so total runtime stays bounded.
const (
	longVideo     = 1 * time.Hour
	veryLongVideo = 2 * time.Hour
	hugeVideo     = 4 * time.Hour
)

// FastConfig returns a config tuned for quick analysis of a video with the
// given duration. Intervals widen as duration grows past fixed breakpoints.
func FastConfig(duration time.Duration) *Config {
	cfg := DefaultConfig()

	switch {
	case duration > hugeVideo:
		cfg.VideoInterval = 60 * time.Second
		cfg.AudioInterval = 90 * time.Second
		cfg.FPSInterval = 120 * time.Second
	case duration > veryLongVideo:
		cfg.VideoInterval = 45 * time.Second
		cfg.AudioInterval = 60 * time.Second
		cfg.FPSInterval = 75 * time.Second
	case duration > longVideo:
		cfg.VideoInterval = 30 * time.Second
		cfg.AudioInterval = 45 * time.Second
		cfg.FPSInterval = 60 * time.Second
	}

	return cfg
}

// DetailedConfig returns a config with dense sampling for maximum detail.
// The batch timeout is raised to accommodate the extra ffprobe invocations.
func DetailedConfig() *Config {
	cfg := DefaultConfig()
	cfg.VideoInterval = 5 * time.Second
	cfg.AudioInterval = 10 * time.Second
	cfg.FPSInterval = 15 * time.Second
	cfg.TaskTimeout = time.Hour
	return cfg
}

// MemoryOptimizedConfig returns a config that trades speed for lower peak
// memory on very large files.
func MemoryOptimizedConfig() *Config {
	cfg := DefaultConfig()
	cfg.MaxWorkers = 2
	cfg.EnableMetadataSharing = true
	cfg.EnableResultStreaming = true
	return cfg
}

// ApplyPreset overwrites preset-tunable fields from the named preset,
// skipping any field the user set explicitly on the command line. The
// duration argument is only consulted by the fast preset.
func (c *Config) ApplyPreset(duration time.Duration) {
	var base *Config
	switch c.Preset {
	case "fast":
		base = FastConfig(duration)
	case "detailed":
		base = DetailedConfig()
	case "memory":
		base = MemoryOptimizedConfig()
	default:
		return
	}

	if !c.Explicit("video-interval") {
		c.VideoInterval = base.VideoInterval
	}
	if !c.Explicit("audio-interval") {
		c.AudioInterval = base.AudioInterval
	}
	if !c.Explicit("fps-interval") {
		c.FPSInterval = base.FPSInterval
	}
	if !c.Explicit("timeout") {
		c.TaskTimeout = base.TaskTimeout
	}
	if !c.Explicit("max-workers") {
		c.MaxWorkers = base.MaxWorkers
	}
	c.EnableResultStreaming = base.EnableResultStreaming
}
