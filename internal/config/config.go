// Package config provides configuration management for video-analytics.
package config

import "time"

// Config holds all configuration options for an analysis run.
type Config struct {
	// Analysis aspects
	EnableVideo bool `json:"enable_video"`
	EnableAudio bool `json:"enable_audio"`
	EnableFPS   bool `json:"enable_fps"`

	// Sampling intervals
	VideoInterval time.Duration `json:"video_interval"`
	AudioInterval time.Duration `json:"audio_interval"`
	FPSInterval   time.Duration `json:"fps_interval"`

	// Parallel execution
	MaxWorkers            int           `json:"max_workers"`  // advisory hint, at most 3 tasks ever run
	TaskTimeout           time.Duration `json:"task_timeout"` // deadline for the whole batch, not per task
	EnableMetadataSharing bool          `json:"enable_metadata_sharing"`
	EnableResultStreaming bool          `json:"enable_result_streaming"`

	// BaselineTaskDuration is the assumed sequential cost of one task, used
	// only for the advisory parallel-efficiency estimate.
	BaselineTaskDuration time.Duration `json:"baseline_task_duration"`

	// Probing
	FFprobePath  string        `json:"ffprobe_path"`
	FFmpegPath   string        `json:"ffmpeg_path"`
	ProbeTimeout time.Duration `json:"probe_timeout"` // per ffprobe invocation

	// Download cache (remote / HLS inputs)
	CacheDir       string        `json:"cache_dir"` // "" = ~/.video-analytics-cache
	CacheMaxSizeGB float64       `json:"cache_max_size_gb"`
	HTTPTimeout    time.Duration `json:"http_timeout"`

	// Export
	OutputDir  string `json:"output_dir"`
	ExportJSON bool   `json:"export_json"`
	ExportCSV  bool   `json:"export_csv"`

	// Observability
	MetricsAddr string `json:"metrics_addr"` // "" = metrics server disabled
	Verbose     bool   `json:"verbose"`
	LogFormat   string `json:"log_format"` // json, text
	TUIEnabled  bool   `json:"tui"`

	// Diagnostic modes
	SkipPreflight bool `json:"skip_preflight"`

	// Preset selected on the command line ("", "fast", "detailed", "memory")
	Preset string `json:"preset"`

	// Inputs are the positional file paths or URLs to analyze.
	Inputs []string `json:"inputs"`

	// explicit records flags the user set on the command line so presets
	// never override them.
	explicit map[string]bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		// Aspects
		EnableVideo: true,
		EnableAudio: true,
		EnableFPS:   true,

		// Sampling
		VideoInterval: 10 * time.Second,
		AudioInterval: 15 * time.Second,
		FPSInterval:   20 * time.Second,

		// Parallel execution
		MaxWorkers:            3,
		TaskTimeout:           time.Hour,
		EnableMetadataSharing: true,
		EnableResultStreaming: false,
		BaselineTaskDuration:  60 * time.Second,

		// Probing
		FFprobePath:  "ffprobe",
		FFmpegPath:   "ffmpeg",
		ProbeTimeout: 30 * time.Second,

		// Download cache
		CacheMaxSizeGB: 10.0,
		HTTPTimeout:    30 * time.Second,

		// Export
		OutputDir: "./output",

		// Observability
		MetricsAddr: "", // disabled unless requested
		Verbose:     false,
		LogFormat:   "json",
		TUIEnabled:  false,
	}
}

// Explicit reports whether the named flag was set on the command line.
func (c *Config) Explicit(name string) bool {
	return c.explicit[name]
}

// MarkExplicit records that a flag was set explicitly. Exposed for tests
// and for ParseFlags.
func (c *Config) MarkExplicit(name string) {
	if c.explicit == nil {
		c.explicit = make(map[string]bool)
	}
	c.explicit[name] = true
}
