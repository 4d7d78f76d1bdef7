package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if !cfg.EnableVideo || !cfg.EnableAudio || !cfg.EnableFPS {
		t.Error("all aspects should be enabled by default")
	}
	if cfg.VideoInterval != 10*time.Second {
		t.Errorf("VideoInterval = %v, want 10s", cfg.VideoInterval)
	}
	if cfg.AudioInterval != 15*time.Second {
		t.Errorf("AudioInterval = %v, want 15s", cfg.AudioInterval)
	}
	if cfg.FPSInterval != 20*time.Second {
		t.Errorf("FPSInterval = %v, want 20s", cfg.FPSInterval)
	}
	if cfg.TaskTimeout != time.Hour {
		t.Errorf("TaskTimeout = %v, want 1h", cfg.TaskTimeout)
	}
	if cfg.MaxWorkers != 3 {
		t.Errorf("MaxWorkers = %d, want 3", cfg.MaxWorkers)
	}
	if !cfg.EnableMetadataSharing {
		t.Error("metadata sharing should be enabled by default")
	}
	if cfg.BaselineTaskDuration != 60*time.Second {
		t.Errorf("BaselineTaskDuration = %v, want 60s", cfg.BaselineTaskDuration)
	}
	if cfg.FFprobePath != "ffprobe" {
		t.Errorf("FFprobePath = %q, want ffprobe", cfg.FFprobePath)
	}
}

func TestFastConfig(t *testing.T) {
	testCases := []struct {
		name     string
		duration time.Duration
		video    time.Duration
		audio    time.Duration
		fps      time.Duration
	}{
		{"short_video_keeps_defaults", 30 * time.Minute, 10 * time.Second, 15 * time.Second, 20 * time.Second},
		{"over_one_hour", 90 * time.Minute, 30 * time.Second, 45 * time.Second, 60 * time.Second},
		{"over_two_hours", 3 * time.Hour, 45 * time.Second, 60 * time.Second, 75 * time.Second},
		{"over_four_hours", 5 * time.Hour, 60 * time.Second, 90 * time.Second, 120 * time.Second},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := FastConfig(tc.duration)
			if cfg.VideoInterval != tc.video {
				t.Errorf("VideoInterval = %v, want %v", cfg.VideoInterval, tc.video)
			}
			if cfg.AudioInterval != tc.audio {
				t.Errorf("AudioInterval = %v, want %v", cfg.AudioInterval, tc.audio)
			}
			if cfg.FPSInterval != tc.fps {
				t.Errorf("FPSInterval = %v, want %v", cfg.FPSInterval, tc.fps)
			}
		})
	}
}

func TestDetailedConfig(t *testing.T) {
	cfg := DetailedConfig()

	if cfg.VideoInterval != 5*time.Second {
		t.Errorf("VideoInterval = %v, want 5s", cfg.VideoInterval)
	}
	if cfg.AudioInterval != 10*time.Second {
		t.Errorf("AudioInterval = %v, want 10s", cfg.AudioInterval)
	}
	if cfg.FPSInterval != 15*time.Second {
		t.Errorf("FPSInterval = %v, want 15s", cfg.FPSInterval)
	}
	if cfg.TaskTimeout != time.Hour {
		t.Errorf("TaskTimeout = %v, want 1h", cfg.TaskTimeout)
	}
}

func TestMemoryOptimizedConfig(t *testing.T) {
	cfg := MemoryOptimizedConfig()

	if cfg.MaxWorkers != 2 {
		t.Errorf("MaxWorkers = %d, want 2", cfg.MaxWorkers)
	}
	if !cfg.EnableMetadataSharing {
		t.Error("metadata sharing should stay enabled")
	}
	if !cfg.EnableResultStreaming {
		t.Error("result streaming should be enabled")
	}
}

func TestApplyPreset_ExplicitFlagsWin(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Preset = "detailed"
	cfg.VideoInterval = 42 * time.Second
	cfg.MarkExplicit("video-interval")

	cfg.ApplyPreset(0)

	if cfg.VideoInterval != 42*time.Second {
		t.Errorf("explicit video-interval overridden: %v", cfg.VideoInterval)
	}
	if cfg.AudioInterval != 10*time.Second {
		t.Errorf("AudioInterval should come from preset: %v", cfg.AudioInterval)
	}
}

func TestApplyPreset_Fast(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Preset = "fast"

	cfg.ApplyPreset(3 * time.Hour)

	if cfg.VideoInterval != 45*time.Second {
		t.Errorf("VideoInterval = %v, want 45s for >2h video", cfg.VideoInterval)
	}
}

func TestApplyPreset_NoPreset(t *testing.T) {
	cfg := DefaultConfig()
	before := *cfg

	cfg.ApplyPreset(10 * time.Hour)

	if cfg.VideoInterval != before.VideoInterval || cfg.MaxWorkers != before.MaxWorkers {
		t.Error("empty preset should not modify config")
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Inputs = []string{"movie.mp4"}

	if err := Validate(cfg); err != nil {
		t.Errorf("valid config should not error: %v", err)
	}
}

func TestValidate_NoInputs(t *testing.T) {
	cfg := DefaultConfig()

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error for missing inputs")
	}
	if !strings.Contains(err.Error(), "inputs") {
		t.Errorf("error should mention inputs: %v", err)
	}
}

func TestValidate_AllAspectsDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Inputs = []string{"movie.mp4"}
	cfg.EnableVideo = false
	cfg.EnableAudio = false
	cfg.EnableFPS = false

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error when every aspect is disabled")
	}
	if !strings.Contains(err.Error(), "aspects") {
		t.Errorf("error should mention aspects: %v", err)
	}
}

func TestValidate_InvalidIntervals(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"zero_video_interval", func(c *Config) { c.VideoInterval = 0 }, "video_interval"},
		{"negative_audio_interval", func(c *Config) { c.AudioInterval = -time.Second }, "audio_interval"},
		{"zero_fps_interval", func(c *Config) { c.FPSInterval = 0 }, "fps_interval"},
		{"zero_timeout", func(c *Config) { c.TaskTimeout = 0 }, "task_timeout"},
		{"zero_workers", func(c *Config) { c.MaxWorkers = 0 }, "max_workers"},
		{"zero_probe_timeout", func(c *Config) { c.ProbeTimeout = 0 }, "probe_timeout"},
		{"zero_baseline", func(c *Config) { c.BaselineTaskDuration = 0 }, "baseline_task_duration"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Inputs = []string{"movie.mp4"}
			tc.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatalf("expected error for %s", tc.field)
			}
			if !strings.Contains(err.Error(), tc.field) {
				t.Errorf("error should mention %s: %v", tc.field, err)
			}
		})
	}
}

func TestValidate_InvalidPreset(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Inputs = []string{"movie.mp4"}
	cfg.Preset = "turbo"

	if err := Validate(cfg); err == nil {
		t.Error("expected error for unknown preset")
	}
}

func TestValidate_InvalidLogFormat(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Inputs = []string{"movie.mp4"}
	cfg.LogFormat = "yaml"

	if err := Validate(cfg); err == nil {
		t.Error("expected error for invalid log_format")
	}
}

func TestValidate_ExportRequiresOutputDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Inputs = []string{"movie.mp4"}
	cfg.ExportJSON = true
	cfg.OutputDir = ""

	if err := Validate(cfg); err == nil {
		t.Error("expected error when exporting without output dir")
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.VideoInterval = 0
	cfg.MaxWorkers = 0

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected multiple errors")
	}

	errStr := err.Error()
	for _, want := range []string{"inputs", "video_interval", "max_workers"} {
		if !strings.Contains(errStr, want) {
			t.Errorf("error should mention %s: %v", want, err)
		}
	}
}

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{Field: "test_field", Message: "test message"}
	if err.Error() != "test_field: test message" {
		t.Errorf("Error() = %q", err.Error())
	}
}
