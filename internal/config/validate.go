package config

import (
	"errors"
	"fmt"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for errors and inconsistencies.
// Returns nil if valid, or an error describing the problem.
func Validate(cfg *Config) error {
	var errs []error

	if len(cfg.Inputs) == 0 {
		errs = append(errs, ValidationError{
			Field:   "inputs",
			Message: "at least one file or URL is required",
		})
	}

	// A run with every aspect disabled can never build a task
	if !cfg.EnableVideo && !cfg.EnableAudio && !cfg.EnableFPS {
		errs = append(errs, ValidationError{
			Field:   "aspects",
			Message: "at least one of -video, -audio, -fps must be enabled",
		})
	}

	if cfg.VideoInterval <= 0 {
		errs = append(errs, ValidationError{Field: "video_interval", Message: "must be positive"})
	}
	if cfg.AudioInterval <= 0 {
		errs = append(errs, ValidationError{Field: "audio_interval", Message: "must be positive"})
	}
	if cfg.FPSInterval <= 0 {
		errs = append(errs, ValidationError{Field: "fps_interval", Message: "must be positive"})
	}

	if cfg.TaskTimeout <= 0 {
		errs = append(errs, ValidationError{Field: "task_timeout", Message: "must be positive"})
	}
	if cfg.MaxWorkers < 1 {
		errs = append(errs, ValidationError{Field: "max_workers", Message: "must be at least 1"})
	}
	if cfg.ProbeTimeout <= 0 {
		errs = append(errs, ValidationError{Field: "probe_timeout", Message: "must be positive"})
	}
	if cfg.BaselineTaskDuration <= 0 {
		errs = append(errs, ValidationError{Field: "baseline_task_duration", Message: "must be positive"})
	}

	validPresets := map[string]bool{"": true, "fast": true, "detailed": true, "memory": true}
	if !validPresets[cfg.Preset] {
		errs = append(errs, ValidationError{
			Field:   "preset",
			Message: fmt.Sprintf("must be one of: fast, detailed, memory (got %q)", cfg.Preset),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.LogFormat] {
		errs = append(errs, ValidationError{
			Field:   "log_format",
			Message: fmt.Sprintf("must be 'json' or 'text' (got %q)", cfg.LogFormat),
		})
	}

	if cfg.CacheMaxSizeGB <= 0 {
		errs = append(errs, ValidationError{Field: "cache_max_gb", Message: "must be positive"})
	}

	if (cfg.ExportJSON || cfg.ExportCSV) && cfg.OutputDir == "" {
		errs = append(errs, ValidationError{
			Field:   "output",
			Message: "output directory is required when exporting",
		})
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}
