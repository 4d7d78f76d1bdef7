package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/huiping192/video-analytics/internal/media"
	"github.com/huiping192/video-analytics/internal/timeseries"
)

// BitratePoint is one sampled bitrate measurement.
type BitratePoint struct {
	Timestamp float64 `json:"timestamp"`   // seconds from start of file
	Bitrate   float64 `json:"bitrate_bps"` // bits per second
}

// VideoAnalysis is the immutable result of a video bitrate analysis.
type VideoAnalysis struct {
	FilePath string  `json:"file_path"`
	Duration float64 `json:"duration"`

	AverageBitrate float64 `json:"average_bitrate"` // bps
	MaxBitrate     float64 `json:"max_bitrate"`
	MinBitrate     float64 `json:"min_bitrate"`

	// BitrateVariance is the coefficient of variation (stddev / mean).
	BitrateVariance float64 `json:"bitrate_variance"`

	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`

	DataPoints     []BitratePoint `json:"data_points"`
	SampleInterval time.Duration  `json:"sample_interval"`
}

// IsCBR reports whether the bitrate is effectively constant (CV below 10%).
func (v *VideoAnalysis) IsCBR() bool { return v.BitrateVariance < 0.10 }

// EncodingType classifies the stream as CBR or VBR.
func (v *VideoAnalysis) EncodingType() string {
	if v.IsCBR() {
		return "CBR"
	}
	return "VBR"
}

// VideoAnalyzer samples video packet sizes to build a bitrate profile.
type VideoAnalyzer struct {
	sampler  Sampler
	interval time.Duration
	logger   *slog.Logger
}

// NewVideoAnalyzer creates a video bitrate analyzer sampling at the given
// interval.
func NewVideoAnalyzer(sampler Sampler, interval time.Duration, logger *slog.Logger) *VideoAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &VideoAnalyzer{sampler: sampler, interval: interval, logger: logger}
}

// Name returns the aspect name.
func (a *VideoAnalyzer) Name() string { return "video" }

// Analyze samples the file's video bitrate across its duration.
func (a *VideoAnalyzer) Analyze(ctx context.Context, f *media.File) (*VideoAnalysis, error) {
	meta, err := f.LoadMetadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("video analysis of %s: %w", f.Path(), err)
	}
	if !meta.HasVideo() {
		return nil, fmt.Errorf("%s: %w", f.Path(), ErrNoVideoStream)
	}
	if meta.Duration <= 0 {
		return nil, fmt.Errorf("%s: %w", f.Path(), ErrInvalidDuration)
	}

	interval := NormalizeInterval(a.interval, meta.Duration)
	step := interval.Seconds()

	series := timeseries.New(int(meta.Duration/step) + 1)
	var points []BitratePoint

	for t := 0.0; t < meta.Duration; t += step {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		bitrate := a.sampleAt(ctx, f.Path(), t, meta.VideoBitRate, meta.BitRate)
		series.Add(t, bitrate)
		points = append(points, BitratePoint{Timestamp: t, Bitrate: bitrate})
	}

	stats := series.Stats()
	a.logger.Debug("video_analysis_complete",
		"path", f.Path(),
		"samples", stats.Count,
		"avg_bps", stats.Mean,
		"cv", stats.CV,
	)

	return &VideoAnalysis{
		FilePath:        f.Path(),
		Duration:        meta.Duration,
		AverageBitrate:  stats.Mean,
		MaxBitrate:      stats.Max,
		MinBitrate:      stats.Min,
		BitrateVariance: stats.CV,
		P50:             stats.P50,
		P95:             stats.P95,
		P99:             stats.P99,
		DataPoints:      points,
		SampleInterval:  interval,
	}, nil
}

// sampleAt measures bitrate in a window centered on t, falling back to stream
// metadata when the window yields no packets.
func (a *VideoAnalyzer) sampleAt(ctx context.Context, path string, t float64, streamBitrate, formatBitrate int64) float64 {
	packets, err := a.sampler.PacketsInWindow(ctx, path, "v:0", windowStart(t), sampleWindow)
	if err == nil {
		if bitrate, ok := bitrateFromPackets(packets, sampleWindow); ok {
			return bitrate
		}
	} else {
		a.logger.Debug("video_sample_failed", "path", path, "timestamp", t, "error", err)
	}

	if streamBitrate > 0 {
		return float64(streamBitrate)
	}
	if formatBitrate > 0 {
		return float64(formatBitrate) * 0.8
	}
	return defaultVideoBitrate
}
