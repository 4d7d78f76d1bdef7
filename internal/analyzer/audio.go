package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/huiping192/video-analytics/internal/media"
	"github.com/huiping192/video-analytics/internal/timeseries"
)

// AudioAnalysis is the immutable result of an audio bitrate analysis.
type AudioAnalysis struct {
	FilePath string  `json:"file_path"`
	Duration float64 `json:"duration"`

	Codec      string `json:"codec"`
	Channels   int    `json:"channels"`
	SampleRate int    `json:"sample_rate"`

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

// Stability scores bitrate steadiness in [0, 1]; 1 means perfectly steady.
func (a *AudioAnalysis) Stability() float64 {
	s := 1 - a.BitrateVariance
	if s < 0 {
		return 0
	}
	return s
}

// QualityLevel grades the audio bitrate against codec-specific ladders.
func (a *AudioAnalysis) QualityLevel() string {
	kbps := a.AverageBitrate / 1000

	switch a.Codec {
	case "mp3":
		switch {
		case kbps >= 320:
			return "Excellent"
		case kbps >= 192:
			return "Good"
		case kbps >= 128:
			return "Fair"
		default:
			return "Poor"
		}
	default: // aac and modern codecs
		switch {
		case kbps >= 256:
			return "Excellent"
		case kbps >= 128:
			return "Good"
		case kbps >= 96:
			return "Fair"
		default:
			return "Poor"
		}
	}
}

// AudioAnalyzer samples audio packet sizes to build a bitrate profile.
type AudioAnalyzer struct {
	sampler  Sampler
	interval time.Duration
	logger   *slog.Logger
}

// NewAudioAnalyzer creates an audio bitrate analyzer sampling at the given
// interval.
func NewAudioAnalyzer(sampler Sampler, interval time.Duration, logger *slog.Logger) *AudioAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &AudioAnalyzer{sampler: sampler, interval: interval, logger: logger}
}

// Name returns the aspect name.
func (a *AudioAnalyzer) Name() string { return "audio" }

// Analyze samples the file's audio bitrate across its duration.
func (a *AudioAnalyzer) Analyze(ctx context.Context, f *media.File) (*AudioAnalysis, error) {
	meta, err := f.LoadMetadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("audio analysis of %s: %w", f.Path(), err)
	}
	if !meta.HasAudio() {
		return nil, fmt.Errorf("%s: %w", f.Path(), ErrNoAudioStream)
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

		bitrate := a.sampleAt(ctx, f.Path(), t, meta.AudioBitRate, meta.BitRate)
		series.Add(t, bitrate)
		points = append(points, BitratePoint{Timestamp: t, Bitrate: bitrate})
	}

	stats := series.Stats()
	a.logger.Debug("audio_analysis_complete",
		"path", f.Path(),
		"samples", stats.Count,
		"avg_bps", stats.Mean,
		"cv", stats.CV,
	)

	return &AudioAnalysis{
		FilePath:        f.Path(),
		Duration:        meta.Duration,
		Codec:           meta.AudioCodec,
		Channels:        meta.Channels,
		SampleRate:      meta.SampleRate,
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
func (a *AudioAnalyzer) sampleAt(ctx context.Context, path string, t float64, streamBitrate, formatBitrate int64) float64 {
	packets, err := a.sampler.PacketsInWindow(ctx, path, "a:0", windowStart(t), sampleWindow)
	if err == nil {
		if bitrate, ok := bitrateFromPackets(packets, sampleWindow); ok {
			return bitrate
		}
	} else {
		a.logger.Debug("audio_sample_failed", "path", path, "timestamp", t, "error", err)
	}

	if streamBitrate > 0 {
		return float64(streamBitrate)
	}
	if formatBitrate > 0 {
		return float64(formatBitrate) * 0.1
	}
	return defaultAudioBitrate
}
