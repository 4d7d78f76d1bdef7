package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/huiping192/video-analytics/internal/media"
	"github.com/huiping192/video-analytics/internal/timeseries"
)

// dropGapFactor marks an inter-frame gap as containing dropped frames when it
// exceeds the expected interval by this factor.
const dropGapFactor = 1.3

// FPSPoint is one sampled frame rate measurement.
type FPSPoint struct {
	Timestamp     float64 `json:"timestamp"` // seconds from start of file
	FPS           float64 `json:"fps"`
	FrameCount    int     `json:"frame_count"`
	DroppedFrames int     `json:"dropped_frames"`
}

// FPSAnalysis is the immutable result of a frame rate analysis.
type FPSAnalysis struct {
	FilePath string  `json:"file_path"`
	Duration float64 `json:"duration"`

	DeclaredFPS      float64 `json:"declared_fps"`
	ActualAverageFPS float64 `json:"actual_average_fps"`
	MaxFPS           float64 `json:"max_fps"`
	MinFPS           float64 `json:"min_fps"`

	// FPSVariance is the coefficient of variation (stddev / mean).
	FPSVariance float64 `json:"fps_variance"`

	TotalFrames        int `json:"total_frames"`
	TotalDroppedFrames int `json:"total_dropped_frames"`

	DataPoints     []FPSPoint    `json:"data_points"`
	SampleInterval time.Duration `json:"sample_interval"`
}

// Stability scores frame rate steadiness in [0, 1]; 1 means perfectly steady.
func (f *FPSAnalysis) Stability() float64 {
	s := 1 - f.FPSVariance
	if s < 0 {
		return 0
	}
	return s
}

// DropRate returns the fraction of expected frames that were dropped.
func (f *FPSAnalysis) DropRate() float64 {
	total := f.TotalFrames + f.TotalDroppedFrames
	if total == 0 {
		return 0
	}
	return float64(f.TotalDroppedFrames) / float64(total)
}

// PerformanceGrade rates playback smoothness from stability and drop rate.
func (f *FPSAnalysis) PerformanceGrade() string {
	stability := f.Stability()
	dropRate := f.DropRate()

	switch {
	case stability >= 0.95 && dropRate < 0.01:
		return "Excellent"
	case stability >= 0.85 && dropRate < 0.03:
		return "Good"
	case stability >= 0.70 && dropRate < 0.05:
		return "Fair"
	default:
		return "Poor"
	}
}

// IsVFR reports whether the measured frame rate varies enough to call the
// stream variable frame rate (CV above 10%).
func (f *FPSAnalysis) IsVFR() bool { return f.FPSVariance > 0.10 }

// FPSAnalyzer samples frame timestamps to measure actual frame rate and
// detect dropped frames.
type FPSAnalyzer struct {
	sampler  Sampler
	interval time.Duration
	logger   *slog.Logger
}

// NewFPSAnalyzer creates a frame rate analyzer sampling at the given interval.
func NewFPSAnalyzer(sampler Sampler, interval time.Duration, logger *slog.Logger) *FPSAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &FPSAnalyzer{sampler: sampler, interval: interval, logger: logger}
}

// Name returns the aspect name.
func (a *FPSAnalyzer) Name() string { return "fps" }

// Analyze samples the file's actual frame rate across its duration.
func (a *FPSAnalyzer) Analyze(ctx context.Context, f *media.File) (*FPSAnalysis, error) {
	meta, err := f.LoadMetadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("fps analysis of %s: %w", f.Path(), err)
	}
	if !meta.HasVideo() {
		return nil, fmt.Errorf("%s: %w", f.Path(), ErrNoVideoStream)
	}
	if meta.FrameRate <= 0 {
		return nil, fmt.Errorf("%s: %w", f.Path(), ErrNoFrameRate)
	}
	if meta.Duration <= 0 {
		return nil, fmt.Errorf("%s: %w", f.Path(), ErrInvalidDuration)
	}

	interval := NormalizeInterval(a.interval, meta.Duration)
	step := interval.Seconds()

	series := timeseries.New(int(meta.Duration/step) + 1)
	var points []FPSPoint
	var totalFrames, totalDropped int

	for t := 0.0; t < meta.Duration; t += step {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		point := a.sampleAt(ctx, f.Path(), t, meta.FrameRate)
		series.Add(t, point.FPS)
		points = append(points, point)
		totalFrames += point.FrameCount
		totalDropped += point.DroppedFrames
	}

	stats := series.Stats()
	a.logger.Debug("fps_analysis_complete",
		"path", f.Path(),
		"samples", stats.Count,
		"avg_fps", stats.Mean,
		"dropped", totalDropped,
	)

	return &FPSAnalysis{
		FilePath:           f.Path(),
		Duration:           meta.Duration,
		DeclaredFPS:        meta.FrameRate,
		ActualAverageFPS:   stats.Mean,
		MaxFPS:             stats.Max,
		MinFPS:             stats.Min,
		FPSVariance:        stats.CV,
		TotalFrames:        totalFrames,
		TotalDroppedFrames: totalDropped,
		DataPoints:         points,
		SampleInterval:     interval,
	}, nil
}

// sampleAt measures fps over [t, t+window). A probe failure falls back to the
// declared rate; a window with fewer than two frames (end of file) yields a
// zero point.
func (a *FPSAnalyzer) sampleAt(ctx context.Context, path string, t, declared float64) FPSPoint {
	times, err := a.sampler.FrameTimesInWindow(ctx, path, t, sampleWindow)
	if err != nil {
		a.logger.Debug("fps_sample_failed", "path", path, "timestamp", t, "error", err)
		return FPSPoint{Timestamp: t, FPS: declared}
	}

	// Gap detection needs presentation order; samplers reading raw packet
	// data report decode order when the stream has B-frames.
	sort.Float64s(times)

	if len(times) < 2 {
		return FPSPoint{Timestamp: t, FrameCount: len(times)}
	}

	span := times[len(times)-1] - times[0]
	if span <= 0 {
		return FPSPoint{Timestamp: t, FrameCount: len(times)}
	}

	fps := float64(len(times)-1) / span
	dropped := countDroppedFrames(times, declared)

	return FPSPoint{
		Timestamp:     t,
		FPS:           fps,
		FrameCount:    len(times),
		DroppedFrames: dropped,
	}
}

// countDroppedFrames estimates dropped frames from inter-frame gaps larger
// than the expected interval.
func countDroppedFrames(times []float64, declared float64) int {
	if declared <= 0 {
		return 0
	}
	expected := 1 / declared

	var dropped int
	for i := 1; i < len(times); i++ {
		gap := times[i] - times[i-1]
		if gap > expected*dropGapFactor {
			missed := int(math.Round(gap/expected)) - 1
			if missed > 0 {
				dropped += missed
			}
		}
	}
	return dropped
}
