// Package engine coordinates the per-aspect analyzers, running them in
// parallel against one probed file with a shared deadline.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/huiping192/video-analytics/internal/analyzer"
	"github.com/huiping192/video-analytics/internal/config"
	"github.com/huiping192/video-analytics/internal/media"
	"github.com/huiping192/video-analytics/internal/probe"
)

// ErrNoApplicableTasks indicates no enabled analyzer applies to the file.
var ErrNoApplicableTasks = errors.New("no applicable analysis tasks")

// Aspect names one analysis dimension.
type Aspect string

const (
	AspectVideo Aspect = "video"
	AspectAudio Aspect = "audio"
	AspectFPS   Aspect = "fps"
)

// VideoAnalyzer produces a video bitrate analysis.
type VideoAnalyzer interface {
	Analyze(ctx context.Context, f *media.File) (*analyzer.VideoAnalysis, error)
}

// AudioAnalyzer produces an audio bitrate analysis.
type AudioAnalyzer interface {
	Analyze(ctx context.Context, f *media.File) (*analyzer.AudioAnalysis, error)
}

// FPSAnalyzer produces a frame rate analysis.
type FPSAnalyzer interface {
	Analyze(ctx context.Context, f *media.File) (*analyzer.FPSAnalysis, error)
}

// Observer receives engine measurements. Implementations must be safe for
// concurrent use. A nil Observer disables observation.
type Observer interface {
	ObserveTask(aspect string, d time.Duration, success bool)
	ObserveAnalysis(d time.Duration, efficiency, successRate float64)
	SetCacheSize(n int)
}

// taskResult carries one analyzer's outcome back to the barrier.
type taskResult struct {
	aspect   Aspect
	video    *analyzer.VideoAnalysis
	audio    *analyzer.AudioAnalysis
	fps      *analyzer.FPSAnalysis
	err      error
	duration time.Duration
}

// Engine fans analysis tasks out to the analyzers and assembles the combined
// result. Safe for concurrent use across files.
type Engine struct {
	cfg      *config.Config
	cache    *media.MetadataCache
	video    VideoAnalyzer
	audio    AudioAnalyzer
	fps      FPSAnalyzer
	observer Observer
	logger   *slog.Logger
}

// New creates an engine. observer may be nil.
func New(cfg *config.Config, cache *media.MetadataCache, video VideoAnalyzer, audio AudioAnalyzer, fps FPSAnalyzer, observer Observer, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:      cfg,
		cache:    cache,
		video:    video,
		audio:    audio,
		fps:      fps,
		observer: observer,
		logger:   logger,
	}
}

// AnalyzeAll runs every applicable analyzer concurrently and returns the
// combined result. Individual analyzer failures are absorbed into the
// failure count; only task construction problems return an error. When the
// batch deadline or ctx expires, every outstanding task is abandoned and the
// whole batch counts as failed.
func (e *Engine) AnalyzeAll(ctx context.Context, f *media.File) (*CombinedResult, error) {
	start := time.Now()

	var meta *probe.Metadata
	if e.cfg.EnableMetadataSharing {
		m, err := e.cache.GetOrLoad(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("loading metadata for %s: %w", f.Path(), err)
		}
		meta = m
		if e.observer != nil {
			e.observer.SetCacheSize(e.cache.Size())
		}
	}

	tasks := e.buildTasks(meta)
	if len(tasks) == 0 {
		return nil, fmt.Errorf("%s: %w", f.Path(), ErrNoApplicableTasks)
	}

	e.logger.Info("analysis_started",
		"path", f.Path(),
		"tasks", len(tasks),
		"metadata_sharing", e.cfg.EnableMetadataSharing,
		"timeout", e.cfg.TaskTimeout,
	)

	// Workers abandoned at the barrier must not keep probing in the
	// background; cancelling the derived context stops them.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan taskResult, len(tasks))
	for _, aspect := range tasks {
		go e.runTask(ctx, aspect, f, results)
	}

	result := &CombinedResult{
		ReportID:       uuid.NewString(),
		FilePath:       f.Path(),
		AnalysisTime:   start,
		SharedMetadata: meta,
	}
	if meta != nil {
		result.Duration = meta.Duration
	}

	timer := time.NewTimer(e.cfg.TaskTimeout)
	defer timer.Stop()

	timedOut := false
barrier:
	for received := 0; received < len(tasks); received++ {
		select {
		case r := <-results:
			e.collect(result, r)
		case <-timer.C:
			timedOut = true
			break barrier
		case <-ctx.Done():
			timedOut = true
			break barrier
		}
	}

	if timedOut {
		// Blanket policy: one deadline covers the batch, and expiry fails
		// everything, including tasks that already finished.
		e.logger.Warn("analysis_timed_out", "path", f.Path(), "timeout", e.cfg.TaskTimeout)
		result.Video = nil
		result.Audio = nil
		result.FPS = nil
		result.TasksCompleted = 0
		result.TasksFailed = len(tasks)
	}

	result.ExecutionTime = time.Since(start)
	result.ParallelEfficiency = parallelEfficiency(e.cfg.BaselineTaskDuration, len(tasks), result.ExecutionTime)
	if result.Duration == 0 {
		result.Duration = durationFromAnalyses(result)
	}

	if e.observer != nil {
		e.observer.ObserveAnalysis(result.ExecutionTime, result.ParallelEfficiency, result.SuccessRate())
	}

	e.logger.Info("analysis_complete",
		"path", f.Path(),
		"completed", result.TasksCompleted,
		"failed", result.TasksFailed,
		"execution_time", result.ExecutionTime,
		"efficiency", result.ParallelEfficiency,
	)

	return result, nil
}

// AnalyzeSingle runs one aspect synchronously. Unlike AnalyzeAll, the
// analyzer's error is propagated.
func (e *Engine) AnalyzeSingle(ctx context.Context, f *media.File, aspect Aspect) (*CombinedResult, error) {
	start := time.Now()

	result := &CombinedResult{
		ReportID:     uuid.NewString(),
		FilePath:     f.Path(),
		AnalysisTime: start,
	}

	var err error
	switch aspect {
	case AspectVideo:
		result.Video, err = e.video.Analyze(ctx, f)
	case AspectAudio:
		result.Audio, err = e.audio.Analyze(ctx, f)
	case AspectFPS:
		result.FPS, err = e.fps.Analyze(ctx, f)
	default:
		return nil, fmt.Errorf("unknown aspect %q", aspect)
	}
	if err != nil {
		return nil, err
	}

	result.TasksCompleted = 1
	result.ExecutionTime = time.Since(start)
	result.ParallelEfficiency = parallelEfficiency(e.cfg.BaselineTaskDuration, 1, result.ExecutionTime)
	result.Duration = durationFromAnalyses(result)

	return result, nil
}

// ClearCache empties the shared metadata cache.
func (e *Engine) ClearCache() {
	e.cache.Clear()
	if e.observer != nil {
		e.observer.SetCacheSize(0)
	}
}

// PerformanceStats is a diagnostic snapshot of the engine's configuration
// and cache state.
type PerformanceStats struct {
	MaxWorkers           int           `json:"max_workers"`
	TaskTimeout          time.Duration `json:"task_timeout"`
	MetadataSharing      bool          `json:"metadata_sharing"`
	BaselineTaskDuration time.Duration `json:"baseline_task_duration"`
	CachedFiles          int           `json:"cached_files"`
	VideoEnabled         bool          `json:"video_enabled"`
	AudioEnabled         bool          `json:"audio_enabled"`
	FPSEnabled           bool          `json:"fps_enabled"`
}

// PerformanceStats returns the engine's diagnostic snapshot.
func (e *Engine) PerformanceStats() PerformanceStats {
	return PerformanceStats{
		MaxWorkers:           e.cfg.MaxWorkers,
		TaskTimeout:          e.cfg.TaskTimeout,
		MetadataSharing:      e.cfg.EnableMetadataSharing,
		BaselineTaskDuration: e.cfg.BaselineTaskDuration,
		CachedFiles:          e.cache.Size(),
		VideoEnabled:         e.cfg.EnableVideo,
		AudioEnabled:         e.cfg.EnableAudio,
		FPSEnabled:           e.cfg.EnableFPS,
	}
}

// buildTasks selects applicable aspects in fixed (video, audio, fps) order.
// Without shared metadata the stream predicates cannot be evaluated here, so
// every enabled aspect becomes a task and the analyzer validates the stream
// itself.
func (e *Engine) buildTasks(meta *probe.Metadata) []Aspect {
	var tasks []Aspect
	if e.cfg.EnableVideo && (meta == nil || meta.HasVideo()) {
		tasks = append(tasks, AspectVideo)
	}
	if e.cfg.EnableAudio && (meta == nil || meta.HasAudio()) {
		tasks = append(tasks, AspectAudio)
	}
	if e.cfg.EnableFPS && (meta == nil || (meta.HasVideo() && meta.FrameRate > 0)) {
		tasks = append(tasks, AspectFPS)
	}
	return tasks
}

// runTask executes one analyzer, recovering panics into task errors.
func (e *Engine) runTask(ctx context.Context, aspect Aspect, f *media.File, out chan<- taskResult) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			out <- taskResult{
				aspect:   aspect,
				err:      fmt.Errorf("%s analyzer panicked: %v", aspect, r),
				duration: time.Since(start),
			}
		}
	}()

	r := taskResult{aspect: aspect}
	switch aspect {
	case AspectVideo:
		r.video, r.err = e.video.Analyze(ctx, f)
	case AspectAudio:
		r.audio, r.err = e.audio.Analyze(ctx, f)
	case AspectFPS:
		r.fps, r.err = e.fps.Analyze(ctx, f)
	}
	r.duration = time.Since(start)

	out <- r
}

// collect merges one task outcome into the combined result. Results land in
// fixed per-aspect fields, so arrival order never changes the mapping.
func (e *Engine) collect(result *CombinedResult, r taskResult) {
	if e.observer != nil {
		e.observer.ObserveTask(string(r.aspect), r.duration, r.err == nil)
	}

	if r.err != nil {
		e.logger.Warn("analysis_task_failed", "aspect", r.aspect, "error", r.err)
		result.TasksFailed++
		return
	}

	switch r.aspect {
	case AspectVideo:
		result.Video = r.video
	case AspectAudio:
		result.Audio = r.audio
	case AspectFPS:
		result.FPS = r.fps
	}
	result.TasksCompleted++
}

// parallelEfficiency compares elapsed wall clock against the per-task
// baseline. Purely advisory.
func parallelEfficiency(baseline time.Duration, n int, elapsed time.Duration) float64 {
	if n == 0 || elapsed <= 0 {
		return 1
	}
	eff := baseline.Seconds() * float64(n) / (elapsed.Seconds() * float64(n))
	if eff > 1 {
		return 1
	}
	return eff
}

// durationFromAnalyses recovers the file duration from whichever analysis
// succeeded when no shared metadata was loaded.
func durationFromAnalyses(r *CombinedResult) float64 {
	switch {
	case r.Video != nil:
		return r.Video.Duration
	case r.Audio != nil:
		return r.Audio.Duration
	case r.FPS != nil:
		return r.FPS.Duration
	}
	return 0
}
