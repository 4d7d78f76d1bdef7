package engine

import (
	"time"

	"github.com/huiping192/video-analytics/internal/analyzer"
	"github.com/huiping192/video-analytics/internal/probe"
)

// CombinedResult aggregates the per-aspect analyses of one file. Aspect
// fields are nil when the aspect was skipped or failed; callers check the
// Has* accessors before dereferencing. Immutable once returned.
type CombinedResult struct {
	ReportID string  `json:"report_id"`
	FilePath string  `json:"file_path"`
	Duration float64 `json:"duration"`

	AnalysisTime  time.Time     `json:"analysis_time"`
	ExecutionTime time.Duration `json:"execution_time"`

	Video *analyzer.VideoAnalysis `json:"video,omitempty"`
	Audio *analyzer.AudioAnalysis `json:"audio,omitempty"`
	FPS   *analyzer.FPSAnalysis   `json:"fps,omitempty"`

	SharedMetadata *probe.Metadata `json:"shared_metadata,omitempty"`

	// ParallelEfficiency is an advisory heuristic comparing elapsed time
	// against a fixed per-task baseline. It is not a measured speedup.
	ParallelEfficiency float64 `json:"parallel_efficiency"`

	TasksCompleted int `json:"tasks_completed"`
	TasksFailed    int `json:"tasks_failed"`
}

// HasVideoAnalysis reports whether video analysis succeeded.
func (r *CombinedResult) HasVideoAnalysis() bool { return r.Video != nil }

// HasAudioAnalysis reports whether audio analysis succeeded.
func (r *CombinedResult) HasAudioAnalysis() bool { return r.Audio != nil }

// HasFPSAnalysis reports whether fps analysis succeeded.
func (r *CombinedResult) HasFPSAnalysis() bool { return r.FPS != nil }

// SuccessRate returns completed/(completed+failed), or 0 when nothing ran.
func (r *CombinedResult) SuccessRate() float64 {
	total := r.TasksCompleted + r.TasksFailed
	if total == 0 {
		return 0
	}
	return float64(r.TasksCompleted) / float64(total)
}
