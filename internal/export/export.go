// Package export writes combined analysis results as JSON reports and
// per-aspect CSV series.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/huiping192/video-analytics/internal/analyzer"
	"github.com/huiping192/video-analytics/internal/engine"
	"github.com/huiping192/video-analytics/internal/probe"
)

// jsonReport is the exported JSON document layout.
type jsonReport struct {
	ReportID    string    `json:"report_id"`
	GeneratedAt time.Time `json:"generated_at"`

	File struct {
		Path               string  `json:"path"`
		Duration           float64 `json:"duration"`
		ExecutionSeconds   float64 `json:"execution_seconds"`
		ParallelEfficiency float64 `json:"parallel_efficiency"`
		SuccessRate        float64 `json:"success_rate"`
		TasksCompleted     int     `json:"tasks_completed"`
		TasksFailed        int     `json:"tasks_failed"`
	} `json:"file"`

	Metadata *probe.Metadata `json:"metadata,omitempty"`

	Video *videoSection `json:"video,omitempty"`
	Audio *audioSection `json:"audio,omitempty"`
	FPS   *fpsSection   `json:"fps,omitempty"`
}

type videoSection struct {
	*analyzer.VideoAnalysis
	EncodingType string `json:"encoding_type"`
}

type audioSection struct {
	*analyzer.AudioAnalysis
	Stability    float64 `json:"stability"`
	QualityLevel string  `json:"quality_level"`
}

type fpsSection struct {
	*analyzer.FPSAnalysis
	Stability        float64 `json:"stability"`
	DropRate         float64 `json:"drop_rate"`
	PerformanceGrade string  `json:"performance_grade"`
}

// buildReport assembles the JSON document from a combined result.
func buildReport(result *engine.CombinedResult) *jsonReport {
	report := &jsonReport{
		ReportID:    result.ReportID,
		GeneratedAt: time.Now().UTC(),
		Metadata:    result.SharedMetadata,
	}
	report.File.Path = result.FilePath
	report.File.Duration = result.Duration
	report.File.ExecutionSeconds = result.ExecutionTime.Seconds()
	report.File.ParallelEfficiency = result.ParallelEfficiency
	report.File.SuccessRate = result.SuccessRate()
	report.File.TasksCompleted = result.TasksCompleted
	report.File.TasksFailed = result.TasksFailed

	if result.HasVideoAnalysis() {
		report.Video = &videoSection{
			VideoAnalysis: result.Video,
			EncodingType:  result.Video.EncodingType(),
		}
	}
	if result.HasAudioAnalysis() {
		report.Audio = &audioSection{
			AudioAnalysis: result.Audio,
			Stability:     result.Audio.Stability(),
			QualityLevel:  result.Audio.QualityLevel(),
		}
	}
	if result.HasFPSAnalysis() {
		report.FPS = &fpsSection{
			FPSAnalysis:      result.FPS,
			Stability:        result.FPS.Stability(),
			DropRate:         result.FPS.DropRate(),
			PerformanceGrade: result.FPS.PerformanceGrade(),
		}
	}

	return report
}

// WriteJSON writes the combined result as an indented JSON report.
func WriteJSON(result *engine.CombinedResult, path string) error {
	data, err := json.MarshalIndent(buildReport(result), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

// WriteCSV writes one CSV file per analyzed aspect into dir and returns the
// paths written.
func WriteCSV(result *engine.CombinedResult, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	base := baseName(result.FilePath)
	var written []string

	if result.HasVideoAnalysis() {
		path := filepath.Join(dir, base+"_video_bitrate.csv")
		if err := writeBitrateCSV(path, result.Video.DataPoints); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	if result.HasAudioAnalysis() {
		path := filepath.Join(dir, base+"_audio_bitrate.csv")
		if err := writeBitrateCSV(path, result.Audio.DataPoints); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	if result.HasFPSAnalysis() {
		path := filepath.Join(dir, base+"_fps.csv")
		if err := writeFPSCSV(path, result.FPS.DataPoints); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	return written, nil
}

func writeBitrateCSV(path string, points []analyzer.BitratePoint) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"timestamp", "bitrate_mbps"}); err != nil {
		return err
	}
	for _, p := range points {
		record := []string{
			strconv.FormatFloat(p.Timestamp, 'f', 3, 64),
			strconv.FormatFloat(p.Bitrate/1_000_000, 'f', 4, 64),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeFPSCSV(path string, points []analyzer.FPSPoint) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"timestamp", "fps", "frame_count", "dropped_frames"}); err != nil {
		return err
	}
	for _, p := range points {
		record := []string{
			strconv.FormatFloat(p.Timestamp, 'f', 3, 64),
			strconv.FormatFloat(p.FPS, 'f', 2, 64),
			strconv.Itoa(p.FrameCount),
			strconv.Itoa(p.DroppedFrames),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// baseName strips the directory and extension from a media path for use in
// output filenames.
func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
