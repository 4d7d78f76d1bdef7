// Package main provides the video-analytics CLI entry point.
//
// video-analytics samples local or remote video files with ffprobe, running
// the video bitrate, audio bitrate, and frame rate analyzers in parallel
// against shared metadata, and reports encoding characteristics, quality
// grades, and dropped frames.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/huiping192/video-analytics/internal/analyzer"
	"github.com/huiping192/video-analytics/internal/config"
	"github.com/huiping192/video-analytics/internal/download"
	"github.com/huiping192/video-analytics/internal/engine"
	"github.com/huiping192/video-analytics/internal/export"
	"github.com/huiping192/video-analytics/internal/logging"
	"github.com/huiping192/video-analytics/internal/media"
	"github.com/huiping192/video-analytics/internal/metrics"
	"github.com/huiping192/video-analytics/internal/preflight"
	"github.com/huiping192/video-analytics/internal/probe"
	"github.com/huiping192/video-analytics/internal/tui"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0" ./cmd/video-analytics
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// Handle version flag early (before flag parsing)
	if len(os.Args) > 1 {
		arg := os.Args[1]
		if arg == "-version" || arg == "--version" || arg == "version" {
			fmt.Printf("video-analytics %s\n", version)
			return 0
		}
	}

	// Optional .env for local overrides; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.ParseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		return 1
	}

	// When TUI is enabled, suppress logs to avoid interfering with rendering.
	var logger *slog.Logger
	if cfg.TUIEnabled {
		logger = logging.NewLoggerWithWriter(io.Discard, "json", "info")
	} else {
		logger = logging.NewLogger(cfg.LogFormat, "info", cfg.Verbose)
	}
	logging.SetDefault(logger)

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}

	if !cfg.SkipPreflight {
		result := preflight.RunAll(cfg.FFprobePath, cfg.FFmpegPath, cfg.Inputs)
		if !cfg.TUIEnabled {
			preflight.PrintResults(result)
		}
		if !result.Passed {
			fmt.Fprintln(os.Stderr, "Preflight checks failed (use -skip-preflight to override)")
			return 1
		}
	}

	logger.Info("starting",
		"version", version,
		"inputs", len(cfg.Inputs),
		"video", cfg.EnableVideo,
		"audio", cfg.EnableAudio,
		"fps", cfg.EnableFPS,
		"preset", cfg.Preset,
		"metrics_addr", cfg.MetricsAddr,
	)

	if !cfg.TUIEnabled {
		printBanner(cfg)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var collector *metrics.Collector
	if cfg.MetricsAddr != "" {
		collector = metrics.NewCollector()
		srv := metrics.NewServer(cfg.MetricsAddr, logger)
		if err := srv.Start(); err != nil {
			logger.Error("metrics_server_failed", "error", err)
			return 1
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	b := newBatch(cfg, collector, logger)

	if cfg.TUIEnabled {
		return runWithTUI(ctx, b)
	}

	failed := b.run(ctx, nil)
	b.printSummary()
	if failed == len(cfg.Inputs) {
		return 1
	}
	return 0
}

// runWithTUI drives the batch under a Bubble Tea dashboard. The failure count
// travels over a channel so quitting mid-batch still waits for the batch
// goroutine instead of racing it.
func runWithTUI(ctx context.Context, b *batch, opts ...tea.ProgramOption) int {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)
	p := tea.NewProgram(tui.New(b.cfg.Inputs), opts...)

	done := make(chan int, 1)
	go func() {
		failed := b.run(ctx, p.Send)
		p.Send(tui.BatchDoneMsg{})
		done <- failed
	}()

	_, err := p.Run()

	// Quitting early abandons the remaining inputs.
	cancel()
	failed := <-done

	if err != nil {
		fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
		return 1
	}

	b.printSummary()
	if failed == len(b.cfg.Inputs) {
		return 1
	}
	return 0
}

// batch drives the sequential per-input analysis loop.
type batch struct {
	cfg       *config.Config
	collector *metrics.Collector
	logger    *slog.Logger

	prober    *probe.Prober
	processor *media.Processor
	cache     *media.MetadataCache

	start      time.Time
	succeeded  int
	failedRuns int
}

func newBatch(cfg *config.Config, collector *metrics.Collector, logger *slog.Logger) *batch {
	prober := probe.NewProber(cfg.FFprobePath, cfg.ProbeTimeout)
	return &batch{
		cfg:       cfg,
		collector: collector,
		logger:    logger,
		prober:    prober,
		processor: media.NewProcessor(prober),
		cache:     media.NewMetadataCache(logger),
		start:     time.Now(),
	}
}

// run analyzes every input sequentially. notify, when non-nil, receives TUI
// messages. Returns the number of failed inputs.
func (b *batch) run(ctx context.Context, notify func(tea.Msg)) int {
	downloader := b.newDownloader()

	for i, input := range b.cfg.Inputs {
		if notify != nil {
			notify(tui.FileStartedMsg{Index: i})
		}

		fileStart := time.Now()
		result, err := b.analyzeInput(ctx, input, downloader)
		elapsed := time.Since(fileStart)

		if err != nil {
			b.failedRuns++
			b.logger.Error("input_failed", "input", input, "error", err)
			if notify != nil {
				notify(tui.FileDoneMsg{Index: i, Elapsed: elapsed, Err: err})
			} else {
				fmt.Fprintf(os.Stderr, "✗ %s: %v\n", input, err)
			}
			continue
		}

		b.succeeded++
		if notify != nil {
			notify(tui.FileDoneMsg{
				Index:      i,
				Completed:  result.TasksCompleted,
				Failed:     result.TasksFailed,
				Efficiency: result.ParallelEfficiency,
				Elapsed:    elapsed,
			})
		} else {
			printResult(input, result)
		}
	}

	return b.failedRuns
}

// analyzeInput resolves one input (downloading remote URLs), applies the
// preset for its duration, and runs the full analysis.
func (b *batch) analyzeInput(ctx context.Context, input string, downloader *download.HLSDownloader) (*engine.CombinedResult, error) {
	path := input
	if download.IsRemoteURL(input) {
		local, err := downloader.Download(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("downloading: %w", err)
		}
		path = local
	}

	f, err := b.processor.Process(ctx, path)
	if err != nil {
		return nil, err
	}

	meta, err := f.LoadMetadata(ctx)
	if err != nil {
		return nil, err
	}

	// Presets that depend on duration apply per file. Copy the config so one
	// long input does not stretch intervals for the rest of the batch.
	runCfg := *b.cfg
	runCfg.ApplyPreset(time.Duration(meta.Duration * float64(time.Second)))

	eng := engine.New(&runCfg,
		b.cache,
		analyzer.NewVideoAnalyzer(b.prober, runCfg.VideoInterval, b.logger),
		analyzer.NewAudioAnalyzer(b.prober, runCfg.AudioInterval, b.logger),
		analyzer.NewFPSAnalyzer(b.prober, runCfg.FPSInterval, b.logger),
		observerOrNil(b.collector),
		b.logger,
	)

	result, err := eng.AnalyzeAll(ctx, f)
	if err != nil {
		return nil, err
	}

	if err := b.export(input, result); err != nil {
		return nil, err
	}
	return result, nil
}

// export writes the configured report formats for one result.
func (b *batch) export(input string, result *engine.CombinedResult) error {
	if b.cfg.ExportJSON {
		name := exportBaseName(input) + "_report.json"
		path := filepath.Join(b.cfg.OutputDir, name)
		if err := export.WriteJSON(result, path); err != nil {
			return err
		}
		b.logger.Info("report_written", "path", path)
	}
	if b.cfg.ExportCSV {
		written, err := export.WriteCSV(result, b.cfg.OutputDir)
		if err != nil {
			return err
		}
		b.logger.Info("csv_written", "files", len(written))
	}
	return nil
}

// newDownloader builds the remote input downloader, with the content cache
// when a cache dir can be resolved.
func (b *batch) newDownloader() *download.HLSDownloader {
	dir := b.cfg.CacheDir
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".video-analytics-cache")
		}
	}

	var cache *download.Cache
	if dir != "" {
		c, err := download.NewCache(dir, b.cfg.CacheMaxSizeGB, b.logger)
		if err != nil {
			b.logger.Warn("download_cache_unavailable", "dir", dir, "error", err)
		} else {
			cache = c
		}
	}

	return download.NewHLSDownloader(b.cfg.HTTPTimeout, b.cfg.MaxWorkers, cache, b.logger)
}

// printSummary prints the end-of-batch totals.
func (b *batch) printSummary() {
	fmt.Println()
	fmt.Printf("Analyzed %d/%d inputs in %s",
		b.succeeded, len(b.cfg.Inputs), time.Since(b.start).Round(time.Millisecond))
	if b.failedRuns > 0 {
		fmt.Printf(" (%d failed)", b.failedRuns)
	}
	fmt.Println()
}

// printResult prints one input's summary lines.
func printResult(input string, r *engine.CombinedResult) {
	fmt.Printf("✓ %s (%.1fs of media, %d/%d tasks, efficiency %.0f%%, took %s)\n",
		input, r.Duration, r.TasksCompleted, r.TasksCompleted+r.TasksFailed,
		r.ParallelEfficiency*100, r.ExecutionTime.Round(time.Millisecond))

	if r.HasVideoAnalysis() {
		fmt.Printf("    video: %.2f Mbps avg (%s, cv %.1f%%)\n",
			r.Video.AverageBitrate/1e6, r.Video.EncodingType(), r.Video.BitrateVariance*100)
	}
	if r.HasAudioAnalysis() {
		fmt.Printf("    audio: %.0f kbps avg (%s, %s)\n",
			r.Audio.AverageBitrate/1e3, r.Audio.Codec, r.Audio.QualityLevel())
	}
	if r.HasFPSAnalysis() {
		fmt.Printf("    fps:   %.2f actual vs %.2f declared (%s, %d dropped)\n",
			r.FPS.ActualAverageFPS, r.FPS.DeclaredFPS, r.FPS.PerformanceGrade(), r.FPS.TotalDroppedFrames)
	}
}

// observerOrNil avoids storing a typed nil in the engine's Observer interface.
func observerOrNil(c *metrics.Collector) engine.Observer {
	if c == nil {
		return nil
	}
	return c
}

// exportBaseName strips directories, query strings, and extension from an
// input path or URL for use in output filenames.
func exportBaseName(input string) string {
	base := filepath.Base(input)
	if q := strings.IndexByte(base, '?'); q >= 0 {
		base = base[:q]
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// printBanner prints the startup banner.
func printBanner(cfg *config.Config) {
	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════════════╗")
	fmt.Println("║                        video-analytics                            ║")
	fmt.Println("║      Parallel Video / Audio / FPS Analysis with ffprobe           ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Inputs:      %d\n", len(cfg.Inputs))
	fmt.Printf("  Aspects:     video=%t audio=%t fps=%t\n", cfg.EnableVideo, cfg.EnableAudio, cfg.EnableFPS)
	fmt.Printf("  Intervals:   video=%s audio=%s fps=%s\n", cfg.VideoInterval, cfg.AudioInterval, cfg.FPSInterval)
	if cfg.Preset != "" {
		fmt.Printf("  Preset:      %s\n", cfg.Preset)
	}
	fmt.Printf("  Timeout:     %s\n", cfg.TaskTimeout)
	if cfg.MetricsAddr != "" {
		fmt.Printf("  Metrics:     http://%s/metrics\n", cfg.MetricsAddr)
	}
	if cfg.ExportJSON || cfg.ExportCSV {
		fmt.Printf("  Output:      %s (json=%t csv=%t)\n", cfg.OutputDir, cfg.ExportJSON, cfg.ExportCSV)
	}
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop.")
	fmt.Println()
}
