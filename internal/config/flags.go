package config

import (
	"flag"
	"fmt"
	"os"
)

// ParseFlags parses command-line flags and returns a Config.
// Positional arguments are the files or URLs to analyze.
func ParseFlags() (*Config, error) {
	cfg := DefaultConfig()

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `video-analytics - sampled bitrate/FPS analysis of video files via ffprobe

Usage:
  video-analytics [flags] <FILE_OR_URL> [FILE_OR_URL...]

Analysis Flags:
`)
		printFlagCategory([]string{"video", "audio", "fps", "video-interval", "audio-interval", "fps-interval", "preset"})

		fmt.Fprintf(os.Stderr, "\nParallel Execution:\n")
		printFlagCategory([]string{"max-workers", "timeout", "no-metadata-sharing"})

		fmt.Fprintf(os.Stderr, "\nExport:\n")
		printFlagCategory([]string{"output", "export-json", "export-csv"})

		fmt.Fprintf(os.Stderr, "\nObservability:\n")
		printFlagCategory([]string{"metrics", "tui", "v", "log-format"})

		fmt.Fprintf(os.Stderr, "\nProbing / Downloads:\n")
		printFlagCategory([]string{"ffprobe", "ffmpeg", "probe-timeout", "cache-dir", "cache-max-gb"})

		fmt.Fprintf(os.Stderr, "\nDiagnostics:\n")
		printFlagCategory([]string{"skip-preflight"})

		fmt.Fprintf(os.Stderr, `
Examples:
  # Full analysis with JSON export
  video-analytics -export-json movie.mp4

  # Fast preset for a long recording, FPS only
  video-analytics -preset fast -video=false -audio=false recording.mkv

  # Remote HLS stream (downloaded and cached first)
  video-analytics https://cdn.example.com/vod/master.m3u8

`)
	}

	// Analysis flags
	flag.BoolVar(&cfg.EnableVideo, "video", cfg.EnableVideo, "Enable video bitrate analysis")
	flag.BoolVar(&cfg.EnableAudio, "audio", cfg.EnableAudio, "Enable audio bitrate analysis")
	flag.BoolVar(&cfg.EnableFPS, "fps", cfg.EnableFPS, "Enable FPS / dropped-frame analysis")
	flag.DurationVar(&cfg.VideoInterval, "video-interval", cfg.VideoInterval, "Video bitrate sampling interval")
	flag.DurationVar(&cfg.AudioInterval, "audio-interval", cfg.AudioInterval, "Audio bitrate sampling interval")
	flag.DurationVar(&cfg.FPSInterval, "fps-interval", cfg.FPSInterval, "FPS sampling interval")
	flag.StringVar(&cfg.Preset, "preset", cfg.Preset, `Tuning preset: "fast", "detailed", "memory" (explicit flags win)`)

	// Parallel execution
	flag.IntVar(&cfg.MaxWorkers, "max-workers", cfg.MaxWorkers, "Concurrency hint for analysis and segment downloads")
	flag.DurationVar(&cfg.TaskTimeout, "timeout", cfg.TaskTimeout, "Deadline for the whole analysis batch")
	noSharing := flag.Bool("no-metadata-sharing", false, "Probe metadata per analyzer instead of once per file")

	// Export
	flag.StringVar(&cfg.OutputDir, "output", cfg.OutputDir, "Directory for exported reports")
	flag.BoolVar(&cfg.ExportJSON, "export-json", cfg.ExportJSON, "Export combined analysis report as JSON")
	flag.BoolVar(&cfg.ExportCSV, "export-csv", cfg.ExportCSV, "Export per-aspect time series as CSV")

	// Observability
	flag.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "Prometheus metrics address (empty = disabled)")
	flag.BoolVar(&cfg.TUIEnabled, "tui", cfg.TUIEnabled, "Enable live terminal dashboard")
	flag.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Verbose logging")
	flag.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, `Log format: "json" or "text"`)

	// Probing / downloads
	flag.StringVar(&cfg.FFprobePath, "ffprobe", cfg.FFprobePath, "Path to ffprobe binary")
	flag.StringVar(&cfg.FFmpegPath, "ffmpeg", cfg.FFmpegPath, "Path to ffmpeg binary")
	flag.DurationVar(&cfg.ProbeTimeout, "probe-timeout", cfg.ProbeTimeout, "Timeout per ffprobe invocation")
	flag.StringVar(&cfg.CacheDir, "cache-dir", cfg.CacheDir, "Download cache directory (default ~/.video-analytics-cache)")
	flag.Float64Var(&cfg.CacheMaxSizeGB, "cache-max-gb", cfg.CacheMaxSizeGB, "Maximum download cache size in GB")

	// Diagnostics
	flag.BoolVar(&cfg.SkipPreflight, "skip-preflight", cfg.SkipPreflight, "Skip preflight checks")

	flag.Parse()

	cfg.EnableMetadataSharing = !*noSharing

	// Record explicitly set flags so presets never override them
	flag.Visit(func(f *flag.Flag) {
		cfg.MarkExplicit(f.Name)
	})

	cfg.Inputs = flag.Args()

	return cfg, nil
}

// printFlagCategory prints flags matching the given names (helper for usage).
func printFlagCategory(names []string) {
	flag.VisitAll(func(f *flag.Flag) {
		for _, name := range names {
			if f.Name == name {
				fmt.Fprintf(os.Stderr, "  -%s\n    \t%s", f.Name, f.Usage)
				if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" && f.DefValue != "0s" {
					fmt.Fprintf(os.Stderr, " (default %s)", f.DefValue)
				}
				fmt.Fprintln(os.Stderr)
				return
			}
		}
	})
}
