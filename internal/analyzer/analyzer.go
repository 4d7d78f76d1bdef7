// Package analyzer implements the per-aspect media analyzers: video bitrate,
// audio bitrate, and frame rate. Each analyzer samples ffprobe packet data at
// a configurable interval and summarizes the resulting series.
package analyzer

import (
	"context"
	"errors"
	"time"

	"github.com/huiping192/video-analytics/internal/probe"
)

// sampleWindow is the width in seconds of the packet window read at each
// sample position.
const sampleWindow = 5.0

// Interval floors for long files. Sampling a 4h file every 5s produces
// thousands of ffprobe invocations; the floors keep runs bounded.
const (
	longFileFloor     = 20 * time.Second // duration > 1h
	veryLongFileFloor = 30 * time.Second // duration > 2h
)

// Fallback bitrates when neither packets nor stream/format metadata yield one.
const (
	defaultVideoBitrate = 2_000_000 // bps
	defaultAudioBitrate = 128_000   // bps
)

var (
	// ErrNoVideoStream indicates the file has no video stream to analyze.
	ErrNoVideoStream = errors.New("no video stream to analyze")

	// ErrNoAudioStream indicates the file has no audio stream to analyze.
	ErrNoAudioStream = errors.New("no audio stream to analyze")

	// ErrNoFrameRate indicates the video stream declares no frame rate.
	ErrNoFrameRate = errors.New("video stream declares no frame rate")

	// ErrInvalidDuration indicates the file reports a non-positive duration.
	ErrInvalidDuration = errors.New("invalid duration")
)

// Sampler reads packet-level data from a media file. *probe.Prober implements
// this; tests substitute synthetic samplers.
type Sampler interface {
	PacketsInWindow(ctx context.Context, path, stream string, start, window float64) ([]probe.Packet, error)
	FrameTimesInWindow(ctx context.Context, path string, start, window float64) ([]float64, error)
}

// NormalizeInterval raises the sample interval to a floor for long files so
// that sample counts stay bounded. Short files keep the requested interval.
func NormalizeInterval(interval time.Duration, duration float64) time.Duration {
	switch {
	case duration > 2*3600:
		if interval < veryLongFileFloor {
			return veryLongFileFloor
		}
	case duration > 3600:
		if interval < longFileFloor {
			return longFileFloor
		}
	}
	return interval
}

// bitrateFromPackets computes bits per second over a packet window. The span
// is the observed pts range; a single-packet window uses the full window
// width. Returns false for an empty window.
func bitrateFromPackets(packets []probe.Packet, window float64) (float64, bool) {
	if len(packets) == 0 {
		return 0, false
	}

	var bytes int64
	for _, p := range packets {
		bytes += p.Size
	}

	span := packets[len(packets)-1].PTS - packets[0].PTS
	if span <= 0 {
		span = window
	}

	return float64(bytes) * 8 / span, true
}

// windowStart centers the sample window on t, clamped at the start of file.
func windowStart(t float64) float64 {
	start := t - sampleWindow/2
	if start < 0 {
		return 0
	}
	return start
}
