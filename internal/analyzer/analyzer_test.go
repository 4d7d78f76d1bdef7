package analyzer

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/huiping192/video-analytics/internal/media"
	"github.com/huiping192/video-analytics/internal/probe"
)

// metaLoader returns fixed metadata for any path.
type metaLoader struct {
	meta probe.Metadata
}

func (l *metaLoader) Probe(ctx context.Context, path string) (*probe.Metadata, error) {
	m := l.meta
	m.FilePath = path
	return &m, nil
}

// fakeSampler synthesizes packets and frame times from fixed rates.
type fakeSampler struct {
	packetBitrate float64 // bps to synthesize, 0 = empty windows
	fps           float64 // frames per second, 0 = empty windows
	err           error
}

func (s *fakeSampler) PacketsInWindow(ctx context.Context, path, stream string, start, window float64) ([]probe.Packet, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.packetBitrate == 0 {
		return nil, nil
	}
	// Ten packets spread over the window carrying the configured bitrate.
	const n = 10
	span := window
	bytesPerPacket := s.packetBitrate * span / 8 / n
	packets := make([]probe.Packet, n)
	for i := 0; i < n; i++ {
		packets[i] = probe.Packet{
			PTS:  start + span*float64(i)/float64(n-1),
			Size: int64(bytesPerPacket),
		}
	}
	return packets, nil
}

func (s *fakeSampler) FrameTimesInWindow(ctx context.Context, path string, start, window float64) ([]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.fps == 0 {
		return nil, nil
	}
	step := 1 / s.fps
	var times []float64
	for t := start; t < start+window; t += step {
		times = append(times, t)
	}
	return times, nil
}

func testFile(meta probe.Metadata) *media.File {
	return media.NewFile("test.mp4", &metaLoader{meta: meta})
}

func videoMeta(duration float64) probe.Metadata {
	return probe.Metadata{
		Duration:   duration,
		VideoCodec: "h264",
		FrameRate:  30,
		AudioCodec: "aac",
		Channels:   2,
		SampleRate: 48000,
	}
}

func TestNormalizeInterval(t *testing.T) {
	testCases := []struct {
		name     string
		interval time.Duration
		duration float64
		want     time.Duration
	}{
		{"short_file_unchanged", 5 * time.Second, 1800, 5 * time.Second},
		{"over_1h_floored_to_20s", 5 * time.Second, 5400, 20 * time.Second},
		{"over_1h_above_floor_kept", 45 * time.Second, 5400, 45 * time.Second},
		{"over_2h_floored_to_30s", 10 * time.Second, 7201, 30 * time.Second},
		{"over_2h_above_floor_kept", 60 * time.Second, 10000, 60 * time.Second},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeInterval(tc.interval, tc.duration)
			if got != tc.want {
				t.Errorf("NormalizeInterval(%v, %v) = %v, want %v", tc.interval, tc.duration, got, tc.want)
			}
		})
	}
}

func TestBitrateFromPackets(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		if _, ok := bitrateFromPackets(nil, 5); ok {
			t.Error("empty window should report no bitrate")
		}
	})

	t.Run("single_packet_uses_window", func(t *testing.T) {
		got, ok := bitrateFromPackets([]probe.Packet{{PTS: 1, Size: 1000}}, 5)
		if !ok {
			t.Fatal("expected a bitrate")
		}
		if got != 1000*8/5.0 {
			t.Errorf("bitrate = %v, want %v", got, 1000*8/5.0)
		}
	})

	t.Run("multi_packet_uses_span", func(t *testing.T) {
		packets := []probe.Packet{{PTS: 10, Size: 500}, {PTS: 11, Size: 500}, {PTS: 12, Size: 500}}
		got, ok := bitrateFromPackets(packets, 5)
		if !ok {
			t.Fatal("expected a bitrate")
		}
		if got != 1500*8/2.0 {
			t.Errorf("bitrate = %v, want %v", got, 1500*8/2.0)
		}
	})
}

func TestVideoAnalyzer_SteadyBitrate(t *testing.T) {
	sampler := &fakeSampler{packetBitrate: 4_000_000}
	a := NewVideoAnalyzer(sampler, 10*time.Second, nil)

	result, err := a.Analyze(context.Background(), testFile(videoMeta(60)))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if len(result.DataPoints) != 6 {
		t.Errorf("DataPoints = %d, want 6", len(result.DataPoints))
	}
	if math.Abs(result.AverageBitrate-4_000_000) > 4_000_000*0.05 {
		t.Errorf("AverageBitrate = %v, want ~4 Mbps", result.AverageBitrate)
	}
	if !result.IsCBR() {
		t.Errorf("steady bitrate should classify as CBR, CV = %v", result.BitrateVariance)
	}
	if result.EncodingType() != "CBR" {
		t.Errorf("EncodingType = %q", result.EncodingType())
	}
	if result.SampleInterval != 10*time.Second {
		t.Errorf("SampleInterval = %v", result.SampleInterval)
	}
}

func TestVideoAnalyzer_LongFileIntervalNormalized(t *testing.T) {
	sampler := &fakeSampler{packetBitrate: 2_000_000}
	a := NewVideoAnalyzer(sampler, 10*time.Second, nil)

	result, err := a.Analyze(context.Background(), testFile(videoMeta(7200.5)))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if result.SampleInterval != 30*time.Second {
		t.Errorf("SampleInterval = %v, want 30s for >2h file", result.SampleInterval)
	}
	if len(result.DataPoints) != 241 {
		t.Errorf("DataPoints = %d, want 241", len(result.DataPoints))
	}
}

func TestVideoAnalyzer_FallbackChain(t *testing.T) {
	testCases := []struct {
		name          string
		streamBitrate int64
		formatBitrate int64
		want          float64
	}{
		{"stream_bitrate", 3_000_000, 5_000_000, 3_000_000},
		{"format_bitrate_scaled", 0, 5_000_000, 4_000_000},
		{"hard_default", 0, 0, defaultVideoBitrate},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			meta := videoMeta(30)
			meta.VideoBitRate = tc.streamBitrate
			meta.BitRate = tc.formatBitrate

			a := NewVideoAnalyzer(&fakeSampler{}, 10*time.Second, nil)
			result, err := a.Analyze(context.Background(), testFile(meta))
			if err != nil {
				t.Fatalf("Analyze: %v", err)
			}
			if result.AverageBitrate != tc.want {
				t.Errorf("AverageBitrate = %v, want %v", result.AverageBitrate, tc.want)
			}
		})
	}
}

func TestVideoAnalyzer_NoVideoStream(t *testing.T) {
	meta := probe.Metadata{Duration: 60, AudioCodec: "aac"}
	a := NewVideoAnalyzer(&fakeSampler{}, 10*time.Second, nil)

	_, err := a.Analyze(context.Background(), testFile(meta))
	if !errors.Is(err, ErrNoVideoStream) {
		t.Errorf("err = %v, want ErrNoVideoStream", err)
	}
}

func TestVideoAnalyzer_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := NewVideoAnalyzer(&fakeSampler{packetBitrate: 1_000_000}, 10*time.Second, nil)
	_, err := a.Analyze(ctx, testFile(videoMeta(60)))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestAudioAnalyzer_SteadyBitrate(t *testing.T) {
	sampler := &fakeSampler{packetBitrate: 128_000}
	a := NewAudioAnalyzer(sampler, 15*time.Second, nil)

	result, err := a.Analyze(context.Background(), testFile(videoMeta(60)))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if result.Codec != "aac" || result.Channels != 2 || result.SampleRate != 48000 {
		t.Errorf("stream fields: %+v", result)
	}
	if math.Abs(result.AverageBitrate-128_000) > 128_000*0.05 {
		t.Errorf("AverageBitrate = %v, want ~128 kbps", result.AverageBitrate)
	}
	if result.Stability() < 0.9 {
		t.Errorf("Stability = %v, want near 1", result.Stability())
	}
}

func TestAudioAnalyzer_NoAudioStream(t *testing.T) {
	meta := probe.Metadata{Duration: 60, VideoCodec: "h264", FrameRate: 30}
	a := NewAudioAnalyzer(&fakeSampler{}, 15*time.Second, nil)

	_, err := a.Analyze(context.Background(), testFile(meta))
	if !errors.Is(err, ErrNoAudioStream) {
		t.Errorf("err = %v, want ErrNoAudioStream", err)
	}
}

func TestAudioAnalyzer_FallbackChain(t *testing.T) {
	meta := videoMeta(30)
	meta.AudioBitRate = 0
	meta.BitRate = 2_000_000

	a := NewAudioAnalyzer(&fakeSampler{}, 15*time.Second, nil)
	result, err := a.Analyze(context.Background(), testFile(meta))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if result.AverageBitrate != 200_000 {
		t.Errorf("AverageBitrate = %v, want format bitrate * 0.1", result.AverageBitrate)
	}
}

func TestAudioAnalysis_QualityLevel(t *testing.T) {
	testCases := []struct {
		codec string
		kbps  float64
		want  string
	}{
		{"aac", 320, "Excellent"},
		{"aac", 128, "Good"},
		{"aac", 96, "Fair"},
		{"aac", 64, "Poor"},
		{"mp3", 320, "Excellent"},
		{"mp3", 192, "Good"},
		{"mp3", 128, "Fair"},
		{"mp3", 96, "Poor"},
		{"opus", 256, "Excellent"},
	}

	for _, tc := range testCases {
		a := &AudioAnalysis{Codec: tc.codec, AverageBitrate: tc.kbps * 1000}
		if got := a.QualityLevel(); got != tc.want {
			t.Errorf("QualityLevel(%s, %v kbps) = %q, want %q", tc.codec, tc.kbps, got, tc.want)
		}
	}
}

func TestFPSAnalyzer_SteadyRate(t *testing.T) {
	sampler := &fakeSampler{fps: 30}
	a := NewFPSAnalyzer(sampler, 20*time.Second, nil)

	result, err := a.Analyze(context.Background(), testFile(videoMeta(60)))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if result.DeclaredFPS != 30 {
		t.Errorf("DeclaredFPS = %v", result.DeclaredFPS)
	}
	if math.Abs(result.ActualAverageFPS-30) > 1 {
		t.Errorf("ActualAverageFPS = %v, want ~30", result.ActualAverageFPS)
	}
	if result.TotalDroppedFrames != 0 {
		t.Errorf("TotalDroppedFrames = %d, want 0", result.TotalDroppedFrames)
	}
	if result.IsVFR() {
		t.Errorf("steady rate should not be VFR, CV = %v", result.FPSVariance)
	}
	if result.PerformanceGrade() != "Excellent" {
		t.Errorf("PerformanceGrade = %q", result.PerformanceGrade())
	}
	if result.TotalFrames == 0 {
		t.Error("TotalFrames should be counted")
	}
}

// decodeOrderSampler emits steady frame times reordered the way ffprobe
// reports packets for a stream with B-frames: each IBBP display group
// arrives as IPBB.
type decodeOrderSampler struct {
	fakeSampler
}

func (s *decodeOrderSampler) FrameTimesInWindow(ctx context.Context, path string, start, window float64) ([]float64, error) {
	times, err := s.fakeSampler.FrameTimesInWindow(ctx, path, start, window)
	if err != nil {
		return nil, err
	}
	for i := 0; i+3 < len(times); i += 4 {
		times[i+1], times[i+2], times[i+3] = times[i+3], times[i+1], times[i+2]
	}
	return times, nil
}

func TestFPSAnalyzer_DecodeOrderTimestamps(t *testing.T) {
	sampler := &decodeOrderSampler{fakeSampler{fps: 30}}
	a := NewFPSAnalyzer(sampler, 20*time.Second, nil)

	result, err := a.Analyze(context.Background(), testFile(videoMeta(60)))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if result.TotalDroppedFrames != 0 {
		t.Errorf("TotalDroppedFrames = %d, want 0 for a steady stream", result.TotalDroppedFrames)
	}
	if math.Abs(result.ActualAverageFPS-30) > 1 {
		t.Errorf("ActualAverageFPS = %v, want ~30", result.ActualAverageFPS)
	}
	if result.IsVFR() {
		t.Errorf("steady rate should not be VFR, CV = %v", result.FPSVariance)
	}
	if result.PerformanceGrade() != "Excellent" {
		t.Errorf("PerformanceGrade = %q", result.PerformanceGrade())
	}
}

func TestFPSAnalyzer_ProbeFailureFallsBackToDeclared(t *testing.T) {
	sampler := &fakeSampler{err: errors.New("ffprobe unavailable")}
	a := NewFPSAnalyzer(sampler, 20*time.Second, nil)

	result, err := a.Analyze(context.Background(), testFile(videoMeta(40)))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	for _, p := range result.DataPoints {
		if p.FPS != 30 || p.DroppedFrames != 0 {
			t.Errorf("fallback point = %+v, want declared fps and zero drops", p)
		}
	}
}

func TestFPSAnalyzer_EmptyWindowYieldsZeroPoint(t *testing.T) {
	sampler := &fakeSampler{fps: 0}
	a := NewFPSAnalyzer(sampler, 20*time.Second, nil)

	result, err := a.Analyze(context.Background(), testFile(videoMeta(40)))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	for _, p := range result.DataPoints {
		if p.FPS != 0 {
			t.Errorf("empty window point = %+v, want zero fps", p)
		}
	}
}

func TestFPSAnalyzer_NoFrameRate(t *testing.T) {
	meta := videoMeta(60)
	meta.FrameRate = 0

	a := NewFPSAnalyzer(&fakeSampler{fps: 30}, 20*time.Second, nil)
	_, err := a.Analyze(context.Background(), testFile(meta))
	if !errors.Is(err, ErrNoFrameRate) {
		t.Errorf("err = %v, want ErrNoFrameRate", err)
	}
}

func TestCountDroppedFrames(t *testing.T) {
	// 30 fps, one gap of 4 frame intervals: 3 frames missing.
	times := []float64{0, 1.0 / 30, 2.0 / 30, 6.0 / 30, 7.0 / 30}

	got := countDroppedFrames(times, 30)
	if got != 3 {
		t.Errorf("countDroppedFrames = %d, want 3", got)
	}

	if countDroppedFrames(times, 0) != 0 {
		t.Error("zero declared rate should count no drops")
	}
}

func TestFPSAnalysis_DropRate(t *testing.T) {
	f := &FPSAnalysis{TotalFrames: 97, TotalDroppedFrames: 3}
	if f.DropRate() != 0.03 {
		t.Errorf("DropRate = %v, want 0.03", f.DropRate())
	}

	empty := &FPSAnalysis{}
	if empty.DropRate() != 0 {
		t.Errorf("empty DropRate = %v, want 0", empty.DropRate())
	}
}

func TestFPSAnalysis_PerformanceGrades(t *testing.T) {
	testCases := []struct {
		name    string
		cv      float64
		frames  int
		dropped int
		want    string
	}{
		{"excellent", 0.01, 1000, 0, "Excellent"},
		{"good", 0.10, 1000, 20, "Good"},
		{"fair", 0.25, 1000, 40, "Fair"},
		{"poor_unstable", 0.50, 1000, 0, "Poor"},
		{"poor_droppy", 0.01, 1000, 100, "Poor"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := &FPSAnalysis{FPSVariance: tc.cv, TotalFrames: tc.frames, TotalDroppedFrames: tc.dropped}
			if got := f.PerformanceGrade(); got != tc.want {
				t.Errorf("PerformanceGrade = %q, want %q", got, tc.want)
			}
		})
	}
}
