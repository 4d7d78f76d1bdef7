// Package probe wraps ffprobe invocations for metadata extraction and
// packet-level sampling.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Metadata holds the container and stream metadata for one video file.
// Immutable once extracted.
type Metadata struct {
	FilePath   string  `json:"file_path"`
	Duration   float64 `json:"duration"` // seconds
	FileSize   int64   `json:"file_size"`
	FormatName string  `json:"format_name"`
	BitRate    int64   `json:"bit_rate"` // overall, bps

	// Video stream
	VideoCodec   string  `json:"video_codec"`
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	FrameRate    float64 `json:"frame_rate"` // declared r_frame_rate
	VideoBitRate int64   `json:"video_bit_rate"`

	// Audio stream
	AudioCodec   string `json:"audio_codec"`
	Channels     int    `json:"channels"`
	SampleRate   int    `json:"sample_rate"`
	AudioBitRate int64  `json:"audio_bit_rate"`
}

// HasVideo reports whether the file contains a video stream.
func (m *Metadata) HasVideo() bool { return m.VideoCodec != "" }

// HasAudio reports whether the file contains an audio stream.
func (m *Metadata) HasAudio() bool { return m.AudioCodec != "" }

// probeOutput mirrors the JSON emitted by
// ffprobe -print_format json -show_format -show_streams.
type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	RFrameRate string `json:"r_frame_rate"`
	BitRate    string `json:"bit_rate"`
	Channels   int    `json:"channels"`
	SampleRate string `json:"sample_rate"`
}

type probeFormat struct {
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
}

// Packet is one demuxed packet's timestamp and payload size.
type Packet struct {
	PTS  float64 // seconds
	Size int64   // bytes
}

// Prober executes ffprobe against local files.
type Prober struct {
	// FFprobePath is the ffprobe binary ("ffprobe" resolves via PATH).
	FFprobePath string

	// Timeout bounds each ffprobe invocation.
	Timeout time.Duration
}

// NewProber creates a Prober with the given binary path and per-command timeout.
func NewProber(ffprobePath string, timeout time.Duration) *Prober {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Prober{FFprobePath: ffprobePath, Timeout: timeout}
}

// Probe extracts container and stream metadata for the file.
func (p *Prober) Probe(ctx context.Context, path string) (*Metadata, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}

	output, err := p.run(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed for %s: %w", path, err)
	}

	var result probeOutput
	if err := json.Unmarshal(output, &result); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	return buildMetadata(path, &result), nil
}

// PacketsInWindow returns the packets of the selected stream whose pts falls
// in [start, start+window). The stream selector is an ffprobe stream
// specifier such as "v:0" or "a:0".
func (p *Prober) PacketsInWindow(ctx context.Context, path, stream string, start, window float64) ([]Packet, error) {
	args := []string{
		"-v", "quiet",
		"-select_streams", stream,
		"-show_entries", "packet=pts_time,size",
		"-of", "csv=p=0",
		"-read_intervals", readInterval(start, window),
		path,
	}

	output, err := p.run(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("ffprobe packet scan failed for %s: %w", path, err)
	}

	return parsePackets(string(output), start, start+window), nil
}

// FrameTimesInWindow returns sorted video frame timestamps in
// [start, start+window).
func (p *Prober) FrameTimesInWindow(ctx context.Context, path string, start, window float64) ([]float64, error) {
	packets, err := p.PacketsInWindow(ctx, path, "v:0", start, window)
	if err != nil {
		return nil, err
	}
	return frameTimes(packets), nil
}

// frameTimes extracts packet timestamps in presentation order. ffprobe emits
// packets in decode order, so streams with B-frames arrive with pts out of
// order.
func frameTimes(packets []Packet) []float64 {
	times := make([]float64, len(packets))
	for i, pkt := range packets {
		times[i] = pkt.PTS
	}
	sort.Float64s(times)
	return times
}

// run executes ffprobe with the given arguments under the prober's timeout.
func (p *Prober) run(ctx context.Context, args []string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.FFprobePath, args...)
	return cmd.Output()
}

// readInterval formats a -read_intervals argument covering [start, start+window].
func readInterval(start, window float64) string {
	return fmt.Sprintf("%.3f%%%.3f", start, start+window)
}

// parsePackets parses csv=p=0 "pts_time,size" lines, keeping packets whose
// pts falls in [start, end). Malformed lines are skipped.
func parsePackets(output string, start, end float64) []Packet {
	var packets []Packet
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		pkt, ok := parsePacketLine(line)
		if !ok {
			continue
		}
		if pkt.PTS >= start && pkt.PTS < end {
			packets = append(packets, pkt)
		}
	}
	return packets
}

// parsePacketLine parses one "pts_time,size" CSV line. Some containers emit
// "N/A" for pts_time; those lines are dropped.
func parsePacketLine(line string) (Packet, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Packet{}, false
	}

	parts := strings.Split(line, ",")
	if len(parts) < 2 {
		return Packet{}, false
	}

	pts, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Packet{}, false
	}
	size, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return Packet{}, false
	}

	return Packet{PTS: pts, Size: size}, true
}

// buildMetadata maps raw ffprobe output to a Metadata record, picking the
// first video and first audio stream.
func buildMetadata(path string, out *probeOutput) *Metadata {
	meta := &Metadata{
		FilePath:   path,
		FormatName: out.Format.FormatName,
		Duration:   parseFloat(out.Format.Duration),
		FileSize:   parseInt(out.Format.Size),
		BitRate:    parseInt(out.Format.BitRate),
	}

	var videoSeen, audioSeen bool
	for _, s := range out.Streams {
		switch s.CodecType {
		case "video":
			if videoSeen {
				continue
			}
			videoSeen = true
			meta.VideoCodec = s.CodecName
			meta.Width = s.Width
			meta.Height = s.Height
			meta.FrameRate = ParseFrameRate(s.RFrameRate)
			meta.VideoBitRate = parseInt(s.BitRate)
		case "audio":
			if audioSeen {
				continue
			}
			audioSeen = true
			meta.AudioCodec = s.CodecName
			meta.Channels = s.Channels
			meta.SampleRate = int(parseInt(s.SampleRate))
			meta.AudioBitRate = parseInt(s.BitRate)
		}
	}

	return meta
}

// ParseFrameRate parses an ffprobe rational frame rate ("30000/1001").
// Returns 0 for missing or malformed values.
func ParseFrameRate(r string) float64 {
	if r == "" {
		return 0
	}

	num, den, found := strings.Cut(r, "/")
	if !found {
		v, err := strconv.ParseFloat(r, 64)
		if err != nil {
			return 0
		}
		return v
	}

	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func parseInt(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}

// FindFFprobe returns the ffprobe path matching the given ffmpeg path.
// If ffmpegPath ends in "ffmpeg", the sibling ffprobe is preferred;
// otherwise ffprobe resolves via PATH.
func FindFFprobe(ffmpegPath string) string {
	const suffix = "ffmpeg"
	if strings.HasSuffix(ffmpegPath, suffix) && len(ffmpegPath) > len(suffix) {
		sibling := ffmpegPath[:len(ffmpegPath)-len(suffix)] + "ffprobe"
		if _, err := exec.LookPath(sibling); err == nil {
			return sibling
		}
	}
	return "ffprobe"
}

// Available checks if the given ffprobe binary can be found.
func Available(ffprobePath string) bool {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	_, err := exec.LookPath(ffprobePath)
	return err == nil
}
