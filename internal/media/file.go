// Package media provides file handles and metadata caching for analysis inputs.
package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/huiping192/video-analytics/internal/probe"
)

// minFileSize is the smallest plausible video file. Anything below this is
// rejected before probing.
const minFileSize = 1024

var (
	// ErrNoVideoStream indicates the file has no usable video stream.
	ErrNoVideoStream = errors.New("no video stream found")

	// ErrInvalidDuration indicates the container reports a non-positive duration.
	ErrInvalidDuration = errors.New("unable to determine duration")
)

// MetadataLoader extracts metadata for a file path. *probe.Prober implements
// this; tests substitute stubs.
type MetadataLoader interface {
	Probe(ctx context.Context, path string) (*probe.Metadata, error)
}

// File is a processed input handle. It lazily loads and memoizes metadata
// through its loader. The caller owns the handle and any temp file behind it;
// the analysis engine only reads from it.
type File struct {
	path   string
	loader MetadataLoader

	mu   sync.Mutex
	meta *probe.Metadata
}

// NewFile creates a handle for the given local path.
func NewFile(path string, loader MetadataLoader) *File {
	return &File{path: path, loader: loader}
}

// Path returns the local file path.
func (f *File) Path() string { return f.path }

// LoadMetadata returns the file's metadata, probing on first call and
// memoizing the result.
func (f *File) LoadMetadata(ctx context.Context) (*probe.Metadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.meta != nil {
		return f.meta, nil
	}

	meta, err := f.loader.Probe(ctx, f.path)
	if err != nil {
		return nil, err
	}

	f.meta = meta
	return meta, nil
}

// Processor validates inputs and produces File handles.
type Processor struct {
	loader MetadataLoader
}

// NewProcessor creates a Processor backed by the given loader.
func NewProcessor(loader MetadataLoader) *Processor {
	return &Processor{loader: loader}
}

// Process validates the file on disk, probes its metadata, and returns a
// handle ready for analysis.
func (p *Processor) Process(ctx context.Context, path string) (*File, error) {
	if err := validatePath(path); err != nil {
		return nil, err
	}

	f := NewFile(path, p.loader)

	meta, err := f.LoadMetadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("probing %s: %w", path, err)
	}

	if err := ValidateContent(meta); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return f, nil
}

// validatePath checks basic file properties before probing.
func validatePath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("file not accessible: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("not a file: %s", path)
	}
	if info.Size() < minFileSize {
		return fmt.Errorf("file too small to be a valid video: %s (%d bytes)", path, info.Size())
	}
	return nil
}

// ValidateContent checks that metadata describes an analyzable video.
func ValidateContent(meta *probe.Metadata) error {
	if meta.Duration <= 0 {
		return ErrInvalidDuration
	}
	if !meta.HasVideo() {
		return ErrNoVideoStream
	}
	return nil
}
