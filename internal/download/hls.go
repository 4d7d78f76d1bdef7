package download

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

// IsRemoteURL reports whether the input is an http(s) URL rather than a
// local path.
func IsRemoteURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// IsHLSURL reports whether the input looks like an HLS playlist URL.
func IsHLSURL(s string) bool {
	if !IsRemoteURL(s) {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return strings.HasSuffix(u.Path, ".m3u8")
}

// HLSDownloader fetches an HLS media playlist and assembles its segments
// into a single local .ts file. Master playlists resolve to their first
// variant. A failed segment fails the whole download.
type HLSDownloader struct {
	client  *http.Client
	cache   *Cache // nil disables caching
	workers int
	logger  *slog.Logger
}

// NewHLSDownloader creates a downloader with a bounded segment worker pool.
// cache may be nil.
func NewHLSDownloader(timeout time.Duration, workers int, cache *Cache, logger *slog.Logger) *HLSDownloader {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HLSDownloader{
		client:  &http.Client{Timeout: timeout},
		cache:   cache,
		workers: workers,
		logger:  logger,
	}
}

// Download fetches rawURL and returns the path of the assembled local file.
// Playlist URLs are expanded into their segments; any other remote file is
// fetched directly. Cached downloads are returned without touching the
// network.
func (d *HLSDownloader) Download(ctx context.Context, rawURL string) (string, error) {
	if d.cache != nil {
		if path, ok := d.cache.Lookup(rawURL); ok {
			return path, nil
		}
	}

	if !IsHLSURL(rawURL) {
		return d.downloadDirect(ctx, rawURL)
	}

	segments, err := d.resolveSegments(ctx, rawURL)
	if err != nil {
		return "", err
	}
	if len(segments) == 0 {
		return "", fmt.Errorf("playlist %s contains no segments", rawURL)
	}

	d.logger.Info("hls_download_started", "url", rawURL, "segments", len(segments), "workers", d.workers)

	out, err := os.CreateTemp("", "hls-*.ts")
	if err != nil {
		return "", fmt.Errorf("creating output file: %w", err)
	}
	defer out.Close()

	if err := d.fetchSegments(ctx, segments, out); err != nil {
		os.Remove(out.Name())
		return "", err
	}

	path := out.Name()
	if d.cache != nil {
		cached, err := d.cache.Store(rawURL, path)
		if err == nil {
			os.Remove(path)
			path = cached
		} else {
			d.logger.Warn("download_cache_store_failed", "url", rawURL, "error", err)
		}
	}

	d.logger.Info("hls_download_complete", "url", rawURL, "path", path)
	return path, nil
}

// downloadDirect fetches a single remote file to a temp path.
func (d *HLSDownloader) downloadDirect(ctx context.Context, rawURL string) (string, error) {
	body, err := d.fetch(ctx, rawURL)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", rawURL, err)
	}

	ext := ".mp4"
	if u, err := url.Parse(rawURL); err == nil {
		if e := pathExt(u.Path); e != "" {
			ext = e
		}
	}

	out, err := os.CreateTemp("", "download-*"+ext)
	if err != nil {
		return "", fmt.Errorf("creating output file: %w", err)
	}
	if _, err := out.Write(body); err != nil {
		out.Close()
		os.Remove(out.Name())
		return "", fmt.Errorf("writing download: %w", err)
	}
	out.Close()

	path := out.Name()
	if d.cache != nil {
		if cached, err := d.cache.Store(rawURL, path); err == nil {
			os.Remove(path)
			path = cached
		}
	}

	d.logger.Info("download_complete", "url", rawURL, "path", path)
	return path, nil
}

// pathExt returns the extension of a URL path, including the dot.
func pathExt(p string) string {
	if i := strings.LastIndexByte(p, '.'); i >= 0 && i > strings.LastIndexByte(p, '/') {
		return p[i:]
	}
	return ""
}

// resolveSegments fetches the playlist and returns absolute segment URLs,
// following a master playlist one level down to its first variant.
func (d *HLSDownloader) resolveSegments(ctx context.Context, rawURL string) ([]string, error) {
	return d.resolveSegmentsFrom(ctx, rawURL, true)
}

func (d *HLSDownloader) resolveSegmentsFrom(ctx context.Context, rawURL string, followMaster bool) ([]string, error) {
	body, err := d.fetch(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetching playlist: %w", err)
	}

	base, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid playlist URL: %w", err)
	}

	segments, variant := parsePlaylist(string(body), base)
	if variant != "" {
		if !followMaster {
			return nil, fmt.Errorf("variant %s is itself a master playlist", rawURL)
		}
		return d.resolveSegmentsFrom(ctx, variant, false)
	}
	return segments, nil
}

// fetchSegments downloads every segment with a bounded worker pool and
// writes them to out in playlist order.
func (d *HLSDownloader) fetchSegments(ctx context.Context, segments []string, out io.Writer) error {
	data := make([][]byte, len(segments))
	errs := make([]error, len(segments))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < d.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				data[i], errs[i] = d.fetch(ctx, segments[i])
			}
		}()
	}

	for i := range segments {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return fmt.Errorf("segment %d: %w", i, err)
		}
	}

	for _, seg := range data {
		if _, err := out.Write(seg); err != nil {
			return fmt.Errorf("assembling segments: %w", err)
		}
	}
	return nil
}

// fetch GETs a URL and returns the body.
func (d *HLSDownloader) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", rawURL, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// parsePlaylist extracts segment URLs from a media playlist, or the first
// variant URL from a master playlist. Relative URIs resolve against base.
func parsePlaylist(body string, base *url.URL) (segments []string, variant string) {
	scanner := bufio.NewScanner(strings.NewReader(body))

	expectSegment := false
	expectVariant := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "#EXTINF"):
			expectSegment = true
		case strings.HasPrefix(line, "#EXT-X-STREAM-INF"):
			expectVariant = true
		case line == "" || strings.HasPrefix(line, "#"):
			// other tags and blanks
		case expectVariant:
			return nil, resolveURL(base, line)
		case expectSegment:
			segments = append(segments, resolveURL(base, line))
			expectSegment = false
		}
	}
	return segments, ""
}

// resolveURL resolves a possibly-relative playlist URI against the playlist
// location.
func resolveURL(base *url.URL, ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
