// Package mapimg acquires and produces the raster map images referenced by
// deck notes: locator maps downloaded from Wikimedia Commons (rasterised
// from SVG when needed), freshly rendered country maps for cities, and the
// median-composite background map.
package mapimg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultUserAgent = "geodeck/1.0 (geography flashcard builder)"

// Fetcher downloads locator maps into a working directory and rasterises
// vector sources with an external converter.
type Fetcher struct {
	dir       string
	hc        *http.Client
	userAgent string
	resvgPath string
	log       *zap.SugaredLogger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(hc *http.Client) FetcherOption {
	return func(f *Fetcher) { f.hc = hc }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) { f.userAgent = ua }
}

// WithResvgPath points at the SVG rasteriser binary (default "resvg").
func WithResvgPath(path string) FetcherOption {
	return func(f *Fetcher) { f.resvgPath = path }
}

// WithLogger attaches a logger.
func WithLogger(log *zap.SugaredLogger) FetcherOption {
	return func(f *Fetcher) { f.log = log }
}

// NewFetcher returns a Fetcher writing into dir, which must already exist.
func NewFetcher(dir string, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		dir:       dir,
		hc:        &http.Client{Timeout: 2 * time.Minute},
		userAgent: defaultUserAgent,
		resvgPath: "resvg",
		log:       zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// LocatorMap downloads the map at url under the given base name and returns
// the origin file plus a raster version of it. For an SVG source the raster
// is produced by the external converter unless a previous run left one
// behind; for raster sources origin and raster are the same file.
func (f *Fetcher) LocatorMap(ctx context.Context, url, baseName string) (origin, raster string, err error) {
	if strings.HasSuffix(strings.ToLower(url), ".svg") {
		origin = filepath.Join(f.dir, baseName+".svg")
		raster = filepath.Join(f.dir, baseName+".png")
	} else {
		ext := url[strings.LastIndex(url, ".")+1:]
		origin = filepath.Join(f.dir, baseName+"."+ext)
		raster = origin
	}

	data, err := f.download(ctx, url)
	if err != nil {
		return "", "", err
	}
	if err := writeFile(origin, data); err != nil {
		return "", "", err
	}

	if origin != raster {
		if _, statErr := os.Stat(raster); statErr == nil {
			f.log.Debugw("raster already present, skipping conversion", "path", raster)
		} else if err := f.rasterize(ctx, origin, raster); err != nil {
			return "", "", err
		}
	}
	return origin, raster, nil
}

// download GETs the URL with a full-range request. A truncated body is
// retried until the transfer completes: Commons transfers are assumed to
// eventually succeed, so there is no backoff and no attempt cap. Any other
// failure aborts.
func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	for {
		data, err := f.tryDownload(ctx, url)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, err
		}
		f.log.Warnw("incomplete read, retrying", "url", url)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
}

func (f *Fetcher) tryDownload(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Range", "bytes=0-")

	resp, err := f.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return nil, fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		// A short body surfaces as ErrUnexpectedEOF; normalise other
		// truncation flavours to it so the retry loop catches them.
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}
	if want := resp.ContentLength; want >= 0 && int64(len(data)) < want {
		return nil, io.ErrUnexpectedEOF
	}
	return data, nil
}

// rasterize shells out to resvg to convert an SVG into a PNG.
func (f *Fetcher) rasterize(ctx context.Context, svgPath, pngPath string) error {
	cmd := exec.CommandContext(ctx, f.resvgPath, svgPath, pngPath)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("rasterizing %s: %w (%s)", svgPath, err, strings.TrimSpace(string(out)))
	}
	f.log.Debugw("rasterized vector map", "svg", svgPath, "png", pngPath)
	return nil
}

// writeFile writes data to path, removing a partial file on failure.
func writeFile(path string, data []byte) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	success := false
	defer func() {
		out.Close()
		if !success {
			os.Remove(path)
		}
	}()
	if _, err := out.Write(data); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	success = true
	return nil
}

// SmallestFile returns the path with the smallest on-disk size. Used to pick
// which of the origin/raster pair ships in the package.
func SmallestFile(paths ...string) (string, error) {
	if len(paths) == 0 {
		return "", errors.New("no files given")
	}
	best, bestSize := "", int64(-1)
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", p, err)
		}
		if bestSize < 0 || info.Size() < bestSize {
			best, bestSize = p, info.Size()
		}
	}
	return best, nil
}
