package mapimg

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocatorMapRaster(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bytes=0-", r.Header.Get("Range"))
		assert.Contains(t, r.Header.Get("User-Agent"), "geodeck")
		w.Write([]byte("pngdata"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	f := NewFetcher(dir)
	origin, raster, err := f.LocatorMap(context.Background(), srv.URL+"/Map.png", "q1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "q1.png"), origin)
	assert.Equal(t, origin, raster, "raster source needs no conversion")

	data, err := os.ReadFile(origin)
	require.NoError(t, err)
	assert.Equal(t, "pngdata", string(data))
}

func TestLocatorMapSVGSkipsExistingRaster(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<svg/>"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	// A raster from a previous run means the converter never has to exist.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "q2.png"), []byte("old"), 0o644))

	f := NewFetcher(dir, WithResvgPath("/nonexistent/resvg"))
	origin, raster, err := f.LocatorMap(context.Background(), srv.URL+"/Map.svg", "q2")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "q2.svg"), origin)
	assert.Equal(t, filepath.Join(dir, "q2.png"), raster)
}

func TestDownloadRetriesTruncated(t *testing.T) {
	full := []byte("complete image body")
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Length", strconv.Itoa(len(full)))
		if hits < 3 {
			// Short write against the declared length: the client sees
			// an unexpected EOF when the connection closes.
			w.Write(full[:5])
			return
		}
		w.Write(full)
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	data, err := f.download(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, full, data)
	assert.Equal(t, 3, hits)
}

func TestDownloadStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	_, err := f.download(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestSmallestFile(t *testing.T) {
	dir := t.TempDir()
	small := filepath.Join(dir, "small.png")
	big := filepath.Join(dir, "big.svg")
	require.NoError(t, os.WriteFile(small, []byte("ab"), 0o644))
	require.NoError(t, os.WriteFile(big, []byte("abcdefgh"), 0o644))

	got, err := SmallestFile(big, small)
	require.NoError(t, err)
	assert.Equal(t, small, got)

	_, err = SmallestFile()
	assert.Error(t, err)
	_, err = SmallestFile(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
