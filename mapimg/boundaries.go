package mapimg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// boundariesURL points at the Natural Earth 1:110m admin-0 countries layer,
// which is plenty for country-scale extents and fills.
const boundariesURL = "https://raw.githubusercontent.com/nvkelso/natural-earth-vector/master/geojson/ne_110m_admin_0_countries.geojson"

const boundariesFile = "ne_110m_admin_0_countries.geojson"

// EnsureBoundaries returns the country boundaries GeoJSON, downloading it
// into dataDir on first use and reading the cached copy afterwards.
func (f *Fetcher) EnsureBoundaries(ctx context.Context, dataDir string) ([]byte, error) {
	path := filepath.Join(dataDir, boundariesFile)
	if data, err := os.ReadFile(path); err == nil {
		return data, nil
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir %s: %w", dataDir, err)
	}
	f.log.Infow("downloading country boundaries", "url", boundariesURL)
	data, err := f.download(ctx, boundariesURL)
	if err != nil {
		return nil, fmt.Errorf("downloading boundaries: %w", err)
	}
	if err := writeFile(path, data); err != nil {
		return nil, err
	}
	return data, nil
}
