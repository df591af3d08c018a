package tiger

import (
	"archive/zip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/countymap/internal/fetcher"
	"github.com/sells-group/countymap/internal/tiger/tigertest"
)

// zipDir zips every file in dir and returns the archive bytes.
func zipDir(t *testing.T, dir string) []byte {
	t.Helper()

	out := filepath.Join(t.TempDir(), "archive.zip")
	f, err := os.Create(out)
	require.NoError(t, err)
	w := zip.NewWriter(f)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		data, readErr := os.ReadFile(filepath.Join(dir, e.Name()))
		require.NoError(t, readErr)
		fw, createErr := w.Create(e.Name())
		require.NoError(t, createErr)
		_, writeErr := fw.Write(data)
		require.NoError(t, writeErr)
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	return data
}

func TestDownload_ExtractsAndReads(t *testing.T) {
	src := t.TempDir()
	tigertest.WriteCounties(t, src, "cb_2018_us_county_500k", tigertest.Grid("36", 3, 3, -79, 41, 1))
	archive := zipDir(t, src)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write(archive)
	}))
	defer srv.Close()

	dest := t.TempDir()
	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{RatePerHost: 100})
	shpPath, err := Download(context.Background(), f, srv.URL+"/cb_2018_us_county_500k.zip", dest)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, "cb_2018_us_county_500k", "cb_2018_us_county_500k.shp"), shpPath)

	counties, err := ReadCounties(shpPath, ReadOptions{})
	require.NoError(t, err)
	assert.Len(t, counties, 3)
	assert.Equal(t, 4269, counties[0].SRID())
}

func TestDownload_NotAZIPURL(t *testing.T) {
	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{})
	_, err := Download(context.Background(), f, "https://example.com/counties.shp", t.TempDir())
	assert.Error(t, err)
}

func TestDownload_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{RatePerHost: 100})
	_, err := Download(context.Background(), f, srv.URL+"/missing.zip", t.TempDir())
	assert.Error(t, err)
}
