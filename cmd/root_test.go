package main

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/countymap/internal/config"
	fetchermocks "github.com/sells-group/countymap/internal/fetcher/mocks"
	"github.com/sells-group/countymap/internal/store"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"render", "regions", "fetch", "publish"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "countymap", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestRenderCommand_Flags(t *testing.T) {
	for _, name := range []string{"state", "method", "classes", "out", "format", "maps"} {
		assert.NotNil(t, renderCmd.Flags().Lookup(name), "render should have --%s flag", name)
	}
	assert.Equal(t, "0", renderCmd.Flags().Lookup("classes").DefValue)
}

func TestPublishCommand_Flags(t *testing.T) {
	for _, name := range []string{"driver", "dsn"} {
		assert.NotNil(t, publishCmd.Flags().Lookup(name), "publish should have --%s flag", name)
	}
}

func resetRenderFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		renderState, renderMethod, renderOut, renderFormat = "", "", "", ""
		renderClasses = 0
		renderMaps = nil
	})
}

func testMaps() []config.MapConfig {
	return []config.MapConfig{
		{Name: "gdp", Attribute: "gdp", Method: "jenks", Classes: 5},
		{Name: "population", Attribute: "population", Method: "quantile", Classes: 5},
	}
}

func TestApplyRenderFlags(t *testing.T) {
	resetRenderFlags(t)
	renderState = "NY"
	renderMethod = "equal"
	renderClasses = 4
	renderOut = "/tmp/maps"
	renderFormat = "SVG"

	c := &config.Config{Maps: testMaps()}
	require.NoError(t, applyRenderFlags(c))

	assert.Equal(t, "NY", c.Regions.State)
	assert.Equal(t, "/tmp/maps", c.Render.OutDir)
	assert.Equal(t, "svg", c.Render.Format)
	for _, m := range c.Maps {
		assert.Equal(t, "equal", m.Method)
		assert.Equal(t, 4, m.Classes)
	}
}

func TestApplyRenderFlags_SelectMaps(t *testing.T) {
	resetRenderFlags(t)
	renderMaps = []string{"population"}

	c := &config.Config{Maps: testMaps()}
	require.NoError(t, applyRenderFlags(c))
	require.Len(t, c.Maps, 1)
	assert.Equal(t, "population", c.Maps[0].Name)
	assert.Equal(t, "quantile", c.Maps[0].Method)
}

func TestApplyRenderFlags_UnknownMap(t *testing.T) {
	resetRenderFlags(t)
	renderMaps = []string{"gdp", "income", "area"}

	err := applyRenderFlags(&config.Config{Maps: testMaps()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "area, income")
}

func TestPrintRegions(t *testing.T) {
	var buf bytes.Buffer
	printRegions(&buf, []store.RegionRow{
		{Code: "01", Abbr: "AL", Counties: 67, AreaKM2: 135_765},
		{Code: "36", Abbr: "NY", Counties: 62, AreaKM2: 141_297},
	})

	out := buf.String()
	assert.Contains(t, out, "AL")
	assert.Contains(t, out, "135,765")
	assert.Contains(t, out, "277,062")
	assert.Contains(t, out, "129")
}

// writeBody makes a mocked DownloadToFile write body to the requested path.
func writeBody(t *testing.T, body []byte) func(mock.Arguments) {
	return func(args mock.Arguments) {
		path := args.String(2)
		assert.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		assert.NoError(t, os.WriteFile(path, body, 0o644))
	}
}

func boundaryZip(t *testing.T, base string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, ext := range []string{".shp", ".shx", ".dbf", ".prj"} {
		fw, err := w.Create(base + ext)
		require.NoError(t, err)
		_, err = fw.Write([]byte("x"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestFetchAll(t *testing.T) {
	dir := t.TempDir()
	c := &config.Config{
		Inputs:     config.InputsConfig{Dir: dir},
		GDP:        config.SourceConfig{Path: "CAGDP1.csv", URL: "https://example.test/CAGDP1.csv"},
		Population: config.SourceConfig{Path: "population.csv"},
		Fetch:      config.FetchConfig{Year: 2023, Resolution: "20m"},
	}
	boundary := c.Fetch.Boundary()

	f := fetchermocks.NewMockFetcher(t)
	f.On("DownloadToFile", mock.Anything, boundary.URL(), filepath.Join(dir, "cb_2023_us_county_20m.zip")).
		Run(writeBody(t, boundaryZip(t, "cb_2023_us_county_20m"))).
		Return(int64(512), nil).Once()
	f.On("DownloadToFile", mock.Anything, "https://example.test/CAGDP1.csv", filepath.Join(dir, "CAGDP1.csv")).
		Run(writeBody(t, []byte("GeoFIPS,GeoName,LineCode,2022\n"))).
		Return(int64(31), nil).Once()

	paths, err := fetchAll(context.Background(), f, c)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.True(t, strings.HasSuffix(paths[0], "cb_2023_us_county_20m.shp"), paths[0])
	assert.Equal(t, filepath.Join(dir, "CAGDP1.csv"), paths[1])
}

func TestFetchAll_BadBoundary(t *testing.T) {
	c := &config.Config{Fetch: config.FetchConfig{Year: 2023, Resolution: "1m"}}
	_, err := fetchAll(context.Background(), fetchermocks.NewMockFetcher(t), c)
	assert.Error(t, err)
}
