package render

import (
	"bytes"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/countymap/internal/classify"
	"github.com/sells-group/countymap/internal/model"
)

func square(srid int, x, y, size float64) *geom.MultiPolygon {
	return rect(srid, x, y, x+size, y+size)
}

func rect(srid int, x0, y0, x1, y1 float64) *geom.MultiPolygon {
	mp := geom.NewMultiPolygonFlat(geom.XY,
		[]float64{x0, y0, x0, y1, x1, y1, x1, y0, x0, y0},
		[][]int{{10}},
	)
	mp.SetSRID(srid)
	return mp
}

func testMap(t *testing.T) Map {
	t.Helper()
	counties := []model.Joined{
		{County: model.County{GEOID: "01001", Geom: square(5070, 0, 0, 10)}, Value: 1, Matched: true},
		{County: model.County{GEOID: "01003", Geom: square(5070, 10, 0, 10)}, Value: 2, Matched: true},
		{County: model.County{GEOID: "13001", Geom: square(5070, 20, 0, 10)}, Value: 50},
		{County: model.County{GEOID: "13003", Geom: square(5070, 30, 0, 10)}, Value: 60, Matched: true},
	}
	res, err := classify.Classify(model.Values(counties), 2, classify.Jenks)
	require.NoError(t, err)

	return Map{
		Name:     "gdp",
		Title:    "County GDP",
		Counties: counties,
		Regions: []model.Region{
			{Code: "01", Geom: square(5070, 0, 0, 20), Counties: 2},
			{Code: "13", Geom: square(5070, 20, 0, 20), Counties: 2},
		},
		Result: res,
	}
}

func TestChoropleth(t *testing.T) {
	m := testMap(t)
	p, err := Choropleth(m, Options{})
	require.NoError(t, err)
	assert.Equal(t, "County GDP", p.Title.Text)

	// Polygons set the data range.
	assert.InDelta(t, 0, p.X.Min, 1e-9)
	assert.InDelta(t, 40, p.X.Max, 1e-9)
	assert.InDelta(t, 20, p.Y.Max, 1e-9)
}

func TestChoropleth_CRSMismatch(t *testing.T) {
	m := testMap(t)
	m.Regions[1].Geom = square(4269, -90, 30, 1)

	_, err := Choropleth(m, Options{})
	assert.ErrorIs(t, err, ErrCRSMismatch)
}

func TestChoropleth_ClassCountMismatch(t *testing.T) {
	m := testMap(t)
	m.Counties = m.Counties[:3]
	_, err := Choropleth(m, Options{})
	assert.Error(t, err)

	m.Result = nil
	_, err = Choropleth(m, Options{})
	assert.Error(t, err)
}

func TestColors(t *testing.T) {
	for _, k := range []int{1, 2, 3, 5, 9} {
		c, err := Colors("YlOrRd", k)
		require.NoError(t, err)
		assert.Len(t, c, k)
	}

	_, err := Colors("YlOrRd", 0)
	assert.Error(t, err)
	_, err = Colors("NotAScheme", 4)
	assert.Error(t, err)
}

func TestLabels(t *testing.T) {
	r := &classify.Result{Breaks: []float64{0, 2.5, 10}}
	assert.Equal(t, []string{"0.0 - 2.5", "2.5 - 10.0"}, Labels(r, 1))
}

func TestMap_Size(t *testing.T) {
	tests := []struct {
		name  string
		m     Map
		wantH vg.Length
	}{
		{name: "wide", m: testMap(t), wantH: 4 * vg.Inch},
		{name: "tall", m: Map{Regions: []model.Region{{Code: "06", Geom: rect(5070, 0, 0, 10, 30)}}}, wantH: 24 * vg.Inch},
		{name: "very tall", m: Map{Regions: []model.Region{{Code: "06", Geom: rect(5070, 0, 0, 2, 10)}}}, wantH: 40 * vg.Inch},
		{name: "empty", m: Map{}, wantH: 8 * vg.Inch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := tt.m.Size(8 * vg.Inch)
			assert.Equal(t, 8*vg.Inch, w)
			assert.InDelta(t, float64(tt.wantH), float64(h), 1e-9)
		})
	}
}

// rgb returns the 8-bit channels of c.
func rgb(c color.Color) [3]int {
	r, g, b, _ := c.RGBA()
	return [3]int{int(r >> 8), int(g >> 8), int(b >> 8)}
}

func nearColor(want, got color.Color) bool {
	a, b := rgb(want), rgb(got)
	for i := range a {
		if d := a[i] - b[i]; d > 3 || d < -3 {
			return false
		}
	}
	return true
}

func TestChoropleth_Pixels(t *testing.T) {
	counties := []model.Joined{
		{County: model.County{GEOID: "01001", Geom: square(5070, 0, 0, 10)}, Value: 1, Matched: true},
		{County: model.County{GEOID: "01003", Geom: square(5070, 0, 10, 10)}, Value: 30, Matched: true},
		{County: model.County{GEOID: "13001", Geom: square(5070, 30, 10, 10)}, Value: 60, Matched: true},
	}
	res, err := classify.Classify(model.Values(counties), 3, classify.Equal)
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 2}, res.Classes)

	// Region 13 covers (20,10)-(30,20) with no county under it; the lower
	// right quarter is left empty for the legend.
	m := Map{
		Name:     "gdp",
		Title:    "County GDP",
		Counties: counties,
		Regions: []model.Region{
			{Code: "01", Geom: rect(5070, 0, 0, 10, 20), Counties: 2},
			{Code: "13", Geom: rect(5070, 20, 10, 40, 20), Counties: 1},
		},
		Result: res,
	}
	blue := color.RGBA{B: 255, A: 255}
	p, err := Choropleth(m, Options{RegionLine: vg.Points(4), OutlineColor: blue})
	require.NoError(t, err)

	const width, height = 8 * vg.Inch, 4 * vg.Inch
	canvas := vgimg.NewWith(vgimg.UseWH(width, height), vgimg.UseDPI(72))
	dc := draw.New(canvas)
	p.Draw(dc)
	img := canvas.Image()

	data := p.DataCanvas(dc)
	tx, ty := p.Transforms(&data)
	at := func(x, y float64) color.Color {
		return img.At(int(tx(x)), int(height-ty(y)))
	}

	colors, err := Colors("YlOrRd", 3)
	require.NoError(t, err)

	t.Run("county fills by class", func(t *testing.T) {
		assert.True(t, nearColor(colors[0], at(5, 5)), "lowest class got %v", rgb(at(5, 5)))
		assert.True(t, nearColor(colors[1], at(5, 15)), "middle class got %v", rgb(at(5, 15)))
		assert.True(t, nearColor(colors[2], at(35, 15)), "highest class got %v", rgb(at(35, 15)))
	})

	t.Run("region outlines are unfilled", func(t *testing.T) {
		assert.True(t, nearColor(color.White, at(25, 15)), "got %v", rgb(at(25, 15)))
		assert.True(t, nearColor(color.White, at(25, 5)), "got %v", rgb(at(25, 5)))
	})

	t.Run("region outline drawn over county fill", func(t *testing.T) {
		px, py := int(tx(10))-1, int(height-ty(5))
		got := img.At(px, py)
		assert.True(t, nearColor(blue, got), "got %v", rgb(got))
	})

	t.Run("legend has one swatch per class", func(t *testing.T) {
		col := int(width - p.Legend.ThumbnailWidth/2)
		seen := make([]bool, len(colors))
		for py := int(height - ty(5)); py < int(height); py++ {
			got := img.At(col, py)
			for i, c := range colors {
				if nearColor(c, got) {
					seen[i] = true
				}
			}
		}
		assert.Equal(t, []bool{true, true, true}, seen)
	})
}

func TestSave(t *testing.T) {
	m := testMap(t)
	p, err := Choropleth(m, Options{})
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "maps", "gdp.png")
	sidePath, err := Save(p, m, Options{Width: 4 * vg.Inch}, path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "maps", "gdp.yaml"), sidePath)

	img, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, []byte("\x89PNG")))

	data, err := os.ReadFile(sidePath)
	require.NoError(t, err)
	var side Sidecar
	require.NoError(t, yaml.Unmarshal(data, &side))
	assert.Equal(t, "gdp", side.Name)
	assert.Equal(t, "gdp.png", side.Image)
	assert.Equal(t, 5070, side.SRID)
	assert.Equal(t, "jenks", side.Method)
	assert.Equal(t, 2, side.Classes)
	assert.Equal(t, []float64{1, 2, 60}, side.Breaks)
	assert.Equal(t, []int{2, 2}, side.Counts)
	assert.Len(t, side.Labels, 2)
}

func TestSave_SVG(t *testing.T) {
	m := testMap(t)
	p, err := Choropleth(m, Options{})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "gdp.svg")
	_, err = Save(p, m, Options{Width: 4 * vg.Inch}, path)
	require.NoError(t, err)

	img, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(img), "<svg")
}

func TestSave_UnsupportedFormat(t *testing.T) {
	m := testMap(t)
	p, err := Choropleth(m, Options{})
	require.NoError(t, err)

	_, err = Save(p, m, Options{}, filepath.Join(t.TempDir(), "gdp.bmp"))
	assert.Error(t, err)
}
