// Package render draws county choropleth maps with gonum/plot.
package render

import (
	"image/color"
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/brewer"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/sells-group/countymap/internal/classify"
	"github.com/sells-group/countymap/internal/model"
)

// ErrCRSMismatch is returned when fill and outline layers are not in one CRS.
var ErrCRSMismatch = eris.New("render: layers are in different CRSs")

// Map is one choropleth: counties filled by class and region outlines drawn
// on top.
type Map struct {
	Name     string
	Title    string
	Counties []model.Joined
	Regions  []model.Region
	// Result classifies Counties; Result.Classes[i] is the class of Counties[i].
	Result *classify.Result
}

// Options controls map styling.
type Options struct {
	Palette      string     // ColorBrewer sequential scheme, default "YlOrRd"
	Width        vg.Length  // default 12in
	Precision    int        // legend label decimals
	CountyLine   vg.Length  // county edge width, default 0.1pt
	RegionLine   vg.Length  // region outline width, default 0.6pt
	OutlineColor color.Color
}

func (o Options) withDefaults() Options {
	if o.Palette == "" {
		o.Palette = "YlOrRd"
	}
	if o.Width == 0 {
		o.Width = 12 * vg.Inch
	}
	if o.CountyLine == 0 {
		o.CountyLine = vg.Points(0.1)
	}
	if o.RegionLine == 0 {
		o.RegionLine = vg.Points(0.6)
	}
	if o.OutlineColor == nil {
		o.OutlineColor = color.Black
	}
	return o
}

// SRID returns the CRS shared by every geometry of the map. Layers in
// different CRSs fail with ErrCRSMismatch.
func (m Map) SRID() (int, error) {
	srid, set := 0, false
	check := func(what string, g *geom.MultiPolygon) error {
		if g == nil {
			return nil
		}
		if !set {
			srid, set = g.SRID(), true
			return nil
		}
		if g.SRID() != srid {
			return eris.Wrapf(ErrCRSMismatch, "%s is EPSG:%d, expected EPSG:%d", what, g.SRID(), srid)
		}
		return nil
	}
	for _, c := range m.Counties {
		if err := check("county "+c.GEOID, c.Geom); err != nil {
			return 0, err
		}
	}
	for _, r := range m.Regions {
		if err := check("region "+r.Code, r.Geom); err != nil {
			return 0, err
		}
	}
	return srid, nil
}

// Choropleth builds the plot for m: one filled polygon per county coloured
// by class, a legend entry per class and unfilled region outlines above.
func Choropleth(m Map, opts Options) (*plot.Plot, error) {
	opts = opts.withDefaults()
	if m.Result == nil {
		return nil, eris.New("render: map has no classification")
	}
	if len(m.Result.Classes) != len(m.Counties) {
		return nil, eris.Errorf("render: %d classes for %d counties", len(m.Result.Classes), len(m.Counties))
	}
	if _, err := m.SRID(); err != nil {
		return nil, err
	}

	colors, err := Colors(opts.Palette, m.Result.K())
	if err != nil {
		return nil, err
	}

	p := plot.New()
	p.Title.Text = m.Title
	p.HideAxes()
	p.Legend.Top = false
	p.Legend.Left = false

	for i, c := range m.Counties {
		if c.Geom == nil {
			continue
		}
		poly, err := plotter.NewPolygon(rings(c.Geom)...)
		if err != nil {
			return nil, eris.Wrapf(err, "render: county %s", c.GEOID)
		}
		poly.Color = colors[m.Result.Classes[i]]
		poly.LineStyle.Width = opts.CountyLine
		poly.LineStyle.Color = color.Gray{Y: 128}
		p.Add(poly)
	}

	for _, r := range m.Regions {
		if r.Geom == nil {
			continue
		}
		outline, err := plotter.NewPolygon(rings(r.Geom)...)
		if err != nil {
			return nil, eris.Wrapf(err, "render: region %s", r.Code)
		}
		outline.Color = nil
		outline.LineStyle.Width = opts.RegionLine
		outline.LineStyle.Color = opts.OutlineColor
		p.Add(outline)
	}

	for i, label := range Labels(m.Result, opts.Precision) {
		swatch, err := plotter.NewPolygon(plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}})
		if err != nil {
			return nil, eris.Wrap(err, "render: legend swatch")
		}
		swatch.Color = colors[i]
		swatch.LineStyle.Width = 0
		p.Legend.Add(label, swatch)
	}

	return p, nil
}

// Colors returns k colours of a sequential ColorBrewer scheme. Schemes start
// at 3 colours, so smaller k take the darkest end of the 3-colour scheme.
func Colors(scheme string, k int) ([]color.Color, error) {
	if k < 1 {
		return nil, eris.Errorf("render: class count must be positive, got %d", k)
	}
	n := k
	if n < 3 {
		n = 3
	}
	pal, err := brewer.GetPalette(brewer.TypeSequential, scheme, n)
	if err != nil {
		return nil, eris.Wrapf(err, "render: palette %s with %d classes", scheme, n)
	}
	colors := pal.Colors()
	return colors[len(colors)-k:], nil
}

// Labels formats the break range of each class, e.g. "1,000 - 2,500".
func Labels(r *classify.Result, precision int) []string {
	pr := message.NewPrinter(language.English)
	out := make([]string, r.K())
	for i := range out {
		out[i] = pr.Sprintf("%.*f - %.*f", precision, r.Breaks[i], precision, r.Breaks[i+1])
	}
	return out
}

// rings converts every ring of every polygon into plotter coordinates.
func rings(mp *geom.MultiPolygon) []plotter.XYer {
	var out []plotter.XYer
	for i := 0; i < mp.NumPolygons(); i++ {
		poly := mp.Polygon(i)
		for j := 0; j < poly.NumLinearRings(); j++ {
			coords := poly.LinearRing(j).Coords()
			xys := make(plotter.XYs, len(coords))
			for k, c := range coords {
				xys[k] = plotter.XY{X: c.X(), Y: c.Y()}
			}
			out = append(out, xys)
		}
	}
	return out
}

// Bounds returns the extent of every geometry in m.
func (m Map) Bounds() (minX, minY, maxX, maxY float64) {
	b := geom.NewBounds(geom.XY)
	for _, c := range m.Counties {
		if c.Geom != nil {
			b.Extend(c.Geom)
		}
	}
	for _, r := range m.Regions {
		if r.Geom != nil {
			b.Extend(r.Geom)
		}
	}
	if b.IsEmpty() {
		return 0, 0, 0, 0
	}
	return b.Min(0), b.Min(1), b.Max(0), b.Max(1)
}

// Size returns the image size for width w that keeps m's aspect ratio.
func (m Map) Size(w vg.Length) (vg.Length, vg.Length) {
	minX, minY, maxX, maxY := m.Bounds()
	dx, dy := maxX-minX, maxY-minY
	if dx <= 0 || dy <= 0 || math.IsNaN(dx) || math.IsNaN(dy) {
		return w, w
	}
	return w, vg.Length(float64(w) * dy / dx)
}
