package tiger

import (
	"math"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"
)

// ShapeToMultiPolygon converts a shapefile Polygon into a geom.MultiPolygon.
// Clockwise parts are outer rings; counter-clockwise parts are holes and are
// attached to the smallest outer ring that contains them. Returns nil for nil, empty,
// or non-polygon shapes.
func ShapeToMultiPolygon(shape shp.Shape) *geom.MultiPolygon {
	p, ok := shape.(*shp.Polygon)
	if !ok || p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	rings := make([][]float64, 0, p.NumParts)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if end-start < 4 {
			zap.L().Debug("tiger: skipping degenerate ring", zap.Int32("part", i))
			continue
		}
		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}
		rings = append(rings, flat)
	}

	return assemble(rings)
}

// assemble groups flat rings into polygons by orientation and containment.
func assemble(rings [][]float64) *geom.MultiPolygon {
	var outers, holes [][]float64
	for _, r := range rings {
		if signedArea(r) <= 0 {
			outers = append(outers, r)
		} else {
			holes = append(holes, r)
		}
	}
	// Some writers emit counter-clockwise outer rings only.
	if len(outers) == 0 {
		outers, holes = holes, nil
	}

	polys := make([][][]float64, len(outers))
	for i, o := range outers {
		polys[i] = [][]float64{o}
	}

	for _, h := range holes {
		// The innermost containing shell owns the hole, so a lake on an
		// island inside another lake lands on the island.
		first := geom.Coord{h[0], h[1]}
		owner := -1
		ownerArea := math.Inf(1)
		for i, o := range outers {
			if a := math.Abs(signedArea(o)); a < ownerArea && xy.IsPointInRing(geom.XY, first, o) {
				owner, ownerArea = i, a
			}
		}
		if owner < 0 {
			// Orphan hole: keep it as its own shell rather than drop area.
			polys = append(polys, [][]float64{h})
			continue
		}
		polys[owner] = append(polys[owner], h)
	}

	mp := geom.NewMultiPolygon(geom.XY)
	for i, rs := range polys {
		poly := geom.NewPolygon(geom.XY)
		for _, r := range rs {
			if err := poly.Push(geom.NewLinearRingFlat(geom.XY, r)); err != nil {
				zap.L().Debug("tiger: skipping malformed polygon ring", zap.Int("polygon", i), zap.Error(err))
			}
		}
		if poly.NumLinearRings() == 0 {
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("tiger: skipping malformed polygon part", zap.Int("polygon", i), zap.Error(err))
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// signedArea is the shoelace area of a flat XY ring: negative when clockwise.
func signedArea(flat []float64) float64 {
	var sum float64
	n := len(flat) / 2
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += flat[2*i]*flat[2*j+1] - flat[2*j]*flat[2*i+1]
	}
	return sum / 2
}

// EncodeEWKB encodes a geometry as little-endian EWKB, carrying its SRID.
// Returns nil, nil for a nil geometry.
func EncodeEWKB(g *geom.MultiPolygon) ([]byte, error) {
	if g == nil {
		return nil, nil
	}
	data, err := ewkb.Marshal(g, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "tiger: encode EWKB")
	}
	return data, nil
}
