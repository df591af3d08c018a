// Package proj reprojects county geometries between the geographic and
// projected coordinate reference systems used for US county maps.
package proj

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// EPSG codes of the supported coordinate reference systems.
const (
	WGS84       = 4326
	NAD83       = 4269
	ConusAlbers = 5070
	WebMercator = 3857
)

var (
	// ErrNoCRS is returned for geometries without an SRID.
	ErrNoCRS = eris.New("proj: geometry has no CRS")
	// ErrUnsupportedCRS is returned for SRIDs with no known projection.
	ErrUnsupportedCRS = eris.New("proj: unsupported CRS")
)

// CRS is a coordinate reference system that maps geographic lon/lat degrees
// to its own planar coordinates.
type CRS struct {
	SRID       int
	Name       string
	Geographic bool
	forward    func(lon, lat float64) (x, y float64)
}

var registry = map[int]CRS{
	WGS84:       {SRID: WGS84, Name: "WGS 84", Geographic: true, forward: identity},
	NAD83:       {SRID: NAD83, Name: "NAD83", Geographic: true, forward: identity},
	ConusAlbers: {SRID: ConusAlbers, Name: "NAD83 / Conus Albers", forward: conusAlbers.forward},
	WebMercator: {SRID: WebMercator, Name: "WGS 84 / Pseudo-Mercator", forward: webMercator},
}

// Lookup returns the CRS for an EPSG code.
func Lookup(srid int) (CRS, error) {
	if srid == 0 {
		return CRS{}, ErrNoCRS
	}
	c, ok := registry[srid]
	if !ok {
		return CRS{}, eris.Wrapf(ErrUnsupportedCRS, "EPSG:%d", srid)
	}
	return c, nil
}

// Supported reports whether srid is a known CRS.
func Supported(srid int) bool {
	_, ok := registry[srid]
	return ok
}

func identity(lon, lat float64) (float64, float64) { return lon, lat }

// webMercator is the spherical Pseudo-Mercator used by web tiles. Latitude
// is clamped to the projection's square extent.
func webMercator(lon, lat float64) (float64, float64) {
	const (
		r      = 6378137.0
		maxLat = 85.05112877980659
	)
	lat = math.Max(-maxLat, math.Min(maxLat, lat))
	x := r * lon * math.Pi / 180
	y := r * math.Log(math.Tan(math.Pi/4+lat*math.Pi/360))
	return x, y
}

// Transform reprojects g from its SRID into the target CRS. The input is not
// modified. Geographic CRSs are treated as coincident (NAD83 and WGS 84 differ
// by about a metre, below map resolution).
func Transform(g *geom.MultiPolygon, target int) (*geom.MultiPolygon, error) {
	if g == nil {
		return nil, nil
	}
	src, err := Lookup(g.SRID())
	if err != nil {
		return nil, err
	}
	dst, err := Lookup(target)
	if err != nil {
		return nil, err
	}
	if src.SRID == dst.SRID {
		return g, nil
	}
	if !src.Geographic {
		return nil, eris.Errorf("proj: cannot reproject from projected %s (EPSG:%d)", src.Name, src.SRID)
	}

	in := g.FlatCoords()
	stride := g.Stride()
	out := make([]float64, len(in))
	copy(out, in)
	for i := 0; i+1 < len(out); i += stride {
		out[i], out[i+1] = dst.forward(in[i], in[i+1])
	}

	endss := g.Endss()
	moved := geom.NewMultiPolygonFlat(g.Layout(), out, endss)
	moved.SetSRID(dst.SRID)
	return moved, nil
}

// TransformAll reprojects every geometry of a layer into target.
func TransformAll(gs []*geom.MultiPolygon, target int) ([]*geom.MultiPolygon, error) {
	out := make([]*geom.MultiPolygon, len(gs))
	for i, g := range gs {
		t, err := Transform(g, target)
		if err != nil {
			return nil, eris.Wrapf(err, "proj: geometry %d", i)
		}
		out[i] = t
	}
	return out, nil
}
