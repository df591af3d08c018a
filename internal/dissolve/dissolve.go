// Package dissolve merges county polygons into one polygon per region.
package dissolve

import (
	"context"
	"runtime"
	"sort"

	sfgeom "github.com/peterstace/simplefeatures/geom"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/countymap/internal/model"
)

// ErrMixedSRID is returned when the counties of one call disagree on CRS.
var ErrMixedSRID = eris.New("dissolve: counties have mixed SRIDs")

// Options configures Dissolve.
type Options struct {
	Concurrency int // regions unioned in parallel, default GOMAXPROCS
}

// Dissolve groups counties by region code and unions each group. The result
// has one Region per distinct code, sorted by code. Counties without geometry
// count toward their region but add no area.
func Dissolve(ctx context.Context, counties []model.County, opts Options) ([]model.Region, error) {
	log := zap.L().With(zap.String("component", "dissolve"))

	srid, err := commonSRID(counties)
	if err != nil {
		return nil, err
	}

	groups := make(map[string][]model.County)
	for _, c := range counties {
		code := c.RegionCode()
		groups[code] = append(groups[code], c)
	}
	codes := make([]string, 0, len(groups))
	for code := range groups {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	limit := opts.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	regions := make([]model.Region, len(codes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, code := range codes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			merged, err := Union(groups[code])
			if err != nil {
				return eris.Wrapf(err, "dissolve: region %s", code)
			}
			if merged != nil {
				merged.SetSRID(srid)
			}
			regions[i] = model.Region{Code: code, Geom: merged, Counties: len(groups[code])}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Info("counties dissolved",
		zap.Int("counties", len(counties)),
		zap.Int("regions", len(regions)),
	)
	return regions, nil
}

func commonSRID(counties []model.County) (int, error) {
	srid, set := 0, false
	for _, c := range counties {
		if c.Geom == nil {
			continue
		}
		if !set {
			srid, set = c.SRID(), true
			continue
		}
		if c.SRID() != srid {
			return 0, eris.Wrapf(ErrMixedSRID, "%s has %d, expected %d", c.GEOID, c.SRID(), srid)
		}
	}
	return srid, nil
}

// Union computes the polygon union of the counties' geometries as a cascaded
// pairwise reduction. Returns nil when no county has geometry.
func Union(counties []model.County) (*geom.MultiPolygon, error) {
	parts := make([]sfgeom.Geometry, 0, len(counties))
	for _, c := range counties {
		if c.Geom == nil || c.Geom.NumPolygons() == 0 {
			continue
		}
		g, err := toSF(c.Geom)
		if err != nil {
			return nil, eris.Wrapf(err, "county %s", c.GEOID)
		}
		parts = append(parts, g)
	}
	if len(parts) == 0 {
		return nil, nil
	}

	for len(parts) > 1 {
		next := make([]sfgeom.Geometry, 0, (len(parts)+1)/2)
		for i := 0; i < len(parts); i += 2 {
			if i+1 == len(parts) {
				next = append(next, parts[i])
				continue
			}
			u, err := sfgeom.Union(parts[i], parts[i+1])
			if err != nil {
				return nil, eris.Wrap(err, "union")
			}
			next = append(next, u)
		}
		parts = next
	}
	return fromSF(parts[0])
}

func toSF(mp *geom.MultiPolygon) (sfgeom.Geometry, error) {
	data, err := wkb.Marshal(mp, wkb.NDR)
	if err != nil {
		return sfgeom.Geometry{}, eris.Wrap(err, "encode WKB")
	}
	g, err := sfgeom.UnmarshalWKB(data)
	if err != nil {
		return sfgeom.Geometry{}, eris.Wrap(err, "decode WKB")
	}
	return g, nil
}

// fromSF converts a union result back to a MultiPolygon. Line or point
// fragments left by touching boundaries are dropped.
func fromSF(g sfgeom.Geometry) (*geom.MultiPolygon, error) {
	t, err := wkb.Unmarshal(g.AsBinary())
	if err != nil {
		return nil, eris.Wrap(err, "decode union WKB")
	}
	out := geom.NewMultiPolygon(geom.XY)
	if err := collectPolygons(out, t); err != nil {
		return nil, err
	}
	return out, nil
}

func collectPolygons(dst *geom.MultiPolygon, t geom.T) error {
	switch v := t.(type) {
	case *geom.Polygon:
		if v.Empty() {
			return nil
		}
		return eris.Wrap(dst.Push(v), "collect polygon")
	case *geom.MultiPolygon:
		for i := 0; i < v.NumPolygons(); i++ {
			if err := collectPolygons(dst, v.Polygon(i)); err != nil {
				return err
			}
		}
	case *geom.GeometryCollection:
		for _, child := range v.Geoms() {
			if err := collectPolygons(dst, child); err != nil {
				return err
			}
		}
	}
	return nil
}
