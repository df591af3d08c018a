package tiger

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/countymap/internal/geoid"
	"github.com/sells-group/countymap/internal/model"
	"github.com/sells-group/countymap/internal/proj"
)

// ReadOptions configures how county records are read from a shapefile.
type ReadOptions struct {
	IDField   string // default "GEOID"
	NameField string // default "NAME"
	SRID      int    // used when the .prj sidecar is missing or unrecognized
}

// ReadCounties reads every polygon record of a county boundary shapefile.
// The GEOID is taken from IDField, falling back to the composite AFFGEOID or
// STATEFP+COUNTYFP when IDField is absent. A malformed identifier aborts the
// read; records without geometry are skipped.
func ReadCounties(shpPath string, opts ReadOptions) ([]model.County, error) {
	if opts.IDField == "" {
		opts.IDField = "GEOID"
	}
	if opts.NameField == "" {
		opts.NameField = "NAME"
	}

	log := zap.L().With(
		zap.String("component", "tiger.shapefile"),
		zap.String("path", shpPath),
	)

	srid := proj.DetectSRID(prjPath(shpPath))
	if srid == 0 {
		srid = opts.SRID
		log.Debug("no recognized .prj, using configured SRID", zap.Int("srid", srid))
	}

	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "tiger: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	fieldIdx := make(map[string]int)
	for i, f := range reader.Fields() {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}

	idOf, err := identifierFunc(reader, fieldIdx, opts.IDField)
	if err != nil {
		return nil, err
	}
	nameIdx, hasName := fieldIdx[strings.ToLower(opts.NameField)]

	var counties []model.County
	var skipped int

	for reader.Next() {
		n, shape := reader.Shape()

		id, idErr := idOf()
		if idErr != nil {
			return nil, eris.Wrapf(idErr, "tiger: record %d", n)
		}

		mp := ShapeToMultiPolygon(shape)
		if mp == nil {
			skipped++
			continue
		}
		mp.SetSRID(srid)

		c := model.County{GEOID: id, Geom: mp}
		if hasName {
			c.Name = attribute(reader, nameIdx)
		}
		counties = append(counties, c)
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrapf(err, "tiger: read shapefile %s", shpPath)
	}

	log.Info("counties read",
		zap.Int("counties", len(counties)),
		zap.Int("skipped", skipped),
		zap.Int("srid", srid),
	)

	return counties, nil
}

// identifierFunc picks the column strategy for the county GEOID.
func identifierFunc(reader *shp.Reader, fieldIdx map[string]int, idField string) (func() (string, error), error) {
	if idx, ok := fieldIdx[strings.ToLower(idField)]; ok {
		return func() (string, error) {
			return geoid.Normalize(attribute(reader, idx))
		}, nil
	}
	if idx, ok := fieldIdx["affgeoid"]; ok {
		return func() (string, error) {
			return geoid.FromComposite(attribute(reader, idx))
		}, nil
	}
	stIdx, okSt := fieldIdx["statefp"]
	coIdx, okCo := fieldIdx["countyfp"]
	if okSt && okCo {
		return func() (string, error) {
			return geoid.Normalize(attribute(reader, stIdx) + attribute(reader, coIdx))
		}, nil
	}
	return nil, eris.Errorf("tiger: shapefile has no %s, AFFGEOID, or STATEFP/COUNTYFP field", idField)
}

func attribute(reader *shp.Reader, idx int) string {
	val := strings.TrimRight(reader.Attribute(idx), "\x00")
	return strings.TrimSpace(val)
}

// prjPath returns the .prj sidecar path for a .shp path.
func prjPath(shpPath string) string {
	ext := shpPath[strings.LastIndex(shpPath, ".")+1:]
	if strings.EqualFold(ext, "shp") {
		return shpPath[:len(shpPath)-len(ext)] + "prj"
	}
	return shpPath + ".prj"
}
