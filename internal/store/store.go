// Package store publishes the joined county layer and the dissolved region
// layer to a spatial database.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/countymap/internal/geoid"
	"github.com/sells-group/countymap/internal/model"
)

// Drivers accepted by Open.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// CountyRow is one county of the published county layer.
type CountyRow struct {
	GEOID      string
	Name       string
	Region     string
	GDP        float64
	Population float64
	Geom       *geom.MultiPolygon
}

// RegionRow is one region of the published region layer.
type RegionRow struct {
	Code     string
	Abbr     string
	Counties int
	AreaKM2  float64
	Geom     *geom.MultiPolygon
}

// Run identifies one publish.
type Run struct {
	ID        string
	StartedAt time.Time
	SRID      int
	Source    string
}

// Store persists map layers.
type Store interface {
	Migrate(ctx context.Context) error
	CreateRun(ctx context.Context, run Run) error
	WriteCounties(ctx context.Context, runID string, rows []CountyRow) (int64, error)
	WriteRegions(ctx context.Context, runID string, rows []RegionRow) (int64, error)
	Close() error
}

// Open connects to the configured driver.
func Open(ctx context.Context, driver, dsn string, srid int) (Store, error) {
	switch driver {
	case DriverPostgres:
		return NewPostgres(ctx, dsn, PostgresOptions{SRID: srid})
	case DriverSQLite:
		return NewSQLite(dsn)
	}
	return nil, eris.Errorf("store: unknown driver %q", driver)
}

// CountyRows merges the GDP and population joins into county rows. Both
// joins must list the same counties in the same order.
func CountyRows(gdp, population []model.Joined) ([]CountyRow, error) {
	if len(gdp) != len(population) {
		return nil, eris.Errorf("store: %d GDP rows for %d population rows", len(gdp), len(population))
	}
	rows := make([]CountyRow, len(gdp))
	for i, g := range gdp {
		if population[i].GEOID != g.GEOID {
			return nil, eris.Errorf("store: row %d is %s in GDP and %s in population", i, g.GEOID, population[i].GEOID)
		}
		rows[i] = CountyRow{
			GEOID:      g.GEOID,
			Name:       g.Name,
			Region:     g.RegionCode(),
			GDP:        g.Value,
			Population: population[i].Value,
			Geom:       g.Geom,
		}
	}
	return rows, nil
}

// RegionRows converts dissolved regions. Areas are taken from the geometry
// and are only meaningful in an equal-area CRS.
func RegionRows(regions []model.Region) []RegionRow {
	rows := make([]RegionRow, len(regions))
	for i, r := range regions {
		abbr, _ := geoid.AbbrFromFIPS(r.Code)
		row := RegionRow{Code: r.Code, Abbr: abbr, Counties: r.Counties, Geom: r.Geom}
		if r.Geom != nil {
			row.AreaKM2 = r.Geom.Area() / 1e6
		}
		rows[i] = row
	}
	return rows
}

// PublishResult reports what a publish wrote.
type PublishResult struct {
	RunID    string
	Counties int64
	Regions  int64
}

// Publish writes both layers under a new run id.
func Publish(ctx context.Context, s Store, counties []CountyRow, regions []RegionRow, srid int, source string) (*PublishResult, error) {
	run := Run{
		ID:        uuid.New().String(),
		StartedAt: time.Now().UTC(),
		SRID:      srid,
		Source:    source,
	}
	log := zap.L().With(zap.String("component", "store"), zap.String("run_id", run.ID))

	if err := s.CreateRun(ctx, run); err != nil {
		return nil, err
	}
	nc, err := s.WriteCounties(ctx, run.ID, counties)
	if err != nil {
		return nil, err
	}
	nr, err := s.WriteRegions(ctx, run.ID, regions)
	if err != nil {
		return nil, err
	}

	log.Info("layers published", zap.Int64("counties", nc), zap.Int64("regions", nr))
	return &PublishResult{RunID: run.ID, Counties: nc, Regions: nr}, nil
}
