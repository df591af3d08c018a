package store

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/countymap/internal/db"
	"github.com/sells-group/countymap/internal/tiger"
)

// Schema holds the published tables in PostgreSQL.
const Schema = "countymap"

// PostgresOptions configures the PostGIS store.
type PostgresOptions struct {
	SRID     int
	MaxConns int32
}

// PostgresStore writes layers to PostGIS with COPY-staged upserts.
type PostgresStore struct {
	pool    db.Pool
	srid    int
	closeFn func()
}

// NewPostgres connects to PostgreSQL.
func NewPostgres(ctx context.Context, dsn string, opts PostgresOptions) (*PostgresStore, error) {
	pool, err := db.Connect(ctx, dsn, opts.MaxConns)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool, srid: opts.SRID, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool.
func NewPostgresWithPool(pool db.Pool, srid int) *PostgresStore {
	return &PostgresStore{pool: pool, srid: srid}
}

func (s *PostgresStore) migration() string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS postgis;
CREATE SCHEMA IF NOT EXISTS countymap;

CREATE TABLE IF NOT EXISTS countymap.runs (
	id         UUID PRIMARY KEY,
	started_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	srid       INTEGER NOT NULL,
	source     TEXT
);

CREATE TABLE IF NOT EXISTS countymap.counties (
	geoid      CHAR(5) PRIMARY KEY,
	run_id     UUID NOT NULL REFERENCES countymap.runs(id),
	name       TEXT,
	region     CHAR(2) NOT NULL,
	gdp        DOUBLE PRECISION NOT NULL DEFAULT 0,
	population DOUBLE PRECISION NOT NULL DEFAULT 0,
	geom       geometry(MultiPolygon, %[1]d)
);

CREATE TABLE IF NOT EXISTS countymap.regions (
	code     CHAR(2) PRIMARY KEY,
	run_id   UUID NOT NULL REFERENCES countymap.runs(id),
	abbr     TEXT,
	counties INTEGER NOT NULL,
	area_km2 DOUBLE PRECISION,
	geom     geometry(MultiPolygon, %[1]d)
);

CREATE INDEX IF NOT EXISTS idx_counties_region ON countymap.counties(region);
CREATE INDEX IF NOT EXISTS idx_counties_geom ON countymap.counties USING GIST (geom);
CREATE INDEX IF NOT EXISTS idx_regions_geom ON countymap.regions USING GIST (geom);
`, s.srid)
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, s.migration())
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, run Run) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO countymap.runs (id, started_at, srid, source) VALUES ($1, $2, $3, $4)`,
		run.ID, run.StartedAt, run.SRID, run.Source,
	)
	return eris.Wrapf(err, "postgres: insert run %s", run.ID)
}

var countyUpsert = db.UpsertConfig{
	Schema:       Schema,
	Table:        "counties",
	Columns:      []string{"geoid", "run_id", "name", "region", "gdp", "population", "geom"},
	ConflictKeys: []string{"geoid"},
}

var regionUpsert = db.UpsertConfig{
	Schema:       Schema,
	Table:        "regions",
	Columns:      []string{"code", "run_id", "abbr", "counties", "area_km2", "geom"},
	ConflictKeys: []string{"code"},
}

func (s *PostgresStore) WriteCounties(ctx context.Context, runID string, rows []CountyRow) (int64, error) {
	values := make([][]any, len(rows))
	for i, r := range rows {
		g, err := tiger.EncodeEWKB(r.Geom)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: county %s", r.GEOID)
		}
		values[i] = []any{r.GEOID, runID, r.Name, r.Region, r.GDP, r.Population, g}
	}
	n, err := db.BulkUpsert(ctx, s.pool, countyUpsert, values)
	return n, eris.Wrap(err, "postgres: write counties")
}

func (s *PostgresStore) WriteRegions(ctx context.Context, runID string, rows []RegionRow) (int64, error) {
	values := make([][]any, len(rows))
	for i, r := range rows {
		g, err := tiger.EncodeEWKB(r.Geom)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: region %s", r.Code)
		}
		values[i] = []any{r.Code, runID, r.Abbr, r.Counties, r.AreaKM2, g}
	}
	n, err := db.BulkUpsert(ctx, s.pool, regionUpsert, values)
	return n, eris.Wrap(err, "postgres: write regions")
}
