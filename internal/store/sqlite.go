package store

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/countymap/internal/tiger"
)

// SQLiteStore writes layers to a SQLite file with EWKB geometry blobs.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// Pragmas are per connection; a single writer keeps them in force.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	started_at DATETIME NOT NULL,
	srid       INTEGER NOT NULL,
	source     TEXT
);

CREATE TABLE IF NOT EXISTS counties (
	geoid      TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	name       TEXT,
	region     TEXT NOT NULL,
	gdp        REAL NOT NULL DEFAULT 0,
	population REAL NOT NULL DEFAULT 0,
	geom       BLOB
);

CREATE TABLE IF NOT EXISTS regions (
	code     TEXT PRIMARY KEY,
	run_id   TEXT NOT NULL REFERENCES runs(id),
	abbr     TEXT,
	counties INTEGER NOT NULL,
	area_km2 REAL,
	geom     BLOB
);

CREATE INDEX IF NOT EXISTS idx_counties_region ON counties(region);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, srid, source) VALUES (?, ?, ?, ?)`,
		run.ID, run.StartedAt, run.SRID, run.Source,
	)
	return eris.Wrapf(err, "sqlite: insert run %s", run.ID)
}

func (s *SQLiteStore) WriteCounties(ctx context.Context, runID string, rows []CountyRow) (int64, error) {
	return s.writeAll(ctx, "counties",
		`INSERT OR REPLACE INTO counties (geoid, run_id, name, region, gdp, population, geom) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		len(rows), func(i int) ([]any, error) {
			r := rows[i]
			g, err := tiger.EncodeEWKB(r.Geom)
			if err != nil {
				return nil, eris.Wrapf(err, "county %s", r.GEOID)
			}
			return []any{r.GEOID, runID, r.Name, r.Region, r.GDP, r.Population, g}, nil
		})
}

func (s *SQLiteStore) WriteRegions(ctx context.Context, runID string, rows []RegionRow) (int64, error) {
	return s.writeAll(ctx, "regions",
		`INSERT OR REPLACE INTO regions (code, run_id, abbr, counties, area_km2, geom) VALUES (?, ?, ?, ?, ?, ?)`,
		len(rows), func(i int) ([]any, error) {
			r := rows[i]
			g, err := tiger.EncodeEWKB(r.Geom)
			if err != nil {
				return nil, eris.Wrapf(err, "region %s", r.Code)
			}
			return []any{r.Code, runID, r.Abbr, r.Counties, r.AreaKM2, g}, nil
		})
}

// writeAll inserts n rows with one prepared statement in a transaction.
func (s *SQLiteStore) writeAll(ctx context.Context, table, query string, n int, args func(int) ([]any, error)) (int64, error) {
	if n == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: begin %s", table)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: prepare %s", table)
	}
	defer stmt.Close() //nolint:errcheck

	for i := 0; i < n; i++ {
		a, err := args(i)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: %s", table)
		}
		if _, err := stmt.ExecContext(ctx, a...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert %s row %d", table, i)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrapf(err, "sqlite: commit %s", table)
	}
	return int64(n), nil
}
