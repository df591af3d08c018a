package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// UpsertConfig describes a keyed bulk upsert.
type UpsertConfig struct {
	Schema       string
	Table        string
	Columns      []string
	ConflictKeys []string
	UpdateCols   []string // nil = every non-key column
}

func (c UpsertConfig) target() pgx.Identifier {
	if c.Schema == "" {
		return pgx.Identifier{c.Table}
	}
	return pgx.Identifier{c.Schema, c.Table}
}

func (c UpsertConfig) tempTable() pgx.Identifier {
	return pgx.Identifier{"_stage_" + c.Table}
}

func (c UpsertConfig) validate() error {
	switch {
	case c.Table == "":
		return eris.New("db: upsert: no table")
	case len(c.Columns) == 0:
		return eris.New("db: upsert: no columns")
	case len(c.ConflictKeys) == 0:
		return eris.New("db: upsert: no conflict keys")
	}
	return nil
}

func (c UpsertConfig) updateCols() []string {
	if c.UpdateCols != nil {
		return c.UpdateCols
	}
	keys := make(map[string]bool, len(c.ConflictKeys))
	for _, k := range c.ConflictKeys {
		keys[k] = true
	}
	var cols []string
	for _, col := range c.Columns {
		if !keys[col] {
			cols = append(cols, col)
		}
	}
	return cols
}

// stageSQL creates the transaction-scoped staging table.
func (c UpsertConfig) stageSQL() string {
	return fmt.Sprintf("CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		c.tempTable().Sanitize(), c.target().Sanitize())
}

// mergeSQL moves staged rows into the target, updating rows that collide on
// the conflict keys.
func (c UpsertConfig) mergeSQL() string {
	cols := identList(c.Columns)
	action := "DO NOTHING"
	if update := c.updateCols(); len(update) > 0 {
		sets := make([]string, len(update))
		for i, col := range update {
			id := pgx.Identifier{col}.Sanitize()
			sets[i] = id + " = EXCLUDED." + id
		}
		action = "DO UPDATE SET " + strings.Join(sets, ", ")
	}
	return fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) %s",
		c.target().Sanitize(), cols, cols, c.tempTable().Sanitize(), identList(c.ConflictKeys), action)
}

// BulkUpsert stages rows with COPY in one transaction and merges them into
// the target with INSERT ... ON CONFLICT. Returns the rows affected.
func BulkUpsert(ctx context.Context, pool Pool, cfg UpsertConfig, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if err := cfg.validate(); err != nil {
		return 0, err
	}
	name := cfg.target().Sanitize()

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert %s: begin", name)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, cfg.stageSQL()); err != nil {
		return 0, eris.Wrapf(err, "db: upsert %s: create staging table", name)
	}
	if _, err := tx.CopyFrom(ctx, cfg.tempTable(), cfg.Columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "db: upsert %s: COPY into staging table", name)
	}
	tag, err := tx.Exec(ctx, cfg.mergeSQL())
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert %s: merge", name)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrapf(err, "db: upsert %s: commit", name)
	}
	return tag.RowsAffected(), nil
}

func identList(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
