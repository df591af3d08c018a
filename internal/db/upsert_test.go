package db

import (
	"context"
	"fmt"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func regionsUpsert() UpsertConfig {
	return UpsertConfig{
		Schema:       "countymap",
		Table:        "regions",
		Columns:      []string{"code", "counties", "geom"},
		ConflictKeys: []string{"code"},
	}
}

func TestUpsertConfig_SQL(t *testing.T) {
	cfg := regionsUpsert()
	assert.Equal(t,
		`CREATE TEMP TABLE "_stage_regions" (LIKE "countymap"."regions" INCLUDING DEFAULTS) ON COMMIT DROP`,
		cfg.stageSQL())
	assert.Equal(t,
		`INSERT INTO "countymap"."regions" ("code", "counties", "geom") SELECT "code", "counties", "geom" FROM "_stage_regions" ON CONFLICT ("code") DO UPDATE SET "counties" = EXCLUDED."counties", "geom" = EXCLUDED."geom"`,
		cfg.mergeSQL())

	cfg.Columns = []string{"code"}
	assert.Contains(t, cfg.mergeSQL(), "DO NOTHING")
}

func TestUpsertConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  UpsertConfig
		want string
	}{
		{"no table", UpsertConfig{Columns: []string{"a"}, ConflictKeys: []string{"a"}}, "no table"},
		{"no columns", UpsertConfig{Table: "t", ConflictKeys: []string{"a"}}, "no columns"},
		{"no keys", UpsertConfig{Table: "t", Columns: []string{"a"}}, "no conflict keys"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BulkUpsert(context.Background(), nil, tt.cfg, [][]any{{1}})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(context.Background(), nil, regionsUpsert(), nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cfg := regionsUpsert()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(cfg.stageSQL())).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_stage_regions"}, cfg.Columns).WillReturnResult(2)
	mock.ExpectExec(regexp.QuoteMeta(cfg.mergeSQL())).WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := BulkUpsert(context.Background(), mock, cfg, [][]any{
		{"01", 67, []byte{0x01}},
		{"04", 15, []byte{0x01}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_CopyFails(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cfg := regionsUpsert()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(cfg.stageSQL())).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_stage_regions"}, cfg.Columns).WillReturnError(fmt.Errorf("bad geometry"))
	mock.ExpectRollback()

	_, err = BulkUpsert(context.Background(), mock, cfg, [][]any{{"01", 67, []byte{0x01}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY into staging table")
	assert.NoError(t, mock.ExpectationsWereMet())
}
