package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DefaultBatchSize is the COPY batch size when none is configured.
const DefaultBatchSize = 5000

// CopyBatches bulk-inserts rows into table with the COPY protocol in chunks
// of batchSize rows (0 = DefaultBatchSize). On failure it returns the rows
// already copied.
func CopyBatches(ctx context.Context, pool Pool, table pgx.Identifier, columns []string, rows [][]any, batchSize int) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	log := zap.L().With(
		zap.String("component", "db.copy"),
		zap.String("table", table.Sanitize()),
	)

	var total int64
	for start := 0; start < len(rows); start += batchSize {
		end := min(start+batchSize, len(rows))
		n, err := pool.CopyFrom(ctx, table, columns, pgx.CopyFromRows(rows[start:end]))
		if err != nil {
			return total, eris.Wrapf(err, "db: COPY into %s (rows %d-%d)", table.Sanitize(), start, end)
		}
		total += n
		log.Debug("batch copied", zap.Int("start", start), zap.Int64("rows", n))
	}
	return total, nil
}
