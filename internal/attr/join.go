package attr

import (
	"math"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/rotisserie/eris"

	"github.com/sells-group/countymap/internal/model"
)

const (
	colRow     = "row"
	colPresent = "present"
)

// JoinStats summarizes a left join.
type JoinStats struct {
	Table      string
	Counties   int
	Matched    int
	Unmatched  int // counties with no row in the table
	Suppressed int // counties whose row held a suppression marker
	Unused     int // table rows that matched no county
}

// LeftJoin attaches table values to counties by GEOID. Every county is kept
// in input order; counties without a usable value get 0. The table must not
// repeat identifiers.
func LeftJoin(counties []model.County, table *Table) ([]model.Joined, JoinStats, error) {
	stats := JoinStats{Table: table.Name, Counties: len(counties)}
	if err := table.Validate(); err != nil {
		return nil, stats, err
	}

	out := make([]model.Joined, len(counties))
	for i, c := range counties {
		out[i] = model.Joined{County: c}
	}
	if len(counties) == 0 || table.Len() == 0 {
		stats.Unmatched = len(counties)
		stats.Unused = table.Len()
		return out, stats, nil
	}

	rows := make([]string, len(counties))
	ids := make([]string, len(counties))
	for i, c := range counties {
		rows[i] = strconv.Itoa(i)
		ids[i] = c.GEOID
	}
	left := dataframe.New(
		series.New(ids, series.String, ColGEOID),
		series.New(rows, series.String, colRow),
	)

	right := table.df.Select([]string{ColGEOID, ColValue})
	present := make([]float64, right.Nrow())
	for i := range present {
		present[i] = 1
	}
	right = right.Mutate(series.New(present, series.Float, colPresent))

	joined := left.LeftJoin(right, ColGEOID)
	if joined.Err != nil {
		return nil, stats, eris.Wrapf(joined.Err, "attr: join %s", table.Name)
	}
	if joined.Nrow() != len(counties) {
		return nil, stats, eris.Wrapf(ErrFanOut, "%s: join produced %d rows for %d counties", table.Name, joined.Nrow(), len(counties))
	}

	rowIdx := joined.Col(colRow).Records()
	values := joined.Col(ColValue).Float()
	hit := joined.Col(colPresent).Float()

	matchedIDs := make(map[string]bool)
	for j, r := range rowIdx {
		i, err := strconv.Atoi(r)
		if err != nil || i < 0 || i >= len(out) {
			return nil, stats, eris.Errorf("attr: join %s lost row index %q", table.Name, r)
		}
		if math.IsNaN(hit[j]) {
			stats.Unmatched++
			continue
		}
		matchedIDs[out[i].GEOID] = true
		if math.IsNaN(values[j]) {
			stats.Suppressed++
			continue
		}
		out[i].Value = values[j]
		out[i].Matched = true
		stats.Matched++
	}

	for _, id := range table.df.Col(ColGEOID).Records() {
		if !matchedIDs[id] {
			stats.Unused++
		}
	}
	return out, stats, nil
}
