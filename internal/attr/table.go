// Package attr loads county attribute tables (GDP, population) and joins them
// onto county geometry.
package attr

import (
	"math"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/rotisserie/eris"

	"github.com/sells-group/countymap/internal/model"
)

// Column names of a Table frame.
const (
	ColGEOID = "geoid"
	ColName  = "name"
	ColValue = "value"
)

var (
	// ErrFanOut is returned when an identifier occurs more than once after
	// selection, which would turn the join one-to-many.
	ErrFanOut = eris.New("attr: duplicate identifier")
	// ErrMissingColumn is returned when a configured column is absent.
	ErrMissingColumn = eris.New("attr: missing column")
)

// Table is one county attribute table keyed by normalized GEOID. Suppressed
// values are NaN in the frame and count as Missing.
type Table struct {
	Name    string
	Missing int
	df      dataframe.DataFrame
}

// NewTable builds a Table from attribute rows.
func NewTable(name string, rows []model.Attribute) *Table {
	ids := make([]string, len(rows))
	names := make([]string, len(rows))
	values := make([]float64, len(rows))
	missing := 0
	for i, r := range rows {
		ids[i] = r.GEOID
		names[i] = r.Name
		values[i] = r.Value
		if math.IsNaN(r.Value) {
			missing++
		}
	}
	return &Table{
		Name:    name,
		Missing: missing,
		df: dataframe.New(
			series.New(ids, series.String, ColGEOID),
			series.New(names, series.String, ColName),
			series.New(values, series.Float, ColValue),
		),
	}
}

// Frame returns the underlying dataframe.
func (t *Table) Frame() dataframe.DataFrame { return t.df }

// Len returns the number of rows.
func (t *Table) Len() int { return t.df.Nrow() }

// Rows returns the table as attribute records.
func (t *Table) Rows() []model.Attribute {
	ids := t.df.Col(ColGEOID).Records()
	names := t.df.Col(ColName).Records()
	values := t.df.Col(ColValue).Float()
	out := make([]model.Attribute, len(ids))
	for i := range ids {
		out[i] = model.Attribute{GEOID: ids[i], Name: names[i], Value: values[i]}
	}
	return out
}

// Validate fails with ErrFanOut when an identifier repeats.
func (t *Table) Validate() error {
	seen := make(map[string]int, t.Len())
	var dups []string
	for _, id := range t.df.Col(ColGEOID).Records() {
		seen[id]++
		if seen[id] == 2 {
			dups = append(dups, id)
		}
	}
	if len(dups) == 0 {
		return nil
	}
	sort.Strings(dups)
	shown := dups
	if len(shown) > 5 {
		shown = shown[:5]
	}
	return eris.Wrapf(ErrFanOut, "%s: %d identifiers repeat, e.g. %v", t.Name, len(dups), shown)
}

// Select keeps the rows whose column equals value, e.g. LineCode == "3" in
// BEA county GDP tables.
func Select(df dataframe.DataFrame, column, value string) (dataframe.DataFrame, error) {
	if !hasColumn(df, column) {
		return df, eris.Wrapf(ErrMissingColumn, "select on %q", column)
	}
	out := df.Filter(dataframe.F{Colname: column, Comparator: series.Eq, Comparando: value})
	if out.Err != nil {
		return df, eris.Wrapf(out.Err, "attr: select %s == %s", column, value)
	}
	return out, nil
}

func hasColumn(df dataframe.DataFrame, column string) bool {
	for _, n := range df.Names() {
		if n == column {
			return true
		}
	}
	return false
}
