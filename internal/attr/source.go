package attr

import (
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/countymap/internal/fetcher"
	"github.com/sells-group/countymap/internal/geoid"
	"github.com/sells-group/countymap/internal/model"
)

// IDFormat is how a source spells county identifiers.
type IDFormat string

const (
	// Padded identifiers are numeric FIPS codes that may have lost a leading
	// zero ("1001").
	Padded IDFormat = "padded"
	// Composite identifiers embed the GEOID after a "US" marker
	// ("0500000US01001").
	Composite IDFormat = "composite"
)

// Source describes one attribute file.
type Source struct {
	Path      string
	Sheet     string // xlsx sheet name, default first sheet
	SkipRows  int    // rows above the header
	LabelRows int    // descriptive rows between the header and the data
	Delimiter string
	Encoding  string

	IDColumn    string
	IDFormat    IDFormat
	NameColumn  string
	ValueColumn string

	// DiscriminantColumn and Discriminant select one record type per county
	// before identifiers are normalized. Empty disables selection.
	DiscriminantColumn string
	Discriminant       string
}

// GDPSource returns the defaults for a BEA CAGDP county GDP table with
// current-dollar GDP (line code 3) for year.
func GDPSource(path, year string) Source {
	return Source{
		Path:               path,
		IDColumn:           "GeoFIPS",
		IDFormat:           Padded,
		NameColumn:         "GeoName",
		ValueColumn:        year,
		DiscriminantColumn: "LineCode",
		Discriminant:       "3",
	}
}

// PopulationSource returns the defaults for a Census county population table
// keyed by the composite GEO_ID.
func PopulationSource(path, valueColumn string) Source {
	return Source{
		Path:        path,
		IDColumn:    "GEO_ID",
		IDFormat:    Composite,
		NameColumn:  "NAME",
		ValueColumn: valueColumn,
		LabelRows:   1,
	}
}

// LoadGDP loads a county GDP table.
func LoadGDP(src Source) (*Table, error) {
	if src.IDFormat == "" {
		src.IDFormat = Padded
	}
	return Load("gdp", src)
}

// LoadPopulation loads a county population table.
func LoadPopulation(src Source) (*Table, error) {
	if src.IDFormat == "" {
		src.IDFormat = Composite
	}
	return Load("population", src)
}

// Load reads src into a validated Table. Rows are selected by the
// discriminant first, then identifiers are normalized; any malformed
// identifier among the selected rows fails the load.
func Load(name string, src Source) (*Table, error) {
	log := zap.L().With(
		zap.String("component", "attr"),
		zap.String("table", name),
		zap.String("path", src.Path),
	)

	records, err := readRecords(src)
	if err != nil {
		return nil, err
	}
	df, err := frame(records, src.LabelRows)
	if err != nil {
		return nil, eris.Wrapf(err, "attr: %s", name)
	}

	for _, col := range []string{src.IDColumn, src.ValueColumn} {
		if col == "" || !hasColumn(df, col) {
			return nil, eris.Wrapf(ErrMissingColumn, "%s: column %q", name, col)
		}
	}

	before := df.Nrow()
	if src.DiscriminantColumn != "" {
		df, err = Select(df, src.DiscriminantColumn, src.Discriminant)
		if err != nil {
			return nil, eris.Wrapf(err, "attr: %s", name)
		}
	}

	rawIDs := df.Col(src.IDColumn).Records()
	var ids []string
	switch src.IDFormat {
	case Composite:
		ids, err = geoid.FromCompositeAll(rawIDs)
	default:
		ids, err = geoid.NormalizeAll(rawIDs)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "attr: %s column %s", name, src.IDColumn)
	}

	var names []string
	if src.NameColumn != "" && hasColumn(df, src.NameColumn) {
		names = df.Col(src.NameColumn).Records()
	}
	rawValues := df.Col(src.ValueColumn).Records()

	rows := make([]model.Attribute, len(ids))
	for i, id := range ids {
		v, err := ParseValue(rawValues[i])
		if err != nil {
			return nil, eris.Wrapf(err, "attr: %s row %s", name, id)
		}
		rows[i] = model.Attribute{GEOID: id, Value: v}
		if names != nil {
			rows[i].Name = names[i]
		}
	}

	t := NewTable(name, rows)
	if err := t.Validate(); err != nil {
		return nil, err
	}

	log.Info("attribute table loaded",
		zap.Int("read", before),
		zap.Int("rows", t.Len()),
		zap.Int("suppressed", t.Missing),
	)
	return t, nil
}

func readRecords(src Source) ([][]string, error) {
	if strings.EqualFold(filepath.Ext(src.Path), ".xlsx") {
		return fetcher.ReadXLSX(src.Path, fetcher.XLSXOptions{
			SheetName: src.Sheet,
			SkipRows:  src.SkipRows,
		})
	}

	f, err := os.Open(src.Path)
	if err != nil {
		return nil, eris.Wrapf(err, "attr: open %s", src.Path)
	}
	defer f.Close() //nolint:errcheck

	opts := fetcher.CSVOptions{
		Encoding:   src.Encoding,
		LazyQuotes: true,
		TrimSpace:  true,
	}
	if src.Delimiter != "" {
		opts.Delimiter, _ = utf8.DecodeRuneInString(src.Delimiter)
	}
	records, err := fetcher.ReadCSV(f, opts)
	if err != nil {
		return nil, eris.Wrapf(err, "attr: read %s", src.Path)
	}
	if src.SkipRows >= len(records) {
		return nil, eris.Errorf("attr: %s has no rows after skipping %d", src.Path, src.SkipRows)
	}
	return records[src.SkipRows:], nil
}

// frame loads string records (header first) into an all-string dataframe.
// Short rows such as trailing footnotes are padded so every record matches
// the header width.
func frame(records [][]string, labelRows int) (dataframe.DataFrame, error) {
	if len(records) == 0 {
		return dataframe.DataFrame{}, eris.New("no header row")
	}
	header := records[0]
	width := len(header)

	body := records[1:]
	if labelRows > len(body) {
		labelRows = len(body)
	}
	body = body[labelRows:]

	rect := make([][]string, 0, len(body)+1)
	rect = append(rect, header)
	for _, r := range body {
		row := make([]string, width)
		copy(row, r)
		rect = append(rect, row)
	}

	df := dataframe.LoadRecords(rect,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nil),
	)
	if df.Err != nil {
		return df, eris.Wrap(df.Err, "load records")
	}
	return df, nil
}
