package fetcher

import (
	"bytes"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// utf8BOM prefixes Census CSV exports and would otherwise stick to the first
// header name.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVOptions configures the delimited-text reader.
type CSVOptions struct {
	Delimiter  rune   // default ','
	Comment    rune   // comment character (0 = none)
	Encoding   string // WHATWG encoding label, e.g. "latin1"; default UTF-8
	LazyQuotes bool
	TrimSpace  bool
}

// ReadCSV reads every record from r. Records may have differing field counts
// (footnote lines at the end of BEA files are single-field).
func ReadCSV(r io.Reader, opts CSVOptions) ([][]string, error) {
	src, err := decoded(r, opts.Encoding)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(src)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	if opts.Comment != 0 {
		reader.Comment = opts.Comment
	}
	reader.LazyQuotes = opts.LazyQuotes
	reader.FieldsPerRecord = -1

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}
		if len(rows) == 0 && len(record) > 0 {
			record[0] = string(bytes.TrimPrefix([]byte(record[0]), utf8BOM))
		}
		if opts.TrimSpace {
			for i, field := range record {
				record[i] = strings.TrimSpace(field)
			}
		}
		rows = append(rows, record)
	}
	return rows, nil
}

// decoded wraps r with a decoder for the named text encoding.
func decoded(r io.Reader, encoding string) (io.Reader, error) {
	if encoding == "" || strings.EqualFold(encoding, "utf-8") || strings.EqualFold(encoding, "utf8") {
		return r, nil
	}
	enc, err := htmlindex.Get(encoding)
	if err != nil {
		return nil, eris.Wrapf(err, "csv: unsupported encoding %q", encoding)
	}
	return enc.NewDecoder().Reader(r), nil
}
