// Package geoid normalizes Census GEOIDs and filters records by state code.
package geoid

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Identifier widths.
const (
	CountyWidth = 5
	StateWidth  = 2
)

// compositeMarker separates the summary-level prefix from the GEOID in
// composite identifiers such as "0500000US01001".
const compositeMarker = "US"

var (
	// ErrInvalidLength is returned when an identifier is neither 4 nor 5 digits.
	ErrInvalidLength = eris.New("geoid: invalid identifier length")
	// ErrNotNumeric is returned when an identifier contains non-digit characters.
	ErrNotNumeric = eris.New("geoid: identifier is not numeric")
	// ErrNotComposite is returned when a composite identifier has no "US" marker.
	ErrNotComposite = eris.New("geoid: identifier is not a composite GEOID")
)

// clean strips characters that carry no identifier information: surrounding
// whitespace and quotes, and the all-zero fraction (".0", ".00") numeric
// spreadsheet cells leave.
func clean(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, `"`)
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '.'); i > 0 && strings.Trim(s[i+1:], "0") == "" {
		s = s[:i]
	}
	return s
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Normalize returns the 5-digit county GEOID for raw. Identifiers that lost
// their leading zero (4 digits) are left-padded; 5-digit identifiers are
// returned unchanged. Any other length is an error.
func Normalize(raw string) (string, error) {
	s := clean(raw)
	if !isDigits(s) {
		return "", eris.Wrapf(ErrNotNumeric, "value %q", raw)
	}
	switch len(s) {
	case CountyWidth - 1:
		return "0" + s, nil
	case CountyWidth:
		return s, nil
	default:
		return "", eris.Wrapf(ErrInvalidLength, "value %q has %d digits", raw, len(s))
	}
}

// RowError records a single identifier that failed normalization.
type RowError struct {
	Row   int
	Value string
	Err   error
}

// BatchError aggregates every identifier in a column that failed normalization.
type BatchError struct {
	Rows []RowError
}

func (e *BatchError) Error() string {
	const maxShown = 5
	var sb strings.Builder
	fmt.Fprintf(&sb, "geoid: %d invalid identifiers", len(e.Rows))
	for i, r := range e.Rows {
		if i == maxShown {
			fmt.Fprintf(&sb, "; and %d more", len(e.Rows)-maxShown)
			break
		}
		fmt.Fprintf(&sb, "; row %d %q", r.Row, r.Value)
	}
	return sb.String()
}

// Is reports whether any row failed with target, so errors.Is works on the batch.
func (e *BatchError) Is(target error) bool {
	for _, r := range e.Rows {
		if errors.Is(r.Err, target) {
			return true
		}
	}
	return false
}

// NormalizeAll normalizes a whole column. All failures are collected into a
// single *BatchError instead of stopping at the first bad row.
func NormalizeAll(raws []string) ([]string, error) {
	out := make([]string, len(raws))
	var bad []RowError
	for i, raw := range raws {
		id, err := Normalize(raw)
		if err != nil {
			bad = append(bad, RowError{Row: i, Value: raw, Err: err})
			continue
		}
		out[i] = id
	}
	if len(bad) > 0 {
		return nil, &BatchError{Rows: bad}
	}
	return out, nil
}

// FromComposite extracts the county GEOID from a composite identifier such
// as "0500000US01001". The part after the "US" marker must be 5 digits.
func FromComposite(raw string) (string, error) {
	s := clean(raw)
	idx := strings.LastIndex(s, compositeMarker)
	if idx < 0 {
		return "", eris.Wrapf(ErrNotComposite, "value %q", raw)
	}
	id := s[idx+len(compositeMarker):]
	if !isDigits(id) {
		return "", eris.Wrapf(ErrNotNumeric, "value %q", raw)
	}
	if len(id) != CountyWidth {
		return "", eris.Wrapf(ErrInvalidLength, "value %q has %d digits after %s", raw, len(id), compositeMarker)
	}
	return id, nil
}

// FromCompositeAll is the column form of FromComposite.
func FromCompositeAll(raws []string) ([]string, error) {
	out := make([]string, len(raws))
	var bad []RowError
	for i, raw := range raws {
		id, err := FromComposite(raw)
		if err != nil {
			bad = append(bad, RowError{Row: i, Value: raw, Err: err})
			continue
		}
		out[i] = id
	}
	if len(bad) > 0 {
		return nil, &BatchError{Rows: bad}
	}
	return out, nil
}

// RegionCode returns the 2-digit state code of a normalized county GEOID.
func RegionCode(geoid string) (string, error) {
	if len(geoid) != CountyWidth || !isDigits(geoid) {
		return "", eris.Wrapf(ErrInvalidLength, "region code of %q", geoid)
	}
	return geoid[:StateWidth], nil
}
