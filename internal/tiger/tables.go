// Package tiger reads Census county boundary shapefiles (TIGER/Line and
// cartographic boundary files) into county records.
package tiger

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Boundary describes a national county boundary product.
type Boundary struct {
	Year int
	// Resolution selects a cartographic boundary file ("500k", "5m", "20m").
	// Empty selects the full-resolution TIGER/Line file.
	Resolution string
}

var resolutions = map[string]bool{"500k": true, "5m": true, "20m": true}

// Validate checks the year and resolution.
func (b Boundary) Validate() error {
	if b.Year < 2010 {
		return eris.Errorf("tiger: unsupported boundary year %d", b.Year)
	}
	if b.Resolution != "" && !resolutions[strings.ToLower(b.Resolution)] {
		return eris.Errorf("tiger: unknown resolution %q (want 500k, 5m, or 20m)", b.Resolution)
	}
	return nil
}

// FileName returns the archive name, e.g. "cb_2018_us_county_500k.zip".
func (b Boundary) FileName() string {
	if b.Resolution == "" {
		return fmt.Sprintf("tl_%d_us_county.zip", b.Year)
	}
	return fmt.Sprintf("cb_%d_us_county_%s.zip", b.Year, strings.ToLower(b.Resolution))
}

// URL builds the Census Bureau download URL for the boundary archive.
// TIGER/Line files live under TIGER{year}/COUNTY; cartographic boundary files
// under GENZ{year}/shp.
func (b Boundary) URL() string {
	if b.Resolution == "" {
		return fmt.Sprintf("https://www2.census.gov/geo/tiger/TIGER%d/COUNTY/%s", b.Year, b.FileName())
	}
	return fmt.Sprintf("https://www2.census.gov/geo/tiger/GENZ%d/shp/%s", b.Year, b.FileName())
}
