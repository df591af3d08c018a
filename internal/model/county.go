// Package model defines the county, region, and attribute records that flow
// through the map pipeline.
package model

import (
	"github.com/twpayne/go-geom"
)

// County is a county boundary keyed by its 5-digit GEOID.
type County struct {
	GEOID string
	Name  string
	Geom  *geom.MultiPolygon
}

// RegionCode returns the 2-digit state prefix of the GEOID.
func (c County) RegionCode() string {
	if len(c.GEOID) < 2 {
		return ""
	}
	return c.GEOID[:2]
}

// SRID returns the spatial reference of the county geometry, 0 if unset.
func (c County) SRID() int {
	if c.Geom == nil {
		return 0
	}
	return c.Geom.SRID()
}

// Region is the dissolved union of every county sharing a state code.
type Region struct {
	Code     string
	Geom     *geom.MultiPolygon
	Counties int
}

// Attribute is one row of a county-level table such as GDP or population.
type Attribute struct {
	GEOID string
	Name  string
	Value float64
}

// Joined is a county with the attribute value joined onto it. Matched is
// false when the table had no row for the county, in which case Value is 0.
type Joined struct {
	County
	Value   float64
	Matched bool
}

// Values extracts the joined values in county order.
func Values(rows []Joined) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r.Value
	}
	return out
}
