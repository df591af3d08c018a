package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/twpayne/go-geom"
)

func TestCounty_RegionCode(t *testing.T) {
	assert.Equal(t, "01", County{GEOID: "01001"}.RegionCode())
	assert.Equal(t, "36", County{GEOID: "36061"}.RegionCode())
	assert.Equal(t, "", County{GEOID: "1"}.RegionCode())
}

func TestCounty_SRID(t *testing.T) {
	assert.Equal(t, 0, County{}.SRID())

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4269)
	assert.Equal(t, 4269, County{Geom: mp}.SRID())
}

func TestValues(t *testing.T) {
	rows := []Joined{
		{County: County{GEOID: "01001"}, Value: 10, Matched: true},
		{County: County{GEOID: "01003"}},
	}
	assert.Equal(t, []float64{10, 0}, Values(rows))
}
