// Package tigertest writes small county shapefiles for tests.
package tigertest

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
)

// NAD83 is the .prj text of Census cartographic boundary files.
const NAD83 = `GEOGCS["GCS_North_American_1983",DATUM["D_North_American_1983",SPHEROID["GRS_1980",6378137,298.257222101]],PRIMEM["Greenwich",0],UNIT["Degree",0.017453292519943295]]`

// Feature is one county record to write.
type Feature struct {
	GEOID string
	Name  string
	Rings [][]shp.Point
}

// Square returns a clockwise closed ring for the square [x, x+size] x [y, y+size].
func Square(x, y, size float64) []shp.Point {
	return []shp.Point{
		{X: x, Y: y},
		{X: x, Y: y + size},
		{X: x + size, Y: y + size},
		{X: x + size, Y: y},
		{X: x, Y: y},
	}
}

// Grid lays out n unit-square counties for a state in rows of width cols,
// starting at (x0, y0). County codes run 001, 003, 005, ... like FIPS.
func Grid(stateFIPS string, n, cols int, x0, y0, size float64) []Feature {
	out := make([]Feature, 0, n)
	for i := 0; i < n; i++ {
		col := i % cols
		row := i / cols
		out = append(out, Feature{
			GEOID: fmt.Sprintf("%s%03d", stateFIPS, 2*i+1),
			Name:  fmt.Sprintf("County %d", 2*i+1),
			Rings: [][]shp.Point{Square(x0+float64(col)*size, y0+float64(row)*size, size)},
		})
	}
	return out
}

// WriteCounties writes features to dir/name.shp with GEOID and NAME fields
// plus a NAD83 .prj sidecar, and returns the .shp path.
func WriteCounties(t testing.TB, dir, name string, features []Feature) string {
	t.Helper()

	path := filepath.Join(dir, name+".shp")
	w, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		t.Fatalf("create shapefile: %v", err)
	}

	fields := []shp.Field{
		shp.StringField("GEOID", 5),
		shp.StringField("NAME", 40),
	}
	if err := w.SetFields(fields); err != nil {
		t.Fatalf("set fields: %v", err)
	}

	for _, f := range features {
		poly := shp.Polygon(*shp.NewPolyLine(f.Rings))
		n := int(w.Write(&poly))
		if err := w.WriteAttribute(n, 0, f.GEOID); err != nil {
			t.Fatalf("write GEOID: %v", err)
		}
		if err := w.WriteAttribute(n, 1, f.Name); err != nil {
			t.Fatalf("write NAME: %v", err)
		}
	}
	w.Close()

	if err := os.WriteFile(filepath.Join(dir, name+".prj"), []byte(NAD83), 0o644); err != nil {
		t.Fatalf("write prj: %v", err)
	}
	return path
}
