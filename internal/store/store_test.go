package store

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/countymap/internal/model"
)

func square(x, y, size float64) *geom.MultiPolygon {
	mp := geom.NewMultiPolygonFlat(geom.XY,
		[]float64{x, y, x, y + size, x + size, y + size, x + size, y, x, y},
		[][]int{{10}},
	)
	mp.SetSRID(5070)
	return mp
}

func joined(values map[string]float64, ids ...string) []model.Joined {
	out := make([]model.Joined, len(ids))
	for i, id := range ids {
		v, ok := values[id]
		out[i] = model.Joined{
			County:  model.County{GEOID: id, Name: "County " + id, Geom: square(float64(i)*1000, 0, 1000)},
			Value:   v,
			Matched: ok,
		}
	}
	return out
}

func TestCountyRows(t *testing.T) {
	gdp := joined(map[string]float64{"01001": 10}, "01001", "36061")
	pop := joined(map[string]float64{"01001": 5, "36061": 7}, "01001", "36061")

	rows, err := CountyRows(gdp, pop)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, CountyRow{
		GEOID: "01001", Name: "County 01001", Region: "01", GDP: 10, Population: 5, Geom: gdp[0].Geom,
	}, rows[0])
	assert.Equal(t, 0.0, rows[1].GDP)
	assert.Equal(t, "36", rows[1].Region)
}

func TestCountyRows_Misaligned(t *testing.T) {
	_, err := CountyRows(joined(nil, "01001"), joined(nil, "01003"))
	assert.Error(t, err)

	_, err = CountyRows(joined(nil, "01001"), nil)
	assert.Error(t, err)
}

func TestRegionRows(t *testing.T) {
	rows := RegionRows([]model.Region{
		{Code: "36", Geom: square(0, 0, 2000), Counties: 62},
		{Code: "99"},
	})
	require.Len(t, rows, 2)
	assert.Equal(t, "NY", rows[0].Abbr)
	assert.InDelta(t, 4.0, rows[0].AreaKM2, 1e-9)
	assert.Equal(t, 62, rows[0].Counties)
	assert.Equal(t, "", rows[1].Abbr)
	assert.Equal(t, 0.0, rows[1].AreaKM2)
}

type recordingStore struct {
	runs     []Run
	counties map[string][]CountyRow
	regions  map[string][]RegionRow
}

func (r *recordingStore) Migrate(context.Context) error { return nil }
func (r *recordingStore) Close() error                  { return nil }

func (r *recordingStore) CreateRun(_ context.Context, run Run) error {
	r.runs = append(r.runs, run)
	return nil
}

func (r *recordingStore) WriteCounties(_ context.Context, runID string, rows []CountyRow) (int64, error) {
	r.counties[runID] = rows
	return int64(len(rows)), nil
}

func (r *recordingStore) WriteRegions(_ context.Context, runID string, rows []RegionRow) (int64, error) {
	r.regions[runID] = rows
	return int64(len(rows)), nil
}

func TestPublish(t *testing.T) {
	rec := &recordingStore{counties: map[string][]CountyRow{}, regions: map[string][]RegionRow{}}
	counties := []CountyRow{{GEOID: "01001"}, {GEOID: "01003"}}
	regions := []RegionRow{{Code: "01", Counties: 2}}

	res, err := Publish(context.Background(), rec, counties, regions, 5070, "cb_2023_us_county_500k.shp")
	require.NoError(t, err)

	_, err = uuid.Parse(res.RunID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Counties)
	assert.Equal(t, int64(1), res.Regions)

	require.Len(t, rec.runs, 1)
	assert.Equal(t, res.RunID, rec.runs[0].ID)
	assert.Equal(t, 5070, rec.runs[0].SRID)
	assert.Equal(t, counties, rec.counties[res.RunID])
	assert.Equal(t, regions, rec.regions[res.RunID])
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "", 5070)
	assert.Error(t, err)
}
