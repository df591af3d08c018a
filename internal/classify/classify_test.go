package classify

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJenks_ThreeClusters(t *testing.T) {
	values := []float64{20, 1, 11, 2, 22, 3, 10, 12, 21}

	r, err := Classify(values, 3, Jenks)
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 3, 12, 22}, r.Breaks)
	assert.Equal(t, []int{2, 0, 1, 0, 2, 0, 1, 1, 2}, r.Classes)
	assert.Equal(t, []int{3, 3, 3}, r.Counts)
	assert.Greater(t, r.GVF, 0.98)
	assert.Equal(t, 3, r.K())
}

func TestJenks_SingleOutlier(t *testing.T) {
	r, err := Classify([]float64{1, 1, 2, 2, 3, 100}, 2, Jenks)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3, 100}, r.Breaks)
	assert.Equal(t, []int{5, 1}, r.Counts)
}

func TestQuantile(t *testing.T) {
	r, err := Classify([]float64{4, 3, 2, 1}, 2, Quantile)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 4}, r.Breaks)
	assert.Equal(t, []int{1, 1, 0, 0}, r.Classes)
	assert.Equal(t, []int{2, 2}, r.Counts)
}

func TestEqual(t *testing.T) {
	r, err := Classify([]float64{0, 2.5, 5, 10}, 2, Equal)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 5, 10}, r.Breaks)
	assert.Equal(t, []int{0, 0, 0, 1}, r.Classes)
}

func TestClassify_Properties(t *testing.T) {
	values := []float64{0, 0, 0, 12, 15, 40, 41, 43, 90, 300, 310, 1200, 5, 7, 9}
	for _, m := range []Method{Jenks, Quantile, Equal} {
		t.Run(string(m), func(t *testing.T) {
			r, err := Classify(values, 5, m)
			require.NoError(t, err)

			require.Len(t, r.Breaks, 6)
			assert.Equal(t, 0.0, r.Breaks[0])
			assert.Equal(t, 1200.0, r.Breaks[5])
			for i := 1; i < len(r.Breaks); i++ {
				assert.LessOrEqual(t, r.Breaks[i-1], r.Breaks[i])
			}

			total := 0
			for _, c := range r.Counts {
				total += c
			}
			assert.Equal(t, len(values), total)

			for i, v := range values {
				c := r.Classes[i]
				assert.True(t, c >= 0 && c < 5)
				assert.LessOrEqual(t, v, r.Breaks[c+1])
			}
			assert.True(t, r.GVF >= 0 && r.GVF <= 1)
		})
	}
}

func TestClassify_ClampsToDistinct(t *testing.T) {
	r, err := Classify([]float64{5, 5, 5}, 5, Jenks)
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 5}, r.Breaks)
	assert.Equal(t, []int{0, 0, 0}, r.Classes)
	assert.Equal(t, 1.0, r.GVF)

	r, err = Classify([]float64{1, 2, 2, 1}, 4, Jenks)
	require.NoError(t, err)
	assert.Equal(t, 2, r.K())
	assert.Equal(t, []float64{1, 1, 2}, r.Breaks)
}

func TestClassify_Errors(t *testing.T) {
	_, err := Classify(nil, 3, Jenks)
	assert.ErrorIs(t, err, ErrNoValues)

	_, err = Classify([]float64{1}, 0, Jenks)
	assert.Error(t, err)

	_, err = Classify([]float64{1, math.NaN()}, 2, Jenks)
	assert.Error(t, err)

	_, err = Classify([]float64{1, 2}, 2, Method("bogus"))
	assert.Error(t, err)
}

func TestClassOf_Clamps(t *testing.T) {
	r := &Result{Breaks: []float64{0, 10, 20}}
	assert.Equal(t, 0, r.ClassOf(-5))
	assert.Equal(t, 0, r.ClassOf(10))
	assert.Equal(t, 1, r.ClassOf(10.5))
	assert.Equal(t, 1, r.ClassOf(99))
}

func TestParseMethod(t *testing.T) {
	tests := map[string]Method{
		"jenks":          Jenks,
		"Natural_Breaks": Jenks,
		" quantile ":     Quantile,
		"equal_interval": Equal,
	}
	for in, want := range tests {
		got, err := ParseMethod(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseMethod("kmeans")
	assert.Error(t, err)
}
