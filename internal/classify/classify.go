// Package classify bins numeric values into ordinal classes for choropleth
// colouring.
package classify

import (
	"math"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Method is a classification scheme.
type Method string

const (
	Jenks    Method = "jenks"
	Quantile Method = "quantile"
	Equal    Method = "equal"
)

// ErrNoValues is returned when there is nothing to classify.
var ErrNoValues = eris.New("classify: no values")

// ParseMethod accepts the config spelling of a method.
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(s))); m {
	case Jenks, Quantile, Equal:
		return m, nil
	case "natural_breaks", "naturalbreaks":
		return Jenks, nil
	case "equal_interval":
		return Equal, nil
	}
	return "", eris.Errorf("classify: unknown method %q", s)
}

// Result is the outcome of a classification.
type Result struct {
	Method Method
	// Breaks has K()+1 ascending bounds: Breaks[0] is the minimum, Breaks[K()]
	// the maximum. Class i covers (Breaks[i], Breaks[i+1]], the first class
	// also includes the minimum.
	Breaks  []float64
	Classes []int // class per input value, in input order
	Counts  []int
	GVF     float64 // goodness of variance fit, 1 is a perfect fit
}

// K returns the number of classes.
func (r *Result) K() int { return len(r.Breaks) - 1 }

// Classify partitions values into k classes. k is reduced to the number of
// distinct values when there are fewer.
func Classify(values []float64, k int, method Method) (*Result, error) {
	if len(values) == 0 {
		return nil, ErrNoValues
	}
	if k < 1 {
		return nil, eris.Errorf("classify: class count must be positive, got %d", k)
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, eris.Errorf("classify: value %d is not finite", i)
		}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if d := distinct(sorted); k > d {
		k = d
	}

	var breaks []float64
	switch method {
	case Jenks:
		breaks = jenksBreaks(sorted, k)
	case Quantile:
		breaks = quantileBreaks(sorted, k)
	case Equal:
		breaks = equalBreaks(sorted, k)
	default:
		return nil, eris.Errorf("classify: unknown method %q", method)
	}

	r := &Result{
		Method:  method,
		Breaks:  breaks,
		Classes: make([]int, len(values)),
		Counts:  make([]int, k),
	}
	for i, v := range values {
		c := r.ClassOf(v)
		r.Classes[i] = c
		r.Counts[c]++
	}
	r.GVF = gvf(values, r.Classes, k)
	return r, nil
}

// ClassOf returns the first class whose upper bound is at least v. Values
// outside the range clamp to the first or last class.
func (r *Result) ClassOf(v float64) int {
	k := r.K()
	if k <= 1 {
		return 0
	}
	c := sort.SearchFloat64s(r.Breaks[1:k], v)
	if c > k-1 {
		c = k - 1
	}
	return c
}

func distinct(sorted []float64) int {
	n := 0
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			n++
		}
	}
	return n
}

func quantileBreaks(sorted []float64, k int) []float64 {
	breaks := make([]float64, k+1)
	breaks[0] = sorted[0]
	breaks[k] = sorted[len(sorted)-1]
	for i := 1; i < k; i++ {
		breaks[i] = stat.Quantile(float64(i)/float64(k), stat.Empirical, sorted, nil)
	}
	return breaks
}

func equalBreaks(sorted []float64, k int) []float64 {
	lo, hi := floats.Min(sorted), floats.Max(sorted)
	breaks := make([]float64, k+1)
	step := (hi - lo) / float64(k)
	for i := range breaks {
		breaks[i] = lo + float64(i)*step
	}
	breaks[k] = hi
	return breaks
}

// gvf is 1 - SDCM/SDAM: the share of total squared deviation removed by
// classing.
func gvf(values []float64, classes []int, k int) float64 {
	mean := stat.Mean(values, nil)
	var sdam float64
	for _, v := range values {
		sdam += (v - mean) * (v - mean)
	}
	if sdam == 0 {
		return 1
	}

	groups := make([][]float64, k)
	for i, v := range values {
		groups[classes[i]] = append(groups[classes[i]], v)
	}
	var sdcm float64
	for _, g := range groups {
		if len(g) == 0 {
			continue
		}
		m := stat.Mean(g, nil)
		for _, v := range g {
			sdcm += (v - m) * (v - m)
		}
	}
	return 1 - sdcm/sdam
}
