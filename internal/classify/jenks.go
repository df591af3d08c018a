package classify

import "math"

// jenksBreaks computes Jenks natural breaks over sorted data with the
// Jenks-Fisher dynamic program. lower[l][j] is the 1-based index of the first
// value of the last class in the optimal j-class split of the first l values;
// cost[l][j] is that split's within-class squared deviation.
func jenksBreaks(sorted []float64, k int) []float64 {
	n := len(sorted)
	breaks := make([]float64, k+1)
	breaks[0] = sorted[0]
	breaks[k] = sorted[n-1]
	if k == 1 {
		return breaks
	}

	lower := make([][]int, n+1)
	cost := make([][]float64, n+1)
	for i := range lower {
		lower[i] = make([]int, k+1)
		cost[i] = make([]float64, k+1)
	}
	for j := 1; j <= k; j++ {
		lower[1][j] = 1
		for l := 2; l <= n; l++ {
			cost[l][j] = math.Inf(1)
		}
	}

	for l := 2; l <= n; l++ {
		var sum, sumSq, w, dev float64
		for m := 1; m <= l; m++ {
			start := l - m + 1
			v := sorted[start-1]
			sum += v
			sumSq += v * v
			w++
			dev = sumSq - sum*sum/w
			prev := start - 1
			if prev == 0 {
				continue
			}
			for j := 2; j <= k; j++ {
				if c := dev + cost[prev][j-1]; cost[l][j] >= c {
					lower[l][j] = start
					cost[l][j] = c
				}
			}
		}
		lower[l][1] = 1
		cost[l][1] = dev
	}

	end := n
	for j := k; j >= 2; j-- {
		start := lower[end][j]
		if start < 2 {
			breaks[j-1] = sorted[0]
			continue
		}
		breaks[j-1] = sorted[start-2]
		end = start - 1
	}
	return breaks
}
