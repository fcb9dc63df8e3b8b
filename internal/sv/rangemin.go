package sv

import (
	"math"
	"math/bits"
)

// rangeMin answers minimum queries over a fixed slice in constant time.
// levels[k][i] is the minimum of values[i : i+2^k].
type rangeMin struct {
	levels [][]float64
}

func newRangeMin(values []float64) *rangeMin {
	r := &rangeMin{levels: [][]float64{values}}
	for width := 2; width <= len(values); width *= 2 {
		prev := r.levels[len(r.levels)-1]
		half := width / 2
		next := make([]float64, len(values)-width+1)
		for i := range next {
			next[i] = min(prev[i], prev[i+half])
		}
		r.levels = append(r.levels, next)
	}
	return r
}

// min returns the minimum of values[lo:hi], or +Inf when the range is empty.
func (r *rangeMin) min(lo, hi int) float64 {
	if lo >= hi {
		return math.Inf(1)
	}
	k := bits.Len(uint(hi-lo)) - 1
	return min(r.levels[k][lo], r.levels[k][hi-(1<<k)])
}

// minCopyNumbers builds the range-min table of each breakend's lower flanking
// copy number. Breakends without copy number count as +Inf.
func minCopyNumbers(list []*Breakend) *rangeMin {
	values := make([]float64, len(list))
	for i, b := range list {
		values[i] = math.Inf(1)
		if b.CN != nil {
			values[i] = min(b.CN.Low, b.CN.High)
		}
	}
	return newRangeMin(values)
}
