// Package stats computes the descriptive statistics shown on the analytics
// dashboards: univariate summaries with histogram bins, and Pearson/Spearman
// correlation with an ordinary least-squares fit line.
//
// Every function is a pure function of its inputs. Callers drop nulls before
// calling (see Values and Pair).
package stats

import (
	"sort"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultBins is the histogram bin count handed to the presentation layer.
const DefaultBins = 20

// Summary describes one numeric column.
type Summary struct {
	Count        int     `json:"count"`
	Mean         float64 `json:"mean"`
	Median       float64 `json:"median"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	StdDev       float64 `json:"std_dev"`
	Sum          float64 `json:"sum"`
	Insufficient bool    `json:"insufficient_data"`
}

// Bin is one histogram bucket. Lower is inclusive; Upper is exclusive except
// for the last bin.
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// Values drops the nulls of a nullable column.
func Values(column []*float64) []float64 {
	return lo.FilterMap(column, func(v *float64, _ int) (float64, bool) {
		if v == nil {
			return 0, false
		}
		return *v, true
	})
}

// Summarize returns count, mean, median, extremes and sample standard
// deviation. An empty input yields an Insufficient summary, not an error.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{Insufficient: true}
	}
	s := Summary{
		Count:  len(values),
		Mean:   stat.Mean(values, nil),
		Median: Median(values),
		Min:    floats.Min(values),
		Max:    floats.Max(values),
		Sum:    floats.Sum(values),
	}
	if len(values) > 1 {
		s.StdDev = stat.StdDev(values, nil)
	}
	return s
}

// Median returns the middle value, averaging the two middle values for an
// even count. The input is not modified.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// Histogram splits values into equal-width bins spanning [min, max]. A
// constant column is spread over [v-0.5, v+0.5]. Empty input or a
// non-positive bin count yields no bins.
func Histogram(values []float64, bins int) []Bin {
	if len(values) == 0 || bins <= 0 {
		return []Bin{}
	}
	low, high := floats.Min(values), floats.Max(values)
	if low == high {
		low, high = low-0.5, high+0.5
	}

	edges := floats.Span(make([]float64, bins+1), low, high)
	out := make([]Bin, bins)
	for i := range out {
		out[i] = Bin{Lower: edges[i], Upper: edges[i+1]}
	}
	width := (high - low) / float64(bins)
	for _, v := range values {
		i := int((v - low) / width)
		if i >= bins {
			i = bins - 1
		}
		// Floating-point division can land one bin off near an edge.
		for i > 0 && v < edges[i] {
			i--
		}
		for i < bins-1 && v >= edges[i+1] {
			i++
		}
		out[i].Count++
	}
	return out
}
