package stats

import "github.com/samber/lo"

// Variable names one numeric attribute of a record type that can be
// analysed. Value returns nil when the attribute is null for a row.
type Variable[T any] struct {
	Key   string           `json:"key"`
	Label string           `json:"label"`
	Unit  string           `json:"unit,omitempty"`
	Value func(T) *float64 `json:"-"`
}

// Catalog is the ordered list of analysable variables of a record type.
type Catalog[T any] []Variable[T]

// Lookup finds a variable by key.
func (c Catalog[T]) Lookup(key string) (Variable[T], bool) {
	return lo.Find(c, func(v Variable[T]) bool { return v.Key == key })
}

// Keys lists the variable keys in catalog order.
func (c Catalog[T]) Keys() []string {
	return lo.Map(c, func(v Variable[T], _ int) string { return v.Key })
}

// Column extracts one variable from every row.
func (v Variable[T]) Column(rows []T) []*float64 {
	return lo.Map(rows, func(r T, _ int) *float64 { return v.Value(r) })
}

// Distribution is the univariate view of one variable.
type Distribution struct {
	Variable string  `json:"variable"`
	Label    string  `json:"label"`
	Summary  Summary `json:"summary"`
	Bins     []Bin   `json:"bins"`
}

// Describe summarizes a nullable column and bins it into DefaultBins.
func Describe(key, label string, column []*float64) Distribution {
	values := Values(column)
	return Distribution{
		Variable: key,
		Label:    label,
		Summary:  Summarize(values),
		Bins:     Histogram(values, DefaultBins),
	}
}

// Relationship is the bivariate view of two variables: the scatter points,
// the correlation tests and the fit line.
type Relationship struct {
	X           string      `json:"x"`
	Y           string      `json:"y"`
	Correlation Correlation `json:"correlation"`
	Points      []Point     `json:"points"`
	Line        []Point     `json:"regression_line,omitempty"`
}

// Relate pairs two nullable columns and correlates them. The fit line is
// only present when the correlation could be computed.
func Relate(xKey, yKey string, xs, ys []*float64) Relationship {
	x, y := Pair(xs, ys)
	rel := Relationship{
		X:           xKey,
		Y:           yKey,
		Correlation: Correlate(x, y),
		Points:      make([]Point, len(x)),
	}
	for i := range x {
		rel.Points[i] = Point{X: x[i], Y: y[i]}
	}
	if rel.Correlation.Status == StatusOK {
		rel.Line = RegressionLine(x, rel.Correlation.Slope, rel.Correlation.Intercept)
	}
	return rel
}
