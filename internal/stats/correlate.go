package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// MinObservations is the number of paired observations below which no
// correlation is computed.
const MinObservations = 3

// SignificanceLevel is the p-value threshold for flagging a correlation as
// statistically significant.
const SignificanceLevel = 0.05

// Status tells the presentation layer whether a correlation was computed.
type Status string

const (
	StatusOK               Status = "ok"
	StatusInsufficientData Status = "insufficient_data"
	// StatusConstantInput means one of the columns has zero variance, which
	// leaves both coefficients undefined.
	StatusConstantInput Status = "constant_input"
)

// Strength is the fixed banding of |r|.
type Strength string

const (
	StrengthStrong   Strength = "strong"
	StrengthModerate Strength = "moderate"
	StrengthWeak     Strength = "weak"
	StrengthVeryWeak Strength = "very weak"
)

// Direction is the sign of a correlation.
type Direction string

const (
	DirectionPositive Direction = "positive"
	DirectionNegative Direction = "negative"
)

// Correlation is the result of Correlate. When Status is not StatusOK only N,
// Status and Needed are meaningful.
type Correlation struct {
	Status Status `json:"status"`
	N      int    `json:"n"`
	// Needed is how many more paired observations are required.
	Needed int `json:"needed,omitempty"`

	PearsonR    float64 `json:"pearson_r"`
	PearsonP    float64 `json:"pearson_p"`
	SpearmanRho float64 `json:"spearman_rho"`
	SpearmanP   float64 `json:"spearman_p"`

	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`

	Strength    Strength  `json:"strength,omitempty"`
	Direction   Direction `json:"direction,omitempty"`
	Significant bool      `json:"significant"`
}

// Point is one vertex of the regression line.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pair keeps the positions where both columns are non-null.
func Pair(xs, ys []*float64) (x, y []float64) {
	n := min(len(xs), len(ys))
	x = make([]float64, 0, n)
	y = make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if xs[i] == nil || ys[i] == nil {
			continue
		}
		x = append(x, *xs[i])
		y = append(y, *ys[i])
	}
	return x, y
}

// Correlate computes Pearson's r and Spearman's ρ with two-sided p-values,
// the least-squares fit of y on x, and the strength/direction/significance
// classification of r. x and y must have equal length.
func Correlate(x, y []float64) Correlation {
	n := min(len(x), len(y))
	x, y = x[:n], y[:n]
	if n < MinObservations {
		return Correlation{Status: StatusInsufficientData, N: n, Needed: MinObservations - n}
	}
	if constant(x) || constant(y) {
		return Correlation{Status: StatusConstantInput, N: n}
	}

	r := Pearson(x, y)
	rho := Spearman(x, y)
	intercept, slope := stat.LinearRegression(x, y, nil, false)
	pr := pValue(r, n)

	return Correlation{
		Status:      StatusOK,
		N:           n,
		PearsonR:    r,
		PearsonP:    pr,
		SpearmanRho: rho,
		SpearmanP:   pValue(rho, n),
		Slope:       slope,
		Intercept:   intercept,
		Strength:    Classify(r),
		Direction:   directionOf(r),
		Significant: pr < SignificanceLevel,
	}
}

// Pearson returns the product-moment correlation, clipped to [-1, 1].
func Pearson(x, y []float64) float64 {
	r := stat.Correlation(x, y, nil)
	return math.Max(-1, math.Min(1, r))
}

// Spearman returns the rank correlation, ranking ties by their average rank.
func Spearman(x, y []float64) float64 {
	return Pearson(Rank(x), Rank(y))
}

// Rank returns 1-based ranks of values, giving tied values the mean of the
// ranks they span.
func Rank(values []float64) []float64 {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return values[idx[a]] < values[idx[b]] })

	ranks := make([]float64, len(values))
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && values[idx[j+1]] == values[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		i = j + 1
	}
	return ranks
}

// Classify bands |r|: >= 0.7 strong, >= 0.4 moderate, >= 0.2 weak.
func Classify(r float64) Strength {
	a := math.Abs(r)
	switch {
	case a >= 0.7:
		return StrengthStrong
	case a >= 0.4:
		return StrengthModerate
	case a >= 0.2:
		return StrengthWeak
	default:
		return StrengthVeryWeak
	}
}

func directionOf(r float64) Direction {
	if r > 0 {
		return DirectionPositive
	}
	return DirectionNegative
}

// pValue is the two-sided p-value of a correlation coefficient under the
// null hypothesis, using Student's t with n-2 degrees of freedom.
func pValue(r float64, n int) float64 {
	if 1-math.Abs(r) < 1e-12 {
		return 0
	}
	df := float64(n - 2)
	t := r * math.Sqrt(df/(1-r*r))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return math.Min(1, 2*dist.Survival(math.Abs(t)))
}

func constant(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}

// RegressionLine evaluates the fit line at each x, ordered by x, for drawing.
func RegressionLine(x []float64, slope, intercept float64) []Point {
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)
	pts := make([]Point, len(sorted))
	for i, v := range sorted {
		pts[i] = Point{X: v, Y: intercept + slope*v}
	}
	return pts
}
