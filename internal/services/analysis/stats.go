package analysis

import (
	"math"

	"FinWatch/internal/domain/models"
)

// Autocorrelation is the Pearson correlation of the series with itself shifted
// by lag. Pairs with a missing member are skipped. The result is NaN when
// fewer than two pairs remain or either side has zero variance.
func Autocorrelation(s models.Series, lag int) (float64, error) {
	const op = "autocorrelation"
	if err := validateSeries(op, s); err != nil {
		return math.NaN(), err
	}
	if lag <= 0 {
		return math.NaN(), configErr(op, ErrInvalidLag, "lag %d must be positive", lag)
	}

	v := s.Values
	var xs, ys []float64
	for i := lag; i < len(v); i++ {
		x, y := v[i], v[i-lag]
		if math.IsNaN(x) || math.IsNaN(y) {
			continue
		}
		xs = append(xs, x)
		ys = append(ys, y)
	}
	return pearson(xs, ys), nil
}

func pearson(xs, ys []float64) float64 {
	n := len(xs)
	if n < 2 {
		return math.NaN()
	}
	var mx, my float64
	for i := 0; i < n; i++ {
		mx += xs[i]
		my += ys[i]
	}
	mx /= float64(n)
	my /= float64(n)

	var cov, vx, vy float64
	for i := 0; i < n; i++ {
		dx, dy := xs[i]-mx, ys[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return math.NaN()
	}
	return cov / math.Sqrt(vx*vy)
}

// Extremes holds the strict local maxima and minima of a series.
type Extremes struct {
	Maxima []models.Extremum
	Minima []models.Extremum
}

// Extrema finds positions 1..n-2 strictly greater (maxima) or strictly less
// (minima) than both neighbours. Plateaus and missing values never qualify.
func Extrema(s models.Series) (Extremes, error) {
	if err := validateSeries("extrema", s); err != nil {
		return Extremes{}, err
	}

	ex := Extremes{Maxima: []models.Extremum{}, Minima: []models.Extremum{}}
	v := s.Values
	for i := 1; i < len(v)-1; i++ {
		switch {
		case v[i] > v[i-1] && v[i] > v[i+1]:
			ex.Maxima = append(ex.Maxima, models.Extremum{Position: i, Time: s.Index[i], Value: v[i]})
		case v[i] < v[i-1] && v[i] < v[i+1]:
			ex.Minima = append(ex.Minima, models.Extremum{Position: i, Time: s.Index[i], Value: v[i]})
		}
	}
	return ex, nil
}
