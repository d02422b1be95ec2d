// Package analysis turns a close-price series into derived series and
// assembles them into one aligned result. Every function is pure.
package analysis

import (
	"math"
	"sort"

	"FinWatch/internal/domain/models"
)

// DefaultDiffOrder is the lag used for first-order differencing.
const DefaultDiffOrder = 1

func validateSeries(op string, s models.Series) error {
	if len(s.Index) != len(s.Values) {
		return configErr(op, ErrInvalidSeries, "index has %d entries, values %d", len(s.Index), len(s.Values))
	}
	for i := 1; i < len(s.Index); i++ {
		if !s.Index[i].After(s.Index[i-1]) {
			return configErr(op, ErrInvalidSeries, "timestamps not strictly increasing at position %d", i)
		}
	}
	return nil
}

// RollingMean is the trailing mean over w samples. The first w-1 outputs and
// any window containing a missing value are NaN.
func RollingMean(s models.Series, w int) (models.Series, error) {
	const op = "rolling mean"
	if err := validateSeries(op, s); err != nil {
		return models.Series{}, err
	}
	if w <= 0 {
		return models.Series{}, configErr(op, ErrInvalidWindow, "window %d must be positive", w)
	}

	v := s.Values
	out := models.NaNs(len(v))
	var sum float64
	missing := 0
	for i, x := range v {
		if math.IsNaN(x) {
			missing++
		} else {
			sum += x
		}
		if i >= w {
			old := v[i-w]
			if math.IsNaN(old) {
				missing--
			} else {
				sum -= old
			}
		}
		if i >= w-1 && missing == 0 {
			out[i] = sum / float64(w)
		}
	}
	return s.WithValues(out), nil
}

// CircularAverage writes each sample into slot i%w of a buffer of w zeros and
// emits the mean of all w slots. Early outputs are biased toward zero until
// the buffer has been filled once.
func CircularAverage(s models.Series, w int) (models.Series, error) {
	const op = "circular average"
	if err := validateSeries(op, s); err != nil {
		return models.Series{}, err
	}
	if w <= 0 {
		return models.Series{}, configErr(op, ErrInvalidWindow, "window %d must be positive", w)
	}

	buf := make([]float64, w)
	out := make([]float64, len(s.Values))
	for i, x := range s.Values {
		buf[i%w] = x
		var sum float64
		for _, b := range buf {
			sum += b
		}
		out[i] = sum / float64(w)
	}
	return s.WithValues(out), nil
}

// MedianFilter is the centered median over an odd window w. The first and
// last w/2 positions, and windows containing a missing value, are NaN.
func MedianFilter(s models.Series, w int) (models.Series, error) {
	const op = "median filter"
	if err := validateSeries(op, s); err != nil {
		return models.Series{}, err
	}
	if w <= 0 || w%2 == 0 {
		return models.Series{}, configErr(op, ErrInvalidWindow, "window %d must be odd and positive", w)
	}

	v := s.Values
	half := w / 2
	out := models.NaNs(len(v))
	scratch := make([]float64, w)
	for i := half; i < len(v)-half; i++ {
		copy(scratch, v[i-half:i+half+1])
		if hasNaN(scratch) {
			continue
		}
		sort.Float64s(scratch)
		out[i] = scratch[half]
	}
	return s.WithValues(out), nil
}

// Difference computes v[i]-v[i-order]; the first order outputs are NaN.
func Difference(s models.Series, order int) (models.Series, error) {
	const op = "difference"
	if err := validateSeries(op, s); err != nil {
		return models.Series{}, err
	}
	if order <= 0 {
		return models.Series{}, configErr(op, ErrInvalidOrder, "order %d must be positive", order)
	}

	v := s.Values
	out := models.NaNs(len(v))
	for i := order; i < len(v); i++ {
		out[i] = v[i] - v[i-order]
	}
	return s.WithValues(out), nil
}

func hasNaN(xs []float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) {
			return true
		}
	}
	return false
}
