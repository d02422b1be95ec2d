package models

import (
	"math"
	"time"
)

// Series is an ordered, timestamp-indexed numeric series. Missing values are NaN.
type Series struct {
	Index  []time.Time
	Values []float64
}

// NewSeries builds a series from parallel slices without copying.
func NewSeries(index []time.Time, values []float64) Series {
	return Series{Index: index, Values: values}
}

func (s Series) Len() int { return len(s.Values) }

// WithValues returns a series sharing s's index with the given values.
func (s Series) WithValues(values []float64) Series {
	return Series{Index: s.Index, Values: values}
}

// Missing reports whether v marks an undefined position.
func Missing(v float64) bool { return math.IsNaN(v) }

// NaNs returns a slice of n missing values.
func NaNs(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
