package analysis

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinWatch/internal/domain/models"
)

var base = time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)

func series(values ...float64) models.Series {
	idx := make([]time.Time, len(values))
	for i := range values {
		idx[i] = base.Add(time.Duration(i) * time.Minute)
	}
	return models.NewSeries(idx, values)
}

func assertValues(t *testing.T, want, got []float64) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		if math.IsNaN(want[i]) {
			assert.True(t, math.IsNaN(got[i]), "position %d: want NaN, got %v", i, got[i])
			continue
		}
		assert.InDelta(t, want[i], got[i], 1e-9, "position %d", i)
	}
}

var nan = math.NaN()

func TestRollingMean(t *testing.T) {
	s := series(1, 2, 3, 4, 5, 6)
	for w := 1; w <= 6; w++ {
		out, err := RollingMean(s, w)
		require.NoError(t, err)

		for i, got := range out.Values {
			if i < w-1 {
				assert.True(t, math.IsNaN(got), "w=%d position %d should be undefined", w, i)
				continue
			}
			var sum float64
			for _, v := range s.Values[i-w+1 : i+1] {
				sum += v
			}
			assert.InDelta(t, sum/float64(w), got, 1e-9, "w=%d position %d", w, i)
		}
	}
}

func TestRollingMeanMissingValue(t *testing.T) {
	out, err := RollingMean(series(1, nan, 3, 4, 5), 2)
	require.NoError(t, err)
	assertValues(t, []float64{nan, nan, nan, 3.5, 4.5}, out.Values)
}

func TestCircularAverageWarmup(t *testing.T) {
	s := series(3, 6, 9, 12, 15)
	out, err := CircularAverage(s, 3)
	require.NoError(t, err)

	// i < w: mean of i+1 values and w-i-1 zeros
	// i >= w: mean of the last w values
	assertValues(t, []float64{1, 3, 6, 9, 12}, out.Values)
}

func TestCircularAverageDiffersFromRollingMean(t *testing.T) {
	s := series(10, 10, 10, 10)
	circ, err := CircularAverage(s, 4)
	require.NoError(t, err)
	assertValues(t, []float64{2.5, 5, 7.5, 10}, circ.Values)
}

func TestMedianFilter(t *testing.T) {
	out, err := MedianFilter(series(5, 1, 4, 2, 8, 7, 3), 3)
	require.NoError(t, err)
	assertValues(t, []float64{nan, 4, 2, 4, 7, 7, nan}, out.Values)

	out, err = MedianFilter(series(5, 1, 4, 2, 8, 7, 3), 5)
	require.NoError(t, err)
	assertValues(t, []float64{nan, nan, 4, 4, 4, nan, nan}, out.Values)
}

func TestMedianFilterShortSeries(t *testing.T) {
	out, err := MedianFilter(series(1, 2), 3)
	require.NoError(t, err)
	assertValues(t, []float64{nan, nan}, out.Values)
}

func TestMedianFilterRejectsWindow(t *testing.T) {
	for _, w := range []int{0, -1, 2, 4} {
		_, err := MedianFilter(series(1, 2, 3), w)
		require.Error(t, err, "window %d", w)
		assert.ErrorIs(t, err, ErrInvalidWindow)

		var cfgErr *ConfigError
		assert.True(t, errors.As(err, &cfgErr))
	}
}

func TestDifference(t *testing.T) {
	out, err := Difference(series(10, 12, 9, 9, 15), DefaultDiffOrder)
	require.NoError(t, err)
	assertValues(t, []float64{nan, 2, -3, 0, 6}, out.Values)

	out, err = Difference(series(10, 12, 9, 9, 15), 2)
	require.NoError(t, err)
	assertValues(t, []float64{nan, nan, -1, -3, 6}, out.Values)

	_, err = Difference(series(1, 2), 0)
	assert.ErrorIs(t, err, ErrInvalidOrder)
}

func TestAutocorrelation(t *testing.T) {
	r, err := Autocorrelation(series(1, 2, 3, 4, 5, 6), 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, r, 1e-9)

	r, err = Autocorrelation(series(1, -1, 1, -1, 1, -1), 1)
	require.NoError(t, err)
	assert.InDelta(t, -1.0, r, 1e-9)

	r, err = Autocorrelation(series(4, 4, 4, 4), 1)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(r), "zero variance is undefined")

	r, err = Autocorrelation(series(1, 2), 5)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(r), "lag beyond length is undefined")

	_, err = Autocorrelation(series(1, 2, 3), 0)
	assert.ErrorIs(t, err, ErrInvalidLag)
}

func TestExtrema(t *testing.T) {
	ex, err := Extrema(series(1, 3, 2, 5, 4))
	require.NoError(t, err)

	positions := func(es []models.Extremum) (idx []int, vals []float64) {
		for _, e := range es {
			idx = append(idx, e.Position)
			vals = append(vals, e.Value)
		}
		return idx, vals
	}
	idx, vals := positions(ex.Maxima)
	assert.Equal(t, []int{1, 3}, idx)
	assert.Equal(t, []float64{3, 5}, vals)

	idx, vals = positions(ex.Minima)
	assert.Equal(t, []int{2}, idx)
	assert.Equal(t, []float64{2}, vals)
}

func TestExtremaEdgeCases(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
	}{
		{"empty", nil},
		{"two points", []float64{1, 2}},
		{"plateau", []float64{1, 2, 2, 1}},
		{"monotonic", []float64{1, 2, 3, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex, err := Extrema(series(tt.values...))
			require.NoError(t, err)
			assert.Empty(t, ex.Maxima)
			assert.Empty(t, ex.Minima)
		})
	}
}

func TestValidateSeries(t *testing.T) {
	mismatched := models.NewSeries([]time.Time{base}, []float64{1, 2})
	_, err := RollingMean(mismatched, 1)
	assert.ErrorIs(t, err, ErrInvalidSeries)

	unordered := models.NewSeries([]time.Time{base, base}, []float64{1, 2})
	_, err = Extrema(unordered)
	assert.ErrorIs(t, err, ErrInvalidSeries)

	_, err = RollingMean(series(1, 2), 0)
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestAnalyzeDefaultFeatures(t *testing.T) {
	s := series(1, 3, 2, 5, 4)
	r, err := Analyze(s, DefaultFeatures())
	require.NoError(t, err)

	assert.Equal(t, s.Index, r.Index)
	assertValues(t, s.Values, r.Original)
	assertValues(t, []float64{nan, nan, 2, 10.0 / 3, 11.0 / 3}, r.MovingAverage)
	assertValues(t, []float64{nan, 2, 3, 4, nan}, r.Median)
	assert.Len(t, r.Maxima, 2)
	assert.Len(t, r.Minima, 1)
}

func TestAnalyzeOmitsUnrequestedOutputs(t *testing.T) {
	r, err := Analyze(series(1, 2, 3), Features{MAWindow: 2})
	require.NoError(t, err)

	assert.True(t, r.HasMovingAverage())
	assert.False(t, r.HasMedian())
	assert.False(t, r.HasExtrema())
	assert.Nil(t, r.Median)

	_, err = Analyze(series(1, 2, 3), Features{MedianWindow: 2})
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestAssembleOuterAlignment(t *testing.T) {
	original := series(1, 2, 3)
	shifted := models.NewSeries(
		[]time.Time{base.Add(2 * time.Minute), base.Add(3 * time.Minute)},
		[]float64{30, 40},
	)
	r, err := Assemble(original, Options{MovingAverage: &shifted})
	require.NoError(t, err)

	require.Len(t, r.Index, 4)
	assertValues(t, []float64{1, 2, 3, nan}, r.Original)
	assertValues(t, []float64{nan, nan, 30, 40}, r.MovingAverage)
	assert.Nil(t, r.Median)
}

func TestResultJSONRendersMissingAsNull(t *testing.T) {
	r, err := Analyze(series(1, 3, 2), Features{MAWindow: 2})
	require.NoError(t, err)

	b, err := json.Marshal(r)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	ma := raw["ma"].([]any)
	assert.Nil(t, ma[0])
	assert.InDelta(t, 2.0, ma[1], 1e-9)
	assert.NotContains(t, raw, "median")

	var back models.Result
	require.NoError(t, json.Unmarshal(b, &back))
	assertValues(t, r.MovingAverage, back.MovingAverage)
	assert.Nil(t, back.Median)
}
