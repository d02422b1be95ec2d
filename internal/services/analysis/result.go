package analysis

import (
	"sort"
	"time"

	"FinWatch/internal/domain/models"
)

// Options carries already computed outputs. Nil members are omitted from the result.
type Options struct {
	MovingAverage *models.Series
	Median        *models.Series
	Extremes      *Extremes
}

// Features selects what Analyze computes. A zero window omits that output.
type Features struct {
	MAWindow     int
	MedianWindow int
	Extrema      bool
}

// DefaultFeatures is the fixed feature set used by the consumer loop.
func DefaultFeatures() Features {
	return Features{MAWindow: 3, MedianWindow: 3, Extrema: true}
}

func (f Features) Validate() error {
	if f.MAWindow < 0 {
		return configErr("features", ErrInvalidWindow, "moving average window %d must not be negative", f.MAWindow)
	}
	if f.MedianWindow < 0 || (f.MedianWindow > 0 && f.MedianWindow%2 == 0) {
		return configErr("features", ErrInvalidWindow, "median window %d must be odd and positive", f.MedianWindow)
	}
	return nil
}

// Analyze computes the selected features over s and assembles the result.
func Analyze(s models.Series, f Features) (*models.Result, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if err := validateSeries("analyze", s); err != nil {
		return nil, err
	}

	var opts Options
	if f.MAWindow > 0 {
		ma, err := RollingMean(s, f.MAWindow)
		if err != nil {
			return nil, err
		}
		opts.MovingAverage = &ma
	}
	if f.MedianWindow > 0 {
		med, err := MedianFilter(s, f.MedianWindow)
		if err != nil {
			return nil, err
		}
		opts.Median = &med
	}
	if f.Extrema {
		ex, err := Extrema(s)
		if err != nil {
			return nil, err
		}
		opts.Extremes = &ex
	}
	return Assemble(s, opts)
}

// Assemble aligns the original series and every present option on the union
// of their timestamps. Positions absent from a column are NaN.
func Assemble(original models.Series, opts Options) (*models.Result, error) {
	const op = "assemble"
	if err := validateSeries(op, original); err != nil {
		return nil, err
	}
	cols := []models.Series{original}
	for _, o := range []*models.Series{opts.MovingAverage, opts.Median} {
		if o == nil {
			continue
		}
		if err := validateSeries(op, *o); err != nil {
			return nil, err
		}
		cols = append(cols, *o)
	}

	index := unionIndex(cols)
	pos := make(map[int64]int, len(index))
	for i, t := range index {
		pos[t.UnixNano()] = i
	}

	r := &models.Result{
		Index:    index,
		Original: align(pos, len(index), original),
	}
	if opts.MovingAverage != nil {
		r.MovingAverage = align(pos, len(index), *opts.MovingAverage)
	}
	if opts.Median != nil {
		r.Median = align(pos, len(index), *opts.Median)
	}
	if opts.Extremes != nil {
		r.Maxima = realign(pos, opts.Extremes.Maxima)
		r.Minima = realign(pos, opts.Extremes.Minima)
	}
	return r, nil
}

func unionIndex(cols []models.Series) []time.Time {
	if len(cols) == 1 {
		return append([]time.Time(nil), cols[0].Index...)
	}
	seen := make(map[int64]time.Time)
	for _, c := range cols {
		for _, t := range c.Index {
			seen[t.UnixNano()] = t
		}
	}
	out := make([]time.Time, 0, len(seen))
	for _, t := range seen {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func align(pos map[int64]int, n int, s models.Series) []float64 {
	out := models.NaNs(n)
	for i, t := range s.Index {
		out[pos[t.UnixNano()]] = s.Values[i]
	}
	return out
}

func realign(pos map[int64]int, es []models.Extremum) []models.Extremum {
	out := make([]models.Extremum, 0, len(es))
	for _, e := range es {
		p, ok := pos[e.Time.UnixNano()]
		if !ok {
			continue
		}
		e.Position = p
		out = append(out, e)
	}
	return out
}
