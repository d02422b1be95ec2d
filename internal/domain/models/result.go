package models

import (
	"encoding/json"
	"math"
	"time"
)

// Extremum is a local maximum or minimum located by position in the original series.
type Extremum struct {
	Position int       `json:"position"`
	Time     time.Time `json:"t"`
	Value    float64   `json:"value"`
}

// Result is the aligned analysis table for one batch. Optional members are
// nil when the corresponding output was not requested.
type Result struct {
	Symbol        string
	ComputedAt    time.Time
	Index         []time.Time
	Original      []float64
	MovingAverage []float64
	Median        []float64
	Maxima        []Extremum
	Minima        []Extremum
}

// Row is one line of the result table. Nil pointers are missing cells.
type Row struct {
	Time          time.Time `json:"t"`
	Original      *float64  `json:"original"`
	MovingAverage *float64  `json:"ma,omitempty"`
	Median        *float64  `json:"median,omitempty"`
	Maximum       *float64  `json:"maximum,omitempty"`
	Minimum       *float64  `json:"minimum,omitempty"`
}

func (r *Result) Len() int { return len(r.Index) }

// HasMovingAverage, HasMedian and HasExtrema report which optional outputs are present.
func (r *Result) HasMovingAverage() bool { return r.MovingAverage != nil }
func (r *Result) HasMedian() bool        { return r.Median != nil }
func (r *Result) HasExtrema() bool       { return r.Maxima != nil || r.Minima != nil }

// OriginalSeries returns the original column as a series.
func (r *Result) OriginalSeries() Series {
	return Series{Index: r.Index, Values: r.Original}
}

// Rows flattens the result into table rows, marking extrema on their timestamps.
func (r *Result) Rows() []Row {
	maxAt := make(map[int64]float64, len(r.Maxima))
	for _, e := range r.Maxima {
		maxAt[e.Time.UnixNano()] = e.Value
	}
	minAt := make(map[int64]float64, len(r.Minima))
	for _, e := range r.Minima {
		minAt[e.Time.UnixNano()] = e.Value
	}

	rows := make([]Row, len(r.Index))
	for i, t := range r.Index {
		row := Row{Time: t, Original: cell(r.Original, i)}
		if r.MovingAverage != nil {
			row.MovingAverage = cell(r.MovingAverage, i)
		}
		if r.Median != nil {
			row.Median = cell(r.Median, i)
		}
		if v, ok := maxAt[t.UnixNano()]; ok {
			row.Maximum = &v
		}
		if v, ok := minAt[t.UnixNano()]; ok {
			row.Minimum = &v
		}
		rows[i] = row
	}
	return rows
}

// Tail returns a copy of the result restricted to its last n rows.
func (r *Result) Tail(n int) *Result {
	if n <= 0 || n >= len(r.Index) {
		return r
	}
	from := len(r.Index) - n
	out := &Result{
		Symbol:     r.Symbol,
		ComputedAt: r.ComputedAt,
		Index:      r.Index[from:],
		Original:   r.Original[from:],
	}
	if r.MovingAverage != nil {
		out.MovingAverage = r.MovingAverage[from:]
	}
	if r.Median != nil {
		out.Median = r.Median[from:]
	}
	if r.Maxima != nil {
		out.Maxima = extremaFrom(r.Maxima, from)
	}
	if r.Minima != nil {
		out.Minima = extremaFrom(r.Minima, from)
	}
	return out
}

// extremaFrom keeps the extrema at or after row from, renumbered so that
// positions index the trimmed rows.
func extremaFrom(es []Extremum, from int) []Extremum {
	out := make([]Extremum, 0, len(es))
	for _, e := range es {
		if e.Position >= from {
			e.Position -= from
			out = append(out, e)
		}
	}
	return out
}

func cell(col []float64, i int) *float64 {
	if i >= len(col) || math.IsNaN(col[i]) {
		return nil
	}
	v := col[i]
	return &v
}

// resultJSON is the wire shape: NaN cells become null.
type resultJSON struct {
	Symbol        string      `json:"symbol"`
	ComputedAt    time.Time   `json:"computed_at"`
	Index         []time.Time `json:"index"`
	Original      []*float64  `json:"original"`
	MovingAverage []*float64  `json:"ma,omitempty"`
	Median        []*float64  `json:"median,omitempty"`
	Maxima        []Extremum  `json:"maxima,omitempty"`
	Minima        []Extremum  `json:"minima,omitempty"`
	HasExtrema    bool        `json:"has_extrema"`
}

func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultJSON{
		Symbol:        r.Symbol,
		ComputedAt:    r.ComputedAt,
		Index:         r.Index,
		Original:      nullable(r.Original),
		MovingAverage: nullable(r.MovingAverage),
		Median:        nullable(r.Median),
		Maxima:        r.Maxima,
		Minima:        r.Minima,
		HasExtrema:    r.HasExtrema(),
	})
}

func (r *Result) UnmarshalJSON(b []byte) error {
	var raw resultJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*r = Result{
		Symbol:        raw.Symbol,
		ComputedAt:    raw.ComputedAt,
		Index:         raw.Index,
		Original:      fromNullable(raw.Original),
		MovingAverage: fromNullable(raw.MovingAverage),
		Median:        fromNullable(raw.Median),
	}
	if raw.HasExtrema {
		r.Maxima = append([]Extremum{}, raw.Maxima...)
		r.Minima = append([]Extremum{}, raw.Minima...)
	}
	return nil
}

func nullable(col []float64) []*float64 {
	if col == nil {
		return nil
	}
	out := make([]*float64, len(col))
	for i := range col {
		out[i] = cell(col, i)
	}
	return out
}

func fromNullable(col []*float64) []float64 {
	if col == nil {
		return nil
	}
	out := make([]float64, len(col))
	for i, p := range col {
		if p == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *p
	}
	return out
}
