package models

import "time"

// PricePoint is one (timestamp, close) pair returned by a data source.
type PricePoint struct {
	Time  time.Time `json:"t"`
	Close float64   `json:"c"`
}

// Batch is one poll's worth of samples, strictly increasing by Time.
type Batch []PricePoint

// Freshest returns the timestamp of the last sample, or false for an empty batch.
func (b Batch) Freshest() (time.Time, bool) {
	if len(b) == 0 {
		return time.Time{}, false
	}
	return b[len(b)-1].Time, true
}

// UTC returns a copy of the batch with every timestamp normalized to UTC.
func (b Batch) UTC() Batch {
	out := make(Batch, len(b))
	for i, p := range b {
		out[i] = PricePoint{Time: p.Time.UTC(), Close: p.Close}
	}
	return out
}

// Series converts the batch into a timestamp-indexed close series.
func (b Batch) Series() Series {
	s := Series{
		Index:  make([]time.Time, len(b)),
		Values: make([]float64, len(b)),
	}
	for i, p := range b {
		s.Index[i] = p.Time
		s.Values[i] = p.Close
	}
	return s
}
