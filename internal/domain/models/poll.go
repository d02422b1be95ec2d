package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidPollConfig is returned when a period or interval is outside the catalogue.
var ErrInvalidPollConfig = errors.New("invalid poll config")

// Periods lists the look-back periods understood by the data sources.
var Periods = []string{"1d", "5d", "1mo", "3mo", "6mo", "1y", "2y", "5y", "10y", "ytd", "max"}

// Intervals lists the sampling intervals understood by the data sources.
var Intervals = []string{"1m", "2m", "5m", "15m", "30m", "60m", "90m", "1h", "1d", "5d", "1wk", "1mo", "3mo"}

// PollConfig is immutable once a session starts.
type PollConfig struct {
	Period   string `json:"period"`
	Interval string `json:"interval"`
}

func (c PollConfig) Validate() error {
	if !contains(Periods, c.Period) {
		return fmt.Errorf("%w: unknown period %q", ErrInvalidPollConfig, c.Period)
	}
	if !contains(Intervals, c.Interval) {
		return fmt.Errorf("%w: unknown interval %q", ErrInvalidPollConfig, c.Interval)
	}
	return nil
}

func (c PollConfig) String() string { return c.Period + "/" + c.Interval }

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// SessionState is a point-in-time view of a monitoring session.
type SessionState struct {
	Symbol    string     `json:"symbol"`
	RunID     string     `json:"run_id"`
	Config    PollConfig `json:"config"`
	Running   bool       `json:"running"`
	LastSeen  *time.Time `json:"last_seen,omitempty"`
	StartedAt time.Time  `json:"started_at"`
}
