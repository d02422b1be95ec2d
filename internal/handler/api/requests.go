package api

import (
	"FinWatch/internal/domain/models"
	xhttp "FinWatch/pkg/http"
)

func init() {
	xhttp.RegisterChoice("period", models.Periods)
	xhttp.RegisterChoice("interval", models.Intervals)
}

// StartMonitorRequest starts a session. Omitted fields fall back to the
// configured defaults.
type StartMonitorRequest struct {
	Symbol   string `json:"symbol" validate:"required,symbol"`
	Period   string `json:"period" validate:"required,period"`
	Interval string `json:"interval" validate:"required,interval"`

	fallbackSymbol string
	fallback       models.PollConfig
}

// SetDefaults is called by creasty/defaults after binding.
func (r *StartMonitorRequest) SetDefaults() {
	if r.Symbol == "" {
		r.Symbol = r.fallbackSymbol
	}
	if r.Period == "" {
		r.Period = r.fallback.Period
	}
	if r.Interval == "" {
		r.Interval = r.fallback.Interval
	}
}

func (r *StartMonitorRequest) PollConfig() models.PollConfig {
	return models.PollConfig{Period: r.Period, Interval: r.Interval}
}

// MonitorOutcome is the body of start/stop responses.
type MonitorOutcome struct {
	Symbol  string               `json:"symbol"`
	Outcome string               `json:"outcome"`
	Session *models.SessionState `json:"session,omitempty"`
}

type ExportResponse struct {
	Symbol   string `json:"symbol"`
	Format   string `json:"format"`
	Location string `json:"location"`
}
