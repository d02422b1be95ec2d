// Package api exposes the monitoring control surface over HTTP.
package api

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"FinWatch/internal/domain/models"
	drepo "FinWatch/internal/domain/repository"
	"FinWatch/internal/service/metrics"
	"FinWatch/internal/services/analysis"
	"FinWatch/internal/usecase"
	xhttp "FinWatch/pkg/http"
	xlogger "FinWatch/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Monitors is the registry surface used by the handler.
type Monitors interface {
	StartMonitoring(symbol string, cfg models.PollConfig) (usecase.Outcome, error)
	StopMonitoring(symbol string) usecase.Outcome
	List() []models.SessionState
	Get(symbol string) (models.SessionState, bool)
	Latest(ctx context.Context, symbol string) (*models.Result, bool)
}

// Notices lists recent user-visible notices.
type Notices interface {
	Recent(since time.Time, limit int) []models.Notice
}

// Limiter throttles requests per key.
type Limiter interface {
	Allow(key string) bool
}

type MonitorHandler struct {
	logger    *xlogger.Logger
	monitors  Monitors
	notices   Notices
	limiter   Limiter
	exporters map[string]drepo.Exporter

	defaultSymbol string
	defaults      models.PollConfig
}

type Option func(*MonitorHandler)

func WithLimiter(l Limiter) Option {
	return func(h *MonitorHandler) { h.limiter = l }
}

// WithExporters registers exporters by their Format.
func WithExporters(exps ...drepo.Exporter) Option {
	return func(h *MonitorHandler) {
		for _, e := range exps {
			if e != nil {
				h.exporters[e.Format()] = e
			}
		}
	}
}

// WithDefaults sets what an empty start request resolves to.
func WithDefaults(symbol string, cfg models.PollConfig) Option {
	return func(h *MonitorHandler) {
		h.defaultSymbol = symbol
		h.defaults = cfg
	}
}

func NewMonitorHandler(logger *xlogger.Logger, monitors Monitors, notices Notices, opts ...Option) *MonitorHandler {
	h := &MonitorHandler{
		logger:        logger,
		monitors:      monitors,
		notices:       notices,
		exporters:     make(map[string]drepo.Exporter),
		defaultSymbol: "MSFT",
		defaults:      models.PollConfig{Period: "1d", Interval: "1d"},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *MonitorHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/monitors", h.Start)
	g.GET("/monitors", h.List)
	g.GET("/monitors/:symbol", h.Get)
	g.DELETE("/monitors/:symbol", h.Stop)
	g.GET("/monitors/:symbol/result", h.Result)
	g.POST("/monitors/:symbol/export", h.Export)
	g.GET("/notices", h.Notices)
}

func (h *MonitorHandler) Start(c echo.Context) error {
	defer metrics.ObserveSince("start", time.Now())

	if h.limiter != nil && !h.limiter.Allow(c.RealIP()) {
		metrics.ControlErrors.WithLabelValues("start").Inc()
		return xhttp.AppErrorResponse(c, xhttp.RateLimitedError("too many start requests"))
	}

	req := &StartMonitorRequest{fallbackSymbol: h.defaultSymbol, fallback: h.defaults}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		metrics.ControlErrors.WithLabelValues("start").Inc()
		return xhttp.BadRequestResponse(c, verr)
	}
	symbol := strings.TrimSpace(req.Symbol)

	outcome, err := h.monitors.StartMonitoring(symbol, req.PollConfig())
	if err != nil {
		metrics.ControlErrors.WithLabelValues("start").Inc()
		h.logger.Error("start monitoring failed", xlogger.String("symbol", symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, startError(err))
	}
	metrics.ControlOutcomes.WithLabelValues(outcome.String()).Inc()

	body := &MonitorOutcome{Symbol: symbol, Outcome: outcome.String()}
	if st, ok := h.monitors.Get(symbol); ok {
		body.Session = &st
	}
	if outcome == usecase.OutcomeAlreadyRunning {
		return xhttp.AcceptedResponse(c, body)
	}
	return xhttp.CreatedResponse(c, body)
}

func startError(err error) *xhttp.AppError {
	var cfgErr *analysis.ConfigError
	switch {
	case errors.Is(err, models.ErrInvalidPollConfig):
		return xhttp.BadRequestError(err.Error()).WithError(err)
	case errors.Is(err, usecase.ErrEmptySymbol):
		return xhttp.UnprocessableError("symbol", err.Error()).WithError(err)
	case errors.As(err, &cfgErr):
		return xhttp.UnprocessableError("", err.Error()).WithError(err)
	default:
		return xhttp.InternalError("could not start monitoring").WithError(err)
	}
}

func (h *MonitorHandler) Stop(c echo.Context) error {
	defer metrics.ObserveSince("stop", time.Now())

	symbol := strings.TrimSpace(c.Param("symbol"))
	if verr := xhttp.ValidateVar("symbol", symbol, "required,symbol"); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	outcome := h.monitors.StopMonitoring(symbol)
	metrics.ControlOutcomes.WithLabelValues(outcome.String()).Inc()
	body := &MonitorOutcome{Symbol: symbol, Outcome: outcome.String()}
	if outcome == usecase.OutcomeNotRunning {
		return xhttp.NotFoundResponse(c, body)
	}
	return xhttp.SuccessResponse(c, body)
}

func (h *MonitorHandler) List(c echo.Context) error {
	states := h.monitors.List()
	return xhttp.ListResponse(c, states, int64(len(states)))
}

func (h *MonitorHandler) Get(c echo.Context) error {
	symbol := c.Param("symbol")
	st, ok := h.monitors.Get(symbol)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("%s is not being monitored", symbol))
	}
	return xhttp.SuccessResponse(c, st)
}

// Result returns the latest result, optionally trimmed to the last tail rows.
func (h *MonitorHandler) Result(c echo.Context) error {
	defer metrics.ObserveSince("result", time.Now())

	symbol := c.Param("symbol")
	res, ok := h.monitors.Latest(c.Request().Context(), symbol)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no result for %s", symbol))
	}
	if tail := xhttp.QueryInt(c, "tail", 0); tail > 0 {
		res = res.Tail(tail)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return xhttp.SuccessResponse(c, res)
}

// Export writes the latest result with the requested exporter (xlsx by default).
func (h *MonitorHandler) Export(c echo.Context) error {
	defer metrics.ObserveSince("export", time.Now())

	symbol := c.Param("symbol")
	format := c.QueryParam("format")
	if format == "" {
		format = "xlsx"
	}
	exp, ok := h.exporters[format]
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("unsupported export format %q", format).
			WithParam("formats", h.formats()))
	}

	res, ok := h.monitors.Latest(c.Request().Context(), symbol)
	if !ok {
		metrics.Exports.WithLabelValues(format, "no_result").Inc()
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no result for %s", symbol))
	}

	loc, err := exp.Export(c.Request().Context(), res)
	if err != nil {
		metrics.Exports.WithLabelValues(format, "error").Inc()
		h.logger.Error("export failed", xlogger.String("symbol", symbol), xlogger.String("format", format), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalErrorf("export %s failed", format).WithError(err))
	}
	metrics.Exports.WithLabelValues(format, "ok").Inc()
	h.logger.Info("result exported", xlogger.String("symbol", symbol), xlogger.String("location", loc))
	return xhttp.SuccessResponse(c, &ExportResponse{Symbol: symbol, Format: format, Location: loc})
}

func (h *MonitorHandler) formats() []string {
	out := make([]string, 0, len(h.exporters))
	for f := range h.exporters {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func (h *MonitorHandler) Notices(c echo.Context) error {
	since := xhttp.QueryTime(c, "since", time.Time{})
	limit := xhttp.QueryInt(c, "limit", 50)
	rows := h.notices.Recent(since, limit)
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}
