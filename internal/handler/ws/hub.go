// Package ws presents analysis results to browser clients over websockets.
// The Hub is the ViewFactory and Notifier of the monitoring pipeline: every
// started session gets a view, and clients attach to it by symbol.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"FinWatch/internal/domain/models"
	drepo "FinWatch/internal/domain/repository"
	xhttp "FinWatch/pkg/http"
	"FinWatch/pkg/http/middleware"
	"FinWatch/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	FrameHello  = "hello"
	FrameResult = "result"
	FrameNotice = "notice"
)

// Frame is the envelope of every server-to-client message.
type Frame struct {
	Type   string      `json:"type"`
	Symbol string      `json:"symbol,omitempty"`
	Data   interface{} `json:"data,omitempty"`
}

type Hub struct {
	writeTimeout      time.Duration
	pingPeriod        time.Duration
	closeOnLastDetach bool
	origins           []string
	log               *logger.Logger
	now               func() time.Time

	upgrader websocket.Upgrader

	mu    sync.Mutex
	views map[string]*view

	notices *noticeLog
}

var (
	_ drepo.ViewFactory = (*Hub)(nil)
	_ drepo.Notifier    = (*Hub)(nil)
	_ xhttp.Handler     = (*Hub)(nil)
)

type Option func(*Hub)

func WithWriteTimeout(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.writeTimeout = d
		}
	}
}

func WithPingPeriod(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.pingPeriod = d
		}
	}
}

// WithCloseOnLastDetach makes a view die once its last client disconnects.
func WithCloseOnLastDetach(v bool) Option {
	return func(h *Hub) { h.closeOnLastDetach = v }
}

// WithRecentNotices bounds the retained notice history.
func WithRecentNotices(n int) Option {
	return func(h *Hub) { h.notices = newNoticeLog(n) }
}

// WithAllowedOrigins restricts upgrades by Origin header. Empty or "*" allows all.
func WithAllowedOrigins(origins []string) Option {
	return func(h *Hub) { h.origins = origins }
}

func WithLogger(l *logger.Logger) Option {
	return func(h *Hub) { h.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(h *Hub) { h.now = now }
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		writeTimeout: 5 * time.Second,
		pingPeriod:   30 * time.Second,
		log:          logger.Nop(),
		now:          time.Now,
		views:        make(map[string]*view),
		notices:      newNoticeLog(50),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// NewView registers the view of a newly started session. A closed view left
// under the same symbol is replaced.
func (h *Hub) NewView(symbol string, cfg models.PollConfig) (drepo.View, error) {
	v := &view{
		hub:     h,
		symbol:  symbol,
		cfg:     cfg,
		clients: make(map[*client]struct{}),
	}
	h.mu.Lock()
	old := h.views[symbol]
	h.views[symbol] = v
	h.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	h.log.Debug("ws: view created", logger.String("symbol", symbol), logger.String("config", cfg.String()))
	return v, nil
}

// Views returns the number of registered views.
func (h *Hub) Views() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.views)
}

func (h *Hub) lookup(symbol string) *view {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.views[symbol]
}

func (h *Hub) forget(v *view) {
	h.mu.Lock()
	if h.views[v.symbol] == v {
		delete(h.views, v.symbol)
	}
	h.mu.Unlock()
}

func (h *Hub) Info(symbol, msg string)  { h.notify(models.NoticeInfo, symbol, msg) }
func (h *Hub) Warn(symbol, msg string)  { h.notify(models.NoticeWarning, symbol, msg) }
func (h *Hub) Error(symbol, msg string) { h.notify(models.NoticeError, symbol, msg) }

// Recent returns notices newer than since, oldest first, at most limit.
func (h *Hub) Recent(since time.Time, limit int) []models.Notice {
	return h.notices.since(since, limit)
}

func (h *Hub) notify(level models.NoticeLevel, symbol, msg string) {
	n := models.Notice{Level: level, Symbol: symbol, Message: msg, At: h.now().UTC()}
	h.notices.add(n)

	fields := []logger.Field{logger.String("symbol", symbol), logger.String("level", string(level))}
	switch level {
	case models.NoticeError:
		h.log.Error(msg, fields...)
	case models.NoticeWarning:
		h.log.Warn(msg, fields...)
	default:
		h.log.Info(msg, fields...)
	}

	if v := h.lookup(symbol); v != nil {
		v.broadcast(Frame{Type: FrameNotice, Symbol: symbol, Data: n})
	}
}

func (h *Hub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/monitors/:symbol", h.serve)
}

func (h *Hub) serve(c echo.Context) error {
	symbol := c.Param("symbol")
	v := h.lookup(symbol)
	if v == nil || !v.IsAlive() {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("%s is not being monitored", symbol))
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Warn("ws: upgrade failed", logger.String("symbol", symbol), logger.Error(err))
		return nil
	}
	cl := newClient(conn, h.writeTimeout, h.pingPeriod, h.log.With(logger.String("symbol", symbol)))
	if !v.attach(cl) {
		cl.stop()
		go cl.writePump()
		return nil
	}
	go cl.writePump()
	cl.readPump(func() { v.detach(cl) })
	return nil
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	return middleware.OriginAllowed(h.origins, r.Header.Get("Origin"))
}

func encode(f Frame) ([]byte, error) {
	return json.Marshal(f)
}
