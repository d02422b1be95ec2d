// Package finnhub fetches candle closes from the Finnhub REST API.
package finnhub

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"FinWatch/internal/domain/models"
	drepo "FinWatch/internal/domain/repository"
	xhttp "FinWatch/pkg/http"
	"FinWatch/pkg/logger"
	"FinWatch/pkg/util"
)

const DefaultBaseURL = "https://finnhub.io"

var resolutions = map[string]string{
	"1m":  "1",
	"5m":  "5",
	"15m": "15",
	"30m": "30",
	"60m": "60",
	"1h":  "60",
	"1d":  "D",
	"1wk": "W",
	"1mo": "M",
}

// Resolution maps a poll interval to a Finnhub candle resolution.
func Resolution(interval string) (string, error) {
	r, ok := resolutions[interval]
	if !ok {
		return "", fmt.Errorf("finnhub: unsupported interval %q", interval)
	}
	return r, nil
}

// Client implements PriceSource backed by /api/v1/stock/candle.
type Client struct {
	apiKey  string
	baseURL string
	http    *xhttp.Client
	now     func() time.Time
	log     *logger.Logger
}

var _ drepo.PriceSource = (*Client)(nil)

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func WithHTTPClient(h *xhttp.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New creates a Finnhub PriceSource.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		now:     time.Now,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = xhttp.NewClient(xhttp.WithTimeout(10 * time.Second))
	}
	return c
}

func (c *Client) Name() string { return "finnhub" }

type candleResponse struct {
	Close     []float64 `json:"c"`
	Timestamp []int64   `json:"t"`
	Status    string    `json:"s"`
}

// Fetch requests candles in [PeriodStart(period), now]. A "no_data" status is
// reported as absence.
func (c *Client) Fetch(ctx context.Context, symbol, period, interval string) (models.Batch, error) {
	res, err := Resolution(interval)
	if err != nil {
		return nil, err
	}
	now := c.now().UTC()
	from, ok := util.PeriodStart(period, now)
	if !ok {
		from = time.Unix(0, 0)
	}

	var cr candleResponse
	err = c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     c.baseURL + "/api/v1/stock/candle",
		Headers: map[string]string{"X-Finnhub-Token": c.apiKey},
		QueryParams: map[string][]string{
			"symbol":     {symbol},
			"resolution": {res},
			"from":       {strconv.FormatInt(from.Unix(), 10)},
			"to":         {strconv.FormatInt(now.Unix(), 10)},
		},
	}, &cr)
	if err != nil {
		return nil, fmt.Errorf("finnhub candle %s: %w", symbol, err)
	}

	switch cr.Status {
	case "no_data":
		c.log.Debug("finnhub: no data", logger.String("symbol", symbol), logger.String("resolution", res))
		return nil, nil
	case "ok":
	default:
		return nil, fmt.Errorf("finnhub candle %s: unexpected status %q", symbol, cr.Status)
	}

	n := len(cr.Timestamp)
	if len(cr.Close) < n {
		n = len(cr.Close)
	}
	out := make(models.Batch, 0, n)
	for i := 0; i < n; i++ {
		if i > 0 && cr.Timestamp[i] <= cr.Timestamp[i-1] {
			continue
		}
		out = append(out, models.PricePoint{Time: time.Unix(cr.Timestamp[i], 0).UTC(), Close: cr.Close[i]})
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}
