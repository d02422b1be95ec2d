// Package yahoo fetches close prices from the Yahoo Finance chart endpoint.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"FinWatch/internal/domain/models"
	drepo "FinWatch/internal/domain/repository"
	xhttp "FinWatch/pkg/http"
	"FinWatch/pkg/logger"
)

const (
	DefaultBaseURL = "https://query1.finance.yahoo.com"
	userAgent      = "Mozilla/5.0 (compatible; finwatch/1.0)"
)

// Client implements PriceSource against /v8/finance/chart.
type Client struct {
	baseURL string
	http    *xhttp.Client
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

func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

func New(opts ...Option) *Client {
	c := &Client{baseURL: DefaultBaseURL, log: logger.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = xhttp.NewClient(xhttp.WithTimeout(10*time.Second), xhttp.WithUserAgent(userAgent))
	}
	return c
}

func (c *Client) Name() string { return "yahoo" }

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []*float64 `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Fetch returns (nil, nil) for unknown symbols and empty ranges.
func (c *Client) Fetch(ctx context.Context, symbol, period, interval string) (models.Batch, error) {
	resp, err := c.http.SendRequest(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/v8/finance/chart/" + url.PathEscape(symbol),
		QueryParams: map[string][]string{
			"range":          {period},
			"interval":       {interval},
			"includePrePost": {"true"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("yahoo chart %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("yahoo chart %s: read body: %w", symbol, err)
	}

	var cr chartResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("yahoo chart %s: %w", symbol, &xhttp.StatusError{Code: resp.StatusCode, Body: truncate(body)})
		}
		return nil, fmt.Errorf("yahoo chart %s: decode: %w", symbol, err)
	}

	if e := cr.Chart.Error; e != nil {
		if e.Code == "Not Found" {
			c.log.Debug("yahoo: symbol not found", logger.String("symbol", symbol))
			return nil, nil
		}
		return nil, fmt.Errorf("yahoo chart %s: %s: %s", symbol, e.Code, e.Description)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo chart %s: %w", symbol, &xhttp.StatusError{Code: resp.StatusCode, Body: truncate(body)})
	}
	if len(cr.Chart.Result) == 0 {
		return nil, nil
	}
	return toBatch(cr.Chart.Result[0]), nil
}

// toBatch drops out-of-order timestamps and maps null closes to NaN.
func toBatch(r chartResult) models.Batch {
	if len(r.Timestamp) == 0 || len(r.Indicators.Quote) == 0 {
		return nil
	}
	closes := r.Indicators.Quote[0].Close

	out := make(models.Batch, 0, len(r.Timestamp))
	var last int64
	for i, ts := range r.Timestamp {
		if i > 0 && ts <= last {
			continue
		}
		last = ts
		v := math.NaN()
		if i < len(closes) && closes[i] != nil {
			v = *closes[i]
		}
		out = append(out, models.PricePoint{Time: time.Unix(ts, 0).UTC(), Close: v})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func truncate(b []byte) string {
	const limit = 256
	s := strings.TrimSpace(string(b))
	if len(s) > limit {
		return s[:limit]
	}
	return s
}
