package finnhub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 15, 16, 0, 0, 0, time.UTC)

func serve(t *testing.T, body string, check func(r *http.Request)) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return New("secret", WithBaseURL(srv.URL), WithClock(func() time.Time { return fixedNow }))
}

func TestResolution(t *testing.T) {
	tests := []struct {
		interval string
		want     string
		wantErr  bool
	}{
		{"1m", "1", false},
		{"60m", "60", false},
		{"1h", "60", false},
		{"1d", "D", false},
		{"1wk", "W", false},
		{"1mo", "M", false},
		{"2m", "", true},
		{"90m", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.interval, func(t *testing.T) {
			got, err := Resolution(tt.interval)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFetchCandles(t *testing.T) {
	c := serve(t, `{"c":[1.5,2.5,2.0],"t":[1710489600,1710576000,1710576000],"s":"ok"}`, func(r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/api/v1/stock/candle", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-Finnhub-Token"))
		assert.Equal(t, "AAPL", q.Get("symbol"))
		assert.Equal(t, "D", q.Get("resolution"))
		assert.Equal(t, strconv.FormatInt(fixedNow.AddDate(0, 0, -5).Unix(), 10), q.Get("from"))
		assert.Equal(t, strconv.FormatInt(fixedNow.Unix(), 10), q.Get("to"))
	})

	b, err := c.Fetch(context.Background(), "AAPL", "5d", "1d")
	require.NoError(t, err)
	require.Len(t, b, 2)
	assert.Equal(t, 1.5, b[0].Close)
	assert.Equal(t, time.Unix(1710576000, 0).UTC(), b[1].Time)
}

func TestFetchMaxPeriodStartsAtEpoch(t *testing.T) {
	c := serve(t, `{"s":"no_data"}`, func(r *http.Request) {
		assert.Equal(t, "0", r.URL.Query().Get("from"))
	})

	b, err := c.Fetch(context.Background(), "AAPL", "max", "1mo")
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestFetchUnsupportedInterval(t *testing.T) {
	c := New("k", WithBaseURL("http://127.0.0.1:0"))
	_, err := c.Fetch(context.Background(), "AAPL", "1d", "2m")
	assert.ErrorContains(t, err, "unsupported interval")
}

func TestFetchUnexpectedStatus(t *testing.T) {
	c := serve(t, `{"s":"error"}`, nil)
	_, err := c.Fetch(context.Background(), "AAPL", "1d", "1d")
	assert.ErrorContains(t, err, `unexpected status "error"`)
}
