package yahoo

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	xhttp "FinWatch/pkg/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, status int, body string, check func(r *http.Request)) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return New(WithBaseURL(srv.URL))
}

func TestFetchParsesChart(t *testing.T) {
	body := `{"chart":{"result":[{"timestamp":[1700000000,1700000060,1700000060,1700000120],
		"indicators":{"quote":[{"close":[10.5,null,99,11.25]}]}}],"error":null}}`

	c := serve(t, http.StatusOK, body, func(r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/MSFT", r.URL.Path)
		assert.Equal(t, "5d", r.URL.Query().Get("range"))
		assert.Equal(t, "1m", r.URL.Query().Get("interval"))
		assert.Equal(t, "true", r.URL.Query().Get("includePrePost"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
	})

	b, err := c.Fetch(context.Background(), "MSFT", "5d", "1m")
	require.NoError(t, err)
	require.Len(t, b, 3)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), b[0].Time)
	assert.Equal(t, time.UTC, b[0].Time.Location())
	assert.Equal(t, 10.5, b[0].Close)
	assert.True(t, math.IsNaN(b[1].Close))
	assert.Equal(t, 11.25, b[2].Close)
}

func TestFetchNotFoundIsAbsent(t *testing.T) {
	body := `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`
	c := serve(t, http.StatusNotFound, body, nil)

	b, err := c.Fetch(context.Background(), "NOPE", "1d", "1d")
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestFetchEmptyResultIsAbsent(t *testing.T) {
	c := serve(t, http.StatusOK, `{"chart":{"result":[{"indicators":{"quote":[{}]}}],"error":null}}`, nil)

	b, err := c.Fetch(context.Background(), "MSFT", "1d", "1d")
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestFetchChartErrorIsError(t *testing.T) {
	body := `{"chart":{"result":null,"error":{"code":"Bad Request","description":"Invalid input - interval=7m is not supported"}}}`
	c := serve(t, http.StatusBadRequest, body, nil)

	_, err := c.Fetch(context.Background(), "MSFT", "1d", "7m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interval=7m")
}

func TestFetchServerError(t *testing.T) {
	c := serve(t, http.StatusBadGateway, `upstream down`, nil)

	_, err := c.Fetch(context.Background(), "MSFT", "1d", "1d")
	var se *xhttp.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadGateway, se.Code)
	assert.True(t, se.Temporary())
}
