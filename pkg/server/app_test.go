package server

import (
	"context"
	"testing"
	"time"

	"FinWatch/internal/domain/models"
	"FinWatch/internal/handler/ws"
	"FinWatch/internal/service/simsource"
	"FinWatch/internal/usecase"
	"FinWatch/pkg/config"
	xhttp "FinWatch/pkg/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunContextStopsSessionsOnShutdown(t *testing.T) {
	cfg := config.Default()
	cfg.Monitor.SweepInterval = 10 * time.Millisecond
	cfg.Server.ShutdownTimeout = 2 * time.Second

	hub := ws.NewHub()
	reg := usecase.NewRegistry(simsource.New(), hub, hub)
	srv := xhttp.NewServer([]xhttp.Handler{hub}, xhttp.WithHost("127.0.0.1"), xhttp.WithPort(0), xhttp.WithMetricsPath(""))
	app := New(cfg, reg, srv, nil, nil)

	outcome, err := reg.StartMonitoring("MSFT", models.PollConfig{Period: "1d", Interval: "1d"})
	require.NoError(t, err)
	assert.Equal(t, usecase.OutcomeStarted, outcome)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.RunContext(ctx) }()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, reg.Len())
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("RunContext did not return after cancel")
	}
	assert.Equal(t, 0, reg.Len())
	assert.Equal(t, 0, hub.Views())
}

func TestSweeperRemovesDeadViews(t *testing.T) {
	cfg := config.Default()
	cfg.Monitor.SweepInterval = 10 * time.Millisecond

	hub := ws.NewHub()
	reg := usecase.NewRegistry(simsource.New(), hub, hub)
	srv := xhttp.NewServer(nil, xhttp.WithHost("127.0.0.1"), xhttp.WithPort(0), xhttp.WithMetricsPath(""))
	app := New(cfg, reg, srv, nil, nil)

	_, err := reg.StartMonitoring("AAPL", models.PollConfig{Period: "1d", Interval: "1d"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = app.RunContext(ctx) }()

	// A replacement view closes the registered one, which the sweeper then reaps.
	_, err = hub.NewView("AAPL", models.PollConfig{Period: "1d", Interval: "1d"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return reg.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
	found := false
	for _, n := range hub.Recent(time.Time{}, 0) {
		if n.Message == usecase.StoppedMessage("AAPL") {
			found = true
		}
	}
	assert.True(t, found)
}
