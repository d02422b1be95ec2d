package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinWatch/internal/domain/models"
	pkgkafka "FinWatch/pkg/kafka"
)

type recordingController struct {
	started []string
	cfgs    []models.PollConfig
	stopped []string
}

func (c *recordingController) StartMonitoring(symbol string, cfg models.PollConfig) (Outcome, error) {
	if err := cfg.Validate(); err != nil {
		return 0, err
	}
	c.started = append(c.started, symbol)
	c.cfgs = append(c.cfgs, cfg)
	return OutcomeStarted, nil
}

func (c *recordingController) StopMonitoring(symbol string) Outcome {
	c.stopped = append(c.stopped, symbol)
	return OutcomeStopped
}

func TestKafkaControlHandler(t *testing.T) {
	ctrl := &recordingController{}
	h := NewKafkaControlHandler("finwatch.control", ctrl, models.PollConfig{Period: "1d", Interval: "1d"}, nil)
	ctx := context.Background()

	assert.Equal(t, "finwatch.control", h.Topic())

	require.NoError(t, h.Handle(ctx, []byte(`{"action":"start","symbol":"AAPL","interval":"5m"}`)))
	require.Equal(t, []string{"AAPL"}, ctrl.started)
	assert.Equal(t, models.PollConfig{Period: "1d", Interval: "5m"}, ctrl.cfgs[0])

	require.NoError(t, h.Handle(ctx, []byte(`{"action":"STOP","symbol":"AAPL"}`)))
	assert.Equal(t, []string{"AAPL"}, ctrl.stopped)

	assert.ErrorIs(t, h.Handle(ctx, []byte(`{"action":"start"}`)), ErrEmptySymbol)
	assert.ErrorIs(t, h.Handle(ctx, []byte(`{"action":"start","symbol":"AAPL","period":"7d"}`)), models.ErrInvalidPollConfig)
}

func TestKafkaControlHandlerBadCommandsArePermanent(t *testing.T) {
	h := NewKafkaControlHandler("finwatch.control", &recordingController{}, models.PollConfig{Period: "1d", Interval: "1d"}, nil)

	for _, payload := range []string{
		`not json`,
		`{"action":"start"}`,
		`{"action":"pause","symbol":"AAPL"}`,
		`{"action":"start","symbol":"AAPL","period":"7d"}`,
	} {
		err := h.Handle(context.Background(), []byte(payload))
		assert.ErrorIs(t, err, pkgkafka.ErrPermanent, payload)
	}
}
