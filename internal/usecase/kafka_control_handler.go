package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"FinWatch/internal/domain/models"
	pkgkafka "FinWatch/pkg/kafka"
	"FinWatch/pkg/logger"
)

// ControlCommand is the payload accepted on the control topic:
// {"action":"start|stop","symbol":"MSFT","period":"1d","interval":"1m"}.
type ControlCommand struct {
	Action   string `json:"action"`
	Symbol   string `json:"symbol"`
	Period   string `json:"period"`
	Interval string `json:"interval"`
}

// Controller is the subset of the registry driven by control commands.
type Controller interface {
	StartMonitoring(symbol string, cfg models.PollConfig) (Outcome, error)
	StopMonitoring(symbol string) Outcome
}

// KafkaControlHandler turns control-topic messages into registry calls.
// Outcomes are logged. Malformed commands and config errors fail
// permanently and are never retried.
type KafkaControlHandler struct {
	topic    string
	ctrl     Controller
	defaults models.PollConfig
	log      *logger.Logger
}

func NewKafkaControlHandler(topic string, ctrl Controller, defaults models.PollConfig, log *logger.Logger) *KafkaControlHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &KafkaControlHandler{topic: topic, ctrl: ctrl, defaults: defaults, log: log}
}

func (h *KafkaControlHandler) Topic() string { return h.topic }

func (h *KafkaControlHandler) Handle(ctx context.Context, b []byte) error {
	var cmd ControlCommand
	if err := json.Unmarshal(b, &cmd); err != nil {
		return pkgkafka.Permanent(fmt.Errorf("decode control command: %w", err))
	}
	if strings.TrimSpace(cmd.Symbol) == "" {
		return pkgkafka.Permanent(ErrEmptySymbol)
	}

	switch strings.ToLower(cmd.Action) {
	case "start":
		cfg := models.PollConfig{Period: cmd.Period, Interval: cmd.Interval}
		if cfg.Period == "" {
			cfg.Period = h.defaults.Period
		}
		if cfg.Interval == "" {
			cfg.Interval = h.defaults.Interval
		}
		out, err := h.ctrl.StartMonitoring(cmd.Symbol, cfg)
		if err != nil {
			return pkgkafka.Permanent(fmt.Errorf("control start %s: %w", cmd.Symbol, err))
		}
		h.log.Info("control command applied", logger.String("action", "start"), logger.String("symbol", cmd.Symbol), logger.String("outcome", out.String()))
	case "stop":
		out := h.ctrl.StopMonitoring(cmd.Symbol)
		h.log.Info("control command applied", logger.String("action", "stop"), logger.String("symbol", cmd.Symbol), logger.String("outcome", out.String()))
	default:
		return pkgkafka.Permanent(fmt.Errorf("unknown control action %q", cmd.Action))
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaControlHandler)(nil)
