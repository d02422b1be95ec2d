package repository

import (
	"context"
	"fmt"

	"FinWatch/internal/domain/models"
	drepo "FinWatch/internal/domain/repository"
)

// MessagePublisher is the producer surface used by the publisher.
type MessagePublisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

// KafkaResultPublisher publishes each result as JSON keyed by symbol, so a
// symbol's results stay ordered within one partition.
type KafkaResultPublisher struct {
	producer MessagePublisher
	topic    string
}

var _ drepo.ResultPublisher = (*KafkaResultPublisher)(nil)

func NewKafkaResultPublisher(p MessagePublisher, topic string) *KafkaResultPublisher {
	return &KafkaResultPublisher{producer: p, topic: topic}
}

func (p *KafkaResultPublisher) Publish(ctx context.Context, r *models.Result) error {
	if err := p.producer.Publish(ctx, p.topic, []byte(r.Symbol), r); err != nil {
		return fmt.Errorf("publish result %s: %w", r.Symbol, err)
	}
	return nil
}
