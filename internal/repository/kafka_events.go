package repository

import (
	"context"

	"BinPulse/internal/domain/models"
	pkgkafka "BinPulse/pkg/kafka"
)

// KafkaEventPublisher ships simulation events keyed by bin code, so all
// readings of one bin land on the same partition in order.
type KafkaEventPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaEventPublisher(producer *pkgkafka.Producer, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic}
}

func (p *KafkaEventPublisher) PublishEvents(ctx context.Context, events []models.SimulationEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(events))
	for i, e := range events {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(e.BinID),
			Value: e,
			Headers: map[string]string{
				"kind":     string(e.Kind),
				"event_id": e.EventID,
			},
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaEventPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
