package usecase

import (
	"context"
	"fmt"
	"time"

	"BinPulse/internal/domain/models"
	drepo "BinPulse/internal/domain/repository"
)

const (
	SinkNone       = "none"
	SinkKafka      = "kafka"
	SinkClickHouse = "clickhouse"
)

// EventProcessor routes simulation events to the configured history sink.
type EventProcessor struct {
	pub     drepo.EventPublisher
	store   drepo.HistoryStore
	metrics drepo.Metrics
	sink    string
}

func NewEventProcessor(pub drepo.EventPublisher, store drepo.HistoryStore, metrics drepo.Metrics, sink string) *EventProcessor {
	if sink == "" {
		sink = SinkNone
	}
	return &EventProcessor{pub: pub, store: store, metrics: metrics, sink: sink}
}

func (p *EventProcessor) Sink() string { return p.sink }

// Process ships one tick worth of events.
func (p *EventProcessor) Process(ctx context.Context, events []models.SimulationEvent) error {
	if len(events) == 0 || p.sink == SinkNone {
		return nil
	}

	start := time.Now()
	var err error

	switch p.sink {
	case SinkKafka:
		if p.pub == nil {
			return fmt.Errorf("kafka sink selected without publisher")
		}
		err = p.pub.PublishEvents(ctx, events)
	case SinkClickHouse:
		if p.store == nil {
			return fmt.Errorf("clickhouse sink selected without store")
		}
		err = p.store.StoreEvents(ctx, events)
	default:
		err = fmt.Errorf("unknown sink: %s", p.sink)
	}

	if err != nil {
		p.metrics.RecordError("process_events")
		return fmt.Errorf("process events: %w", err)
	}

	for range events {
		p.metrics.RecordEventSent(p.sink)
	}
	p.metrics.RecordLatency("process_events", time.Since(start).Seconds())
	return nil
}

// Close closes underlying resources if available.
func (p *EventProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.store != nil {
		_ = p.store.Close()
	}
}
