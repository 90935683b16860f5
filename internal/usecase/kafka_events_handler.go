package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"BinPulse/internal/domain/models"
	domrepo "BinPulse/internal/domain/repository"
	pkgkafka "BinPulse/pkg/kafka"
)

// SimulationEventsHandler consumes simulation events and writes them to the
// history store.
type SimulationEventsHandler struct {
	topic   string
	history domrepo.HistoryStore
	metrics domrepo.Metrics
}

func NewSimulationEventsHandler(topic string, history domrepo.HistoryStore, metrics domrepo.Metrics) *SimulationEventsHandler {
	return &SimulationEventsHandler{topic: topic, history: history, metrics: metrics}
}

func (h *SimulationEventsHandler) Topic() string { return h.topic }

func (h *SimulationEventsHandler) Handle(ctx context.Context, b []byte) error {
	var ev models.SimulationEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if ev.EventID == "" || ev.BinID == "" {
		h.metrics.RecordError("consumer_invalid")
		return fmt.Errorf("event without id or bin")
	}
	if !ev.Timestamp.IsZero() {
		h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(ev.Timestamp).Seconds())
	}

	start := time.Now()
	err := h.history.StoreEvents(ctx, []models.SimulationEvent{ev})
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordEventSent(SinkClickHouse)
	return nil
}

var _ pkgkafka.MessageHandler = (*SimulationEventsHandler)(nil)
