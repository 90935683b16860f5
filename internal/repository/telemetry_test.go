package repository

import (
	"context"
	"testing"
	"time"

	"BinPulse/internal/domain/models"
)

type capturePublisher struct {
	topic   string
	payload interface{}
}

func (c *capturePublisher) Publish(ctx context.Context, topic string, qos byte, retained bool, payload interface{}) error {
	c.topic = topic
	c.payload = payload
	return nil
}

func TestMQTTTelemetryTopicAndPayload(t *testing.T) {
	pub := &capturePublisher{}
	m := newMQTTTelemetry(pub, "", 1, false)
	ts := time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)
	err := m.PublishReading(context.Background(), models.SimulationEvent{
		BinID: "BIN-E001", Category: models.CategoryEWaste, Kind: models.EventEmptied,
		NewLevel: 0, Status: models.StatusLow, Timestamp: ts,
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if pub.topic != "bins/BIN-E001/level" {
		t.Fatalf("unexpected topic %q", pub.topic)
	}
	r, ok := pub.payload.(Reading)
	if !ok || !r.Emptied || r.TS != ts.UnixMilli() {
		t.Fatalf("unexpected payload %+v", pub.payload)
	}
}

func TestEventRowsAndHours(t *testing.T) {
	rows := eventRows([]models.SimulationEvent{{EventID: "e1", Kind: models.EventFilled, Category: models.CategoryPaper, Delta: 0.4}})
	if len(rows) != 1 || len(rows[0]) != 11 || rows[0][2] != "FILLED" {
		t.Fatalf("unexpected rows %+v", rows)
	}
	hours := fillHours(map[int]float64{13: 2.5})
	if len(hours) != 24 || hours[13].Filled != 2.5 || hours[0].Filled != 0 {
		t.Fatalf("unexpected hours %+v", hours)
	}
}
