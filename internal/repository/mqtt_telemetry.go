package repository

import (
	"context"

	"BinPulse/internal/domain/models"
	pkgmqtt "BinPulse/pkg/mqtt"
)

// telemetryPublisher is the slice of the MQTT client used here.
type telemetryPublisher interface {
	Publish(ctx context.Context, topic string, qos byte, retained bool, payload interface{}) error
}

// Reading is the JSON body published for every bin change.
type Reading struct {
	BinID    string           `json:"bin_id"`
	Category models.Category  `json:"category"`
	Level    float64          `json:"level"`
	Status   models.BinStatus `json:"status"`
	Emptied  bool             `json:"emptied"`
	TS       int64            `json:"ts"`
}

// MQTTTelemetry publishes bin readings on a per-bin topic.
type MQTTTelemetry struct {
	client   telemetryPublisher
	pattern  string
	qos      byte
	retained bool
}

func NewMQTTTelemetry(client *pkgmqtt.Client, pattern string, qos byte, retained bool) *MQTTTelemetry {
	return newMQTTTelemetry(client, pattern, qos, retained)
}

func newMQTTTelemetry(client telemetryPublisher, pattern string, qos byte, retained bool) *MQTTTelemetry {
	if pattern == "" {
		pattern = "bins/{bin_id}/level"
	}
	return &MQTTTelemetry{client: client, pattern: pattern, qos: qos, retained: retained}
}

func (m *MQTTTelemetry) Topic(ev models.SimulationEvent) string {
	return pkgmqtt.FormatTopic(m.pattern, map[string]string{
		"bin_id":   ev.BinID,
		"category": string(ev.Category),
	})
}

func (m *MQTTTelemetry) PublishReading(ctx context.Context, ev models.SimulationEvent) error {
	r := Reading{
		BinID:    ev.BinID,
		Category: ev.Category,
		Level:    ev.NewLevel,
		Status:   ev.Status,
		Emptied:  ev.Kind == models.EventEmptied,
		TS:       ev.Timestamp.UnixMilli(),
	}
	return m.client.Publish(ctx, m.Topic(ev), m.qos, m.retained, r)
}
