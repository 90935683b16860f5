package repository

import (
	"context"
	"errors"
	"time"

	"BinPulse/internal/domain/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate key")
)

// BinRepository stores bins. List returns bins ordered by level, fullest first.
type BinRepository interface {
	List(ctx context.Context, filter models.BinFilter) ([]*models.Bin, error)
	Get(ctx context.Context, id string) (*models.Bin, error)
	GetByCode(ctx context.Context, binID string) (*models.Bin, error)
	Create(ctx context.Context, b *models.Bin) error
	Update(ctx context.Context, b *models.Bin) error
	Delete(ctx context.Context, id string) error
	// UpdateLevel writes only the simulated fields and fails with ErrNotFound
	// when the bin vanished since it was read.
	UpdateLevel(ctx context.Context, id string, change models.LevelChange) (*models.Bin, error)
	Count(ctx context.Context) (int, error)
}

// RequestRepository stores service requests, newest first.
type RequestRepository interface {
	List(ctx context.Context, filter models.RequestFilter) ([]*models.ServiceRequest, error)
	Get(ctx context.Context, id string) (*models.ServiceRequest, error)
	Create(ctx context.Context, r *models.ServiceRequest) error
	Update(ctx context.Context, r *models.ServiceRequest) error
	Delete(ctx context.Context, id string) error
	HasOpenForBin(ctx context.Context, binRef string) (bool, error)
}

// EventPublisher ships simulation events to a message bus.
type EventPublisher interface {
	PublishEvents(ctx context.Context, events []models.SimulationEvent) error
	Close() error
}

// HistoryStore persists simulation events for reporting.
type HistoryStore interface {
	Init(ctx context.Context) error
	StoreEvents(ctx context.Context, events []models.SimulationEvent) error
	PeakHours(ctx context.Context, from, to time.Time) ([]models.HourStat, error)
	Collections(ctx context.Context, from, to time.Time) ([]models.DailyCollection, error)
	Health(ctx context.Context) error
	Close() error
}

// TelemetryPublisher forwards a bin reading to devices/dashboards.
type TelemetryPublisher interface {
	PublishReading(ctx context.Context, ev models.SimulationEvent) error
}

// JobQueue schedules background jobs.
type JobQueue interface {
	PublishMessage(ctx context.Context, msgType string, payload interface{}) error
}

type Metrics interface {
	RecordTick(trigger string, d time.Duration, updated, failed int)
	RecordBinLevel(binID, category string, level float64)
	ForgetBin(binID, category string)
	RecordEmptied(category string)
	RecordEventSent(sink string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	SetSchedulerRunning(running bool)
}
