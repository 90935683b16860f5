package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"BinPulse/internal/domain/models"
	drepo "BinPulse/internal/domain/repository"
	"BinPulse/internal/services/simulator"
	"BinPulse/pkg/cache"
	applogger "BinPulse/pkg/logger"

	"github.com/google/uuid"
)

var ErrTickInProgress = errors.New("a simulation tick is already running")

const (
	JobCollectionDue = "bin.collection_due"

	TriggerManual    = "manual"
	TriggerScheduler = "scheduler"

	snapshotKey  = "simulation:snapshot"
	tickLockKey  = "simulation:tick:lock"
	tickCountKey = "simulation:ticks"

	persistAttempts = 2
)

// EventSink receives every event of a tick at once.
type EventSink interface {
	Process(ctx context.Context, events []models.SimulationEvent) error
}

// ReadingSink receives one event at a time.
type ReadingSink interface {
	Process(ctx context.Context, ev models.SimulationEvent) error
}

// CollectionDue is the payload of a bin.collection_due job.
type CollectionDue struct {
	BinRef string    `json:"binRef"`
	BinID  string    `json:"binId"`
	Level  float64   `json:"level"`
	At     time.Time `json:"at"`
}

type TickConfig struct {
	IntervalSeconds float64
	Epsilon         float64
	Workers         int
	SnapshotTTL     time.Duration
	LockTTL         time.Duration
}

// TickOrchestrator applies the simulation engine to every stored bin.
type TickOrchestrator struct {
	bins      drepo.BinRepository
	engine    *simulator.Engine
	events    EventSink
	telemetry ReadingSink
	jobs      drepo.JobQueue
	cache     cache.Service
	metrics   drepo.Metrics
	log       *applogger.Logger
	cfg       TickConfig

	ticks atomic.Int64
}

type TickOption func(*TickOrchestrator)

func WithEventSink(s EventSink) TickOption { return func(o *TickOrchestrator) { o.events = s } }

func WithReadingSink(s ReadingSink) TickOption { return func(o *TickOrchestrator) { o.telemetry = s } }

func WithJobQueue(q drepo.JobQueue) TickOption { return func(o *TickOrchestrator) { o.jobs = q } }

func WithSnapshotCache(c cache.Service) TickOption { return func(o *TickOrchestrator) { o.cache = c } }

func NewTickOrchestrator(bins drepo.BinRepository, engine *simulator.Engine, metrics drepo.Metrics, log *applogger.Logger, cfg TickConfig, opts ...TickOption) *TickOrchestrator {
	if cfg.IntervalSeconds <= 0 {
		cfg.IntervalSeconds = 30
	}
	if cfg.Epsilon <= 0 {
		cfg.Epsilon = 0.01
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = time.Minute
	}
	if log == nil {
		log = applogger.Nop()
	}
	o := &TickOrchestrator{bins: bins, engine: engine, metrics: metrics, log: log, cfg: cfg}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type binOutcome struct {
	bin         *models.Bin
	update      string
	changed     bool
	event       *models.SimulationEvent
	enteredHigh bool
	failure     *models.BinFailure
}

// RunTick runs one pass over all bins. Persistence failures of single bins are
// reported in the summary and do not fail the tick.
func (o *TickOrchestrator) RunTick(ctx context.Context, trigger string) (*models.TickSummary, error) {
	if o.cache != nil {
		ok, err := o.cache.TryLock(ctx, tickLockKey, o.cfg.LockTTL)
		if err != nil {
			o.log.Warn("tick lock unavailable, continuing unlocked", applogger.Error(err))
		} else if !ok {
			return nil, ErrTickInProgress
		} else {
			defer func() {
				if err := o.cache.Unlock(context.WithoutCancel(ctx), tickLockKey); err != nil {
					o.log.Warn("tick unlock failed", applogger.Error(err))
				}
			}()
		}
	}

	start := time.Now()
	bins, err := o.bins.List(ctx, models.BinFilter{})
	if err != nil {
		o.metrics.RecordError("tick_list")
		return nil, fmt.Errorf("list bins: %w", err)
	}

	tick := o.nextTick(ctx)
	outcomes := o.process(ctx, tick, bins)

	summary := &models.TickSummary{
		Success:   true,
		Tick:      tick,
		Trigger:   trigger,
		Timestamp: o.engine.Now(),
		Updates:   make([]string, 0, len(bins)),
	}
	finals := make([]*models.Bin, 0, len(outcomes))
	events := make([]models.SimulationEvent, 0, len(outcomes))
	for _, oc := range outcomes {
		finals = append(finals, oc.bin)
		if oc.failure != nil {
			summary.Failed = append(summary.Failed, *oc.failure)
			continue
		}
		if oc.update != "" {
			summary.Updates = append(summary.Updates, oc.update)
		}
		if oc.changed {
			summary.BinsUpdated++
		}
		if oc.event != nil {
			events = append(events, *oc.event)
		}
		if oc.enteredHigh {
			o.enqueueCollection(ctx, oc.bin)
		}
	}
	summary.Stats = models.ComputeStats(finals)

	o.dispatch(ctx, events)

	if o.cache != nil {
		if err := o.cache.Delete(ctx, snapshotKey); err != nil {
			o.log.Warn("snapshot invalidate failed", applogger.Error(err))
		}
	}

	d := time.Since(start)
	summary.DurationMs = d.Milliseconds()
	o.metrics.RecordTick(trigger, d, summary.BinsUpdated, len(summary.Failed))
	o.log.Info("simulation tick",
		applogger.Int64("tick", tick),
		applogger.String("trigger", trigger),
		applogger.Int("bins", len(bins)),
		applogger.Int("updated", summary.BinsUpdated),
		applogger.Int("failed", len(summary.Failed)),
		applogger.Duration("duration_ms", d),
	)
	return summary, nil
}

func (o *TickOrchestrator) nextTick(ctx context.Context) int64 {
	if o.cache != nil {
		n, err := o.cache.Increment(ctx, tickCountKey)
		if err == nil {
			o.ticks.Store(n)
			return n
		}
		o.log.Warn("tick counter unavailable", applogger.Error(err))
	}
	return o.ticks.Add(1)
}

// process fans bins out to a bounded worker set. Outcomes keep input order.
func (o *TickOrchestrator) process(ctx context.Context, tick int64, bins []*models.Bin) []binOutcome {
	out := make([]binOutcome, len(bins))
	idx := make(chan int)
	var wg sync.WaitGroup

	workers := o.cfg.Workers
	if workers > len(bins) {
		workers = len(bins)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idx {
				out[i] = o.stepBin(ctx, tick, bins[i])
			}
		}()
	}
	for i := range bins {
		idx <- i
	}
	close(idx)
	wg.Wait()
	return out
}

func (o *TickOrchestrator) stepBin(ctx context.Context, tick int64, b *models.Bin) binOutcome {
	oc := binOutcome{bin: b}
	res, err := o.engine.Step(b, o.cfg.IntervalSeconds)
	if err != nil {
		o.metrics.RecordError("tick_step")
		oc.failure = &models.BinFailure{BinID: b.BinID, Error: err.Error()}
		return oc
	}

	if !res.Changed(o.cfg.Epsilon) {
		o.metrics.RecordBinLevel(b.BinID, string(b.Category), b.CurrentLevel)
		oc.update = simulator.FormatUpdate(b.BinID, b.Category, res.OldLevel, res.NewLevel, false)
		return oc
	}

	change := models.LevelChange{Level: res.NewLevel, Status: models.StatusForLevel(res.NewLevel)}
	if res.WasEmptied {
		at := res.At
		change.LastEmptied = &at
	}

	updated, err := o.persist(ctx, b.ID, change)
	if err != nil {
		o.metrics.RecordError("tick_persist")
		o.log.Warn("bin update failed",
			applogger.String("bin_id", b.BinID),
			applogger.Error(err),
		)
		oc.failure = &models.BinFailure{BinID: b.BinID, Error: err.Error()}
		return oc
	}

	kind := models.EventFilled
	if res.WasEmptied {
		kind = models.EventEmptied
		o.metrics.RecordEmptied(string(b.Category))
		o.log.Info("bin emptied", binLogFields("EMPTIED", tick, b, res)...)
	} else {
		o.log.Debug("bin filled", binLogFields("FILL", tick, b, res)...)
	}
	o.metrics.RecordBinLevel(b.BinID, string(b.Category), updated.CurrentLevel)

	oc.bin = updated
	oc.changed = true
	oc.update = simulator.FormatUpdate(b.BinID, b.Category, res.OldLevel, res.NewLevel, res.WasEmptied)
	oc.enteredHigh = models.StatusForLevel(res.OldLevel) != models.StatusHigh && change.Status == models.StatusHigh
	oc.event = &models.SimulationEvent{
		EventID:   uuid.NewString(),
		Tick:      tick,
		Kind:      kind,
		BinRef:    b.ID,
		BinID:     b.BinID,
		Category:  b.Category,
		OldLevel:  res.OldLevel,
		NewLevel:  res.NewLevel,
		Delta:     res.NewLevel - res.OldLevel,
		Status:    change.Status,
		Timestamp: res.At,
	}
	return oc
}

func binLogFields(event string, tick int64, b *models.Bin, res simulator.TickResult) []applogger.Field {
	return []applogger.Field{
		applogger.String("event", event),
		applogger.Int64("tick", tick),
		applogger.String("bin", b.BinID),
		applogger.String("category", string(b.Category)),
		applogger.Float64("old_level", res.OldLevel),
		applogger.Float64("new_level", res.NewLevel),
	}
}

// persist retries transient store errors once. A vanished bin is not retried.
func (o *TickOrchestrator) persist(ctx context.Context, id string, change models.LevelChange) (*models.Bin, error) {
	var err error
	for attempt := 0; attempt < persistAttempts; attempt++ {
		var b *models.Bin
		b, err = o.bins.UpdateLevel(ctx, id, change)
		if err == nil {
			return b, nil
		}
		if errors.Is(err, drepo.ErrNotFound) || ctx.Err() != nil {
			return nil, err
		}
	}
	return nil, err
}

func (o *TickOrchestrator) dispatch(ctx context.Context, events []models.SimulationEvent) {
	if len(events) == 0 {
		return
	}
	if o.events != nil {
		if err := o.events.Process(ctx, events); err != nil {
			o.log.Error("history sink failed", applogger.Int("events", len(events)), applogger.Error(err))
		}
	}
	if o.telemetry != nil {
		for _, ev := range events {
			if err := o.telemetry.Process(ctx, ev); err != nil {
				o.log.Debug("telemetry deferred", applogger.String("bin_id", ev.BinID), applogger.Error(err))
			}
		}
	}
}

func (o *TickOrchestrator) enqueueCollection(ctx context.Context, b *models.Bin) {
	if o.jobs == nil {
		return
	}
	err := o.jobs.PublishMessage(ctx, JobCollectionDue, CollectionDue{
		BinRef: b.ID,
		BinID:  b.BinID,
		Level:  b.CurrentLevel,
		At:     o.engine.Now(),
	})
	if err != nil {
		o.metrics.RecordError("enqueue_collection")
		o.log.Warn("collection job not queued", applogger.String("bin_id", b.BinID), applogger.Error(err))
	}
}

// Snapshot returns the current fleet view without mutating anything.
func (o *TickOrchestrator) Snapshot(ctx context.Context) (*models.SimulationSnapshot, error) {
	if o.cache != nil && o.cfg.SnapshotTTL > 0 {
		var cached models.SimulationSnapshot
		if err := o.cache.Get(ctx, snapshotKey, &cached); err == nil {
			return &cached, nil
		}
	}

	bins, err := o.bins.List(ctx, models.BinFilter{})
	if err != nil {
		return nil, fmt.Errorf("list bins: %w", err)
	}
	snap := &models.SimulationSnapshot{
		Success:   true,
		Timestamp: o.engine.Now(),
		Stats:     models.ComputeStats(bins),
		Bins:      make([]models.BinSnapshot, 0, len(bins)),
	}
	for _, b := range bins {
		snap.Bins = append(snap.Bins, models.BinSnapshot{
			BinID:        b.BinID,
			Category:     b.Category,
			CurrentLevel: b.CurrentLevel,
			Status:       b.Status,
			LastEmptied:  b.LastEmptied,
		})
	}

	if o.cache != nil && o.cfg.SnapshotTTL > 0 {
		if err := o.cache.Set(ctx, snapshotKey, snap, o.cfg.SnapshotTTL); err != nil {
			o.log.Debug("snapshot cache set failed", applogger.Error(err))
		}
	}
	return snap, nil
}

// Ticks returns the last tick number issued by this process.
func (o *TickOrchestrator) Ticks() int64 { return o.ticks.Load() }
