package middleware

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"BinPulse/internal/domain/models"
	domrepo "BinPulse/internal/domain/repository"
)

// TelemetryPipeline sits between the tick orchestrator and the telemetry
// publisher. It validates and throttles readings per bin, and buffers them
// while the publisher is unavailable.
type TelemetryPipeline struct {
	pub      domrepo.TelemetryPublisher
	metrics  domrepo.Metrics
	maxRate  int
	bufSize  int
	bufCh    chan models.SimulationEvent
	stopCh   chan struct{}
	doneCh   chan struct{}
	started  bool
	mu       sync.Mutex
	lastSeen map[string]time.Time // per-bin last accepted time
	now      func() time.Time
}

type PipelineOption func(*TelemetryPipeline)

// WithMaxRate sets the max readings per second per bin. Zero disables throttling.
func WithMaxRate(n int) PipelineOption {
	return func(p *TelemetryPipeline) {
		if n >= 0 {
			p.maxRate = n
		}
	}
}

// WithBufferSize sets the retry buffer used when the publisher fails.
func WithBufferSize(n int) PipelineOption {
	return func(p *TelemetryPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

func withClock(now func() time.Time) PipelineOption {
	return func(p *TelemetryPipeline) { p.now = now }
}

func NewTelemetryPipeline(pub domrepo.TelemetryPublisher, metrics domrepo.Metrics, opts ...PipelineOption) *TelemetryPipeline {
	p := &TelemetryPipeline{
		pub:      pub,
		metrics:  metrics,
		maxRate:  5,
		bufSize:  500,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		lastSeen: make(map[string]time.Time),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan models.SimulationEvent, p.bufSize)
	return p
}

// Start launches background flushing of buffered readings.
func (p *TelemetryPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go p.flush(ctx)
}

func (p *TelemetryPipeline) flush(ctx context.Context) {
	defer close(p.doneCh)
	const minBackoff = 50 * time.Millisecond
	backoff := minBackoff
	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case ev := <-p.bufCh:
			if err := p.pub.PublishReading(ctx, ev); err != nil {
				if backoff < 2*time.Second {
					backoff *= 2
				}
				p.metrics.RecordError("pipeline_flush")
				select {
				case <-time.After(backoff):
				case <-p.stopCh:
					return
				case <-ctx.Done():
					return
				}
				p.enqueue(ev)
				continue
			}
			backoff = minBackoff
			p.metrics.RecordEventSent("mqtt")
		}
	}
}

// Stop stops the background flushing and waits for it to exit. Buffered
// readings are dropped.
func (p *TelemetryPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
	<-p.doneCh
}

// Buffered returns the number of readings waiting for retry.
func (p *TelemetryPipeline) Buffered() int { return len(p.bufCh) }

// Process validates, throttles and forwards one reading, buffering it when the
// publisher fails. Throttled readings are dropped without error, except
// emptied ones, which always go through.
func (p *TelemetryPipeline) Process(ctx context.Context, ev models.SimulationEvent) error {
	start := p.now()
	if err := validateReading(ev); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if ev.Kind != models.EventEmptied && !p.allow(ev.BinID, start) {
		p.metrics.RecordError("pipeline_throttle")
		return nil
	}

	if err := p.pub.PublishReading(ctx, ev); err != nil {
		p.metrics.RecordError("pipeline_publish")
		p.enqueue(ev)
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordEventSent("mqtt")
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func (p *TelemetryPipeline) enqueue(ev models.SimulationEvent) {
	select {
	case p.bufCh <- ev:
	default:
		p.metrics.RecordError("pipeline_buffer_full")
	}
}

func validateReading(ev models.SimulationEvent) error {
	if ev.BinID == "" {
		return fmt.Errorf("bin id empty")
	}
	if !ev.Category.Valid() {
		return fmt.Errorf("invalid category %q", ev.Category)
	}
	if math.IsNaN(ev.NewLevel) || ev.NewLevel < 0 || ev.NewLevel > 100 {
		return fmt.Errorf("level %v outside 0-100", ev.NewLevel)
	}
	if ev.Timestamp.IsZero() {
		return fmt.Errorf("timestamp missing")
	}
	return nil
}

func (p *TelemetryPipeline) allow(binID string, now time.Time) bool {
	if p.maxRate <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	last, ok := p.lastSeen[binID]
	if ok && now.Sub(last) < time.Second/time.Duration(p.maxRate) {
		return false
	}
	p.lastSeen[binID] = now
	return true
}
