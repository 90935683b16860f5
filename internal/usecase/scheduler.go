package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"BinPulse/internal/domain/models"
	drepo "BinPulse/internal/domain/repository"
	applogger "BinPulse/pkg/logger"
)

// Ticker runs one simulation pass.
type Ticker interface {
	RunTick(ctx context.Context, trigger string) (*models.TickSummary, error)
}

// Scheduler drives periodic ticks. At most one tick runs at a time: timer
// ticks that would overlap are skipped, manual runs get ErrTickInProgress.
type Scheduler struct {
	ticker   Ticker
	interval time.Duration
	metrics  drepo.Metrics
	log      *applogger.Logger

	mu        sync.Mutex
	running   bool
	stop      chan struct{}
	done      chan struct{}
	startedAt time.Time
	lastTick  time.Time
	last      *models.TickSummary
	ticksRun  int64
	skipped   int64
	subs      []chan models.TickSummary

	inFlight sync.Mutex
	busy     bool
}

func NewScheduler(t Ticker, interval time.Duration, metrics drepo.Metrics, log *applogger.Logger) *Scheduler {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if log == nil {
		log = applogger.Nop()
	}
	return &Scheduler{ticker: t, interval: interval, metrics: metrics, log: log}
}

// Start launches the loop and runs the first tick right away. It is a no-op
// when already running. ctx bounds the lifetime of the loop.
func (s *Scheduler) Start(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.startedAt = time.Now().UTC()
	s.metrics.SetSchedulerRunning(true)
	s.log.Info("scheduler started", applogger.String("interval", s.interval.String()))

	go s.loop(ctx, s.stop, s.done)
	return true
}

// Stop halts future ticks. A tick in progress completes in the background.
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return false
	}
	close(s.stop)
	s.running = false
	s.metrics.SetSchedulerRunning(false)
	s.log.Info("scheduler stopped")
	return true
}

// Wait blocks until the loop of the last Start has exited.
func (s *Scheduler) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (s *Scheduler) loop(ctx context.Context, stop, done chan struct{}) {
	defer close(done)
	t := time.NewTicker(s.interval)
	defer t.Stop()

	s.timerTick(ctx)
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			s.mu.Lock()
			if s.stop == stop && s.running {
				s.running = false
				s.metrics.SetSchedulerRunning(false)
			}
			s.mu.Unlock()
			return
		case <-t.C:
			s.timerTick(ctx)
		}
	}
}

func (s *Scheduler) timerTick(ctx context.Context) {
	if _, err := s.run(ctx, TriggerScheduler); err != nil {
		if errors.Is(err, ErrTickInProgress) {
			s.mu.Lock()
			s.skipped++
			s.mu.Unlock()
			s.log.Debug("scheduler tick skipped, previous still running")
			return
		}
		s.log.Error("scheduled tick failed", applogger.Error(err))
	}
}

// RunOnce runs a manual tick.
func (s *Scheduler) RunOnce(ctx context.Context) (*models.TickSummary, error) {
	return s.run(ctx, TriggerManual)
}

func (s *Scheduler) run(ctx context.Context, trigger string) (*models.TickSummary, error) {
	s.inFlight.Lock()
	if s.busy {
		s.inFlight.Unlock()
		return nil, ErrTickInProgress
	}
	s.busy = true
	s.inFlight.Unlock()
	defer func() {
		s.inFlight.Lock()
		s.busy = false
		s.inFlight.Unlock()
	}()

	summary, err := s.ticker.RunTick(ctx, trigger)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.ticksRun++
	s.lastTick = summary.Timestamp
	s.last = summary
	s.broadcast(*summary)
	s.mu.Unlock()
	return summary, nil
}

func (s *Scheduler) Status() models.SchedulerStatus {
	s.inFlight.Lock()
	busy := s.busy
	s.inFlight.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	st := models.SchedulerStatus{
		Running:     s.running,
		InFlight:    busy,
		Interval:    s.interval.String(),
		TicksRun:    s.ticksRun,
		Skipped:     s.skipped,
		LastSummary: s.last,
		Subscribers: len(s.subs),
	}
	if s.running {
		t := s.startedAt
		st.StartedAt = &t
	}
	if !s.lastTick.IsZero() {
		t := s.lastTick
		st.LastTickAt = &t
	}
	return st
}

// Subscribe returns a channel that receives every tick summary. Slow
// subscribers miss summaries rather than blocking the scheduler.
func (s *Scheduler) Subscribe() chan models.TickSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan models.TickSummary, 1)
	s.subs = append(s.subs, ch)
	return ch
}

func (s *Scheduler) Unsubscribe(ch chan models.TickSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sub := range s.subs {
		if sub == ch {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			close(ch)
			return
		}
	}
}

// caller holds s.mu
func (s *Scheduler) broadcast(sum models.TickSummary) {
	for _, ch := range s.subs {
		select {
		case ch <- sum:
		default:
		}
	}
}
