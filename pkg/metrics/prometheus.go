package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements repository.Metrics using Prometheus.
type Recorder struct {
	ticksTotal     *prometheus.CounterVec
	tickDuration   prometheus.Histogram
	binsUpdated    prometheus.Counter
	binsFailed     prometheus.Counter
	binLevel       *prometheus.GaugeVec
	emptiedTotal   *prometheus.CounterVec
	eventsSent     *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	latency        *prometheus.HistogramVec
	schedulerState prometheus.Gauge
}

var (
	defaultOnce     sync.Once
	defaultRecorder *Recorder
)

// New returns the process-wide recorder registered on the default registry.
func New() *Recorder {
	defaultOnce.Do(func() {
		defaultRecorder = NewWithRegistry(prometheus.DefaultRegisterer)
	})
	return defaultRecorder
}

// NewWithRegistry creates a recorder bound to reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		ticksTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "binpulse_ticks_total",
				Help: "Simulation ticks by trigger and outcome",
			},
			[]string{"trigger", "outcome"},
		),
		tickDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "binpulse_tick_duration_seconds",
				Help:    "Wall time of a simulation tick",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
		),
		binsUpdated: f.NewCounter(prometheus.CounterOpts{
			Name: "binpulse_bins_updated_total",
			Help: "Bin level changes persisted by the simulator",
		}),
		binsFailed: f.NewCounter(prometheus.CounterOpts{
			Name: "binpulse_bins_failed_total",
			Help: "Bin updates that failed to persist",
		}),
		binLevel: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "binpulse_bin_level_percent",
				Help: "Last recorded fill level per bin",
			},
			[]string{"bin", "category"},
		),
		emptiedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "binpulse_bins_emptied_total",
				Help: "Simulated collections per category",
			},
			[]string{"category"},
		),
		eventsSent: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "binpulse_events_sent_total",
				Help: "Simulation events handed to a sink",
			},
			[]string{"sink"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "binpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "binpulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		schedulerState: f.NewGauge(prometheus.GaugeOpts{
			Name: "binpulse_scheduler_running",
			Help: "1 while the periodic scheduler is running",
		}),
	}
}

func (r *Recorder) RecordTick(trigger string, d time.Duration, updated, failed int) {
	outcome := "ok"
	if failed > 0 {
		outcome = "partial"
	}
	r.ticksTotal.WithLabelValues(trigger, outcome).Inc()
	r.tickDuration.Observe(d.Seconds())
	r.binsUpdated.Add(float64(updated))
	r.binsFailed.Add(float64(failed))
}

func (r *Recorder) RecordBinLevel(binID, category string, level float64) {
	r.binLevel.WithLabelValues(binID, category).Set(level)
}

// ForgetBin drops the gauge series of a deleted bin.
func (r *Recorder) ForgetBin(binID, category string) {
	r.binLevel.DeleteLabelValues(binID, category)
}

func (r *Recorder) RecordEmptied(category string) {
	r.emptiedTotal.WithLabelValues(category).Inc()
}

func (r *Recorder) RecordEventSent(sink string) {
	r.eventsSent.WithLabelValues(sink).Inc()
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) SetSchedulerRunning(running bool) {
	if running {
		r.schedulerState.Set(1)
		return
	}
	r.schedulerState.Set(0)
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordTick(string, time.Duration, int, int) {}
func (Nop) RecordBinLevel(string, string, float64)     {}
func (Nop) ForgetBin(string, string)                   {}
func (Nop) RecordEmptied(string)                       {}
func (Nop) RecordEventSent(string)                     {}
func (Nop) RecordError(string)                         {}
func (Nop) RecordLatency(string, float64)              {}
func (Nop) SetSchedulerRunning(bool)                   {}
