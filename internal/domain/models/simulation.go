package models

import "time"

// SimulationStats aggregates the current fleet state.
type SimulationStats struct {
	TotalBins        int     `json:"totalBins"`
	LowPriority      int     `json:"lowPriority"`
	MediumPriority   int     `json:"mediumPriority"`
	HighPriority     int     `json:"highPriority"`
	AverageFillLevel float64 `json:"averageFillLevel"`
}

// ComputeStats counts tiers by level and averages the levels.
// An empty fleet has an average of 0.
func ComputeStats(bins []*Bin) SimulationStats {
	s := SimulationStats{TotalBins: len(bins)}
	var sum float64
	for _, b := range bins {
		switch StatusForLevel(b.CurrentLevel) {
		case StatusLow:
			s.LowPriority++
		case StatusMedium:
			s.MediumPriority++
		default:
			s.HighPriority++
		}
		sum += b.CurrentLevel
	}
	if len(bins) > 0 {
		s.AverageFillLevel = sum / float64(len(bins))
	}
	return s
}

// BinFailure reports a bin the tick could not persist.
type BinFailure struct {
	BinID string `json:"binId"`
	Error string `json:"error"`
}

// TickSummary is the result of one pass over every bin.
type TickSummary struct {
	Success   bool      `json:"success"`
	Tick      int64     `json:"tick,omitempty"`
	Trigger   string    `json:"trigger,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	// BinsUpdated counts bins whose new level was persisted this tick. Bins
	// that moved less than the epsilon or failed to persist are excluded, so
	// it can be lower than Stats.TotalBins and len(Updates).
	BinsUpdated int `json:"binsUpdated"`
	// Updates has one line per bin that did not fail, changed or not.
	Updates    []string        `json:"updates"`
	Stats      SimulationStats `json:"stats"`
	Failed     []BinFailure    `json:"failed,omitempty"`
	DurationMs int64           `json:"durationMs"`
}

// BinSnapshot is the read-only per-bin view.
type BinSnapshot struct {
	BinID        string    `json:"binId"`
	Category     Category  `json:"category"`
	CurrentLevel float64   `json:"currentLevel"`
	Status       BinStatus `json:"status"`
	LastEmptied  time.Time `json:"lastEmptied"`
}

// SimulationSnapshot answers GET /api/simulation.
type SimulationSnapshot struct {
	Success   bool            `json:"success"`
	Timestamp time.Time       `json:"timestamp"`
	Stats     SimulationStats `json:"stats"`
	Bins      []BinSnapshot   `json:"bins"`
}

// SchedulerStatus describes the periodic tick driver.
type SchedulerStatus struct {
	Running     bool         `json:"running"`
	InFlight    bool         `json:"inFlight"`
	Interval    string       `json:"interval"`
	TicksRun    int64        `json:"ticksRun"`
	Skipped     int64        `json:"skipped"`
	StartedAt   *time.Time   `json:"startedAt,omitempty"`
	LastTickAt  *time.Time   `json:"lastTickAt,omitempty"`
	LastSummary *TickSummary `json:"lastSummary,omitempty"`
	Subscribers int          `json:"subscribers"`
}

// EventKind tags a SimulationEvent.
type EventKind string

const (
	EventFilled  EventKind = "FILLED"
	EventEmptied EventKind = "EMPTIED"
)

// SimulationEvent is one bin change, shipped to history and telemetry sinks.
type SimulationEvent struct {
	EventID   string    `json:"event_id"`
	Tick      int64     `json:"tick"`
	Kind      EventKind `json:"kind"`
	BinRef    string    `json:"bin_ref"`
	BinID     string    `json:"bin_id"`
	Category  Category  `json:"category"`
	OldLevel  float64   `json:"old_level"`
	NewLevel  float64   `json:"new_level"`
	Delta     float64   `json:"delta"`
	Status    BinStatus `json:"status"`
	Timestamp time.Time `json:"ts"`
}
