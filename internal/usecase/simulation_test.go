package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"BinPulse/internal/domain/models"
	drepo "BinPulse/internal/domain/repository"
	"BinPulse/internal/repository"
	"BinPulse/internal/services/simulator"
	"BinPulse/pkg/cache"
	applogger "BinPulse/pkg/logger"
	"BinPulse/pkg/metrics"

	"github.com/rs/zerolog"
)

var tickNow = time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)

type captureSink struct {
	mu     sync.Mutex
	events []models.SimulationEvent
}

func (s *captureSink) Process(_ context.Context, events []models.SimulationEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return nil
}

type queuedJob struct {
	msgType string
	payload interface{}
}

type captureQueue struct {
	mu   sync.Mutex
	jobs []queuedJob
}

func (q *captureQueue) PublishMessage(_ context.Context, msgType string, payload interface{}) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, queuedJob{msgType: msgType, payload: payload})
	return nil
}

// flakyBins fails UpdateLevel for one bin.
type flakyBins struct {
	*repository.MemoryBinRepository
	failID string
	err    error
	calls  int
}

func (f *flakyBins) UpdateLevel(ctx context.Context, id string, change models.LevelChange) (*models.Bin, error) {
	if id == f.failID {
		f.calls++
		return nil, f.err
	}
	return f.MemoryBinRepository.UpdateLevel(ctx, id, change)
}

func addBin(t *testing.T, repo drepo.BinRepository, id, code string, cat models.Category, level float64, emptiedAgo time.Duration) {
	t.Helper()
	b := &models.Bin{
		ID:           id,
		BinID:        code,
		Category:     cat,
		Location:     "Yard",
		Capacity:     100,
		CurrentLevel: level,
		Status:       models.StatusForLevel(level),
		LastEmptied:  tickNow.Add(-emptiedAgo),
	}
	if err := repo.Create(context.Background(), b); err != nil {
		t.Fatalf("create %s: %v", code, err)
	}
}

func newEngine(draw float64) *simulator.Engine {
	src := simulator.FixedSource(draw)
	return simulator.NewEngine(
		simulator.NewCalculator(simulator.DefaultPatterns(), src),
		simulator.NewDecider(simulator.DefaultEmptyPolicy(), src),
		simulator.FixedClock{T: tickNow},
	)
}

func TestRunTickAppliesEngineToEveryBin(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryBinRepository()
	addBin(t, repo, "a", "BIN-O001", models.CategoryOrganic, 79.99, time.Hour)
	addBin(t, repo, "b", "BIN-PA001", models.CategoryPaper, 96, time.Hour)
	addBin(t, repo, "c", "BIN-G001", models.CategoryGlass, 100, time.Minute)

	organic, _ := simulator.DefaultPatterns().Lookup(models.CategoryOrganic)
	wantA := 79.99 + simulator.ComputeIncrement(organic, 79.99, 30, tickNow, simulator.JitterFactor(0.1))
	if wantA <= models.HighThreshold {
		t.Fatalf("fixture does not cross into HIGH: %v", wantA)
	}

	sink := &captureSink{}
	jobs := &captureQueue{}
	orch := NewTickOrchestrator(repo, newEngine(0.1), metrics.Nop{}, applogger.Nop(),
		TickConfig{IntervalSeconds: 30, Workers: 2},
		WithEventSink(sink), WithJobQueue(jobs))

	sum, err := orch.RunTick(ctx, TriggerManual)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if !sum.Success || sum.Tick != 1 || sum.Trigger != TriggerManual {
		t.Fatalf("unexpected summary header %+v", sum)
	}
	if sum.BinsUpdated != 2 || len(sum.Updates) != 3 || len(sum.Failed) != 0 {
		t.Fatalf("updated=%d updates=%d failed=%v", sum.BinsUpdated, len(sum.Updates), sum.Failed)
	}
	if sum.Stats.TotalBins != 3 || sum.Stats.HighPriority != 2 || sum.Stats.LowPriority != 1 {
		t.Fatalf("stats should reflect post-tick levels: %+v", sum.Stats)
	}

	a, _ := repo.Get(ctx, "a")
	if a.CurrentLevel != wantA || a.Status != models.StatusHigh {
		t.Fatalf("bin a: %+v", a)
	}
	b, _ := repo.Get(ctx, "b")
	if b.CurrentLevel != 0 || b.Status != models.StatusLow || !b.LastEmptied.Equal(tickNow) {
		t.Fatalf("bin b should be emptied: %+v", b)
	}
	c, _ := repo.Get(ctx, "c")
	if c.CurrentLevel != 100 {
		t.Fatalf("full bin changed: %+v", c)
	}

	kinds := map[string]models.EventKind{}
	for _, ev := range sink.events {
		kinds[ev.BinID] = ev.Kind
		if ev.Tick != 1 || ev.EventID == "" {
			t.Fatalf("bad event %+v", ev)
		}
	}
	if len(sink.events) != 2 || kinds["BIN-O001"] != models.EventFilled || kinds["BIN-PA001"] != models.EventEmptied {
		t.Fatalf("unexpected events %+v", sink.events)
	}

	if len(jobs.jobs) != 1 || jobs.jobs[0].msgType != JobCollectionDue {
		t.Fatalf("expected one collection job, got %+v", jobs.jobs)
	}
	due := jobs.jobs[0].payload.(CollectionDue)
	if due.BinRef != "a" || due.BinID != "BIN-O001" {
		t.Fatalf("unexpected job payload %+v", due)
	}

	sum, err = orch.RunTick(ctx, TriggerScheduler)
	if err != nil || sum.Tick != 2 || orch.Ticks() != 2 {
		t.Fatalf("second tick: %+v %v", sum, err)
	}
}

func TestRunTickReportsPersistFailures(t *testing.T) {
	ctx := context.Background()
	mem := repository.NewMemoryBinRepository()
	addBin(t, mem, "a", "BIN-M001", models.CategoryMetal, 20, time.Hour)
	addBin(t, mem, "b", "BIN-M002", models.CategoryMetal, 30, time.Hour)

	repo := &flakyBins{MemoryBinRepository: mem, failID: "b", err: errors.New("connection reset")}
	orch := NewTickOrchestrator(repo, newEngine(0.5), metrics.Nop{}, applogger.Nop(), TickConfig{IntervalSeconds: 3600})

	sum, err := orch.RunTick(ctx, TriggerManual)
	if err != nil {
		t.Fatalf("tick should succeed despite one bad bin: %v", err)
	}
	if len(sum.Failed) != 1 || sum.Failed[0].BinID != "BIN-M002" {
		t.Fatalf("unexpected failures %+v", sum.Failed)
	}
	if repo.calls != persistAttempts {
		t.Fatalf("expected %d attempts, got %d", persistAttempts, repo.calls)
	}
	if sum.BinsUpdated != 1 || sum.Stats.TotalBins != 2 {
		t.Fatalf("unexpected summary %+v", sum)
	}

	repo.calls = 0
	repo.err = drepo.ErrNotFound
	if _, err := orch.RunTick(ctx, TriggerManual); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if repo.calls != 1 {
		t.Fatalf("vanished bin should not be retried, got %d attempts", repo.calls)
	}
}

func TestRunTickHonoursLock(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache()
	defer c.Close()
	repo := repository.NewMemoryBinRepository()
	addBin(t, repo, "a", "BIN-E001", models.CategoryEWaste, 10, time.Hour)

	orch := NewTickOrchestrator(repo, newEngine(0.5), metrics.Nop{}, applogger.Nop(),
		TickConfig{SnapshotTTL: time.Minute}, WithSnapshotCache(c))

	ok, err := c.TryLock(ctx, tickLockKey, time.Minute)
	if err != nil || !ok {
		t.Fatalf("lock: %v %v", ok, err)
	}
	if _, err := orch.RunTick(ctx, TriggerManual); !errors.Is(err, ErrTickInProgress) {
		t.Fatalf("expected ErrTickInProgress, got %v", err)
	}
	if err := c.Unlock(ctx, tickLockKey); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if _, err := orch.RunTick(ctx, TriggerManual); err != nil {
		t.Fatalf("tick after unlock: %v", err)
	}
	// lock is released after the tick
	if _, err := orch.RunTick(ctx, TriggerManual); err != nil {
		t.Fatalf("third tick: %v", err)
	}
}

func TestSnapshotCacheInvalidatedByTick(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache()
	defer c.Close()
	repo := repository.NewMemoryBinRepository()
	addBin(t, repo, "a", "BIN-P001", models.CategoryPlastic, 45, time.Hour)

	orch := NewTickOrchestrator(repo, newEngine(0.5), metrics.Nop{}, applogger.Nop(),
		TickConfig{IntervalSeconds: 3600, SnapshotTTL: time.Minute}, WithSnapshotCache(c))

	snap, err := orch.Snapshot(ctx)
	if err != nil || len(snap.Bins) != 1 || snap.Bins[0].CurrentLevel != 45 {
		t.Fatalf("snapshot: %+v %v", snap, err)
	}

	// direct write bypasses invalidation
	if _, err := repo.UpdateLevel(ctx, "a", models.LevelChange{Level: 60, Status: models.StatusMedium}); err != nil {
		t.Fatalf("update: %v", err)
	}
	snap, _ = orch.Snapshot(ctx)
	if snap.Bins[0].CurrentLevel != 45 {
		t.Fatalf("expected cached level 45, got %v", snap.Bins[0].CurrentLevel)
	}

	if _, err := orch.RunTick(ctx, TriggerManual); err != nil {
		t.Fatalf("tick: %v", err)
	}
	snap, _ = orch.Snapshot(ctx)
	if snap.Bins[0].CurrentLevel <= 60 {
		t.Fatalf("snapshot should be fresh after a tick, got %v", snap.Bins[0].CurrentLevel)
	}
}

func TestRunTickEmptyFleet(t *testing.T) {
	orch := NewTickOrchestrator(repository.NewMemoryBinRepository(), newEngine(0.5), metrics.Nop{}, nil, TickConfig{Workers: 4})
	sum, err := orch.RunTick(context.Background(), TriggerManual)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if sum.Stats.TotalBins != 0 || sum.Stats.AverageFillLevel != 0 || len(sum.Updates) != 0 {
		t.Fatalf("unexpected summary %+v", sum)
	}
}

func TestRunTickLogsEveryBinUpdate(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryBinRepository()
	addBin(t, repo, "a", "BIN-O001", models.CategoryOrganic, 40, time.Hour)
	addBin(t, repo, "b", "BIN-PA001", models.CategoryPaper, 96, time.Hour)

	var buf bytes.Buffer
	lgr := applogger.NewWriter(&buf, zerolog.DebugLevel)
	orch := NewTickOrchestrator(repo, newEngine(0.1), metrics.Nop{}, lgr, TickConfig{IntervalSeconds: 30, Workers: 1})
	if _, err := orch.RunTick(ctx, TriggerManual); err != nil {
		t.Fatalf("tick: %v", err)
	}

	type entry struct {
		Event    string  `json:"event"`
		Bin      string  `json:"bin"`
		Category string  `json:"category"`
		OldLevel float64 `json:"old_level"`
		NewLevel float64 `json:"new_level"`
		Level    string  `json:"level"`
	}
	got := map[string]entry{}
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var e entry
		if err := json.Unmarshal(line, &e); err != nil {
			t.Fatalf("bad log line %q: %v", line, err)
		}
		if e.Event != "" {
			got[e.Bin] = e
		}
	}

	emptied, ok := got["BIN-PA001"]
	if !ok || emptied.Event != "EMPTIED" || emptied.Level != "info" || emptied.OldLevel != 96 || emptied.NewLevel != 0 || emptied.Category != "PAPER" {
		t.Fatalf("missing or wrong EMPTIED entry: %+v", emptied)
	}
	filled, ok := got["BIN-O001"]
	if !ok || filled.Event != "FILL" || filled.OldLevel != 40 || filled.NewLevel <= 40 {
		t.Fatalf("missing or wrong FILL entry: %+v", filled)
	}
}
