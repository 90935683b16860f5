package usecase

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"BinPulse/internal/domain/models"
	"BinPulse/internal/repository"
	applogger "BinPulse/pkg/logger"
)

type fakeHistory struct {
	hours   []models.HourStat
	cols    []models.DailyCollection
	failErr error
}

func (f *fakeHistory) Init(context.Context) error { return nil }
func (f *fakeHistory) StoreEvents(context.Context, []models.SimulationEvent) error {
	return nil
}
func (f *fakeHistory) PeakHours(context.Context, time.Time, time.Time) ([]models.HourStat, error) {
	return f.hours, f.failErr
}
func (f *fakeHistory) Collections(context.Context, time.Time, time.Time) ([]models.DailyCollection, error) {
	return f.cols, f.failErr
}
func (f *fakeHistory) Health(context.Context) error { return f.failErr }
func (f *fakeHistory) Close() error                 { return nil }

func TestReportRange(t *testing.T) {
	u := NewReportsUseCase(nil, nil, nil, applogger.Nop())
	u.now = func() time.Time { return time.Date(2024, 3, 13, 12, 34, 0, 0, time.UTC) }

	from, to, err := u.Range(&models.ReportRequest{Days: 2})
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if to.Sub(from) < 48*time.Hour || from.Minute() != 0 {
		t.Fatalf("unexpected window %v - %v", from, to)
	}

	_, _, err = u.Range(&models.ReportRequest{From: "2024-03-10T00:00:00Z", To: "2024-03-09T00:00:00Z"})
	if statusOf(t, err) != http.StatusBadRequest {
		t.Fatalf("inverted range should be rejected")
	}
}

func TestReportSummary(t *testing.T) {
	ctx := context.Background()
	bins := repository.NewMemoryBinRepository()
	addBin(t, bins, "a", "BIN-P001", models.CategoryPlastic, 90, time.Hour)
	addBin(t, bins, "b", "BIN-P002", models.CategoryPlastic, 30, time.Hour)
	addBin(t, bins, "c", "BIN-G001", models.CategoryGlass, 10.333, time.Hour)

	reqs := repository.NewMemoryRequestRepository()
	for i, st := range []models.RequestStatus{models.RequestPending, models.RequestPending, models.RequestCompleted} {
		r := &models.ServiceRequest{ID: string(rune('x' + i)), Type: models.RequestMaintenance, Status: st, UserID: "alice"}
		if err := reqs.Create(ctx, r); err != nil {
			t.Fatalf("create request: %v", err)
		}
	}

	hist := &fakeHistory{
		hours: []models.HourStat{{Hour: 12, Filled: 3.14159}},
		cols:  []models.DailyCollection{{Day: "2024-03-12", Count: 2, Volume: 181.005}},
	}
	u := NewReportsUseCase(bins, reqs, hist, applogger.Nop())
	sum, err := u.Summary(ctx, tickNow.Add(-24*time.Hour), tickNow)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.TotalBins != 3 || sum.CriticalBins != 1 || sum.AverageFill != 43.44 {
		t.Fatalf("unexpected totals %+v", sum)
	}
	if len(sum.Categories) != len(models.Categories()) {
		t.Fatalf("every category should be listed")
	}
	for _, c := range sum.Categories {
		if c.Category == models.CategoryPlastic && (c.Bins != 2 || c.AverageFill != 60 || c.Critical != 1) {
			t.Fatalf("plastic stats %+v", c)
		}
		if c.Category == models.CategoryMetal && c.Bins != 0 {
			t.Fatalf("metal stats %+v", c)
		}
	}
	if sum.RequestsByStatus[models.RequestPending] != 2 || sum.RequestsByStatus[models.RequestCompleted] != 1 {
		t.Fatalf("requests by status %+v", sum.RequestsByStatus)
	}
	if !sum.HistoryAvailable || sum.PeakHours[0].Filled != 3.14 {
		t.Fatalf("history not merged: %+v", sum.PeakHours)
	}

	hist.failErr = errors.New("clickhouse down")
	sum, err = u.Summary(ctx, tickNow.Add(-24*time.Hour), tickNow)
	if err != nil || sum.HistoryAvailable || len(sum.PeakHours) != 0 {
		t.Fatalf("history failure should degrade: %+v %v", sum, err)
	}
}
