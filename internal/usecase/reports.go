package usecase

import (
	"context"
	"time"

	"BinPulse/internal/domain/models"
	drepo "BinPulse/internal/domain/repository"
	xhttp "BinPulse/pkg/http"
	applogger "BinPulse/pkg/logger"
	"BinPulse/pkg/util"
)

// ReportsUseCase builds the dashboard report. Current-state figures come from
// the bin store; peak hours and collections need a history store.
type ReportsUseCase struct {
	bins     drepo.BinRepository
	requests drepo.RequestRepository
	history  drepo.HistoryStore
	log      *applogger.Logger
	now      func() time.Time
}

func NewReportsUseCase(bins drepo.BinRepository, requests drepo.RequestRepository, history drepo.HistoryStore, log *applogger.Logger) *ReportsUseCase {
	if log == nil {
		log = applogger.Nop()
	}
	return &ReportsUseCase{bins: bins, requests: requests, history: history, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// Range resolves the report window: explicit from/to win over days.
func (u *ReportsUseCase) Range(req *models.ReportRequest) (time.Time, time.Time, error) {
	now := u.now()
	to := util.ParseTimeDefault(req.To, now)
	days := req.Days
	if days <= 0 {
		days = 7
	}
	from := util.ParseTimeDefault(req.From, to.AddDate(0, 0, -days))
	if !from.Before(to) {
		return time.Time{}, time.Time{}, xhttp.BadRequestError("from must be before to")
	}
	from, to = util.AlignRange(from, to, "hour")
	return from, to, nil
}

func (u *ReportsUseCase) Summary(ctx context.Context, from, to time.Time) (*models.ReportSummary, error) {
	bins, err := u.bins.List(ctx, models.BinFilter{})
	if err != nil {
		return nil, xhttp.InternalError("failed to list bins").WithError(err)
	}

	stats := models.ComputeStats(bins)
	out := &models.ReportSummary{
		From:             from,
		To:               to,
		TotalBins:        stats.TotalBins,
		AverageFill:      util.Round2(stats.AverageFillLevel),
		Categories:       categoryStats(bins),
		PeakHours:        []models.HourStat{},
		Collections:      []models.DailyCollection{},
		RequestsByStatus: map[models.RequestStatus]int{},
	}
	for _, b := range bins {
		if b.CurrentLevel > models.HighThreshold {
			out.CriticalBins++
		}
	}

	if u.requests != nil {
		reqs, err := u.requests.List(ctx, models.RequestFilter{})
		if err != nil {
			return nil, xhttp.InternalError("failed to list requests").WithError(err)
		}
		for _, r := range reqs {
			out.RequestsByStatus[r.Status]++
		}
	}

	if u.history == nil {
		return out, nil
	}
	hours, err := u.history.PeakHours(ctx, from, to)
	if err != nil {
		u.log.Warn("peak hours unavailable", applogger.Error(err))
		return out, nil
	}
	cols, err := u.history.Collections(ctx, from, to)
	if err != nil {
		u.log.Warn("collections unavailable", applogger.Error(err))
		return out, nil
	}
	for i := range hours {
		hours[i].Filled = util.Round2(hours[i].Filled)
	}
	for i := range cols {
		cols[i].Volume = util.Round2(cols[i].Volume)
	}
	out.PeakHours = hours
	out.Collections = cols
	out.HistoryAvailable = true
	return out, nil
}

// categoryStats lists every category, including empty ones, in display order.
func categoryStats(bins []*models.Bin) []models.CategoryStat {
	idx := make(map[models.Category]int)
	out := make([]models.CategoryStat, 0, len(models.Categories()))
	for i, c := range models.Categories() {
		idx[c] = i
		out = append(out, models.CategoryStat{Category: c})
	}
	sums := make([]float64, len(out))
	for _, b := range bins {
		i, ok := idx[b.Category]
		if !ok {
			continue
		}
		out[i].Bins++
		sums[i] += b.CurrentLevel
		if b.CurrentLevel > models.HighThreshold {
			out[i].Critical++
		}
	}
	for i := range out {
		if out[i].Bins > 0 {
			out[i].AverageFill = util.Round2(sums[i] / float64(out[i].Bins))
		}
	}
	return out
}
