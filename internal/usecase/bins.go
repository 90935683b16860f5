package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"BinPulse/internal/domain/models"
	drepo "BinPulse/internal/domain/repository"
	xhttp "BinPulse/pkg/http"
	applogger "BinPulse/pkg/logger"

	"github.com/google/uuid"
)

const recentRequestsPerBin = 5

// BinsUseCase implements bin CRUD and the IoT level update.
type BinsUseCase struct {
	bins     drepo.BinRepository
	requests drepo.RequestRepository
	metrics  drepo.Metrics
	log      *applogger.Logger
	now      func() time.Time
}

func NewBinsUseCase(bins drepo.BinRepository, requests drepo.RequestRepository, metrics drepo.Metrics, log *applogger.Logger) *BinsUseCase {
	if log == nil {
		log = applogger.Nop()
	}
	return &BinsUseCase{bins: bins, requests: requests, metrics: metrics, log: log, now: func() time.Time { return time.Now().UTC() }}
}

func (u *BinsUseCase) List(ctx context.Context, req *models.ListBinsRequest) ([]*models.Bin, error) {
	filter := models.BinFilter{
		Category: models.Category(strings.ToUpper(req.Category)),
		Status:   models.BinStatus(strings.ToUpper(req.Status)),
		Search:   strings.TrimSpace(req.Search),
	}
	bins, err := u.bins.List(ctx, filter)
	if err != nil {
		return nil, xhttp.InternalError("failed to list bins").WithError(err)
	}
	return bins, nil
}

func (u *BinsUseCase) load(ctx context.Context, id string) (*models.Bin, error) {
	b, err := u.bins.Get(ctx, id)
	if errors.Is(err, drepo.ErrNotFound) {
		return nil, xhttp.NotFoundError("Bin not found").WithParam("id", id)
	}
	if err != nil {
		return nil, xhttp.InternalError("failed to load bin").WithError(err)
	}
	return b, nil
}

// Get returns the bin and its latest requests.
func (u *BinsUseCase) Get(ctx context.Context, id string) (*models.BinDetail, error) {
	b, err := u.load(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &models.BinDetail{Bin: b, Requests: []*models.ServiceRequest{}}
	if u.requests == nil {
		return detail, nil
	}
	reqs, err := u.requests.List(ctx, models.RequestFilter{BinRef: b.ID})
	if err != nil {
		u.log.Warn("bin requests unavailable", applogger.String("bin_id", b.BinID), applogger.Error(err))
		return detail, nil
	}
	if len(reqs) > recentRequestsPerBin {
		reqs = reqs[:recentRequestsPerBin]
	}
	detail.Requests = reqs
	return detail, nil
}

func (u *BinsUseCase) Create(ctx context.Context, p models.Principal, req *models.CreateBinRequest) (*models.Bin, error) {
	if !p.IsAdmin() {
		return nil, xhttp.ForbiddenError("Only admins can create bins")
	}
	cat, err := models.ParseCategory(req.Category)
	if err != nil {
		return nil, xhttp.BadRequestError(err.Error())
	}
	code := strings.TrimSpace(req.BinID)
	if _, err := u.bins.GetByCode(ctx, code); err == nil {
		return nil, xhttp.BadRequestError("Bin with this ID already exists").WithParam("binId", code)
	} else if !errors.Is(err, drepo.ErrNotFound) {
		return nil, xhttp.InternalError("failed to check bin id").WithError(err)
	}

	now := u.now()
	capacity := req.Capacity
	if capacity <= 0 {
		capacity = models.DefaultCapacity
	}
	b := &models.Bin{
		ID:           uuid.NewString(),
		BinID:        code,
		Category:     cat,
		Location:     strings.TrimSpace(req.Location),
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		Capacity:     capacity,
		CurrentLevel: 0,
		Status:       models.StatusLow,
		LastEmptied:  now,
		CreatedBy:    p.UserID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := u.bins.Create(ctx, b); err != nil {
		if errors.Is(err, drepo.ErrDuplicate) {
			return nil, xhttp.BadRequestError("Bin with this ID already exists").WithParam("binId", code)
		}
		return nil, xhttp.InternalError("failed to create bin").WithError(err)
	}
	u.metrics.RecordBinLevel(b.BinID, string(b.Category), 0)
	u.log.Info("bin created", applogger.String("bin_id", b.BinID), applogger.String("by", p.UserID))
	return b, nil
}

func canManageBin(p models.Principal, b *models.Bin) bool {
	return p.IsAdmin() || p.Owns(b.CreatedBy)
}

// Update applies present fields. A level without an explicit status derives it.
func (u *BinsUseCase) Update(ctx context.Context, p models.Principal, id string, req *models.UpdateBinRequest) (*models.Bin, error) {
	b, err := u.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManageBin(p, b) {
		return nil, xhttp.ForbiddenError("Forbidden")
	}

	oldCode, oldCat := b.BinID, b.Category
	if req.BinID != nil {
		code := strings.TrimSpace(*req.BinID)
		if code != b.BinID {
			if other, err := u.bins.GetByCode(ctx, code); err == nil && other.ID != b.ID {
				return nil, xhttp.BadRequestError("Bin ID already exists").WithParam("binId", code)
			}
			b.BinID = code
		}
	}
	if req.Category != nil {
		cat, err := models.ParseCategory(*req.Category)
		if err != nil {
			return nil, xhttp.BadRequestError(err.Error())
		}
		b.Category = cat
	}
	if req.Location != nil {
		b.Location = strings.TrimSpace(*req.Location)
	}
	if req.Latitude != nil {
		b.Latitude = req.Latitude
	}
	if req.Longitude != nil {
		b.Longitude = req.Longitude
	}
	if req.Capacity != nil {
		b.Capacity = *req.Capacity
	}
	if req.CurrentLevel != nil {
		b.CurrentLevel = *req.CurrentLevel
		if req.Status == nil {
			b.Status = models.StatusForLevel(b.CurrentLevel)
		}
	}
	if req.Status != nil {
		b.Status = models.BinStatus(strings.ToUpper(*req.Status))
	}
	b.UpdatedAt = u.now()

	if err := u.bins.Update(ctx, b); err != nil {
		switch {
		case errors.Is(err, drepo.ErrDuplicate):
			return nil, xhttp.BadRequestError("Bin ID already exists").WithParam("binId", b.BinID)
		case errors.Is(err, drepo.ErrNotFound):
			return nil, xhttp.NotFoundError("Bin not found").WithParam("id", id)
		}
		return nil, xhttp.InternalError("failed to update bin").WithError(err)
	}
	if oldCode != b.BinID || oldCat != b.Category {
		u.metrics.ForgetBin(oldCode, string(oldCat))
	}
	u.metrics.RecordBinLevel(b.BinID, string(b.Category), b.CurrentLevel)
	return b, nil
}

func (u *BinsUseCase) Delete(ctx context.Context, p models.Principal, id string) error {
	b, err := u.load(ctx, id)
	if err != nil {
		return err
	}
	if !canManageBin(p, b) {
		return xhttp.ForbiddenError("Forbidden")
	}
	if err := u.bins.Delete(ctx, id); err != nil {
		if errors.Is(err, drepo.ErrNotFound) {
			return xhttp.NotFoundError("Bin not found").WithParam("id", id)
		}
		return xhttp.InternalError("failed to delete bin").WithError(err)
	}
	u.metrics.ForgetBin(b.BinID, string(b.Category))
	u.log.Info("bin deleted", applogger.String("bin_id", b.BinID), applogger.String("by", p.UserID))
	return nil
}

// SetLevel is the device-facing level report; status always follows the level.
func (u *BinsUseCase) SetLevel(ctx context.Context, id string, level float64) (*models.Bin, error) {
	if level < 0 || level > 100 {
		return nil, xhttp.BadRequestErrorf("level %.2f outside 0-100", level)
	}
	b, err := u.bins.UpdateLevel(ctx, id, models.LevelChange{Level: level, Status: models.StatusForLevel(level)})
	if errors.Is(err, drepo.ErrNotFound) {
		return nil, xhttp.NotFoundError("Bin not found").WithParam("id", id)
	}
	if err != nil {
		return nil, xhttp.InternalError("failed to update level").WithError(err)
	}
	u.metrics.RecordBinLevel(b.BinID, string(b.Category), b.CurrentLevel)
	return b, nil
}
