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

const minDescriptionLen = 10

// RequestsUseCase manages service requests. Non-admins only ever see and
// touch their own requests.
type RequestsUseCase struct {
	requests drepo.RequestRepository
	bins     drepo.BinRepository
	log      *applogger.Logger
	now      func() time.Time
}

func NewRequestsUseCase(requests drepo.RequestRepository, bins drepo.BinRepository, log *applogger.Logger) *RequestsUseCase {
	if log == nil {
		log = applogger.Nop()
	}
	return &RequestsUseCase{requests: requests, bins: bins, log: log, now: func() time.Time { return time.Now().UTC() }}
}

func (u *RequestsUseCase) List(ctx context.Context, p models.Principal, req *models.ListRequestsRequest) ([]*models.ServiceRequest, error) {
	filter := models.RequestFilter{
		Status:   models.RequestStatus(req.Status),
		Type:     models.RequestType(req.Type),
		Priority: models.Priority(req.Priority),
	}
	if !p.IsAdmin() {
		filter.UserID = p.UserID
	}
	list, err := u.requests.List(ctx, filter)
	if err != nil {
		return nil, xhttp.InternalError("failed to list requests").WithError(err)
	}
	u.attachBins(ctx, list...)
	return list, nil
}

func (u *RequestsUseCase) load(ctx context.Context, id string) (*models.ServiceRequest, error) {
	r, err := u.requests.Get(ctx, id)
	if errors.Is(err, drepo.ErrNotFound) {
		return nil, xhttp.NotFoundError("Request not found").WithParam("id", id)
	}
	if err != nil {
		return nil, xhttp.InternalError("failed to load request").WithError(err)
	}
	return r, nil
}

func canAccessRequest(p models.Principal, r *models.ServiceRequest) bool {
	return p.IsAdmin() || p.Owns(r.UserID)
}

func (u *RequestsUseCase) Get(ctx context.Context, p models.Principal, id string) (*models.ServiceRequest, error) {
	r, err := u.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canAccessRequest(p, r) {
		return nil, xhttp.ForbiddenError("Forbidden")
	}
	u.attachBins(ctx, r)
	return r, nil
}

// checkBin verifies a referenced bin exists.
func (u *RequestsUseCase) checkBin(ctx context.Context, ref string) error {
	if ref == "" {
		return nil
	}
	_, err := u.bins.Get(ctx, ref)
	if errors.Is(err, drepo.ErrNotFound) {
		return xhttp.NotFoundError("Bin not found").WithParam("binId", ref)
	}
	if err != nil {
		return xhttp.InternalError("failed to load bin").WithError(err)
	}
	return nil
}

func checkDescription(d string) error {
	if len([]rune(strings.TrimSpace(d))) < minDescriptionLen {
		return xhttp.NewAppError("ERR_MIN", "description", "Description must be at least 10 characters", 400).
			WithParam("min", minDescriptionLen)
	}
	return nil
}

func (u *RequestsUseCase) Create(ctx context.Context, p models.Principal, req *models.CreateServiceRequest) (*models.ServiceRequest, error) {
	if p.UserID == "" {
		return nil, xhttp.UnauthorizedError("Unauthorized")
	}
	if err := checkDescription(req.Description); err != nil {
		return nil, err
	}
	ref := strings.TrimSpace(req.BinRef)
	if err := u.checkBin(ctx, ref); err != nil {
		return nil, err
	}

	now := u.now()
	priority := models.Priority(req.Priority)
	if priority == "" {
		priority = models.PriorityNormal
	}
	r := &models.ServiceRequest{
		ID:          uuid.NewString(),
		Type:        models.RequestType(req.Type),
		Description: strings.TrimSpace(req.Description),
		Priority:    priority,
		Status:      models.RequestPending,
		BinRef:      ref,
		UserID:      p.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := u.requests.Create(ctx, r); err != nil {
		return nil, xhttp.InternalError("failed to create request").WithError(err)
	}
	u.attachBins(ctx, r)
	u.log.Info("service request created",
		applogger.String("id", r.ID),
		applogger.String("type", string(r.Type)),
		applogger.String("user_id", p.UserID),
	)
	return r, nil
}

// Update edits the details of a request. Status changes go through UpdateStatus.
func (u *RequestsUseCase) Update(ctx context.Context, p models.Principal, id string, req *models.UpdateServiceRequest) (*models.ServiceRequest, error) {
	r, err := u.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canAccessRequest(p, r) {
		return nil, xhttp.ForbiddenError("Forbidden")
	}

	if req.Type != nil {
		r.Type = models.RequestType(*req.Type)
	}
	if req.Description != nil {
		if err := checkDescription(*req.Description); err != nil {
			return nil, err
		}
		r.Description = strings.TrimSpace(*req.Description)
	}
	if req.Priority != nil {
		r.Priority = models.Priority(*req.Priority)
	}
	switch {
	case req.ClearBin:
		r.BinRef = ""
	case req.BinRef != nil:
		ref := strings.TrimSpace(*req.BinRef)
		if err := u.checkBin(ctx, ref); err != nil {
			return nil, err
		}
		r.BinRef = ref
	}
	r.UpdatedAt = u.now()

	if err := u.requests.Update(ctx, r); err != nil {
		if errors.Is(err, drepo.ErrNotFound) {
			return nil, xhttp.NotFoundError("Request not found").WithParam("id", id)
		}
		return nil, xhttp.InternalError("failed to update request").WithError(err)
	}
	u.attachBins(ctx, r)
	return r, nil
}

func (u *RequestsUseCase) UpdateStatus(ctx context.Context, p models.Principal, id string, req *models.UpdateRequestStatusRequest) (*models.ServiceRequest, error) {
	if !p.IsAdmin() {
		return nil, xhttp.ForbiddenError("Only admins can change request status")
	}
	r, err := u.load(ctx, id)
	if err != nil {
		return nil, err
	}
	prev := r.Status
	r.Status = models.RequestStatus(req.Status)
	if req.AdminNotes != nil {
		r.AdminNotes = *req.AdminNotes
	}
	r.UpdatedAt = u.now()
	if err := u.requests.Update(ctx, r); err != nil {
		if errors.Is(err, drepo.ErrNotFound) {
			return nil, xhttp.NotFoundError("Request not found").WithParam("id", id)
		}
		return nil, xhttp.InternalError("failed to update request").WithError(err)
	}
	u.log.Info("service request status changed",
		applogger.String("id", r.ID),
		applogger.String("from", string(prev)),
		applogger.String("to", string(r.Status)),
		applogger.String("by", p.UserID),
	)
	u.attachBins(ctx, r)
	return r, nil
}

func (u *RequestsUseCase) Delete(ctx context.Context, p models.Principal, id string) error {
	r, err := u.load(ctx, id)
	if err != nil {
		return err
	}
	if !canAccessRequest(p, r) {
		return xhttp.ForbiddenError("Forbidden")
	}
	if err := u.requests.Delete(ctx, id); err != nil {
		if errors.Is(err, drepo.ErrNotFound) {
			return xhttp.NotFoundError("Request not found").WithParam("id", id)
		}
		return xhttp.InternalError("failed to delete request").WithError(err)
	}
	return nil
}

// attachBins resolves bin summaries. Deleted bins are left out.
func (u *RequestsUseCase) attachBins(ctx context.Context, reqs ...*models.ServiceRequest) {
	cache := make(map[string]*models.BinSummary)
	for _, r := range reqs {
		if r.BinRef == "" {
			continue
		}
		s, ok := cache[r.BinRef]
		if !ok {
			if b, err := u.bins.Get(ctx, r.BinRef); err == nil {
				s = b.Summary()
			}
			cache[r.BinRef] = s
		}
		r.Bin = s
	}
}

// OpenForBin reports whether the bin already has a pending or in-progress request.
func (u *RequestsUseCase) OpenForBin(ctx context.Context, binRef string) (bool, error) {
	return u.requests.HasOpenForBin(ctx, binRef)
}

// CreateSystem files a request on behalf of the simulator.
func (u *RequestsUseCase) CreateSystem(ctx context.Context, r *models.ServiceRequest) error {
	now := u.now()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.UserID = models.SystemPrincipal.UserID
	r.Status = models.RequestPending
	r.CreatedAt, r.UpdatedAt = now, now
	return u.requests.Create(ctx, r)
}
