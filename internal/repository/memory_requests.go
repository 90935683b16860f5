package repository

import (
	"context"
	"sort"
	"sync"

	"BinPulse/internal/domain/models"
	"BinPulse/internal/domain/repository"
)

// MemoryRequestRepository keeps service requests in process memory.
type MemoryRequestRepository struct {
	mu   sync.RWMutex
	reqs map[string]*models.ServiceRequest
}

func NewMemoryRequestRepository() *MemoryRequestRepository {
	return &MemoryRequestRepository{reqs: make(map[string]*models.ServiceRequest)}
}

func (r *MemoryRequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]*models.ServiceRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.ServiceRequest, 0, len(r.reqs))
	for _, req := range r.reqs {
		if filter.Matches(req) {
			out = append(out, copyRequest(req))
		}
	}
	SortNewestFirst(out)
	return out, nil
}

func (r *MemoryRequestRepository) Get(ctx context.Context, id string) (*models.ServiceRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	req, ok := r.reqs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyRequest(req), nil
}

func (r *MemoryRequestRepository) Create(ctx context.Context, req *models.ServiceRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reqs[req.ID]; ok {
		return repository.ErrDuplicate
	}
	r.reqs[req.ID] = copyRequest(req)
	return nil
}

func (r *MemoryRequestRepository) Update(ctx context.Context, req *models.ServiceRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reqs[req.ID]; !ok {
		return repository.ErrNotFound
	}
	r.reqs[req.ID] = copyRequest(req)
	return nil
}

func (r *MemoryRequestRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reqs[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.reqs, id)
	return nil
}

func (r *MemoryRequestRepository) HasOpenForBin(ctx context.Context, binRef string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, req := range r.reqs {
		if req.BinRef == binRef && req.Status.Open() {
			return true, nil
		}
	}
	return false, nil
}

// bin summaries are resolved on read, never stored
func copyRequest(req *models.ServiceRequest) *models.ServiceRequest {
	cp := *req
	cp.Bin = nil
	return &cp
}

// SortNewestFirst orders requests by creation time, newest first.
func SortNewestFirst(reqs []*models.ServiceRequest) {
	sort.SliceStable(reqs, func(i, j int) bool {
		if !reqs[i].CreatedAt.Equal(reqs[j].CreatedAt) {
			return reqs[i].CreatedAt.After(reqs[j].CreatedAt)
		}
		return reqs[i].ID > reqs[j].ID
	})
}
