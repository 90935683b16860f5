package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"BinPulse/internal/domain/models"
	"BinPulse/internal/domain/repository"
)

// MemoryBinRepository keeps bins in process memory. Values are copied on the
// way in and out so callers never share state with the store.
type MemoryBinRepository struct {
	mu     sync.RWMutex
	bins   map[string]*models.Bin
	byCode map[string]string
}

func NewMemoryBinRepository() *MemoryBinRepository {
	return &MemoryBinRepository{
		bins:   make(map[string]*models.Bin),
		byCode: make(map[string]string),
	}
}

func (r *MemoryBinRepository) List(ctx context.Context, filter models.BinFilter) ([]*models.Bin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Bin, 0, len(r.bins))
	for _, b := range r.bins {
		if filter.Matches(b) {
			cp := *b
			out = append(out, &cp)
		}
	}
	SortByLevel(out)
	return out, nil
}

func (r *MemoryBinRepository) Get(ctx context.Context, id string) (*models.Bin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bins[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *MemoryBinRepository) GetByCode(ctx context.Context, binID string) (*models.Bin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byCode[binID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *r.bins[id]
	return &cp, nil
}

func (r *MemoryBinRepository) Create(ctx context.Context, b *models.Bin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bins[b.ID]; ok {
		return repository.ErrDuplicate
	}
	if _, ok := r.byCode[b.BinID]; ok {
		return repository.ErrDuplicate
	}
	cp := *b
	r.bins[b.ID] = &cp
	r.byCode[b.BinID] = b.ID
	return nil
}

func (r *MemoryBinRepository) Update(ctx context.Context, b *models.Bin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.bins[b.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if cur.BinID != b.BinID {
		if _, taken := r.byCode[b.BinID]; taken {
			return repository.ErrDuplicate
		}
		delete(r.byCode, cur.BinID)
		r.byCode[b.BinID] = b.ID
	}
	cp := *b
	r.bins[b.ID] = &cp
	return nil
}

func (r *MemoryBinRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bins[id]
	if !ok {
		return repository.ErrNotFound
	}
	delete(r.byCode, b.BinID)
	delete(r.bins, id)
	return nil
}

func (r *MemoryBinRepository) UpdateLevel(ctx context.Context, id string, change models.LevelChange) (*models.Bin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bins[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	applyLevelChange(b, change)
	cp := *b
	return &cp, nil
}

func (r *MemoryBinRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bins), nil
}

func applyLevelChange(b *models.Bin, change models.LevelChange) {
	b.CurrentLevel = change.Level
	b.Status = change.Status
	if change.LastEmptied != nil {
		b.LastEmptied = *change.LastEmptied
	}
	b.UpdatedAt = time.Now().UTC()
}

// SortByLevel orders bins fullest first, breaking ties by code.
func SortByLevel(bins []*models.Bin) {
	sort.SliceStable(bins, func(i, j int) bool {
		if bins[i].CurrentLevel != bins[j].CurrentLevel {
			return bins[i].CurrentLevel > bins[j].CurrentLevel
		}
		return bins[i].BinID < bins[j].BinID
	})
}
