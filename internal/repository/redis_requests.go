package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"BinPulse/internal/domain/models"
	"BinPulse/internal/domain/repository"

	"github.com/redis/go-redis/v9"
)

// RedisRequestRepository stores service requests as JSON in one hash.
type RedisRequestRepository struct {
	client  *redis.Client
	dataKey string
}

func NewRedisRequestRepository(client *redis.Client, prefix string) *RedisRequestRepository {
	if prefix == "" {
		prefix = "binpulse"
	}
	return &RedisRequestRepository{client: client, dataKey: prefix + ":requests"}
}

func (r *RedisRequestRepository) all(ctx context.Context) ([]*models.ServiceRequest, error) {
	raw, err := r.client.HGetAll(ctx, r.dataKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	out := make([]*models.ServiceRequest, 0, len(raw))
	for id, v := range raw {
		var req models.ServiceRequest
		if err := json.Unmarshal([]byte(v), &req); err != nil {
			return nil, fmt.Errorf("decode request %s: %w", id, err)
		}
		out = append(out, &req)
	}
	return out, nil
}

func (r *RedisRequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]*models.ServiceRequest, error) {
	all, err := r.all(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, req := range all {
		if filter.Matches(req) {
			out = append(out, req)
		}
	}
	SortNewestFirst(out)
	return out, nil
}

func (r *RedisRequestRepository) Get(ctx context.Context, id string) (*models.ServiceRequest, error) {
	v, err := r.client.HGet(ctx, r.dataKey, id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	var req models.ServiceRequest
	if err := json.Unmarshal(v, &req); err != nil {
		return nil, fmt.Errorf("decode request %s: %w", id, err)
	}
	return &req, nil
}

func encodeRequest(req *models.ServiceRequest) ([]byte, error) {
	cp := *req
	cp.Bin = nil
	return json.Marshal(&cp)
}

func (r *RedisRequestRepository) Create(ctx context.Context, req *models.ServiceRequest) error {
	data, err := encodeRequest(req)
	if err != nil {
		return err
	}
	ok, err := r.client.HSetNX(ctx, r.dataKey, req.ID, data).Result()
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if !ok {
		return repository.ErrDuplicate
	}
	return nil
}

func (r *RedisRequestRepository) Update(ctx context.Context, req *models.ServiceRequest) error {
	data, err := encodeRequest(req)
	if err != nil {
		return err
	}
	exists, err := r.client.HExists(ctx, r.dataKey, req.ID).Result()
	if err != nil {
		return fmt.Errorf("update request: %w", err)
	}
	if !exists {
		return repository.ErrNotFound
	}
	return r.client.HSet(ctx, r.dataKey, req.ID, data).Err()
}

func (r *RedisRequestRepository) Delete(ctx context.Context, id string) error {
	n, err := r.client.HDel(ctx, r.dataKey, id).Result()
	if err != nil {
		return fmt.Errorf("delete request: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *RedisRequestRepository) HasOpenForBin(ctx context.Context, binRef string) (bool, error) {
	all, err := r.all(ctx)
	if err != nil {
		return false, err
	}
	for _, req := range all {
		if req.BinRef == binRef && req.Status.Open() {
			return true, nil
		}
	}
	return false, nil
}
