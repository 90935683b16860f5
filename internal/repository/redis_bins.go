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

const txRetries = 5

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// RedisBinRepository stores each bin as JSON under its own key. A sorted set
// scored by fill level indexes the fleet and a hash maps bin codes to IDs.
// Level writes WATCH only the bin's own key.
type RedisBinRepository struct {
	client   *redis.Client
	prefix   string
	indexKey string
	codeKey  string
}

func NewRedisBinRepository(client *redis.Client, prefix string) *RedisBinRepository {
	if prefix == "" {
		prefix = "binpulse"
	}
	return &RedisBinRepository{
		client:   client,
		prefix:   prefix,
		indexKey: prefix + ":bins:level",
		codeKey:  prefix + ":bins:code",
	}
}

func (r *RedisBinRepository) binKey(id string) string { return r.prefix + ":bin:" + id }

func (r *RedisBinRepository) List(ctx context.Context, filter models.BinFilter) ([]*models.Bin, error) {
	ids, err := r.client.ZRevRange(ctx, r.indexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list bins: %w", err)
	}
	if len(ids) == 0 {
		return []*models.Bin{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.binKey(id)
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load bins: %w", err)
	}

	out := make([]*models.Bin, 0, len(vals))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			// deleted between the index read and MGET
			continue
		}
		var b models.Bin
		if err := json.Unmarshal([]byte(s), &b); err != nil {
			return nil, fmt.Errorf("decode bin %s: %w", ids[i], err)
		}
		if filter.Matches(&b) {
			out = append(out, &b)
		}
	}
	SortByLevel(out)
	return out, nil
}

func (r *RedisBinRepository) Get(ctx context.Context, id string) (*models.Bin, error) {
	return r.get(ctx, r.client, id)
}

func (r *RedisBinRepository) get(ctx context.Context, c stringGetter, id string) (*models.Bin, error) {
	v, err := c.Get(ctx, r.binKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get bin: %w", err)
	}
	var b models.Bin
	if err := json.Unmarshal(v, &b); err != nil {
		return nil, fmt.Errorf("decode bin %s: %w", id, err)
	}
	return &b, nil
}

func (r *RedisBinRepository) GetByCode(ctx context.Context, binID string) (*models.Bin, error) {
	id, err := r.client.HGet(ctx, r.codeKey, binID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get bin by code: %w", err)
	}
	return r.Get(ctx, id)
}

func (r *RedisBinRepository) Create(ctx context.Context, b *models.Bin) error {
	data, err := json.Marshal(b)
	if err != nil {
		return err
	}
	ok, err := r.client.HSetNX(ctx, r.codeKey, b.BinID, b.ID).Result()
	if err != nil {
		return fmt.Errorf("reserve bin code: %w", err)
	}
	if !ok {
		return repository.ErrDuplicate
	}
	created, err := r.client.SetNX(ctx, r.binKey(b.ID), data, 0).Result()
	if err != nil || !created {
		r.client.HDel(ctx, r.codeKey, b.BinID)
		if err != nil {
			return fmt.Errorf("create bin: %w", err)
		}
		return repository.ErrDuplicate
	}
	if err := r.client.ZAdd(ctx, r.indexKey, redis.Z{Score: b.CurrentLevel, Member: b.ID}).Err(); err != nil {
		return fmt.Errorf("index bin: %w", err)
	}
	return nil
}

func (r *RedisBinRepository) Update(ctx context.Context, b *models.Bin) error {
	data, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return r.withRetry(ctx, func(tx *redis.Tx) error {
		cur, err := r.get(ctx, tx, b.ID)
		if err != nil {
			return err
		}
		if cur.BinID != b.BinID {
			owner, err := tx.HGet(ctx, r.codeKey, b.BinID).Result()
			if err == nil && owner != b.ID {
				return repository.ErrDuplicate
			}
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			if cur.BinID != b.BinID {
				p.HDel(ctx, r.codeKey, cur.BinID)
				p.HSet(ctx, r.codeKey, b.BinID, b.ID)
			}
			p.Set(ctx, r.binKey(b.ID), data, 0)
			p.ZAdd(ctx, r.indexKey, redis.Z{Score: b.CurrentLevel, Member: b.ID})
			return nil
		})
		return err
	}, r.binKey(b.ID), r.codeKey)
}

func (r *RedisBinRepository) Delete(ctx context.Context, id string) error {
	return r.withRetry(ctx, func(tx *redis.Tx) error {
		cur, err := r.get(ctx, tx, id)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Del(ctx, r.binKey(id))
			p.ZRem(ctx, r.indexKey, id)
			p.HDel(ctx, r.codeKey, cur.BinID)
			return nil
		})
		return err
	}, r.binKey(id))
}

func (r *RedisBinRepository) UpdateLevel(ctx context.Context, id string, change models.LevelChange) (*models.Bin, error) {
	var updated *models.Bin
	err := r.withRetry(ctx, func(tx *redis.Tx) error {
		b, err := r.get(ctx, tx, id)
		if err != nil {
			return err
		}
		applyLevelChange(b, change)
		data, err := json.Marshal(b)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, r.binKey(id), data, 0)
			p.ZAdd(ctx, r.indexKey, redis.Z{Score: b.CurrentLevel, Member: id})
			return nil
		})
		if err == nil {
			updated = b
		}
		return err
	}, r.binKey(id))
	return updated, err
}

func (r *RedisBinRepository) Count(ctx context.Context) (int, error) {
	n, err := r.client.ZCard(ctx, r.indexKey).Result()
	return int(n), err
}

// withRetry runs fn under WATCH and retries when another writer touched the keys.
func (r *RedisBinRepository) withRetry(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error {
	for i := 0; i < txRetries; i++ {
		err := r.client.Watch(ctx, fn, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("bins: too much contention on %v", keys)
}
