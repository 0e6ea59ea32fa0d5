package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/golang/snappy"
	"github.com/redis/go-redis/v9"

	"lumina/fraud-sim/internal/domain"
)

// DefaultKeyPrefix namespaces every key the Redis store writes.
const DefaultKeyPrefix = "fraudsim:"

// Redis is a Store backed by Redis. Run metadata is stored as JSON and the
// dataset as snappy-compressed JSON under a sibling key; both expire after the
// configured TTL. A sorted set indexes run IDs by creation time.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

// NewRedis wraps client. A zero ttl keeps runs forever.
func NewRedis(client redis.UniversalClient, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl, prefix: DefaultKeyPrefix}
}

// WithPrefix returns a copy of the store writing under prefix, so several
// deployments can share one Redis.
func (r *Redis) WithPrefix(prefix string) *Redis {
	c := *r
	c.prefix = prefix
	return &c
}

func (r *Redis) runIndexKey() string { return r.prefix + "runs" }
func (r *Redis) webhooksKey() string { return r.prefix + "webhooks" }
func (r *Redis) runMetaKey(id string) string { return r.prefix + "run:" + id + ":meta" }
func (r *Redis) runDataKey(id string) string { return r.prefix + "run:" + id + ":data" }

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// ─── Runs ─────────────────────────────────────────────────────────────────────

// SaveRun stores run. Returns ErrDuplicateRun if the ID already exists.
func (r *Redis) SaveRun(ctx context.Context, run *domain.Run) error {
	meta, err := json.Marshal(withoutDataset(run))
	if err != nil {
		return fmt.Errorf("encode run: %w", err)
	}
	var data []byte
	if run.Dataset != nil {
		raw, err := json.Marshal(run.Dataset)
		if err != nil {
			return fmt.Errorf("encode dataset: %w", err)
		}
		data = snappy.Encode(nil, raw)
	}

	metaKey, dataKey := r.runMetaKey(run.ID), r.runDataKey(run.ID)
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, metaKey).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrDuplicateRun
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, metaKey, meta, r.ttl)
			if data != nil {
				pipe.Set(ctx, dataKey, data, r.ttl)
			}
			pipe.ZAdd(ctx, r.runIndexKey(), redis.Z{
				Score:  float64(run.CreatedAt.UnixNano()),
				Member: run.ID,
			})
			return nil
		})
		return err
	}, metaKey)

	switch {
	case err == nil, errors.Is(err, ErrDuplicateRun):
		return err
	case errors.Is(err, redis.TxFailedErr):
		// Another writer created the run between WATCH and EXEC.
		return ErrDuplicateRun
	}
	// EXEC does not roll back the commands that succeeded.
	if delErr := r.client.Del(context.WithoutCancel(ctx), metaKey, dataKey).Err(); delErr != nil {
		return errors.Join(err, fmt.Errorf("clean up run %s: %w", run.ID, delErr))
	}
	return err
}

// GetRun loads a run and its dataset.
func (r *Redis) GetRun(ctx context.Context, id string) (*domain.Run, error) {
	meta, err := r.client.Get(ctx, r.runMetaKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}

	var run domain.Run
	if err := json.Unmarshal(meta, &run); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", id, err)
	}

	data, err := r.client.Get(ctx, r.runDataKey(id)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return &run, nil
	case err != nil:
		return nil, err
	}
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("decompress dataset %s: %w", id, err)
	}
	var ds domain.Dataset
	if err := json.Unmarshal(raw, &ds); err != nil {
		return nil, fmt.Errorf("decode dataset %s: %w", id, err)
	}
	run.Dataset = &ds
	return &run, nil
}

// ListRuns returns the runs that have not expired, oldest first. Index
// entries whose run has expired are pruned.
func (r *Redis) ListRuns(ctx context.Context) ([]*domain.Run, error) {
	ids, err := r.client.ZRange(ctx, r.runIndexKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*domain.Run{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.runMetaKey(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	runs := make([]*domain.Run, 0, len(ids))
	var expired []any
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			expired = append(expired, ids[i])
			continue
		}
		var run domain.Run
		if err := json.Unmarshal([]byte(s), &run); err != nil {
			return nil, fmt.Errorf("decode run %s: %w", ids[i], err)
		}
		runs = append(runs, &run)
	}

	if len(expired) > 0 {
		if err := r.client.ZRem(ctx, r.runIndexKey(), expired...).Err(); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// ─── Webhooks ─────────────────────────────────────────────────────────────────

// SaveWebhook upserts a webhook into the webhooks hash.
func (r *Redis) SaveWebhook(ctx context.Context, wh *domain.WebhookConfig) error {
	data, err := json.Marshal(wh)
	if err != nil {
		return fmt.Errorf("encode webhook: %w", err)
	}
	return r.client.HSet(ctx, r.webhooksKey(), wh.ID, data).Err()
}

// DeleteWebhook removes a webhook by ID.
func (r *Redis) DeleteWebhook(ctx context.Context, id string) (bool, error) {
	n, err := r.client.HDel(ctx, r.webhooksKey(), id).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListActiveWebhooks returns active webhooks ordered by creation time.
func (r *Redis) ListActiveWebhooks(ctx context.Context) ([]*domain.WebhookConfig, error) {
	values, err := r.client.HVals(ctx, r.webhooksKey()).Result()
	if err != nil {
		return nil, err
	}

	var result []*domain.WebhookConfig
	for _, v := range values {
		var wh domain.WebhookConfig
		if err := json.Unmarshal([]byte(v), &wh); err != nil {
			return nil, fmt.Errorf("decode webhook: %w", err)
		}
		if wh.Active {
			result = append(result, &wh)
		}
	}
	sortWebhooks(result)
	return result, nil
}
