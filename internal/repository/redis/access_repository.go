package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/vogiaan1904/lobbydraft/internal/models"
	"github.com/vogiaan1904/lobbydraft/pkg/logger"
)

const (
	KeyAccessConfigs = "access-configs"
	KeyAccessLists   = "access-lists"

	maxUpdateAttempts = 3
)

var ErrUpdateContention = errors.New("preference value kept changing during update")

// AccessRepository is the per-owner preference store holding named access
// configs and lists. An owner is a player id or the shared scope id.
type AccessRepository interface {
	// GetData returns nil without error when the key is absent.
	GetData(ctx context.Context, owner, key string) ([]byte, error)
	StoreData(ctx context.Context, owner, key string, value []byte) error

	GetConfigs(ctx context.Context, owner string) (models.AccessConfigs, error)
	GetLists(ctx context.Context, owner string) (models.AccessLists, error)
	// UpdateConfigs and UpdateLists run fn on the current value and store the
	// result, retrying when another writer got there first.
	UpdateConfigs(ctx context.Context, owner string, fn func(models.AccessConfigs) error) (models.AccessConfigs, error)
	UpdateLists(ctx context.Context, owner string, fn func(models.AccessLists) error) (models.AccessLists, error)
}

type redisAccessRepository struct {
	cli *redis.Client
	l   logger.Logger
}

func NewRedisAccessRepository(cli *redis.Client, l logger.Logger) AccessRepository {
	return &redisAccessRepository{
		cli: cli,
		l:   l,
	}
}

func (r *redisAccessRepository) GetData(ctx context.Context, owner, key string) ([]byte, error) {
	data, err := r.cli.Get(ctx, r.prefKey(owner, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		r.l.Errorf(ctx, "redisAccessRepository.GetData: %v", err)
		return nil, err
	}

	return data, nil
}

func (r *redisAccessRepository) StoreData(ctx context.Context, owner, key string, value []byte) error {
	if err := r.cli.Set(ctx, r.prefKey(owner, key), value, 0).Err(); err != nil {
		r.l.Errorf(ctx, "redisAccessRepository.StoreData: %v", err)
		return err
	}

	return nil
}

func (r *redisAccessRepository) GetConfigs(ctx context.Context, owner string) (models.AccessConfigs, error) {
	configs := models.AccessConfigs{}
	if err := r.getJSON(ctx, owner, KeyAccessConfigs, &configs); err != nil {
		return nil, err
	}
	return configs, nil
}

func (r *redisAccessRepository) GetLists(ctx context.Context, owner string) (models.AccessLists, error) {
	lists := models.AccessLists{}
	if err := r.getJSON(ctx, owner, KeyAccessLists, &lists); err != nil {
		return nil, err
	}
	return lists, nil
}

func (r *redisAccessRepository) UpdateConfigs(ctx context.Context, owner string, fn func(models.AccessConfigs) error) (models.AccessConfigs, error) {
	var out models.AccessConfigs
	err := r.update(ctx, owner, KeyAccessConfigs, func(raw []byte) ([]byte, error) {
		configs := models.AccessConfigs{}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &configs); err != nil {
				return nil, err
			}
		}
		if err := fn(configs); err != nil {
			return nil, err
		}
		out = configs
		return json.Marshal(configs)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *redisAccessRepository) UpdateLists(ctx context.Context, owner string, fn func(models.AccessLists) error) (models.AccessLists, error) {
	var out models.AccessLists
	err := r.update(ctx, owner, KeyAccessLists, func(raw []byte) ([]byte, error) {
		lists := models.AccessLists{}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &lists); err != nil {
				return nil, err
			}
		}
		if err := fn(lists); err != nil {
			return nil, err
		}
		out = lists
		return json.Marshal(lists)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *redisAccessRepository) getJSON(ctx context.Context, owner, key string, v any) error {
	data, err := r.GetData(ctx, owner, key)
	if err != nil {
		return err
	}
	if data == nil {
		return nil
	}

	if err := json.Unmarshal(data, v); err != nil {
		r.l.Errorf(ctx, "redisAccessRepository.getJSON: %v", err)
		return fmt.Errorf("decode %s for %s: %w", key, owner, err)
	}
	return nil
}

// update is an optimistic read-modify-write under WATCH.
func (r *redisAccessRepository) update(ctx context.Context, owner, key string, mutate func([]byte) ([]byte, error)) error {
	k := r.prefKey(owner, key)

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, k).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}

		next, err := mutate(raw)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, next, 0)
			return nil
		})
		return err
	}

	for range maxUpdateAttempts {
		err := r.cli.Watch(ctx, txf, k)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			r.l.Debugf(ctx, "redisAccessRepository.update: %s changed concurrently, retrying", k)
			continue
		}
		return err
	}

	r.l.Warnf(ctx, "redisAccessRepository.update: gave up on %s after %d attempts", k, maxUpdateAttempts)
	return ErrUpdateContention
}

func (r *redisAccessRepository) prefKey(owner, key string) string {
	return fmt.Sprintf("lobbydraft:prefs:%s:%s", owner, key)
}
