// Package redisrepo stores vendor session records in Redis.
package redisrepo

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/vendormesh/wabridge/internal/config"
	"github.com/vendormesh/wabridge/sessions"
)

const keyPrefix = "wabridge:session:"

var _ sessions.Repo = (*Repo)(nil)

// Repo is a Redis-backed sessions.Repo. Records carry no TTL; their
// lifecycle is owned by the tracker.
type Repo struct {
	client *redis.Client
}

// New creates a Repo over an existing Redis client.
func New(client *redis.Client) *Repo {
	return &Repo{client: client}
}

// NewClient connects to Redis using the provided configuration. An
// unreachable Redis is logged, not fatal: the first repo operation will
// surface the error to its caller.
func NewClient(cfg config.StoreConfig, logger zerolog.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.GetRedisPassword(),
		DB:       cfg.GetRedisDB(),
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.GetRedisAddr()).Msg("unable to reach redis")
	} else {
		logger.Info().Str("addr", cfg.GetRedisAddr()).Msg("connected to redis")
	}
	return client
}

func (r *Repo) Get(ctx context.Context, vendorID string) (*sessions.VendorSession, error) {
	raw, err := r.client.Get(ctx, keyPrefix+vendorID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, sessions.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[redisrepo.Get] redis get")
	}

	var session sessions.VendorSession
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, errors.Wrap(err, "[redisrepo.Get] unmarshal session")
	}
	return &session, nil
}

func (r *Repo) Upsert(ctx context.Context, session *sessions.VendorSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return errors.Wrap(err, "[redisrepo.Upsert] marshal session")
	}
	if err := r.client.Set(ctx, keyPrefix+session.VendorID, data, 0).Err(); err != nil {
		return errors.Wrap(err, "[redisrepo.Upsert] redis set")
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, vendorID string) error {
	if err := r.client.Del(ctx, keyPrefix+vendorID).Err(); err != nil {
		return errors.Wrap(err, "[redisrepo.Delete] redis del")
	}
	return nil
}
