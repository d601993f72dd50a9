package app

import (
	"context"
	"fmt"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"instantride/internal/config"
	internalRedis "instantride/internal/redis"
)

// Coordination groups the stores dispatch and the HTTP layer share. They are
// backed by Redis when it is enabled and by process-local maps otherwise.
type Coordination struct {
	Locks     internalRedis.LockStoreInterface
	RideCache internalRedis.RideCacheInterface
	Responses internalRedis.ResponseStoreInterface
	client    *redis.Client
}

// Close releases the Redis connection, if any.
func (c *Coordination) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

// NewCoordination builds the lock, cache and idempotency stores for cfg.
// The ride cache is disabled without Redis since a local copy would only
// shadow the in-memory store.
func NewCoordination(ctx context.Context, cfg config.RedisConfig, lockDriver string, nrApp *newrelic.Application) (*Coordination, error) {
	if !cfg.Enabled {
		if lockDriver == config.LockRedis {
			return nil, fmt.Errorf("lock driver %q requires REDIS_ENABLED", lockDriver)
		}
		return &Coordination{
			Locks:     internalRedis.NewLocalLockStore(),
			Responses: internalRedis.NewLocalResponseStore(),
		}, nil
	}

	client, err := NewRedisClient(ctx, cfg, nrApp)
	if err != nil {
		return nil, err
	}

	c := &Coordination{
		RideCache: internalRedis.NewCacheStore(client, cfg.CacheTTL),
		Responses: internalRedis.NewResponseStore(client),
		client:    client,
	}
	if lockDriver == config.LockLocal {
		c.Locks = internalRedis.NewLocalLockStore()
	} else {
		c.Locks = internalRedis.NewLockStore(client)
	}
	return c, nil
}

// NewRedisClient creates a Redis client, traced through New Relic when nrApp
// is set.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig, nrApp *newrelic.Application) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if nrApp != nil {
		client.AddHook(nrRedisHook{})
	}

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

// nrRedisHook records each command as a datastore segment on the request's
// transaction.
type nrRedisHook struct{}

func (nrRedisHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (nrRedisHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		defer startSegment(ctx, cmd.Name()).End()
		return next(ctx, cmd)
	}
}

func (nrRedisHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		defer startSegment(ctx, "pipeline").End()
		return next(ctx, cmds)
	}
}

// startSegment returns a nil segment outside a transaction; End on nil is a
// no-op.
func startSegment(ctx context.Context, op string) *newrelic.DatastoreSegment {
	txn := newrelic.FromContext(ctx)
	if txn == nil {
		return nil
	}
	return &newrelic.DatastoreSegment{
		StartTime:  txn.StartSegmentNow(),
		Product:    newrelic.DatastoreRedis,
		Operation:  op,
		Collection: "redis",
	}
}
