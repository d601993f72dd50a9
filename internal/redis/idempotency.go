package redis

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idempotencyPrefix     = "idempotency:"
	idempotencyLockPrefix = "idempotency:lock:"
)

// ResponseStore keeps replayable HTTP responses in Redis.
type ResponseStore struct {
	client *redis.Client
}

// NewResponseStore creates a new ResponseStore.
func NewResponseStore(client *redis.Client) *ResponseStore {
	return &ResponseStore{client: client}
}

// GetResponse returns the stored response for key, or nil on a miss.
func (s *ResponseStore) GetResponse(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, idempotencyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

// SetResponse stores data for key.
func (s *ResponseStore) SetResponse(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return s.client.Set(ctx, idempotencyPrefix+key, data, ttl).Err()
}

// ReserveKey marks key as in flight unless another request already holds
// it. The mark lapses after ttl so a crashed request cannot block retries.
func (s *ResponseStore) ReserveKey(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, idempotencyLockPrefix+key, "1", ttl).Result()
}

// ReleaseKey clears the in-flight mark on key.
func (s *ResponseStore) ReleaseKey(ctx context.Context, key string) error {
	return s.client.Del(ctx, idempotencyLockPrefix+key).Err()
}

type localResponse struct {
	data    []byte
	expires time.Time
}

// LocalResponseStore is the in-process ResponseStoreInterface.
type LocalResponseStore struct {
	mu        sync.Mutex
	responses map[string]localResponse
	inflight  map[string]time.Time
	now       func() time.Time
}

// NewLocalResponseStore creates an empty LocalResponseStore.
func NewLocalResponseStore() *LocalResponseStore {
	return &LocalResponseStore{
		responses: make(map[string]localResponse),
		inflight:  make(map[string]time.Time),
		now:       time.Now,
	}
}

// GetResponse returns the live response for key, or nil.
func (s *LocalResponseStore) GetResponse(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.responses[key]
	if !ok {
		return nil, nil
	}
	if !s.now().Before(r.expires) {
		delete(s.responses, key)
		return nil, nil
	}
	return r.data, nil
}

// SetResponse stores data for key until ttl elapses.
func (s *LocalResponseStore) SetResponse(_ context.Context, key string, data []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, r := range s.responses {
		if !now.Before(r.expires) {
			delete(s.responses, k)
		}
	}
	s.responses[key] = localResponse{data: append([]byte(nil), data...), expires: now.Add(ttl)}
	return nil
}

// ReserveKey marks key as in flight until ttl elapses or ReleaseKey.
func (s *LocalResponseStore) ReserveKey(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if exp, held := s.inflight[key]; held && now.Before(exp) {
		return false, nil
	}
	s.inflight[key] = now.Add(ttl)
	return true, nil
}

// ReleaseKey clears the in-flight mark on key.
func (s *LocalResponseStore) ReleaseKey(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.inflight, key)
	s.mu.Unlock()
	return nil
}
