package redis

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type localLock struct {
	token   string
	expires time.Time
}

// LocalLockStore is an in-process LockStoreInterface for single-instance
// deployments and tests. Locks expire after their TTL like the Redis ones.
type LocalLockStore struct {
	mu    sync.Mutex
	locks map[string]localLock
	now   func() time.Time
}

// NewLocalLockStore creates an empty LocalLockStore.
func NewLocalLockStore() *LocalLockStore {
	return &LocalLockStore{locks: make(map[string]localLock), now: time.Now}
}

// AcquireLock takes key unless a live lock already holds it.
func (s *LocalLockStore) AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if l, held := s.locks[key]; held && now.Before(l.expires) {
		return "", false, nil
	}
	token := uuid.NewString()
	s.locks[key] = localLock{token: token, expires: now.Add(ttl)}
	return token, true, nil
}

// ReleaseLock drops key if token still owns it.
func (s *LocalLockStore) ReleaseLock(_ context.Context, key, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, held := s.locks[key]
	if !held || l.token != token {
		return ErrLockNotHeld
	}
	delete(s.locks, key)
	return nil
}
