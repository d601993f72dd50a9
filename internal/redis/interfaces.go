package redis

import (
	"context"
	"time"

	"instantride/internal/domain"
)

// LockStoreInterface defines the interface for short-lived exclusive locks.
type LockStoreInterface interface {
	// AcquireLock reports whether the lock on key was taken and returns the
	// owner token that releases it. It never waits.
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	// ReleaseLock frees key only while token owns it and returns
	// ErrLockNotHeld otherwise.
	ReleaseLock(ctx context.Context, key, token string) error
}

// RideCacheInterface defines read-through caching of ride aggregates.
type RideCacheInterface interface {
	// GetRide returns nil, nil on a cache miss.
	GetRide(ctx context.Context, rideID string) (*domain.Ride, error)
	SetRide(ctx context.Context, ride *domain.Ride) error
	InvalidateRide(ctx context.Context, rideID string) error
}

// ResponseStoreInterface keeps serialized HTTP responses for idempotent
// replays.
type ResponseStoreInterface interface {
	// GetResponse returns nil, nil on a miss.
	GetResponse(ctx context.Context, key string) ([]byte, error)
	SetResponse(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// ReserveKey reports whether key was free and is now held by the caller
	// until ReleaseKey or ttl.
	ReserveKey(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseKey(ctx context.Context, key string) error
}

// Ensure concrete types implement interfaces.
var (
	_ LockStoreInterface     = (*LockStore)(nil)
	_ LockStoreInterface     = (*LocalLockStore)(nil)
	_ RideCacheInterface     = (*CacheStore)(nil)
	_ ResponseStoreInterface = (*ResponseStore)(nil)
	_ ResponseStoreInterface = (*LocalResponseStore)(nil)
)

// RideLockKey returns the lock key guarding a ride during dispatch.
func RideLockKey(rideID string) string { return "lock:ride:" + rideID }

// DriverLockKey returns the lock key guarding a driver during dispatch.
func DriverLockKey(driverID string) string { return "lock:driver:" + driverID }

// ShuttleLockKey returns the lock key guarding a shuttle's seats.
func ShuttleLockKey(shuttleID string) string { return "lock:shuttle:" + shuttleID }
