package ports

import (
	"context"
	"time"
)

// UnlockFunc is a function that releases a distributed lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes access to a run across processes.
type DistributedLocker interface {
	// Lock blocks until the lock for key is held or ctx is done.
	// The lock is released automatically after ttl if UnlockFunc is never called.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
