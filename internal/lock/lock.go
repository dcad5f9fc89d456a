// Package lock provides named, expiring mutual exclusion shared between
// server processes.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/labstack/gommon/log"
)

var ErrLockBusy = errors.New("lock is already held")
var ErrLockNotHeld = errors.New("lock is no longer held")

type Locker interface {
	// Acquire takes the lock named key for at most ttl. It does not wait: if
	// the lock is held it returns ErrLockBusy.
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lock, error)
}

type Lock interface {
	Key() string
	// Release gives the lock up. Releasing a lock that expired and was taken
	// by someone else returns ErrLockNotHeld and leaves the new holder alone.
	Release(ctx context.Context) error
}

// With runs fn while holding key. The lock is released whatever fn returns.
func With(ctx context.Context, locker Locker, key string, ttl time.Duration, fn func(ctx context.Context) error) error {
	l, err := locker.Acquire(ctx, key, ttl)
	if err != nil {
		return err
	}
	defer func() {
		if err := l.Release(context.WithoutCancel(ctx)); err != nil {
			log.Warnf("releasing lock %s: %+v", key, err)
		}
	}()

	return fn(ctx)
}
