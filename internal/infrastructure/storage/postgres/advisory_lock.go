package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"

	"facturier/internal/core/lock"
	"facturier/pkg/logger"
)

var errAdvisoryLockBusy = errors.New("advisory lock busy")

// AdvisoryLocker is a lock.Locker backed by PostgreSQL session advisory locks.
// It serializes instances sharing a database without requiring Redis.
//
// A held lock pins one pool connection until it is released. Waiters poll
// pg_try_advisory_lock and hand their connection back between attempts, so
// the holder can always get a second connection for its own queries as long
// as the pool allows two.
type AdvisoryLocker struct {
	pool *Pool
	poll time.Duration
	max  time.Duration
}

// NewAdvisoryLocker creates a locker over pool.
func NewAdvisoryLocker(pool *Pool) *AdvisoryLocker {
	return &AdvisoryLocker{
		pool: pool,
		poll: 10 * time.Millisecond,
		max:  200 * time.Millisecond,
	}
}

var _ lock.Locker = (*AdvisoryLocker)(nil)

// Lock implements lock.Locker. Keys are hashed to the 64-bit advisory lock space.
func (l *AdvisoryLocker) Lock(ctx context.Context, key string) (lock.Unlock, error) {
	var held *pgxpool.Conn

	attempt := func() error {
		conn, err := l.pool.Acquire(ctx)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("acquire connection: %w", err))
		}

		var locked bool
		err = conn.QueryRow(ctx, "SELECT pg_try_advisory_lock(hashtextextended($1, 0))", key).Scan(&locked)
		if err != nil {
			conn.Release()
			return backoff.Permanent(err)
		}
		if !locked {
			conn.Release()
			return errAdvisoryLockBusy
		}

		held = conn
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = l.poll
	policy.MaxInterval = l.max
	policy.MaxElapsedTime = 0

	if err := backoff.Retry(attempt, backoff.WithContext(policy, ctx)); err != nil {
		return nil, fmt.Errorf("advisory lock %s: %w", key, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(ctx, held, key) })
	}, nil
}

func (l *AdvisoryLocker) release(ctx context.Context, conn *pgxpool.Conn, key string) {
	releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := conn.Exec(releaseCtx, "SELECT pg_advisory_unlock(hashtextextended($1, 0))", key); err != nil {
		// a session that may still hold the lock must not go back to the pool
		logger.Warn(ctx, "advisory unlock failed, dropping connection", "key", key, "error", err)
		_ = conn.Conn().Close(releaseCtx)
	}
	conn.Release()
}
