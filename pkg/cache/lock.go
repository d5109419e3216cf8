package cache

import (
	"context"
	"errors"

	"github.com/OFFIS-RIT/biokiwi/backend/pkg/leaselock"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/logger"
)

// LeaseLocker guards builds with a Postgres lease lock. Acquire always waits
// for a running build of another process to finish.
type LeaseLocker struct {
	client *leaselock.Client
	opts   leaselock.Options
}

func NewLeaseLocker(client *leaselock.Client, opts leaselock.Options) *LeaseLocker {
	opts.Wait = true
	return &LeaseLocker{client: client, opts: opts}
}

func (l *LeaseLocker) Lock(ctx context.Context, key string) (func(), error) {
	lease, err := l.client.Acquire(ctx, "ontology-cache:"+key, l.opts)
	if err != nil {
		return nil, err
	}
	return func() {
		if err := lease.Err(); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("[Cache] Build lock lost before release", "key", key, "err", err)
		}
		if err := lease.Release(context.Background()); err != nil {
			logger.Warn("[Cache] Failed to release build lock", "key", key, "err", err)
		}
	}, nil
}
