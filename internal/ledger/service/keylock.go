package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"github.com/smallbiznis/gastrack/internal/ledger/domain"
)

const (
	lockStripes  = 128
	lockTTL      = 10 * time.Second
	lockRetryGap = 50 * time.Millisecond
)

// keyLock serializes event application per ledger key. Read-merge-write on a
// ledger row is not atomic, so two deltas for the same key must not
// interleave. In-process striping covers the single-instance case; when redis
// is configured a distributed lock extends the guarantee across instances.
type keyLock struct {
	stripes [lockStripes]sync.Mutex
	locker  *redislock.Client
}

func newKeyLock(client *redis.Client) *keyLock {
	kl := &keyLock{}
	if client != nil {
		kl.locker = redislock.New(client)
	}
	return kl
}

// Acquire locks the key and returns a release function.
func (kl *keyLock) Acquire(ctx context.Context, key domain.DayKey) (func(), error) {
	name := fmt.Sprintf("%d:%s:%d:%d",
		key.TenantID, key.Date.Format(time.DateOnly), key.ProductID, key.CylinderSizeID)

	h := fnv.New32a()
	h.Write([]byte(name))
	stripe := &kl.stripes[h.Sum32()%lockStripes]
	stripe.Lock()

	if kl.locker == nil {
		return stripe.Unlock, nil
	}

	lock, err := kl.locker.Obtain(ctx, "ledger:lock:"+name, lockTTL, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(lockRetryGap), 20),
	})
	if err != nil {
		stripe.Unlock()
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, fmt.Errorf("%w: ledger key busy", domain.ErrStoreUnavailable)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = lock.Release(releaseCtx)
		stripe.Unlock()
	}, nil
}
