package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"icarus-backend/logger"
)

const keyPrefix = "icarus:lock:"

// releaseScript deletes the key only while it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// renewScript extends the key's expiry only while it still holds our token.
var renewScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

// RedisLocker holds keys with SET NX PX. A live holder renews the lease every
// TTL/3 until release; a holder that dies loses the lock after TTL.
type RedisLocker struct {
	rdb          *goredis.Client
	ttl          time.Duration
	pollInterval time.Duration
	log          *logger.Logger
}

// NewRedisLocker connects to addr and pings it.
func NewRedisLocker(ctx context.Context, addr string, ttl time.Duration, log *logger.Logger) (*RedisLocker, error) {
	if addr == "" {
		return nil, errors.New("missing redis address")
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: addr, DialTimeout: 5 * time.Second})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisLocker{
		rdb:          rdb,
		ttl:          ttl,
		pollInterval: 100 * time.Millisecond,
		log:          log.With("service", "RedisLocker"),
	}, nil
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	k := keyPrefix + key
	token := uuid.NewString()
	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for {
		ok, err := l.rdb.SetNX(ctx, k, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.Join(ErrNotAcquired, ctx.Err())
			}
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrNotAcquired, ctx.Err())
		case <-ticker.C:
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go l.renew(k, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			// the caller's ctx may already be done
			relCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(relCtx, l.rdb, []string{k}, token).Err(); err != nil {
				l.log.Warn("redis lock release failed", "key", key, "error", err)
			}
		})
	}, nil
}

// renew extends the lease until stop is closed or the token is gone.
func (l *RedisLocker) renew(k, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		ctx, cancel := context.WithTimeout(context.Background(), l.ttl/3)
		n, err := renewScript.Run(ctx, l.rdb, []string{k}, token, l.ttl.Milliseconds()).Int()
		cancel()
		switch {
		case err != nil:
			l.log.Warn("redis lock renew failed", "key", k, "error", err)
		case n == 0:
			l.log.Warn("redis lock lost before release", "key", k)
			return
		}
	}
}

func (l *RedisLocker) Close() error { return l.rdb.Close() }
