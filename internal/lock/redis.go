package lock

import (
	"context"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

const (
	defaultRedisTTL   = 10 * time.Second
	defaultRedisRetry = 25 * time.Millisecond
	redisKeyPrefix    = "folio:lock:"
)

// RedisOptions configures a RedisLocker.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// TTL is the lease length. A held lock is refreshed every TTL/2 until released.
	TTL    time.Duration
	Retry  time.Duration
	Logger *logrus.Logger
}

// RedisLocker shares locks between processes through redislock leases.
type RedisLocker struct {
	client *redis.Client
	locks  *redislock.Client
	ttl    time.Duration
	retry  time.Duration
	logger *logrus.Logger
}

var _ Locker = (*RedisLocker)(nil)

// NewRedisLocker connects to Redis and verifies the connection.
func NewRedisLocker(ctx context.Context, opts RedisOptions) (*RedisLocker, error) {
	if opts.Addr == "" {
		return nil, eris.New("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, eris.Wrapf(err, "pinging redis at %s", opts.Addr)
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultRedisTTL
	}
	retry := opts.Retry
	if retry <= 0 {
		retry = defaultRedisRetry
	}

	return &RedisLocker{
		client: client,
		locks:  redislock.New(client),
		ttl:    ttl,
		retry:  retry,
		logger: opts.Logger,
	}, nil
}

// Lock waits for the lease on key until ctx is done. The lease is kept alive until the
// returned func is called.
func (r *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := redisKeyPrefix + key
	opts := &redislock.Options{RetryStrategy: redislock.LinearBackoff(r.retry)}

	var held *redislock.Lock
	for held == nil {
		obtained, err := r.locks.Obtain(ctx, redisKey, r.ttl, opts)
		switch {
		case err == nil:
			held = obtained
		case eris.Is(err, redislock.ErrNotObtained):
			// Obtain gives up after one TTL when ctx has no deadline.
			if ctx.Err() != nil {
				return nil, eris.Wrapf(ctx.Err(), "waiting for lock %s", key)
			}
		default:
			return nil, eris.Wrapf(err, "acquiring lock %s", key)
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go r.keepAlive(held, key, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			r.release(held, key)
		})
	}, nil
}

func (r *RedisLocker) keepAlive(held *redislock.Lock, key string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), r.ttl/2)
		err := held.Refresh(ctx, r.ttl, nil)
		cancel()
		if err == nil {
			continue
		}

		r.warn(key, err, "refreshing redis lock failed")
		if eris.Is(err, redislock.ErrNotObtained) {
			return
		}
	}
}

func (r *RedisLocker) release(held *redislock.Lock, key string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := held.Release(ctx); err != nil {
		r.warn(key, err, "releasing redis lock failed")
	}
}

func (r *RedisLocker) warn(key string, err error, message string) {
	if r.logger == nil {
		return
	}
	r.logger.WithFields(logrus.Fields{"lock": key, "error": err.Error()}).Warn(message)
}

// Close releases the Redis connection pool.
func (r *RedisLocker) Close() error {
	return r.client.Close()
}
