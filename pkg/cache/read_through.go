package cache

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Cacher is the subset of cache behaviour FindAndCache relies on.
type Cacher interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

type FetchFunc[T any] func(ctx context.Context) (T, error)

const (
	defaultFetchTimeout = 15 * time.Second
	defaultSetTimeout   = 5 * time.Second
)

// Loader holds the read-through state for one cache: the entry TTL, the
// singleflight group that collapses concurrent fetches, and the time each
// key was last stored by this process.
type Loader struct {
	cache        Cacher
	ttl          time.Duration
	refreshAfter time.Duration
	logger       *zap.Logger
	now          func() time.Time

	sf     singleflight.Group
	mu     sync.Mutex
	stored map[string]time.Time
}

type LoaderOption func(*Loader)

// WithRefreshAhead refreshes an entry in the background on the first hit
// after it has aged past fraction of its TTL. Fractions outside (0, 1)
// leave refresh-ahead off.
func WithRefreshAhead(fraction float64) LoaderOption {
	return func(l *Loader) {
		if fraction > 0 && fraction < 1 {
			l.refreshAfter = time.Duration(float64(l.ttl) * fraction)
		}
	}
}

func WithLoaderLogger(logger *zap.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader builds a Loader over c. A nil cache stores nothing.
func NewLoader(c Cacher, ttl time.Duration, opts ...LoaderOption) *Loader {
	if c == nil {
		c = Noop{}
	}
	l := &Loader{
		cache:  c,
		ttl:    ttl,
		logger: zap.NewNop(),
		now:    time.Now,
		stored: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// addTTLJitter adds up to ±15s random jitter to TTL to avoid mass expiration.
func addTTLJitter(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return ttl
	}
	jitter := time.Duration(rand.Intn(30)-15) * time.Second
	if ttl+jitter <= 0 {
		return ttl
	}
	return ttl + jitter
}

// dueForRefresh reports whether a hit on key should refresh it. Entries
// this process never stored are adopted as fresh, since their age is
// unknown and the cache TTL still bounds it.
func (l *Loader) dueForRefresh(key string) bool {
	if l.refreshAfter <= 0 {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	storedAt, ok := l.stored[key]
	if !ok {
		l.stored[key] = l.now()
		return false
	}
	return l.now().Sub(storedAt) >= l.refreshAfter
}

func (l *Loader) markStored(key string) {
	l.mu.Lock()
	l.stored[key] = l.now()
	l.mu.Unlock()
}

func (l *Loader) store(ctx context.Context, key string, value any) error {
	ttl := addTTLJitter(l.ttl)
	if err := l.cache.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	l.markStored(key)
	l.logger.Debug("cache stored", zap.String("key", key), zap.Duration("ttl", ttl))
	return nil
}

func refreshInBackground[T any](l *Loader, key string, fn FetchFunc[T]) {
	// Claim the key first so concurrent hits do not queue more refreshes.
	l.markStored(key)

	go func() {
		_, _, _ = l.sf.Do(key+":refresh", func() (any, error) {
			ctx, cancel := context.WithTimeout(context.Background(), defaultFetchTimeout)
			defer cancel()

			value, err := fn(ctx)
			if err != nil {
				l.logger.Warn("background refresh failed", zap.String("key", key), zap.Error(err))
				return nil, err
			}

			setCtx, cancelSet := context.WithTimeout(context.Background(), defaultSetTimeout)
			defer cancelSet()
			if err := l.store(setCtx, key, value); err != nil {
				l.logger.Warn("failed to update cache in background", zap.String("key", key), zap.Error(err))
			}
			return value, nil
		})
	}()
}

// FindAndCache reads key through l. A hit is returned as is, and refreshed
// in the background once it is due. Concurrent misses for one key share a
// single fetch, and the fetched value is written to the cache
// asynchronously.
func FindAndCache[T any](ctx context.Context, l *Loader, key string, fn FetchFunc[T]) (T, error) {
	var zero T

	var cached T
	err := l.cache.Get(ctx, key, &cached)
	switch {
	case err == nil:
		if l.dueForRefresh(key) {
			l.logger.Debug("cache hit, refreshing ahead of expiry", zap.String("key", key))
			refreshInBackground(l, key, fn)
		}
		return cached, nil

	case errors.Is(err, redis.Nil):
		l.logger.Debug("cache miss", zap.String("key", key))

	default:
		l.logger.Warn("cache get error (treating as miss)", zap.String("key", key), zap.Error(err))
	}

	v, err, _ := l.sf.Do(key, func() (any, error) {
		value, err := fn(ctx)
		if err != nil {
			return nil, err
		}

		go func() {
			setCtx, cancel := context.WithTimeout(context.Background(), defaultSetTimeout)
			defer cancel()
			if err := l.store(setCtx, key, value); err != nil {
				l.logger.Warn("failed to set cache on miss", zap.String("key", key), zap.Error(err))
			}
		}()
		return value, nil
	})
	if err != nil {
		return zero, err
	}

	value, ok := v.(T)
	if !ok {
		l.logger.Error("singleflight type mismatch", zap.String("key", key))
		return zero, fmt.Errorf("type mismatch for key %q", key)
	}
	return value, nil
}
