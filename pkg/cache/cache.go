package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

var ErrCacheMiss = errors.New("cache: key not found")

// Service is a keyed store with expiry. Every backend stores JSON, so Get decodes into dest
// the same way wherever the entry came from.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, keys ...string) (bool, error)
	Ping(ctx context.Context) error
	Close() error
}

// Key joins parts with ":". Symbols are case-insensitive, so parts are upper-cased.
func Key(prefix string, parts ...string) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, p := range parts {
		b.WriteByte(':')
		b.WriteString(strings.ToUpper(strings.TrimSpace(p)))
	}
	return b.String()
}

// Loader reads through a Service and runs at most one load per key at a time.
// A nil Service only deduplicates.
type Loader struct {
	svc   Service
	group singleflight.Group
}

func NewLoader(svc Service) *Loader {
	return &Loader{svc: svc}
}

// Load returns the cached value for key, or runs load, stores its result for ttl and returns it.
// Callers that arrive while a load for the same key is running share its outcome.
// Cache failures never fail the call. The bool reports a cache hit.
func Load[T any](ctx context.Context, l *Loader, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, bool, error) {
	type result struct {
		v   T
		hit bool
	}
	out, err, _ := l.group.Do(key, func() (interface{}, error) {
		var v T
		if l.svc != nil && l.svc.Get(ctx, key, &v) == nil {
			return result{v: v, hit: true}, nil
		}
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if l.svc != nil {
			_ = l.svc.Set(ctx, key, v, ttl)
		}
		return result{v: v}, nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	r := out.(result)
	return r.v, r.hit, nil
}
