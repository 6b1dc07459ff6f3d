// Package cache provides the in-memory, per-day TTL cache that fronts every digest feed.
// Entries are never evicted in the background; they are superseded by the next write
// for the same namespace and logically expire when the day changes or the TTL elapses.
package cache

import (
	"sync"
	"time"

	"daily-digest/internal/domain/entity"
	"daily-digest/internal/observability/metrics"
)

// DefaultExpiry is the safety-net lifetime of an entry.
const DefaultExpiry = 24 * time.Hour

// Entry is one cached value.
type Entry[V any] struct {
	Namespace   string
	Value       V
	WrittenAt   time.Time
	ValidForDay entity.Day
}

// TTL is a namespace-keyed cache holding at most one live entry per namespace.
//
// A lookup hits only if the entry was written for the caller's day and is younger
// than the expiry. Day equality is the primary check; the duration is a guard
// against clock anomalies.
type TTL[V any] struct {
	mu      sync.RWMutex
	entries map[string]Entry[V]
	expiry  time.Duration
	now     func() time.Time
}

// Option configures a TTL cache.
type Option func(*options)

type options struct {
	expiry time.Duration
	now    func() time.Time
}

// WithExpiry overrides DefaultExpiry.
func WithExpiry(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.expiry = d
		}
	}
}

// WithClock injects the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// New creates an empty cache.
func New[V any](opts ...Option) *TTL[V] {
	o := options{expiry: DefaultExpiry, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &TTL[V]{
		entries: make(map[string]Entry[V]),
		expiry:  o.expiry,
		now:     o.now,
	}
}

// Get returns the live entry for namespace on day, if any.
func (c *TTL[V]) Get(namespace string, day entity.Day) (Entry[V], bool) {
	c.mu.RLock()
	e, ok := c.entries[namespace]
	c.mu.RUnlock()

	if !ok || e.ValidForDay != day || c.now().Sub(e.WrittenAt) >= c.expiry {
		metrics.RecordCacheLookup(namespace, false)
		return Entry[V]{}, false
	}
	metrics.RecordCacheLookup(namespace, true)
	return e, true
}

// Put stores value for namespace on day, replacing any previous entry.
func (c *TTL[V]) Put(namespace string, day entity.Day, value V) {
	e := Entry[V]{
		Namespace:   namespace,
		Value:       value,
		WrittenAt:   c.now(),
		ValidForDay: day,
	}
	c.mu.Lock()
	c.entries[namespace] = e
	c.mu.Unlock()
}

// Expiry returns the configured entry lifetime.
func (c *TTL[V]) Expiry() time.Duration {
	return c.expiry
}
