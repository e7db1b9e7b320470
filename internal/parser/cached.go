package parser

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"meudinheiro/internal/cache"
	"meudinheiro/internal/core"
	"meudinheiro/internal/metrics"
)

// Cached wraps a Service so identical texts are parsed once. Concurrent
// requests for the same text share one model call. Advice is never cached.
type Cached struct {
	next    Service
	results *cache.LRUCache[Parsed]
	group   singleflight.Group
	metrics *metrics.Metrics
}

func NewCached(next Service, size int, ttl time.Duration, m *metrics.Metrics) *Cached {
	return &Cached{
		next:    next,
		results: cache.NewLRUCache[Parsed](size, ttl),
		metrics: m,
	}
}

// Results exposes the underlying cache for registration with a cleanup
// manager.
func (c *Cached) Results() *cache.LRUCache[Parsed] {
	return c.results
}

func (c *Cached) Parse(ctx context.Context, text string) (Parsed, error) {
	key := normalize(text)
	if key == "" {
		c.metrics.ParseRequested(metrics.ResultError)
		return Parsed{}, ErrEmptyInput
	}
	if p, ok := c.results.Get(key); ok {
		c.metrics.ParseRequested(metrics.ResultCached)
		return p, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		p, err := c.next.Parse(ctx, text)
		if err != nil {
			return Parsed{}, err
		}
		c.results.Set(key, p)
		return p, nil
	})
	if err != nil {
		c.metrics.ParseRequested(metrics.ResultError)
		return Parsed{}, err
	}
	c.metrics.ParseRequested(metrics.ResultOK)
	return v.(Parsed), nil
}

func (c *Cached) Advise(ctx context.Context, monthName string, txs []core.Transaction) (string, error) {
	return c.next.Advise(ctx, monthName, txs)
}

// normalize collapses whitespace. Case is kept: the model copies the
// user's casing into the description.
func normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
