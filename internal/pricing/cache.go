// Package pricing provides price sources layered on top of the market data
// client: a TTL cache, a fixed-price source and a background refresh job.
package pricing

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// Source supplies the current market price of a ticker.
type Source interface {
	GetPrice(ctx context.Context, ticker string) (decimal.Decimal, error)
}

type entry struct {
	price     decimal.Decimal
	fetchedAt time.Time
}

// Cache memoizes prices for ttl and collapses concurrent lookups of the same
// ticker into one upstream request. When the upstream fails, the last known
// price is served if there is one.
type Cache struct {
	source  Source
	ttl     time.Duration
	timeout time.Duration
	now     func() time.Time
	log     zerolog.Logger

	mu      sync.RWMutex
	entries map[string]entry
	group   singleflight.Group
}

// NewCache wraps source with a price cache. Upstream requests are shared by
// every waiting caller and are bounded by timeout rather than by the context
// of the caller that started them.
func NewCache(source Source, ttl, timeout time.Duration, log zerolog.Logger) *Cache {
	return &Cache{
		source:  source,
		ttl:     ttl,
		timeout: timeout,
		now:     time.Now,
		log:     log.With().Str("component", "price_cache").Logger(),
		entries: make(map[string]entry),
	}
}

// GetPrice returns the cached price of ticker, fetching it when missing or expired.
func (c *Cache) GetPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	if e, ok := c.lookup(ticker); ok && c.now().Sub(e.fetchedAt) < c.ttl {
		return e.price, nil
	}

	price, err := c.fetch(ctx, ticker)
	if err != nil {
		if e, ok := c.lookup(ticker); ok {
			c.log.Debug().
				Err(err).
				Str("ticker", ticker).
				Time("fetched_at", e.fetchedAt).
				Msg("Serving stale price")
			return e.price, nil
		}
		return decimal.Zero, err
	}
	return price, nil
}

// Refresh fetches ticker from the upstream source regardless of cache age.
func (c *Cache) Refresh(ctx context.Context, ticker string) error {
	_, err := c.fetch(ctx, ticker)
	return err
}

// Len returns the number of cached tickers.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) fetch(ctx context.Context, ticker string) (decimal.Decimal, error) {
	ch := c.group.DoChan(ticker, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		price, err := c.source.GetPrice(fetchCtx, ticker)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[ticker] = entry{price: price, fetchedAt: c.now()}
		c.mu.Unlock()
		return price, nil
	})

	select {
	case <-ctx.Done():
		return decimal.Zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return decimal.Zero, res.Err
		}
		return res.Val.(decimal.Decimal), nil
	}
}

func (c *Cache) lookup(ticker string) (entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[ticker]
	return e, ok
}
