package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/portfolio-service/internal/apperrors"
)

// FakePrices is an in-memory price source. Unknown tickers fail with
// apperrors.ErrPriceUnavailable. It is safe for concurrent use.
type FakePrices struct {
	mu     sync.Mutex
	prices map[string]decimal.Decimal
	errs   map[string]error
	delay  map[string]time.Duration
	calls  int
}

// NewFakePrices creates a FakePrices from ticker/price pairs such as "AAPL", "150".
func NewFakePrices(pairs ...string) *FakePrices {
	f := &FakePrices{
		prices: map[string]decimal.Decimal{},
		errs:   map[string]error{},
		delay:  map[string]time.Duration{},
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		f.Set(pairs[i], pairs[i+1])
	}
	return f
}

// Set sets the price of ticker.
func (f *FakePrices) Set(ticker, price string) *FakePrices {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[ticker] = decimal.RequireFromString(price)
	return f
}

// Fail makes lookups of ticker return err.
func (f *FakePrices) Fail(ticker string, err error) *FakePrices {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[ticker] = err
	return f
}

// Delay makes lookups of ticker wait d or until the context is done.
func (f *FakePrices) Delay(ticker string, d time.Duration) *FakePrices {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay[ticker] = d
	return f
}

// Calls reports the number of lookups so far.
func (f *FakePrices) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// GetPrice implements the price source interface.
func (f *FakePrices) GetPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	f.mu.Lock()
	f.calls++
	price, ok := f.prices[ticker]
	err := f.errs[ticker]
	delay := f.delay[ticker]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return decimal.Zero, ctx.Err()
		}
	}
	if err != nil {
		return decimal.Zero, err
	}
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", apperrors.ErrPriceUnavailable, ticker)
	}
	return price, nil
}
