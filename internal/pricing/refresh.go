package pricing

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// TickerLister enumerates the tickers currently held by any portfolio.
type TickerLister interface {
	HeldTickers(ctx context.Context) ([]string, error)
}

// RefreshJob keeps the cache warm for every held ticker so that portfolio
// reads rarely wait on the market data source.
type RefreshJob struct {
	cache       *Cache
	tickers     TickerLister
	concurrency int
	timeout     time.Duration
	log         zerolog.Logger
}

// NewRefreshJob creates a refresh job. concurrency bounds parallel upstream
// requests; timeout bounds a whole run.
func NewRefreshJob(cache *Cache, tickers TickerLister, concurrency int, timeout time.Duration, log zerolog.Logger) *RefreshJob {
	if concurrency < 1 {
		concurrency = 1
	}
	return &RefreshJob{
		cache:       cache,
		tickers:     tickers,
		concurrency: concurrency,
		timeout:     timeout,
		log:         log.With().Str("job", "price_refresh").Logger(),
	}
}

// Name identifies the job in scheduler logs.
func (j *RefreshJob) Name() string {
	return "price_refresh"
}

// Run refreshes all held tickers. A failing ticker is logged and skipped;
// only failing to list tickers fails the run.
func (j *RefreshJob) Run() error {
	ctx := context.Background()
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	tickers, err := j.tickers.HeldTickers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list held tickers: %w", err)
	}

	var failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(j.concurrency)
	for _, ticker := range tickers {
		g.Go(func() error {
			if err := j.cache.Refresh(ctx, ticker); err != nil {
				failed.Add(1)
				j.log.Warn().Err(err).Str("ticker", ticker).Msg("Failed to refresh price")
			}
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	j.log.Info().
		Int("tickers", len(tickers)).
		Int64("failed", failed.Load()).
		Msg("Price refresh completed")
	return nil
}
