package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/portfolio-service/internal/aggregator"
	"github.com/ndewijer/portfolio-service/internal/apperrors"
	"github.com/ndewijer/portfolio-service/internal/ledger"
	"github.com/ndewijer/portfolio-service/internal/model"
	"github.com/ndewijer/portfolio-service/internal/service"
	"github.com/ndewijer/portfolio-service/internal/testutil"
)

func trade(ticker, quantity, price string) ledger.Trade {
	return ledger.Trade{
		Ticker:   ticker,
		Quantity: decimal.RequireFromString(quantity),
		Price:    decimal.RequireFromString(price),
	}
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

// failingStore wraps a store and fails Save on demand.
type failingStore struct {
	service.PortfolioStore
	saveErr error
	loadErr error
}

func (s *failingStore) Save(ctx context.Context, p *model.Portfolio) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.PortfolioStore.Save(ctx, p)
}

func (s *failingStore) Load(ctx context.Context, userID string) (*model.Portfolio, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.PortfolioStore.Load(ctx, userID)
}

func TestPortfolioService_GetPortfolio(t *testing.T) {
	t.Run("seeds and persists a new user", func(t *testing.T) {
		store, _ := testutil.NewTestFileStore(t)
		svc := testutil.NewTestPortfolioService(t, store, testutil.NewFakePrices())

		p, err := svc.GetPortfolio(context.Background(), "user_1")
		require.NoError(t, err)

		assert.Equal(t, "user_1", p.UserID)
		assertDecimal(t, "100000", p.Cash)
		assert.Empty(t, p.Positions)
		assert.Empty(t, p.Transactions)
		assertDecimal(t, "100000", p.TotalValue.Decimal)
		assertDecimal(t, "0", p.TotalPL.Decimal)

		stored, err := store.Load(context.Background(), "user_1")
		require.NoError(t, err)
		assertDecimal(t, "100000", stored.Cash)
	})

	t.Run("values positions at live prices", func(t *testing.T) {
		store, _ := testutil.NewTestSQLiteStore(t)
		testutil.NewPortfolio().
			WithUserID("user_1").
			WithCash("98500").
			WithPosition("AAPL", "10", "150").
			Save(t, store)
		svc := testutil.NewTestPortfolioService(t, store, testutil.NewFakePrices("AAPL", "160"))

		p, err := svc.GetPortfolio(context.Background(), "user_1")
		require.NoError(t, err)

		require.Len(t, p.Positions, 1)
		pos := p.Positions[0]
		assertDecimal(t, "160", pos.CurrentPrice.Decimal)
		assertDecimal(t, "1600", pos.MarketValue.Decimal)
		assertDecimal(t, "100", pos.UnrealizedPL.Decimal)
		assertDecimal(t, "100100", p.TotalValue.Decimal)
		assertDecimal(t, "100", p.TotalPL.Decimal)
	})

	t.Run("reports corrupt state", func(t *testing.T) {
		store, _ := testutil.NewTestFileStore(t)
		wrapped := &failingStore{PortfolioStore: store, loadErr: apperrors.ErrCorruptState}
		svc := testutil.NewTestPortfolioService(t, wrapped, testutil.NewFakePrices())

		_, err := svc.GetPortfolio(context.Background(), "user_1")
		assert.ErrorIs(t, err, apperrors.ErrCorruptState)
	})
}

func TestPortfolioService_BuySell(t *testing.T) {
	t.Run("AAPL round trip", func(t *testing.T) {
		store, _ := testutil.NewTestFileStore(t)
		prices := testutil.NewFakePrices("AAPL", "150")
		svc := testutil.NewTestPortfolioService(t, store, prices)
		ctx := context.Background()

		bought, err := svc.Buy(ctx, "user_1", trade("AAPL", "10", "150"))
		require.NoError(t, err)
		assertDecimal(t, "98500", bought.Portfolio.Cash)
		assert.False(t, bought.RealizedPL.Valid)
		assert.Equal(t, model.TransactionTypeBuy, bought.Transaction.Type)

		_, err = svc.Buy(ctx, "user_1", trade("AAPL", "10", "170"))
		require.NoError(t, err)

		sold, err := svc.Sell(ctx, "user_1", trade("AAPL", "5", "155"))
		require.NoError(t, err)
		assertDecimal(t, "97575", sold.Portfolio.Cash)
		assertDecimal(t, "-25", sold.RealizedPL.Decimal)
		require.Len(t, sold.Portfolio.Positions, 1)
		assertDecimal(t, "15", sold.Portfolio.Positions[0].Quantity)
		assertDecimal(t, "160", sold.Portfolio.Positions[0].AvgCostBasis)

		sold, err = svc.Sell(ctx, "user_1", trade("AAPL", "15", "155"))
		require.NoError(t, err)
		assertDecimal(t, "99900", sold.Portfolio.Cash)
		assert.Empty(t, sold.Portfolio.Positions)

		txs, err := svc.Transactions(ctx, "user_1")
		require.NoError(t, err)
		require.Len(t, txs, 4)
		assert.Equal(t, bought.Transaction.ID, txs[0].ID)
		assert.Equal(t, sold.Transaction.ID, txs[3].ID)
	})

	t.Run("normalizes tickers", func(t *testing.T) {
		store, _ := testutil.NewTestFileStore(t)
		svc := testutil.NewTestPortfolioService(t, store, testutil.NewFakePrices())

		result, err := svc.Buy(context.Background(), "user_1", trade(" aapl ", "1", "100"))
		require.NoError(t, err)

		assert.Equal(t, "AAPL", result.Transaction.Ticker)
		assert.Equal(t, "AAPL", result.Portfolio.Positions[0].Ticker)
	})

	t.Run("rejected trades leave the store untouched", func(t *testing.T) {
		store, _ := testutil.NewTestFileStore(t)
		svc := testutil.NewTestPortfolioService(t, store, testutil.NewFakePrices())
		ctx := context.Background()

		_, err := svc.Buy(ctx, "user_1", trade("AAPL", "10", "150"))
		require.NoError(t, err)

		_, err = svc.Buy(ctx, "user_1", trade("AAPL", "1000", "150"))
		assert.ErrorIs(t, err, apperrors.ErrInsufficientFunds)

		_, err = svc.Sell(ctx, "user_1", trade("AAPL", "11", "150"))
		assert.ErrorIs(t, err, apperrors.ErrInsufficientShares)

		_, err = svc.Sell(ctx, "user_1", trade("MSFT", "1", "150"))
		assert.ErrorIs(t, err, apperrors.ErrPositionNotFound)

		_, err = svc.Buy(ctx, "user_1", trade("AAPL", "-1", "150"))
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

		stored, err := store.Load(ctx, "user_1")
		require.NoError(t, err)
		assertDecimal(t, "98500", stored.Cash)
		assert.Len(t, stored.Transactions, 1)
	})

	t.Run("sell on an unseen user is position not found", func(t *testing.T) {
		store, _ := testutil.NewTestFileStore(t)
		svc := testutil.NewTestPortfolioService(t, store, testutil.NewFakePrices())

		_, err := svc.Sell(context.Background(), "nobody", trade("AAPL", "1", "150"))
		assert.ErrorIs(t, err, apperrors.ErrPositionNotFound)
	})

	t.Run("failed save keeps the previous state", func(t *testing.T) {
		store, _ := testutil.NewTestFileStore(t)
		wrapped := &failingStore{PortfolioStore: store}
		svc := testutil.NewTestPortfolioService(t, wrapped, testutil.NewFakePrices())
		ctx := context.Background()

		_, err := svc.Buy(ctx, "user_1", trade("AAPL", "10", "150"))
		require.NoError(t, err)

		wrapped.saveErr = errors.New("disk full")
		_, err = svc.Buy(ctx, "user_1", trade("AAPL", "10", "150"))
		require.Error(t, err)
		assert.Equal(t, "Internal", apperrors.Kind(err))

		wrapped.saveErr = nil
		p, err := svc.GetPortfolio(ctx, "user_1")
		require.NoError(t, err)
		assertDecimal(t, "98500", p.Cash)
		assertDecimal(t, "10", p.Positions[0].Quantity)
	})

	t.Run("stored state carries no derived fields", func(t *testing.T) {
		store, _ := testutil.NewTestFileStore(t)
		svc := testutil.NewTestPortfolioService(t, store, testutil.NewFakePrices("AAPL", "200"))

		result, err := svc.Buy(context.Background(), "user_1", trade("AAPL", "10", "150"))
		require.NoError(t, err)
		assert.True(t, result.Portfolio.TotalValue.Valid)

		stored, err := store.Load(context.Background(), "user_1")
		require.NoError(t, err)
		assert.False(t, stored.TotalValue.Valid)
		assert.False(t, stored.Positions[0].CurrentPrice.Valid)
	})
}

func TestPortfolioService_Concurrency(t *testing.T) {
	t.Run("concurrent buys for one user are all applied", func(t *testing.T) {
		store, _ := testutil.NewTestFileStore(t)
		svc := testutil.NewTestPortfolioService(t, store, testutil.NewFakePrices())
		ctx := context.Background()

		const n = 20
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.Buy(ctx, "user_1", trade("AAPL", "1", "100"))
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		p, err := svc.GetPortfolio(ctx, "user_1")
		require.NoError(t, err)
		assertDecimal(t, "98000", p.Cash)
		assertDecimal(t, "20", p.Positions[0].Quantity)
		assert.Len(t, p.Transactions, n)
	})

	t.Run("different users share one store", func(t *testing.T) {
		store, _ := testutil.NewTestSQLiteStore(t)
		svc := testutil.NewTestPortfolioService(t, store, testutil.NewFakePrices())
		ctx := context.Background()

		users := []string{"a", "b", "c", "d"}
		var wg sync.WaitGroup
		for _, user := range users {
			for i := 0; i < 5; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := svc.Buy(ctx, user, trade("MSFT", "2", "50"))
					assert.NoError(t, err)
				}()
			}
		}
		wg.Wait()

		for _, user := range users {
			p, err := svc.GetPortfolio(ctx, user)
			require.NoError(t, err)
			assertDecimal(t, "99500", p.Cash)
			assertDecimal(t, "10", p.Positions[0].Quantity)
		}
	})
}

func TestPortfolioService_Reads(t *testing.T) {
	t.Run("transactions of an unseen user are empty and not persisted", func(t *testing.T) {
		store, _ := testutil.NewTestFileStore(t)
		svc := testutil.NewTestPortfolioService(t, store, testutil.NewFakePrices())

		txs, err := svc.Transactions(context.Background(), "ghost")
		require.NoError(t, err)
		assert.NotNil(t, txs)
		assert.Empty(t, txs)

		_, err = store.Load(context.Background(), "ghost")
		assert.ErrorIs(t, err, apperrors.ErrPortfolioNotFound)
	})

	t.Run("performance report", func(t *testing.T) {
		store, _ := testutil.NewTestFileStore(t)
		testutil.NewPortfolio().
			WithUserID("user_1").
			WithCash("97000").
			WithPosition("AAPL", "10", "150").
			WithPosition("MSFT", "5", "300").
			Save(t, store)
		svc := testutil.NewTestPortfolioService(t, store, testutil.NewFakePrices("AAPL", "160", "MSFT", "290"))

		perf, err := svc.Performance(context.Background(), "user_1")
		require.NoError(t, err)

		assertDecimal(t, "100000", perf.InitialValue)
		assertDecimal(t, "100050", perf.CurrentValue)
		assertDecimal(t, "0.05", perf.TotalReturn)
		assertDecimal(t, "3050", perf.InvestedValue)
		require.Len(t, perf.Positions, 2)
		assert.Equal(t, "AAPL", perf.Positions[0].Ticker)
	})

	t.Run("held tickers across users", func(t *testing.T) {
		store, _ := testutil.NewTestFileStore(t)
		testutil.NewPortfolio().WithUserID("a").WithPosition("MSFT", "1", "1").WithPosition("AAPL", "1", "1").Save(t, store)
		testutil.NewPortfolio().WithUserID("b").WithPosition("AAPL", "2", "1").Save(t, store)
		testutil.NewPortfolio().WithUserID("c").Save(t, store)
		svc := testutil.NewTestPortfolioService(t, store, testutil.NewFakePrices())

		tickers, err := svc.HeldTickers(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"AAPL", "MSFT"}, tickers)
	})
}

func TestPortfolioService_StartingCash(t *testing.T) {
	newService := func(store service.PortfolioStore, startingCash string) *service.PortfolioService {
		cash := decimal.RequireFromString(startingCash)
		agg := aggregator.New(testutil.NewFakePrices(), cash, time.Second, zerolog.Nop())
		return service.NewPortfolioService(store, agg, cash, zerolog.Nop())
	}

	t.Run("seed balance survives a configuration change", func(t *testing.T) {
		store, _ := testutil.NewTestSQLiteStore(t)
		_, err := newService(store, "100000").GetPortfolio(context.Background(), "user_1")
		require.NoError(t, err)

		p, err := newService(store, "250000").GetPortfolio(context.Background(), "user_1")
		require.NoError(t, err)

		assertDecimal(t, "100000", p.StartingCash.Decimal)
		assertDecimal(t, "100000", p.TotalValue.Decimal)
		assertDecimal(t, "0", p.TotalPL.Decimal)
	})

	t.Run("records without a seed balance adopt the configured one on save", func(t *testing.T) {
		store, _ := testutil.NewTestFileStore(t)
		testutil.NewPortfolio().WithUserID("user_1").WithCash("100000").Save(t, store)
		svc := newService(store, "100000")

		_, err := svc.Buy(context.Background(), "user_1", trade("AAPL", "1", "100"))
		require.NoError(t, err)

		stored, err := store.Load(context.Background(), "user_1")
		require.NoError(t, err)
		require.True(t, stored.StartingCash.Valid)
		assertDecimal(t, "100000", stored.StartingCash.Decimal)
	})
}
