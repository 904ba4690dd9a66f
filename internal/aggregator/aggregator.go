// Package aggregator derives market values, unrealized P&L and portfolio
// totals from a portfolio's ledger state and live prices.
package aggregator

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/portfolio-service/internal/apperrors"
	"github.com/ndewijer/portfolio-service/internal/model"
)

var hundred = decimal.NewFromInt(100)

// PriceSource supplies the current market price of a ticker.
type PriceSource interface {
	GetPrice(ctx context.Context, ticker string) (decimal.Decimal, error)
}

// Aggregator values portfolios. It never mutates the portfolio it is given.
type Aggregator struct {
	prices       PriceSource
	startingCash decimal.Decimal
	timeout      time.Duration
	log          zerolog.Logger
}

// New creates an Aggregator. timeout bounds every single price lookup;
// zero disables the bound.
func New(prices PriceSource, startingCash decimal.Decimal, timeout time.Duration, log zerolog.Logger) *Aggregator {
	return &Aggregator{
		prices:       prices,
		startingCash: startingCash,
		timeout:      timeout,
		log:          log.With().Str("component", "aggregator").Logger(),
	}
}

// Value returns a copy of p with every position priced and the portfolio
// totals filled in.
//
// For each position:
//   - currentPrice from the price source, or avgCostBasis when unavailable
//   - marketValue = quantity × currentPrice
//   - unrealizedPL = marketValue − quantity × avgCostBasis
//   - unrealizedPLPercent = unrealizedPL / (quantity × avgCostBasis) × 100, 0 when the basis is 0
//
// Totals:
//   - totalValue = cash + Σ marketValue
//   - totalPL = totalValue − startingCash
//   - totalPLPercent = totalPL / startingCash × 100
//
// startingCash is the portfolio's own seed balance, or the configured one for
// portfolios that do not record it.
func (a *Aggregator) Value(ctx context.Context, p *model.Portfolio) *model.Portfolio {
	valued := p.Clone()

	totalValue := valued.Cash
	for i := range valued.Positions {
		pos := &valued.Positions[i]

		price := a.currentPrice(ctx, *pos)
		marketValue := pos.Quantity.Mul(price)
		costBasis := pos.CostBasis()
		unrealized := marketValue.Sub(costBasis)

		pos.CurrentPrice = decimal.NewNullDecimal(price)
		pos.MarketValue = decimal.NewNullDecimal(marketValue)
		pos.UnrealizedPL = decimal.NewNullDecimal(unrealized)
		pos.UnrealizedPLPercent = decimal.NewNullDecimal(percentOf(unrealized, costBasis))

		totalValue = totalValue.Add(marketValue)
	}

	startingCash := a.baseline(valued)
	totalPL := totalValue.Sub(startingCash)
	valued.TotalValue = decimal.NewNullDecimal(totalValue)
	valued.TotalPL = decimal.NewNullDecimal(totalPL)
	valued.TotalPLPercent = decimal.NewNullDecimal(percentOf(totalPL, startingCash))

	return valued
}

// Performance values p and summarizes its returns.
func (a *Aggregator) Performance(ctx context.Context, p *model.Portfolio) model.Performance {
	return a.Summarize(a.Value(ctx, p))
}

// Summarize builds the performance report of an already valued portfolio.
func (a *Aggregator) Summarize(valued *model.Portfolio) model.Performance {
	currentValue := valued.TotalValue.Decimal
	totalPL := valued.TotalPL.Decimal
	startingCash := a.baseline(valued)

	perf := model.Performance{
		InitialValue:   startingCash,
		CurrentValue:   currentValue,
		TotalReturn:    percentOf(currentValue.Sub(startingCash), startingCash),
		TotalValue:     currentValue,
		TotalPL:        totalPL,
		TotalPLPercent: valued.TotalPLPercent.Decimal,
		Cash:           valued.Cash,
		InvestedValue:  currentValue.Sub(valued.Cash),
		Positions:      make([]model.PositionPerformance, 0, len(valued.Positions)),
	}

	for _, pos := range valued.Positions {
		perf.Positions = append(perf.Positions, model.PositionPerformance{
			Ticker:              pos.Ticker,
			Quantity:            pos.Quantity,
			AvgCostBasis:        pos.AvgCostBasis,
			CurrentPrice:        pos.CurrentPrice.Decimal,
			CostBasis:           pos.CostBasis(),
			MarketValue:         pos.MarketValue.Decimal,
			UnrealizedPL:        pos.UnrealizedPL.Decimal,
			UnrealizedPLPercent: pos.UnrealizedPLPercent.Decimal,
			Weight:              percentOf(pos.MarketValue.Decimal, currentValue),
		})
	}

	return perf
}

func (a *Aggregator) baseline(p *model.Portfolio) decimal.Decimal {
	if p.StartingCash.Valid {
		return p.StartingCash.Decimal
	}
	return a.startingCash
}

// currentPrice looks up the market price of pos. A failed, timed out or
// non-positive lookup falls back to the average cost basis so that one
// unreachable price does not block valuing the rest of the portfolio.
func (a *Aggregator) currentPrice(ctx context.Context, pos model.Position) decimal.Decimal {
	price, err := a.lookup(ctx, pos.Ticker)
	if err == nil && !price.IsPositive() {
		err = fmt.Errorf("%w: non-positive price %s", apperrors.ErrPriceUnavailable, price)
	}
	if err != nil {
		a.log.Warn().
			Err(err).
			Str("ticker", pos.Ticker).
			Str("fallback_price", pos.AvgCostBasis.String()).
			Msg("Price unavailable, using cost basis")
		return pos.AvgCostBasis
	}

	return price
}

// lookup queries the price source, giving up after the configured timeout
// even when the source ignores context cancellation.
func (a *Aggregator) lookup(ctx context.Context, ticker string) (decimal.Decimal, error) {
	if a.timeout <= 0 {
		return a.prices.GetPrice(ctx, ticker)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	type result struct {
		price decimal.Decimal
		err   error
	}
	done := make(chan result, 1)
	go func() {
		price, err := a.prices.GetPrice(ctx, ticker)
		done <- result{price: price, err: err}
	}()

	select {
	case r := <-done:
		return r.price, r.err
	case <-ctx.Done():
		return decimal.Zero, fmt.Errorf("%w: %s: %w", apperrors.ErrPriceUnavailable, ticker, ctx.Err())
	}
}

// percentOf returns part / whole × 100, or 0 when whole is 0.
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}
