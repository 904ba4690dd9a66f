package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/portfolio-service/internal/model"
)

// Store is the subset of a portfolio store the builders need.
type Store interface {
	Save(ctx context.Context, p *model.Portfolio) error
}

// PortfolioBuilder provides a fluent interface for creating test portfolios.
//
// Example usage:
//
//	// Simple creation with defaults
//	portfolio := testutil.NewPortfolio().Build()
//
//	// Customized portfolio, persisted
//	portfolio := testutil.NewPortfolio().
//	    WithUserID("user_1").
//	    WithCash("98500").
//	    WithPosition("AAPL", "10", "150").
//	    Save(t, store)
type PortfolioBuilder struct {
	UserID       string
	Cash         decimal.Decimal
	StartingCash decimal.NullDecimal
	Positions    []model.Position
	Transactions []model.Transaction
	Now          time.Time
}

// NewPortfolio creates a PortfolioBuilder with sensible defaults.
func NewPortfolio() *PortfolioBuilder {
	return &PortfolioBuilder{
		UserID: "user_" + randomAlphanumeric(6),
		Cash:   decimal.NewFromInt(100000),
		Now:    time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC),
	}
}

// WithUserID sets a custom user id.
func (b *PortfolioBuilder) WithUserID(userID string) *PortfolioBuilder {
	b.UserID = userID
	return b
}

// WithCash sets the cash balance.
func (b *PortfolioBuilder) WithCash(cash string) *PortfolioBuilder {
	b.Cash = decimal.RequireFromString(cash)
	return b
}

// WithStartingCash records the seed balance the portfolio was opened with.
func (b *PortfolioBuilder) WithStartingCash(cash string) *PortfolioBuilder {
	b.StartingCash = decimal.NewNullDecimal(decimal.RequireFromString(cash))
	return b
}

// WithPosition adds a position and the buy transaction that opened it.
// Cash is left alone; set it explicitly with WithCash.
func (b *PortfolioBuilder) WithPosition(ticker, quantity, avgCostBasis string) *PortfolioBuilder {
	qty := decimal.RequireFromString(quantity)
	avg := decimal.RequireFromString(avgCostBasis)
	b.Now = b.Now.Add(time.Minute)

	b.Positions = append(b.Positions, model.Position{
		Ticker:       ticker,
		Quantity:     qty,
		AvgCostBasis: avg,
		AddedAt:      b.Now,
	})
	b.Transactions = append(b.Transactions, model.Transaction{
		ID:        MakeID(),
		Ticker:    ticker,
		Type:      model.TransactionTypeBuy,
		Quantity:  qty,
		Price:     avg,
		Timestamp: b.Now,
		Fees:      decimal.Zero,
	})
	return b
}

// Build returns the portfolio without persisting it.
func (b *PortfolioBuilder) Build() *model.Portfolio {
	p := model.NewPortfolio(b.UserID, b.Cash)
	p.StartingCash = b.StartingCash
	p.Positions = append(p.Positions, b.Positions...)
	p.Transactions = append(p.Transactions, b.Transactions...)
	return p
}

// Save builds the portfolio and persists it to store.
func (b *PortfolioBuilder) Save(t *testing.T, store Store) *model.Portfolio {
	t.Helper()

	p := b.Build()
	if err := store.Save(context.Background(), p); err != nil {
		t.Fatalf("Failed to save test portfolio: %v", err)
	}
	return p
}
