package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Portfolio is the complete simulated trading state of one user.
// Positions are ordered by first acquisition and are unique per ticker.
// Transactions are kept in execution order.
// The aggregate fields are derived on every read and are null until valued.
// StartingCash is the seed balance the user received; P&L is measured
// against it. It is null on records written before it was tracked.
type Portfolio struct {
	UserID         string              `json:"userId"`
	Cash           decimal.Decimal     `json:"cash"`
	StartingCash   decimal.NullDecimal `json:"startingCash"`
	Positions      []Position          `json:"positions"`
	Transactions   []Transaction       `json:"transactions"`
	TotalValue     decimal.NullDecimal `json:"totalValue"`
	TotalPL        decimal.NullDecimal `json:"totalPL"`
	TotalPLPercent decimal.NullDecimal `json:"totalPLPercent"`
}

// Position is a holding of a single ticker valued at its average cost basis.
// CurrentPrice, MarketValue, UnrealizedPL and UnrealizedPLPercent are display
// fields filled in by the aggregator.
type Position struct {
	Ticker              string              `json:"ticker"`
	Quantity            decimal.Decimal     `json:"quantity"`
	AvgCostBasis        decimal.Decimal     `json:"avgCostBasis"`
	CurrentPrice        decimal.NullDecimal `json:"currentPrice"`
	MarketValue         decimal.NullDecimal `json:"marketValue"`
	UnrealizedPL        decimal.NullDecimal `json:"unrealizedPL"`
	UnrealizedPLPercent decimal.NullDecimal `json:"unrealizedPLPercent"`
	AddedAt             time.Time           `json:"addedAt"`
}

// NewPortfolio seeds an empty portfolio with the given starting cash.
func NewPortfolio(userID string, startingCash decimal.Decimal) *Portfolio {
	return &Portfolio{
		UserID:       userID,
		Cash:         startingCash,
		Positions:    []Position{},
		Transactions: []Transaction{},
	}
}

// PositionIndex returns the index of the position for ticker, or -1.
func (p *Portfolio) PositionIndex(ticker string) int {
	for i := range p.Positions {
		if p.Positions[i].Ticker == ticker {
			return i
		}
	}
	return -1
}

// Position returns a copy of the position for ticker.
func (p *Portfolio) Position(ticker string) (Position, bool) {
	if i := p.PositionIndex(ticker); i >= 0 {
		return p.Positions[i], true
	}
	return Position{}, false
}

// Clone returns a deep copy so callers can mutate without touching the original.
func (p *Portfolio) Clone() *Portfolio {
	c := *p
	c.Positions = make([]Position, len(p.Positions))
	copy(c.Positions, p.Positions)
	c.Transactions = make([]Transaction, len(p.Transactions))
	copy(c.Transactions, p.Transactions)
	return &c
}

// ClearDerived drops every aggregate and display field.
// Stores persist the ledger state only.
func (p *Portfolio) ClearDerived() {
	p.TotalValue = decimal.NullDecimal{}
	p.TotalPL = decimal.NullDecimal{}
	p.TotalPLPercent = decimal.NullDecimal{}
	for i := range p.Positions {
		pos := &p.Positions[i]
		pos.CurrentPrice = decimal.NullDecimal{}
		pos.MarketValue = decimal.NullDecimal{}
		pos.UnrealizedPL = decimal.NullDecimal{}
		pos.UnrealizedPLPercent = decimal.NullDecimal{}
	}
}

// CostBasis is quantity times average cost basis.
func (pos Position) CostBasis() decimal.Decimal {
	return pos.Quantity.Mul(pos.AvgCostBasis)
}
