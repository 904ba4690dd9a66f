// Package ledger applies buy and sell trades to a portfolio using average
// cost basis accounting, and keeps the portfolio's transaction log.
package ledger

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/portfolio-service/internal/apperrors"
	"github.com/ndewijer/portfolio-service/internal/model"
	"github.com/ndewijer/portfolio-service/internal/validation"
)

// QuantityEpsilon is the residual below which a sold-down position is
// liquidated. Trade quantities are validated to at most 8 decimal places, so
// residuals this small only come from previously stored float quantities.
var QuantityEpsilon = decimal.New(1, -8)

// newID generates transaction ids. UUIDv7 ids sort by creation time.
var newID = func() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Trade is a single buy or sell instruction.
// Fees are added to the cost of a buy and deducted from the proceeds of a sell.
type Trade struct {
	Ticker   string
	Quantity decimal.Decimal
	Price    decimal.Decimal
	Fees     decimal.Decimal
}

// SellResult describes an executed sell.
type SellResult struct {
	Transaction model.Transaction
	RealizedPL  decimal.Decimal
	// Closed is true when the sell liquidated the whole position.
	Closed bool
}

// Buy debits cash and adds the trade to the ticker's position, recalculating
// the weighted average cost basis. A new position is opened on the first buy
// of a ticker. The portfolio is not modified when an error is returned.
func Buy(p *model.Portfolio, t Trade, now time.Time) (model.Transaction, error) {
	if err := validation.ValidateTrade(t.Ticker, t.Quantity, t.Price, t.Fees); err != nil {
		return model.Transaction{}, err
	}

	cost := t.Quantity.Mul(t.Price).Add(t.Fees)
	if p.Cash.LessThan(cost) {
		return model.Transaction{}, fmt.Errorf("%w: cost %s exceeds cash %s", apperrors.ErrInsufficientFunds, cost, p.Cash)
	}

	if i := p.PositionIndex(t.Ticker); i >= 0 {
		pos := &p.Positions[i]
		pos.AvgCostBasis = weightedAvg(pos.AvgCostBasis, pos.Quantity, cost, t.Quantity)
		pos.Quantity = pos.Quantity.Add(t.Quantity)
	} else {
		avgCost := t.Price
		if !t.Fees.IsZero() {
			avgCost = cost.Div(t.Quantity)
		}
		p.Positions = append(p.Positions, model.Position{
			Ticker:       t.Ticker,
			Quantity:     t.Quantity,
			AvgCostBasis: avgCost,
			AddedAt:      now,
		})
	}

	p.Cash = p.Cash.Sub(cost)

	tx := newTransaction(t, model.TransactionTypeBuy, now)
	Append(p, tx)
	return tx, nil
}

// Sell credits the proceeds to cash and reduces the ticker's position.
// The average cost basis of the remaining shares is unchanged. When the
// remaining quantity is within QuantityEpsilon of zero the position is
// removed, so a later buy starts a fresh cost basis.
// The portfolio is not modified when an error is returned.
func Sell(p *model.Portfolio, t Trade, now time.Time) (SellResult, error) {
	if err := validation.ValidateTrade(t.Ticker, t.Quantity, t.Price, t.Fees); err != nil {
		return SellResult{}, err
	}

	i := p.PositionIndex(t.Ticker)
	if i < 0 {
		return SellResult{}, fmt.Errorf("%w: %s", apperrors.ErrPositionNotFound, t.Ticker)
	}
	pos := p.Positions[i]

	if t.Quantity.GreaterThan(pos.Quantity) {
		return SellResult{}, fmt.Errorf("%w: selling %s %s but holding %s",
			apperrors.ErrInsufficientShares, t.Quantity, t.Ticker, pos.Quantity)
	}

	proceeds := t.Quantity.Mul(t.Price).Sub(t.Fees)
	cash := p.Cash.Add(proceeds)
	if cash.IsNegative() {
		return SellResult{}, fmt.Errorf("%w: fees %s exceed cash after sale", apperrors.ErrInsufficientFunds, t.Fees)
	}

	result := SellResult{
		RealizedPL: RealizedPL(pos.AvgCostBasis, t),
	}

	remaining := pos.Quantity.Sub(t.Quantity)
	if remaining.Abs().LessThanOrEqual(QuantityEpsilon) {
		p.Positions = slices.Delete(p.Positions, i, i+1)
		result.Closed = true
	} else {
		p.Positions[i].Quantity = remaining
	}

	p.Cash = cash

	result.Transaction = newTransaction(t, model.TransactionTypeSell, now)
	Append(p, result.Transaction)
	return result, nil
}

// RealizedPL is the gain or loss locked in by selling at t.Price shares
// acquired at avgCostBasis: quantity × (price − avgCostBasis) − fees.
func RealizedPL(avgCostBasis decimal.Decimal, t Trade) decimal.Decimal {
	return t.Quantity.Mul(t.Price.Sub(avgCostBasis)).Sub(t.Fees)
}

// weightedAvg folds addCost for addQty shares into a position of existingQty
// shares at existingAvg.
func weightedAvg(existingAvg, existingQty, addCost, addQty decimal.Decimal) decimal.Decimal {
	totalQty := existingQty.Add(addQty)
	if totalQty.IsZero() {
		return existingAvg
	}
	return existingAvg.Mul(existingQty).
		Add(addCost).
		Div(totalQty)
}

func newTransaction(t Trade, side model.TransactionType, now time.Time) model.Transaction {
	return model.Transaction{
		ID:        newID(),
		Ticker:    t.Ticker,
		Type:      side,
		Quantity:  t.Quantity,
		Price:     t.Price,
		Timestamp: now,
		Fees:      t.Fees,
	}
}
