package repository

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/portfolio-service/internal/apperrors"
	"github.com/ndewijer/portfolio-service/internal/model"
)

// portfolioRecord is the persisted shape of a portfolio. Only ledger state is
// stored; derived values are recomputed on every read.
type portfolioRecord struct {
	UserID       string              `json:"userId"`
	Cash         *decimal.Decimal    `json:"cash"`
	StartingCash *decimal.Decimal    `json:"startingCash,omitempty"`
	Positions    []positionRecord    `json:"positions"`
	Transactions []transactionRecord `json:"transactions"`
}

type positionRecord struct {
	Ticker       string           `json:"ticker"`
	Quantity     *decimal.Decimal `json:"quantity"`
	AvgCostBasis *decimal.Decimal `json:"avgCostBasis"`
	AddedAt      string           `json:"addedAt"`
}

type transactionRecord struct {
	ID        string           `json:"id"`
	Ticker    string           `json:"ticker"`
	Type      string           `json:"type"`
	Quantity  *decimal.Decimal `json:"quantity"`
	Price     *decimal.Decimal `json:"price"`
	Timestamp string           `json:"timestamp"`
	Fees      *decimal.Decimal `json:"fees,omitempty"`
}

func newRecord(p *model.Portfolio) portfolioRecord {
	rec := portfolioRecord{
		UserID:       p.UserID,
		Cash:         decimalPtr(p.Cash),
		Positions:    make([]positionRecord, len(p.Positions)),
		Transactions: make([]transactionRecord, len(p.Transactions)),
	}
	if p.StartingCash.Valid {
		rec.StartingCash = decimalPtr(p.StartingCash.Decimal)
	}
	for i, pos := range p.Positions {
		rec.Positions[i] = positionRecord{
			Ticker:       pos.Ticker,
			Quantity:     decimalPtr(pos.Quantity),
			AvgCostBasis: decimalPtr(pos.AvgCostBasis),
			AddedAt:      FormatTime(pos.AddedAt),
		}
	}
	for i, tx := range p.Transactions {
		rec.Transactions[i] = transactionRecord{
			ID:        tx.ID,
			Ticker:    tx.Ticker,
			Type:      string(tx.Type),
			Quantity:  decimalPtr(tx.Quantity),
			Price:     decimalPtr(tx.Price),
			Timestamp: FormatTime(tx.Timestamp),
			Fees:      decimalPtr(tx.Fees),
		}
	}
	return rec
}

// toModel validates the record and converts it. Any violation is reported as
// apperrors.ErrCorruptState naming the offending field.
func (r portfolioRecord) toModel(userID string) (*model.Portfolio, error) {
	corrupt := func(format string, args ...any) error {
		return fmt.Errorf("%w: user %s: %s", apperrors.ErrCorruptState, userID, fmt.Sprintf(format, args...))
	}

	if r.UserID != "" && r.UserID != userID {
		return nil, corrupt("record belongs to %q", r.UserID)
	}
	if r.Cash == nil {
		return nil, corrupt("cash is missing")
	}
	if r.Cash.IsNegative() {
		return nil, corrupt("cash %s is negative", r.Cash)
	}

	p := model.NewPortfolio(userID, *r.Cash)
	if r.StartingCash != nil {
		if r.StartingCash.IsNegative() {
			return nil, corrupt("starting cash %s is negative", r.StartingCash)
		}
		p.StartingCash = decimal.NewNullDecimal(*r.StartingCash)
	}

	seen := make(map[string]struct{}, len(r.Positions))
	for i, rec := range r.Positions {
		ticker := strings.TrimSpace(rec.Ticker)
		if ticker == "" {
			return nil, corrupt("position %d has no ticker", i)
		}
		if _, dup := seen[ticker]; dup {
			return nil, corrupt("duplicate position %s", ticker)
		}
		seen[ticker] = struct{}{}
		if rec.Quantity == nil || !rec.Quantity.IsPositive() {
			return nil, corrupt("position %s quantity must be positive", ticker)
		}
		if rec.AvgCostBasis == nil || rec.AvgCostBasis.IsNegative() {
			return nil, corrupt("position %s average cost basis is missing or negative", ticker)
		}
		addedAt, err := ParseTime(rec.AddedAt)
		if err != nil {
			return nil, corrupt("position %s: %v", ticker, err)
		}
		p.Positions = append(p.Positions, model.Position{
			Ticker:       ticker,
			Quantity:     *rec.Quantity,
			AvgCostBasis: *rec.AvgCostBasis,
			AddedAt:      addedAt,
		})
	}

	ids := make(map[string]struct{}, len(r.Transactions))
	for i, rec := range r.Transactions {
		if rec.ID == "" {
			return nil, corrupt("transaction %d has no id", i)
		}
		if _, dup := ids[rec.ID]; dup {
			return nil, corrupt("duplicate transaction id %s", rec.ID)
		}
		ids[rec.ID] = struct{}{}

		txType := model.TransactionType(rec.Type)
		if !txType.Valid() {
			return nil, corrupt("transaction %s has unknown type %q", rec.ID, rec.Type)
		}
		if strings.TrimSpace(rec.Ticker) == "" {
			return nil, corrupt("transaction %s has no ticker", rec.ID)
		}
		if rec.Quantity == nil || !rec.Quantity.IsPositive() {
			return nil, corrupt("transaction %s quantity must be positive", rec.ID)
		}
		if rec.Price == nil || !rec.Price.IsPositive() {
			return nil, corrupt("transaction %s price must be positive", rec.ID)
		}
		fees := decimal.Zero
		if rec.Fees != nil {
			if rec.Fees.IsNegative() {
				return nil, corrupt("transaction %s fees are negative", rec.ID)
			}
			fees = *rec.Fees
		}
		ts, err := ParseTime(rec.Timestamp)
		if err != nil {
			return nil, corrupt("transaction %s: %v", rec.ID, err)
		}
		p.Transactions = append(p.Transactions, model.Transaction{
			ID:        rec.ID,
			Ticker:    strings.TrimSpace(rec.Ticker),
			Type:      txType,
			Quantity:  *rec.Quantity,
			Price:     *rec.Price,
			Timestamp: ts,
			Fees:      fees,
		})
	}

	return p, nil
}

func decimalPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}
