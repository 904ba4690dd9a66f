package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the side of an executed trade.
type TransactionType string

const (
	TransactionTypeBuy  TransactionType = "buy"
	TransactionTypeSell TransactionType = "sell"
)

// Valid reports whether t is one of the known trade sides.
func (t TransactionType) Valid() bool {
	return t == TransactionTypeBuy || t == TransactionTypeSell
}

// Transaction is an immutable record of an executed buy or sell.
// Fees is reserved and currently always zero for trades placed over HTTP.
type Transaction struct {
	ID        string          `json:"id"`
	Ticker    string          `json:"ticker"`
	Type      TransactionType `json:"type"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
	Fees      decimal.Decimal `json:"fees"`
}
