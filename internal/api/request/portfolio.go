package request

import "github.com/shopspring/decimal"

// TradeRequest is the request body for buying or selling a ticker.
type TradeRequest struct {
	Ticker   string          `json:"ticker"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}
