package model

import "github.com/shopspring/decimal"

// Performance summarizes the returns of a portfolio against its starting cash.
type Performance struct {
	InitialValue   decimal.Decimal       `json:"initialValue"`
	CurrentValue   decimal.Decimal       `json:"currentValue"`
	TotalReturn    decimal.Decimal       `json:"totalReturn"`
	TotalValue     decimal.Decimal       `json:"totalValue"`
	TotalPL        decimal.Decimal       `json:"totalPL"`
	TotalPLPercent decimal.Decimal       `json:"totalPLPercent"`
	Cash           decimal.Decimal       `json:"cash"`
	InvestedValue  decimal.Decimal       `json:"investedValue"`
	Positions      []PositionPerformance `json:"positions"`
}

// PositionPerformance is the return of a single holding.
// Weight is the share of the holding's market value in the total portfolio value, in percent.
type PositionPerformance struct {
	Ticker              string          `json:"ticker"`
	Quantity            decimal.Decimal `json:"quantity"`
	AvgCostBasis        decimal.Decimal `json:"avgCostBasis"`
	CurrentPrice        decimal.Decimal `json:"currentPrice"`
	CostBasis           decimal.Decimal `json:"costBasis"`
	MarketValue         decimal.Decimal `json:"marketValue"`
	UnrealizedPL        decimal.Decimal `json:"unrealizedPL"`
	UnrealizedPLPercent decimal.Decimal `json:"unrealizedPLPercent"`
	Weight              decimal.Decimal `json:"weight"`
}
