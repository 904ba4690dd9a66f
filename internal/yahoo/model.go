package yahoo

import "time"

// Response represents the raw JSON response structure from the Yahoo Finance chart API.
// Quote values are pointers because Yahoo reports null for intervals without trades.
type Response struct {
	Chart Chart `json:"chart"`
}

// Chart is the top level object of a chart response.
type Chart struct {
	Result []Result `json:"result"`
	Error  *Error   `json:"error"`
}

// Error is the error object Yahoo returns for unknown symbols and bad ranges.
type Error struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Result holds the series of a single symbol.
type Result struct {
	Meta       Meta                `json:"meta"`
	Timestamp  []int64             `json:"timestamp"`
	Indicators IndicatorsContainer `json:"indicators"`
}

// Meta is the symbol metadata of a chart result.
type Meta struct {
	Currency           string   `json:"currency"`
	Symbol             string   `json:"symbol"`
	ExchangeName       string   `json:"exchangeName"`
	FullExchangeName   string   `json:"fullExchangeName"`
	LongName           string   `json:"longName"`
	Shortname          string   `json:"shortName"`
	RegularMarketPrice *float64 `json:"regularMarketPrice"`
}

// IndicatorsContainer wraps the quote series.
type IndicatorsContainer struct {
	Quote []Quote `json:"quote"`
}

// Quote holds OHLCV arrays aligned with Result.Timestamp.
type Quote struct {
	Open   []*float64 `json:"open"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
}

// PriceChart represents a parsed and structured price chart.
// Days without a close price are skipped.
type PriceChart struct {
	Currency         string       `json:"currency"`
	Symbol           string       `json:"symbol"`
	ExchangeName     string       `json:"exchangeName"`
	FullExchangeName string       `json:"fullExchangeName"`
	LongName         string       `json:"longName"`
	Shortname        string       `json:"shortName"`
	Indicators       []Indicators `json:"indicators"`
}

// Indicators represents a single day's price data for a ticker.
type Indicators struct {
	Date       time.Time
	PriceOpen  float64
	PriceClose float64
	Volume     int64
	PriceHigh  float64
	PriceLow   float64
}
