package model

import "github.com/shopspring/decimal"

func init() {
	// Consumers expect JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}
