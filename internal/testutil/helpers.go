package testutil

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/portfolio-service/internal/aggregator"
	"github.com/ndewijer/portfolio-service/internal/service"
)

// StartingCash is the seed balance used by the test services.
var StartingCash = decimal.NewFromInt(100000)

// NewTestPortfolioService wires a PortfolioService around store and prices
// with the default starting cash and a short price timeout.
func NewTestPortfolioService(t *testing.T, store service.PortfolioStore, prices aggregator.PriceSource) *service.PortfolioService {
	t.Helper()

	agg := aggregator.New(prices, StartingCash, 200*time.Millisecond, zerolog.Nop())
	return service.NewPortfolioService(store, agg, StartingCash, zerolog.Nop())
}

func NewTestSystemService(t *testing.T, store service.Pinger) *service.SystemService {
	t.Helper()
	return service.NewSystemService(store)
}

// MakeID generates a UUID string for use in tests.
//
// Example usage:
//
//	id := testutil.MakeID()
//	// Returns: "0190e7c4-6a4b-7c8d-9e0f-1a2b3c4d5e6f"
func MakeID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// MakeSymbol generates a stock ticker symbol for testing.
//
// Example usage:
//
//	symbol := testutil.MakeSymbol("AAPL")
//	// Returns: "AAPL1A2B"
func MakeSymbol(base string) string {
	if base == "" {
		base = "TEST"
	}
	return base + randomAlphanumeric(4)
}

// randomAlphanumeric generates a random alphanumeric string of specified length.
func randomAlphanumeric(length int) string {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	result := make([]byte, length)
	for i := range result {
		//nolint:gosec // G404: Using math/rand for test data generation is acceptable
		result[i] = charset[rand.Intn(len(charset))]
	}
	return string(result)
}
