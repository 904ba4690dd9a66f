package pricing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/portfolio-service/internal/apperrors"
)

// Static serves fixed prices. It is used for local development and tests.
type Static map[string]decimal.Decimal

// GetPrice returns the configured price of ticker.
func (s Static) GetPrice(_ context.Context, ticker string) (decimal.Decimal, error) {
	price, ok := s[ticker]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: no static price for %s", apperrors.ErrPriceUnavailable, ticker)
	}
	return price, nil
}

// ParseStatic builds a Static source from ticker → price strings.
func ParseStatic(prices map[string]string) (Static, error) {
	s := make(Static, len(prices))
	for ticker, raw := range prices {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid static price for %s: %w", ticker, err)
		}
		s[ticker] = price
	}
	return s, nil
}
