package validation

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/portfolio-service/internal/api/request"
	"github.com/ndewijer/portfolio-service/internal/apperrors"
)

func TestValidateTicker(t *testing.T) {
	valid := []string{"AAPL", "BRK.B", "RDS-A", "^GSPC", "EURUSD=X", "7203", "A"}
	for _, ticker := range valid {
		t.Run(ticker, func(t *testing.T) {
			assert.NoError(t, ValidateTicker(ticker))
		})
	}

	invalid := []string{"", "aapl", "AA PL", ".AAPL", "AAPL;DROP", "ABCDEFGHIJKLMNOPQ"}
	for _, ticker := range invalid {
		t.Run("rejects "+ticker, func(t *testing.T) {
			err := ValidateTicker(ticker)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		})
	}
}

func TestNormalizeTicker(t *testing.T) {
	assert.Equal(t, "AAPL", NormalizeTicker("  aapl "))
	assert.Equal(t, "BRK.B", NormalizeTicker("brk.b"))
}

func TestValidateTrade(t *testing.T) {
	d := decimal.RequireFromString

	t.Run("accepts fractional quantities", func(t *testing.T) {
		assert.NoError(t, ValidateTrade("AAPL", d("0.5"), d("150"), decimal.Zero))
	})

	t.Run("collects every problem", func(t *testing.T) {
		err := ValidateTrade("", d("0"), d("-1"), d("-0.01"))
		require.ErrorIs(t, err, apperrors.ErrInvalidInput)

		var verr *Error
		require.True(t, errors.As(err, &verr))
		assert.Len(t, verr.Fields, 4)
		assert.Contains(t, verr.Fields, "ticker")
		assert.Contains(t, verr.Fields, "quantity")
		assert.Contains(t, verr.Fields, "price")
		assert.Contains(t, verr.Fields, "fees")
		assert.Equal(t,
			"fees: fees cannot be negative; price: price must be positive; quantity: quantity must be positive; ticker: ticker is required",
			err.Error())
	})

	t.Run("accepts the finest and largest amounts", func(t *testing.T) {
		assert.NoError(t, ValidateTrade("AAPL", d("0.00000001"), d("1000000000000000"), d("0.00000001")))
		assert.NoError(t, ValidateTrade("AAPL", d("1.50000000000"), d("150.0"), decimal.Zero))
	})

	t.Run("rejects amounts outside scale and magnitude limits", func(t *testing.T) {
		tests := []struct {
			name     string
			quantity string
			price    string
			fees     string
			field    string
		}{
			{"quantity below one hundred millionth", "0.000000001", "150", "0", "quantity"},
			{"extreme negative exponent", "1e-20000000", "150", "0", "quantity"},
			{"extreme positive exponent", "1e20000000", "150", "0", "quantity"},
			{"quantity above the cap", "1000000000000001", "1", "0", "quantity"},
			{"price too fine", "1", "150.000000001", "0", "price"},
			{"price extreme exponent", "1", "15e-99999999", "0", "price"},
			{"price above the cap", "1", "2e15", "0", "price"},
			{"fees too fine", "1", "150", "0.000000001", "fees"},
			{"fees extreme exponent", "1", "150", "1e-5000000", "fees"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := ValidateTrade("AAPL", d(tt.quantity), d(tt.price), d(tt.fees))
				require.ErrorIs(t, err, apperrors.ErrInvalidInput)

				var verr *Error
				require.True(t, errors.As(err, &verr))
				assert.Len(t, verr.Fields, 1)
				assert.Contains(t, verr.Fields, tt.field)
			})
		}
	})

	t.Run("request body", func(t *testing.T) {
		err := ValidateTradeRequest(request.TradeRequest{Ticker: "AAPL", Quantity: d("10"), Price: d("0")})

		var verr *Error
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, map[string]string{"price": "price must be positive"}, verr.Fields)
	})
}
