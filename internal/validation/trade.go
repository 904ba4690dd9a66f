package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/portfolio-service/internal/api/request"
)

// tickerPattern accepts exchange symbols such as AAPL, BRK.B, RDS-A, ^GSPC and EURUSD=X.
var tickerPattern = regexp.MustCompile(`^\^?[A-Z0-9][A-Z0-9.\-]{0,14}(=[A-Z])?$`)

// MaxDecimalPlaces is the finest scale accepted for trade quantities, prices and fees.
// The smallest tradable quantity, 0.00000001, matches the ledger's quantity epsilon.
const MaxDecimalPlaces = 8

// maxExponentSpread bounds the decimal exponent before any arithmetic is done on
// a value, since comparing decimals of very different exponents is expensive.
const maxExponentSpread = 32

// MaxTradeValue is the largest accepted quantity, price or fee.
var MaxTradeValue = decimal.New(1, 15)

// NormalizeTicker trims and upper-cases a ticker symbol.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// ValidateTicker checks that a normalized ticker looks like an exchange symbol.
func ValidateTicker(ticker string) error {
	if msg := tickerProblem(ticker); msg != "" {
		return &Error{Fields: map[string]string{"ticker": msg}}
	}
	return nil
}

func tickerProblem(ticker string) string {
	if ticker == "" {
		return "ticker is required"
	}
	if !tickerPattern.MatchString(ticker) {
		return "invalid ticker format: " + ticker
	}
	return ""
}

// ValidateTrade validates the inputs of a ledger buy or sell.
//
// Rules:
//   - ticker: required, exchange symbol format
//   - quantity: must be positive (fractional allowed)
//   - price: must be positive
//   - fees: must not be negative
//   - all amounts: at most MaxDecimalPlaces decimal places, at most MaxTradeValue
//
// Returns a validation Error with field-specific error messages if validation fails.
func ValidateTrade(ticker string, quantity, price, fees decimal.Decimal) error {
	errors := make(map[string]string)

	if msg := tickerProblem(ticker); msg != "" {
		errors["ticker"] = msg
	}

	if !quantity.IsPositive() {
		errors["quantity"] = "quantity must be positive"
	} else if msg := amountProblem("quantity", quantity); msg != "" {
		errors["quantity"] = msg
	}

	if !price.IsPositive() {
		errors["price"] = "price must be positive"
	} else if msg := amountProblem("price", price); msg != "" {
		errors["price"] = msg
	}

	if fees.IsNegative() {
		errors["fees"] = "fees cannot be negative"
	} else if msg := amountProblem("fees", fees); msg != "" {
		errors["fees"] = msg
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}

// amountProblem checks the scale and magnitude of a non-negative amount.
// The exponent is checked first so that no rescaling happens on extreme values.
func amountProblem(field string, d decimal.Decimal) string {
	if exp := d.Exponent(); exp < -maxExponentSpread || exp > maxExponentSpread {
		return field + " is out of range"
	}
	if !d.Equal(d.Truncate(MaxDecimalPlaces)) {
		return fmt.Sprintf("%s must have at most %d decimal places", field, MaxDecimalPlaces)
	}
	if d.GreaterThan(MaxTradeValue) {
		return fmt.Sprintf("%s must not exceed %s", field, MaxTradeValue)
	}
	return ""
}

// ValidateTradeRequest validates a buy or sell request body.
// The ticker is expected to be normalized already.
func ValidateTradeRequest(req request.TradeRequest) error {
	return ValidateTrade(req.Ticker, req.Quantity, req.Price, decimal.Zero)
}
