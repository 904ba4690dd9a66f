package apperrors

import "errors"

// Business rule errors. A trade rejected with one of these leaves the
// portfolio untouched.
var (
	// ErrInsufficientFunds indicates that a buy costs more than the available cash.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientShares indicates that a sell exceeds the held quantity.
	// Short selling is not supported.
	ErrInsufficientShares = errors.New("insufficient shares")

	// ErrPositionNotFound indicates a sell on a ticker that is not held.
	ErrPositionNotFound = errors.New("position not found")

	// ErrInvalidInput indicates a malformed trade: non-positive quantity or price,
	// or a ticker that does not look like a ticker.
	ErrInvalidInput = errors.New("invalid input")
)

// Access errors.
var (
	// ErrUnauthorized indicates a missing, malformed or expired identity token.
	ErrUnauthorized = errors.New("unauthorized")
)

// Collaborator errors.
var (
	// ErrPriceUnavailable indicates that no market price could be obtained for a ticker.
	// It is never returned to API callers; the aggregator falls back to cost basis.
	ErrPriceUnavailable = errors.New("price unavailable")

	// ErrPortfolioNotFound indicates that the store holds no portfolio for a user.
	// The service seeds a fresh portfolio when it sees this error.
	ErrPortfolioNotFound = errors.New("portfolio not found")
)

// Data integrity errors.
var (
	// ErrCorruptState indicates a persisted record that does not match the schema.
	ErrCorruptState = errors.New("corrupt persisted state")
)

// Operation failure errors used as API messages.
var (
	ErrFailedToRetrievePortfolio    = errors.New("failed to retrieve portfolio")
	ErrFailedToRetrieveTransactions = errors.New("failed to retrieve transactions")
	ErrFailedToGetPerformance       = errors.New("failed to get portfolio performance")
	ErrFailedToExecuteTrade         = errors.New("failed to execute trade")
)

// Kind names the taxonomy entry of err, or "Internal" when err is not a known
// business, access or integrity error.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientFunds):
		return "InsufficientFunds"
	case errors.Is(err, ErrInsufficientShares):
		return "InsufficientShares"
	case errors.Is(err, ErrPositionNotFound):
		return "PositionNotFound"
	case errors.Is(err, ErrInvalidInput):
		return "InvalidInput"
	case errors.Is(err, ErrUnauthorized):
		return "Unauthorized"
	case errors.Is(err, ErrPriceUnavailable):
		return "PriceUnavailable"
	case errors.Is(err, ErrCorruptState):
		return "CorruptState"
	default:
		return "Internal"
	}
}
