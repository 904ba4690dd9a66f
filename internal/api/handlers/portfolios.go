package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/portfolio-service/internal/api/request"
	"github.com/ndewijer/portfolio-service/internal/api/response"
	"github.com/ndewijer/portfolio-service/internal/apperrors"
	"github.com/ndewijer/portfolio-service/internal/ledger"
	"github.com/ndewijer/portfolio-service/internal/model"
	"github.com/ndewijer/portfolio-service/internal/service"
	"github.com/ndewijer/portfolio-service/internal/validation"
)

// PortfolioHandler handles HTTP requests for portfolio endpoints.
// It serves as the HTTP layer adapter, parsing requests and delegating
// business logic to the portfolioService.
type PortfolioHandler struct {
	portfolioService *service.PortfolioService
}

// NewPortfolioHandler creates a new PortfolioHandler with the provided service dependency.
func NewPortfolioHandler(portfolioService *service.PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{
		portfolioService: portfolioService,
	}
}

// TradeResponse is returned by the buy and sell endpoints.
type TradeResponse struct {
	Message       string            `json:"message"`
	TransactionID string            `json:"transactionId"`
	Transaction   model.Transaction `json:"transaction"`
	Portfolio     *model.Portfolio  `json:"portfolio"`
	RealizedPL    *decimal.Decimal  `json:"realizedPL,omitempty"`
}

// TransactionsResponse wraps the transaction log.
type TransactionsResponse struct {
	Transactions []model.Transaction `json:"transactions"`
}

// Portfolio handles GET requests for the caller's valued portfolio.
// A first request seeds the portfolio with the starting cash.
//
// Endpoint: GET /api/portfolio
// Response: 200 OK with model.Portfolio
// Error: 401 Unauthorized without a valid token
// Error: 500 Internal Server Error if the store fails or holds corrupt state
func (h *PortfolioHandler) Portfolio(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	portfolio, err := h.portfolioService.GetPortfolio(r.Context(), userID)
	if err != nil {
		respondError(w, err, apperrors.ErrFailedToRetrievePortfolio)
		return
	}

	response.RespondJSON(w, http.StatusOK, portfolio)
}

// Buy handles POST requests to buy shares.
//
// Endpoint: POST /api/portfolio/buy
// Request: {"ticker": "AAPL", "quantity": 10, "price": 150}
// Response: 201 Created with TradeResponse
// Error: 400 Bad Request for invalid input or insufficient funds
// Error: 500 Internal Server Error if the trade cannot be persisted
func (h *PortfolioHandler) Buy(w http.ResponseWriter, r *http.Request) {
	userID, req, ok := h.parseTrade(w, r)
	if !ok {
		return
	}

	result, err := h.portfolioService.Buy(r.Context(), userID, toTrade(req))
	if err != nil {
		respondError(w, err, apperrors.ErrFailedToExecuteTrade)
		return
	}

	response.RespondJSON(w, http.StatusCreated, TradeResponse{
		Message:       "Stock purchased successfully",
		TransactionID: result.Transaction.ID,
		Transaction:   result.Transaction,
		Portfolio:     result.Portfolio,
	})
}

// Sell handles POST requests to sell shares.
//
// Endpoint: POST /api/portfolio/sell
// Request: {"ticker": "AAPL", "quantity": 5, "price": 155}
// Response: 201 Created with TradeResponse including realizedPL
// Error: 400 Bad Request for invalid input or insufficient shares
// Error: 404 Not Found if the ticker is not held
// Error: 500 Internal Server Error if the trade cannot be persisted
func (h *PortfolioHandler) Sell(w http.ResponseWriter, r *http.Request) {
	userID, req, ok := h.parseTrade(w, r)
	if !ok {
		return
	}

	result, err := h.portfolioService.Sell(r.Context(), userID, toTrade(req))
	if err != nil {
		respondError(w, err, apperrors.ErrFailedToExecuteTrade)
		return
	}

	realized := result.RealizedPL.Decimal
	response.RespondJSON(w, http.StatusCreated, TradeResponse{
		Message:       "Stock sold successfully",
		TransactionID: result.Transaction.ID,
		Transaction:   result.Transaction,
		Portfolio:     result.Portfolio,
		RealizedPL:    &realized,
	})
}

// Transactions handles GET requests for the caller's transaction log, oldest first.
//
// Endpoint: GET /api/portfolio/transactions
// Response: 200 OK with TransactionsResponse
// Error: 500 Internal Server Error if retrieval fails
func (h *PortfolioHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	transactions, err := h.portfolioService.Transactions(r.Context(), userID)
	if err != nil {
		respondError(w, err, apperrors.ErrFailedToRetrieveTransactions)
		return
	}

	response.RespondJSON(w, http.StatusOK, TransactionsResponse{Transactions: transactions})
}

// Performance handles GET requests for the caller's performance report.
//
// Endpoint: GET /api/portfolio/performance
// Response: 200 OK with model.Performance
// Error: 500 Internal Server Error if retrieval fails
func (h *PortfolioHandler) Performance(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	performance, err := h.portfolioService.Performance(r.Context(), userID)
	if err != nil {
		respondError(w, err, apperrors.ErrFailedToGetPerformance)
		return
	}

	response.RespondJSON(w, http.StatusOK, performance)
}

func (h *PortfolioHandler) parseTrade(w http.ResponseWriter, r *http.Request) (string, request.TradeRequest, bool) {
	userID, ok := requireUser(w, r)
	if !ok {
		return "", request.TradeRequest{}, false
	}

	req, err := parseJSON[request.TradeRequest](w, r)
	if err != nil {
		respondError(w, err, apperrors.ErrFailedToExecuteTrade)
		return "", request.TradeRequest{}, false
	}

	req.Ticker = validation.NormalizeTicker(req.Ticker)
	if err := validation.ValidateTradeRequest(req); err != nil {
		respondError(w, err, apperrors.ErrFailedToExecuteTrade)
		return "", request.TradeRequest{}, false
	}

	return userID, req, true
}

func toTrade(req request.TradeRequest) ledger.Trade {
	return ledger.Trade{
		Ticker:   req.Ticker,
		Quantity: req.Quantity,
		Price:    req.Price,
	}
}
