// Package yahoo is a minimal client for the Yahoo Finance chart API used as
// the market data source for current prices.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/portfolio-service/internal/apperrors"
)

// DefaultBaseURL is the public chart API endpoint.
const DefaultBaseURL = "https://query1.finance.yahoo.com"

// Client is the subset of FinanceClient used by the price source, so tests can
// substitute a mock.
type Client interface {
	QueryYahooFiveDaySymbol(ctx context.Context, symbol string) (Response, error)
	ParseChart(yahooResult Response) (PriceChart, error)
}

// FinanceClient provides methods for fetching financial data from Yahoo Finance API.
type FinanceClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewFinanceClient creates a Yahoo Finance client. An empty baseURL selects
// DefaultBaseURL.
func NewFinanceClient(baseURL string, timeout time.Duration) *FinanceClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &FinanceClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
	}
}

// ParseChart converts a raw Yahoo Finance API response into a structured price chart.
//
// The method performs validation to ensure:
//   - a result is present
//   - timestamp data is present
//   - close price data is present and aligned with the timestamps
//
// Entries without a close price are dropped.
func (c *FinanceClient) ParseChart(yahooResult Response) (PriceChart, error) {
	if len(yahooResult.Chart.Result) == 0 {
		return PriceChart{}, fmt.Errorf("no results returned")
	}
	result := yahooResult.Chart.Result[0]

	if len(result.Timestamp) == 0 {
		return PriceChart{}, fmt.Errorf("no price data returned")
	}
	if len(result.Indicators.Quote) == 0 || len(result.Indicators.Quote[0].Close) == 0 {
		return PriceChart{}, fmt.Errorf("no close prices returned")
	}

	quote := result.Indicators.Quote[0]
	if len(quote.Close) != len(result.Timestamp) {
		return PriceChart{}, fmt.Errorf("mismatched data lengths")
	}

	indicators := make([]Indicators, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if quote.Close[i] == nil {
			continue
		}
		indicators = append(indicators, Indicators{
			Date:       time.Unix(ts, 0).UTC(),
			PriceOpen:  valueAt(quote.Open, i),
			PriceClose: *quote.Close[i],
			Volume:     volumeAt(quote.Volume, i),
			PriceHigh:  valueAt(quote.High, i),
			PriceLow:   valueAt(quote.Low, i),
		})
	}

	return PriceChart{
		Symbol:           result.Meta.Symbol,
		Currency:         result.Meta.Currency,
		ExchangeName:     result.Meta.ExchangeName,
		FullExchangeName: result.Meta.FullExchangeName,
		LongName:         result.Meta.LongName,
		Shortname:        result.Meta.Shortname,
		Indicators:       indicators,
	}, nil
}

// Latest returns the most recent day with a close price.
func (c PriceChart) Latest() (Indicators, bool) {
	if len(c.Indicators) == 0 {
		return Indicators{}, false
	}
	return c.Indicators[len(c.Indicators)-1], true
}

// QueryYahooFiveDaySymbol fetches the last 5 days of daily price data for a symbol.
// Used to get the latest available closing price.
func (c *FinanceClient) QueryYahooFiveDaySymbol(ctx context.Context, symbol string) (Response, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=5d", c.baseURL, url.PathEscape(symbol))
	result, err := c.queryYahoo(ctx, u)
	if err != nil {
		return Response{}, err
	}
	if len(result.Chart.Result) == 0 {
		return Response{}, fmt.Errorf("no results returned for symbol %s", symbol)
	}

	return result, nil
}

// queryYahoo executes a request against the chart API, reads the response,
// and checks for API errors.
//
// The method sets required headers:
//   - User-Agent: Mimics a browser to avoid API blocking
//   - Accept: Requests JSON response format
func (c *FinanceClient) queryYahoo(ctx context.Context, u string) (Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Response{}, err
	}

	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, err
	}

	var response Response
	if err := json.Unmarshal(data, &response); err != nil {
		return Response{}, fmt.Errorf("failed to decode yahoo response (status %d): %w", resp.StatusCode, err)
	}

	if response.Chart.Error != nil {
		return response, fmt.Errorf("yahoo error: %s: %s", response.Chart.Error.Code, response.Chart.Error.Description)
	}

	return response, nil
}

// PriceSource serves current prices from the latest Yahoo close.
type PriceSource struct {
	client Client
}

// NewPriceSource wraps a Yahoo client as a price source.
func NewPriceSource(client Client) *PriceSource {
	return &PriceSource{client: client}
}

// GetPrice returns the latest close of ticker. Any failure is reported as
// apperrors.ErrPriceUnavailable.
func (s *PriceSource) GetPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	resp, err := s.client.QueryYahooFiveDaySymbol(ctx, ticker)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %w", apperrors.ErrPriceUnavailable, ticker, err)
	}

	chart, err := s.client.ParseChart(resp)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %w", apperrors.ErrPriceUnavailable, ticker, err)
	}

	latest, ok := chart.Latest()
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s: no close price", apperrors.ErrPriceUnavailable, ticker)
	}

	return decimal.NewFromFloat(latest.PriceClose), nil
}

func valueAt(values []*float64, i int) float64 {
	if i < len(values) && values[i] != nil {
		return *values[i]
	}
	return 0
}

func volumeAt(values []*int64, i int) int64 {
	if i < len(values) && values[i] != nil {
		return *values[i]
	}
	return 0
}
