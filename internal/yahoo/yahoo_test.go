package yahoo_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/portfolio-service/internal/apperrors"
	"github.com/ndewijer/portfolio-service/internal/testutil"
	"github.com/ndewijer/portfolio-service/internal/yahoo"
)

func newServer(t *testing.T, handler http.HandlerFunc) *yahoo.FinanceClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return yahoo.NewFinanceClient(srv.URL, time.Second)
}

func TestFinanceClient_ParseChart(t *testing.T) {
	client := yahoo.NewFinanceClient("", time.Second)

	t.Run("parses all days", func(t *testing.T) {
		chart, err := client.ParseChart(testutil.CreateMockYahooResponse(5))
		require.NoError(t, err)

		assert.Equal(t, "TEST", chart.Symbol)
		assert.Len(t, chart.Indicators, 5)
		latest, ok := chart.Latest()
		require.True(t, ok)
		assert.InDelta(t, 102.25, latest.PriceClose, 1e-9)
	})

	t.Run("skips days without a close", func(t *testing.T) {
		resp := testutil.CreateMockYahooResponse(3)
		resp.Chart.Result[0].Indicators.Quote[0].Close[2] = nil

		chart, err := client.ParseChart(resp)
		require.NoError(t, err)

		assert.Len(t, chart.Indicators, 2)
	})

	t.Run("rejects empty results", func(t *testing.T) {
		_, err := client.ParseChart(yahoo.Response{})
		assert.Error(t, err)
	})

	t.Run("rejects mismatched lengths", func(t *testing.T) {
		resp := testutil.CreateMockYahooResponse(3)
		resp.Chart.Result[0].Timestamp = resp.Chart.Result[0].Timestamp[:2]

		_, err := client.ParseChart(resp)
		assert.Error(t, err)
	})
}

func TestPriceSource_GetPrice(t *testing.T) {
	t.Run("returns the latest close", func(t *testing.T) {
		var path string
		client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			path = r.URL.Path
			//nolint:errcheck // test server
			json.NewEncoder(w).Encode(testutil.CreateMockYahooResponseForDate(time.Now(), 187.5))
		})

		price, err := yahoo.NewPriceSource(client).GetPrice(context.Background(), "AAPL")
		require.NoError(t, err)

		assert.Equal(t, "187.5", price.String())
		assert.Equal(t, "/v8/finance/chart/AAPL", path)
	})

	t.Run("wraps API errors as price unavailable", func(t *testing.T) {
		client := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			//nolint:errcheck // test server
			w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
		})

		_, err := yahoo.NewPriceSource(client).GetPrice(context.Background(), "NOPE")

		require.ErrorIs(t, err, apperrors.ErrPriceUnavailable)
		assert.True(t, strings.Contains(err.Error(), "delisted"))
	})

	t.Run("wraps garbage as price unavailable", func(t *testing.T) {
		client := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
			//nolint:errcheck // test server
			w.Write([]byte(`<html>rate limited</html>`))
		})

		_, err := yahoo.NewPriceSource(client).GetPrice(context.Background(), "AAPL")

		require.ErrorIs(t, err, apperrors.ErrPriceUnavailable)
	})

	t.Run("works with the mock client", func(t *testing.T) {
		mock := testutil.NewMockYahooClient()

		price, err := yahoo.NewPriceSource(mock).GetPrice(context.Background(), "TEST")
		require.NoError(t, err)

		assert.Equal(t, "102.25", price.String())
		assert.Equal(t, 1, mock.QueryCount)
	})
}
