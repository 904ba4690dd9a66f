package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ndewijer/portfolio-service/internal/auth"
)

// NewAuthedRequest creates an HTTP request carrying userID in its context, as
// the auth middleware would leave it. A non-nil body is encoded as JSON;
// a string body is sent verbatim.
//
// Example:
//
//	req := testutil.NewAuthedRequest(t,
//	    http.MethodPost,
//	    "/api/portfolio/buy",
//	    "user_1",
//	    map[string]any{"ticker": "AAPL", "quantity": 10, "price": 150},
//	)
func NewAuthedRequest(t *testing.T, method, path, userID string, body any) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("Failed to encode request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req = req.WithContext(auth.WithUserID(req.Context(), userID))
	}
	return req
}

// DecodeJSON decodes a recorded response body into T.
func DecodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
	return out
}
