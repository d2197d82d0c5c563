package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"doneasy-checkout/internal/middleware"
	"doneasy-checkout/internal/model"
	"doneasy-checkout/pkg/logger"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func serve(t *testing.T, apiKey, header string) *httptest.ResponseRecorder {
	t.Helper()
	h := middleware.NewAuthMiddleware(apiKey, logger.Discard()).Middleware(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/checkouts/x", nil)
	if header != "" {
		req.Header.Set("X-API-Key", header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthDisabledWithoutKey(t *testing.T) {
	if rec := serve(t, "", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAuthAcceptsValidKey(t *testing.T) {
	if rec := serve(t, "secret", "secret"); rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAuthRejects(t *testing.T) {
	for name, header := range map[string]string{"missing": "", "wrong": "nope"} {
		t.Run(name, func(t *testing.T) {
			rec := serve(t, "secret", header)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d", rec.Code)
			}
			var resp model.APIResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != "error" || resp.Error == nil || resp.Error.Code != "ERR_UNAUTHORIZED" {
				t.Fatalf("unexpected response %+v", resp)
			}
		})
	}
}
