package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"doneasy-checkout/internal/model"
	"doneasy-checkout/pkg/logger"
)

// APIKeyHeader carries the shared key expected by the checkout API
const APIKeyHeader = "X-API-Key"

// AuthMiddleware guards the /api/v1 subrouter: checkout steps, receipts and
// campaign donations. /health is registered outside it and stays public.
// An empty key disables the check so the CLI and local runs need no setup.
type AuthMiddleware struct {
	apiKey string
	logger *logger.Logger
}

// NewAuthMiddleware creates the API key guard for the checkout routes
func NewAuthMiddleware(apiKey string, log *logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		apiKey: apiKey,
		logger: log,
	}
}

// Middleware rejects checkout API requests without a matching X-API-Key
func (m *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.apiKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get(APIKeyHeader)
		switch {
		case key == "":
			m.reject(w, r, "Missing API key")
		case subtle.ConstantTimeCompare([]byte(key), []byte(m.apiKey)) != 1:
			m.reject(w, r, "Invalid API key")
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// reject logs the refused call and answers with the checkout error envelope
func (m *AuthMiddleware) reject(w http.ResponseWriter, r *http.Request, message string) {
	m.logger.Warn("Checkout API request rejected",
		"reason", message,
		"path", r.URL.Path,
		"method", r.Method,
		"remote_addr", r.RemoteAddr,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(model.APIResponse{
		Status:  "error",
		Message: message,
		Error: &model.APIError{
			Code:    "ERR_UNAUTHORIZED",
			Message: message,
		},
	})
}
