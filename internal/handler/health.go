package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"doneasy-checkout/internal/config"
	"doneasy-checkout/internal/service"
	"doneasy-checkout/pkg/logger"
)

// StatusReporter reports the connection state of an optional integration
type StatusReporter interface {
	GetConnectionStatus() map[string]interface{}
}

// HealthHandler handles health check requests
type HealthHandler struct {
	checkouts *service.CheckoutService
	whatsapp  StatusReporter
	config    *config.Config
	logger    *logger.Logger
	startTime time.Time
}

// NewHealthHandler creates a new health handler. whatsapp may be nil.
func NewHealthHandler(checkouts *service.CheckoutService, whatsapp StatusReporter, cfg *config.Config, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		checkouts: checkouts,
		whatsapp:  whatsapp,
		config:    cfg,
		logger:    log,
		startTime: time.Now(),
	}
}

// CheckHealth handles GET /health
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(h.startTime)

	response := map[string]interface{}{
		"status":           "healthy",
		"active_checkouts": h.checkouts.ActiveCount(),
		"verification": map[string]interface{}{
			"configured": h.config.Verification.URL != "",
		},
		"email": map[string]interface{}{
			"configured": h.config.Email.SendGridAPIKey != "",
		},
		"uptime":    uptime.String(),
		"timestamp": time.Now().Format(time.RFC3339),
	}
	if count, err := h.checkouts.ConfirmationCount(); err != nil {
		h.logger.WithError(err).Error("Failed to count confirmations")
		response["status"] = "degraded"
	} else {
		response["confirmations"] = count
	}
	if h.whatsapp != nil {
		response["whatsapp"] = h.whatsapp.GetConnectionStatus()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}
