package handler

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes sets up all the routes for the application. auth guards
// everything under /api/v1.
func RegisterRoutes(router *mux.Router, auth mux.MiddlewareFunc, checkouts *CheckoutHandler, campaigns *CampaignHandler, health *HealthHandler) {
	// Public routes
	router.HandleFunc("/health", health.CheckHealth).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	if auth != nil {
		api.Use(auth)
	}

	// Checkout routes
	api.HandleFunc("/checkouts", checkouts.Create).Methods(http.MethodPost)
	api.HandleFunc("/checkouts/{id}", checkouts.Get).Methods(http.MethodGet)
	api.HandleFunc("/checkouts/{id}", checkouts.Abandon).Methods(http.MethodDelete)
	api.HandleFunc("/checkouts/{id}/amount", checkouts.SetAmount).Methods(http.MethodPost)
	api.HandleFunc("/checkouts/{id}/donor", checkouts.SetDonor).Methods(http.MethodPost)
	api.HandleFunc("/checkouts/{id}/method", checkouts.SetMethod).Methods(http.MethodPost)
	api.HandleFunc("/checkouts/{id}/advance", checkouts.Advance).Methods(http.MethodPost)
	api.HandleFunc("/checkouts/{id}/back", checkouts.Back).Methods(http.MethodPost)
	api.HandleFunc("/checkouts/{id}/confirm", checkouts.Confirm).Methods(http.MethodPost)
	api.HandleFunc("/checkouts/{id}/restart", checkouts.Restart).Methods(http.MethodPost)
	api.HandleFunc("/checkouts/{id}/options/{index}/qr", checkouts.SettlementQR).Methods(http.MethodGet)

	// Confirmed donations
	api.HandleFunc("/receipts/{trxid}", campaigns.GetReceipt).Methods(http.MethodGet)
	api.HandleFunc("/campaigns/{id}/donations", campaigns.ListDonations).Methods(http.MethodGet)
}
