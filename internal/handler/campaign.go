package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"doneasy-checkout/internal/model"
	"doneasy-checkout/internal/service"
	"doneasy-checkout/pkg/logger"
)

// CampaignHandler serves confirmed donations: receipts and per-campaign donor lists
type CampaignHandler struct {
	checkouts *service.CheckoutService
	logger    *logger.Logger
}

// NewCampaignHandler creates a new campaign handler
func NewCampaignHandler(checkouts *service.CheckoutService, log *logger.Logger) *CampaignHandler {
	return &CampaignHandler{
		checkouts: checkouts,
		logger:    log,
	}
}

// DonationsView is the donor list of a campaign
type DonationsView struct {
	CampaignID string             `json:"campaign_id"`
	Total      int64              `json:"total"`
	TotalText  string             `json:"total_text"`
	Count      int64              `json:"count"`
	Donors     []model.DonorEntry `json:"donors"`
}

// GetReceipt handles GET /api/v1/receipts/{trxid}
func (h *CampaignHandler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	trxID := mux.Vars(r)["trxid"]

	record, err := h.checkouts.Receipt(trxID)
	if err != nil {
		h.sendError(w, err)
		return
	}

	sendSuccessResponse(w, http.StatusOK, "Receipt retrieved", RenderReceipt(*record))
}

// ListDonations handles GET /api/v1/campaigns/{id}/donations?limit=n
func (h *CampaignHandler) ListDonations(w http.ResponseWriter, r *http.Request) {
	campaignID := mux.Vars(r)["id"]

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 100 {
			sendErrorResponse(w, http.StatusBadRequest, &model.APIError{
				Code:    "ERR_INVALID_PARAMETER",
				Message: "limit must be between 1 and 100",
				Field:   "limit",
			}, nil)
			return
		}
		limit = n
	}

	donors, err := h.checkouts.Donors(campaignID, limit)
	if err != nil {
		h.sendError(w, err)
		return
	}
	total, count, err := h.checkouts.CampaignTotal(campaignID)
	if err != nil {
		h.sendError(w, err)
		return
	}

	sendSuccessResponse(w, http.StatusOK, "Donations retrieved", DonationsView{
		CampaignID: campaignID,
		Total:      total,
		TotalText:  service.FormatRupiah(total),
		Count:      count,
		Donors:     donors,
	})
}

func (h *CampaignHandler) sendError(w http.ResponseWriter, err error) {
	status, apiErr := mapError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Campaign request failed", "error", err)
	}
	sendErrorResponse(w, status, apiErr, nil)
}
