package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	qrcode "github.com/skip2/go-qrcode"

	"doneasy-checkout/internal/checkout"
	"doneasy-checkout/internal/model"
	"doneasy-checkout/internal/service"
	"doneasy-checkout/pkg/logger"
)

// CheckoutHandler handles the donation checkout endpoints
type CheckoutHandler struct {
	checkouts *service.CheckoutService
	logger    *logger.Logger
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkouts *service.CheckoutService, log *logger.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkouts: checkouts,
		logger:    log,
	}
}

// AmountRequest selects a preset or enters a custom amount
type AmountRequest struct {
	Preset int64  `json:"preset,omitempty"`
	Custom string `json:"custom,omitempty"`
}

// MethodRequest selects a payment method
type MethodRequest struct {
	Method model.PaymentMethod `json:"method"`
}

// Create handles POST /api/v1/checkouts
func (h *CheckoutHandler) Create(w http.ResponseWriter, r *http.Request) {
	var seed model.Seed
	if !decodeBody(w, r, &seed) {
		return
	}

	id, state, err := h.checkouts.Start(r.Context(), seed)
	if err != nil {
		h.sendError(w, err, nil)
		return
	}

	sendSuccessResponse(w, http.StatusCreated, "Checkout started", h.view(id, state))
}

// Get handles GET /api/v1/checkouts/{id}
func (h *CheckoutHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	state, err := h.checkouts.State(r.Context(), id)
	if err != nil {
		h.sendError(w, err, nil)
		return
	}

	sendSuccessResponse(w, http.StatusOK, "Checkout retrieved", h.view(id, state))
}

// Abandon handles DELETE /api/v1/checkouts/{id}
func (h *CheckoutHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.checkouts.Abandon(id); err != nil {
		h.sendError(w, err, nil)
		return
	}

	sendSuccessResponse(w, http.StatusOK, "Checkout abandoned", CheckoutView{
		ID:       id,
		Step:     checkout.StepAbandoned,
		Terminal: true,
	})
}

// SetAmount handles POST /api/v1/checkouts/{id}/amount
func (h *CheckoutHandler) SetAmount(w http.ResponseWriter, r *http.Request) {
	var req AmountRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var event checkout.Event = checkout.EnterCustomAmount{Input: req.Custom}
	if req.Preset > 0 {
		event = checkout.SelectPreset{Amount: req.Preset}
	}
	h.dispatch(w, r, event, "Amount updated")
}

// SetDonor handles POST /api/v1/checkouts/{id}/donor
func (h *CheckoutHandler) SetDonor(w http.ResponseWriter, r *http.Request) {
	var donor checkout.DonorDetails
	if !decodeBody(w, r, &donor) {
		return
	}
	h.dispatch(w, r, checkout.UpdateDonor{Donor: donor}, "Donor updated")
}

// SetMethod handles POST /api/v1/checkouts/{id}/method
func (h *CheckoutHandler) SetMethod(w http.ResponseWriter, r *http.Request) {
	var req MethodRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.dispatch(w, r, checkout.SelectMethod{Method: req.Method}, "Payment method updated")
}

// Advance handles POST /api/v1/checkouts/{id}/advance
func (h *CheckoutHandler) Advance(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, checkout.Advance{}, "Checkout advanced")
}

// Back handles POST /api/v1/checkouts/{id}/back
func (h *CheckoutHandler) Back(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, checkout.Back{}, "Checkout moved back")
}

// Confirm handles POST /api/v1/checkouts/{id}/confirm
func (h *CheckoutHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, checkout.ConfirmPayment{}, "Payment confirmation submitted")
}

// Restart handles POST /api/v1/checkouts/{id}/restart
func (h *CheckoutHandler) Restart(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, checkout.Restart{}, "Checkout restarted")
}

// SettlementQR handles GET /api/v1/checkouts/{id}/options/{index}/qr and
// returns the account number of a settlement option as a PNG QR code
func (h *CheckoutHandler) SettlementQR(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		sendErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:    "ERR_INVALID_PARAMETER",
			Message: "Option index must be a number",
			Field:   "index",
		}, nil)
		return
	}

	state, err := h.checkouts.State(r.Context(), vars["id"])
	if err != nil {
		h.sendError(w, err, nil)
		return
	}

	account, err := checkout.SettlementOptionAt(state, index)
	if errors.Is(err, checkout.ErrInvalidTransition) {
		h.sendError(w, err, nil)
		return
	}
	if err != nil {
		sendErrorResponse(w, http.StatusNotFound, &model.APIError{
			Code:    "ERR_NOT_FOUND",
			Message: err.Error(),
			Field:   "index",
		}, nil)
		return
	}

	png, err := qrcode.Encode(account, qrcode.Medium, 256)
	if err != nil {
		h.logger.Error("Failed to encode QR code", "error", err)
		h.sendError(w, err, nil)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func (h *CheckoutHandler) dispatch(w http.ResponseWriter, r *http.Request, event checkout.Event, message string) {
	id := mux.Vars(r)["id"]

	state, err := h.checkouts.Dispatch(r.Context(), id, event)
	if err != nil {
		var data interface{}
		if state != nil {
			data = h.view(id, state)
		}
		h.sendError(w, err, data)
		return
	}

	sendSuccessResponse(w, http.StatusOK, message, h.view(id, state))
}

func (h *CheckoutHandler) view(id string, state checkout.State) CheckoutView {
	return RenderView(id, state, h.checkouts.Machine())
}

func (h *CheckoutHandler) sendError(w http.ResponseWriter, err error, data interface{}) {
	status, apiErr := mapError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Checkout request failed", "error", err)
	}
	sendErrorResponse(w, status, apiErr, data)
}

// decodeBody decodes a JSON body into dst, answering 400 on failure. An empty
// body leaves dst at its zero value.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		sendErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:    "ERR_INVALID_REQUEST",
			Message: "Invalid JSON body",
		}, nil)
		return false
	}
	return true
}
