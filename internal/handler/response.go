package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"doneasy-checkout/internal/checkout"
	"doneasy-checkout/internal/model"
	"doneasy-checkout/internal/repository"
	"doneasy-checkout/internal/service"
)

// sendSuccessResponse sends success response
func sendSuccessResponse(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	json.NewEncoder(w).Encode(model.APIResponse{
		Status:  "success",
		Message: message,
		Data:    data,
	})
}

// sendErrorResponse sends error response; data may carry the state the
// checkout is in after the rejected request
func sendErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	json.NewEncoder(w).Encode(model.APIResponse{
		Status:  "error",
		Message: apiErr.Message,
		Data:    data,
		Error:   apiErr,
	})
}

// mapError maps a checkout error to an HTTP status and error code
func mapError(err error) (int, *model.APIError) {
	var (
		validation *checkout.ValidationError
		expiry     *checkout.ExpiryError
		failure    *checkout.VerificationFailure
		missing    *checkout.MissingContextError
	)

	apiErr := &model.APIError{Message: err.Error()}
	status := http.StatusInternalServerError

	switch {
	case errors.As(err, &validation):
		status, apiErr.Code, apiErr.Field = http.StatusUnprocessableEntity, "ERR_VALIDATION", validation.Field
	case errors.As(err, &expiry):
		status, apiErr.Code = http.StatusGone, "ERR_SESSION_EXPIRED"
	case errors.As(err, &failure):
		status, apiErr.Code = http.StatusBadGateway, "ERR_VERIFICATION_FAILED"
	case errors.As(err, &missing):
		status, apiErr.Code, apiErr.Field = http.StatusBadRequest, "ERR_MISSING_CONTEXT", missing.Missing
	case errors.Is(err, checkout.ErrConfirmationInFlight):
		status, apiErr.Code = http.StatusConflict, "ERR_CONFIRMATION_IN_FLIGHT"
	case errors.Is(err, checkout.ErrChannelUnavailable):
		status, apiErr.Code = http.StatusConflict, "ERR_CHANNEL_UNAVAILABLE"
	case errors.Is(err, checkout.ErrPledgeFrozen):
		status, apiErr.Code = http.StatusConflict, "ERR_PLEDGE_FROZEN"
	case errors.Is(err, checkout.ErrInvalidTransition):
		status, apiErr.Code = http.StatusConflict, "ERR_INVALID_TRANSITION"
	case errors.Is(err, service.ErrCheckoutNotFound), errors.Is(err, repository.ErrNotFound):
		status, apiErr.Code = http.StatusNotFound, "ERR_NOT_FOUND"
	default:
		apiErr.Code = "ERR_INTERNAL_SERVER"
	}
	return status, apiErr
}
