package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/contactbook/internal/common"
	"github.com/dmitrijs2005/contactbook/internal/server/validation"
)

type errorResponse struct {
	Detail string                   `json:"detail"`
	Errors []validation.FieldError `json:"errors,omitempty"`
}

// statusFor maps an error kind to its HTTP status and the public message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrValidation):
		return http.StatusUnprocessableEntity, common.ErrValidation.Error()
	case errors.Is(err, common.ErrConflict):
		return http.StatusConflict, "Account already exists"
	case errors.Is(err, common.ErrInvalidEmail):
		return http.StatusUnauthorized, "Invalid email"
	case errors.Is(err, common.ErrEmailNotConfirmed):
		return http.StatusUnauthorized, "Email not confirmed"
	case errors.Is(err, common.ErrInvalidPassword):
		return http.StatusUnauthorized, "Invalid password"
	case errors.Is(err, common.ErrInvalidToken):
		return http.StatusUnauthorized, "Could not validate credentials"
	case errors.Is(err, common.ErrInvalidRefreshToken):
		return http.StatusUnauthorized, "Invalid refresh token"
	case errors.Is(err, common.ErrInvalidConfirmationToken):
		return http.StatusUnprocessableEntity, "Invalid token for email verification"
	case errors.Is(err, common.ErrVerification):
		return http.StatusBadRequest, "Verification error"
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, "Contact not found"
	case errors.Is(err, common.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge, "File too large"
	case errors.Is(err, common.ErrRateLimited):
		return http.StatusTooManyRequests, "Too many requests"
	case errors.Is(err, common.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, "Storage unavailable"
	case errors.Is(err, common.ErrImageHost):
		return http.StatusBadGateway, "Image host error"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, detail := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(r.Context(), "request failed", "request_id", requestID(r.Context()), "status", status, "error", err)
	}
	if errors.Is(err, common.ErrInvalidToken) {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	writeJSON(w, status, errorResponse{Detail: detail, Errors: validation.Fields(err)})
}
