package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tujifund/marketplace-api/internal/domain"
)

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data"`
	Error   *APIError `json:"error"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func RespondSuccess(w http.ResponseWriter, status int, data any) {
	RespondJSON(w, status, APIResponse{
		Success: true,
		Data:    data,
		Error:   nil,
	})
}

func RespondAppError(w http.ResponseWriter, appErr *AppError, details any) {
	RespondJSON(w, appErr.Status, APIResponse{
		Success: false,
		Data:    nil,
		Error: &APIError{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: details,
		},
	})
}

func RespondValidationError(w http.ResponseWriter, fields []FieldError) {
	RespondAppError(w, ErrValidationFailed, fields)
}

// RespondDomainError maps service-layer sentinel errors onto the HTTP
// contract. Unrecognized errors become a generic 500 so internal detail never
// leaks to the caller.
func RespondDomainError(w http.ResponseWriter, err error) {
	var appErr *AppError

	switch {
	case errors.Is(err, domain.ErrEmptyCart):
		appErr = ErrEmptyCart
	case errors.Is(err, domain.ErrInsufficientFunds):
		appErr = ErrInsufficientFunds
	case errors.Is(err, domain.ErrItemNotFound):
		appErr = ErrItemNotFound
	case errors.Is(err, domain.ErrInsufficientStock):
		appErr = ErrInsufficientStock
	case errors.Is(err, domain.ErrWalletNotFound):
		appErr = ErrWalletNotFound
	case errors.Is(err, domain.ErrEmailTaken):
		appErr = ErrEmailTaken
	case errors.Is(err, domain.ErrNotListingOwner):
		appErr = ErrNotListingOwner
	case errors.Is(err, domain.ErrInvalidAmount):
		appErr = ErrInvalidAmount
	case errors.Is(err, domain.ErrInvalidQuantity):
		appErr = ErrInvalidQuantity
	case errors.Is(err, domain.ErrVersionConflict):
		appErr = ErrVersionConflict
	case errors.Is(err, domain.ErrInvalidRequest):
		appErr = ErrInvalidRequest
	case errors.Is(err, domain.ErrNotFound):
		appErr = ErrResourceNotFound
	default:
		slog.Error("unhandled domain error", "error", err)
		appErr = ErrInternalError
	}

	RespondAppError(w, appErr, nil)
}
