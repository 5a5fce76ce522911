package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken       = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required"}
	ErrInvalidToken       = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"}
	ErrInvalidCredentials = &AppError{http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password"}
	ErrInvalidRequest     = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed   = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound   = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError      = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	// Checkout business-rule failures are client errors: the request was
	// well-formed but the marketplace state does not allow it.
	ErrEmptyCart         = &AppError{http.StatusBadRequest, "EMPTY_CART", "Cart is empty"}
	ErrInsufficientFunds = &AppError{http.StatusBadRequest, "INSUFFICIENT_FUNDS", "Insufficient wallet balance"}
	ErrItemNotFound      = &AppError{http.StatusBadRequest, "ITEM_NOT_FOUND", "Listing no longer exists"}
	ErrInsufficientStock = &AppError{http.StatusBadRequest, "INSUFFICIENT_STOCK", "Not enough stock available"}
	ErrWalletNotFound    = &AppError{http.StatusBadRequest, "WALLET_NOT_FOUND", "No wallet exists for this owner"}

	ErrEmailTaken            = &AppError{http.StatusConflict, "EMAIL_TAKEN", "Email already registered"}
	ErrNotListingOwner       = &AppError{http.StatusForbidden, "NOT_LISTING_OWNER", "Listing belongs to another seller"}
	ErrInvalidAmount         = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be greater than zero"}
	ErrInvalidQuantity       = &AppError{http.StatusBadRequest, "INVALID_QUANTITY", "Quantity must be greater than zero"}
	ErrVersionConflict       = &AppError{http.StatusConflict, "VERSION_CONFLICT", "Resource was modified concurrently, please retry"}
	ErrMissingIdempotencyKey = &AppError{http.StatusBadRequest, "MISSING_IDEMPOTENCY_KEY", "Idempotency-Key header is required"}
	ErrIdempotencyConflict   = &AppError{http.StatusConflict, "IDEMPOTENCY_CONFLICT", "Idempotency key already used with a different request"}
)
