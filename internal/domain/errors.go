package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrItemNotFound      = errors.New("listing not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrNotListingOwner   = errors.New("listing belongs to another seller")
	ErrEmailTaken        = errors.New("email already registered")
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrInvalidQuantity   = errors.New("quantity must be greater than zero")
	ErrVersionConflict   = errors.New("optimistic lock conflict")
	ErrInvalidRequest    = errors.New("invalid request")
)
