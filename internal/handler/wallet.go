package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tujifund/marketplace-api/internal/auth"
	"github.com/tujifund/marketplace-api/internal/domain"
	"github.com/tujifund/marketplace-api/internal/logging"
)

type walletService interface {
	GetForUser(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	Deposit(ctx context.Context, userID uuid.UUID, amount int64, description string) (*domain.Wallet, error)
	Withdraw(ctx context.Context, userID uuid.UUID, amount int64, description string) (*domain.Wallet, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Transaction, int, error)
}

type WalletHandler struct {
	wallets walletService
}

func NewWalletHandler(wallets walletService) *WalletHandler {
	return &WalletHandler{wallets: wallets}
}

type walletDTO struct {
	ID        uuid.UUID       `json:"id"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func toWalletDTO(w *domain.Wallet) walletDTO {
	return walletDTO{
		ID:        w.ID,
		Balance:   toMajorUnits(w.Balance),
		Currency:  string(w.Currency),
		UpdatedAt: w.UpdatedAt,
	}
}

type transactionDTO struct {
	ID          uuid.UUID       `json:"id"`
	Kind        string          `json:"kind"`
	Status      string          `json:"status"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	FromWallet  *uuid.UUID      `json:"from_wallet_id,omitempty"`
	ToWallet    *uuid.UUID      `json:"to_wallet_id,omitempty"`
	ListingID   *uuid.UUID      `json:"listing_id,omitempty"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
}

func toTransactionDTO(t *domain.Transaction) transactionDTO {
	return transactionDTO{
		ID:          t.ID,
		Kind:        string(t.Kind),
		Status:      string(t.Status),
		Amount:      toMajorUnits(t.Amount),
		Currency:    string(t.Currency),
		FromWallet:  t.FromWalletID,
		ToWallet:    t.ToWalletID,
		ListingID:   t.ListingID,
		Description: t.Description,
		CreatedAt:   t.CreatedAt,
	}
}

type moveFundsRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

func (r moveFundsRequest) Validate() []FieldError {
	var errs []FieldError
	if !r.Amount.IsPositive() {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than 0"})
	} else if _, ok := toMinorUnits(r.Amount); !ok {
		errs = append(errs, FieldError{Field: "amount", Message: "at most 2 decimal places"})
	}
	return errs
}

func (h *WalletHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	wallet, err := h.wallets.GetForUser(r.Context(), userID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("wallet lookup failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toWalletDTO(wallet))
}

func (h *WalletHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.moveFunds(w, r, h.wallets.Deposit, "wallet deposit")
}

func (h *WalletHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.moveFunds(w, r, h.wallets.Withdraw, "wallet withdrawal")
}

func (h *WalletHandler) moveFunds(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, userID uuid.UUID, amount int64, description string) (*domain.Wallet, error),
	defaultDescription string,
) {
	log := logging.FromContext(r.Context())

	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req moveFundsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	amount, _ := toMinorUnits(req.Amount)
	description := req.Description
	if description == "" {
		description = defaultDescription
	}

	wallet, err := op(r.Context(), userID, amount, description)
	if err != nil {
		log.Warn("wallet operation failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toWalletDTO(wallet))
}

func (h *WalletHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	limit, offset := paginationParams(r)
	txs, total, err := h.wallets.ListTransactions(r.Context(), userID, limit, offset)
	if err != nil {
		logging.FromContext(r.Context()).Warn("transaction history failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]transactionDTO, 0, len(txs))
	for i := range txs {
		dtos = append(dtos, toTransactionDTO(&txs[i]))
	}

	RespondSuccess(w, http.StatusOK, map[string]any{
		"transactions": dtos,
		"total":        total,
		"limit":        limit,
		"offset":       offset,
	})
}
