package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tujifund/marketplace-api/internal/domain"
	"github.com/tujifund/marketplace-api/internal/logging"
)

type walletRepo interface {
	GetByOwner(ctx context.Context, ownerType domain.OwnerType, ownerID uuid.UUID) (*domain.Wallet, error)
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Wallet, error)
	UpdateBalance(ctx context.Context, tx *sql.Tx, id uuid.UUID, newBalance int64, newVersion int64) error
}

type transactionRepo interface {
	Create(ctx context.Context, tx *sql.Tx, t *domain.Transaction) error
	GetByWalletID(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]domain.Transaction, int, error)
}

// WalletService covers the simple wallet operations outside checkout:
// deposits, withdrawals, and history. Balance writes follow the same
// lock-check-write discipline as the checkout settlement.
type WalletService struct {
	wallets      walletRepo
	transactions transactionRepo
	db           *sql.DB
}

func NewWalletService(wallets walletRepo, transactions transactionRepo, db *sql.DB) *WalletService {
	return &WalletService{wallets: wallets, transactions: transactions, db: db}
}

func (s *WalletService) CreateForUser(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	now := time.Now().UTC()
	w := &domain.Wallet{
		ID:        uuid.New(),
		OwnerType: domain.OwnerTypeUser,
		OwnerID:   userID,
		Currency:  domain.CurrencyKES,
		Balance:   0,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.wallets.Create(ctx, w); err != nil {
		return nil, fmt.Errorf("CreateForUser: %w", err)
	}
	return w, nil
}

func (s *WalletService) GetForUser(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	w, err := s.wallets.GetByOwner(ctx, domain.OwnerTypeUser, userID)
	if err != nil {
		return nil, fmt.Errorf("GetForUser: %w", err)
	}
	return w, nil
}

func (s *WalletService) Deposit(ctx context.Context, userID uuid.UUID, amount int64, description string) (*domain.Wallet, error) {
	log := logging.FromContext(ctx)

	if amount <= 0 {
		return nil, fmt.Errorf("Deposit: %w", domain.ErrInvalidAmount)
	}

	w, err := s.wallets.GetByOwner(ctx, domain.OwnerTypeUser, userID)
	if err != nil {
		return nil, fmt.Errorf("Deposit: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("Deposit: begin tx: %w", err)
	}
	defer tx.Rollback()

	locked, err := s.wallets.GetForUpdate(ctx, tx, w.ID)
	if err != nil {
		return nil, fmt.Errorf("Deposit: %w", err)
	}

	now := time.Now().UTC()
	before := locked.Balance
	after := before + amount

	record := &domain.Transaction{
		ID:              uuid.New(),
		Kind:            domain.TransactionKindDeposit,
		Status:          domain.TransactionStatusCompleted,
		Amount:          amount,
		Currency:        locked.Currency,
		ToWalletID:      &locked.ID,
		Description:     description,
		ToBalanceBefore: &before,
		ToBalanceAfter:  &after,
		CreatedAt:       now,
	}
	if err := s.transactions.Create(ctx, tx, record); err != nil {
		return nil, fmt.Errorf("Deposit: record transaction: %w", err)
	}

	if err := s.wallets.UpdateBalance(ctx, tx, locked.ID, after, locked.Version+1); err != nil {
		return nil, fmt.Errorf("Deposit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Deposit: commit: %w", err)
	}

	log.Info("wallet deposit completed",
		"wallet_id", locked.ID,
		"user_id", userID,
		"amount", amount,
		"balance", after,
	)

	locked.Balance = after
	locked.Version++
	locked.UpdatedAt = now
	return locked, nil
}

func (s *WalletService) Withdraw(ctx context.Context, userID uuid.UUID, amount int64, description string) (*domain.Wallet, error) {
	log := logging.FromContext(ctx)

	if amount <= 0 {
		return nil, fmt.Errorf("Withdraw: %w", domain.ErrInvalidAmount)
	}

	w, err := s.wallets.GetByOwner(ctx, domain.OwnerTypeUser, userID)
	if err != nil {
		return nil, fmt.Errorf("Withdraw: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("Withdraw: begin tx: %w", err)
	}
	defer tx.Rollback()

	locked, err := s.wallets.GetForUpdate(ctx, tx, w.ID)
	if err != nil {
		return nil, fmt.Errorf("Withdraw: %w", err)
	}

	if locked.Balance < amount {
		return nil, fmt.Errorf("Withdraw: %w", domain.ErrInsufficientFunds)
	}

	now := time.Now().UTC()
	before := locked.Balance
	after := before - amount

	record := &domain.Transaction{
		ID:                uuid.New(),
		Kind:              domain.TransactionKindWithdrawal,
		Status:            domain.TransactionStatusCompleted,
		Amount:            amount,
		Currency:          locked.Currency,
		FromWalletID:      &locked.ID,
		Description:       description,
		FromBalanceBefore: &before,
		FromBalanceAfter:  &after,
		CreatedAt:         now,
	}
	if err := s.transactions.Create(ctx, tx, record); err != nil {
		return nil, fmt.Errorf("Withdraw: record transaction: %w", err)
	}

	if err := s.wallets.UpdateBalance(ctx, tx, locked.ID, after, locked.Version+1); err != nil {
		return nil, fmt.Errorf("Withdraw: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Withdraw: commit: %w", err)
	}

	log.Info("wallet withdrawal completed",
		"wallet_id", locked.ID,
		"user_id", userID,
		"amount", amount,
		"balance", after,
	)

	locked.Balance = after
	locked.Version++
	locked.UpdatedAt = now
	return locked, nil
}

func (s *WalletService) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Transaction, int, error) {
	w, err := s.wallets.GetByOwner(ctx, domain.OwnerTypeUser, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("ListTransactions: %w", err)
	}
	txs, total, err := s.transactions.GetByWalletID(ctx, w.ID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("ListTransactions: %w", err)
	}
	return txs, total, nil
}
