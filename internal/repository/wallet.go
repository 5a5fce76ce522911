package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tujifund/marketplace-api/internal/domain"
)

const walletColumns = `id, owner_type, owner_id, currency, balance, version,
	created_at, updated_at`

type WalletRepository struct {
	db *sql.DB
}

func NewWalletRepository(db *sql.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

func (r *WalletRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE id = $1`, id,
	)
	w, err := scanWallet(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrWalletNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return w, nil
}

func (r *WalletRepository) GetByOwner(ctx context.Context, ownerType domain.OwnerType, ownerID uuid.UUID) (*domain.Wallet, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE owner_type = $1 AND owner_id = $2`,
		ownerType, ownerID,
	)
	w, err := scanWallet(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByOwner: %w", domain.ErrWalletNotFound)
		}
		return nil, fmt.Errorf("GetByOwner: %w", err)
	}
	return w, nil
}

func (r *WalletRepository) Create(ctx context.Context, wallet *domain.Wallet) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO wallets (
			id, owner_type, owner_id, currency, balance, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		wallet.ID, wallet.OwnerType, wallet.OwnerID, wallet.Currency,
		wallet.Balance, wallet.Version, wallet.CreatedAt, wallet.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

// GetForUpdate takes a row lock on the wallet for the lifetime of tx. Every
// balance read that precedes a write must go through here.
func (r *WalletRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Wallet, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE id = $1 FOR UPDATE`, id,
	)
	w, err := scanWallet(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrWalletNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return w, nil
}

func (r *WalletRepository) UpdateBalance(ctx context.Context, tx *sql.Tx, id uuid.UUID, newBalance int64, newVersion int64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE wallets SET balance = $1, version = $2, updated_at = $3
		WHERE id = $4 AND version = $5`,
		newBalance, newVersion, time.Now().UTC(), id, newVersion-1,
	)
	if err != nil {
		return fmt.Errorf("UpdateBalance: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateBalance: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("UpdateBalance: %w", domain.ErrVersionConflict)
	}
	return nil
}

func scanWallet(s scanner) (*domain.Wallet, error) {
	var w domain.Wallet
	err := s.Scan(
		&w.ID, &w.OwnerType, &w.OwnerID, &w.Currency,
		&w.Balance, &w.Version, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}
