package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/tujifund/marketplace-api/internal/domain"
)

const transactionColumns = `id, kind, status, amount, currency,
	from_wallet_id, to_wallet_id, listing_id, description,
	from_balance_before, from_balance_after, to_balance_before, to_balance_after,
	created_at`

type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *sql.Tx, t *domain.Transaction) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (
			id, kind, status, amount, currency,
			from_wallet_id, to_wallet_id, listing_id, description,
			from_balance_before, from_balance_after, to_balance_before, to_balance_after,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		t.ID, t.Kind, t.Status, t.Amount, t.Currency,
		t.FromWalletID, t.ToWalletID, t.ListingID, t.Description,
		t.FromBalanceBefore, t.FromBalanceAfter, t.ToBalanceBefore, t.ToBalanceAfter,
		t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *TransactionRepository) GetByWalletID(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]domain.Transaction, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE from_wallet_id = $1 OR to_wallet_id = $1`,
		walletID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("GetByWalletID: count: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		WHERE from_wallet_id = $1 OR to_wallet_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		walletID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("GetByWalletID: %w", err)
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("GetByWalletID: scan: %w", err)
		}
		txs = append(txs, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("GetByWalletID: rows: %w", err)
	}
	return txs, total, nil
}

func scanTransaction(s scanner) (*domain.Transaction, error) {
	var t domain.Transaction
	err := s.Scan(
		&t.ID, &t.Kind, &t.Status, &t.Amount, &t.Currency,
		&t.FromWalletID, &t.ToWalletID, &t.ListingID, &t.Description,
		&t.FromBalanceBefore, &t.FromBalanceAfter, &t.ToBalanceBefore, &t.ToBalanceAfter,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
