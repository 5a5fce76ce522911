package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tujifund/marketplace-api/internal/domain"
)

const cartColumns = `id, buyer_id, listing_id, quantity, created_at, updated_at`

type CartRepository struct {
	db *sql.DB
}

func NewCartRepository(db *sql.DB) *CartRepository {
	return &CartRepository{db: db}
}

// Upsert adds quantity to an existing (buyer, listing) line or creates it.
func (r *CartRepository) Upsert(ctx context.Context, entry *domain.CartEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO cart_entries (id, buyer_id, listing_id, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (buyer_id, listing_id)
		DO UPDATE SET quantity = cart_entries.quantity + EXCLUDED.quantity,
			updated_at = EXCLUDED.updated_at`,
		entry.ID, entry.BuyerID, entry.ListingID, entry.Quantity,
		entry.CreatedAt, entry.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	return nil
}

func (r *CartRepository) SetQuantity(ctx context.Context, buyerID, listingID uuid.UUID, quantity int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE cart_entries SET quantity = $1, updated_at = $2
		WHERE buyer_id = $3 AND listing_id = $4`,
		quantity, time.Now().UTC(), buyerID, listingID,
	)
	if err != nil {
		return fmt.Errorf("SetQuantity: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("SetQuantity: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("SetQuantity: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *CartRepository) RemoveByListing(ctx context.Context, buyerID, listingID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM cart_entries WHERE buyer_id = $1 AND listing_id = $2`,
		buyerID, listingID,
	)
	if err != nil {
		return fmt.Errorf("RemoveByListing: %w", err)
	}
	return nil
}

// Remove deletes one line by id, scoped to the buyer so one buyer cannot
// remove another's cart line.
func (r *CartRepository) Remove(ctx context.Context, buyerID, entryID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM cart_entries WHERE id = $1 AND buyer_id = $2`,
		entryID, buyerID,
	)
	if err != nil {
		return fmt.Errorf("Remove: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Remove: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("Remove: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *CartRepository) ListForBuyer(ctx context.Context, buyerID uuid.UUID) ([]domain.CartEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+cartColumns+` FROM cart_entries
		WHERE buyer_id = $1 ORDER BY created_at`, buyerID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListForBuyer: %w", err)
	}
	defer rows.Close()
	return collectCartEntries(rows, "ListForBuyer")
}

// ListForUpdate locks the buyer's cart rows for the duration of tx, making
// checkout the sole cart mutator while it settles.
func (r *CartRepository) ListForUpdate(ctx context.Context, tx *sql.Tx, buyerID uuid.UUID) ([]domain.CartEntry, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+cartColumns+` FROM cart_entries
		WHERE buyer_id = $1 ORDER BY created_at FOR UPDATE`, buyerID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListForUpdate: %w", err)
	}
	defer rows.Close()
	return collectCartEntries(rows, "ListForUpdate")
}

func (r *CartRepository) Clear(ctx context.Context, tx *sql.Tx, buyerID uuid.UUID) error {
	_, err := tx.ExecContext(ctx,
		`DELETE FROM cart_entries WHERE buyer_id = $1`, buyerID,
	)
	if err != nil {
		return fmt.Errorf("Clear: %w", err)
	}
	return nil
}

func collectCartEntries(rows *sql.Rows, op string) ([]domain.CartEntry, error) {
	var entries []domain.CartEntry
	for rows.Next() {
		e, err := scanCartEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}
	return entries, nil
}

func scanCartEntry(s scanner) (*domain.CartEntry, error) {
	var e domain.CartEntry
	err := s.Scan(&e.ID, &e.BuyerID, &e.ListingID, &e.Quantity, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
