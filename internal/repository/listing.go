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

const listingColumns = `id, seller_id, title, description, unit_price, currency,
	quantity, status, created_at, updated_at`

type ListingRepository struct {
	db *sql.DB
}

func NewListingRepository(db *sql.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

func (r *ListingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE id = $1`, id,
	)
	l, err := scanListing(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrItemNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return l, nil
}

func (r *ListingRepository) ListActive(ctx context.Context, limit, offset int) ([]domain.Listing, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM listings WHERE status = $1`, domain.ListingStatusActive,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("ListActive: count: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+listingColumns+` FROM listings
		WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		domain.ListingStatusActive, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("ListActive: %w", err)
	}
	defer rows.Close()

	var listings []domain.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("ListActive: scan: %w", err)
		}
		listings = append(listings, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("ListActive: rows: %w", err)
	}
	return listings, total, nil
}

func (r *ListingRepository) Create(ctx context.Context, listing *domain.Listing) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO listings (
			id, seller_id, title, description, unit_price, currency,
			quantity, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		listing.ID, listing.SellerID, listing.Title, listing.Description,
		listing.UnitPrice, listing.Currency, listing.Quantity, listing.Status,
		listing.CreatedAt, listing.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

// Update is the seller relist path: absolute price/quantity set, status
// derived from the new quantity. It writes inside the caller's transaction,
// after a GetForUpdate on the same row, so a stale read can never overwrite
// stock a concurrent checkout just sold.
func (r *ListingRepository) Update(ctx context.Context, tx *sql.Tx, listing *domain.Listing) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE listings SET title = $1, description = $2, unit_price = $3,
			quantity = $4, status = $5, updated_at = $6
		WHERE id = $7`,
		listing.Title, listing.Description, listing.UnitPrice,
		listing.Quantity, listing.Status, time.Now().UTC(), listing.ID,
	)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Update: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("Update: %w", domain.ErrItemNotFound)
	}
	return nil
}

// GetForUpdate locks the listing row so the stock check and the decrement in
// the checkout transaction cannot race another checkout.
func (r *ListingRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Listing, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE id = $1 FOR UPDATE`, id,
	)
	l, err := scanListing(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrItemNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return l, nil
}

func (r *ListingRepository) UpdateQuantity(ctx context.Context, tx *sql.Tx, id uuid.UUID, quantity int, status domain.ListingStatus) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE listings SET quantity = $1, status = $2, updated_at = $3 WHERE id = $4`,
		quantity, status, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("UpdateQuantity: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateQuantity: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("UpdateQuantity: %w", domain.ErrItemNotFound)
	}
	return nil
}

func scanListing(s scanner) (*domain.Listing, error) {
	var l domain.Listing
	err := s.Scan(
		&l.ID, &l.SellerID, &l.Title, &l.Description,
		&l.UnitPrice, &l.Currency, &l.Quantity, &l.Status,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}
