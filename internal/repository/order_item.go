package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/tujifund/marketplace-api/internal/domain"
)

const orderItemColumns = `id, listing_id, buyer_id, seller_id, quantity,
	unit_price_at_sale, transaction_id, status, created_at`

type OrderItemRepository struct {
	db *sql.DB
}

func NewOrderItemRepository(db *sql.DB) *OrderItemRepository {
	return &OrderItemRepository{db: db}
}

func (r *OrderItemRepository) Create(ctx context.Context, tx *sql.Tx, item *domain.OrderItem) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO order_items (
			id, listing_id, buyer_id, seller_id, quantity,
			unit_price_at_sale, transaction_id, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		item.ID, item.ListingID, item.BuyerID, item.SellerID, item.Quantity,
		item.UnitPriceAtSale, item.TransactionID, item.Status, item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *OrderItemRepository) GetByBuyerID(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]domain.OrderItem, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM order_items WHERE buyer_id = $1`, buyerID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("GetByBuyerID: count: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderItemColumns+` FROM order_items
		WHERE buyer_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		buyerID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("GetByBuyerID: %w", err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		i, err := scanOrderItem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("GetByBuyerID: scan: %w", err)
		}
		items = append(items, *i)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("GetByBuyerID: rows: %w", err)
	}
	return items, total, nil
}

func scanOrderItem(s scanner) (*domain.OrderItem, error) {
	var i domain.OrderItem
	err := s.Scan(
		&i.ID, &i.ListingID, &i.BuyerID, &i.SellerID, &i.Quantity,
		&i.UnitPriceAtSale, &i.TransactionID, &i.Status, &i.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &i, nil
}
