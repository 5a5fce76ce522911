package domain

import (
	"time"

	"github.com/google/uuid"
)

type OrderItemStatus string

const OrderItemStatusCompleted OrderItemStatus = "completed"

// OrderItem is produced one-to-one with each settled cart line and references
// the marketplace transaction that paid for it. Append-only.
type OrderItem struct {
	ID              uuid.UUID
	ListingID       uuid.UUID
	BuyerID         uuid.UUID
	SellerID        uuid.UUID
	Quantity        int
	UnitPriceAtSale int64
	TransactionID   uuid.UUID
	Status          OrderItemStatus
	CreatedAt       time.Time
}
