package domain

import (
	"time"

	"github.com/google/uuid"
)

// CartEntry is unique per (buyer, listing); adds to an existing entry sum
// quantities. Stock is not validated at add time, only at checkout.
type CartEntry struct {
	ID        uuid.UUID
	BuyerID   uuid.UUID
	ListingID uuid.UUID
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}
