package domain

import (
	"time"

	"github.com/google/uuid"
)

type ListingStatus string

const (
	ListingStatusActive  ListingStatus = "active"
	ListingStatusSoldOut ListingStatus = "sold_out"
)

// Listing is a marketplace item offered by a seller. Quantity never goes
// below zero and status is sold_out exactly when quantity is zero; checkout
// maintains both under the same row lock.
type Listing struct {
	ID          uuid.UUID
	SellerID    uuid.UUID
	Title       string
	Description *string
	UnitPrice   int64
	Currency    Currency
	Quantity    int
	Status      ListingStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
