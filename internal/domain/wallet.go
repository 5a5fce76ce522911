package domain

import (
	"time"

	"github.com/google/uuid"
)

type Currency string

const CurrencyKES Currency = "KES"

func (c Currency) IsValid() bool {
	return c == CurrencyKES
}

type OwnerType string

const (
	OwnerTypeUser  OwnerType = "user"
	OwnerTypeGroup OwnerType = "group"
)

// Wallet balances are stored in minor units (cents). The balance is never
// written directly; all mutations go through the repository's version-checked
// UpdateBalance after a FOR UPDATE read.
type Wallet struct {
	ID        uuid.UUID
	OwnerType OwnerType
	OwnerID   uuid.UUID
	Currency  Currency
	Balance   int64
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}
