package domain

import (
	"time"

	"github.com/google/uuid"
)

type TransactionKind string

const (
	TransactionKindMarketplace TransactionKind = "marketplace"
	TransactionKindDeposit     TransactionKind = "deposit"
	TransactionKindWithdrawal  TransactionKind = "withdrawal"
)

type TransactionStatus string

const TransactionStatusCompleted TransactionStatus = "completed"

// Transaction is an append-only settlement record. Marketplace transactions
// carry both wallets and the listing; deposits and withdrawals carry only the
// side they touch. Balance snapshots are taken under the same row locks as
// the balance writes they describe.
type Transaction struct {
	ID                uuid.UUID
	Kind              TransactionKind
	Status            TransactionStatus
	Amount            int64
	Currency          Currency
	FromWalletID      *uuid.UUID
	ToWalletID        *uuid.UUID
	ListingID         *uuid.UUID
	Description       string
	FromBalanceBefore *int64
	FromBalanceAfter  *int64
	ToBalanceBefore   *int64
	ToBalanceAfter    *int64
	CreatedAt         time.Time
}
