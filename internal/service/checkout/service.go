package checkout

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/tujifund/marketplace-api/internal/domain"
)

type walletRepo interface {
	GetByOwner(ctx context.Context, ownerType domain.OwnerType, ownerID uuid.UUID) (*domain.Wallet, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Wallet, error)
	UpdateBalance(ctx context.Context, tx *sql.Tx, id uuid.UUID, newBalance int64, newVersion int64) error
}

type listingRepo interface {
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Listing, error)
	UpdateQuantity(ctx context.Context, tx *sql.Tx, id uuid.UUID, quantity int, status domain.ListingStatus) error
}

type cartRepo interface {
	ListForUpdate(ctx context.Context, tx *sql.Tx, buyerID uuid.UUID) ([]domain.CartEntry, error)
	Clear(ctx context.Context, tx *sql.Tx, buyerID uuid.UUID) error
}

type transactionRepo interface {
	Create(ctx context.Context, tx *sql.Tx, t *domain.Transaction) error
}

type orderItemRepo interface {
	Create(ctx context.Context, tx *sql.Tx, item *domain.OrderItem) error
}

// Service settles a buyer's cart: one transaction moving funds from the buyer
// wallet to each seller wallet, decrementing stock, and recording the
// settlement trail. Everything commits or nothing does.
type Service struct {
	wallets      walletRepo
	listings     listingRepo
	cart         cartRepo
	transactions transactionRepo
	orderItems   orderItemRepo
	db           *sql.DB
}

func NewService(
	wallets walletRepo,
	listings listingRepo,
	cart cartRepo,
	transactions transactionRepo,
	orderItems orderItemRepo,
	db *sql.DB,
) *Service {
	return &Service{
		wallets:      wallets,
		listings:     listings,
		cart:         cart,
		transactions: transactions,
		orderItems:   orderItems,
		db:           db,
	}
}

// ClaimedLine is what the client says is in the cart. It is advisory only:
// the stored cart rows and listing prices are authoritative, and mismatches
// are logged, never trusted.
type ClaimedLine struct {
	ListingID uuid.UUID
	Quantity  int
	SellerID  uuid.UUID
}

type Request struct {
	BuyerID      uuid.UUID
	ClaimedLines []ClaimedLine
	ClaimedTotal int64
}

type Result struct {
	Transactions []domain.Transaction
	OrderItems   []domain.OrderItem
	Total        int64
}
