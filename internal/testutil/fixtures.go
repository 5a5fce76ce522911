package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tujifund/marketplace-api/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

func SeedTestUser(t *testing.T, db *sql.DB, email, name string) *domain.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Status:       domain.UserStatusActive,
		CreatedAt:    time.Now().UTC(),
	}

	_, err = db.Exec(
		`INSERT INTO users (id, email, name, password_hash, phone, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.Phone, u.Status, u.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed test user %s: %v", email, err)
	}
	return u
}

func SeedTestWallet(t *testing.T, db *sql.DB, ownerID uuid.UUID, balance int64) *domain.Wallet {
	t.Helper()

	w := &domain.Wallet{
		ID:        uuid.New(),
		OwnerType: domain.OwnerTypeUser,
		OwnerID:   ownerID,
		Currency:  domain.CurrencyKES,
		Balance:   balance,
		Version:   1,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	_, err := db.Exec(
		`INSERT INTO wallets (id, owner_type, owner_id, currency, balance, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		w.ID, w.OwnerType, w.OwnerID, w.Currency, w.Balance, w.Version, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("seed wallet for owner %s: %v", ownerID, err)
	}
	return w
}

func SeedTestListing(t *testing.T, db *sql.DB, sellerID uuid.UUID, title string, unitPrice int64, quantity int) *domain.Listing {
	t.Helper()

	status := domain.ListingStatusActive
	if quantity == 0 {
		status = domain.ListingStatusSoldOut
	}
	l := &domain.Listing{
		ID:        uuid.New(),
		SellerID:  sellerID,
		Title:     title,
		UnitPrice: unitPrice,
		Currency:  domain.CurrencyKES,
		Quantity:  quantity,
		Status:    status,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	_, err := db.Exec(
		`INSERT INTO listings (id, seller_id, title, description, unit_price, currency, quantity, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		l.ID, l.SellerID, l.Title, l.Description, l.UnitPrice, l.Currency, l.Quantity, l.Status, l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("seed listing %q: %v", title, err)
	}
	return l
}

func SeedCartEntry(t *testing.T, db *sql.DB, buyerID, listingID uuid.UUID, quantity int) *domain.CartEntry {
	t.Helper()

	e := &domain.CartEntry{
		ID:        uuid.New(),
		BuyerID:   buyerID,
		ListingID: listingID,
		Quantity:  quantity,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	_, err := db.Exec(
		`INSERT INTO cart_entries (id, buyer_id, listing_id, quantity, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.BuyerID, e.ListingID, e.Quantity, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("seed cart entry for buyer %s: %v", buyerID, err)
	}
	return e
}

func GetWalletBalance(t *testing.T, db *sql.DB, walletID uuid.UUID) int64 {
	t.Helper()

	var balance int64
	err := db.QueryRow(`SELECT balance FROM wallets WHERE id = $1`, walletID).Scan(&balance)
	if err != nil {
		t.Fatalf("get wallet balance %s: %v", walletID, err)
	}
	return balance
}

func GetListingState(t *testing.T, db *sql.DB, listingID uuid.UUID) (int, domain.ListingStatus) {
	t.Helper()

	var quantity int
	var status domain.ListingStatus
	err := db.QueryRow(`SELECT quantity, status FROM listings WHERE id = $1`, listingID).Scan(&quantity, &status)
	if err != nil {
		t.Fatalf("get listing state %s: %v", listingID, err)
	}
	return quantity, status
}

func CountCartEntries(t *testing.T, db *sql.DB, buyerID uuid.UUID) int {
	t.Helper()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM cart_entries WHERE buyer_id = $1`, buyerID).Scan(&count)
	if err != nil {
		t.Fatalf("count cart entries for buyer %s: %v", buyerID, err)
	}
	return count
}

func CountTransactions(t *testing.T, db *sql.DB, walletID uuid.UUID) int {
	t.Helper()

	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM transactions WHERE from_wallet_id = $1 OR to_wallet_id = $1`,
		walletID,
	).Scan(&count)
	if err != nil {
		t.Fatalf("count transactions for wallet %s: %v", walletID, err)
	}
	return count
}

func CountOrderItems(t *testing.T, db *sql.DB, buyerID uuid.UUID) int {
	t.Helper()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM order_items WHERE buyer_id = $1`, buyerID).Scan(&count)
	if err != nil {
		t.Fatalf("count order items for buyer %s: %v", buyerID, err)
	}
	return count
}
