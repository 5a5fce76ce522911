package checkout_test

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tujifund/marketplace-api/internal/domain"
	"github.com/tujifund/marketplace-api/internal/repository"
	"github.com/tujifund/marketplace-api/internal/service/checkout"
	"github.com/tujifund/marketplace-api/internal/testutil"
)

func setupCheckoutService(t *testing.T, db *sql.DB) *checkout.Service {
	t.Helper()
	return checkout.NewService(
		repository.NewWalletRepository(db),
		repository.NewListingRepository(db),
		repository.NewCartRepository(db),
		repository.NewTransactionRepository(db),
		repository.NewOrderItemRepository(db),
		db,
	)
}

func TestCheckout_HappyPath(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupCheckoutService(t, db)
	ctx := context.Background()

	buyer := testutil.SeedTestUser(t, db, "buyer@test.com", "Buyer")
	sellerA := testutil.SeedTestUser(t, db, "sellera@test.com", "Seller A")
	sellerB := testutil.SeedTestUser(t, db, "sellerb@test.com", "Seller B")

	buyerWallet := testutil.SeedTestWallet(t, db, buyer.ID, 1000)
	walletA := testutil.SeedTestWallet(t, db, sellerA.ID, 0)
	walletB := testutil.SeedTestWallet(t, db, sellerB.ID, 50)

	itemA := testutil.SeedTestListing(t, db, sellerA.ID, "Maize flour", 300, 5)
	itemB := testutil.SeedTestListing(t, db, sellerB.ID, "Cooking oil", 300, 1)

	testutil.SeedCartEntry(t, db, buyer.ID, itemA.ID, 2)
	testutil.SeedCartEntry(t, db, buyer.ID, itemB.ID, 1)

	res, err := svc.Checkout(ctx, checkout.Request{BuyerID: buyer.ID})

	require.NoError(t, err)
	assert.Equal(t, int64(900), res.Total)
	assert.Len(t, res.Transactions, 2)
	assert.Len(t, res.OrderItems, 2)

	assert.Equal(t, int64(100), testutil.GetWalletBalance(t, db, buyerWallet.ID))
	assert.Equal(t, int64(600), testutil.GetWalletBalance(t, db, walletA.ID))
	assert.Equal(t, int64(350), testutil.GetWalletBalance(t, db, walletB.ID))

	qtyA, statusA := testutil.GetListingState(t, db, itemA.ID)
	assert.Equal(t, 3, qtyA)
	assert.Equal(t, domain.ListingStatusActive, statusA)

	qtyB, statusB := testutil.GetListingState(t, db, itemB.ID)
	assert.Equal(t, 0, qtyB)
	assert.Equal(t, domain.ListingStatusSoldOut, statusB)

	assert.Equal(t, 0, testutil.CountCartEntries(t, db, buyer.ID))
	assert.Equal(t, 2, testutil.CountTransactions(t, db, buyerWallet.ID))
	assert.Equal(t, 2, testutil.CountOrderItems(t, db, buyer.ID))

	for _, tr := range res.Transactions {
		assert.Equal(t, domain.TransactionKindMarketplace, tr.Kind)
		assert.Equal(t, domain.TransactionStatusCompleted, tr.Status)
		require.NotNil(t, tr.FromWalletID)
		assert.Equal(t, buyerWallet.ID, *tr.FromWalletID)
		require.NotNil(t, tr.FromBalanceBefore)
		require.NotNil(t, tr.FromBalanceAfter)
		assert.Equal(t, tr.Amount, *tr.FromBalanceBefore-*tr.FromBalanceAfter)
	}
}

func TestCheckout_InsufficientFunds(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupCheckoutService(t, db)
	ctx := context.Background()

	buyer := testutil.SeedTestUser(t, db, "buyer@test.com", "Buyer")
	seller := testutil.SeedTestUser(t, db, "seller@test.com", "Seller")

	buyerWallet := testutil.SeedTestWallet(t, db, buyer.ID, 100)
	sellerWallet := testutil.SeedTestWallet(t, db, seller.ID, 0)

	listing := testutil.SeedTestListing(t, db, seller.ID, "Solar lamp", 300, 5)
	testutil.SeedCartEntry(t, db, buyer.ID, listing.ID, 3)

	_, err := svc.Checkout(ctx, checkout.Request{BuyerID: buyer.ID})

	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, int64(100), testutil.GetWalletBalance(t, db, buyerWallet.ID))
	assert.Equal(t, int64(0), testutil.GetWalletBalance(t, db, sellerWallet.ID))

	qty, _ := testutil.GetListingState(t, db, listing.ID)
	assert.Equal(t, 5, qty)
	assert.Equal(t, 1, testutil.CountCartEntries(t, db, buyer.ID), "cart must survive a failed checkout")
	assert.Equal(t, 0, testutil.CountTransactions(t, db, buyerWallet.ID))
}

func TestCheckout_InsufficientStock_RollsBackEverything(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupCheckoutService(t, db)
	ctx := context.Background()

	buyer := testutil.SeedTestUser(t, db, "buyer@test.com", "Buyer")
	seller := testutil.SeedTestUser(t, db, "seller@test.com", "Seller")

	buyerWallet := testutil.SeedTestWallet(t, db, buyer.ID, 10_000)
	sellerWallet := testutil.SeedTestWallet(t, db, seller.ID, 0)

	inStock := testutil.SeedTestListing(t, db, seller.ID, "Kale bundle", 50, 10)
	scarce := testutil.SeedTestListing(t, db, seller.ID, "Hand plough", 2000, 1)

	testutil.SeedCartEntry(t, db, buyer.ID, inStock.ID, 4)
	testutil.SeedCartEntry(t, db, buyer.ID, scarce.ID, 2)

	_, err := svc.Checkout(ctx, checkout.Request{BuyerID: buyer.ID})

	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	// The valid line must not settle either.
	assert.Equal(t, int64(10_000), testutil.GetWalletBalance(t, db, buyerWallet.ID))
	assert.Equal(t, int64(0), testutil.GetWalletBalance(t, db, sellerWallet.ID))

	qty, _ := testutil.GetListingState(t, db, inStock.ID)
	assert.Equal(t, 10, qty)
	assert.Equal(t, 2, testutil.CountCartEntries(t, db, buyer.ID))
	assert.Equal(t, 0, testutil.CountOrderItems(t, db, buyer.ID))
}

func TestCheckout_EmptyCart(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupCheckoutService(t, db)
	ctx := context.Background()

	buyer := testutil.SeedTestUser(t, db, "buyer@test.com", "Buyer")
	testutil.SeedTestWallet(t, db, buyer.ID, 1000)

	_, err := svc.Checkout(ctx, checkout.Request{BuyerID: buyer.ID})
	require.ErrorIs(t, err, domain.ErrEmptyCart)
}

func TestCheckout_BuyerWalletMissing(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupCheckoutService(t, db)
	ctx := context.Background()

	buyer := testutil.SeedTestUser(t, db, "buyer@test.com", "Buyer")
	seller := testutil.SeedTestUser(t, db, "seller@test.com", "Seller")
	testutil.SeedTestWallet(t, db, seller.ID, 0)

	listing := testutil.SeedTestListing(t, db, seller.ID, "Charcoal sack", 400, 3)
	testutil.SeedCartEntry(t, db, buyer.ID, listing.ID, 1)

	_, err := svc.Checkout(ctx, checkout.Request{BuyerID: buyer.ID})

	require.ErrorIs(t, err, domain.ErrWalletNotFound)
	assert.Equal(t, 1, testutil.CountCartEntries(t, db, buyer.ID))
}

// vanishedListingRepo simulates a listing row disappearing between the cart
// read and the listing lock, which the schema's foreign key makes impossible
// to seed directly.
type vanishedListingRepo struct{}

func (vanishedListingRepo) GetForUpdate(_ context.Context, _ *sql.Tx, _ uuid.UUID) (*domain.Listing, error) {
	return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrItemNotFound)
}

func (vanishedListingRepo) UpdateQuantity(_ context.Context, _ *sql.Tx, _ uuid.UUID, _ int, _ domain.ListingStatus) error {
	return nil
}

func TestCheckout_ListingVanished_RollsBackEverything(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := checkout.NewService(
		repository.NewWalletRepository(db),
		vanishedListingRepo{},
		repository.NewCartRepository(db),
		repository.NewTransactionRepository(db),
		repository.NewOrderItemRepository(db),
		db,
	)
	ctx := context.Background()

	buyer := testutil.SeedTestUser(t, db, "buyer@test.com", "Buyer")
	seller := testutil.SeedTestUser(t, db, "seller@test.com", "Seller")

	buyerWallet := testutil.SeedTestWallet(t, db, buyer.ID, 1000)
	sellerWallet := testutil.SeedTestWallet(t, db, seller.ID, 0)

	listing := testutil.SeedTestListing(t, db, seller.ID, "Clay pot", 150, 4)
	testutil.SeedCartEntry(t, db, buyer.ID, listing.ID, 2)

	_, err := svc.Checkout(ctx, checkout.Request{BuyerID: buyer.ID})

	require.ErrorIs(t, err, domain.ErrItemNotFound)

	assert.Equal(t, int64(1000), testutil.GetWalletBalance(t, db, buyerWallet.ID))
	assert.Equal(t, int64(0), testutil.GetWalletBalance(t, db, sellerWallet.ID))
	assert.Equal(t, 1, testutil.CountCartEntries(t, db, buyer.ID), "cart must survive the abort")
	assert.Equal(t, 0, testutil.CountTransactions(t, db, buyerWallet.ID))
	assert.Equal(t, 0, testutil.CountOrderItems(t, db, buyer.ID))
}

func TestCheckout_DerivedTotalIgnoresClaimedTotal(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupCheckoutService(t, db)
	ctx := context.Background()

	buyer := testutil.SeedTestUser(t, db, "buyer@test.com", "Buyer")
	seller := testutil.SeedTestUser(t, db, "seller@test.com", "Seller")

	buyerWallet := testutil.SeedTestWallet(t, db, buyer.ID, 1000)
	sellerWallet := testutil.SeedTestWallet(t, db, seller.ID, 0)

	listing := testutil.SeedTestListing(t, db, seller.ID, "Sisal basket", 250, 4)
	testutil.SeedCartEntry(t, db, buyer.ID, listing.ID, 2)

	// Client claims a total of 1, the stored cart says 500.
	res, err := svc.Checkout(ctx, checkout.Request{BuyerID: buyer.ID, ClaimedTotal: 1})

	require.NoError(t, err)
	assert.Equal(t, int64(500), res.Total)
	assert.Equal(t, int64(500), testutil.GetWalletBalance(t, db, buyerWallet.ID))
	assert.Equal(t, int64(500), testutil.GetWalletBalance(t, db, sellerWallet.ID))
}

func TestCheckout_SelfPurchase(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupCheckoutService(t, db)
	ctx := context.Background()

	user := testutil.SeedTestUser(t, db, "user@test.com", "User")
	wallet := testutil.SeedTestWallet(t, db, user.ID, 1000)

	listing := testutil.SeedTestListing(t, db, user.ID, "Seed packet", 100, 5)
	testutil.SeedCartEntry(t, db, user.ID, listing.ID, 2)

	res, err := svc.Checkout(ctx, checkout.Request{BuyerID: user.ID})

	require.NoError(t, err)
	assert.Equal(t, int64(200), res.Total)
	// Debit and credit land on the same wallet.
	assert.Equal(t, int64(1000), testutil.GetWalletBalance(t, db, wallet.ID))

	qty, _ := testutil.GetListingState(t, db, listing.ID)
	assert.Equal(t, 3, qty)
}

func TestCheckout_ConcurrentLastUnit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupCheckoutService(t, db)
	ctx := context.Background()

	seller := testutil.SeedTestUser(t, db, "seller@test.com", "Seller")
	sellerWallet := testutil.SeedTestWallet(t, db, seller.ID, 0)
	listing := testutil.SeedTestListing(t, db, seller.ID, "Water pump", 800, 1)

	buyer1 := testutil.SeedTestUser(t, db, "buyer1@test.com", "Buyer One")
	buyer2 := testutil.SeedTestUser(t, db, "buyer2@test.com", "Buyer Two")
	wallet1 := testutil.SeedTestWallet(t, db, buyer1.ID, 1000)
	wallet2 := testutil.SeedTestWallet(t, db, buyer2.ID, 1000)

	testutil.SeedCartEntry(t, db, buyer1.ID, listing.ID, 1)
	testutil.SeedCartEntry(t, db, buyer2.ID, listing.ID, 1)

	var wg sync.WaitGroup
	results := make(chan error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := svc.Checkout(ctx, checkout.Request{BuyerID: buyer1.ID})
		results <- err
	}()
	go func() {
		defer wg.Done()
		_, err := svc.Checkout(ctx, checkout.Request{BuyerID: buyer2.ID})
		results <- err
	}()

	wg.Wait()
	close(results)

	var successes, failures int
	for err := range results {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, domain.ErrInsufficientStock)
			failures++
		}
	}

	assert.Equal(t, 1, successes, "exactly one checkout should win the last unit")
	assert.Equal(t, 1, failures, "the other must fail on stock, not oversell")

	qty, status := testutil.GetListingState(t, db, listing.ID)
	assert.Equal(t, 0, qty)
	assert.Equal(t, domain.ListingStatusSoldOut, status)
	assert.Equal(t, int64(800), testutil.GetWalletBalance(t, db, sellerWallet.ID))

	// Exactly one buyer paid.
	paid := 2000 - testutil.GetWalletBalance(t, db, wallet1.ID) - testutil.GetWalletBalance(t, db, wallet2.ID)
	assert.Equal(t, int64(800), paid)
}

func TestCheckout_MultipleLinesSameSeller(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupCheckoutService(t, db)
	ctx := context.Background()

	buyer := testutil.SeedTestUser(t, db, "buyer@test.com", "Buyer")
	seller := testutil.SeedTestUser(t, db, "seller@test.com", "Seller")

	buyerWallet := testutil.SeedTestWallet(t, db, buyer.ID, 5000)
	sellerWallet := testutil.SeedTestWallet(t, db, seller.ID, 0)

	itemA := testutil.SeedTestListing(t, db, seller.ID, "Fertilizer bag", 1200, 3)
	itemB := testutil.SeedTestListing(t, db, seller.ID, "Watering can", 600, 2)

	testutil.SeedCartEntry(t, db, buyer.ID, itemA.ID, 2)
	testutil.SeedCartEntry(t, db, buyer.ID, itemB.ID, 1)

	res, err := svc.Checkout(ctx, checkout.Request{BuyerID: buyer.ID})

	require.NoError(t, err)
	assert.Equal(t, int64(3000), res.Total)
	assert.Len(t, res.Transactions, 2, "one settlement per cart line")

	assert.Equal(t, int64(2000), testutil.GetWalletBalance(t, db, buyerWallet.ID))
	assert.Equal(t, int64(3000), testutil.GetWalletBalance(t, db, sellerWallet.ID))

	// Balance snapshots chain across the two lines.
	first, second := res.Transactions[0], res.Transactions[1]
	assert.Equal(t, *first.FromBalanceAfter, *second.FromBalanceBefore)
	assert.Equal(t, *first.ToBalanceAfter, *second.ToBalanceBefore)
}
