package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tujifund/marketplace-api/internal/domain"
	"github.com/tujifund/marketplace-api/internal/repository"
	"github.com/tujifund/marketplace-api/internal/service"
	"github.com/tujifund/marketplace-api/internal/testutil"
)

func TestCartService_AddItemUpserts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := service.NewCartService(
		repository.NewCartRepository(db),
		repository.NewListingRepository(db),
		repository.NewUserRepository(db),
	)
	ctx := context.Background()

	buyer := testutil.SeedTestUser(t, db, "buyer@test.com", "Buyer")
	seller := testutil.SeedTestUser(t, db, "seller@test.com", "Seller")
	listing := testutil.SeedTestListing(t, db, seller.ID, "Avocados", 30, 50)

	require.NoError(t, svc.AddItem(ctx, buyer.ID, listing.ID, 3))
	require.NoError(t, svc.AddItem(ctx, buyer.ID, listing.ID, 2))

	view, err := svc.GetCart(ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1, "same listing collapses into one line")
	assert.Equal(t, 5, view.Lines[0].Entry.Quantity)
	assert.Equal(t, int64(150), view.Lines[0].LineTotal)
	assert.Equal(t, int64(150), view.Total)
	assert.Equal(t, "Seller", view.Lines[0].SellerName)
}

func TestCartService_AddItemValidation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := service.NewCartService(
		repository.NewCartRepository(db),
		repository.NewListingRepository(db),
		repository.NewUserRepository(db),
	)
	ctx := context.Background()

	buyer := testutil.SeedTestUser(t, db, "buyer@test.com", "Buyer")
	seller := testutil.SeedTestUser(t, db, "seller@test.com", "Seller")
	listing := testutil.SeedTestListing(t, db, seller.ID, "Avocados", 30, 50)

	err := svc.AddItem(ctx, buyer.ID, listing.ID, 0)
	require.ErrorIs(t, err, domain.ErrInvalidQuantity)

	err = svc.AddItem(ctx, buyer.ID, uuid.New(), 1)
	require.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestCartService_SetQuantity(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := service.NewCartService(
		repository.NewCartRepository(db),
		repository.NewListingRepository(db),
		repository.NewUserRepository(db),
	)
	ctx := context.Background()

	buyer := testutil.SeedTestUser(t, db, "buyer@test.com", "Buyer")
	seller := testutil.SeedTestUser(t, db, "seller@test.com", "Seller")
	listing := testutil.SeedTestListing(t, db, seller.ID, "Mangoes", 20, 100)

	require.NoError(t, svc.AddItem(ctx, buyer.ID, listing.ID, 4))

	require.NoError(t, svc.SetQuantity(ctx, buyer.ID, listing.ID, 7))
	view, err := svc.GetCart(ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, 7, view.Lines[0].Entry.Quantity, "set is absolute, not additive")

	// Zero removes the line.
	require.NoError(t, svc.SetQuantity(ctx, buyer.ID, listing.ID, 0))
	view, err = svc.GetCart(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Lines)
	assert.Equal(t, int64(0), view.Total)
}

func TestCartService_RemoveEntry(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := service.NewCartService(
		repository.NewCartRepository(db),
		repository.NewListingRepository(db),
		repository.NewUserRepository(db),
	)
	ctx := context.Background()

	buyer := testutil.SeedTestUser(t, db, "buyer@test.com", "Buyer")
	seller := testutil.SeedTestUser(t, db, "seller@test.com", "Seller")
	listing := testutil.SeedTestListing(t, db, seller.ID, "Oranges", 15, 40)
	entry := testutil.SeedCartEntry(t, db, buyer.ID, listing.ID, 2)

	require.NoError(t, svc.RemoveEntry(ctx, buyer.ID, entry.ID))
	assert.Equal(t, 0, testutil.CountCartEntries(t, db, buyer.ID))

	err := svc.RemoveEntry(ctx, buyer.ID, entry.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCartService_RemoveEntryScopedToBuyer(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := service.NewCartService(
		repository.NewCartRepository(db),
		repository.NewListingRepository(db),
		repository.NewUserRepository(db),
	)
	ctx := context.Background()

	buyer := testutil.SeedTestUser(t, db, "buyer@test.com", "Buyer")
	other := testutil.SeedTestUser(t, db, "other@test.com", "Other")
	seller := testutil.SeedTestUser(t, db, "seller@test.com", "Seller")
	listing := testutil.SeedTestListing(t, db, seller.ID, "Tomatoes", 10, 60)
	entry := testutil.SeedCartEntry(t, db, buyer.ID, listing.ID, 2)

	err := svc.RemoveEntry(ctx, other.ID, entry.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 1, testutil.CountCartEntries(t, db, buyer.ID))
}
