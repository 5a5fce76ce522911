package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tujifund/marketplace-api/internal/domain"
	"github.com/tujifund/marketplace-api/internal/logging"
)

type listingRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Listing, error)
	ListActive(ctx context.Context, limit, offset int) ([]domain.Listing, int, error)
	Create(ctx context.Context, listing *domain.Listing) error
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Listing, error)
	Update(ctx context.Context, tx *sql.Tx, listing *domain.Listing) error
}

type ListingService struct {
	listings listingRepo
	db       *sql.DB
}

func NewListingService(listings listingRepo, db *sql.DB) *ListingService {
	return &ListingService{listings: listings, db: db}
}

type CreateListingRequest struct {
	SellerID    uuid.UUID
	Title       string
	Description *string
	UnitPrice   int64
	Quantity    int
}

func (s *ListingService) CreateListing(ctx context.Context, req CreateListingRequest) (*domain.Listing, error) {
	log := logging.FromContext(ctx)

	if req.UnitPrice <= 0 {
		return nil, fmt.Errorf("CreateListing: %w", domain.ErrInvalidAmount)
	}
	if req.Quantity < 0 {
		return nil, fmt.Errorf("CreateListing: %w", domain.ErrInvalidQuantity)
	}

	now := time.Now().UTC()
	l := &domain.Listing{
		ID:          uuid.New(),
		SellerID:    req.SellerID,
		Title:       req.Title,
		Description: req.Description,
		UnitPrice:   req.UnitPrice,
		Currency:    domain.CurrencyKES,
		Quantity:    req.Quantity,
		Status:      statusForQuantity(req.Quantity),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.listings.Create(ctx, l); err != nil {
		return nil, fmt.Errorf("CreateListing: %w", err)
	}

	log.Info("listing created",
		"listing_id", l.ID,
		"seller_id", l.SellerID,
		"unit_price", l.UnitPrice,
		"quantity", l.Quantity,
	)

	return l, nil
}

func (s *ListingService) GetListing(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	l, err := s.listings.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetListing: %w", err)
	}
	return l, nil
}

func (s *ListingService) ListActive(ctx context.Context, limit, offset int) ([]domain.Listing, int, error) {
	listings, total, err := s.listings.ListActive(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("ListActive: %w", err)
	}
	return listings, total, nil
}

type UpdateListingRequest struct {
	ListingID   uuid.UUID
	SellerID    uuid.UUID
	Title       *string
	Description *string
	UnitPrice   *int64
	Quantity    *int
}

// UpdateListing is the seller relist path. Setting quantity back above zero
// reactivates a sold-out listing; setting it to zero retires it. The listing
// row stays locked from read to write so a checkout settling concurrently
// cannot have its stock decrement overwritten by this read's snapshot.
func (s *ListingService) UpdateListing(ctx context.Context, req UpdateListingRequest) (*domain.Listing, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("UpdateListing: begin tx: %w", err)
	}
	defer tx.Rollback()

	l, err := s.listings.GetForUpdate(ctx, tx, req.ListingID)
	if err != nil {
		return nil, fmt.Errorf("UpdateListing: %w", err)
	}

	if l.SellerID != req.SellerID {
		return nil, fmt.Errorf("UpdateListing: %w", domain.ErrNotListingOwner)
	}

	if req.Title != nil {
		l.Title = *req.Title
	}
	if req.Description != nil {
		l.Description = req.Description
	}
	if req.UnitPrice != nil {
		if *req.UnitPrice <= 0 {
			return nil, fmt.Errorf("UpdateListing: %w", domain.ErrInvalidAmount)
		}
		l.UnitPrice = *req.UnitPrice
	}
	if req.Quantity != nil {
		if *req.Quantity < 0 {
			return nil, fmt.Errorf("UpdateListing: %w", domain.ErrInvalidQuantity)
		}
		l.Quantity = *req.Quantity
	}
	l.Status = statusForQuantity(l.Quantity)

	if err := s.listings.Update(ctx, tx, l); err != nil {
		return nil, fmt.Errorf("UpdateListing: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("UpdateListing: commit: %w", err)
	}
	return l, nil
}

func statusForQuantity(quantity int) domain.ListingStatus {
	if quantity == 0 {
		return domain.ListingStatusSoldOut
	}
	return domain.ListingStatusActive
}
