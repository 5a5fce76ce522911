package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tujifund/marketplace-api/internal/domain"
)

type cartRepo interface {
	Upsert(ctx context.Context, entry *domain.CartEntry) error
	SetQuantity(ctx context.Context, buyerID, listingID uuid.UUID, quantity int) error
	RemoveByListing(ctx context.Context, buyerID, listingID uuid.UUID) error
	Remove(ctx context.Context, buyerID, entryID uuid.UUID) error
	ListForBuyer(ctx context.Context, buyerID uuid.UUID) ([]domain.CartEntry, error)
}

type listingReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Listing, error)
}

type sellerReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

type CartService struct {
	cart     cartRepo
	listings listingReader
	users    sellerReader
}

func NewCartService(cart cartRepo, listings listingReader, users sellerReader) *CartService {
	return &CartService{cart: cart, listings: listings, users: users}
}

// CartLine is a cart entry enriched with listing and seller display data.
// The line total here is informational; checkout re-derives every price
// under its own row locks.
type CartLine struct {
	Entry      domain.CartEntry
	Listing    domain.Listing
	SellerName string
	LineTotal  int64
}

type CartView struct {
	Lines []CartLine
	Total int64
}

// AddItem has upsert semantics: quantities for an existing (buyer, listing)
// line are summed. Stock is deliberately not checked here; it is re-validated
// at checkout under a row lock.
func (s *CartService) AddItem(ctx context.Context, buyerID, listingID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("AddItem: %w", domain.ErrInvalidQuantity)
	}

	if _, err := s.listings.GetByID(ctx, listingID); err != nil {
		return fmt.Errorf("AddItem: %w", err)
	}

	now := time.Now().UTC()
	entry := &domain.CartEntry{
		ID:        uuid.New(),
		BuyerID:   buyerID,
		ListingID: listingID,
		Quantity:  quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.cart.Upsert(ctx, entry); err != nil {
		return fmt.Errorf("AddItem: %w", err)
	}
	return nil
}

// SetQuantity sets the absolute quantity of a line; zero or below removes it.
func (s *CartService) SetQuantity(ctx context.Context, buyerID, listingID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		if err := s.cart.RemoveByListing(ctx, buyerID, listingID); err != nil {
			return fmt.Errorf("SetQuantity: %w", err)
		}
		return nil
	}
	if err := s.cart.SetQuantity(ctx, buyerID, listingID, quantity); err != nil {
		return fmt.Errorf("SetQuantity: %w", err)
	}
	return nil
}

func (s *CartService) RemoveEntry(ctx context.Context, buyerID, entryID uuid.UUID) error {
	if err := s.cart.Remove(ctx, buyerID, entryID); err != nil {
		return fmt.Errorf("RemoveEntry: %w", err)
	}
	return nil
}

func (s *CartService) GetCart(ctx context.Context, buyerID uuid.UUID) (*CartView, error) {
	entries, err := s.cart.ListForBuyer(ctx, buyerID)
	if err != nil {
		return nil, fmt.Errorf("GetCart: %w", err)
	}

	view := &CartView{Lines: make([]CartLine, 0, len(entries))}
	for _, e := range entries {
		listing, err := s.listings.GetByID(ctx, e.ListingID)
		if err != nil {
			// A listing deleted after being carted; skip the orphan line.
			if errors.Is(err, domain.ErrItemNotFound) {
				continue
			}
			return nil, fmt.Errorf("GetCart: %w", err)
		}

		sellerName := ""
		if seller, err := s.users.GetByID(ctx, listing.SellerID); err == nil {
			sellerName = seller.Name
		}

		lineTotal := int64(e.Quantity) * listing.UnitPrice
		view.Lines = append(view.Lines, CartLine{
			Entry:      e,
			Listing:    *listing,
			SellerName: sellerName,
			LineTotal:  lineTotal,
		})
		view.Total += lineTotal
	}
	return view, nil
}
