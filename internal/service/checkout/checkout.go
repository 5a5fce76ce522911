package checkout

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/tujifund/marketplace-api/internal/domain"
	"github.com/tujifund/marketplace-api/internal/logging"
)

// Checkout executes the all-or-nothing settlement of the buyer's cart.
//
// Lock order inside the transaction is fixed so two concurrent checkouts
// cannot deadlock: first the buyer's cart rows, then listings in ascending
// UUID order, then wallets in ascending UUID order. Balance and stock checks
// happen only after the locks are held, closing the check-then-act race.
func (s *Service) Checkout(ctx context.Context, req Request) (*Result, error) {
	log := logging.FromContext(ctx)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("Checkout: begin tx: %w", err)
	}
	defer tx.Rollback()

	lines, err := s.cart.ListForUpdate(ctx, tx, req.BuyerID)
	if err != nil {
		return nil, fmt.Errorf("Checkout: %w", err)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("Checkout: %w", domain.ErrEmptyCart)
	}

	listings, err := s.lockListings(ctx, tx, lines)
	if err != nil {
		return nil, fmt.Errorf("Checkout: %w", err)
	}

	total, err := deriveTotal(lines, listings)
	if err != nil {
		return nil, fmt.Errorf("Checkout: %w", err)
	}
	if req.ClaimedTotal != 0 && req.ClaimedTotal != total {
		log.Warn("client-claimed total ignored",
			"buyer_id", req.BuyerID,
			"claimed_total", req.ClaimedTotal,
			"derived_total", total,
		)
	}

	wallets, buyerWallet, err := s.lockSettlementWallets(ctx, tx, req.BuyerID, listings)
	if err != nil {
		return nil, fmt.Errorf("Checkout: %w", err)
	}

	if buyerWallet.Balance < total {
		return nil, fmt.Errorf("Checkout: %w", domain.ErrInsufficientFunds)
	}

	res, balances, remaining, err := s.settleLines(ctx, tx, req.BuyerID, buyerWallet, lines, listings, wallets)
	if err != nil {
		return nil, fmt.Errorf("Checkout: %w", err)
	}
	res.Total = total

	for id, qty := range remaining {
		status := domain.ListingStatusActive
		if qty == 0 {
			status = domain.ListingStatusSoldOut
		}
		if err := s.listings.UpdateQuantity(ctx, tx, id, qty, status); err != nil {
			return nil, fmt.Errorf("Checkout: %w", err)
		}
	}

	for id, balance := range balances {
		w := wallets[id]
		if err := s.wallets.UpdateBalance(ctx, tx, id, balance, w.Version+1); err != nil {
			return nil, fmt.Errorf("Checkout: %w", err)
		}
	}

	if err := s.cart.Clear(ctx, tx, req.BuyerID); err != nil {
		return nil, fmt.Errorf("Checkout: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Checkout: commit: %w", err)
	}

	log.Info("checkout completed",
		"buyer_id", req.BuyerID,
		"lines", len(lines),
		"total", total,
		"sellers", len(wallets)-1,
	)

	return res, nil
}

// lockListings locks every listing referenced by the cart, in ascending UUID
// order, and returns them keyed by id.
func (s *Service) lockListings(ctx context.Context, tx *sql.Tx, lines []domain.CartEntry) (map[uuid.UUID]*domain.Listing, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	seen := make(map[uuid.UUID]bool, len(lines))
	for _, l := range lines {
		if !seen[l.ListingID] {
			seen[l.ListingID] = true
			ids = append(ids, l.ListingID)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})

	listings := make(map[uuid.UUID]*domain.Listing, len(ids))
	for _, id := range ids {
		listing, err := s.listings.GetForUpdate(ctx, tx, id)
		if err != nil {
			return nil, fmt.Errorf("lockListings: %w", err)
		}
		listings[id] = listing
	}
	return listings, nil
}

// lockSettlementWallets resolves the buyer's wallet and every seller's wallet
// and locks them in ascending UUID order. The buyer buying from themselves is
// tolerated; the wallet is locked once.
func (s *Service) lockSettlementWallets(ctx context.Context, tx *sql.Tx, buyerID uuid.UUID, listings map[uuid.UUID]*domain.Listing) (map[uuid.UUID]*domain.Wallet, *domain.Wallet, error) {
	buyer, err := s.wallets.GetByOwner(ctx, domain.OwnerTypeUser, buyerID)
	if err != nil {
		return nil, nil, fmt.Errorf("lockSettlementWallets: buyer: %w", err)
	}

	ids := []uuid.UUID{buyer.ID}
	seen := map[uuid.UUID]bool{buyer.ID: true}
	for _, listing := range listings {
		w, err := s.wallets.GetByOwner(ctx, domain.OwnerTypeUser, listing.SellerID)
		if err != nil {
			return nil, nil, fmt.Errorf("lockSettlementWallets: seller %s: %w", listing.SellerID, err)
		}
		if !seen[w.ID] {
			seen[w.ID] = true
			ids = append(ids, w.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})

	wallets := make(map[uuid.UUID]*domain.Wallet, len(ids))
	for _, id := range ids {
		w, err := s.wallets.GetForUpdate(ctx, tx, id)
		if err != nil {
			return nil, nil, fmt.Errorf("lockSettlementWallets: %w", err)
		}
		wallets[id] = w
	}
	return wallets, wallets[buyer.ID], nil
}

// deriveTotal computes the cart total from the locked listing rows. Client
// prices and totals never enter this calculation.
func deriveTotal(lines []domain.CartEntry, listings map[uuid.UUID]*domain.Listing) (int64, error) {
	var total int64
	for _, line := range lines {
		listing, ok := listings[line.ListingID]
		if !ok {
			return 0, fmt.Errorf("deriveTotal: %w", domain.ErrItemNotFound)
		}
		total += int64(line.Quantity) * listing.UnitPrice
	}
	return total, nil
}

// settleLines walks the cart in order, staging per-line debits, credits,
// settlement transactions and order items against in-memory running state.
// Duplicate lines for one listing compose additively against the same
// remaining quantity.
func (s *Service) settleLines(
	ctx context.Context,
	tx *sql.Tx,
	buyerID uuid.UUID,
	buyerWallet *domain.Wallet,
	lines []domain.CartEntry,
	listings map[uuid.UUID]*domain.Listing,
	wallets map[uuid.UUID]*domain.Wallet,
) (*Result, map[uuid.UUID]int64, map[uuid.UUID]int, error) {
	balances := make(map[uuid.UUID]int64, len(wallets))
	for id, w := range wallets {
		balances[id] = w.Balance
	}
	remaining := make(map[uuid.UUID]int, len(listings))
	for id, l := range listings {
		remaining[id] = l.Quantity
	}

	walletByOwner := make(map[uuid.UUID]uuid.UUID, len(wallets))
	for id, w := range wallets {
		walletByOwner[w.OwnerID] = id
	}

	res := &Result{
		Transactions: make([]domain.Transaction, 0, len(lines)),
		OrderItems:   make([]domain.OrderItem, 0, len(lines)),
	}
	now := time.Now().UTC()

	for _, line := range lines {
		listing := listings[line.ListingID]

		if remaining[listing.ID] < line.Quantity {
			return nil, nil, nil, fmt.Errorf("settleLines: %q: %w", listing.Title, domain.ErrInsufficientStock)
		}

		lineTotal := int64(line.Quantity) * listing.UnitPrice
		sellerWalletID := walletByOwner[listing.SellerID]

		fromBefore := balances[buyerWallet.ID]
		balances[buyerWallet.ID] -= lineTotal
		fromAfter := balances[buyerWallet.ID]

		toBefore := balances[sellerWalletID]
		balances[sellerWalletID] += lineTotal
		toAfter := balances[sellerWalletID]

		settlement := domain.Transaction{
			ID:                uuid.New(),
			Kind:              domain.TransactionKindMarketplace,
			Status:            domain.TransactionStatusCompleted,
			Amount:            lineTotal,
			Currency:          listing.Currency,
			FromWalletID:      &buyerWallet.ID,
			ToWalletID:        &sellerWalletID,
			ListingID:         &listing.ID,
			Description:       fmt.Sprintf("marketplace purchase: %dx %s", line.Quantity, listing.Title),
			FromBalanceBefore: &fromBefore,
			FromBalanceAfter:  &fromAfter,
			ToBalanceBefore:   &toBefore,
			ToBalanceAfter:    &toAfter,
			CreatedAt:         now,
		}
		if err := s.transactions.Create(ctx, tx, &settlement); err != nil {
			return nil, nil, nil, fmt.Errorf("settleLines: record settlement: %w", err)
		}

		item := domain.OrderItem{
			ID:              uuid.New(),
			ListingID:       listing.ID,
			BuyerID:         buyerID,
			SellerID:        listing.SellerID,
			Quantity:        line.Quantity,
			UnitPriceAtSale: listing.UnitPrice,
			TransactionID:   settlement.ID,
			Status:          domain.OrderItemStatusCompleted,
			CreatedAt:       now,
		}
		if err := s.orderItems.Create(ctx, tx, &item); err != nil {
			return nil, nil, nil, fmt.Errorf("settleLines: record order item: %w", err)
		}

		remaining[listing.ID] -= line.Quantity
		res.Transactions = append(res.Transactions, settlement)
		res.OrderItems = append(res.OrderItems, item)
	}

	return res, balances, remaining, nil
}
