package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tujifund/marketplace-api/internal/auth"
	"github.com/tujifund/marketplace-api/internal/logging"
	"github.com/tujifund/marketplace-api/internal/service"
	"github.com/tujifund/marketplace-api/internal/service/checkout"
)

type cartService interface {
	AddItem(ctx context.Context, buyerID, listingID uuid.UUID, quantity int) error
	SetQuantity(ctx context.Context, buyerID, listingID uuid.UUID, quantity int) error
	RemoveEntry(ctx context.Context, buyerID, entryID uuid.UUID) error
	GetCart(ctx context.Context, buyerID uuid.UUID) (*service.CartView, error)
}

type checkoutService interface {
	Checkout(ctx context.Context, req checkout.Request) (*checkout.Result, error)
}

type CartHandler struct {
	cart     cartService
	checkout checkoutService
}

func NewCartHandler(cart cartService, checkoutSvc checkoutService) *CartHandler {
	return &CartHandler{cart: cart, checkout: checkoutSvc}
}

type cartLineDTO struct {
	EntryID    uuid.UUID       `json:"entry_id"`
	ListingID  uuid.UUID       `json:"listing_id"`
	Title      string          `json:"title"`
	SellerID   uuid.UUID       `json:"seller_id"`
	SellerName string          `json:"seller_name"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int             `json:"quantity"`
	LineTotal  decimal.Decimal `json:"line_total"`
	Status     string          `json:"status"`
}

type cartDTO struct {
	Lines []cartLineDTO   `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

func toCartDTO(v *service.CartView) cartDTO {
	dto := cartDTO{
		Lines: make([]cartLineDTO, 0, len(v.Lines)),
		Total: toMajorUnits(v.Total),
	}
	for _, line := range v.Lines {
		dto.Lines = append(dto.Lines, cartLineDTO{
			EntryID:    line.Entry.ID,
			ListingID:  line.Listing.ID,
			Title:      line.Listing.Title,
			SellerID:   line.Listing.SellerID,
			SellerName: line.SellerName,
			UnitPrice:  toMajorUnits(line.Listing.UnitPrice),
			Quantity:   line.Entry.Quantity,
			LineTotal:  toMajorUnits(line.LineTotal),
			Status:     string(line.Listing.Status),
		})
	}
	return dto
}

type cartMutationRequest struct {
	ItemID   uuid.UUID `json:"item_id"`
	Quantity int       `json:"quantity"`
}

func (r cartMutationRequest) Validate() []FieldError {
	var errs []FieldError
	if r.ItemID == uuid.Nil {
		errs = append(errs, FieldError{Field: "item_id", Message: "required"})
	}
	return errs
}

func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	view, err := h.cart.GetCart(r.Context(), buyerID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("cart fetch failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toCartDTO(view))
}

// Add upserts a line: repeated adds of the same listing sum their quantities.
func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(ctx context.Context, buyerID uuid.UUID, req cartMutationRequest) error {
		return h.cart.AddItem(ctx, buyerID, req.ItemID, req.Quantity)
	})
}

// SetQuantity sets the absolute quantity; zero or below removes the line.
func (h *CartHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(ctx context.Context, buyerID uuid.UUID, req cartMutationRequest) error {
		return h.cart.SetQuantity(ctx, buyerID, req.ItemID, req.Quantity)
	})
}

func (h *CartHandler) mutate(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, buyerID uuid.UUID, req cartMutationRequest) error) {
	buyerID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req cartMutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	if err := op(r.Context(), buyerID, req); err != nil {
		logging.FromContext(r.Context()).Warn("cart mutation failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	view, err := h.cart.GetCart(r.Context(), buyerID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toCartDTO(view))
}

func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	entryID, err := uuid.Parse(r.PathValue("entryID"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	if err := h.cart.RemoveEntry(r.Context(), buyerID, entryID); err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, nil)
}

type checkoutRequest struct {
	CartItems []struct {
		ItemID   uuid.UUID `json:"item_id"`
		Quantity int       `json:"quantity"`
		SellerID uuid.UUID `json:"seller_id"`
	} `json:"cart_items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

type checkoutResponse struct {
	Transactions []transactionDTO `json:"transactions"`
	OrderItems   []orderItemDTO   `json:"order_items"`
	Total        decimal.Decimal  `json:"total"`
}

// Checkout settles the stored cart. The body's cart_items and total_amount
// are advisory; prices, sellers, and the total are re-derived server-side
// inside the settlement transaction.
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	buyerID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	claimedTotal, ok := toMinorUnits(req.TotalAmount)
	if !ok {
		RespondValidationError(w, []FieldError{{Field: "total_amount", Message: "at most 2 decimal places"}})
		return
	}

	claimed := make([]checkout.ClaimedLine, 0, len(req.CartItems))
	for _, item := range req.CartItems {
		claimed = append(claimed, checkout.ClaimedLine{
			ListingID: item.ItemID,
			Quantity:  item.Quantity,
			SellerID:  item.SellerID,
		})
	}

	res, err := h.checkout.Checkout(r.Context(), checkout.Request{
		BuyerID:      buyerID,
		ClaimedLines: claimed,
		ClaimedTotal: claimedTotal,
	})
	if err != nil {
		log.Warn("checkout failed", "error", err, "lines_claimed", len(claimed))
		RespondDomainError(w, err)
		return
	}

	txs := make([]transactionDTO, 0, len(res.Transactions))
	for i := range res.Transactions {
		txs = append(txs, toTransactionDTO(&res.Transactions[i]))
	}
	items := make([]orderItemDTO, 0, len(res.OrderItems))
	for i := range res.OrderItems {
		items = append(items, toOrderItemDTO(&res.OrderItems[i]))
	}

	RespondSuccess(w, http.StatusOK, checkoutResponse{
		Transactions: txs,
		OrderItems:   items,
		Total:        toMajorUnits(res.Total),
	})
}
