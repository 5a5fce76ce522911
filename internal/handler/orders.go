package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tujifund/marketplace-api/internal/auth"
	"github.com/tujifund/marketplace-api/internal/domain"
	"github.com/tujifund/marketplace-api/internal/logging"
)

type orderItemReader interface {
	GetByBuyerID(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]domain.OrderItem, int, error)
}

type OrderHandler struct {
	orders orderItemReader
}

func NewOrderHandler(orders orderItemReader) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type orderItemDTO struct {
	ID              uuid.UUID       `json:"id"`
	ListingID       uuid.UUID       `json:"listing_id"`
	SellerID        uuid.UUID       `json:"seller_id"`
	Quantity        int             `json:"quantity"`
	UnitPriceAtSale decimal.Decimal `json:"unit_price_at_sale"`
	TransactionID   uuid.UUID       `json:"transaction_id"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
}

func toOrderItemDTO(i *domain.OrderItem) orderItemDTO {
	return orderItemDTO{
		ID:              i.ID,
		ListingID:       i.ListingID,
		SellerID:        i.SellerID,
		Quantity:        i.Quantity,
		UnitPriceAtSale: toMajorUnits(i.UnitPriceAtSale),
		TransactionID:   i.TransactionID,
		Status:          string(i.Status),
		CreatedAt:       i.CreatedAt,
	}
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	limit, offset := paginationParams(r)
	items, total, err := h.orders.GetByBuyerID(r.Context(), buyerID, limit, offset)
	if err != nil {
		logging.FromContext(r.Context()).Warn("order history failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]orderItemDTO, 0, len(items))
	for i := range items {
		dtos = append(dtos, toOrderItemDTO(&items[i]))
	}

	RespondSuccess(w, http.StatusOK, map[string]any{
		"order_items": dtos,
		"total":       total,
		"limit":       limit,
		"offset":      offset,
	})
}
