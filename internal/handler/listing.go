package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tujifund/marketplace-api/internal/auth"
	"github.com/tujifund/marketplace-api/internal/domain"
	"github.com/tujifund/marketplace-api/internal/logging"
	"github.com/tujifund/marketplace-api/internal/service"
)

type listingService interface {
	CreateListing(ctx context.Context, req service.CreateListingRequest) (*domain.Listing, error)
	GetListing(ctx context.Context, id uuid.UUID) (*domain.Listing, error)
	ListActive(ctx context.Context, limit, offset int) ([]domain.Listing, int, error)
	UpdateListing(ctx context.Context, req service.UpdateListingRequest) (*domain.Listing, error)
}

type ListingHandler struct {
	listings listingService
}

func NewListingHandler(listings listingService) *ListingHandler {
	return &ListingHandler{listings: listings}
}

type listingDTO struct {
	ID          uuid.UUID       `json:"id"`
	SellerID    uuid.UUID       `json:"seller_id"`
	Title       string          `json:"title"`
	Description *string         `json:"description,omitempty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Currency    string          `json:"currency"`
	Quantity    int             `json:"quantity"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}

func toListingDTO(l *domain.Listing) listingDTO {
	return listingDTO{
		ID:          l.ID,
		SellerID:    l.SellerID,
		Title:       l.Title,
		Description: l.Description,
		UnitPrice:   toMajorUnits(l.UnitPrice),
		Currency:    string(l.Currency),
		Quantity:    l.Quantity,
		Status:      string(l.Status),
		CreatedAt:   l.CreatedAt,
	}
}

type createListingRequest struct {
	Title       string          `json:"title"`
	Description *string         `json:"description"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
}

func (r createListingRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Title == "" {
		errs = append(errs, FieldError{Field: "title", Message: "required"})
	}
	if !r.UnitPrice.IsPositive() {
		errs = append(errs, FieldError{Field: "unit_price", Message: "must be greater than 0"})
	} else if _, ok := toMinorUnits(r.UnitPrice); !ok {
		errs = append(errs, FieldError{Field: "unit_price", Message: "at most 2 decimal places"})
	}
	if r.Quantity < 0 {
		errs = append(errs, FieldError{Field: "quantity", Message: "must not be negative"})
	}
	return errs
}

type updateListingRequest struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
	Quantity    *int             `json:"quantity"`
}

func (r updateListingRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Title != nil && *r.Title == "" {
		errs = append(errs, FieldError{Field: "title", Message: "must not be empty"})
	}
	if r.UnitPrice != nil {
		if !r.UnitPrice.IsPositive() {
			errs = append(errs, FieldError{Field: "unit_price", Message: "must be greater than 0"})
		} else if _, ok := toMinorUnits(*r.UnitPrice); !ok {
			errs = append(errs, FieldError{Field: "unit_price", Message: "at most 2 decimal places"})
		}
	}
	if r.Quantity != nil && *r.Quantity < 0 {
		errs = append(errs, FieldError{Field: "quantity", Message: "must not be negative"})
	}
	return errs
}

func (h *ListingHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	sellerID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req createListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	unitPrice, _ := toMinorUnits(req.UnitPrice)
	listing, err := h.listings.CreateListing(r.Context(), service.CreateListingRequest{
		SellerID:    sellerID,
		Title:       req.Title,
		Description: req.Description,
		UnitPrice:   unitPrice,
		Quantity:    req.Quantity,
	})
	if err != nil {
		log.Warn("listing creation failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toListingDTO(listing))
}

func (h *ListingHandler) Get(w http.ResponseWriter, r *http.Request) {
	listingID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	listing, err := h.listings.GetListing(r.Context(), listingID)
	if err != nil {
		// A plain resource read; a missing id is 404 here, unlike the
		// checkout path where a vanished listing is a business failure.
		if errors.Is(err, domain.ErrItemNotFound) {
			RespondAppError(w, ErrResourceNotFound, nil)
			return
		}
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toListingDTO(listing))
}

func (h *ListingHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r)

	listings, total, err := h.listings.ListActive(r.Context(), limit, offset)
	if err != nil {
		logging.FromContext(r.Context()).Warn("listing query failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]listingDTO, 0, len(listings))
	for i := range listings {
		dtos = append(dtos, toListingDTO(&listings[i]))
	}

	RespondSuccess(w, http.StatusOK, map[string]any{
		"listings": dtos,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

func (h *ListingHandler) Update(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	sellerID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	listingID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	var req updateListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	update := service.UpdateListingRequest{
		ListingID:   listingID,
		SellerID:    sellerID,
		Title:       req.Title,
		Description: req.Description,
		Quantity:    req.Quantity,
	}
	if req.UnitPrice != nil {
		p, _ := toMinorUnits(*req.UnitPrice)
		update.UnitPrice = &p
	}

	listing, err := h.listings.UpdateListing(r.Context(), update)
	if err != nil {
		log.Warn("listing update failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toListingDTO(listing))
}
