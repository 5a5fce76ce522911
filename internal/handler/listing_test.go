package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tujifund/marketplace-api/internal/domain"
	"github.com/tujifund/marketplace-api/internal/service"
)

type mockListingService struct {
	listing *domain.Listing
	err     error
}

func (m *mockListingService) CreateListing(_ context.Context, _ service.CreateListingRequest) (*domain.Listing, error) {
	return m.listing, m.err
}

func (m *mockListingService) GetListing(_ context.Context, _ uuid.UUID) (*domain.Listing, error) {
	return m.listing, m.err
}

func (m *mockListingService) ListActive(_ context.Context, _, _ int) ([]domain.Listing, int, error) {
	return nil, 0, m.err
}

func (m *mockListingService) UpdateListing(_ context.Context, _ service.UpdateListingRequest) (*domain.Listing, error) {
	return m.listing, m.err
}

func TestListingHandler_Get(t *testing.T) {
	found := &domain.Listing{
		ID:        uuid.New(),
		SellerID:  uuid.New(),
		Title:     "Maize flour",
		UnitPrice: 300,
		Currency:  domain.CurrencyKES,
		Quantity:  5,
		Status:    domain.ListingStatusActive,
		CreatedAt: time.Now().UTC(),
	}

	tests := []struct {
		name       string
		pathID     string
		listing    *domain.Listing
		svcErr     error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "existing listing",
			pathID:     found.ID.String(),
			listing:    found,
			wantStatus: http.StatusOK,
		},
		{
			name:       "unknown id is a plain 404",
			pathID:     uuid.NewString(),
			svcErr:     fmt.Errorf("GetListing: %w", domain.ErrItemNotFound),
			wantStatus: http.StatusNotFound,
			wantCode:   "RESOURCE_NOT_FOUND",
		},
		{
			name:       "malformed id",
			pathID:     "not-a-uuid",
			wantStatus: http.StatusNotFound,
			wantCode:   "RESOURCE_NOT_FOUND",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewListingHandler(&mockListingService{listing: tc.listing, err: tc.svcErr})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/listings/"+tc.pathID, nil)
			req.SetPathValue("id", tc.pathID)
			rec := httptest.NewRecorder()
			h.Get(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)

			resp := decodeEnvelope(t, rec)
			if tc.wantCode != "" {
				require.NotNil(t, resp.Error)
				assert.Equal(t, tc.wantCode, resp.Error.Code)
				assert.False(t, resp.Success)
			} else {
				assert.True(t, resp.Success)
			}
		})
	}
}
