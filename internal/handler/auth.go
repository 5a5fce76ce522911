package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/tujifund/marketplace-api/internal/auth"
	"github.com/tujifund/marketplace-api/internal/domain"
	"github.com/tujifund/marketplace-api/internal/logging"
)

type userStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
}

type walletCreator interface {
	CreateForUser(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
}

type AuthHandler struct {
	users     userStore
	wallets   walletCreator
	jwtSecret string
	jwtExpiry time.Duration
}

func NewAuthHandler(users userStore, wallets walletCreator, jwtSecret string, jwtExpiry time.Duration) *AuthHandler {
	return &AuthHandler{
		users:     users,
		wallets:   wallets,
		jwtSecret: jwtSecret,
		jwtExpiry: jwtExpiry,
	}
}

type registerRequest struct {
	Email    string  `json:"email"`
	Name     string  `json:"name"`
	Password string  `json:"password"`
	Phone    *string `json:"phone"`
}

func (r registerRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Email == "" {
		errs = append(errs, FieldError{Field: "email", Message: "required"})
	} else if _, err := mail.ParseAddress(r.Email); err != nil {
		errs = append(errs, FieldError{Field: "email", Message: "must be a valid email address"})
	}
	if r.Name == "" {
		errs = append(errs, FieldError{Field: "name", Message: "required"})
	}
	if len(r.Password) < 8 {
		errs = append(errs, FieldError{Field: "password", Message: "must be at least 8 characters"})
	}
	return errs
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r loginRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Email == "" {
		errs = append(errs, FieldError{Field: "email", Message: "required"})
	}
	if r.Password == "" {
		errs = append(errs, FieldError{Field: "password", Message: "required"})
	}
	return errs
}

type loginResponse struct {
	Token string  `json:"token"`
	User  userDTO `json:"user"`
}

type userDTO struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
	Phone *string   `json:"phone,omitempty"`
}

// Register creates the user and their zero-balance KES wallet; every member
// has exactly one wallet from the moment they join.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	if _, err := h.users.GetByEmail(r.Context(), req.Email); err == nil {
		RespondAppError(w, ErrEmailTaken, nil)
		return
	} else if !errors.Is(err, domain.ErrNotFound) {
		log.Error("registration lookup failed", "error", err)
		RespondAppError(w, ErrInternalError, nil)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		RespondAppError(w, ErrInternalError, nil)
		return
	}

	user := &domain.User{
		ID:           uuid.New(),
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: string(hash),
		Phone:        req.Phone,
		Status:       domain.UserStatusActive,
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.users.Create(r.Context(), user); err != nil {
		log.Error("registration failed", "error", err)
		RespondAppError(w, ErrInternalError, nil)
		return
	}

	if _, err := h.wallets.CreateForUser(r.Context(), user.ID); err != nil {
		log.Error("wallet creation failed", "error", err, "user_id", user.ID)
		RespondAppError(w, ErrInternalError, nil)
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Email, h.jwtSecret, h.jwtExpiry)
	if err != nil {
		RespondAppError(w, ErrInternalError, nil)
		return
	}

	RespondSuccess(w, http.StatusCreated, loginResponse{
		Token: token,
		User: userDTO{
			ID:    user.ID,
			Email: user.Email,
			Name:  user.Name,
			Phone: user.Phone,
		},
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	user, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			RespondAppError(w, ErrInvalidCredentials, nil)
			return
		}
		RespondDomainError(w, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		RespondAppError(w, ErrInvalidCredentials, nil)
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Email, h.jwtSecret, h.jwtExpiry)
	if err != nil {
		RespondAppError(w, ErrInternalError, nil)
		return
	}

	RespondSuccess(w, http.StatusOK, loginResponse{
		Token: token,
		User: userDTO{
			ID:    user.ID,
			Email: user.Email,
			Name:  user.Name,
			Phone: user.Phone,
		},
	})
}
