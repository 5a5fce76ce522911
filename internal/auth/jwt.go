package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// tokenIssuer scopes tokens to this service; tokens minted by anything else
// sharing the secret are rejected at validation.
const tokenIssuer = "tujifund-marketplace-api"

type Claims struct {
	UserID uuid.UUID
	Email  string
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// GenerateToken mints an HS256 token for the member. The member id travels
// in the subject claim.
func GenerateToken(userID uuid.UUID, email string, secret string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Email: email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("GenerateToken: %w", err)
	}
	return signed, nil
}

func ValidateToken(tokenString string, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &tokenClaims{},
		func(t *jwt.Token) (any, error) {
			return []byte(secret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("ValidateToken: %w", err)
	}

	tc, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("ValidateToken: invalid token claims")
	}

	userID, err := uuid.Parse(tc.Subject)
	if err != nil {
		return nil, fmt.Errorf("ValidateToken: invalid subject in token: %w", err)
	}

	return &Claims{
		UserID: userID,
		Email:  tc.Email,
	}, nil
}
