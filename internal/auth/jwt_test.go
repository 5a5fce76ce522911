package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-jwt-secret"

func TestGenerateAndValidateToken(t *testing.T) {
	userID := uuid.New()
	email := "buyer@test.com"

	token, err := GenerateToken(userID, email, testSecret, 24*time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, email, claims.Email)
}

func signTestToken(t *testing.T, claims tokenClaims, secret string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestValidateToken(t *testing.T) {
	userID := uuid.New()
	email := "buyer@test.com"

	validToken, err := GenerateToken(userID, email, testSecret, 24*time.Hour)
	require.NoError(t, err)

	expiredToken, err := GenerateToken(userID, email, testSecret, -1*time.Hour)
	require.NoError(t, err)

	foreignIssuerToken := signTestToken(t, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "some-other-service",
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Email: email,
	}, testSecret)

	noExpiryToken := signTestToken(t, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   tokenIssuer,
			Subject:  userID.String(),
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
		Email: email,
	}, testSecret)

	tests := []struct {
		name      string
		token     string
		secret    string
		wantErrIs error
	}{
		{
			name:      "expired token",
			token:     expiredToken,
			secret:    testSecret,
			wantErrIs: jwt.ErrTokenExpired,
		},
		{
			name:      "wrong secret",
			token:     validToken,
			secret:    "wrong-secret",
			wantErrIs: jwt.ErrTokenSignatureInvalid,
		},
		{
			name:      "malformed token",
			token:     "not.a.valid.jwt",
			secret:    testSecret,
			wantErrIs: jwt.ErrTokenMalformed,
		},
		{
			name:      "empty token",
			token:     "",
			secret:    testSecret,
			wantErrIs: jwt.ErrTokenMalformed,
		},
		{
			name:      "issued by another service",
			token:     foreignIssuerToken,
			secret:    testSecret,
			wantErrIs: jwt.ErrTokenInvalidIssuer,
		},
		{
			name:      "missing expiry claim",
			token:     noExpiryToken,
			secret:    testSecret,
			wantErrIs: jwt.ErrTokenRequiredClaimMissing,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidateToken(tc.token, tc.secret)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.wantErrIs)
		})
	}
}

func TestValidateToken_RejectsNonHMAC(t *testing.T) {
	// Algorithm confusion: a token signed with "none" should be rejected
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Email: "buyer@test.com",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ValidateToken(signed, testSecret)
	require.Error(t, err)
}

func TestValidateToken_NonUUIDSubject(t *testing.T) {
	signed := signTestToken(t, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   "not-a-uuid",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Email: "buyer@test.com",
	}, testSecret)

	_, err := ValidateToken(signed, testSecret)
	require.Error(t, err)
}
