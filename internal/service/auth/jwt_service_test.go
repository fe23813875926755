package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/wordmon-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret  = "test-secret-that-is-long-enough-for-testing"
	wrongSecret = "wrong-secret-that-is-long-enough-for-testing"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func mustService(t *testing.T, secret string, now time.Time) *hmacJWTService {
	t.Helper()
	svc, err := newJWTService(secret, time.Hour, fixedClock(now))
	require.NoError(t, err)
	return svc
}

func TestNewJWTService(t *testing.T) {
	t.Parallel()

	_, err := NewJWTService(config.AuthConfig{JWTSecret: "short", TokenLifetime: time.Hour})
	assert.Error(t, err)

	_, err = NewJWTService(config.AuthConfig{JWTSecret: testSecret})
	assert.Error(t, err)

	svc, err := NewJWTService(config.AuthConfig{JWTSecret: testSecret, TokenLifetime: time.Hour})
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	fixedTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	userID := uuid.New()
	svc := mustService(t, testSecret, fixedTime)

	token, err := svc.GenerateToken(context.Background(), userID)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.Equal(t, fixedTime.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, fixedTime.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
	assert.NotEmpty(t, claims.ID)

	_, err = svc.GenerateToken(context.Background(), uuid.Nil)
	assert.Error(t, err)
}

func TestValidateToken(t *testing.T) {
	t.Parallel()

	fixedTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	userID := uuid.New()

	signWith := func(t *testing.T, claims jwtCustomClaims, method jwt.SigningMethod, key any) string {
		t.Helper()
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	baseClaims := func(tokenType string) jwtCustomClaims {
		return jwtCustomClaims{
			UserID:    userID,
			TokenType: tokenType,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   userID.String(),
				IssuedAt:  jwt.NewNumericDate(fixedTime),
				ExpiresAt: jwt.NewNumericDate(fixedTime.Add(time.Hour)),
			},
		}
	}

	tests := []struct {
		name    string
		token   func(t *testing.T) string
		now     time.Time
		wantErr error
	}{
		{
			name: "valid token",
			token: func(t *testing.T) string {
				return signWith(t, baseClaims(TokenTypeAccess), jwt.SigningMethodHS256, []byte(testSecret))
			},
			now: fixedTime.Add(30 * time.Minute),
		},
		{
			name: "expired token",
			token: func(t *testing.T) string {
				return signWith(t, baseClaims(TokenTypeAccess), jwt.SigningMethodHS256, []byte(testSecret))
			},
			now:     fixedTime.Add(2 * time.Hour),
			wantErr: ErrExpiredToken,
		},
		{
			name: "within clock skew",
			token: func(t *testing.T) string {
				return signWith(t, baseClaims(TokenTypeAccess), jwt.SigningMethodHS256, []byte(testSecret))
			},
			now: fixedTime.Add(time.Hour + time.Minute),
		},
		{
			name: "not yet valid",
			token: func(t *testing.T) string {
				c := baseClaims(TokenTypeAccess)
				c.NotBefore = jwt.NewNumericDate(fixedTime.Add(time.Hour))
				return signWith(t, c, jwt.SigningMethodHS256, []byte(testSecret))
			},
			now:     fixedTime,
			wantErr: ErrTokenNotYetValid,
		},
		{
			name: "wrong secret",
			token: func(t *testing.T) string {
				return signWith(t, baseClaims(TokenTypeAccess), jwt.SigningMethodHS256, []byte(wrongSecret))
			},
			now:     fixedTime,
			wantErr: ErrInvalidToken,
		},
		{
			name: "refresh token",
			token: func(t *testing.T) string {
				return signWith(t, baseClaims("refresh"), jwt.SigningMethodHS256, []byte(testSecret))
			},
			now:     fixedTime,
			wantErr: ErrWrongTokenType,
		},
		{
			name: "unsigned token",
			token: func(t *testing.T) string {
				return signWith(t, baseClaims(TokenTypeAccess), jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType)
			},
			now:     fixedTime,
			wantErr: ErrInvalidToken,
		},
		{
			name:    "malformed",
			token:   func(*testing.T) string { return "not.a.token" },
			now:     fixedTime,
			wantErr: ErrInvalidToken,
		},
		{
			name:    "empty",
			token:   func(*testing.T) string { return "" },
			now:     fixedTime,
			wantErr: ErrMissingToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := mustService(t, testSecret, tt.now)

			claims, err := svc.ValidateToken(context.Background(), tt.token(t))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, userID, claims.UserID)
		})
	}
}
