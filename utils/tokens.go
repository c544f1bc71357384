package utils

import (
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pddapp/backend/apperrors"
)

type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

type Claims struct {
	Email string `json:"email,omitempty"`
	Type  string `json:"type"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies the bearer tokens. One symmetric secret for
// both token types; the "type" claim is what keeps a refresh token from
// passing as an access token and vice versa.
type TokenCodec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenCodec(secret string, accessTTL, refreshTTL time.Duration) *TokenCodec {
	return &TokenCodec{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

func TokenCodecFromEnv() *TokenCodec {
	return NewTokenCodec(os.Getenv("JWT_SECRET"), AccessTTL(), RefreshTTL())
}

func (c *TokenCodec) AccessTTL() time.Duration  { return c.accessTTL }
func (c *TokenCodec) RefreshTTL() time.Duration { return c.refreshTTL }

func (c *TokenCodec) IssueAccess(userID, email string) (string, error) {
	return c.issue(Claims{
		Email: email,
		Type:  string(TokenAccess),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(c.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})
}

func (c *TokenCodec) IssueRefresh(userID string) (string, error) {
	return c.issue(Claims{
		Type: string(TokenRefresh),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(c.refreshTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})
}

func (c *TokenCodec) issue(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Verify checks signature, expiry and the type claim. Every failure mode is
// the same Unauthorized to the caller.
func (c *TokenCodec) Verify(tokenStr string, want TokenType) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, apperrors.New(apperrors.Unauthorized, "invalid or expired token")
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Type != string(want) {
		return nil, apperrors.New(apperrors.Unauthorized, "invalid token type")
	}
	if claims.Subject == "" {
		return nil, apperrors.New(apperrors.Unauthorized, "invalid token subject")
	}
	return claims, nil
}

func AccessTTL() time.Duration {
	min, _ := strconv.Atoi(os.Getenv("ACCESS_TOKEN_TTL_MINUTES"))
	if min <= 0 {
		min = 15
	}
	return time.Duration(min) * time.Minute
}

func RefreshTTL() time.Duration {
	days, _ := strconv.Atoi(os.Getenv("REFRESH_TOKEN_TTL_DAYS"))
	if days <= 0 {
		days = 14
	}
	return time.Duration(days) * 24 * time.Hour
}
