package service

import (
	"fmt"
	"time"

	"wallet-ledger/internal/core/ports"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token kinds carried in the typ claim.
const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// identityClaims is the JWT payload: the subject is the user id.
type identityClaims struct {
	Username string `json:"username"`
	Type     string `json:"typ"`
	jwt.RegisteredClaims
}

// JWTTokenService implements ports.TokenService using HS256 JWT.
type JWTTokenService struct {
	secret        []byte
	expiry        time.Duration
	refreshExpiry time.Duration
	issuer        string
	now           Clock
}

// NewJWTTokenService creates a new JWT token service. expiry bounds access
// tokens, refreshExpiry bounds refresh tokens.
func NewJWTTokenService(secret string, expiry, refreshExpiry time.Duration, issuer string) *JWTTokenService {
	return &JWTTokenService{
		secret:        []byte(secret),
		expiry:        expiry,
		refreshExpiry: refreshExpiry,
		issuer:        issuer,
		now:           SystemClock,
	}
}

// Generate signs an access token for the identity.
func (s *JWTTokenService) Generate(userID uuid.UUID, username string) (string, time.Time, error) {
	return s.sign(userID, username, tokenTypeAccess, s.expiry)
}

// GenerateRefresh signs a refresh token for the identity.
func (s *JWTTokenService) GenerateRefresh(userID uuid.UUID, username string) (string, time.Time, error) {
	return s.sign(userID, username, tokenTypeRefresh, s.refreshExpiry)
}

// Validate parses an access token and returns the identity it was issued for.
func (s *JWTTokenService) Validate(tokenString string) (*ports.TokenClaims, error) {
	return s.parse(tokenString, tokenTypeAccess)
}

// ValidateRefresh parses a refresh token.
func (s *JWTTokenService) ValidateRefresh(tokenString string) (*ports.TokenClaims, error) {
	return s.parse(tokenString, tokenTypeRefresh)
}

func (s *JWTTokenService) sign(userID uuid.UUID, username, typ string, ttl time.Duration) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(ttl)

	claims := identityClaims{
		Username: username,
		Type:     typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing %s token: %w", typ, err)
	}
	return signed, expiresAt, nil
}

func (s *JWTTokenService) parse(tokenString, typ string) (*ports.TokenClaims, error) {
	var claims identityClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}
	if claims.Type != typ {
		return nil, fmt.Errorf("expected %s token, got %q", typ, claims.Type)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID in token: %w", err)
	}
	if claims.Username == "" {
		return nil, fmt.Errorf("missing username claim")
	}

	return &ports.TokenClaims{UserID: userID, Username: claims.Username}, nil
}
