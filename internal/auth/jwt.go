package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"splitbill/internal/models"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("authorization token required")
)

// JWTManager issues and validates the HS256 session tokens.
type JWTManager struct {
	secretKey     []byte
	tokenDuration time.Duration
}

// Claims is the session token payload. The user id travels in the
// registered subject claim.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// UserID returns the subject the token was issued for.
func (c *Claims) UserID() string {
	return c.Subject
}

// NewJWTManager creates a JWT manager. secretKey should be a strong random
// string; tokenDuration is how long sessions stay valid.
func NewJWTManager(secretKey string, tokenDuration time.Duration) *JWTManager {
	return &JWTManager{
		secretKey:     []byte(secretKey),
		tokenDuration: tokenDuration,
	}
}

// Generate creates a session token for the given user.
func (m *JWTManager) Generate(user *models.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    "splitbill",
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return token, nil
}

// Validate parses a session token and returns its claims.
func (m *JWTManager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(*jwt.Token) (interface{}, error) { return m.secretKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
