package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrMissingToken     = errors.New("missing authentication token")
	ErrInvalidClaims    = errors.New("invalid token claims")
)

// SessionClaims are the claims of a storefront session token. Subject
// carries the customer GID and Dest the shop origin.
type SessionClaims struct {
	Dest string `json:"dest"`
	jwt.RegisteredClaims
}

// SessionTokenConfig holds validation settings
type SessionTokenConfig struct {
	// Secret is the app's shared secret; tokens are HS256
	Secret string
	// APIKey, when set, must appear in the aud claim
	APIKey string
	// Leeway tolerates clock skew on exp and nbf
	Leeway time.Duration
}

// SessionTokenValidator validates session tokens issued by the storefront
type SessionTokenValidator struct {
	secret []byte
	apiKey string
	parser *jwt.Parser
}

// NewSessionTokenValidator creates a validator
func NewSessionTokenValidator(cfg SessionTokenConfig) (*SessionTokenValidator, error) {
	if cfg.Secret == "" {
		return nil, errors.New("secret key required for HS256")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.APIKey != "" {
		opts = append(opts, jwt.WithAudience(cfg.APIKey))
	}

	return &SessionTokenValidator{
		secret: []byte(cfg.Secret),
		apiKey: cfg.APIKey,
		parser: jwt.NewParser(opts...),
	}, nil
}

// ValidateToken validates a token and returns its claims
func (v *SessionTokenValidator) ValidateToken(tokenString string) (*SessionClaims, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	claims := &SessionClaims{}
	token, err := v.parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrSignatureInvalid):
			return nil, ErrInvalidSignature
		case errors.Is(err, jwt.ErrTokenInvalidAudience):
			return nil, fmt.Errorf("%w: invalid audience", ErrInvalidClaims)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidClaims)
	}

	return claims, nil
}

// Shop returns the shop host from the dest claim
func (c *SessionClaims) Shop() string {
	shop := strings.TrimPrefix(c.Dest, "https://")
	return strings.TrimSuffix(shop, "/")
}

// SignSessionToken issues an HS256 session token. Used by local tooling and tests.
func SignSessionToken(secret, customerGID, shop, audience string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		Dest: "https://" + shop,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   customerGID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if audience != "" {
		claims.Audience = jwt.ClaimStrings{audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
