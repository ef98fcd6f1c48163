package security

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Permission flags checked on the API surface.
const (
	PermProductWrite     = "product:write"
	PermLedgerPost       = "ledger:post"
	PermClosingRun       = "closing:run"
	PermDeclarationWrite = "declaration:write"
	PermReportsView      = "reports:view"
)

// Claims is the JWT payload carried by access tokens.
type Claims struct {
	Name        string   `json:"name,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	IsAdmin     bool     `json:"admin,omitempty"`
	jwt.RegisteredClaims
}

// JWTValidator validates HMAC-signed access tokens and resolves the
// actor they describe.
type JWTValidator struct {
	secret []byte
}

// NewJWTValidator creates a validator for the given signing secret.
func NewJWTValidator(secret []byte) *JWTValidator {
	return &JWTValidator{secret: secret}
}

// ValidateToken parses and verifies a token string.
func (v *JWTValidator) ValidateToken(tokenString string) (*Actor, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return &Actor{
		ID:          claims.Subject,
		Name:        claims.Name,
		Permissions: claims.Permissions,
		IsAdmin:     claims.IsAdmin,
	}, nil
}

// IssueToken signs a token for the actor. Used by the seed tool and
// tests; production deployments get tokens from the identity provider.
func (v *JWTValidator) IssueToken(actor *Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Name:        actor.Name,
		Permissions: actor.Permissions,
		IsAdmin:     actor.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
