// Package identity verifies identity provider credentials and stores the
// opaque session tokens handed to signed-in clients.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/garyjia/club-expenses/internal/application/port"
	"github.com/garyjia/club-expenses/internal/domain/entity"
)

// IDClaims are the claims of an identity provider ID token
type IDClaims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// TokenVerifier implements port.IdentityVerifier for HS256-signed ID tokens
type TokenVerifier struct {
	key      []byte
	issuer   string
	audience string
	leeway   time.Duration
}

var _ port.IdentityVerifier = (*TokenVerifier)(nil)

// VerifierConfig holds ID token verification settings
type VerifierConfig struct {
	SigningKey string
	Issuer     string
	Audience   string
	Leeway     time.Duration
}

// NewTokenVerifier creates a verifier. The signing key is required.
func NewTokenVerifier(cfg VerifierConfig) (*TokenVerifier, error) {
	if cfg.SigningKey == "" {
		return nil, errors.New("identity signing key is required")
	}
	return &TokenVerifier{
		key:      []byte(cfg.SigningKey),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		leeway:   cfg.Leeway,
	}, nil
}

// Verify checks the token's signature, expiry, issuer and audience and
// returns the principal it names.
func (v *TokenVerifier) Verify(ctx context.Context, credential string) (entity.Principal, error) {
	if credential == "" {
		return entity.Principal{}, fmt.Errorf("%w: empty token", port.ErrInvalidCredential)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	var claims IDClaims
	_, err := jwt.ParseWithClaims(credential, &claims, func(t *jwt.Token) (interface{}, error) {
		return v.key, nil
	}, opts...)
	if err != nil {
		return entity.Principal{}, fmt.Errorf("%w: %v", port.ErrInvalidCredential, err)
	}
	if claims.Subject == "" {
		return entity.Principal{}, fmt.Errorf("%w: missing subject", port.ErrInvalidCredential)
	}

	return entity.Principal{
		ID:    claims.Subject,
		Email: claims.Email,
		Name:  claims.Name,
	}, nil
}

// Sign issues an ID token for principal, for local development sign-in and tests
func (v *TokenVerifier) Sign(principal entity.Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := IDClaims{
		Email: principal.Email,
		Name:  principal.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal.ID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if v.audience != "" {
		claims.Audience = jwt.ClaimStrings{v.audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.key)
	if err != nil {
		return "", fmt.Errorf("sign id token: %w", err)
	}
	return signed, nil
}
