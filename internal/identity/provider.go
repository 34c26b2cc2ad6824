// Package identity resolves caller identity from bearer tokens. The rest of
// the codebase never reads identity from ambient state; handlers resolve it
// here once and pass it into services explicitly.
package identity

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"agora/internal/models"
)

// Provider verifies a bearer token and returns the identity it carries.
type Provider interface {
	Verify(ctx context.Context, token string) (models.Identity, error)
}

// JWTProvider verifies HMAC-signed tokens. Issuer and audience are enforced
// when configured.
type JWTProvider struct {
	secret   []byte
	issuer   string
	audience string
}

func NewJWTProvider(secret, issuer, audience string) *JWTProvider {
	return &JWTProvider{secret: []byte(secret), issuer: issuer, audience: audience}
}

// Verify parses and validates tokenString. Any failure maps to a
// NotAuthenticated error; callers never see jwt internals.
func (p *JWTProvider) Verify(_ context.Context, tokenString string) (models.Identity, error) {
	if tokenString == "" {
		return models.Identity{}, models.NewNotAuthenticatedError("Token required")
	}

	var opts []jwt.ParserOption
	if p.issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.issuer))
	}
	if p.audience != "" {
		opts = append(opts, jwt.WithAudience(p.audience))
	}
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, models.NewNotAuthenticatedError("Invalid signing method")
		}
		return p.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return models.Identity{}, models.NewNotAuthenticatedError("Invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return models.Identity{}, models.NewNotAuthenticatedError("Invalid token claims")
	}
	uid, ok := claims["sub"].(string)
	if !ok || uid == "" {
		return models.Identity{}, models.NewNotAuthenticatedError("Invalid token structure - missing subject")
	}

	id := models.Identity{UID: uid}
	if v, ok := claims["name"].(string); ok {
		id.DisplayName = v
	}
	if v, ok := claims["handle"].(string); ok {
		id.Handle = v
	}
	if v, ok := claims["picture"].(string); ok {
		id.PhotoURL = v
	}
	if v, ok := claims["admin"].(bool); ok {
		id.IsAdmin = v
	}
	return id, nil
}

// Mint signs a token for the given identity, valid for ttl. Used by the
// seeder and the watchtest client; production tokens come from the auth
// provider.
func (p *JWTProvider) Mint(id models.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":    id.UID,
		"name":   id.DisplayName,
		"handle": id.Handle,
		"admin":  id.IsAdmin,
		"iat":    now.Unix(),
		"exp":    now.Add(ttl).Unix(),
	}
	if id.PhotoURL != "" {
		claims["picture"] = id.PhotoURL
	}
	if p.issuer != "" {
		claims["iss"] = p.issuer
	}
	if p.audience != "" {
		claims["aud"] = p.audience
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}

// StaticProvider maps fixed tokens to identities. Test helper.
type StaticProvider map[string]models.Identity

func (p StaticProvider) Verify(_ context.Context, token string) (models.Identity, error) {
	id, ok := p[token]
	if !ok {
		return models.Identity{}, models.NewNotAuthenticatedError("Invalid or expired token")
	}
	return id, nil
}
