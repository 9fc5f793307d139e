// Package auth verifies bearer tokens and resolves them to local users.
package auth

import (
	"context"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/pkg/errors"

	"kestrel/backend/pkg/jwt"
)

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the verified identity carried by a bearer token.
type Claims struct {
	Subject     string
	Nickname    string
	Email       string
	Permissions []string
}

// HasPermission reports whether perm was granted to the token.
func (c Claims) HasPermission(perm string) bool {
	for _, p := range c.Permissions {
		if p == perm {
			return true
		}
	}

	return false
}

// TokenVerifier turns a raw bearer token into Claims.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (*Claims, error)
}

// OIDCVerifier verifies tokens signed by an OpenID Connect provider, using its published keys.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier discovers issuer and returns a verifier that requires audience in "aud".
// An empty audience skips the audience check.
func NewOIDCVerifier(ctx context.Context, issuer, audience string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create OIDC provider")
	}

	return &OIDCVerifier{
		verifier: provider.Verifier(&oidc.Config{
			ClientID:          audience,
			SkipClientIDCheck: audience == "",
		}),
	}, nil
}

// Verify implements TokenVerifier.
func (v *OIDCVerifier) Verify(ctx context.Context, raw string) (*Claims, error) {
	token, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidToken, err.Error())
	}

	var extra struct {
		Nickname    string   `json:"nickname"`
		Name        string   `json:"name"`
		Email       string   `json:"email"`
		Permissions []string `json:"permissions"`
	}

	if err = token.Claims(&extra); err != nil {
		return nil, errors.Wrap(err, "failed to parse claims")
	}

	nickname := extra.Nickname
	if nickname == "" {
		nickname = extra.Name
	}

	return &Claims{
		Subject:     token.Subject,
		Nickname:    nickname,
		Email:       extra.Email,
		Permissions: extra.Permissions,
	}, nil
}

// HMACVerifier verifies HS256 tokens minted by pkg/jwt.
type HMACVerifier struct {
	secret string
}

// NewHMACVerifier returns a verifier for tokens signed with secret.
func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: secret}
}

// Verify implements TokenVerifier.
func (v *HMACVerifier) Verify(_ context.Context, raw string) (*Claims, error) {
	claims, err := jwt.ParseToken(v.secret, raw)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidToken, err.Error())
	}

	if claims.Subject == "" {
		return nil, errors.Wrap(ErrInvalidToken, "missing subject")
	}

	return &Claims{
		Subject:     claims.Subject,
		Nickname:    claims.Nickname,
		Email:       claims.Email,
		Permissions: claims.Permissions,
	}, nil
}
