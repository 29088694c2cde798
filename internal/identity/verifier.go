package identity

import (
	"context"
	"fmt"
	"time"

	"plumbline/internal/common"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the verified claim set the external identity provider vouches
// for. OrgID is optional; when present it pins the active tenant.
type Claims struct {
	Email string `json:"email,omitempty"`
	OrgID string `json:"org_id,omitempty"`
	jwt.RegisteredClaims
}

// TokenVerifier validates a bearer token and returns its claims. Token
// issuance, MFA and session handling belong to the provider, not here.
type TokenVerifier interface {
	Verify(ctx context.Context, tokenString string) (*Claims, error)
}

// JWKSVerifier validates provider-issued tokens against the provider's
// published JWKS endpoint.
type JWKSVerifier struct {
	jwks *keyfunc.JWKS
}

func NewJWKSVerifier(jwksURL string) (*JWKSVerifier, error) {
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch JWKS: %w", err)
	}
	return &JWKSVerifier{jwks: jwks}, nil
}

func (v *JWKSVerifier) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, v.jwks.Keyfunc,
		jwt.WithValidMethods([]string{"RS256", "ES256"}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, common.ErrUnauthenticated
	}
	if claims.Subject == "" {
		return nil, common.ErrUnauthenticated
	}
	return claims, nil
}

// Close stops the background JWKS refresh
func (v *JWKSVerifier) Close() {
	v.jwks.EndBackground()
}

// StaticVerifier validates HS256 tokens signed with a shared secret. Used for
// development and tests where no JWKS endpoint exists.
type StaticVerifier struct {
	secret []byte
}

func NewStaticVerifier(secret string) *StaticVerifier {
	return &StaticVerifier{secret: []byte(secret)}
}

func (v *StaticVerifier) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, common.ErrUnauthenticated
	}
	if claims.Subject == "" {
		return nil, common.ErrUnauthenticated
	}
	return claims, nil
}
