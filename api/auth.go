package api

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const defaultKeyCacheTTL = 15 * time.Minute

var errTokenRevoked = errors.New("token revoked")

// Auth issues HS256 tokens for local accounts and validates incoming
// bearer tokens. When a JWKS is attached, RS256 tokens from an external
// identity provider are accepted as well.
type Auth struct {
	secret  []byte
	issuer  string
	ttl     time.Duration
	revoker Revoker

	jwks        *keyfunc.JWKS
	extAudience string
	extIssuer   string

	parser      *jwt.Parser
	keyCache    sync.Map
	keyCacheTTL time.Duration
	now         func() time.Time
}

type cachedKey struct {
	key       any
	expiresAt time.Time
}

// NewAuth creates an Auth that signs and verifies HS256 tokens with the
// given secret. revoker may be nil, in which case logout is a client-side
// no-op and refresh does not retire the old token.
func NewAuth(secret []byte, issuer string, ttl time.Duration, revoker Revoker) *Auth {
	if len(secret) == 0 {
		panic("api.NewAuth: empty signing secret")
	}
	if ttl <= 0 {
		panic("api.NewAuth: token ttl must be positive")
	}
	return &Auth{
		secret:      secret,
		issuer:      issuer,
		ttl:         ttl,
		revoker:     revoker,
		parser:      jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})),
		keyCacheTTL: defaultKeyCacheTTL,
		now:         time.Now,
	}
}

// WithJWKS additionally accepts RS256 tokens signed by the keys published at
// the provider's JWKS endpoint.
func (a *Auth) WithJWKS(jwks *keyfunc.JWKS, audience, issuer string) *Auth {
	a.jwks = jwks
	a.extAudience = audience
	a.extIssuer = issuer
	a.parser = jwt.NewParser(jwt.WithValidMethods([]string{"HS256", "RS256"}))
	return a
}

// IssueToken mints a token bound to the given user.
func (a *Auth) IssueToken(userID string) (string, error) {
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		ID:        uuid.NewString(),
		Issuer:    a.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// ClaimsFromAuthHeader extracts and verifies the bearer token carried in an
// Authorization header.
func (a *Auth) ClaimsFromAuthHeader(ctx context.Context, header string) (TokenClaims, error) {
	token, err := bearerToken(header)
	if err != nil {
		return TokenClaims{}, err
	}
	return a.VerifyToken(ctx, token)
}

// VerifyToken validates a raw token and returns its claims. Revoked token
// ids are rejected.
func (a *Auth) VerifyToken(ctx context.Context, raw string) (TokenClaims, error) {
	var external bool
	parsed, err := a.parser.Parse(raw, func(t *jwt.Token) (any, error) {
		switch t.Method.(type) {
		case *jwt.SigningMethodHMAC:
			return a.secret, nil
		case *jwt.SigningMethodRSA:
			external = true
			return a.keyForToken(t)
		default:
			return nil, errors.New("invalid signing method")
		}
	})
	if err != nil {
		return TokenClaims{}, err
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return TokenClaims{}, errors.New("invalid claims")
	}

	now := a.now().Unix()
	if !claims.VerifyExpiresAt(now, true) {
		return TokenClaims{}, errors.New("token expired")
	}
	if !claims.VerifyNotBefore(now, false) {
		return TokenClaims{}, errors.New("token not valid yet")
	}
	if external {
		if a.extAudience != "" && !claims.VerifyAudience(a.extAudience, false) {
			return TokenClaims{}, errors.New("invalid audience")
		}
		if a.extIssuer != "" && !claims.VerifyIssuer(a.extIssuer, false) {
			return TokenClaims{}, errors.New("invalid issuer")
		}
	} else if a.issuer != "" && !claims.VerifyIssuer(a.issuer, false) {
		return TokenClaims{}, errors.New("invalid issuer")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return TokenClaims{}, errors.New("missing sub")
	}

	tc := TokenClaims{UserID: sub}
	if jti, ok := claims["jti"].(string); ok {
		tc.TokenID = jti
	}
	if exp, ok := claims["exp"].(float64); ok {
		tc.ExpiresAt = time.Unix(int64(exp), 0)
	}

	if a.revoker != nil && tc.TokenID != "" {
		revoked, err := a.revoker.Revoked(ctx, tc.TokenID)
		if err != nil {
			return TokenClaims{}, err
		}
		if revoked {
			return TokenClaims{}, errTokenRevoked
		}
	}
	return tc, nil
}

// RevokeToken retires a token id until its natural expiry. Without a revoker
// this is a no-op, matching the pure client-side logout of demo mode.
func (a *Auth) RevokeToken(ctx context.Context, claims TokenClaims) error {
	if a.revoker == nil || claims.TokenID == "" {
		return nil
	}
	ttl := claims.ExpiresAt.Sub(a.now())
	if ttl <= 0 {
		return nil
	}
	return a.revoker.Revoke(ctx, claims.TokenID, ttl)
}

func (a *Auth) keyForToken(token *jwt.Token) (any, error) {
	if a.jwks == nil {
		return nil, errors.New("jwks not configured")
	}

	kid, _ := token.Header["kid"].(string)
	if kid != "" && a.keyCacheTTL > 0 {
		if cached, ok := a.keyCache.Load(kid); ok {
			entry := cached.(cachedKey)
			if a.now().Before(entry.expiresAt) {
				return entry.key, nil
			}
			a.keyCache.Delete(kid)
		}
	}

	key, err := a.jwks.Keyfunc(token)
	if err != nil {
		return nil, err
	}

	if kid != "" && a.keyCacheTTL > 0 {
		a.keyCache.Store(kid, cachedKey{key: key, expiresAt: a.now().Add(a.keyCacheTTL)})
	}
	return key, nil
}
