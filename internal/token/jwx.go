package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ErlanBelekov/snapdocs/internal/domain"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	jwxt "github.com/lestrrat-go/jwx/v2/jwt"
)

// RevocationChecker is satisfied by the revocation repository and its cache.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenHash string) (bool, error)
}

// JWXVerifier verifies bearer tokens on the document service side.
//
// When jwksURL is non-empty the signature is checked against the JWKS endpoint,
// whose key set is cached and refreshed every 15 minutes. Otherwise the shared
// HMAC key is used with the configured algorithm.
type JWXVerifier struct {
	alg         jwa.SignatureAlgorithm
	hmacKey     []byte
	jwksURL     string
	cache       *jwk.Cache
	revocations RevocationChecker
	clock       func() time.Time
}

func NewJWXVerifier(ctx context.Context, hmacKey []byte, algorithm, jwksURL string, revocations RevocationChecker) (*JWXVerifier, error) {
	v := &JWXVerifier{
		alg:         jwa.SignatureAlgorithm(algorithm),
		hmacKey:     hmacKey,
		jwksURL:     jwksURL,
		revocations: revocations,
		clock:       time.Now,
	}

	if jwksURL != "" {
		c := jwk.NewCache(ctx)
		if err := c.Register(jwksURL, jwk.WithMinRefreshInterval(15*time.Minute)); err != nil {
			return nil, fmt.Errorf("jwk cache register: %w", err)
		}
		v.cache = c
	}
	return v, nil
}

// WithClock returns a copy of v validating expiry against now.
func (v *JWXVerifier) WithClock(now func() time.Time) *JWXVerifier {
	c := *v
	c.clock = now
	return &c
}

func (v *JWXVerifier) Verify(ctx context.Context, raw string) (*domain.Principal, error) {
	opts := []jwxt.ParseOption{
		jwxt.WithValidate(true),
		jwxt.WithClock(jwxt.ClockFunc(v.clock)),
		jwxt.WithRequiredClaim(jwxt.ExpirationKey),
	}

	if v.cache != nil {
		keySet, err := v.cache.Get(ctx, v.jwksURL)
		if err != nil {
			return nil, fmt.Errorf("fetch jwks: %w", err)
		}
		// Tokens from the auth service carry no kid, so every key in the set is tried.
		opts = append(opts, jwxt.WithKeySet(keySet, jws.WithRequireKid(false), jws.WithInferAlgorithmFromKey(true)))
	} else {
		opts = append(opts, jwxt.WithKey(v.alg, v.hmacKey))
	}

	tok, err := jwxt.Parse([]byte(raw), opts...)
	if err != nil {
		if errors.Is(err, jwxt.ErrTokenExpired()) {
			return nil, domain.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}

	if tok.Subject() == "" {
		return nil, fmt.Errorf("%w: missing subject", domain.ErrTokenInvalid)
	}

	hash := Hash(raw)
	if v.revocations != nil {
		revoked, err := v.revocations.IsRevoked(ctx, hash)
		if err != nil {
			return nil, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return nil, domain.ErrTokenRevoked
		}
	}

	return &domain.Principal{
		UserID:    tok.Subject(),
		Email:     stringClaim(tok, "email"),
		Username:  stringClaim(tok, "username"),
		TokenHash: hash,
		ExpiresAt: tok.Expiration(),
	}, nil
}

func stringClaim(tok jwxt.Token, name string) string {
	v, ok := tok.Get(name)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
