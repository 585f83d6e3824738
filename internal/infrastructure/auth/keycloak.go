package auth

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// Claims are the token claims the relay uses.
type Claims struct {
	Subject           string
	Issuer            string
	Audience          []string
	PreferredUsername string
	Email             string
	ExpiresAt         time.Time
}

const (
	jwksRetryInterval   = time.Second
	jwksRetryMaxBackoff = 10 * time.Second
	jwksRetryTimeout    = 2 * time.Minute
)

// KeycloakValidator validates RS256 tokens against a JWKS endpoint.
type KeycloakValidator struct {
	issuer    string
	audience  string
	jwksURL   string
	clockSkew time.Duration
	log       zerolog.Logger
	jwks      atomic.Pointer[keyfunc.JWKS]
}

// NewKeycloakValidator fetches the key set, retrying with backoff until
// it loads or the retry window closes.
func NewKeycloakValidator(
	ctx context.Context,
	jwksURL, issuer, audience string,
	refreshEvery, clockSkew time.Duration,
	log zerolog.Logger,
) (*KeycloakValidator, error) {
	if jwksURL == "" {
		return nil, errors.New("jwks url is required")
	}
	v := &KeycloakValidator{
		issuer:    issuer,
		audience:  audience,
		jwksURL:   jwksURL,
		clockSkew: clockSkew,
		log:       log,
	}

	options := keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   refreshEvery,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			v.log.Error().Err(err).Msg("jwks refresh failed")
		},
	}

	backoff := jwksRetryInterval
	deadline := time.Now().Add(jwksRetryTimeout)
	for attempt := 1; ; attempt++ {
		jwks, err := keyfunc.Get(jwksURL, options)
		if err == nil {
			v.jwks.Store(jwks)
			return v, nil
		}
		log.Warn().Err(err).Str("jwks_url", jwksURL).Int("attempt", attempt).Msg("initial jwks fetch failed, retrying")

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("fetch jwks: %w", ctx.Err())
		case <-time.After(backoff):
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("fetch jwks: %w", err)
		}
		backoff = min(backoff*2, jwksRetryMaxBackoff)
	}
}

// Validate parses rawToken and checks issuer, audience and expiry.
func (v *KeycloakValidator) Validate(_ context.Context, rawToken string) (*Claims, error) {
	jwks := v.jwks.Load()
	if jwks == nil {
		return nil, errors.New("jwks not initialised")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithLeeway(v.clockSkew),
	)
	token, err := parser.ParseWithClaims(rawToken, jwt.MapClaims{}, jwks.Keyfunc)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claimsFrom(mapClaims, v.issuer, v.audience)
}

func claimsFrom(mc jwt.MapClaims, issuer, audience string) (*Claims, error) {
	iss, _ := mc.GetIssuer()
	if iss != issuer {
		return nil, fmt.Errorf("issuer mismatch %s", iss)
	}

	aud, err := mc.GetAudience()
	if err != nil {
		return nil, fmt.Errorf("read audience: %w", err)
	}
	if audience != "" && !contains(aud, audience) {
		return nil, errors.New("audience mismatch")
	}

	sub, _ := mc.GetSubject()
	if sub == "" {
		return nil, errors.New("sub claim missing")
	}

	claims := &Claims{Subject: sub, Issuer: iss, Audience: aud}
	claims.PreferredUsername, _ = mc["preferred_username"].(string)
	claims.Email, _ = mc["email"].(string)
	if exp, _ := mc.GetExpirationTime(); exp != nil {
		claims.ExpiresAt = exp.Time
	}
	return claims, nil
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
