package payments

import (
	"fmt"
	"net/url"
	"time"

	"taquilla/internal/domain"
	"taquilla/internal/shared/clock"
	"taquilla/internal/shared/errs"

	"github.com/golang-jwt/jwt/v4"
)

// IntentClaims is the signed description of a payment the gateway is asked to collect
type IntentClaims struct {
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Reference   string `json:"reference"`
	RedirectURL string `json:"redirect_url"`
	jwt.RegisteredClaims
}

type GatewayConfig struct {
	URL       string
	ReturnURL string
	Secret    string
	TokenTTL  time.Duration
}

// Gateway builds the hosted checkout redirect
type Gateway struct {
	config GatewayConfig
	clock  clock.Clock
}

func NewGateway(cfg GatewayConfig, clk clock.Clock) *Gateway {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 15 * time.Minute
	}
	return &Gateway{config: cfg, clock: clk}
}

// RedirectURL returns <gateway>?token=<signed intent> and the token's expiry
func (g *Gateway) RedirectURL(intent *domain.PaymentIntent) (string, time.Time, error) {
	returnURL, err := withQuery(g.config.ReturnURL, "reference", intent.Reference)
	if err != nil {
		return "", time.Time{}, errs.Wrap(errs.Internal, err, "invalid return url")
	}

	now := g.clock.Now()
	expiresAt := now.Add(g.config.TokenTTL)
	claims := IntentClaims{
		Amount:      intent.Payload.Total,
		Currency:    intent.Payload.Currency,
		Reference:   intent.Reference,
		RedirectURL: returnURL,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(g.config.Secret))
	if err != nil {
		return "", time.Time{}, errs.Wrap(errs.Internal, err, "failed to sign payment token")
	}

	redirect, err := withQuery(g.config.URL, "token", token)
	if err != nil {
		return "", time.Time{}, errs.Wrap(errs.Internal, err, "invalid gateway url")
	}
	return redirect, expiresAt, nil
}

// ParseToken verifies a token produced by RedirectURL
func (g *Gateway) ParseToken(raw string) (*IntentClaims, error) {
	claims := &IntentClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(g.config.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, errs.Wrap(errs.Unauthenticated, err, "invalid payment token")
	}
	return claims, nil
}

func withQuery(raw, key, value string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", raw, err)
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
