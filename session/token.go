package session

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// Claims identify a browser session. The session id is the subject.
type Claims struct {
	gojwt.RegisteredClaims
}

// TokenIssuer signs and verifies session cookies with HS256.
type TokenIssuer struct {
	cfg    CookieConfig
	secret []byte
	now    func() time.Time
}

// NewTokenIssuer builds an issuer from cfg, generating a secret if none is set.
func NewTokenIssuer(cfg CookieConfig) (*TokenIssuer, error) {
	secret := []byte(cfg.Secret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("session: generate cookie secret: %w", err)
		}
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	return &TokenIssuer{cfg: cfg, secret: secret, now: time.Now}, nil
}

func (t *TokenIssuer) CookieName() string { return t.cfg.Name }

func (t *TokenIssuer) TTL() time.Duration { return t.cfg.TTL }

func (t *TokenIssuer) Secure() bool { return t.cfg.Secure }

// Issue signs a token for sessionID.
func (t *TokenIssuer) Issue(sessionID string) (string, error) {
	if sessionID == "" {
		return "", errors.New("session: empty session id")
	}
	now := t.now()
	claims := &Claims{RegisteredClaims: gojwt.RegisteredClaims{
		Subject:   sessionID,
		Issuer:    t.cfg.Issuer,
		IssuedAt:  gojwt.NewNumericDate(now),
		ExpiresAt: gojwt.NewNumericDate(now.Add(t.cfg.TTL)),
	}}
	signed, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("session: sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies token and returns its session id.
func (t *TokenIssuer) Parse(token string) (string, error) {
	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithTimeFunc(t.now),
		gojwt.WithExpirationRequired(),
	}
	if t.cfg.Issuer != "" {
		opts = append(opts, gojwt.WithIssuer(t.cfg.Issuer))
	}
	claims := &Claims{}
	parsed, err := gojwt.ParseWithClaims(token, claims, func(*gojwt.Token) (interface{}, error) {
		return t.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("session: parse token: %w", err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", errors.New("session: invalid token")
	}
	return claims.Subject, nil
}
