package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/fluxorio/todoapi/pkg/config"
	"github.com/fluxorio/todoapi/pkg/core"
)

// TokenIssuer signs and verifies HMAC access tokens whose subject is the user id
type TokenIssuer struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewTokenIssuer builds an issuer from the auth settings
func NewTokenIssuer(cfg config.Auth) (*TokenIssuer, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("auth: secret key cannot be empty")
	}
	method := jwt.GetSigningMethod(cfg.Algorithm)
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("auth: unsupported signing algorithm %q", cfg.Algorithm)
	}
	if cfg.AccessTokenExpireMinutes <= 0 {
		return nil, fmt.Errorf("auth: token expiry must be positive")
	}
	return &TokenIssuer{
		secret: []byte(cfg.SecretKey),
		method: method,
		ttl:    cfg.TokenTTL(),
		issuer: cfg.Issuer,
		now:    time.Now,
	}, nil
}

// TTL is the lifetime of issued tokens
func (t *TokenIssuer) TTL() time.Duration {
	return t.ttl
}

// Issue returns a signed token for userID and its expiry
func (t *TokenIssuer) Issue(userID int64) (string, time.Time, error) {
	now := t.now()
	expires := now.Add(t.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		Issuer:    t.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
		ID:        uuid.NewString(),
	}

	signed, err := jwt.NewWithClaims(t.method, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// Parse verifies the token and returns its subject. Any failure is Unauthorized.
func (t *TokenIssuer) Parse(tokenString string) (int64, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{t.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	}
	if t.issuer != "" {
		options = append(options, jwt.WithIssuer(t.issuer))
	}

	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return t.secret, nil
	}, options...)
	if err != nil || !token.Valid {
		return 0, core.Unauthorized("Could not validate credentials")
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, core.Unauthorized("Could not validate credentials")
	}
	return userID, nil
}
