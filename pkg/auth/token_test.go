package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fluxorio/todoapi/pkg/config"
	"github.com/fluxorio/todoapi/pkg/core"
)

func testAuthConfig() config.Auth {
	cfg := config.Default().Auth
	cfg.SecretKey = "test-secret-key-0123456789"
	return cfg
}

func TestIssueAndParse(t *testing.T) {
	issuer, err := NewTokenIssuer(testAuthConfig())
	if err != nil {
		t.Fatalf("NewTokenIssuer() error = %v", err)
	}

	tests := []struct {
		name   string
		userID int64
	}{
		{name: "first user", userID: 1},
		{name: "large id", userID: 1 << 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, expires, err := issuer.Issue(tt.userID)
			if err != nil {
				t.Fatalf("Issue() error = %v", err)
			}
			if token == "" {
				t.Fatal("Issue() returned empty token")
			}
			if d := time.Until(expires); d < 29*time.Minute || d > 31*time.Minute {
				t.Errorf("expiry in %v, want about 30m", d)
			}

			got, err := issuer.Parse(token)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got != tt.userID {
				t.Errorf("Parse() = %d, want %d", got, tt.userID)
			}
		})
	}
}

func TestParseRejects(t *testing.T) {
	issuer, err := NewTokenIssuer(testAuthConfig())
	if err != nil {
		t.Fatal(err)
	}
	valid, _, err := issuer.Issue(7)
	if err != nil {
		t.Fatal(err)
	}

	otherCfg := testAuthConfig()
	otherCfg.SecretKey = "a-completely-different-secret"
	other, _ := NewTokenIssuer(otherCfg)
	forged, _, _ := other.Issue(7)

	expiredIssuer, _ := NewTokenIssuer(testAuthConfig())
	expiredIssuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _, _ := expiredIssuer.Issue(7)

	unsigned, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "7",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "7",
		Issuer:  "todoapi",
	}).SignedString([]byte(testAuthConfig().SecretKey))

	badSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "alice",
		Issuer:    "todoapi",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testAuthConfig().SecretKey))

	tests := map[string]string{
		"empty":       "",
		"garbage":     "not.a.token",
		"tampered":    valid + "x",
		"wrong key":   forged,
		"expired":     expired,
		"alg none":    unsigned,
		"no expiry":   noExpiry,
		"bad subject": badSubject,
	}

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := issuer.Parse(token)
			if !core.IsKind(err, core.KindUnauthorized) {
				t.Errorf("Parse() error = %v, want unauthorized", err)
			}
		})
	}
}

func TestNewTokenIssuerValidates(t *testing.T) {
	cfg := testAuthConfig()
	cfg.Algorithm = "RS256"
	if _, err := NewTokenIssuer(cfg); err == nil {
		t.Error("NewTokenIssuer() should reject non-HMAC algorithms")
	}

	cfg = testAuthConfig()
	cfg.SecretKey = ""
	if _, err := NewTokenIssuer(cfg); err == nil {
		t.Error("NewTokenIssuer() should reject an empty secret")
	}
}

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(4)
	hash, err := h.Hash("secret123")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if hash == "secret123" {
		t.Error("Hash() returned the plaintext")
	}
	if !h.Verify(hash, "secret123") {
		t.Error("Verify() should accept the right password")
	}
	if h.Verify(hash, "secret124") {
		t.Error("Verify() should reject the wrong password")
	}
	if NewBcryptHasher(99).Cost != 10 {
		t.Error("out of range cost should fall back to the default")
	}
}
