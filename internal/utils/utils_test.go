package utils

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func TestAccessToken_RoundTrip(t *testing.T) {
	t.Parallel()

	now := time.Now()
	tok, err := NewAccessToken("secret", "admin", RoleAdmin, 15*time.Minute, now)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !tok.Exp.Equal(now.UTC().Add(15 * time.Minute)) {
		t.Fatalf("unexpected expiry %v", tok.Exp)
	}
	claims, err := ParseAccessToken("secret", tok.Token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "admin" || claims.Role != RoleAdmin {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestParseAccessToken_Rejects(t *testing.T) {
	t.Parallel()

	now := time.Now()
	good, _ := NewAccessToken("secret", "gw", RoleGateway, time.Hour, now)
	expired, _ := NewAccessToken("secret", "gw", RoleGateway, time.Hour, now.Add(-2*time.Hour))
	noRole, _ := NewAccessToken("secret", "gw", "", time.Hour, now)

	cases := map[string]struct{ secret, raw string }{
		"wrong secret": {"other", good.Token},
		"expired":      {"secret", expired.Token},
		"missing role": {"secret", noRole.Token},
		"garbage":      {"secret", "not.a.jwt"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseAccessToken(tc.secret, tc.raw); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestAdminCredentials_Check(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("s3cret", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	creds := AdminCredentials{User: "admin", PasswordHash: hash}
	if !creds.Check("admin", "s3cret") {
		t.Fatalf("expected valid credentials")
	}
	if creds.Check("admin", "wrong") || creds.Check("root", "s3cret") {
		t.Fatalf("expected invalid credentials to be rejected")
	}
	if (AdminCredentials{User: "admin"}).Check("admin", "") {
		t.Fatalf("login must be disabled without a hash")
	}
}
