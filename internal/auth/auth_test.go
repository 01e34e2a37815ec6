package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"fixops/internal/core"
)

func TestPasswordHashAndVerify(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !VerifyPassword("correct horse battery", hash) {
		t.Fatalf("expected password to verify")
	}
	if VerifyPassword("wrong password", hash) {
		t.Fatalf("wrong password must not verify")
	}
	if VerifyPassword("correct horse battery", "not-a-hash") {
		t.Fatalf("garbage hash must not verify")
	}
}

func TestHashPasswordRejectsShort(t *testing.T) {
	if _, err := HashPassword("short"); err == nil {
		t.Fatalf("expected error for short password")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	u := core.User{ID: 3, Username: "boss", Role: core.RoleAdmin}
	token, err := GenerateToken("secret", u, time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ParseToken("secret", token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != 3 || claims.Username != "boss" || claims.Role != core.RoleAdmin {
		t.Fatalf("claims = %+v", claims)
	}
	if claims.ID == "" {
		t.Fatalf("jti must be set")
	}
}

func TestTokenRejections(t *testing.T) {
	u := core.User{ID: 1, Username: "kim", Role: core.RoleEmployee}

	token, _ := GenerateToken("secret", u, time.Hour)
	if _, err := ParseToken("other-secret", token); err == nil {
		t.Fatalf("wrong secret must fail")
	}

	past := time.Now().Add(-time.Hour)
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID: 1, Username: "kim", Role: core.RoleEmployee,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(past),
			IssuedAt:  jwt.NewNumericDate(past.Add(-time.Hour)),
		},
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign expired: %v", err)
	}
	if _, err := ParseToken("secret", expired); err == nil {
		t.Fatalf("expired token must fail")
	}

	bogusRole, _ := GenerateToken("secret", core.User{ID: 1, Username: "x", Role: "sudo"}, time.Hour)
	if _, err := ParseToken("secret", bogusRole); err == nil {
		t.Fatalf("unknown role must fail")
	}
}
