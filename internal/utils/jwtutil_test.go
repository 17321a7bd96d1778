package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

func TestTokenRoundTrip(t *testing.T) {
	SetSecret("round-trip")

	token, exp, err := GenerateToken(3, "Rita", "reception", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Fatalf("expiry %v is not in the future", exp)
	}

	claims, err := ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.StaffID != 3 || claims.Name != "Rita" || claims.Role != "reception" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestParseTokenRejects(t *testing.T) {
	SetSecret("first")
	token, _, err := GenerateToken(1, "Ana", "waiter", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	expired, _, err := GenerateToken(1, "Ana", "waiter", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{StaffID: 1}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	if _, err := ParseToken(expired); err == nil {
		t.Fatal("expired token accepted")
	}
	if _, err := ParseToken(unsigned); err == nil {
		t.Fatal("unsigned token accepted")
	}

	SetSecret("second")
	if _, err := ParseToken(token); err == nil {
		t.Fatal("token signed with another secret accepted")
	}
}

func TestGenerateTokenWithoutSecret(t *testing.T) {
	SetSecret("")
	if _, _, err := GenerateToken(1, "Ana", "waiter", time.Hour); err == nil {
		t.Fatal("expected an error without a secret")
	}
}
