package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hundredwebs/petimage-backend/pkg/config"
)

var testJWTConfig = config.JWTConfig{Secret: "test-secret", Issuer: "petimage"}

func TestMintAndParseAccessToken(t *testing.T) {
	id := uuid.New()
	signed, err := MintAccessToken(testJWTConfig, time.Now(), id.String(), "ada@example.com", time.Hour)
	if err != nil {
		t.Fatalf("mint error: %v", err)
	}

	claims, err := ParseAccessToken(testJWTConfig, signed)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if claims.UserID != id {
		t.Fatalf("expected user id %s, got %s", id, claims.UserID)
	}
	if claims.Email != "ada@example.com" {
		t.Fatalf("unexpected email: %q", claims.Email)
	}
}

func TestParseAccessToken_IdentityInSubjectOnly(t *testing.T) {
	id := uuid.New()
	claims := AccessTokenClaims{
		Email: "ada@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.String(),
			Issuer:    testJWTConfig.Issuer,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwtSigningMethod, claims).SignedString([]byte(testJWTConfig.Secret))
	if err != nil {
		t.Fatalf("sign error: %v", err)
	}

	parsed, err := ParseAccessToken(testJWTConfig, signed)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if parsed.UserID != id {
		t.Fatalf("expected subject to yield user id %s, got %s", id, parsed.UserID)
	}
}

func TestParseAccessToken_NoUserID(t *testing.T) {
	claims := AccessTokenClaims{
		Email: "ada@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testJWTConfig.Issuer,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwtSigningMethod, claims).SignedString([]byte(testJWTConfig.Secret))
	if err != nil {
		t.Fatalf("sign error: %v", err)
	}

	if _, err := ParseAccessToken(testJWTConfig, signed); err == nil {
		t.Fatal("expected a token without a user id to be rejected")
	} else if !strings.Contains(err.Error(), "user id") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseAccessToken_WrongSecret(t *testing.T) {
	signed, err := MintAccessToken(testJWTConfig, time.Now(), uuid.NewString(), "ada@example.com", time.Hour)
	if err != nil {
		t.Fatalf("mint error: %v", err)
	}

	other := config.JWTConfig{Secret: "other-secret", Issuer: testJWTConfig.Issuer}
	if _, err := ParseAccessToken(other, signed); err == nil {
		t.Fatal("expected a token signed with another secret to be rejected")
	}
}

func TestParseAccessToken_Expired(t *testing.T) {
	signed, err := MintAccessToken(testJWTConfig, time.Now().Add(-2*time.Hour), uuid.NewString(), "ada@example.com", time.Hour)
	if err != nil {
		t.Fatalf("mint error: %v", err)
	}

	if _, err := ParseAccessToken(testJWTConfig, signed); err == nil {
		t.Fatal("expected an expired token to be rejected")
	}
}
