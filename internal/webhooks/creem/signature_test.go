package creemwebhook

import (
	"testing"

	pkgerrors "github.com/hundredwebs/petimage-backend/pkg/errors"
)

func TestVerifySignature(t *testing.T) {
	secret := "whsec_test"
	body := []byte(`{"eventType":"checkout.completed"}`)

	if err := VerifySignature(secret, body, Sign(secret, body)); err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}
}

func TestVerifySignature_Missing(t *testing.T) {
	err := VerifySignature("whsec_test", []byte("{}"), "")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("missing signature should be a validation error, got %v", err)
	}
}

func TestVerifySignature_NoSecret(t *testing.T) {
	body := []byte("{}")
	err := VerifySignature("", body, Sign("", body))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("an unconfigured secret must reject even a matching signature, got %v", err)
	}
}

func TestVerifySignature_Tampered(t *testing.T) {
	secret := "whsec_test"
	body := []byte(`{"eventType":"checkout.completed"}`)
	sig := []byte(Sign(secret, body))

	// Flip one hex digit.
	if sig[0] == '0' {
		sig[0] = '1'
	} else {
		sig[0] = '0'
	}

	err := VerifySignature(secret, body, string(sig))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("tampered signature should be unauthorized, got %v", err)
	}
}

func TestVerifySignature_WrongSecret(t *testing.T) {
	body := []byte(`{"eventType":"checkout.completed"}`)
	err := VerifySignature("whsec_real", body, Sign("whsec_other", body))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("wrong secret should be unauthorized, got %v", err)
	}
}

func TestVerifySignature_NotHex(t *testing.T) {
	err := VerifySignature("whsec_test", []byte("{}"), "zzzz")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("non-hex signature should be unauthorized, got %v", err)
	}
}

func TestVerifySignature_BodyBound(t *testing.T) {
	secret := "whsec_test"
	sig := Sign(secret, []byte(`{"a":1}`))
	err := VerifySignature(secret, []byte(`{"a":2}`), sig)
	if err == nil {
		t.Fatal("signature must be bound to the exact body bytes")
	}
}
