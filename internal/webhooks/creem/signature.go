package creemwebhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	pkgerrors "github.com/hundredwebs/petimage-backend/pkg/errors"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw request body.
const SignatureHeader = "creem-signature"

// VerifySignature checks the provider signature over the raw body. A missing
// signature is a validation error; a present but wrong one is unauthorized.
// An empty secret rejects every delivery. The compare is constant time.
func VerifySignature(secret string, body []byte, signature string) error {
	if secret == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "webhook signing secret not configured")
	}
	if signature == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "missing webhook signature")
	}
	provided, err := hex.DecodeString(signature)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(provided, mac.Sum(nil)) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature")
	}
	return nil
}

// Sign computes the hex signature for body, used by tooling and tests.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
