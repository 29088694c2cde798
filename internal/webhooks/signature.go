package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// ComputeSignature returns the hex HMAC-SHA256 of body under secret, the
// scheme payment providers use to sign webhook deliveries.
func ComputeSignature(secret string, body []byte) string {
	hash := hmac.New(sha256.New, []byte(secret))
	hash.Write(body)
	return hex.EncodeToString(hash.Sum(nil))
}

// VerifySignature checks a delivery signature against the raw body. The
// comparison is constant time to prevent timing attacks.
func VerifySignature(secret string, body []byte, signature string) bool {
	expected := ComputeSignature(secret, body)
	return hmac.Equal([]byte(signature), []byte(expected))
}
