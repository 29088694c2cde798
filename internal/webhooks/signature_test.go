package webhooks

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifySignature(t *testing.T) {
	secret := "whsec_test"
	body := []byte(`{"id":"evt_1","type":"payment.paid","payment_id":"tr_abc"}`)

	sig := ComputeSignature(secret, body)
	assert.True(t, VerifySignature(secret, body, sig))
}

func TestVerifySignatureRejectsTamperedBody(t *testing.T) {
	secret := "whsec_test"
	body := []byte(`{"id":"evt_1","payment_id":"tr_abc"}`)
	sig := ComputeSignature(secret, body)

	tampered := []byte(`{"id":"evt_1","payment_id":"tr_zzz"}`)
	assert.False(t, VerifySignature(secret, tampered, sig))
}

func TestVerifySignatureRejectsWrongSecret(t *testing.T) {
	body := []byte(`{"id":"evt_1"}`)
	sig := ComputeSignature("whsec_other", body)
	assert.False(t, VerifySignature("whsec_test", body, sig))
}

func TestVerifySignatureRejectsGarbage(t *testing.T) {
	assert.False(t, VerifySignature("whsec_test", []byte(`{}`), "not-a-signature"))
	assert.False(t, VerifySignature("whsec_test", []byte(`{}`), ""))
}
