package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func signPayload(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyCallbackSignature(t *testing.T) {
	const secret = "rzp-test-secret"
	signature := signPayload(secret, "order_abc", "pay_xyz")

	if !VerifyCallbackSignature(secret, "order_abc", "pay_xyz", signature) {
		t.Fatal("expected valid signature to verify")
	}

	// Deterministic: the same inputs verify every time.
	for i := 0; i < 3; i++ {
		if !VerifyCallbackSignature(secret, "order_abc", "pay_xyz", signature) {
			t.Fatalf("verification not deterministic on attempt %d", i)
		}
	}
}

func TestVerifyCallbackSignatureRejectsTampering(t *testing.T) {
	const secret = "rzp-test-secret"
	signature := signPayload(secret, "order_abc", "pay_xyz")

	if VerifyCallbackSignature(secret, "order_abc", "pay_other", signature) {
		t.Fatal("expected different payment id to fail")
	}
	if VerifyCallbackSignature(secret, "order_other", "pay_xyz", signature) {
		t.Fatal("expected different order id to fail")
	}
	if VerifyCallbackSignature("other-secret", "order_abc", "pay_xyz", signature) {
		t.Fatal("expected different secret to fail")
	}

	// Flip one hex digit.
	tampered := []byte(signature)
	if tampered[0] == 'a' {
		tampered[0] = 'b'
	} else {
		tampered[0] = 'a'
	}
	if VerifyCallbackSignature(secret, "order_abc", "pay_xyz", string(tampered)) {
		t.Fatal("expected flipped signature to fail")
	}
}

func TestVerifyCallbackSignatureFailsClosed(t *testing.T) {
	signature := signPayload("secret", "order_abc", "pay_xyz")

	if VerifyCallbackSignature("", "order_abc", "pay_xyz", signature) {
		t.Fatal("empty secret must never verify")
	}
	if VerifyCallbackSignature("secret", "order_abc", "pay_xyz", "") {
		t.Fatal("empty signature must never verify")
	}
	if VerifyCallbackSignature("secret", "", "pay_xyz", signature) {
		t.Fatal("empty order id must never verify")
	}
	if VerifyCallbackSignature("secret", "order_abc", "pay_xyz", "not-hex") {
		t.Fatal("non-hex signature must never verify")
	}
}
