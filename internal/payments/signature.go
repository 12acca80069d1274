package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifyCallbackSignature checks an HMAC-SHA256 hex signature computed over
// "providerOrderID|providerPaymentID". The comparison is constant time.
// Empty secrets and empty signatures never verify.
func VerifyCallbackSignature(secret, providerOrderID, providerPaymentID, signature string) bool {
	if secret == "" || signature == "" || providerOrderID == "" || providerPaymentID == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(providerOrderID))
	mac.Write([]byte("|"))
	mac.Write([]byte(providerPaymentID))
	expected := mac.Sum(nil)

	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, provided)
}
