package payos

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Signature computes the HMAC-SHA256 the gateway verifies. The parameter
// string joins the five signed fields in fixed alphabetical key order; the
// gateway rebuilds the same string on its side, so the order is part of the
// contract, not a formatting choice.
func Signature(checksumKey string, amountCents int64, cancelURL, description string, orderCode int64, returnURL string) string {
	raw := fmt.Sprintf("amount=%d&cancelUrl=%s&description=%s&orderCode=%d&returnUrl=%s",
		amountCents, cancelURL, description, orderCode, returnURL)

	mac := hmac.New(sha256.New, []byte(checksumKey))
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}
