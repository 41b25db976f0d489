package payos

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignatureCanonicalOrder(t *testing.T) {
	got := Signature("secret", 3000, "https://shop.example/payment/cancel",
		"Payment for order o1", 1756700000000, "https://shop.example/payment/success")

	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write([]byte("amount=3000&cancelUrl=https://shop.example/payment/cancel" +
		"&description=Payment for order o1&orderCode=1756700000000" +
		"&returnUrl=https://shop.example/payment/success"))
	want := hex.EncodeToString(mac.Sum(nil))

	assert.Equal(t, want, got)
	assert.Len(t, got, 64)
	assert.Equal(t, got, hex.EncodeToString(mustDecodeHex(t, got)), "signature must be lower-case hex")
}

func TestSignatureSensitivity(t *testing.T) {
	base := Signature("secret", 3000, "c", "d", 1, "r")

	assert.NotEqual(t, base, Signature("other", 3000, "c", "d", 1, "r"))
	assert.NotEqual(t, base, Signature("secret", 3001, "c", "d", 1, "r"))
	assert.NotEqual(t, base, Signature("secret", 3000, "c", "d", 2, "r"))

	// same inputs always produce the same signature
	assert.Equal(t, base, Signature("secret", 3000, "c", "d", 1, "r"))
}

func mustDecodeHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	assert.NoError(t, err)
	return b
}
