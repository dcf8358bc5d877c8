package webhook

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"strings"
)

// VerifySignature checks the delivery signature against the raw body.
// With no secret configured every delivery is accepted (trusted and
// mocked integrations run unsigned). With a secret set, the header must
// carry a hex HMAC of the body; SHA256 is the documented scheme, MD5 is
// accepted for providers still on the legacy scheme.
func VerifySignature(body []byte, signatureHeader, webhookSecret string) bool {
	secret := strings.TrimSpace(webhookSecret)
	if secret == "" {
		return true
	}

	sig := strings.TrimSpace(signatureHeader)
	if sig == "" {
		return false
	}

	decodedSig, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil {
		return false
	}

	if verifyHMAC(body, decodedSig, []byte(secret), sha256.New) {
		return true
	}
	return verifyHMAC(body, decodedSig, []byte(secret), md5.New)
}

func verifyHMAC(payload, expectedSig, secret []byte, hashFunc func() hash.Hash) bool {
	mac := hmac.New(hashFunc, secret)
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), expectedSig)
}
