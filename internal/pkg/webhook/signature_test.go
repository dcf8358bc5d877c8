package webhook

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"strings"
	"testing"
)

func signHex(body []byte, secret string, hashFunc func() hash.Hash) string {
	mac := hmac.New(hashFunc, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"request_ref":"req_abc123","status":"success"}`)
	secret := "whsec_test"

	sha := signHex(body, secret, sha256.New)
	legacy := signHex(body, secret, md5.New)

	tests := []struct {
		name      string
		signature string
		secret    string
		want      bool
	}{
		{"no secret accepts unsigned", "", "", true},
		{"no secret accepts any signature", "deadbeef", "", true},
		{"sha256 match", sha, secret, true},
		{"sha256 uppercase hex", strings.ToUpper(sha), secret, true},
		{"sha256 padded header", "  " + sha + "  ", secret, true},
		{"md5 legacy match", legacy, secret, true},
		{"wrong secret", sha, "whsec_other", false},
		{"signature of different body", signHex([]byte(`{}`), secret, sha256.New), secret, false},
		{"missing signature with secret", "", secret, false},
		{"garbage hex", "zz-not-hex", secret, false},
		{"truncated signature", sha[:16], secret, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifySignature(body, tt.signature, tt.secret); got != tt.want {
				t.Errorf("VerifySignature() = %v, want %v", got, tt.want)
			}
		})
	}
}
