package webhook

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

const secretBytes = 32

// Sign returns the hex HMAC-SHA256 of payload under secret.
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)

	return hex.EncodeToString(mac.Sum(nil))
}

// SignPayload signs the canonical JSON encoding of payload.
func SignPayload(secret string, payload any) (string, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	return Sign(secret, encoded), nil
}

// verifySignature accepts a signature over the raw body or over the
// canonical JSON re-encoding of the decoded payload. A "sha256=" prefix is allowed.
func verifySignature(secret, signature string, raw []byte, payload any) bool {
	provided, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(signature), "sha256="))
	if err != nil || len(provided) != sha256.Size {
		return false
	}

	if matches(secret, provided, raw) {
		return true
	}

	canonical, err := json.Marshal(payload)
	if err != nil {
		return false
	}

	return matches(secret, provided, canonical)
}

func matches(secret string, provided, message []byte) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)

	return hmac.Equal(provided, mac.Sum(nil))
}

func generateSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	return hex.EncodeToString(buf), nil
}
