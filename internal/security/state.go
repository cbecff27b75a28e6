package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// StateSigner issues and checks OAuth state values. A state is a random nonce
// followed by its HMAC-SHA256, so the callback can verify it without shared storage.
type StateSigner struct {
	secret []byte
}

// NewStateSigner creates a signer keyed by secret
func NewStateSigner(secret string) *StateSigner {
	return &StateSigner{secret: []byte(secret)}
}

// NewState returns a fresh signed state value
func (s *StateSigner) NewState() (string, error) {
	nonce, err := RandomHex(16)
	if err != nil {
		return "", fmt.Errorf("failed to generate state nonce: %w", err)
	}
	return nonce + "." + s.sign(nonce), nil
}

// Verify reports whether state was issued by this signer and matches the stored cookie value
func (s *StateSigner) Verify(state, cookie string) bool {
	if state == "" || cookie == "" {
		return false
	}
	if !hmac.Equal([]byte(state), []byte(cookie)) {
		return false
	}
	nonce, mac, ok := strings.Cut(state, ".")
	if !ok || nonce == "" {
		return false
	}
	return hmac.Equal([]byte(mac), []byte(s.sign(nonce)))
}

func (s *StateSigner) sign(nonce string) string {
	m := hmac.New(sha256.New, s.secret)
	m.Write([]byte(nonce))
	return hex.EncodeToString(m.Sum(nil))
}
