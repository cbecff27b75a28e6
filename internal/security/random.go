package security

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// InviteCodeLength is the number of characters in a family invite code
const InviteCodeLength = 8

// RandomHex returns n random bytes hex-encoded
func RandomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GenerateInviteCode returns an upper-case hex invite code of InviteCodeLength characters
func GenerateInviteCode() (string, error) {
	code, err := RandomHex(InviteCodeLength / 2)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(code), nil
}

// GenerateNumericCode returns n random decimal digits
func GenerateNumericCode(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		// bytes >= 250 are redrawn so every digit is equally likely
		for b[i] >= 250 {
			var one [1]byte
			if _, err := rand.Read(one[:]); err != nil {
				return "", err
			}
			b[i] = one[0]
		}
		b[i] = '0' + b[i]%10
	}
	return string(b), nil
}
