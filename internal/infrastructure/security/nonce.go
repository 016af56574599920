package security

import (
	"crypto/rand"
	"encoding/hex"
)

const nonceBytes = 32

// NewNonce - одноразовый токен сессии, 64 hex-символа.
func NewNonce() (string, error) {
	b := make([]byte, nonceBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
