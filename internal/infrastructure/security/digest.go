package security

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// ReflectionDigest - base64(SHA-256(ciphertext)), контроль целостности шифротекста.
func ReflectionDigest(ciphertext string) string {
	sum := sha256.Sum256([]byte(ciphertext))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// JourneyHash - короткая сводка пути пользователя для метаданных бейджа.
// Это не credential, а просто отпечаток.
func JourneyHash(userID, wallet string, totalXP, sessions, level int) string {
	input := fmt.Sprintf("%s:%s:%d:%d:%d", userID, wallet, totalXP, sessions, level)
	sum := blake2b.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])[:16]
}
