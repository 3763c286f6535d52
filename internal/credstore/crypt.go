package credstore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
)

// Credentials are encrypted at rest with AES-256-GCM under a fixed
// application-embedded key. This keeps tokens out of casual reads of the
// local database but is NOT secure key custody: anyone with this binary
// can derive the key. Acceptable for single-user local use only.
const keyMaterial = "all-in-one-web/sync-credentials/v1"

func sealKey() []byte {
	sum := sha256.Sum256([]byte(keyMaterial))
	return sum[:]
}

// encrypt seals plain and returns base64(nonce || ciphertext).
func encrypt(plain []byte) (string, error) {
	block, err := aes.NewCipher(sealKey())
	if err != nil {
		return "", fmt.Errorf("creating cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("creating GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, plain, nil)

	return base64.StdEncoding.EncodeToString(sealed), nil
}

// decrypt opens a blob produced by encrypt. Any failure — bad base64,
// truncated blob, wrong key, tampered ciphertext — returns nil rather
// than an error; callers treat an unreadable blob as absent.
func decrypt(blob string) []byte {
	sealed, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil
	}

	block, err := aes.NewCipher(sealKey())
	if err != nil {
		return nil
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil
	}

	if len(sealed) < gcm.NonceSize() {
		return nil
	}

	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]

	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil
	}

	return plain
}
