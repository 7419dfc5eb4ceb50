package configresolver

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// ErrDecryptionFailed is returned when the stored blob cannot be
// authenticated against the server key; it is always a permanent,
// never-cached error.
var ErrDecryptionFailed = errors.New("configresolver: credential decryption failed")

// argon2Params are deliberately fixed (not tunable per call) so every
// apiKeyIdHash in the store is comparable and reproducible.
var argon2Params = struct {
	time    uint32
	memory  uint32
	threads uint8
	keyLen  uint32
}{time: 3, memory: 64 * 1024, threads: 4, keyLen: 32}

// HashAPIKeyID derives the one-way apiKeyIdHash from a raw upstream
// credential via iterated key-stretching, salted with a static pepper held
// only by the server. The hash never reverses to the credential.
func HashAPIKeyID(apiKey, pepper string) string {
	sum := argon2.IDKey([]byte(apiKey), []byte(pepper), argon2Params.time, argon2Params.memory, argon2Params.threads, argon2Params.keyLen)
	return hex.EncodeToString(sum)
}

// EncryptCredential seals apiKey with authenticated encryption under key
// (must be 32 bytes), producing a nonce-prefixed ciphertext blob.
func EncryptCredential(key []byte, apiKey string) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("configresolver: constructing AEAD: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("configresolver: generating nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, []byte(apiKey), nil), nil
}

// DecryptCredential reverses EncryptCredential. Any authentication failure
// (wrong key, truncated/tampered blob) is reported as ErrDecryptionFailed.
func DecryptCredential(key, blob []byte) (string, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", fmt.Errorf("configresolver: constructing AEAD: %w", err)
	}
	if len(blob) < aead.NonceSize() {
		return "", ErrDecryptionFailed
	}
	nonce, ciphertext := blob[:aead.NonceSize()], blob[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}
