package app

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// decodeCredentialKey decodes the base64-encoded 32-byte AEAD key. When
// unset, a random one-shot key is generated: credentials encrypted under
// it won't survive a restart, but the server still boots for local/dev
// use rather than refusing to start.
func decodeCredentialKey(encoded string) ([]byte, error) {
	if encoded == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generating dev credential key: %w", err)
		}
		return key, nil
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decoding CREDENTIAL_AEAD_KEY: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("CREDENTIAL_AEAD_KEY must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

// devSessionSecret generates a random signing secret for local/dev use
// when SESSION_SIGNING_KEY is unset. Sessions won't survive a restart.
func devSessionSecret() string {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		panic(fmt.Sprintf("app: generating dev session secret: %v", err))
	}
	return base64.StdEncoding.EncodeToString(raw)
}
