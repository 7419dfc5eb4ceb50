// Package configresolver implements the per-user configuration resolver
// (C4): an LRU+TTL cache over a pluggable store, single-flight loading,
// authenticated-encryption credential unwrap, and session-based ownership
// checks.
package configresolver

import "time"

// Catalog is one addon catalog a user has opted into.
type Catalog struct {
	ID      string `json:"id"`
	Type    string `json:"type"` // "movie" or "series"
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// Preferences holds presentation options for the addon responses.
type Preferences struct {
	Language     string `json:"language"`
	AdultContent bool   `json:"adultContent"`
	RpdbAPIKey   string `json:"rpdbApiKey,omitempty"`
}

// StoredConfig is the persisted configuration shape: the upstream
// credential is held only as an authenticated-encryption blob, never in
// plaintext. apiKeyIdHash is a one-way derivation of the credential used
// for ownership checks without ever reversing to it.
type StoredConfig struct {
	UserID          string      `json:"userId"`
	APIKeyIDHash    string      `json:"apiKeyIdHash"`
	EncryptedAPIKey []byte      `json:"encryptedApiKey"`
	Catalogs        []Catalog   `json:"catalogs"`
	Preferences     Preferences `json:"preferences"`
	ConfigName      string      `json:"configName"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

// UserConfig is a resolved configuration with the credential decrypted for
// the duration of a single request. It is never itself cached or
// persisted — only StoredConfig is.
type UserConfig struct {
	StoredConfig
	APIKey string `json:"-"`
}
