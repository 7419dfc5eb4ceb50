package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wisbric/catalogcore/pkg/configresolver"
)

// ConfigStore is a reference Postgres-backed configresolver.Store. It is
// kept thin deliberately: the interface is the contract the core depends
// on, this adapter is an implementation detail the core never imports.
type ConfigStore struct {
	pool *pgxpool.Pool
}

// NewConfigStore wraps an existing pgx pool.
func NewConfigStore(pool *pgxpool.Pool) *ConfigStore {
	return &ConfigStore{pool: pool}
}

func (s *ConfigStore) Get(ctx context.Context, userID string) (*configresolver.StoredConfig, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT user_id, api_key_id_hash, encrypted_api_key, catalogs, preferences,
		       config_name, created_at, updated_at
		FROM configs WHERE user_id = $1`, userID)
	return scanConfig(row)
}

func (s *ConfigStore) ListByOwner(ctx context.Context, apiKeyIDHash string) ([]*configresolver.StoredConfig, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, api_key_id_hash, encrypted_api_key, catalogs, preferences,
		       config_name, created_at, updated_at
		FROM configs WHERE api_key_id_hash = $1`, apiKeyIDHash)
	if err != nil {
		return nil, fmt.Errorf("listing configs: %w", err)
	}
	defer rows.Close()

	var out []*configresolver.StoredConfig
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, rows.Err()
}

func (s *ConfigStore) Create(ctx context.Context, cfg *configresolver.StoredConfig) error {
	if cfg.UserID == "" {
		cfg.UserID = uuid.NewString()
	}
	catalogsJSON, err := json.Marshal(cfg.Catalogs)
	if err != nil {
		return fmt.Errorf("marshaling catalogs: %w", err)
	}
	prefsJSON, err := json.Marshal(cfg.Preferences)
	if err != nil {
		return fmt.Errorf("marshaling preferences: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO configs (user_id, api_key_id_hash, encrypted_api_key, catalogs, preferences, config_name)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		cfg.UserID, cfg.APIKeyIDHash, cfg.EncryptedAPIKey, catalogsJSON, prefsJSON, cfg.ConfigName)
	if err != nil {
		return fmt.Errorf("inserting config: %w", err)
	}
	return nil
}

func (s *ConfigStore) Update(ctx context.Context, cfg *configresolver.StoredConfig) error {
	catalogsJSON, err := json.Marshal(cfg.Catalogs)
	if err != nil {
		return fmt.Errorf("marshaling catalogs: %w", err)
	}
	prefsJSON, err := json.Marshal(cfg.Preferences)
	if err != nil {
		return fmt.Errorf("marshaling preferences: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE configs SET catalogs = $2, preferences = $3, config_name = $4, updated_at = now()
		WHERE user_id = $1`,
		cfg.UserID, catalogsJSON, prefsJSON, cfg.ConfigName)
	if err != nil {
		return fmt.Errorf("updating config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return configresolver.ErrNotFound
	}
	return nil
}

func (s *ConfigStore) Delete(ctx context.Context, userID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM configs WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("deleting config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return configresolver.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConfig(row rowScanner) (*configresolver.StoredConfig, error) {
	var cfg configresolver.StoredConfig
	var catalogsJSON, prefsJSON []byte

	err := row.Scan(&cfg.UserID, &cfg.APIKeyIDHash, &cfg.EncryptedAPIKey, &catalogsJSON, &prefsJSON,
		&cfg.ConfigName, &cfg.CreatedAt, &cfg.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, configresolver.ErrNotFound
		}
		return nil, fmt.Errorf("scanning config: %w", err)
	}
	if err := json.Unmarshal(catalogsJSON, &cfg.Catalogs); err != nil {
		return nil, fmt.Errorf("unmarshaling catalogs: %w", err)
	}
	if err := json.Unmarshal(prefsJSON, &cfg.Preferences); err != nil {
		return nil, fmt.Errorf("unmarshaling preferences: %w", err)
	}
	return &cfg, nil
}
