// Package configapi implements the bearer-authenticated configuration API
// (login/logout/configs CRUD/preview/reference-data/search/ops). It
// composes the config resolver for credential ownership and the
// upstream client for reference-data and entity lookups.
package configapi

import (
	"log/slog"

	"github.com/wisbric/catalogcore/internal/session"
	"github.com/wisbric/catalogcore/pkg/configresolver"
	"github.com/wisbric/catalogcore/pkg/dataset"
	"github.com/wisbric/catalogcore/pkg/upstream"
)

// Handler wires the configuration API's dependencies.
type Handler struct {
	store      configresolver.Store
	resolver   *configresolver.Resolver
	sessions   *session.Manager
	revocation *configresolver.RevocationList
	upstream   *upstream.Client
	engine     *dataset.Engine

	credentialKey []byte
	pepper        string
	logger        *slog.Logger
}

// Dependencies bundles the constructor arguments for Handler.
type Dependencies struct {
	Store         configresolver.Store
	Resolver      *configresolver.Resolver
	Sessions      *session.Manager
	Revocation    *configresolver.RevocationList
	Upstream      *upstream.Client
	Engine        *dataset.Engine
	CredentialKey []byte
	Pepper        string
	Logger        *slog.Logger
}

// NewHandler creates a configapi Handler.
func NewHandler(d Dependencies) *Handler {
	return &Handler{
		store:         d.Store,
		resolver:      d.Resolver,
		sessions:      d.Sessions,
		revocation:    d.Revocation,
		upstream:      d.Upstream,
		engine:        d.Engine,
		credentialKey: d.CredentialKey,
		pepper:        d.Pepper,
		logger:        d.Logger,
	}
}
