// Package addon implements the read-only, unauthenticated addon protocol
// (manifest/catalog/meta). It composes the config resolver for per-user
// catalog selection and the bulk dataset engine for catalog browsing,
// with the upstream client filling in per-title metadata detail.
package addon

import (
	"log/slog"

	"github.com/wisbric/catalogcore/pkg/configresolver"
	"github.com/wisbric/catalogcore/pkg/dataset"
	"github.com/wisbric/catalogcore/pkg/upstream"
)

// Handler wires the addon protocol's dependencies.
type Handler struct {
	resolver *configresolver.Resolver
	engine   *dataset.Engine
	upstream *upstream.Client
	logger   *slog.Logger
}

// NewHandler creates an addon Handler.
func NewHandler(resolver *configresolver.Resolver, engine *dataset.Engine, upstreamClient *upstream.Client, logger *slog.Logger) *Handler {
	return &Handler{resolver: resolver, engine: engine, upstream: upstreamClient, logger: logger}
}
