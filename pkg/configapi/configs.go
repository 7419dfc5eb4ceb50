package configapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wisbric/catalogcore/internal/httpserver"
	"github.com/wisbric/catalogcore/pkg/configresolver"
)

// HandleListConfigs lists every configuration owned by the caller's
// apiKeyIdHash.
func (h *Handler) HandleListConfigs(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	owned, err := h.store.ListByOwner(r.Context(), sess.APIKeyIDHash)
	if err != nil {
		h.logger.Error("configs: listing", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "could not list configurations")
		return
	}

	summaries := make([]ConfigSummary, 0, len(owned))
	for _, cfg := range owned {
		summaries = append(summaries, toSummary(cfg))
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"configs": summaries})
}

// CreateConfigRequest is the POST /api/config body.
type CreateConfigRequest struct {
	ConfigName  string                     `json:"configName" validate:"required"`
	Catalogs    []configresolver.Catalog   `json:"catalogs"`
	Preferences configresolver.Preferences `json:"preferences"`
}

// HandleCreateConfig creates a new configuration owned by the caller. The
// server, not the caller, assigns the userId.
func (h *Handler) HandleCreateConfig(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	var req CreateConfigRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	cfg := &configresolver.StoredConfig{
		APIKeyIDHash: sess.APIKeyIDHash,
		ConfigName:   req.ConfigName,
		Catalogs:     req.Catalogs,
		Preferences:  req.Preferences,
	}
	if err := h.store.Create(r.Context(), cfg); err != nil {
		h.logger.Error("configs: creating", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "could not create configuration")
		return
	}
	httpserver.Respond(w, http.StatusCreated, toSummary(cfg))
}

func (h *Handler) loadOwned(w http.ResponseWriter, r *http.Request) *configresolver.StoredConfig {
	sess := sessionFromContext(r.Context())
	userID := chi.URLParam(r, "userId")

	cfg, err := h.store.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, configresolver.ErrNotFound) {
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "no such configuration")
		} else {
			h.logger.Error("configs: loading", "error", err)
			httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "could not load configuration")
		}
		return nil
	}
	if err := configresolver.CheckOwnership(sess, cfg); err != nil {
		httpserver.RespondError(w, http.StatusForbidden, "OWNERSHIP_MISMATCH", "this configuration belongs to a different API key")
		return nil
	}
	return cfg
}

// HandleGetConfig returns one configuration, enforcing ownership.
func (h *Handler) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg := h.loadOwned(w, r)
	if cfg == nil {
		return
	}
	httpserver.Respond(w, http.StatusOK, toSummary(cfg))
}

// UpdateConfigRequest is the PUT /api/config/{userId} body.
type UpdateConfigRequest struct {
	ConfigName  string                     `json:"configName"`
	Catalogs    []configresolver.Catalog   `json:"catalogs"`
	Preferences configresolver.Preferences `json:"preferences"`
}

// HandleUpdateConfig replaces the catalogs/preferences/name of an owned
// configuration. The credential and apiKeyIdHash are never mutated here.
func (h *Handler) HandleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	cfg := h.loadOwned(w, r)
	if cfg == nil {
		return
	}

	var req UpdateConfigRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	if req.ConfigName != "" {
		cfg.ConfigName = req.ConfigName
	}
	cfg.Catalogs = req.Catalogs
	cfg.Preferences = req.Preferences

	if err := h.store.Update(r.Context(), cfg); err != nil {
		h.logger.Error("configs: updating", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "could not update configuration")
		return
	}
	httpserver.Respond(w, http.StatusOK, toSummary(cfg))
}

// HandleDeleteConfig deletes an owned configuration.
func (h *Handler) HandleDeleteConfig(w http.ResponseWriter, r *http.Request) {
	cfg := h.loadOwned(w, r)
	if cfg == nil {
		return
	}
	if err := h.store.Delete(r.Context(), cfg.UserID); err != nil {
		h.logger.Error("configs: deleting", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "could not delete configuration")
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]bool{"deleted": true})
}
