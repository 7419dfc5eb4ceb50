package configapi

import (
	"net/http"
	"sort"
	"time"

	"github.com/wisbric/catalogcore/internal/httpserver"
	"github.com/wisbric/catalogcore/pkg/configresolver"
)

// LoginRequest is the POST /api/auth/login body.
type LoginRequest struct {
	APIKey     string `json:"apiKey" validate:"required"`
	UserID     string `json:"userId,omitempty"`
	RememberMe bool   `json:"rememberMe,omitempty"`
}

// ConfigSummary is a configuration's caller-facing shape: everything but
// the encrypted credential blob.
type ConfigSummary struct {
	UserID      string                     `json:"userId"`
	ConfigName  string                     `json:"configName"`
	Catalogs    []configresolver.Catalog   `json:"catalogs"`
	Preferences configresolver.Preferences `json:"preferences"`
}

func toSummary(cfg *configresolver.StoredConfig) ConfigSummary {
	return ConfigSummary{
		UserID:      cfg.UserID,
		ConfigName:  cfg.ConfigName,
		Catalogs:    cfg.Catalogs,
		Preferences: cfg.Preferences,
	}
}

// LoginResponse is the POST /api/auth/login response.
type LoginResponse struct {
	Token      string          `json:"token"`
	ExpiresAt  time.Time       `json:"expiresAt"`
	UserID     string          `json:"userId"`
	ConfigName string          `json:"configName"`
	IsNewUser  bool            `json:"isNewUser"`
	Configs    []ConfigSummary `json:"configs"`
}

// HandleLogin resolves or creates a configuration for the caller's API key
// and issues a bearer session token scoped to its apiKeyIdHash.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	apiKeyIDHash := configresolver.HashAPIKeyID(req.APIKey, h.pepper)
	ctx := r.Context()

	owned, err := h.store.ListByOwner(ctx, apiKeyIDHash)
	if err != nil {
		h.logger.Error("login: listing owned configs", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "could not list configurations")
		return
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].UpdatedAt.After(owned[j].UpdatedAt) })

	var active *configresolver.StoredConfig
	isNewUser := false

	switch {
	case req.UserID != "":
		cfg, err := h.store.Get(ctx, req.UserID)
		if err != nil {
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "no such configuration")
			return
		}
		if cfg.APIKeyIDHash != apiKeyIDHash {
			httpserver.RespondError(w, http.StatusForbidden, "forbidden", "API key does not own this configuration")
			return
		}
		active = cfg
	case len(owned) > 0:
		active = owned[0]
	default:
		blob, err := configresolver.EncryptCredential(h.credentialKey, req.APIKey)
		if err != nil {
			h.logger.Error("login: encrypting credential", "error", err)
			httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "could not create configuration")
			return
		}
		cfg := &configresolver.StoredConfig{
			APIKeyIDHash:    apiKeyIDHash,
			EncryptedAPIKey: blob,
			ConfigName:      "default",
		}
		if err := h.store.Create(ctx, cfg); err != nil {
			h.logger.Error("login: creating configuration", "error", err)
			httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "could not create configuration")
			return
		}
		active = cfg
		owned = []*configresolver.StoredConfig{cfg}
		isNewUser = true
	}

	token, _, expiresAt, err := h.sessions.Issue(apiKeyIDHash)
	if err != nil {
		h.logger.Error("login: issuing session", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "could not issue session")
		return
	}

	summaries := make([]ConfigSummary, 0, len(owned))
	for _, cfg := range owned {
		summaries = append(summaries, toSummary(cfg))
	}

	httpserver.Respond(w, http.StatusOK, LoginResponse{
		Token:      token,
		ExpiresAt:  expiresAt,
		UserID:     active.UserID,
		ConfigName: active.ConfigName,
		IsNewUser:  isNewUser,
		Configs:    summaries,
	})
}

// HandleLogout revokes the caller's current session token.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	if sess == nil {
		httpserver.RespondError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	h.revocation.Revoke(sess.JTI, sess.ExpiresAt)
	httpserver.Respond(w, http.StatusOK, map[string]bool{"loggedOut": true})
}

// VerifyResponse is the GET /api/auth/verify response.
type VerifyResponse struct {
	Valid     bool      `json:"valid"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// HandleVerify reports whether the caller's bearer token is currently
// valid. Reaching this handler at all means RequireAuth already accepted
// it, so this always answers true.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	httpserver.Respond(w, http.StatusOK, VerifyResponse{Valid: true, ExpiresAt: sess.ExpiresAt})
}

// HandleValidateKey checks whether an API key is well-formed enough to be
// used for login, without creating or touching any configuration.
func (h *Handler) HandleValidateKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		APIKey string `json:"apiKey" validate:"required"`
	}
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]bool{"valid": true})
}
