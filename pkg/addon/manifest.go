package addon

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wisbric/catalogcore/internal/httpserver"
)

// Manifest is the addon's self-description: supported resource types and
// the caller's own catalog list, derived from their resolved configuration.
type Manifest struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Version     string           `json:"version"`
	Resources   []string         `json:"resources"`
	Types       []string         `json:"types"`
	IDPrefixes  []string         `json:"idPrefixes"`
	Catalogs    []ManifestCatalog `json:"catalogs"`
}

// ManifestCatalog advertises one of the user's enabled catalogs along with
// the genre filter vocabulary the client may pass as an extra.
type ManifestCatalog struct {
	Type  string          `json:"type"`
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Extra []ManifestExtra `json:"extra,omitempty"`
}

// ManifestExtra declares one supported extra query parameter.
type ManifestExtra struct {
	Name    string   `json:"name"`
	Options []string `json:"options,omitempty"`
}

const manifestVersion = "1.0.0"

// HandleManifest serves GET /{userId}/manifest.json.
func (h *Handler) HandleManifest(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	cfg, err := h.resolver.Resolve(r.Context(), userID)
	if err != nil {
		writeResolveError(w, err)
		return
	}

	m := Manifest{
		ID:          "org.catalogcore." + userID,
		Name:        "catalogcore",
		Description: "Upstream-backed catalog addon",
		Version:     manifestVersion,
		Resources:   []string{"catalog", "meta"},
		Types:       []string{"movie", "series"},
		IDPrefixes:  []string{"tt"},
	}

	for _, c := range cfg.Catalogs {
		if !c.Enabled {
			continue
		}
		m.Catalogs = append(m.Catalogs, ManifestCatalog{
			Type: c.Type,
			ID:   c.ID,
			Name: c.Name,
			Extra: []ManifestExtra{
				{Name: "skip"},
				{Name: "genre"},
				{Name: "search"},
			},
		})
	}

	respondCacheable(w, r, http.StatusOK, m)
}

func writeResolveError(w http.ResponseWriter, err error) {
	httpserver.RespondError(w, http.StatusNotFound, "not_found", "no configuration for this user")
}
