package addon

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wisbric/catalogcore/internal/httpserver"
	"github.com/wisbric/catalogcore/pkg/configresolver"
	"github.com/wisbric/catalogcore/pkg/dataset"
)

// CatalogResponse is the addon protocol's catalog page envelope.
type CatalogResponse struct {
	Metas []MetaPreview `json:"metas"`
}

// MetaPreview is the compact item shape used in catalog listings.
type MetaPreview struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Name        string   `json:"name"`
	ReleaseInfo string   `json:"releaseInfo,omitempty"`
	IMDbRating  string   `json:"imdbRating,omitempty"`
	Genres      []string `json:"genres,omitempty"`
}

// HandleCatalog serves GET /{userId}/catalog/{type}/{catalogId}.json and
// its /{extra} variant.
func (h *Handler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	titleType := chi.URLParam(r, "type")
	catalogID := chi.URLParam(r, "catalogId")
	extra := parseExtra(chi.URLParam(r, "extra"))

	cfg, err := h.resolver.Resolve(r.Context(), userID)
	if err != nil {
		writeResolveError(w, err)
		return
	}

	if !catalogEnabled(cfg.Catalogs, catalogID, titleType) {
		httpserver.RespondError(w, http.StatusNotFound, "not_found", "unknown catalog")
		return
	}

	page := h.engine.Query(dataset.QueryParams{
		Type:   dataset.TitleType(titleType),
		Genre:  extra.Genre,
		Search: extra.Search,
		Skip:   extra.Skip,
		Limit:  dataset.DefaultPageLimit,
	})

	resp := CatalogResponse{Metas: make([]MetaPreview, 0, len(page.Titles))}
	for _, t := range page.Titles {
		resp.Metas = append(resp.Metas, toMetaPreview(t))
	}

	respondCacheable(w, r, http.StatusOK, resp)
}

func catalogEnabled(catalogs []configresolver.Catalog, catalogID, titleType string) bool {
	for _, c := range catalogs {
		if c.ID == catalogID && c.Type == titleType && c.Enabled {
			return true
		}
	}
	return false
}

func toMetaPreview(t *dataset.Title) MetaPreview {
	return MetaPreview{
		ID:          t.ID,
		Type:        string(t.Type),
		Name:        t.Name,
		ReleaseInfo: releaseInfo(t),
		IMDbRating:  ratingString(t.Rating),
		Genres:      t.Genres,
	}
}
