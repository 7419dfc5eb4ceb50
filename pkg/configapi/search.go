package configapi

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wisbric/catalogcore/internal/httpserver"
	"github.com/wisbric/catalogcore/pkg/upstream"
)

// searchTTL is the cache lifetime for entity search and lookup results;
// short, since query strings are high-cardinality and rarely repeat.
const searchTTL = 15 * time.Minute

var searchableEntityKinds = map[string]bool{
	"person":  true,
	"company": true,
	"keyword": true,
}

var lookupableEntityKinds = map[string]bool{
	"person":  true,
	"company": true,
	"keyword": true,
	"network": true,
}

// HandleEntitySearch serves /api/search/{kind}?query=... for person,
// company, and keyword search against upstream.
func (h *Handler) HandleEntitySearch(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	if !searchableEntityKinds[kind] {
		httpserver.RespondError(w, http.StatusNotFound, "not_found", "unknown search kind")
		return
	}

	query := r.URL.Query().Get("query")
	if query == "" {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "query parameter is required")
		return
	}

	params := url.Values{"query": []string{query}}
	cacheKey := fmt.Sprintf("search:%s:%s", kind, params.Encode())

	data, err := upstream.Fetch[map[string]any](r.Context(), h.upstream, cacheKey, "search/"+kind, params, searchTTL)
	if err != nil {
		h.logger.Error("entity search failed", "kind", kind, "error", err)
		httpserver.RespondError(w, http.StatusBadGateway, "upstream_error", "could not search upstream")
		return
	}
	httpserver.Respond(w, http.StatusOK, data)
}

// HandleEntityLookup serves /api/{kind}/{id} for person, company,
// keyword, and network lookups by id.
func (h *Handler) HandleEntityLookup(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	if !lookupableEntityKinds[kind] {
		httpserver.RespondError(w, http.StatusNotFound, "not_found", "unknown entity kind")
		return
	}
	id := chi.URLParam(r, "id")

	cacheKey := fmt.Sprintf("entity:%s:%s", kind, id)
	data, err := upstream.Fetch[map[string]any](r.Context(), h.upstream, cacheKey, kind+"/"+id, url.Values{}, searchTTL)
	if err != nil {
		h.logger.Error("entity lookup failed", "kind", kind, "id", id, "error", err)
		httpserver.RespondError(w, http.StatusBadGateway, "upstream_error", "could not fetch entity")
		return
	}
	httpserver.Respond(w, http.StatusOK, data)
}
