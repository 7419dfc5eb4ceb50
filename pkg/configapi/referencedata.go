package configapi

import (
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wisbric/catalogcore/internal/httpserver"
	"github.com/wisbric/catalogcore/pkg/upstream"
)

// referenceDataTTL is the cache lifetime for mostly-static upstream
// reference lists (genres, languages, countries, etc).
const referenceDataTTL = 24 * time.Hour

// referenceKind describes one upstream reference-data list: its upstream
// path and the key it's addressed by in a batch response.
type referenceKind struct {
	key      string
	endpoint string
}

var referenceKinds = []referenceKind{
	{key: "genres", endpoint: "genre/movie/list"},
	{key: "languages", endpoint: "configuration/languages"},
	{key: "countries", endpoint: "configuration/countries"},
	{key: "certifications", endpoint: "certification/movie/list"},
	{key: "watchProviders", endpoint: "watch/providers/movie"},
	{key: "watchRegions", endpoint: "watch/providers/regions"},
}

func referenceKindByKey(key string) (referenceKind, bool) {
	for _, k := range referenceKinds {
		if k.key == key {
			return k, true
		}
	}
	return referenceKind{}, false
}

// fetchReference fetches one reference-data list through the shared
// upstream client, caching by its fixed TTL.
func (h *Handler) fetchReference(r *http.Request, kind referenceKind) (any, error) {
	return upstream.Fetch[map[string]any](r.Context(), h.upstream, "refdata:"+kind.key, kind.endpoint, url.Values{}, referenceDataTTL)
}

// HandleReferenceKind serves one reference-data list, named by the
// {kind} path parameter. It is a single generic handler shared across
// every list rather than one handler per kind, since each is just an
// upstream GET cached by a fixed TTL.
func (h *Handler) HandleReferenceKind(w http.ResponseWriter, r *http.Request) {
	kind, ok := referenceKindByKey(chi.URLParam(r, "kind"))
	if !ok {
		httpserver.RespondError(w, http.StatusNotFound, "not_found", "unknown reference-data kind")
		return
	}

	data, err := h.fetchReference(r, kind)
	if err != nil {
		h.logger.Error("reference-data: fetch failed", "kind", kind.key, "error", err)
		httpserver.RespondError(w, http.StatusBadGateway, "upstream_error", "could not fetch reference data")
		return
	}
	httpserver.Respond(w, http.StatusOK, data)
}

// HandleReferenceDataBatch serves every reference-data list in one
// response, keyed by kind.
func (h *Handler) HandleReferenceDataBatch(w http.ResponseWriter, r *http.Request) {
	batch := make(map[string]any, len(referenceKinds))
	for _, kind := range referenceKinds {
		data, err := h.fetchReference(r, kind)
		if err != nil {
			h.logger.Warn("reference-data: batch entry failed", "kind", kind.key, "error", err)
			continue
		}
		batch[kind.key] = data
	}
	httpserver.Respond(w, http.StatusOK, batch)
}
