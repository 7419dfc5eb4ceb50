package addon

import "github.com/go-chi/chi/v5"

// Mount registers the addon protocol routes under r.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/{userId}/manifest.json", h.HandleManifest)
	r.Get("/{userId}/catalog/{type}/{catalogId}.json", h.HandleCatalog)
	r.Get("/{userId}/catalog/{type}/{catalogId}/{extra}.json", h.HandleCatalog)
	r.Get("/{userId}/meta/{type}/{id}.json", h.HandleMeta)
	r.Get("/{userId}/meta/{type}/{id}/{extra}.json", h.HandleMeta)
}
