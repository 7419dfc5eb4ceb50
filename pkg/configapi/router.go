package configapi

import (
	"github.com/go-chi/chi/v5"
)

// Mount registers every /api/... route on r. Login and key validation are
// reachable without a session (a caller has no token yet); everything
// else requires RequireAuth.
func (h *Handler) Mount(r chi.Router) {
	r.Post("/api/auth/login", h.HandleLogin)
	r.Post("/api/validate-key", h.HandleValidateKey)

	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)

		r.Post("/api/auth/logout", h.HandleLogout)
		r.Get("/api/auth/verify", h.HandleVerify)

		r.Get("/api/configs", h.HandleListConfigs)
		r.Post("/api/config", h.HandleCreateConfig)
		r.Get("/api/config/{userId}", h.HandleGetConfig)
		r.Put("/api/config/{userId}", h.HandleUpdateConfig)
		r.Delete("/api/config/{userId}", h.HandleDeleteConfig)

		r.Post("/api/preview", h.HandlePreview)

		r.Get("/api/reference-data", h.HandleReferenceDataBatch)
		r.Get("/api/reference-data/{kind}", h.HandleReferenceKind)

		r.Get("/api/search/{kind}", h.HandleEntitySearch)
		r.Get("/api/{kind}/{id}", h.HandleEntityLookup)

		r.Get("/api/status", h.HandleStatus)
		r.Get("/api/stats", h.HandleStats)
	})
}
