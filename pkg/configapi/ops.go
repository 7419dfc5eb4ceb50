package configapi

import (
	"net/http"
	"time"

	"github.com/wisbric/catalogcore/internal/httpserver"
)

// StatusResponse is the GET /api/status response: a coarse liveness
// summary distinct from the unauthenticated /ready probe.
type StatusResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}

// HandleStatus reports that the configuration API is serving traffic.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	httpserver.Respond(w, http.StatusOK, StatusResponse{Status: "ok", Time: time.Now()})
}

// StatsResponse is the GET /api/stats response.
type StatsResponse struct {
	DatasetTitles      int       `json:"datasetTitles"`
	DatasetLastRefresh time.Time `json:"datasetLastRefresh"`
}

// HandleStats surfaces operator-facing counters for the active dataset
// snapshot.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	titles, builtAtUnix := h.engine.Stats()
	httpserver.Respond(w, http.StatusOK, StatsResponse{
		DatasetTitles:      titles,
		DatasetLastRefresh: time.Unix(builtAtUnix, 0).UTC(),
	})
}
