package configapi

import (
	"net/http"

	"github.com/wisbric/catalogcore/internal/httpserver"
	"github.com/wisbric/catalogcore/pkg/dataset"
)

// PreviewRequest is the POST /api/preview body: a catalog definition
// tried out against the live dataset without being saved to a
// configuration.
type PreviewRequest struct {
	Type   string `json:"type" validate:"required"`
	Genre  string `json:"genre"`
	Search string `json:"search"`
	Page   int    `json:"page"`
}

// PreviewItem is one result row in a preview response.
type PreviewItem struct {
	ID         string   `json:"id"`
	Type       string   `json:"type"`
	Name       string   `json:"name"`
	StartYear  int      `json:"startYear,omitempty"`
	IMDbRating float64  `json:"imdbRating,omitempty"`
	Genres     []string `json:"genres,omitempty"`
}

// PreviewResponse is the POST /api/preview response.
type PreviewResponse struct {
	Items []PreviewItem `json:"items"`
	Total int           `json:"total"`
	Page  int           `json:"page"`
}

// HandlePreview runs a catalog definition against the active dataset
// snapshot so a caller can see the results before saving it.
func (h *Handler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	page := req.Page
	if page < 0 {
		page = 0
	}

	result := h.engine.Query(dataset.QueryParams{
		Type:   dataset.TitleType(req.Type),
		Genre:  req.Genre,
		Search: req.Search,
		Skip:   page * dataset.DefaultPageLimit,
		Limit:  dataset.DefaultPageLimit,
	})

	items := make([]PreviewItem, 0, len(result.Titles))
	for _, t := range result.Titles {
		items = append(items, PreviewItem{
			ID:         t.ID,
			Type:       string(t.Type),
			Name:       t.Name,
			StartYear:  t.StartYear,
			IMDbRating: t.Rating,
			Genres:     t.Genres,
		})
	}

	httpserver.Respond(w, http.StatusOK, PreviewResponse{
		Items: items,
		Total: result.Total,
		Page:  page,
	})
}
