package addon

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wisbric/catalogcore/pkg/upstream"
)

// metaTTL is the cache lifetime for a single title's detail response.
const metaTTL = 6 * time.Hour

// UpstreamGenre is one entry of an upstream detail payload's genre list.
type UpstreamGenre struct {
	Name string `json:"name"`
}

// UpstreamDetail is the subset of the upstream provider's movie/tv detail
// response this addon consumes. Movie and tv payloads share every field
// used here except the title and date field names, normalized in toMetaItem.
type UpstreamDetail struct {
	ID          int             `json:"id"`
	Title       string          `json:"title"`
	Name        string          `json:"name"`
	Overview    string          `json:"overview"`
	PosterPath  string          `json:"poster_path"`
	ReleaseDate string          `json:"release_date"`
	FirstAir    string          `json:"first_air_date"`
	VoteAverage float64         `json:"vote_average"`
	Runtime     int             `json:"runtime"`
	Genres      []UpstreamGenre `json:"genres"`
}

// MetaResponse is the addon protocol's meta detail envelope.
type MetaResponse struct {
	Meta MetaItem `json:"meta"`
}

// MetaItem is the full detail object for one title.
type MetaItem struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	Poster      string   `json:"poster,omitempty"`
	ReleaseInfo string   `json:"releaseInfo,omitempty"`
	IMDbRating  string   `json:"imdbRating,omitempty"`
	Runtime     string   `json:"runtime,omitempty"`
	Genres      []string `json:"genres,omitempty"`
}

// HandleMeta serves GET /{userId}/meta/{type}/{id}.json and its
// /{extra} variant. An id the upstream provider doesn't recognize yields
// an empty meta object, not a 404.
func (h *Handler) HandleMeta(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	titleType := chi.URLParam(r, "type")
	id := chi.URLParam(r, "id")
	extra := parseExtra(chi.URLParam(r, "extra"))

	cfg, err := h.resolver.Resolve(r.Context(), userID)
	if err != nil {
		writeResolveError(w, err)
		return
	}

	language := extra.Language
	if language == "" {
		language = cfg.Preferences.Language
	}

	params := url.Values{}
	if language != "" {
		params.Set("language", language)
	}

	endpoint := fmt.Sprintf("/%s/%s", upstreamPathForType(titleType), id)
	cacheKey := fmt.Sprintf("meta:%s:%s:%s", titleType, id, params.Encode())

	detail, err := upstream.Fetch[UpstreamDetail](r.Context(), h.upstream, cacheKey, endpoint, params, metaTTL)
	if err != nil {
		respondCacheable(w, r, http.StatusOK, MetaResponse{Meta: MetaItem{ID: id, Type: titleType}})
		return
	}

	respondCacheable(w, r, http.StatusOK, MetaResponse{Meta: toMetaItem(detail, titleType, id)})
}

func upstreamPathForType(titleType string) string {
	if titleType == "series" {
		return "tv"
	}
	return "movie"
}

func toMetaItem(d UpstreamDetail, titleType, id string) MetaItem {
	name := d.Title
	if titleType == "series" {
		name = d.Name
	}

	item := MetaItem{
		ID:          id,
		Type:        titleType,
		Name:        name,
		Description: d.Overview,
		IMDbRating:  ratingString(d.VoteAverage),
	}
	if d.PosterPath != "" {
		item.Poster = "https://image.tmdb.org/t/p/w500" + d.PosterPath
	}
	if d.Runtime > 0 {
		item.Runtime = fmt.Sprintf("%d min", d.Runtime)
	}
	for _, g := range d.Genres {
		item.Genres = append(item.Genres, g.Name)
	}

	date := d.ReleaseDate
	if titleType == "series" {
		date = d.FirstAir
	}
	if len(date) >= 4 {
		item.ReleaseInfo = date[:4]
	}
	return item
}
