package dataset

import "strings"

// QueryParams bounds a catalog query against the active snapshot. Zero
// values mean "no filter" for the optional fields.
type QueryParams struct {
	Type      TitleType
	Genre     string // optional
	Search    string // optional, case-insensitive substring of Name
	MinYear   int    // optional, inclusive
	MaxYear   int    // optional, inclusive
	MinRating float64
	MinVotes  int
	Skip      int
	Limit     int
}

// DefaultPageLimit bounds a page when the caller doesn't specify one.
const DefaultPageLimit = 100

// Page is a bounded slice of a query plus the total matching count before
// pagination.
type Page struct {
	Titles []*Title
	Total  int
}

// Query runs a read-only, paginated lookup against the active snapshot. A
// query that starts during a refresh completes entirely against the
// pre-swap snapshot it captured at the top of the call.
func (e *Engine) Query(p QueryParams) Page {
	snap := e.snapshots.load()

	var source []*Title
	if p.Genre != "" {
		source = snap.byTypeGenre[genreKey(p.Type, p.Genre)]
	} else {
		source = snap.byType[p.Type]
	}

	limit := p.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}

	var matched []*Title
	for _, t := range source {
		if !matchesFilters(t, p) {
			continue
		}
		matched = append(matched, t)
	}

	total := len(matched)
	skip := p.Skip
	if skip > total {
		skip = total
	}
	end := skip + limit
	if end > total {
		end = total
	}

	return Page{Titles: matched[skip:end], Total: total}
}

func matchesFilters(t *Title, p QueryParams) bool {
	if p.MinYear > 0 && t.StartYear < p.MinYear {
		return false
	}
	if p.MaxYear > 0 && t.StartYear > p.MaxYear {
		return false
	}
	if p.MinRating > 0 && t.Rating < p.MinRating {
		return false
	}
	if p.MinVotes > 0 && t.Votes < p.MinVotes {
		return false
	}
	if p.Search != "" && !strings.Contains(strings.ToLower(t.Name), strings.ToLower(p.Search)) {
		return false
	}
	return true
}

// ByDecade returns titles of type t starting in the given decade
// (e.g. 1990 for 1990-1999), already sorted rating desc / votes desc.
func (e *Engine) ByDecade(t TitleType, decade int) []*Title {
	snap := e.snapshots.load()
	var out []*Title
	for _, title := range snap.byDecade[decade] {
		if title.Type == t {
			out = append(out, title)
		}
	}
	return out
}

// Stats reports the active snapshot's size and build time, for the
// /api/stats ops endpoint.
func (e *Engine) Stats() (titleCount int, builtAtUnix int64) {
	snap := e.snapshots.load()
	return snap.titleCount, snap.builtAt
}
