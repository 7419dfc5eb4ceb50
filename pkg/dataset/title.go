// Package dataset implements the bulk external-dataset engine (C5): a
// periodic download → parse → join → index → query pipeline over a
// public tabular title archive, served entirely from memory.
package dataset

// TitleType is the recognized, normalized type vocabulary. Rows whose raw
// titleType does not map onto one of these are counted but not emitted.
type TitleType string

const (
	TitleMovie  TitleType = "movie"
	TitleSeries TitleType = "series"
	TitleShort  TitleType = "short"
)

// titleTypeMapping translates the archive's raw titleType column onto the
// recognized vocabulary.
var titleTypeMapping = map[string]TitleType{
	"movie":    TitleMovie,
	"tvMovie":  TitleMovie,
	"tvSeries": TitleSeries,
	"short":    TitleShort,
}

// Title is one joined, indexed entity.
type Title struct {
	ID        string
	Type      TitleType
	Name      string
	StartYear int
	EndYear   int // 0 if ongoing/unknown
	Runtime   int // minutes, 0 if unknown
	Genres    []string
	IsAdult   bool
	Rating    float64
	Votes     int
}

// Decade buckets StartYear into its per-decade index (floor(year/10)*10).
func (t *Title) Decade() int {
	if t.StartYear <= 0 {
		return 0
	}
	return (t.StartYear / 10) * 10
}
