package dataset

import "sort"

// Snapshot is one wholesale, internally-consistent set of indices built
// from a single refresh cycle. All slices share the same underlying
// *Title records — only the ordering/grouping differs — so a snapshot is
// only as large as one copy of the title set plus index overhead.
type Snapshot struct {
	byType      map[TitleType][]*Title
	byTypeGenre map[string][]*Title // key: string(type)+"\x00"+genre
	byDecade    map[int][]*Title
	builtAt     int64 // unix seconds, set by the caller at publish time
	titleCount  int
}

// buildSnapshot sorts titles into every lookup index: per-type (rating
// desc, votes desc tiebreak), per-(type,genre), and per-decade.
func buildSnapshot(titles []*Title) *Snapshot {
	sorted := make([]*Title, len(titles))
	copy(sorted, titles)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Rating != sorted[j].Rating {
			return sorted[i].Rating > sorted[j].Rating
		}
		return sorted[i].Votes > sorted[j].Votes
	})

	byType := make(map[TitleType][]*Title)
	byTypeGenre := make(map[string][]*Title)
	byDecade := make(map[int][]*Title)

	for _, t := range sorted {
		byType[t.Type] = append(byType[t.Type], t)
		byDecade[t.Decade()] = append(byDecade[t.Decade()], t)
		for _, g := range t.Genres {
			key := genreKey(t.Type, g)
			byTypeGenre[key] = append(byTypeGenre[key], t)
		}
	}

	return &Snapshot{
		byType:      byType,
		byTypeGenre: byTypeGenre,
		byDecade:    byDecade,
		titleCount:  len(sorted),
	}
}

func genreKey(t TitleType, genre string) string {
	return string(t) + "\x00" + genre
}
