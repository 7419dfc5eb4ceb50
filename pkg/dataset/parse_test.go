package dataset

import (
	"bufio"
	"strings"
	"testing"
)

func TestParseRatings_FiltersBelowMinVotes(t *testing.T) {
	tsv := "titleId\taverageRating\tnumVotes\n" +
		"tt0000001\t7.5\t2000\n" +
		"tt0000002\t8.1\t5\n"

	ratings, err := parseRatings(bufio.NewScanner(strings.NewReader(tsv)), 100)
	if err != nil {
		t.Fatalf("parseRatings: %v", err)
	}
	if _, ok := ratings["tt0000001"]; !ok {
		t.Fatal("expected tt0000001 to be retained")
	}
	if _, ok := ratings["tt0000002"]; ok {
		t.Fatal("expected tt0000002 to be dropped for sub-threshold votes")
	}
}

func TestParseAndJoinBasics_JoinsAndFilters(t *testing.T) {
	ratings := map[string]ratingRow{
		"tt0000001": {rating: 7.5, votes: 2000},
		"tt0000003": {rating: 6.0, votes: 500},
		"tt0000004": {rating: 9.0, votes: 900},
	}

	tsv := "tconst\ttitleType\tprimaryTitle\toriginalTitle\tisAdult\tstartYear\tendYear\truntimeMinutes\tgenres\n" +
		// joined, movie, not adult
		"tt0000001\tmovie\tExample\tExample\t0\t1999\t\\N\t120\tDrama,Action\n" +
		// no ratings entry at all -> BelowVotes bucket
		"tt0000002\tmovie\tNoRatings\tNoRatings\t0\t2001\t\\N\t90\tComedy\n" +
		// unrecognized titleType
		"tt0000003\ttvEpisode\tEpisode\tEpisode\t0\t2005\t\\N\t45\tDrama\n" +
		// adult, excluded
		"tt0000004\tmovie\tAdultThing\tAdultThing\t1\t2010\t\\N\t80\tDrama\n"

	titles, stats, err := parseAndJoinBasics(bufio.NewScanner(strings.NewReader(tsv)), ratings)
	if err != nil {
		t.Fatalf("parseAndJoinBasics: %v", err)
	}

	if len(titles) != 1 {
		t.Fatalf("expected 1 joined title, got %d", len(titles))
	}
	got := titles[0]
	if got.ID != "tt0000001" || got.Type != TitleMovie || got.StartYear != 1999 || got.Runtime != 120 {
		t.Fatalf("unexpected joined title: %+v", got)
	}
	if len(got.Genres) != 2 || got.Genres[0] != "Drama" || got.Genres[1] != "Action" {
		t.Fatalf("unexpected genres: %v", got.Genres)
	}

	if stats.Joined != 1 {
		t.Errorf("Joined = %d, want 1", stats.Joined)
	}
	if stats.BelowVotes != 1 {
		t.Errorf("BelowVotes = %d, want 1", stats.BelowVotes)
	}
	if stats.UnknownType != 1 {
		t.Errorf("UnknownType = %d, want 1", stats.UnknownType)
	}
	if stats.AdultExcluded != 1 {
		t.Errorf("AdultExcluded = %d, want 1", stats.AdultExcluded)
	}
}

func TestAtoiOrZero(t *testing.T) {
	cases := map[string]int{
		"\\N":  0,
		"":     0,
		"2020": 2020,
		"bad":  0,
	}
	for in, want := range cases {
		if got := atoiOrZero(in); got != want {
			t.Errorf("atoiOrZero(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestSplitGenres(t *testing.T) {
	if g := splitGenres("\\N"); g != nil {
		t.Errorf("expected nil for null genres, got %v", g)
	}
	if g := splitGenres("Drama,Action"); len(g) != 2 {
		t.Errorf("expected 2 genres, got %v", g)
	}
}
