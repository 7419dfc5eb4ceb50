package dataset

import (
	"bufio"
	"strconv"
	"strings"
)

const tsvNullValue = "\\N"

// maxScanTokenSize raises bufio.Scanner's line buffer above its 64KiB
// default; a handful of basics rows carry long genre/title fields.
const maxScanTokenSize = 1 << 20

// ratingRow is the sub-record kept from the ratings stream, joined by
// titleId against the basics stream.
type ratingRow struct {
	rating float64
	votes  int
}

// parseRatings streams the ratings TSV into a titleId -> ratingRow map,
// filtering out rows below minVotes. Only this map, not the raw stream,
// is retained once parsing completes.
func parseRatings(scanner *bufio.Scanner, minVotes int) (map[string]ratingRow, error) {
	scanner.Buffer(make([]byte, 0, 64*1024), maxScanTokenSize)

	out := make(map[string]ratingRow)
	header := true
	for scanner.Scan() {
		if header {
			header = false
			continue
		}
		line := scanner.Text()
		cols := strings.Split(line, "\t")
		if len(cols) < 3 {
			continue
		}
		votes, err := strconv.Atoi(cols[2])
		if err != nil || votes < minVotes {
			continue
		}
		rating, err := strconv.ParseFloat(cols[1], 64)
		if err != nil {
			continue
		}
		out[cols[0]] = ratingRow{rating: rating, votes: votes}
	}
	return out, scanner.Err()
}

// parseStats accumulates counters over a basics scan for observability:
// how many rows were joined vs. dropped for each reason.
type parseStats struct {
	Joined        int
	BelowVotes    int
	UnknownType   int
	AdultExcluded int
}

// parseAndJoinBasics streams the basics TSV, joining each row against
// ratings by titleId. Rows with no rating-side match (sub-threshold votes
// or no ratings entry) are dropped; rows whose titleType is not in the
// recognized mapping are counted but not emitted; adult titles are
// excluded from the returned slice.
func parseAndJoinBasics(scanner *bufio.Scanner, ratings map[string]ratingRow) ([]*Title, parseStats, error) {
	scanner.Buffer(make([]byte, 0, 64*1024), maxScanTokenSize)

	var titles []*Title
	var stats parseStats
	header := true
	for scanner.Scan() {
		if header {
			header = false
			continue
		}
		line := scanner.Text()
		cols := strings.Split(line, "\t")
		if len(cols) < 9 {
			continue
		}

		rr, ok := ratings[cols[0]]
		if !ok {
			stats.BelowVotes++
			continue
		}

		normType, ok := titleTypeMapping[cols[1]]
		if !ok {
			stats.UnknownType++
			continue
		}

		isAdult := cols[4] == "1"
		if isAdult {
			stats.AdultExcluded++
			continue
		}

		t := &Title{
			ID:        cols[0],
			Type:      normType,
			Name:      cols[2],
			StartYear: atoiOrZero(cols[5]),
			EndYear:   atoiOrZero(cols[6]),
			Runtime:   atoiOrZero(cols[7]),
			Genres:    splitGenres(cols[8]),
			IsAdult:   isAdult,
			Rating:    rr.rating,
			Votes:     rr.votes,
		}
		titles = append(titles, t)
		stats.Joined++
	}
	return titles, stats, scanner.Err()
}

func atoiOrZero(s string) int {
	if s == tsvNullValue || s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func splitGenres(s string) []string {
	if s == tsvNullValue || s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
