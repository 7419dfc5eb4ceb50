package addon

import (
	"fmt"
	"strconv"

	"github.com/wisbric/catalogcore/pkg/dataset"
)

// releaseInfo renders a title's year range the way addon clients expect:
// a single year for a movie/short, "start-" for an ongoing series, or
// "start-end" for a concluded one.
func releaseInfo(t *dataset.Title) string {
	if t.StartYear == 0 {
		return ""
	}
	if t.Type != dataset.TitleSeries {
		return strconv.Itoa(t.StartYear)
	}
	if t.EndYear == 0 {
		return fmt.Sprintf("%d-", t.StartYear)
	}
	return fmt.Sprintf("%d-%d", t.StartYear, t.EndYear)
}

// ratingString formats a rating to one decimal place, omitting it entirely
// when there is no rating on record.
func ratingString(rating float64) string {
	if rating <= 0 {
		return ""
	}
	return strconv.FormatFloat(rating, 'f', 1, 64)
}
