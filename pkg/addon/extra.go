package addon

import (
	"net/url"
	"strconv"
	"strings"
)

// extraParams is the parsed form of the addon protocol's slash-separated
// "key=value/key=value" extra path segment.
type extraParams struct {
	Skip     int
	Genre    string
	Search   string
	Language string
}

// parseExtra decodes an extra path segment like
// "skip=50/genre=Drama" into its component fields. An empty segment
// yields the zero value, not an error.
func parseExtra(raw string) extraParams {
	var p extraParams
	if raw == "" {
		return p
	}

	for _, pair := range strings.Split(raw, "/") {
		if pair == "" {
			continue
		}
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			continue
		}
		key, err := url.QueryUnescape(kv[0])
		if err != nil {
			key = kv[0]
		}
		val, err := url.QueryUnescape(kv[1])
		if err != nil {
			val = kv[1]
		}

		switch key {
		case "skip":
			if n, err := strconv.Atoi(val); err == nil {
				p.Skip = n
			}
		case "genre":
			p.Genre = val
		case "search":
			p.Search = val
		case "language":
			p.Language = val
		}
	}
	return p
}
