package upstream

import (
	"fmt"
	"net/url"
	"regexp"
)

// credentialPattern matches credential-bearing query parameters so they
// never reach a log record in cleartext.
var credentialPattern = regexp.MustCompile(`(?i)(api_key|apikey|token|key)=[^&\s]+`)

// ValidateURL enforces the upstream-fetch URL safety rules: HTTPS only, host
// present on the allowlist, no embedded userinfo.
func ValidateURL(raw string, allowedHosts map[string]struct{}) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("upstream: invalid URL: %w", err)
	}
	if u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme %q", ErrInsecureScheme, u.Scheme)
	}
	if u.User != nil {
		return nil, ErrUserinfoPresent
	}
	if _, ok := allowedHosts[u.Hostname()]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrHostNotAllowed, u.Hostname())
	}
	return u, nil
}

// RedactURL returns a copy of raw with credential-bearing query parameters
// masked, safe to place in a log record.
func RedactURL(raw string) string {
	return credentialPattern.ReplaceAllString(raw, "$1=REDACTED")
}
