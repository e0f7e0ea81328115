package solr

import (
	"fmt"
	"regexp"
	"strings"
)

// ServerError represents a non-2xx response from a Solr HTTP call.
// It preserves the status code so callers can differentiate client
// mistakes (400s) from transient server failures.
type ServerError struct {
	StatusCode int
	URL        string
	Message    string
}

func (e *ServerError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.URL == "" {
		return fmt.Sprintf("solr returned status %d", e.StatusCode)
	}
	if e.Message == "" {
		return fmt.Sprintf("solr %s returned status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("solr %s returned status %d: %s", e.URL, e.StatusCode, e.Message)
}

// UsageError reports a caller precondition violation. It is returned
// before any network call is made.
type UsageError string

func (e UsageError) Error() string { return string(e) }

// Solr error pages embed the actual message in a <pre> block of an HTML
// body. Scrape it out; fall back to the raw body.
var errPreRE = regexp.MustCompile(`(?s)<pre>(.*?)</pre>`)

func extractServerMessage(body string) string {
	if m := errPreRE.FindStringSubmatch(body); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(body)
}
