package solr

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var solrTimeRE = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?Z$`)

// DecodeValue converts a field value from a decoded Solr response into
// a native Go value using a closed set of rules. Values that already
// carry JSON typing (numbers, bools, lists, maps) pass through with
// lists decoded element-wise. Strings are tried, in order, as a boolean
// literal, a Solr timestamp, an integer, a float, and a JSON structured
// literal; anything else stays a string. Content is never evaluated as
// code.
func DecodeValue(v any) any {
	switch val := v.(type) {
	case string:
		return decodeString(val)
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = DecodeValue(e)
		}
		return out
	default:
		return v
	}
}

func decodeString(s string) any {
	switch s {
	case "true":
		return true
	case "false":
		return false
	}

	if solrTimeRE.MatchString(s) {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t
		}
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}

	// Structured literals round-trip through JSON rather than any kind
	// of expression evaluation.
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{") {
		var parsed any
		if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
			return parsed
		}
	}

	return s
}
