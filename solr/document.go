// Package solr is a client library for Apache Solr. It covers search,
// faceting, grouping, term vectors, and index updates over Solr's HTTP
// API, plus a lazy result cursor for walking large result sets and a
// batch adder for high-throughput indexing.
package solr

import (
	"fmt"
	"reflect"
	"time"
)

// Document is a single Solr document: a mapping from field name to field
// value. A value is either a scalar (string, numeric, bool, time.Time) or
// a slice of scalars for multiValued fields. No schema is enforced
// client-side; field presence and typing are up to the caller and the
// server's schema.
type Document map[string]any

// solrTimeFormat is the timestamp layout Solr expects and emits.
// Solr times are always UTC.
const solrTimeFormat = "2006-01-02T15:04:05Z"

// formatScalar renders a single field value the way Solr's update
// handlers expect it: times in Solr's UTC layout, bools as true/false,
// everything else via its default string form.
func formatScalar(v any) string {
	switch val := v.(type) {
	case time.Time:
		return val.UTC().Format(solrTimeFormat)
	case bool:
		if val {
			return "true"
		}
		return "false"
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

// fieldValues normalizes a field value into its scalar elements.
// Slices and arrays expand to one element each (multiValued fields);
// anything else is a single scalar. Strings and times are scalars even
// though reflect sees time.Time as a struct.
func fieldValues(v any) []any {
	switch v.(type) {
	case string, []byte, time.Time:
		return []any{v}
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = rv.Index(i).Interface()
		}
		return out
	}
	return []any{v}
}
