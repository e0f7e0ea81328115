package solr

import "strings"

// Solr/Lucene query special characters: + - ! ( ) { } [ ] ^ " ~ * ? : \
// The && and || operators are covered by escaping the individual
// ampersand and pipe characters. Backslashes themselves are never
// escaped, so already-escaped input survives a second pass.
const escapeChars = `&|+-!(){}[]^"~*?:`

// Escape backslash-escapes unescaped Solr query special characters in
// value. A special character directly preceded by a backslash is
// considered already escaped and left untouched, which makes Escape
// idempotent.
func Escape(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	prev := rune(0)
	for _, r := range value {
		if prev != '\\' && strings.ContainsRune(escapeChars, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}
