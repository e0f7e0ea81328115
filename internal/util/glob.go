package util

import (
	"fmt"
	"path/filepath"
	"sort"
)

// ExpandGlobs resolves the given glob patterns to a sorted, de-duplicated
// list of file paths. A pattern that matches nothing is skipped; a
// malformed pattern is an error.
func ExpandGlobs(patterns []string) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("expanding glob %q: %w", pattern, err)
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out, nil
}
