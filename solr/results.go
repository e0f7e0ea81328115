package solr

import (
	"encoding/json"
	"fmt"
)

// Results is one decoded page of a search response: the documents of
// this page plus the total hit count of the entire matching result set.
// The auxiliary substructures (facets, highlighting, spellcheck, ...)
// are empty maps when the response did not include them.
type Results struct {
	// Docs holds the documents of this page, in server order.
	Docs []Document
	// Hits is numFound: the size of the full matching result set, not
	// the page. Invariant: len(Docs) <= Hits.
	Hits int

	Facets           map[string]any
	Highlighting     map[string]any
	Spellcheck       map[string]any
	InterestingTerms any
	Matches          []Document
}

// Len returns the number of documents on this page.
func (r *Results) Len() int { return len(r.Docs) }

func parseResults(body []byte) (*Results, error) {
	var raw struct {
		Response *struct {
			Docs     []Document `json:"docs"`
			NumFound int        `json:"numFound"`
		} `json:"response"`
		Highlighting     map[string]any `json:"highlighting"`
		FacetCounts      map[string]any `json:"facet_counts"`
		Spellcheck       map[string]any `json:"spellcheck"`
		InterestingTerms any            `json:"interestingTerms"`
		Match            *struct {
			Docs []Document `json:"docs"`
		} `json:"match"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	res := &Results{
		Facets:           raw.FacetCounts,
		Highlighting:     raw.Highlighting,
		Spellcheck:       raw.Spellcheck,
		InterestingTerms: raw.InterestingTerms,
	}
	if res.Facets == nil {
		res.Facets = map[string]any{}
	}
	if res.Highlighting == nil {
		res.Highlighting = map[string]any{}
	}
	if res.Spellcheck == nil {
		res.Spellcheck = map[string]any{}
	}
	if raw.Response != nil {
		res.Docs = raw.Response.Docs
		res.Hits = raw.Response.NumFound
	}
	if raw.Match != nil {
		res.Matches = raw.Match.Docs
	}
	return res, nil
}

// GroupedResults holds a field-collapsed search response: one Results
// per group, keyed by the grouping field or query name.
type GroupedResults struct {
	Groups map[string]*Results
}

func parseGroupedResults(body []byte) (*GroupedResults, error) {
	var raw struct {
		Grouped map[string]struct {
			Doclist struct {
				Docs     []Document `json:"docs"`
				NumFound int        `json:"numFound"`
			} `json:"doclist"`
		} `json:"grouped"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decoding grouped response: %w", err)
	}

	groups := make(map[string]*Results, len(raw.Grouped))
	for name, g := range raw.Grouped {
		groups[name] = &Results{
			Docs:         g.Doclist.Docs,
			Hits:         g.Doclist.NumFound,
			Facets:       map[string]any{},
			Highlighting: map[string]any{},
			Spellcheck:   map[string]any{},
		}
	}
	return &GroupedResults{Groups: groups}, nil
}

// TermVectorResult holds per-term statistics from the term vector
// handler, merged across fields, plus the matching documents.
type TermVectorResult struct {
	// Terms maps a term to its statistics (tf, df, tf-idf, ...). Each
	// entry also records the field the term came from under "field".
	Terms map[string]map[string]any
	Docs  []Document
}

// Len returns the number of matching documents.
func (t *TermVectorResult) Len() int { return len(t.Docs) }

// The term vector handler flattens every mapping into an alternating
// key/value list. pairList folds such a list back into a map, skipping
// trailing odd entries.
func pairList(list []any) map[string]any {
	out := make(map[string]any, len(list)/2)
	for i := 0; i+1 < len(list); i += 2 {
		key, ok := list[i].(string)
		if !ok {
			continue
		}
		out[key] = list[i+1]
	}
	return out
}

func parseTermVectors(body []byte) (*TermVectorResult, error) {
	var raw struct {
		TermVectors []any `json:"termVectors"`
		Response    *struct {
			Docs []Document `json:"docs"`
		} `json:"response"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decoding term vector response: %w", err)
	}

	res := &TermVectorResult{Terms: map[string]map[string]any{}}
	if raw.Response != nil {
		res.Docs = raw.Response.Docs
	}

	// termVectors is [docKey, [field1, [term1, [stat, value, ...], ...], ...]].
	if len(raw.TermVectors) >= 2 {
		if fieldList, ok := raw.TermVectors[1].([]any); ok {
			fields := pairList(fieldList)
			delete(fields, "uniqueKey")
			for field, termsAny := range fields {
				termList, ok := termsAny.([]any)
				if !ok {
					continue
				}
				for term, statsAny := range pairList(termList) {
					statList, ok := statsAny.([]any)
					if !ok {
						continue
					}
					stats := pairList(statList)
					stats["field"] = field
					res.Terms[term] = stats
				}
			}
		}
	}
	return res, nil
}
