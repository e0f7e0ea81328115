package solr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
)

// fakeSearcher serves pages of a fixed corpus by start/rows, recording
// every request it sees.
type fakeSearcher struct {
	docs     []Document
	calls    []url.Values
	failures int // fail this many Search calls before succeeding
}

func (f *fakeSearcher) Search(_ context.Context, _ string, params url.Values) (*Results, error) {
	f.calls = append(f.calls, cloneValues(params))
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("search failed")
	}

	start, _ := strconv.Atoi(params.Get("start"))
	rows, _ := strconv.Atoi(params.Get("rows"))
	end := start + rows
	if start > len(f.docs) {
		start = len(f.docs)
	}
	if end > len(f.docs) {
		end = len(f.docs)
	}
	return &Results{
		Docs:         f.docs[start:end],
		Hits:         len(f.docs),
		Facets:       map[string]any{},
		Highlighting: map[string]any{},
		Spellcheck:   map[string]any{},
	}, nil
}

func makeDocs(n int) []Document {
	docs := make([]Document, 0, n)
	for i := 0; i < n; i++ {
		docs = append(docs, Document{"id": fmt.Sprintf("doc-%d", i)})
	}
	return docs
}

func collect(t *testing.T, cur *Cursor) []Document {
	t.Helper()
	var out []Document
	for cur.Next(context.Background()) {
		out = append(out, cur.Document())
	}
	if err := cur.Err(); err != nil {
		t.Fatalf("iteration error: %v", err)
	}
	return out
}

func TestCursor_FullIteration(t *testing.T) {
	s := &fakeSearcher{docs: makeDocs(5)}
	cur := NewCursor(s, "*:*", url.Values{"rows": {"2"}})

	got := collect(t, cur)
	if len(got) != 5 {
		t.Fatalf("got %d documents, want 5", len(got))
	}
	for i, doc := range got {
		if doc["id"] != fmt.Sprintf("doc-%d", i) {
			t.Fatalf("doc[%d] id=%v, want doc-%d", i, doc["id"], i)
		}
	}
}

func TestCursor_TwoDocsRowsOne_EmptyThirdFetchEndsIteration(t *testing.T) {
	s := &fakeSearcher{docs: makeDocs(2)}
	cur := NewCursor(s, "test", url.Values{"rows": {"1"}})
	ctx := context.Background()

	if !cur.Next(ctx) {
		t.Fatalf("first Next=false, want true")
	}
	if cur.Document()["id"] != "doc-0" {
		t.Fatalf("first doc=%v", cur.Document())
	}
	if !cur.Next(ctx) {
		t.Fatalf("second Next=false, want true")
	}
	if cur.Document()["id"] != "doc-1" {
		t.Fatalf("second doc=%v", cur.Document())
	}
	if cur.Next(ctx) {
		t.Fatalf("third Next=true, want false")
	}
	if err := cur.Err(); err != nil {
		t.Fatalf("Err=%v, want nil", err)
	}

	// The third call must have fetched an empty page rather than
	// terminating on an offset/hits comparison.
	if len(s.calls) != 3 {
		t.Fatalf("fetches=%d, want 3", len(s.calls))
	}
	if got := s.calls[2].Get("start"); got != "2" {
		t.Fatalf("third fetch start=%q, want %q", got, "2")
	}
}

func TestCursor_OffsetAdvancesPerConsumedDocument(t *testing.T) {
	s := &fakeSearcher{docs: makeDocs(7)}
	cur := NewCursor(s, "*:*", url.Values{"rows": {"3"}})

	collect(t, cur)

	wantStarts := []string{"0", "3", "6", "7"}
	if len(s.calls) != len(wantStarts) {
		t.Fatalf("fetches=%d, want %d", len(s.calls), len(wantStarts))
	}
	for i, want := range wantStarts {
		if got := s.calls[i].Get("start"); got != want {
			t.Fatalf("fetch %d start=%q, want %q", i, got, want)
		}
	}
}

func TestCursor_BoundaryIndependence(t *testing.T) {
	// Different page sizes must yield the same flattened sequence.
	for _, rows := range []string{"1", "2", "3", "10"} {
		s := &fakeSearcher{docs: makeDocs(5)}
		cur := NewCursor(s, "*:*", url.Values{"rows": {rows}})
		got := collect(t, cur)
		if len(got) != 5 {
			t.Fatalf("rows=%s: got %d documents, want 5", rows, len(got))
		}
		for i, doc := range got {
			if doc["id"] != fmt.Sprintf("doc-%d", i) {
				t.Fatalf("rows=%s: doc[%d]=%v", rows, i, doc["id"])
			}
		}
	}
}

func TestCursor_SizeForcesFetchAndIsStable(t *testing.T) {
	s := &fakeSearcher{docs: makeDocs(4)}
	cur := NewCursor(s, "*:*", nil)
	ctx := context.Background()

	n, err := cur.Size(ctx)
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if n != 4 {
		t.Fatalf("Size=%d, want 4", n)
	}
	if len(s.calls) != 1 {
		t.Fatalf("Size before iteration should cost one fetch, got %d", len(s.calls))
	}

	collect(t, cur)

	after, err := cur.Size(ctx)
	if err != nil {
		t.Fatalf("Size after iteration: %v", err)
	}
	if after != n {
		t.Fatalf("Size after=%d, want %d", after, n)
	}
}

func TestCursor_DefaultRows(t *testing.T) {
	s := &fakeSearcher{docs: makeDocs(1)}
	cur := NewCursor(s, "*:*", nil)
	collect(t, cur)

	if got := s.calls[0].Get("rows"); got != "100" {
		t.Fatalf("rows=%q, want default %q", got, "100")
	}
}

func TestCursor_MaxIndexStopsWithoutFurtherFetch(t *testing.T) {
	s := &fakeSearcher{docs: makeDocs(50)}
	cur := NewCursor(s, "*:*", url.Values{"rows": {"10"}}, WithMaxIndex(1))
	ctx := context.Background()

	var got []Document
	for cur.Next(ctx) {
		got = append(got, cur.Document())
	}
	if err := cur.Err(); err != nil {
		t.Fatalf("Err=%v", err)
	}

	// Indexes 0 and 1 are yielded, then the ceiling cuts off.
	if len(got) != 2 {
		t.Fatalf("got %d documents, want 2", len(got))
	}
	if len(s.calls) != 1 {
		t.Fatalf("fetches=%d, want 1 (ceiling must not trigger a fetch)", len(s.calls))
	}

	// The ceiling is client-side only; total hits are unaffected.
	n, err := cur.Size(ctx)
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if n != 50 {
		t.Fatalf("Size=%d, want 50", n)
	}
}

func TestCursor_FetchErrorIsRetryable(t *testing.T) {
	s := &fakeSearcher{docs: makeDocs(2), failures: 1}
	cur := NewCursor(s, "*:*", url.Values{"rows": {"1"}})
	ctx := context.Background()

	if cur.Next(ctx) {
		t.Fatalf("Next=true during failed fetch, want false")
	}
	if cur.Err() == nil {
		t.Fatalf("Err=nil after failed fetch")
	}

	// The cursor kept its pre-fetch state: retrying resumes at the
	// same offset and the error is cleared.
	if !cur.Next(ctx) {
		t.Fatalf("retry Next=false, want true")
	}
	if err := cur.Err(); err != nil {
		t.Fatalf("Err after retry=%v, want nil", err)
	}
	if cur.Document()["id"] != "doc-0" {
		t.Fatalf("doc after retry=%v, want doc-0", cur.Document())
	}
	if s.calls[0].Get("start") != s.calls[1].Get("start") {
		t.Fatalf("retry start=%q, want same as failed fetch %q",
			s.calls[1].Get("start"), s.calls[0].Get("start"))
	}
}

func TestCursor_RestartAfterExhaustionYieldsFreshCursor(t *testing.T) {
	s := &fakeSearcher{docs: makeDocs(3)}
	cur := NewCursor(s, "*:*", url.Values{"rows": {"2"}})
	collect(t, cur)

	fresh := cur.Restart()
	if fresh == cur {
		t.Fatalf("Restart on exhausted cursor returned the same instance")
	}

	got := collect(t, fresh)
	if len(got) != 3 {
		t.Fatalf("restarted cursor yielded %d documents, want 3", len(got))
	}
	if got[0]["id"] != "doc-0" {
		t.Fatalf("restarted first doc=%v, want doc-0", got[0]["id"])
	}
}

func TestCursor_EndToEndWithClient(t *testing.T) {
	corpus := makeDocs(5)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		start, _ := strconv.Atoi(q.Get("start"))
		rows, _ := strconv.Atoi(q.Get("rows"))
		end := start + rows
		if start > len(corpus) {
			start = len(corpus)
		}
		if end > len(corpus) {
			end = len(corpus)
		}
		page, _ := json.Marshal(corpus[start:end])
		fmt.Fprintf(w, `{"response":{"numFound":%d,"docs":%s}}`, len(corpus), page)
	}))
	defer srv.Close()

	client, err := New(srv.URL + "/solr/core0")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	cur := NewCursor(client, "*:*", url.Values{"rows": {"2"}})
	got := collect(t, cur)
	if len(got) != len(corpus) {
		t.Fatalf("got %d documents, want %d", len(got), len(corpus))
	}
	for i, doc := range got {
		if doc["id"] != corpus[i]["id"] {
			t.Fatalf("doc[%d]=%v, want %v", i, doc["id"], corpus[i]["id"])
		}
	}
}

func TestCursor_RestartMidIterationContinues(t *testing.T) {
	s := &fakeSearcher{docs: makeDocs(3)}
	cur := NewCursor(s, "*:*", url.Values{"rows": {"2"}})
	ctx := context.Background()

	if !cur.Next(ctx) {
		t.Fatalf("Next=false")
	}

	same := cur.Restart()
	if same != cur {
		t.Fatalf("Restart mid-iteration must return the same instance")
	}
	if !same.Next(ctx) {
		t.Fatalf("Next after Restart=false")
	}
	if same.Document()["id"] != "doc-1" {
		t.Fatalf("doc=%v, want doc-1 (continued, not restarted)", same.Document()["id"])
	}
}
