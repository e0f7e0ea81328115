package solr

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
)

// Searcher is the subset of Client operations needed by Cursor.
type Searcher interface {
	Search(ctx context.Context, q string, params url.Values) (*Results, error)
}

// cursorDefaultRows is the page size used when the caller's params do
// not carry a rows directive.
const cursorDefaultRows = 100

// Cursor lazily walks the full result set of one query as a flat
// document sequence, fetching successive pages behind the scenes. The
// start offset advances by one per consumed document, so it stays
// correct even if the effective page size varies between fetches. A
// page coming back empty is the sole exhaustion signal; the cursor
// never compares its offset against the total hit count, which may be
// stale under concurrent index mutation. For the same reason a query
// racing with writes can skip or duplicate documents; that is a known
// consistency limitation of offset pagination, not a cursor bug.
//
// A Cursor is not safe for concurrent use; consumers needing
// independent iteration over the same query must each hold their own
// instance.
//
// Usage:
//
//	cur := solr.NewCursor(client, "text:verlaine", nil)
//	for cur.Next(ctx) {
//		doc := cur.Document()
//		...
//	}
//	if err := cur.Err(); err != nil {
//		...
//	}
type Cursor struct {
	searcher Searcher
	query    string
	params   url.Values
	logger   *slog.Logger

	maxIndex int
	capped   bool

	initialized bool
	exhausted   bool
	index       int // documents consumed so far; the next start offset
	page        *Results
	pageIdx     int
	doc         Document
	lastErr     error
}

// CursorOption configures optional Cursor behavior.
type CursorOption func(*Cursor)

// WithMaxIndex stops iteration once the consumed document count exceeds
// n. This is a client-side ceiling; it does not affect the total hit
// count reported by Size.
func WithMaxIndex(n int) CursorOption {
	return func(c *Cursor) {
		c.maxIndex = n
		c.capped = true
	}
}

// WithCursorLogger injects the logger used for diagnostic events.
// Defaults to slog.Default().
func WithCursorLogger(l *slog.Logger) CursorOption {
	return func(c *Cursor) { c.logger = l }
}

// NewCursor creates a cursor over the result set of query. params are
// sent with every page fetch; rows defaults to 100 when absent, and
// start is owned by the cursor.
func NewCursor(s Searcher, query string, params url.Values, opts ...CursorOption) *Cursor {
	merged := cloneValues(params)
	if merged.Get("rows") == "" {
		merged.Set("rows", strconv.Itoa(cursorDefaultRows))
	}
	c := &Cursor{
		searcher: s,
		query:    query,
		params:   merged,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Next advances to the next document, fetching a new page from the
// server when the in-memory one is consumed. It returns false at the
// end of the result set, at the maxIndex ceiling, or on a fetch error.
// After a fetch error Err returns it and the cursor keeps its pre-fetch
// state, so calling Next again retries the same fetch.
func (c *Cursor) Next(ctx context.Context) bool {
	c.lastErr = nil
	if c.exhausted {
		return false
	}
	if c.capped && c.index > c.maxIndex {
		return false
	}

	if !c.initialized {
		if !c.fetchPage(ctx) {
			return false
		}
		c.initialized = true
	}

	if c.pageIdx >= len(c.page.Docs) {
		if !c.fetchPage(ctx) {
			return false
		}
		if len(c.page.Docs) == 0 {
			c.exhausted = true
			return false
		}
	}

	c.doc = c.page.Docs[c.pageIdx]
	c.pageIdx++
	c.index++
	return true
}

// Document returns the document loaded by the last successful Next.
func (c *Cursor) Document() Document { return c.doc }

// Err returns the error from the last Next, if any. It is cleared by
// the following Next call.
func (c *Cursor) Err() error { return c.lastErr }

// Size returns the total hit count of the result set as reported by
// the most recently fetched page. If no page has been fetched yet, it
// forces the initial fetch, so calling Size before iterating costs one
// round trip.
func (c *Cursor) Size(ctx context.Context) (int, error) {
	if !c.initialized {
		if !c.fetchPage(ctx) {
			return 0, c.lastErr
		}
		c.initialized = true
	}
	return c.page.Hits, nil
}

// Restart returns a cursor positioned at the start of the result set.
// An exhausted cursor yields a fresh instance with the same query and
// params; its stale offset state is never resurrected. A cursor still
// mid-iteration returns itself and continues from its current position.
func (c *Cursor) Restart() *Cursor {
	if !c.exhausted {
		return c
	}
	nc := &Cursor{
		searcher: c.searcher,
		query:    c.query,
		params:   cloneValues(c.params),
		logger:   c.logger,
		maxIndex: c.maxIndex,
		capped:   c.capped,
	}
	return nc
}

func (c *Cursor) fetchPage(ctx context.Context) bool {
	params := cloneValues(c.params)
	params.Set("start", strconv.Itoa(c.index))

	c.logger.Debug("cursor fetching page", "query", c.query, "start", c.index)

	page, err := c.searcher.Search(ctx, c.query, params)
	if err != nil {
		c.lastErr = fmt.Errorf("fetching page at offset %d: %w", c.index, err)
		return false
	}
	c.page = page
	c.pageIdx = 0
	return true
}
