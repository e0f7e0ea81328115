package solr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// postQueryThreshold is the query length at which searches switch from
// GET to form-encoded POST, since very long query strings overflow URL
// length limits on some containers.
const postQueryThreshold = 1024

// Client talks to a single Solr core over HTTP. Searches are requested
// with wt=json; index updates go through the configured update codec
// (XML by default, see WithUpdateFormat).
//
// A Client is safe for concurrent use as long as the underlying
// http.Client is.
type Client struct {
	baseURL  string // core URL without trailing slash
	username string
	password string
	client   *http.Client
	format   UpdateFormat
	codec    updateCodec
	logger   *slog.Logger
}

// Option configures optional Client behavior.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client. Use this to supply
// custom TLS settings or transports.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.client = h }
}

// WithTimeout sets the request timeout on the client. Defaults to 60s.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.client.Timeout = d }
}

// WithBasicAuth sets credentials sent with every request.
func WithBasicAuth(username, password string) Option {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

// WithUpdateFormat selects the wire format for update operations.
func WithUpdateFormat(f UpdateFormat) Option {
	return func(c *Client) { c.format = f }
}

// WithLogger injects the logger used for diagnostic events. Defaults to
// slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client for the Solr core at baseURL, e.g.
// "http://127.0.0.1:8983/solr/collection1".
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, UsageError("solr base URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 60 * time.Second},
		format:  UpdateXML,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	codec, err := codecFor(c.format)
	if err != nil {
		return nil, err
	}
	c.codec = codec
	return c, nil
}

// Search executes a query against the core's select handler and returns
// the decoded result page. params may carry any Solr request parameters
// the caller wants (rows, start, sort, fq, facet directives, ...).
func (c *Client) Search(ctx context.Context, q string, params url.Values) (*Results, error) {
	c.logger.Debug("solr search", "query", q, "params", params.Encode())
	body, err := c.query(ctx, "select", q, params)
	if err != nil {
		return nil, err
	}
	return parseResults(body)
}

// MoreLikeThis finds documents similar to those matching q, using the
// fields named in mltFields for similarity. Requires Solr 1.3+.
func (c *Client) MoreLikeThis(ctx context.Context, q, mltFields string, params url.Values) (*Results, error) {
	merged := cloneValues(params)
	merged.Set("mlt.fl", mltFields)
	body, err := c.query(ctx, "mlt", q, merged)
	if err != nil {
		return nil, err
	}
	return parseResults(body)
}

// TermVectors fetches per-field term statistics from the term vector
// handler. If field is non-empty, statistics are restricted to it.
func (c *Client) TermVectors(ctx context.Context, q, field string, params url.Values) (*TermVectorResult, error) {
	merged := cloneValues(params)
	merged.Set("tv.all", "true")
	if field != "" {
		merged.Set("tv.fl", field)
	}
	body, err := c.query(ctx, "tvrh", q, merged)
	if err != nil {
		return nil, err
	}
	return parseTermVectors(body)
}

// Group executes a field-collapsed search and returns the per-group
// result sets. params must include the grouping directive the caller
// wants (e.g. group.field).
func (c *Client) Group(ctx context.Context, q string, params url.Values) (*GroupedResults, error) {
	merged := cloneValues(params)
	merged.Set("group", "true")
	body, err := c.query(ctx, "select", q, merged)
	if err != nil {
		return nil, err
	}
	return parseGroupedResults(body)
}

// Add indexes or updates the given documents. When commit is true a
// commit request is issued after the update succeeds.
func (c *Client) Add(ctx context.Context, docs []Document, commit bool) error {
	msg, err := c.codec.encodeAdd(docs)
	if err != nil {
		return err
	}
	if err := c.update(ctx, msg); err != nil {
		return fmt.Errorf("adding %d documents: %w", len(docs), err)
	}
	if commit {
		return c.Commit(ctx)
	}
	return nil
}

// Delete removes documents by unique id or by query. Exactly one of id
// and query must be set; violating that is a UsageError and no request
// is made. When commit is true a commit request follows the delete.
func (c *Client) Delete(ctx context.Context, id, query string, commit bool) error {
	var msg []byte
	var err error
	switch {
	case id == "" && query == "":
		return UsageError(`delete requires an "id" or a "query"`)
	case id != "" && query != "":
		return UsageError(`delete accepts an "id" or a "query", not both`)
	case id != "":
		msg, err = c.codec.encodeDeleteID(id)
	default:
		msg, err = c.codec.encodeDeleteQuery(query)
	}
	if err != nil {
		return err
	}
	if err := c.update(ctx, msg); err != nil {
		return fmt.Errorf("deleting documents: %w", err)
	}
	if commit {
		return c.Commit(ctx)
	}
	return nil
}

// Commit makes prior adds and deletes visible to subsequent searches.
func (c *Client) Commit(ctx context.Context) error {
	if err := c.update(ctx, c.codec.encodeCommit()); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

// OptimizeOptions control index optimization.
type OptimizeOptions struct {
	WaitFlush    bool
	WaitSearcher bool
}

// Optimize merges index segments. The call returns when Solr accepts
// the request; use the options to wait for flush or searcher reopen.
func (c *Client) Optimize(ctx context.Context, opts OptimizeOptions) error {
	params := url.Values{}
	params.Set("optimize", "true")
	params.Set("waitFlush", fmt.Sprintf("%t", opts.WaitFlush))
	params.Set("waitSearcher", fmt.Sprintf("%t", opts.WaitSearcher))

	reqURL := fmt.Sprintf("%s/update?%s", c.baseURL, params.Encode())
	if _, err := c.send(ctx, http.MethodGet, reqURL, nil, ""); err != nil {
		return fmt.Errorf("optimizing index: %w", err)
	}
	return nil
}

// query runs a read request against the given handler (select, mlt,
// tvrh). Long queries are sent as a form POST instead of a GET.
func (c *Client) query(ctx context.Context, handler, q string, params url.Values) ([]byte, error) {
	merged := cloneValues(params)
	merged.Set("q", q)
	merged.Set("wt", "json")
	encoded := merged.Encode()

	if len(q) < postQueryThreshold {
		reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, handler, encoded)
		return c.send(ctx, http.MethodGet, reqURL, nil, "")
	}

	reqURL := fmt.Sprintf("%s/%s", c.baseURL, handler)
	return c.send(ctx, http.MethodPost, reqURL, []byte(encoded), "application/x-www-form-urlencoded")
}

// update posts an encoded update message to the codec's handler.
func (c *Client) update(ctx context.Context, msg []byte) error {
	reqURL := fmt.Sprintf("%s/%s", c.baseURL, c.codec.path())
	_, err := c.send(ctx, http.MethodPost, reqURL, msg, c.codec.contentType())
	return err
}

// send performs one HTTP round trip. Non-2xx responses become a
// *ServerError carrying the status code and the scraped server message.
func (c *Client) send(ctx context.Context, method, reqURL string, body []byte, contentType string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &ServerError{
			StatusCode: resp.StatusCode,
			URL:        reqURL,
			Message:    extractServerMessage(string(respBody)),
		}
	}
	return respBody, nil
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v)+2)
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
