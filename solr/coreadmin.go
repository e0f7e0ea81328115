package solr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// CoreAdmin drives Solr's multicore admin API. It operates on the Solr
// root URL (e.g. "http://127.0.0.1:8983/solr"), not on a core.
type CoreAdmin struct {
	baseURL  string
	username string
	password string
	client   *http.Client
	logger   *slog.Logger
}

// NewCoreAdmin creates a CoreAdmin for the Solr instance at baseURL.
// httpClient may be nil for a default client.
func NewCoreAdmin(baseURL, username, password string, httpClient *http.Client) *CoreAdmin {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &CoreAdmin{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		client:   httpClient,
		logger:   slog.Default(),
	}
}

// CoreURL returns the URL of the named core, suitable for New.
func (a *CoreAdmin) CoreURL(name string) string {
	return a.baseURL + "/" + name
}

// ListCores returns the names of all cores known to the instance.
func (a *CoreAdmin) ListCores(ctx context.Context) ([]string, error) {
	status, err := a.status(ctx, "")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(status))
	for name := range status {
		names = append(names, name)
	}
	return names, nil
}

// CoreStatus returns the raw status mapping for the named core, or nil
// if the core does not exist.
func (a *CoreAdmin) CoreStatus(ctx context.Context, name string) (map[string]any, error) {
	status, err := a.status(ctx, name)
	if err != nil {
		return nil, err
	}
	core, ok := status[name].(map[string]any)
	if !ok || len(core) == 0 {
		return nil, nil
	}
	return core, nil
}

// IsCoreActive reports whether the named core exists and is loaded.
func (a *CoreAdmin) IsCoreActive(ctx context.Context, name string) (bool, error) {
	core, err := a.CoreStatus(ctx, name)
	if err != nil {
		return false, err
	}
	return core != nil, nil
}

// CreateCore creates the named core. If it already exists, CreateCore
// does nothing.
func (a *CoreAdmin) CreateCore(ctx context.Context, name string) error {
	active, err := a.IsCoreActive(ctx, name)
	if err != nil {
		return err
	}
	if active {
		a.logger.Debug("core already exists", "core", name)
		return nil
	}

	params := url.Values{}
	params.Set("action", "CREATE")
	params.Set("name", name)
	params.Set("instanceDir", ".")
	params.Set("schema", "schema.xml")
	params.Set("loadOnStart", "false")
	if _, err := a.send(ctx, params); err != nil {
		return fmt.Errorf("creating core %s: %w", name, err)
	}
	a.logger.Info("created core", "core", name)
	return nil
}

// UnloadCore unloads the named core, optionally deleting its index.
func (a *CoreAdmin) UnloadCore(ctx context.Context, name string, deleteIndex bool) error {
	params := url.Values{}
	params.Set("action", "UNLOAD")
	params.Set("core", name)
	if deleteIndex {
		params.Set("deleteIndex", "true")
	}
	if _, err := a.send(ctx, params); err != nil {
		return fmt.Errorf("unloading core %s: %w", name, err)
	}
	return nil
}

// DeleteCore unloads the named core and deletes its index.
func (a *CoreAdmin) DeleteCore(ctx context.Context, name string) error {
	return a.UnloadCore(ctx, name, true)
}

// status runs a STATUS command, for one core when name is set,
// otherwise for all.
func (a *CoreAdmin) status(ctx context.Context, name string) (map[string]any, error) {
	params := url.Values{}
	params.Set("action", "STATUS")
	if name != "" {
		params.Set("core", name)
	}
	body, err := a.send(ctx, params)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Status map[string]any `json:"status"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decoding core status: %w", err)
	}
	return raw.Status, nil
}

func (a *CoreAdmin) send(ctx context.Context, params url.Values) ([]byte, error) {
	merged := cloneValues(params)
	merged.Set("wt", "json")
	reqURL := fmt.Sprintf("%s/admin/cores?%s", a.baseURL, merged.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating core admin request: %w", err)
	}
	if a.username != "" {
		req.SetBasicAuth(a.username, a.password)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing core admin request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading core admin response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &ServerError{
			StatusCode: resp.StatusCode,
			URL:        reqURL,
			Message:    extractServerMessage(string(body)),
		}
	}

	// Core admin reports command failures in the response header even
	// on HTTP 200.
	var header struct {
		ResponseHeader struct {
			Status int `json:"status"`
		} `json:"responseHeader"`
	}
	if err := json.Unmarshal(body, &header); err != nil {
		return nil, fmt.Errorf("decoding core admin response: %w", err)
	}
	if header.ResponseHeader.Status != 0 {
		return nil, fmt.Errorf("core admin command failed with status %d", header.ResponseHeader.Status)
	}
	return body, nil
}
