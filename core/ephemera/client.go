// Package ephemera is a client for the release search and download
// companion service.
package ephemera

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Per-operation timeouts.
const (
	SearchTimeout   = 15 * time.Second
	DownloadTimeout = 15 * time.Second
	QueueTimeout    = 10 * time.Second
)

// Release is a single search result. Fields are passed through as the
// service reports them.
type Release map[string]any

// Format returns the release file format, e.g. "epub".
func (r Release) Format() string {
	s, _ := r["format"].(string)
	return s
}

// Client talks to an ephemera instance.
type Client struct {
	Client  *http.Client
	BaseURL string
}

// New creates a Client for baseURL.
func New(baseURL string) *Client {
	return &Client{
		Client:  &http.Client{},
		BaseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Search returns the EPUB releases matching query. The service may answer
// with {"results": [...]} or a bare array.
func (c *Client) Search(ctx context.Context, query string) ([]Release, error) {
	u, err := url.Parse(c.BaseURL + "/api/search")
	if err != nil {
		return nil, fmt.Errorf("ephemera: build url: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	u.RawQuery = q.Encode()

	body, err := c.do(ctx, SearchTimeout, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	releases, err := decodeReleases(body)
	if err != nil {
		return nil, err
	}

	epubs := make([]Release, 0, len(releases))
	for _, r := range releases {
		if strings.ToUpper(r.Format()) == "EPUB" {
			epubs = append(epubs, r)
		}
	}
	return epubs, nil
}

func decodeReleases(body []byte) ([]Release, error) {
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("ephemera: decode: %w", err)
	}

	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case map[string]any:
		items, _ = v["results"].([]any)
	}

	releases := make([]Release, 0, len(items))
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			releases = append(releases, Release(m))
		}
	}
	return releases, nil
}

// RequestDownload queues the release identified by md5. The service reply
// is returned unchanged.
func (c *Client) RequestDownload(ctx context.Context, md5, title string) (json.RawMessage, error) {
	payload, err := json.Marshal(map[string]string{"title": title})
	if err != nil {
		return nil, fmt.Errorf("ephemera: encode: %w", err)
	}
	body, err := c.do(ctx, DownloadTimeout, http.MethodPost, c.BaseURL+"/api/download/"+url.PathEscape(md5), payload)
	if err != nil {
		return nil, err
	}
	return asJSON(body)
}

// Queue returns the service download queue unchanged.
func (c *Client) Queue(ctx context.Context) (json.RawMessage, error) {
	body, err := c.do(ctx, QueueTimeout, http.MethodGet, c.BaseURL+"/api/queue", nil)
	if err != nil {
		return nil, err
	}
	return asJSON(body)
}

func (c *Client) do(ctx context.Context, timeout time.Duration, method, target string, payload []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, fmt.Errorf("ephemera: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ephemera: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ephemera: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ephemera: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

func asJSON(body []byte) (json.RawMessage, error) {
	if !json.Valid(body) {
		return nil, fmt.Errorf("ephemera: decode: invalid json")
	}
	return json.RawMessage(body), nil
}
