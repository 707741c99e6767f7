// Package fetch implements the Fetcher interface.
// It performs HTTP GET requests with per-fetcher credentials, headers,
// timeout and optional rate limiting. Requests are never retried.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/shiggsy365/bookstack/core"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	defaultAccept    = "text/html,application/xhtml+xml"

	// AcceptOPDS is the Accept header for catalog feeds.
	AcceptOPDS = "application/atom+xml,application/xml"

	maxBodyBytes = 64 << 20
)

// ErrForbidden matches a *StatusError carrying 403.
var ErrForbidden = errors.New("forbidden by origin")

// StatusError is returned for any non-2xx response. Body holds the start
// of the response body for diagnostics.
type StatusError struct {
	URL  string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.Code, e.URL)
}

// Is lets errors.Is(err, ErrForbidden) match 403 responses.
func (e *StatusError) Is(target error) bool {
	return target == ErrForbidden && e.Code == http.StatusForbidden
}

// HTTPFetcher fetches documents via HTTP.
type HTTPFetcher struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	accept    string
	user      string
	pass      string
	limiter   *rate.Limiter
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithTimeout bounds each fetch, including reading the body.
func WithTimeout(d time.Duration) Option {
	return func(f *HTTPFetcher) { f.timeout = d }
}

// WithBasicAuth sends credentials with every request. An empty user
// disables authentication.
func WithBasicAuth(user, pass string) Option {
	return func(f *HTTPFetcher) { f.user, f.pass = user, pass }
}

// WithAccept overrides the Accept header.
func WithAccept(accept string) Option {
	return func(f *HTTPFetcher) { f.accept = accept }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *HTTPFetcher) { f.userAgent = ua }
}

// WithLimiter waits on l before each request.
func WithLimiter(l *rate.Limiter) Option {
	return func(f *HTTPFetcher) { f.limiter = l }
}

// WithClient replaces the underlying http.Client.
func WithClient(c *http.Client) Option {
	return func(f *HTTPFetcher) { f.client = c }
}

// New creates an HTTPFetcher with sensible defaults.
func New(opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		client:    &http.Client{},
		timeout:   defaultTimeout,
		userAgent: defaultUserAgent,
		accept:    defaultAccept,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves the document at url. Non-2xx responses return a
// *StatusError.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*core.FetchResult, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", f.accept)
	if f.user != "" {
		req.SetBasicAuth(f.user, f.pass)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{URL: url, Code: resp.StatusCode, Body: snippet(body)}
	}

	return &core.FetchResult{
		URL:         url,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Header:      resp.Header,
		Body:        body,
	}, nil
}

// snippet returns at most the first 500 runes of body.
func snippet(body []byte) string {
	const n = 500
	if len(body) > n*utf8.UTFMax {
		body = body[:n*utf8.UTFMax]
	}
	s := string(body)
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
