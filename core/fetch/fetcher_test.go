package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestFetchSendsHeadersAndAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "reader", user)
		assert.Equal(t, "secret", pass)
		assert.Equal(t, AcceptOPDS, r.Header.Get("Accept"))
		assert.Equal(t, "bookstack-test", r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/atom+xml;charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="dune.epub"`)
		_, _ = w.Write([]byte("<feed/>"))
	}))
	defer srv.Close()

	f := New(
		WithBasicAuth("reader", "secret"),
		WithAccept(AcceptOPDS),
		WithUserAgent("bookstack-test"),
	)
	res, err := f.Fetch(context.Background(), srv.URL+"/feed")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/feed", res.URL)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "application/atom+xml;charset=utf-8", res.ContentType)
	assert.Equal(t, []string{`attachment; filename="dune.epub"`}, res.Header["Content-Disposition"])
	assert.Equal(t, "<feed/>", string(res.Body))
}

func TestFetchWithoutAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _, ok := r.BasicAuth()
		assert.False(t, ok)
		assert.Equal(t, defaultAccept, r.Header.Get("Accept"))
	}))
	defer srv.Close()

	_, err := New().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
}

func TestFetchStatusErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/forbidden":
			http.Error(w, "go away", http.StatusForbidden)
		default:
			http.Error(w, "missing", http.StatusNotFound)
		}
	}))
	defer srv.Close()

	_, err := New().Fetch(context.Background(), srv.URL+"/forbidden")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrForbidden))
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusForbidden, se.Code)
	assert.Contains(t, se.Body, "go away")

	_, err = New().Fetch(context.Background(), srv.URL+"/missing")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrForbidden))
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
}

func TestFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := New(WithTimeout(50*time.Millisecond)).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestFetchRateLimitRespectsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	f := New(WithLimiter(limiter), WithTimeout(100*time.Millisecond))

	_, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}

func TestSnippetTruncates(t *testing.T) {
	long := make([]byte, 2000)
	for i := range long {
		long[i] = 'x'
	}
	assert.Len(t, snippet(long), 500)
	assert.Equal(t, "short", snippet([]byte("short")))
}

func TestSnippetKeepsRunesWhole(t *testing.T) {
	got := snippet([]byte(strings.Repeat("é", 600)))
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("é", 500), got)

	got = snippet([]byte("a" + strings.Repeat("日本", 400)))
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, 500, utf8.RuneCountInString(got))
}

func TestStatusErrorBodyIsValidUTF8(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(strings.Repeat("ü", 700)))
	}))
	defer srv.Close()

	_, err := New().Fetch(context.Background(), srv.URL)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.True(t, utf8.ValidString(se.Body))
	assert.Equal(t, strings.Repeat("ü", 500), se.Body)
}
