package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiggsy365/bookstack/core/ephemera"
	"github.com/shiggsy365/bookstack/core/fetch"
	"github.com/shiggsy365/bookstack/core/mail"
	"github.com/shiggsy365/bookstack/internal/config"
)

const catalogFeed = `<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <title>Killing Floor</title>
    <link rel="http://opds-spec.org/image/thumbnail" href="/covers/1.jpg"/>
    <link rel="http://opds-spec.org/acquisition" href="books/1/download"/>
  </entry>
  <entry><title>Libraries</title></entry>
</feed>`

type fakeMailer struct {
	configured bool
	sent       []mail.Message
	err        error
}

func (m *fakeMailer) Configured() bool { return m.configured }
func (m *fakeMailer) From() string     { return "me@example.test" }
func (m *fakeMailer) Send(_ context.Context, msg mail.Message) error {
	m.sent = append(m.sent, msg)
	return m.err
}

type fakeReleases struct{ queried string }

func (r *fakeReleases) Search(_ context.Context, q string) ([]ephemera.Release, error) {
	r.queried = q
	return []ephemera.Release{{"md5": "a", "format": "epub"}}, nil
}

func (r *fakeReleases) RequestDownload(_ context.Context, md5, title string) (json.RawMessage, error) {
	return json.RawMessage(`{"md5":"` + md5 + `"}`), nil
}

func (r *fakeReleases) Queue(context.Context) (json.RawMessage, error) {
	return json.RawMessage(`[]`), nil
}

func newCatalog(t *testing.T) *httptest.Server {
	t.Helper()
	var pngBytes bytes.Buffer
	require.NoError(t, png.Encode(&pngBytes, image.NewRGBA(image.Rect(0, 0, 40, 20))))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, pass, ok := r.BasicAuth(); !ok || user != "reader" || pass != "secret" {
			http.Error(w, "no access", http.StatusForbidden)
			return
		}
		switch r.URL.Path {
		case "/api/v1/opds", "/api/v1/opds/search":
			_, _ = io.WriteString(w, catalogFeed)
		case "/api/v1/opds/broken":
			_, _ = io.WriteString(w, "<feed>")
		case "/covers/1.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(pngBytes.Bytes())
		case "/books/1/download":
			w.Header().Set("Content-Disposition", `attachment; filename="Killing Floor.epub"`)
			_, _ = io.WriteString(w, "EPUB")
		case "/books/2/file.epub":
			_, _ = io.WriteString(w, "EPUB")
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(catalogURL string) *config.Config {
	cfg := config.Default()
	cfg.Catalog.URL = catalogURL + "/api/v1/opds"
	cfg.Catalog.User = "reader"
	cfg.Catalog.Pass = "secret"
	cfg.Series.RequestsPerSecond = 0
	return cfg
}

func TestResolveTarget(t *testing.T) {
	cfg := config.Default()
	cfg.Catalog.URL = "http://books.shiggsy.co.uk/api/v1/opds/"
	cfg.Catalog.ForceHTTPSHosts = []string{"shiggsy.co.uk"}
	l := New(cfg)

	assert.Equal(t, "https://books.shiggsy.co.uk/api/v1/opds/", l.ResolveTarget(""))
	assert.Equal(t, "https://books.shiggsy.co.uk/api/v1/opds/catalog?page=2", l.ResolveTarget("/catalog?page=2"))
	assert.Equal(t, "http://other.test/feed", l.ResolveTarget("http://other.test/feed"))
}

func TestCatalogOrigin(t *testing.T) {
	cfg := config.Default()
	cfg.Catalog.URL = "http://booklore:6060/api/v1/opds"
	assert.Equal(t, "http://booklore:6060", New(cfg).CatalogOrigin())

	cfg.Catalog.URL = "http://books.test/opds/root"
	assert.Equal(t, "http://books.test/opds", New(cfg).CatalogOrigin())
}

func TestBrowse(t *testing.T) {
	srv := newCatalog(t)
	l := New(testConfig(srv.URL))

	page, target, err := l.Browse(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/api/v1/opds", target)
	assert.Equal(t, "acquisition", page.Type)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, "/api/opds/image-proxy?url=/covers/1.jpg", page.Entries[0].Links[0].Href)
	assert.Equal(t, srv.URL+"/api/v1/books/1/download", page.Entries[0].Links[1].Href)

	_, _, err = l.Browse(context.Background(), "/broken")
	assert.Error(t, err)

	_, _, err = l.Browse(context.Background(), "/missing")
	var se *fetch.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
}

func TestBrowseForbidden(t *testing.T) {
	srv := newCatalog(t)
	cfg := testConfig(srv.URL)
	cfg.Catalog.Pass = "wrong"

	_, _, err := New(cfg).Browse(context.Background(), "")
	assert.True(t, errors.Is(err, fetch.ErrForbidden))
}

func TestCoverImage(t *testing.T) {
	srv := newCatalog(t)
	l := New(testConfig(srv.URL))

	data, ct, err := l.CoverImage(context.Background(), "/covers/1.png", 0)
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)
	assert.NotEmpty(t, data)

	data, ct, err = l.CoverImage(context.Background(), srv.URL+"/covers/1.png", 10)
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Width)
	assert.Equal(t, 5, cfg.Height)

	_, _, err = l.CoverImage(context.Background(), "", 0)
	assert.ErrorIs(t, err, ErrMissingURL)
}

func TestCheckLibrary(t *testing.T) {
	srv := newCatalog(t)
	l := New(testConfig(srv.URL))

	results := l.CheckLibrary(context.Background(), []string{"Killing Floor (1997)", "Die Trying"}, "Lee Child")
	require.Len(t, results, 2)
	assert.True(t, results["Killing Floor (1997)"].InLibrary)
	assert.Equal(t, 100, results["Killing Floor (1997)"].Score)
	assert.Equal(t, srv.URL+"/api/v1/opds/books/1/download", results["Killing Floor (1997)"].DownloadURL)
	assert.False(t, results["Die Trying"].InLibrary)

	assert.Empty(t, l.CheckLibrary(context.Background(), nil, "Lee Child"))

	cfg := testConfig(srv.URL)
	cfg.Catalog.Pass = "wrong"
	assert.Empty(t, New(cfg).CheckLibrary(context.Background(), []string{"Killing Floor"}, "Lee Child"))
}

func TestSeriesSite(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		switch r.URL.Path {
		case "/":
			assert.Equal(t, "lee child", r.URL.Query().Get("s"))
			_, _ = io.WriteString(w, `<html><body><article><h2 class="entry-title"><a href="/lee-child/">Lee Child</a></h2></article></body></html>`)
		case "/lee-child/":
			_, _ = io.WriteString(w, `<html><body><h1 class="entry-title">Lee Child Book Series in Order</h1>
<div class="entry-content"><h2>Jack Reacher</h2><ul><li>Killing Floor (1997)</li></ul></div></body></html>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer site.Close()

	cfg := config.Default()
	cfg.Series.SiteURL = site.URL
	cfg.Series.RequestsPerSecond = 0
	l := New(cfg)

	hits, err := l.SearchAuthors(context.Background(), "lee child")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, site.URL+"/lee-child/", hits[0].URL)

	empty, err := l.SearchAuthors(context.Background(), " ")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	page, err := l.AuthorSeries(context.Background(), hits[0].URL)
	require.NoError(t, err)
	assert.Equal(t, "Lee Child", page.Author)
	require.Len(t, page.Series, 1)
	assert.Equal(t, "Killing Floor (1997)", page.Series[0].Books[0].Title)

	_, err = l.AuthorSeries(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingURL)
}

func TestReleasesPassThrough(t *testing.T) {
	releases := &fakeReleases{}
	l := New(config.Default(), WithReleases(releases))

	got, err := l.SearchReleases(context.Background(), "dune")
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, "dune", releases.queried)

	none, err := l.SearchReleases(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, none)

	raw, err := l.RequestDownload(context.Background(), "abc", "Dune")
	require.NoError(t, err)
	assert.JSONEq(t, `{"md5":"abc"}`, string(raw))

	raw, err = l.Queue(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestSendToKindle(t *testing.T) {
	srv := newCatalog(t)
	mailer := &fakeMailer{configured: true}
	l := New(testConfig(srv.URL), WithMailer(mailer))

	name, err := l.SendToKindle(context.Background(), "reader@kindle.test", srv.URL+"/books/1/download")
	require.NoError(t, err)
	assert.Equal(t, "Killing Floor.epub", name)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "reader@kindle.test", mailer.sent[0].To)
	assert.Equal(t, "me@example.test", mailer.sent[0].From)
	assert.Equal(t, "Book from OPDS", mailer.sent[0].Subject)
	assert.Equal(t, []byte("EPUB"), mailer.sent[0].Attachment.Data)

	name, err = l.SendToKindle(context.Background(), "reader@kindle.test", srv.URL+"/books/2/file.epub?token=1")
	require.NoError(t, err)
	assert.Equal(t, "file.epub", name)

	_, err = l.SendToKindle(context.Background(), "reader@kindle.test", srv.URL+"/missing")
	assert.ErrorContains(t, err, "download")

	mailer.err = errors.New("relay down")
	_, err = l.SendToKindle(context.Background(), "reader@kindle.test", srv.URL+"/books/2/file.epub")
	assert.ErrorContains(t, err, "email")
}

func TestSendToKindleNeedsSMTP(t *testing.T) {
	l := New(config.Default(), WithMailer(&fakeMailer{}))
	_, err := l.SendToKindle(context.Background(), "reader@kindle.test", "http://x.test/book.epub")
	assert.ErrorIs(t, err, mail.ErrNotConfigured)

	_, err = l.SendToKindle(context.Background(), "reader@kindle.test", "")
	assert.ErrorIs(t, err, ErrMissingURL)
}

func TestAttachmentName(t *testing.T) {
	tests := []struct {
		url         string
		disposition []string
		want        string
	}{
		{"http://x.test/a/dune.epub?x=1", nil, "dune.epub"},
		{"http://x.test/a/", nil, "book.epub"},
		{"http://x.test/dl", []string{`attachment; filename="Dune.epub"`}, "Dune.epub"},
		{"http://x.test/dl", []string{`attachment; filename='Dune Messiah.epub'`}, "Dune Messiah.epub"},
		{"http://x.test/dl", []string{`inline`}, "book.epub"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AttachmentName(tt.url, tt.disposition), tt.url)
	}
}
