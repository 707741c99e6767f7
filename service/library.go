// Package service joins the outbound clients and the pure parsing,
// extraction and matching stages into the operations served over HTTP and
// the CLI.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/shiggsy365/bookstack/core"
	"github.com/shiggsy365/bookstack/core/cover"
	"github.com/shiggsy365/bookstack/core/ephemera"
	"github.com/shiggsy365/bookstack/core/extract"
	"github.com/shiggsy365/bookstack/core/fetch"
	"github.com/shiggsy365/bookstack/core/mail"
	"github.com/shiggsy365/bookstack/core/match"
	"github.com/shiggsy365/bookstack/core/opds"
	"github.com/shiggsy365/bookstack/internal/config"
	"github.com/shiggsy365/bookstack/internal/logger"
	"github.com/shiggsy365/bookstack/internal/metrics"
)

// Outbound timeouts.
const (
	BrowseTimeout   = 15 * time.Second
	ImageTimeout    = 10 * time.Second
	SiteTimeout     = 15 * time.Second
	CheckTimeout    = 10 * time.Second
	DownloadTimeout = 30 * time.Second
)

const (
	kindleUA        = "Mozilla/5.0 (Kobo) AppleWebkit/537.36 (KHTML, like Gecko)"
	kindleSubject   = "Book from OPDS"
	defaultFilename = "book.epub"
	opdsPathMarker  = "/api/v1/opds"
)

// ErrMissingURL is returned when an operation needs a URL and got none.
var ErrMissingURL = errors.New("no URL provided")

// Releases is the release search service.
type Releases interface {
	Search(ctx context.Context, query string) ([]ephemera.Release, error)
	RequestDownload(ctx context.Context, md5, title string) (json.RawMessage, error)
	Queue(ctx context.Context) (json.RawMessage, error)
}

// Mailer delivers send-to-kindle messages.
type Mailer interface {
	Configured() bool
	From() string
	Send(ctx context.Context, m mail.Message) error
}

// Library owns the configured clients.
type Library struct {
	catalog config.CatalogConfig

	browse   core.Fetcher
	images   core.Fetcher
	search   core.Fetcher
	download core.Fetcher
	site     core.Fetcher

	extractor *extract.Extractor
	releases  Releases
	mailer    Mailer
}

// Option customizes a Library.
type Option func(*Library)

// WithMailer replaces the SMTP sender.
func WithMailer(m Mailer) Option {
	return func(l *Library) { l.mailer = m }
}

// WithReleases replaces the ephemera client.
func WithReleases(r Releases) Option {
	return func(l *Library) { l.releases = r }
}

// New wires a Library from cfg.
func New(cfg *config.Config, opts ...Option) *Library {
	auth := fetch.WithBasicAuth(cfg.Catalog.User, cfg.Catalog.Pass)

	limit := rate.Inf
	if cfg.Series.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.Series.RequestsPerSecond)
	}

	l := &Library{
		catalog: cfg.Catalog,
		browse: fetch.New(auth, fetch.WithTimeout(BrowseTimeout),
			fetch.WithAccept(fetch.AcceptOPDS+",text/xml,application/json"), fetch.WithUserAgent(kindleUA)),
		images:   fetch.New(auth, fetch.WithTimeout(ImageTimeout), fetch.WithAccept("image/*")),
		search:   fetch.New(auth, fetch.WithTimeout(CheckTimeout), fetch.WithAccept(fetch.AcceptOPDS), fetch.WithUserAgent(kindleUA)),
		download: fetch.New(auth, fetch.WithTimeout(DownloadTimeout), fetch.WithAccept("*/*"), fetch.WithUserAgent(kindleUA)),
		site:     fetch.New(fetch.WithTimeout(SiteTimeout), fetch.WithLimiter(rate.NewLimiter(limit, 1))),

		extractor: extract.New(cfg.Series.SiteURL),
		releases:  ephemera.New(cfg.Ephemera.URL),
		mailer: mail.NewSender(mail.Config{
			Server: cfg.SMTP.Server,
			Port:   cfg.SMTP.Port,
			User:   cfg.SMTP.User,
			Pass:   cfg.SMTP.Pass,
		}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// fetchFrom fetches u and records the outcome under target.
func fetchFrom(ctx context.Context, f core.Fetcher, target, u string) (*core.FetchResult, error) {
	res, err := f.Fetch(ctx, u)
	metrics.OutboundFetchesTotal.WithLabelValues(target, outcome(err)).Inc()
	return res, err
}

func outcome(err error) string {
	var se *fetch.StatusError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, fetch.ErrForbidden):
		return "forbidden"
	case errors.As(err, &se):
		return "status"
	default:
		return "error"
	}
}

// ResolveTarget maps a browse target onto an absolute catalog URL. Hosts
// configured to force https are upgraded.
func (l *Library) ResolveTarget(target string) string {
	switch {
	case target == "":
		target = l.catalog.URL
	case !strings.HasPrefix(target, "http"):
		target = strings.TrimRight(l.catalog.URL, "/") + target
	}

	if u, err := url.Parse(target); err == nil && u.Scheme == "http" && l.catalog.ForcesHTTPS(u.Hostname()) {
		u.Scheme = "https"
		target = u.String()
	}
	return target
}

// Browse fetches and parses one catalog page. The returned string is the
// URL actually fetched.
func (l *Library) Browse(ctx context.Context, target string) (*core.FeedPage, string, error) {
	target = l.ResolveTarget(target)
	defer logger.Track(ctx, "catalog browse "+target)()

	res, err := fetchFrom(ctx, l.browse, "catalog", target)
	if err != nil {
		return nil, target, err
	}
	entries, err := opds.Parse(res.Body, target)
	if err != nil {
		return nil, target, fmt.Errorf("parsing %s: %w", target, err)
	}
	return &core.FeedPage{Entries: entries, Type: opds.Kind(entries)}, target, nil
}

// CatalogOrigin is the catalog URL with the OPDS API path removed, used to
// absolutize root-relative image paths.
func (l *Library) CatalogOrigin() string {
	base := l.catalog.URL
	if i := strings.Index(base, opdsPathMarker); i >= 0 {
		return base[:i]
	}
	if i := strings.LastIndex(base, "/"); i >= 0 {
		return base[:i]
	}
	return base
}

// CoverImage fetches a catalog image with the catalog credentials. A
// positive width downscales it.
func (l *Library) CoverImage(ctx context.Context, rawURL string, width int) ([]byte, string, error) {
	if rawURL == "" {
		return nil, "", ErrMissingURL
	}
	if strings.HasPrefix(rawURL, "/") {
		rawURL = l.CatalogOrigin() + rawURL
	}

	res, err := fetchFrom(ctx, l.images, "catalog_image", rawURL)
	if err != nil {
		return nil, "", err
	}
	contentType := res.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}

	data, resized, err := cover.Resize(res.Body, width)
	if err != nil {
		return nil, "", fmt.Errorf("resizing %s: %w", rawURL, err)
	}
	if resized != "" {
		contentType = resized
	}
	return data, contentType, nil
}

// SearchAuthors queries the reference site and extracts author hits.
func (l *Library) SearchAuthors(ctx context.Context, query string) ([]core.AuthorHit, error) {
	if strings.TrimSpace(query) == "" {
		return []core.AuthorHit{}, nil
	}
	target := l.extractor.SiteURL() + "/?s=" + url.QueryEscape(query)

	res, err := fetchFrom(ctx, l.site, "series_site", target)
	if err != nil {
		return nil, err
	}
	doc, err := extract.ParseHTML(res.Body, res.ContentType)
	if err != nil {
		return nil, err
	}

	hits, strategy := l.extractor.Authors(doc)
	if strategy != "" {
		metrics.AuthorStrategyWins.WithLabelValues(strategy).Inc()
	}
	logger.For(ctx).WithField("strategy", strategy).Debugf("found %d authors for %q", len(hits), query)

	if hits == nil {
		hits = []core.AuthorHit{}
	}
	return hits, nil
}

// AuthorSeries fetches an author page and extracts its series.
func (l *Library) AuthorSeries(ctx context.Context, pageURL string) (core.AuthorPage, error) {
	if pageURL == "" {
		return core.AuthorPage{}, ErrMissingURL
	}
	res, err := fetchFrom(ctx, l.site, "series_site", pageURL)
	if err != nil {
		return core.AuthorPage{}, err
	}
	doc, err := extract.ParseHTML(res.Body, res.ContentType)
	if err != nil {
		return core.AuthorPage{}, err
	}

	page := l.extractor.Series(doc)
	logger.For(ctx).Debugf("author %q: %d series", page.Author, len(page.Series))
	return page, nil
}

// CheckLibrary searches the catalog for author and matches titles against
// the results. Any catalog failure yields an empty map.
func (l *Library) CheckLibrary(ctx context.Context, titles []string, author string) map[string]core.MatchResult {
	results := map[string]core.MatchResult{}
	if len(titles) == 0 {
		return results
	}

	target := strings.TrimRight(l.catalog.URL, "/") + "/search?q=" + url.QueryEscape(author)
	res, err := fetchFrom(ctx, l.search, "catalog_search", target)
	if err != nil {
		logger.For(ctx).WithError(err).Warn("library check: catalog search failed")
		return results
	}
	entries, err := opds.Parse(res.Body, target)
	if err != nil {
		logger.For(ctx).WithError(err).Warn("library check: unreadable catalog feed")
		return results
	}

	results = match.CheckLibrary(titles, entries)
	for title, r := range results {
		label := "missing"
		if r.InLibrary {
			label = "in_library"
		}
		metrics.MatchOutcomes.WithLabelValues(label).Inc()
		logger.For(ctx).WithField("score", r.Score).Debugf("library check %q -> %q", title, r.MatchedTitle)
	}
	return results
}

// SearchReleases returns EPUB releases matching query.
func (l *Library) SearchReleases(ctx context.Context, query string) ([]ephemera.Release, error) {
	if strings.TrimSpace(query) == "" {
		return []ephemera.Release{}, nil
	}
	return l.releases.Search(ctx, query)
}

// RequestDownload asks the release service to fetch md5.
func (l *Library) RequestDownload(ctx context.Context, md5, title string) (json.RawMessage, error) {
	return l.releases.RequestDownload(ctx, md5, title)
}

// Queue returns the release service download queue.
func (l *Library) Queue(ctx context.Context) (json.RawMessage, error) {
	return l.releases.Queue(ctx)
}

// SendToKindle downloads a book with the catalog credentials and mails it
// to email as an attachment. It returns the attachment filename.
func (l *Library) SendToKindle(ctx context.Context, email, downloadURL string) (string, error) {
	if downloadURL == "" {
		return "", ErrMissingURL
	}
	if !l.mailer.Configured() {
		return "", mail.ErrNotConfigured
	}

	res, err := fetchFrom(ctx, l.download, "catalog_download", downloadURL)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}

	name := AttachmentName(downloadURL, res.Header["Content-Disposition"])
	err = l.mailer.Send(ctx, mail.Message{
		From:       l.mailer.From(),
		To:         email,
		Subject:    kindleSubject,
		Attachment: mail.Attachment{Filename: name, Data: res.Body},
	})
	if err != nil {
		return "", fmt.Errorf("email: %w", err)
	}
	logger.For(ctx).Infof("sent %s to kindle", name)
	return name, nil
}

// AttachmentName picks the filename for a downloaded book: the
// Content-Disposition filename when that header is present, else the
// last URL path segment.
func AttachmentName(downloadURL string, disposition []string) string {
	if len(disposition) > 0 {
		cd := disposition[0]
		if _, params, err := mime.ParseMediaType(cd); err == nil && params["filename"] != "" {
			return params["filename"]
		}
		if _, after, ok := strings.Cut(cd, "filename="); ok {
			if name := strings.Trim(after, `"' `); name != "" {
				return name
			}
		}
		return defaultFilename
	}

	path, _, _ := strings.Cut(downloadURL, "?")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		path = path[i+1:]
	}
	if path == "" {
		return defaultFilename
	}
	return path
}
