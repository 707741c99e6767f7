package extract

import (
	"net/url"
	"strings"
)

// sameSite reports whether u is hosted on the reference site. A leading
// "www." is ignored on both sides.
func (e *Extractor) sameSite(u *url.URL) bool {
	return trimWWW(u.Hostname()) == trimWWW(e.site.Hostname())
}

func trimWWW(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}

// absolutize resolves href against the reference site. Fragments are dropped.
func (e *Extractor) absolutize(href string) (*url.URL, bool) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return nil, false
	}
	u := e.site.ResolveReference(ref)
	u.Fragment = ""
	return u, true
}

// isIndexPage reports whether u is the site homepage or a search listing.
func isIndexPage(u *url.URL) bool {
	return u.Path == "" || u.Path == "/" || u.Query().Has("s")
}

func hasPathFragment(u *url.URL, fragments []string) bool {
	p := u.Path
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	for _, f := range fragments {
		if strings.Contains(p, f) {
			return true
		}
	}
	return false
}

// normalizeURL strips the fragment and trailing slash for deduplication.
func normalizeURL(u *url.URL) string {
	c := *u
	c.Fragment = ""
	if c.Path != "/" {
		c.Path = strings.TrimSuffix(c.Path, "/")
	}
	return c.String()
}

// seenSet tracks URLs already collected.
type seenSet map[string]bool

// add records key and reports whether it was new.
func (s seenSet) add(key string) bool {
	if s[key] {
		return false
	}
	s[key] = true
	return true
}
