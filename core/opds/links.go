package opds

import (
	"net/url"
	"strings"
)

// ImageProxyPath is the endpoint that serves catalog images on behalf of
// the browser, which cannot send the catalog credentials itself.
const ImageProxyPath = "/api/opds/image-proxy"

// ResolveHref absolutizes a feed link target:
//   - a root-relative image or thumbnail link is routed through the image proxy;
//   - an http(s) link passes through unchanged;
//   - anything else is resolved against baseURL.
func ResolveHref(href, rel, baseURL string) string {
	switch {
	case href == "":
		return ""
	case strings.HasPrefix(href, "/") && isImageRel(rel):
		return ProxyURL(href)
	case strings.HasPrefix(href, "http"):
		return href
	default:
		return resolveReference(baseURL, href)
	}
}

// ProxyURL builds the image proxy reference for a catalog-relative path.
// Slashes are kept readable; everything else is query-escaped.
func ProxyURL(path string) string {
	return ImageProxyPath + "?url=" + strings.ReplaceAll(url.QueryEscape(path), "%2F", "/")
}

func isImageRel(rel string) bool {
	return strings.Contains(rel, "image") || strings.Contains(rel, "thumbnail")
}

func resolveReference(baseURL, href string) string {
	if baseURL == "" {
		return href
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
