// Package urlutil provides URL canonicalization for identity comparisons.
// Every function here is pure and fails open: a URL that cannot be parsed
// is returned as-is rather than propagated as an error, so a single bad
// history entry never aborts an index build.
package urlutil

import (
	"fmt"
	"net/url"
	"strings"
)

// excludedPrefixes lists non-content URL schemes that never enter the
// index: internal browser pages, extension pages, local files, and inline
// data/script/blob URLs. Matched case-insensitively as prefixes.
var excludedPrefixes = []string{
	"chrome://",
	"chrome-extension://",
	"about:",
	"edge://",
	"brave://",
	"moz-extension://",
	"file://",
	"data:",
	"blob:",
	"javascript:",
}

const faviconEndpoint = "https://www.google.com/s2/favicons"

// DefaultFaviconSize is the icon size requested from the favicon service.
const DefaultFaviconSize = 32

// Normalize canonicalizes a URL for comparison and storage:
// fragment removed, hostname lowercased, leading "www." stripped, and a
// single trailing slash dropped unless the path is exactly "/".
// Unparseable or scheme-less input is returned unchanged.
func Normalize(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return raw
	}

	u.Fragment = ""

	// A bare root URL serializes with the slash so "https://a.com" and
	// "https://a.com/" compare equal.
	if u.Path == "" && u.Opaque == "" {
		u.Path = "/"
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if port := u.Port(); port != "" {
		u.Host = host + ":" + port
	} else {
		u.Host = host
	}

	normalized := u.String()
	if strings.HasSuffix(normalized, "/") && u.Path != "/" {
		normalized = strings.TrimSuffix(normalized, "/")
	}
	return normalized
}

// Domain returns the lowercased hostname with any leading "www." stripped,
// or the raw input when it cannot be parsed as an absolute URL.
func Domain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return raw
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// IsExcluded reports whether a URL should never be indexed.
func IsExcluded(raw string) bool {
	lowered := strings.ToLower(raw)
	for _, prefix := range excludedPrefixes {
		if strings.HasPrefix(lowered, prefix) {
			return true
		}
	}
	return false
}

// FaviconURL builds a favicon image URL for a page using Google's public
// favicon service. A size of zero or less falls back to DefaultFaviconSize.
func FaviconURL(pageURL string, size int) string {
	if size <= 0 {
		size = DefaultFaviconSize
	}
	return fmt.Sprintf("%s?domain=%s&sz=%d", faviconEndpoint, url.QueryEscape(Domain(pageURL)), size)
}
