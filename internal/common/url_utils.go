package common

import (
	"net"
	"net/url"
	"strings"
)

// Browser-extension and other non-fetchable schemes that identify
// bookmarks living inside the browser rather than on the network.
var extensionSchemes = map[string]bool{
	"chrome-extension":     true,
	"moz-extension":        true,
	"edge-extension":       true,
	"safari-web-extension": true,
	"chrome":               true,
	"about":                true,
	"file":                 true,
}

// NormalizeURL produces the canonical form used for bookmark identity.
// Two URLs are the same bookmark when their canonical forms are equal.
//
// Rules:
//   - scheme and host are lowercased, the path keeps its case
//   - default ports are dropped (80 for http, 443 for https)
//   - a bare root path collapses to the origin, a single trailing
//     slash is stripped from longer paths
//   - query and fragment are preserved verbatim
//
// Unparseable input is returned lowercased and trimmed so equality
// still behaves sensibly for garbage rows.
func NormalizeURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	u, err := url.Parse(trimmed)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return strings.ToLower(trimmed)
	}

	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Host)

	// Drop default ports
	switch {
	case scheme == "http" && strings.HasSuffix(host, ":80"):
		host = strings.TrimSuffix(host, ":80")
	case scheme == "https" && strings.HasSuffix(host, ":443"):
		host = strings.TrimSuffix(host, ":443")
	}

	path := u.EscapedPath()
	if path == "/" {
		path = ""
	} else if strings.HasSuffix(path, "/") {
		path = path[:len(path)-1]
	}

	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString("://")
	b.WriteString(host)
	b.WriteString(path)
	if u.RawQuery != "" || u.ForceQuery {
		b.WriteString("?")
		b.WriteString(u.RawQuery)
	}
	if u.Fragment != "" {
		b.WriteString("#")
		b.WriteString(u.EscapedFragment())
	}
	return b.String()
}

// IsInternalURL reports whether a URL points at an internal address that
// cannot be probed from here: loopback, RFC-1918 ranges, mDNS-style
// suffixes, or a browser-extension scheme. Internal bookmarks are
// accepted without a network check.
func IsInternalURL(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}

	if extensionSchemes[strings.ToLower(u.Scheme)] {
		return true
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}

	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	if strings.HasSuffix(host, ".local") || strings.HasSuffix(host, ".internal") {
		return true
	}

	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast()
	}

	return false
}

// IsFetchableURL reports whether the URL has a scheme the fetcher can
// actually request.
func IsFetchableURL(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

// URLHost returns the lowercased hostname of a URL, or "" when the URL
// does not parse. Used for domain tables and per-domain rate limiting.
func URLHost(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
