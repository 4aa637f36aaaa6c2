// Package site holds the fixed bindings to the Suno web app: the entry
// URL, the host patterns the interceptor and login flow key off, and the
// browser identification string.
package site

import (
	"net/url"
	"regexp"
	"strings"
)

// UserAgent is the desktop identification string every session launches
// with. Matching a current stable Chrome on macOS keeps the sessions
// indistinguishable from the profiles they reuse.
const UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Site describes the target web app. The zero value is not usable; use
// Default, or construct one explicitly in tests.
type Site struct {
	// TargetURL is where every session navigates first.
	TargetURL string

	// TargetHost matches the signed-in app host.
	TargetHost *regexp.Regexp

	// APIHost matches request URLs that carry the bearer credential.
	APIHost *regexp.Regexp

	// UsagePath matches the billing/quota endpoint path.
	UsagePath *regexp.Regexp

	// LoginHost matches hosted sign-in pages.
	LoginHost *regexp.Regexp
}

// Default returns the bindings for suno.com.
func Default() *Site {
	return &Site{
		TargetURL:  "https://suno.com/create",
		TargetHost: regexp.MustCompile(`(^|\.)suno\.com$`),
		APIHost:    regexp.MustCompile(`^studio-api\.([a-z]+\.)?suno\.(ai|com)$`),
		UsagePath:  regexp.MustCompile(`^/api/billing/info/?$`),
		LoginHost:  regexp.MustCompile(`^accounts\.suno\.com$`),
	}
}

// IsAPIRequest reports whether rawURL targets the studio API host.
func (s *Site) IsAPIRequest(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return s.APIHost.MatchString(u.Hostname())
}

// IsUsageURL reports whether rawURL is the billing/quota endpoint.
func (s *Site) IsUsageURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return s.APIHost.MatchString(u.Hostname()) && s.UsagePath.MatchString(u.Path)
}

// IsLoginURL reports whether rawURL sits on a sign-in surface, either the
// hosted accounts domain or a /sign-in path on the app itself.
func (s *Site) IsLoginURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if s.LoginHost.MatchString(u.Hostname()) {
		return true
	}
	return strings.HasPrefix(u.Path, "/sign-in") || strings.HasPrefix(u.Path, "/sign-up")
}

// IsTargetURL reports whether rawURL is on the signed-in app host and not
// a sign-in surface.
func (s *Site) IsTargetURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return s.TargetHost.MatchString(u.Hostname()) && !s.IsLoginURL(rawURL)
}
