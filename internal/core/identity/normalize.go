package identity

import (
	"net/url"
	"strings"
	"unicode"

	"github.com/custodia-labs/shelfsync/internal/core/domain"
)

// trackingParams are low-signal query parameters stripped from URLs.
// Any parameter starting with "utm_" is stripped as well.
var trackingParams = map[string]struct{}{
	"fbclid":          {},
	"fb_action_ids":   {},
	"fb_action_types": {},
	"fb_source":       {},
	"fb_ref":          {},
	"gclid":           {},
	"gclsrc":          {},
	"dclid":           {},
	"mc_cid":          {},
	"mc_eid":          {},
	"_ga":             {},
	"_gl":             {},
	"ref":             {},
	"referer":         {},
	"referrer":        {},
	"source":          {},
	"icid":            {},
	"s_kwcid":         {},
	"msclkid":         {},
	"igshid":          {},
	"yclid":           {},
}

// IsTrackingParam reports whether a query parameter is stripped during normalisation.
func IsTrackingParam(name string) bool {
	name = strings.ToLower(name)
	if strings.HasPrefix(name, "utm_") {
		return true
	}
	_, ok := trackingParams[name]
	return ok
}

// NormalizeURL canonicalises a URL so that locators for the same resource
// compare equal regardless of scheme, host and path case, www prefix,
// default port, trailing slash, fragment, tracking parameters and query
// order. Query values keep their case.
func NormalizeURL(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	candidate := s
	if !hasScheme(candidate) {
		candidate = "https://" + candidate
	}

	u, err := url.Parse(candidate)
	if err != nil || u.Host == "" {
		return fallback(s)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme == "http" {
		scheme = "https"
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if port := u.Port(); port != "" && port != "80" && port != "443" {
		host += ":" + port
	}

	query := u.Query()
	for name := range query {
		if IsTrackingParam(name) {
			query.Del(name)
		}
	}

	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString("://")
	b.WriteString(host)
	b.WriteString(strings.ToLower(strings.TrimRight(u.EscapedPath(), "/")))
	if encoded := query.Encode(); encoded != "" {
		b.WriteByte('?')
		b.WriteString(encoded)
	}

	return b.String()
}

// hasScheme reports whether s starts with "scheme://". A "://" inside the
// path or query does not count.
func hasScheme(s string) bool {
	i := strings.Index(s, "://")
	return i > 0 && !strings.ContainsAny(s[:i], "/?#")
}

func fallback(s string) string {
	return strings.TrimRight(strings.ToLower(strings.TrimSpace(s)), "/")
}

// Domain returns the host of a URL without a www prefix, or "" when it has none.
func Domain(raw string) string {
	normalized := NormalizeURL(raw)
	u, err := url.Parse(normalized)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// NormalizeISBN keeps the digits of an ISBN and a trailing check character X.
// Hyphens, spaces and spreadsheet quoting are dropped.
func NormalizeISBN(raw string) string {
	var b strings.Builder
	runes := []rune(strings.TrimSpace(raw))
	for i, r := range runes {
		switch {
		case unicode.IsDigit(r):
			b.WriteRune(r)
		case (r == 'x' || r == 'X') && i == len(runes)-1:
			b.WriteRune('X')
		}
	}
	return b.String()
}

// ScopedSlug builds the identity key of a note from its slug and vault.
func ScopedSlug(slug, scope string) string {
	slug = strings.Trim(strings.TrimSpace(slug), "/")
	if slug == "" {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(scope)) + "/" + strings.ToLower(slug)
}

// TitleAuthorKey builds the secondary key used to match books across sources.
func TitleAuthorKey(title, author string) string {
	title = collapse(title)
	if title == "" {
		return ""
	}
	return title + "|" + collapse(author)
}

func collapse(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// KeyFor computes the identity key of a record from its locators.
func KeyFor(r domain.Record) string {
	switch r.Type {
	case domain.RecordTypeArticle:
		return NormalizeURL(r.Link)
	case domain.RecordTypeBook:
		if isbn := NormalizeISBN(r.ISBN); isbn != "" {
			return "isbn:" + isbn
		}
		if key := TitleAuthorKey(r.Title, r.Author); key != "" {
			return "title:" + key
		}
		return ""
	case domain.RecordTypeNote:
		return ScopedSlug(r.Slug, r.Scope)
	default:
		return ""
	}
}

// MatchKeyFor computes the secondary key of a record, if its type has one.
func MatchKeyFor(r domain.Record) string {
	if r.Type != domain.RecordTypeBook {
		return ""
	}
	return TitleAuthorKey(r.Title, r.Author)
}

// Assign sets the stored identity keys of a record from its locators.
func Assign(r *domain.Record) {
	r.IdentityKey = KeyFor(*r)
	r.MatchKey = MatchKeyFor(*r)
	if r.Type == domain.RecordTypeNote {
		r.Scope = strings.ToLower(strings.TrimSpace(r.Scope))
	}
}
