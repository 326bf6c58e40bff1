package urlutil

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var ErrNotAbsoluteHTTP = errors.New("identifier must be an absolute http(s) URL")

// Canonicalize applies a deterministic normalization to a URL, producing a canonical form.
// It maps equivalent URL spellings to a single canonical representation.
//
// The normalization follows these rules:
//   - Scheme and host are lowercased
//   - Path percent-encoding is decoded and re-encoded canonically, except
//     that an encoded slash (%2F) stays encoded
//   - Path is cleaned (trailing slashes removed, except for root "/")
//   - Fragments are removed
//   - Query parameters are kept in order, with percent-escapes uppercased
//   - Default ports are omitted (e.g., :80 for http, :443 for https)
//
// Properties:
//   - Pure: no state, no memory
//   - Deterministic: same input always produces same output
//   - Idempotent: Canonicalize(Canonicalize(url)) == Canonicalize(url)
//   - Context-free: does not depend on crawl history
func Canonicalize(sourceUrl url.URL) url.URL {
	canonical := sourceUrl

	canonical.Scheme = lowerASCII(canonical.Scheme)
	canonical.Host = lowerASCII(canonical.Host)

	if host, port := canonical.Hostname(), canonical.Port(); port != "" {
		if (canonical.Scheme == "http" && port == "80") ||
			(canonical.Scheme == "https" && port == "443") {
			canonical.Host = host
		}
	}

	canonical.Path, canonical.RawPath = canonicalPath(sourceUrl)
	canonical.RawQuery = upperPercentEscapes(canonical.RawQuery)

	canonical.Fragment = ""
	canonical.RawFragment = ""

	canonical.ForceQuery = false

	canonical.User = nil
	canonical.Opaque = ""

	return canonical
}

// Normalize turns a raw identifier into its PageIdentifier form.
// Anything that is not an absolute http(s) URL is rejected with an error;
// the function never panics.
func Normalize(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty identifier", ErrNotAbsoluteHTTP)
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", trimmed, err)
	}
	return normalizeParsed(parsed)
}

// Resolve resolves href against base and normalizes the result.
func Resolve(base string, href string) (string, error) {
	baseURL, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", fmt.Errorf("parse base %q: %w", base, err)
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", fmt.Errorf("parse href %q: %w", href, err)
	}
	return normalizeParsed(baseURL.ResolveReference(ref))
}

func normalizeParsed(parsed *url.URL) (string, error) {
	scheme := lowerASCII(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("%w: scheme %q", ErrNotAbsoluteHTTP, parsed.Scheme)
	}
	if parsed.Host == "" || parsed.Hostname() == "" {
		return "", fmt.Errorf("%w: missing host", ErrNotAbsoluteHTTP)
	}
	canonical := Canonicalize(*parsed)
	return canonical.String(), nil
}

// lowerASCII converts ASCII characters to lowercase without allocating.
// This is faster than strings.ToLower for ASCII-only strings.
func lowerASCII(s string) string {
	var needsLower bool
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' {
			needsLower = true
			break
		}
	}
	if !needsLower {
		return s
	}
	b := make([]byte, len(s))
	copy(b, s)
	for i := 0; i < len(b); i++ {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}

// canonicalPath returns the decoded and raw path of u so that %c3%b3, %C3%B3
// and a literal "ó" serialize identically. Segments separated by an encoded
// slash are re-encoded one by one and joined with %2F; RawPath is empty when
// the default encoding of Path already is canonical.
func canonicalPath(u url.URL) (string, string) {
	escaped := u.EscapedPath()
	if u.RawPath != "" {
		if unescaped, err := url.PathUnescape(u.RawPath); err == nil && unescaped == u.Path {
			escaped = u.RawPath
		}
	}
	parts := strings.Split(strings.ReplaceAll(escaped, "%2f", "%2F"), "%2F")
	if len(parts) == 1 {
		path := u.Path
		if path == "" {
			path = "/"
		}
		return stripTrailingSlash(path), ""
	}

	decoded := make([]string, len(parts))
	encoded := make([]string, len(parts))
	for i, part := range parts {
		segment, err := url.PathUnescape(part)
		if err != nil {
			segment = part
		}
		decoded[i] = segment
		encoded[i] = (&url.URL{Path: segment}).EscapedPath()
	}
	return stripTrailingSlash(strings.Join(decoded, "/")), stripTrailingSlash(strings.Join(encoded, "%2F"))
}

// upperPercentEscapes uppercases the hex digits of every %XX escape in s.
func upperPercentEscapes(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	b := []byte(s)
	for i := 0; i+2 < len(b); i++ {
		if b[i] != '%' || !isHex(b[i+1]) || !isHex(b[i+2]) {
			continue
		}
		b[i+1] = upperHex(b[i+1])
		b[i+2] = upperHex(b[i+2])
		i += 2
	}
	return string(b)
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func upperHex(c byte) byte {
	if 'a' <= c && c <= 'f' {
		return c - ('a' - 'A')
	}
	return c
}

// stripTrailingSlash removes trailing slashes from a path.
func stripTrailingSlash(path string) string {
	for len(path) > 1 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}
	return path
}
