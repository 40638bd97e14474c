package record

import (
	"net/url"
	"path/filepath"
	"strings"
)

// Location is the canonical absolute path or URL of a file. It is the primary
// key of every record; two locations are equal when their strings are.
type Location string

// NewLocation canonicalises raw. Values carrying a scheme ("scheme://") are
// kept verbatim; anything else is treated as a local path, made absolute and
// cleaned.
func NewLocation(raw string) Location {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.Contains(raw, "://") {
		return Location(raw)
	}
	abs, err := filepath.Abs(raw)
	if err != nil {
		return Location(filepath.Clean(raw))
	}
	return Location(abs)
}

// String returns the canonical form.
func (l Location) String() string { return string(l) }

// IsURL reports whether the location carries a scheme.
func (l Location) IsURL() bool { return strings.Contains(string(l), "://") }

// Path returns the local file-system path of the location. ok is false for
// URLs that do not point at the local file system.
func (l Location) Path() (path string, ok bool) {
	if !l.IsURL() {
		return string(l), l != ""
	}
	u, err := url.Parse(string(l))
	if err != nil || u.Scheme != "file" {
		return "", false
	}
	return filepath.FromSlash(u.Path), true
}

// URL renders the location as a URL; local paths become file:// URLs.
func (l Location) URL() string {
	if l.IsURL() {
		return string(l)
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(string(l))}
	return u.String()
}

// Ext returns the lower-cased extension of the location, including the dot.
func (l Location) Ext() string {
	p := string(l)
	if i := strings.IndexAny(p, "?#"); i >= 0 && l.IsURL() {
		p = p[:i]
	}
	return strings.ToLower(filepath.Ext(p))
}
