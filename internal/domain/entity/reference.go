package entity

import (
	"net/url"
	"strings"
	"unicode"
)

// VideoReference is a parsed, immutable locator of a source video.
type VideoReference struct {
	raw  string
	path string
	url  *url.URL
}

// ParseVideoReference accepts a filesystem path, a file:// URL or an
// http(s):// URL. Anything else fails with ErrInvalidReference.
func ParseVideoReference(raw string) (VideoReference, error) {
	if raw == "" || strings.TrimSpace(raw) != raw {
		return VideoReference{}, ErrInvalidReference
	}
	for _, r := range raw {
		if unicode.IsControl(r) {
			return VideoReference{}, ErrInvalidReference
		}
	}

	// Without a scheme:// prefix the string is a filesystem path, whatever
	// percent signs or colons it contains.
	if !strings.Contains(raw, "://") {
		return VideoReference{raw: raw, path: raw}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return VideoReference{}, ErrInvalidReference
	}

	switch strings.ToLower(u.Scheme) {
	case "file":
		if u.Path == "" {
			return VideoReference{}, ErrInvalidReference
		}
		return VideoReference{raw: raw, path: u.Path}, nil
	case "http", "https":
		if u.Host == "" {
			return VideoReference{}, ErrInvalidReference
		}
		return VideoReference{raw: raw, url: u}, nil
	default:
		return VideoReference{}, ErrInvalidReference
	}
}

// String returns the reference as the caller supplied it.
func (r VideoReference) String() string { return r.raw }

// IsLocal reports whether the reference points at the local filesystem.
func (r VideoReference) IsLocal() bool { return r.url == nil }

// Locator returns what a decoder should open: the filesystem path for local
// references, the full URL otherwise.
func (r VideoReference) Locator() string {
	if r.url != nil {
		return r.url.String()
	}
	return r.path
}
